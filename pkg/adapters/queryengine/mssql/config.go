package mssql

import (
	"fmt"
	"net/url"

	"github.com/Vvil1568/lct-hackathone/pkg/adapters/queryengine"
)

// Config contains SQL Server-specific connection options.
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string

	Encrypt                bool
	TrustServerCertificate bool
	ConnectionTimeout      int
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return 1433
}

// DefaultConnectionTimeout returns the default connection timeout in seconds.
func DefaultConnectionTimeout() int {
	return 30
}

// FromDescriptor builds a Config from
// jdbc:sqlserver://host:1433;databaseName=db;user=u;password=p;encrypt=true;trustServerCertificate=false.
func FromDescriptor(d *queryengine.Descriptor) (*Config, error) {
	cfg := &Config{
		Host:                   d.Host,
		Port:                   d.PortOr(DefaultPort()),
		Database:               d.Param("databaseName", "database"),
		Username:               d.User,
		Password:               d.Password,
		Encrypt:                d.BoolParam(true, "encrypt"),
		TrustServerCertificate: d.BoolParam(false, "trustServerCertificate"),
		ConnectionTimeout:      DefaultConnectionTimeout(),
	}
	if cfg.Database == "" {
		cfg.Database = d.PathSegment(0)
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("mssql: databaseName is required")
	}
	if cfg.Username == "" {
		return nil, fmt.Errorf("mssql: user is required")
	}
	return cfg, nil
}

// ConnString renders the go-mssqldb URL form.
func (c *Config) ConnString() string {
	query := url.Values{}
	query.Add("database", c.Database)
	if c.Encrypt {
		query.Add("encrypt", "true")
	} else {
		query.Add("encrypt", "false")
	}
	if c.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}
	if c.ConnectionTimeout > 0 {
		query.Add("connection timeout", fmt.Sprintf("%d", c.ConnectionTimeout))
	}

	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?%s",
		url.QueryEscape(c.Username),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		query.Encode(),
	)
}
