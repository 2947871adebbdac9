package postgres

import (
	"fmt"
	"net/url"

	"github.com/Vvil1568/lct-hackathone/pkg/adapters/queryengine"
)

// Config contains PostgreSQL-specific connection options.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Schema   string
	SSLMode  string // "disable", "prefer", "require", "verify-ca", "verify-full"
}

// DefaultPort returns the default PostgreSQL port.
func DefaultPort() int {
	return 5432
}

// DefaultSSLMode returns the default SSL mode.
func DefaultSSLMode() string {
	return "prefer"
}

// FromDescriptor builds a Config from jdbc:postgresql://host:port/db?currentSchema=&sslmode=.
func FromDescriptor(d *queryengine.Descriptor) (*Config, error) {
	cfg := &Config{
		Host:     d.Host,
		Port:     d.PortOr(DefaultPort()),
		User:     d.User,
		Password: d.Password,
		Database: d.PathSegment(0),
		Schema:   d.Param("currentSchema", "schema"),
		SSLMode:  d.Param("sslmode"),
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("postgres: user is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("postgres: database is required")
	}
	if cfg.Schema == "" {
		cfg.Schema = "public"
	}
	if cfg.SSLMode == "" {
		if d.BoolParam(false, "ssl") {
			cfg.SSLMode = "require"
		} else {
			cfg.SSLMode = DefaultSSLMode()
		}
	}
	return cfg, nil
}

// ConnString builds a PostgreSQL URL with proper escaping.
// All user-provided fields are URL-escaped so passwords containing @, /, # or ?
// do not break URL parsing.
func (c *Config) ConnString() string {
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		url.QueryEscape(c.Database),
		c.SSLMode,
	)
}
