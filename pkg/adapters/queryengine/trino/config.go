package trino

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/Vvil1568/lct-hackathone/pkg/adapters/queryengine"
)

// Config contains Trino-specific connection options.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Catalog  string
	Schema   string
	SSL      bool
	Source   string
}

// DefaultPort returns the default Trino coordinator port.
func DefaultPort() int {
	return 8080
}

// DefaultUser is used when the URL carries no user; Trino requires one.
const DefaultUser = "lakeadvisor"

// FromDescriptor builds a Config from jdbc:trino://host:port/catalog/schema?user=&password=&SSL=.
// HTTPS is the default; SSL=false switches to plain HTTP, which Trino only
// accepts without a password.
func FromDescriptor(d *queryengine.Descriptor) (*Config, error) {
	cfg := &Config{
		Host:     d.Host,
		Port:     d.PortOr(DefaultPort()),
		User:     d.User,
		Password: d.Password,
		Catalog:  d.PathSegment(0),
		Schema:   d.PathSegment(1),
		SSL:      d.BoolParam(true, "SSL", "ssl"),
		Source:   d.Param("source"),
	}
	if v := d.Param("catalog"); v != "" {
		cfg.Catalog = v
	}
	if v := d.Param("schema"); v != "" {
		cfg.Schema = v
	}
	if cfg.User == "" {
		cfg.User = DefaultUser
	}
	if cfg.Source == "" {
		cfg.Source = DefaultUser
	}
	if cfg.Password != "" && !cfg.SSL {
		return nil, fmt.Errorf("trino: password authentication requires SSL")
	}
	return cfg, nil
}

// DSN renders the trino-go-client data source name.
func (c *Config) DSN() string {
	scheme := "http"
	if c.SSL {
		scheme = "https"
	}
	u := url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
	}
	if c.Password != "" {
		u.User = url.UserPassword(c.User, c.Password)
	} else {
		u.User = url.User(c.User)
	}

	q := url.Values{}
	if c.Catalog != "" {
		q.Set("catalog", c.Catalog)
	}
	if c.Schema != "" {
		q.Set("schema", c.Schema)
	}
	q.Set("source", c.Source)
	u.RawQuery = q.Encode()
	return u.String()
}
