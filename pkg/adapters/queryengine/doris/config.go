package doris

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/Vvil1568/lct-hackathone/pkg/adapters/queryengine"
)

// Config contains connection options for Doris and other MySQL-protocol engines.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
}

// DefaultPort returns the Doris FE query port.
func DefaultPort() int {
	return 9030
}

// FromDescriptor builds a Config from jdbc:mysql://fe:9030/db?user=&password=.
func FromDescriptor(d *queryengine.Descriptor) (*Config, error) {
	cfg := &Config{
		Host:     d.Host,
		Port:     d.PortOr(DefaultPort()),
		User:     d.User,
		Password: d.Password,
		Database: d.PathSegment(0),
	}
	if strings.TrimSpace(cfg.User) == "" {
		return nil, errors.New("doris: user is required")
	}
	return cfg, nil
}

// DSN renders the go-sql-driver/mysql data source name.
func (c *Config) DSN() string {
	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	mc.User = c.User
	mc.Passwd = c.Password
	if database := strings.TrimSpace(c.Database); database != "" {
		mc.DBName = database
	}

	connectTimeout := c.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}
	rwTimeout := c.ReadTimeout
	if rwTimeout <= 0 {
		rwTimeout = 2 * time.Minute
	}
	mc.Timeout = connectTimeout
	mc.ReadTimeout = rwTimeout
	mc.WriteTimeout = rwTimeout
	mc.Params = map[string]string{
		"charset": "utf8mb4",
	}
	return mc.FormatDSN()
}
