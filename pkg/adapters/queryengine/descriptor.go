package queryengine

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/Vvil1568/lct-hackathone/pkg/apperrors"
	"github.com/Vvil1568/lct-hackathone/pkg/logging"
)

// Descriptor is a parsed JDBC-style connection URL:
//
//	jdbc:trino://host:8080/catalog/schema?user=u&password=p
//	jdbc:postgresql://host:5432/db?currentSchema=s
//	jdbc:sqlserver://host:1433;databaseName=db;user=u;password=p
//	jdbc:mysql://fe-host:9030/db
//
// The jdbc: prefix is optional. Interpretation of Path is up to each adapter.
type Descriptor struct {
	Scheme   string
	Host     string
	Port     int // 0 when absent
	User     string
	Password string
	Path     []string
	Params   map[string]string
}

// ParseDescriptor parses a connection URL. Credentials may come from the
// userinfo part or from user/password parameters; parameters win.
func ParseDescriptor(raw string) (*Descriptor, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, fmt.Errorf("%w: connection url is empty", apperrors.ErrInvalidInput)
	}
	if len(s) >= 5 && strings.EqualFold(s[:5], "jdbc:") {
		s = s[5:]
	}

	sep := strings.Index(s, "://")
	if sep <= 0 {
		return nil, fmt.Errorf("%w: connection url %q has no scheme", apperrors.ErrInvalidInput, logging.SanitizeConnectionString(raw))
	}
	scheme := strings.ToLower(s[:sep])

	var (
		d   *Descriptor
		err error
	)
	if scheme == "sqlserver" {
		d, err = parseSemicolonURL(s[sep+3:])
	} else {
		d, err = parseStandardURL(s)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrInvalidInput, logging.SanitizeConnectionString(raw), err)
	}
	d.Scheme = scheme

	if v := d.Param("user"); v != "" {
		d.User = v
	}
	if v := d.Param("password"); v != "" {
		d.Password = v
	}
	if d.Host == "" {
		return nil, fmt.Errorf("%w: connection url %q has no host", apperrors.ErrInvalidInput, logging.SanitizeConnectionString(raw))
	}
	return d, nil
}

func parseStandardURL(s string) (*Descriptor, error) {
	u, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	d := &Descriptor{Host: u.Hostname(), Params: make(map[string]string)}
	if p := u.Port(); p != "" {
		if d.Port, err = strconv.Atoi(p); err != nil {
			return nil, fmt.Errorf("invalid port %q", p)
		}
	}
	if u.User != nil {
		d.User = u.User.Username()
		d.Password, _ = u.User.Password()
	}
	for _, seg := range strings.Split(strings.Trim(u.Path, "/"), "/") {
		if seg != "" {
			d.Path = append(d.Path, seg)
		}
	}
	for k, vs := range u.Query() {
		if len(vs) > 0 {
			d.Params[k] = vs[len(vs)-1]
		}
	}
	return d, nil
}

// parseSemicolonURL handles host[:port][;key=value]... as used by SQL Server.
func parseSemicolonURL(s string) (*Descriptor, error) {
	d := &Descriptor{Params: make(map[string]string)}
	parts := strings.Split(s, ";")

	hostPort := parts[0]
	if slash := strings.Index(hostPort, "/"); slash >= 0 {
		hostPort = hostPort[:slash]
	}
	if host, port, ok := strings.Cut(hostPort, ":"); ok {
		d.Host = host
		n, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q", port)
		}
		d.Port = n
	} else {
		d.Host = hostPort
	}

	for _, kv := range parts[1:] {
		if kv == "" {
			continue
		}
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("malformed property %q", kv)
		}
		d.Params[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return d, nil
}

// Param returns the first non-empty parameter among keys, matched case-insensitively.
func (d *Descriptor) Param(keys ...string) string {
	for _, key := range keys {
		for k, v := range d.Params {
			if strings.EqualFold(k, key) && v != "" {
				return v
			}
		}
	}
	return ""
}

// PathSegment returns the i-th path segment or "".
func (d *Descriptor) PathSegment(i int) string {
	if i < len(d.Path) {
		return d.Path[i]
	}
	return ""
}

// PortOr returns the port, or def when none was given.
func (d *Descriptor) PortOr(def int) int {
	if d.Port > 0 {
		return d.Port
	}
	return def
}

// BoolParam reads a boolean parameter, returning def when absent or unparsable.
func (d *Descriptor) BoolParam(def bool, keys ...string) bool {
	v := d.Param(keys...)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// String renders the descriptor without credentials, for logs.
func (d *Descriptor) String() string {
	var sb strings.Builder
	sb.WriteString(d.Scheme)
	sb.WriteString("://")
	if d.User != "" {
		sb.WriteString(d.User)
		sb.WriteString("@")
	}
	sb.WriteString(d.Host)
	if d.Port > 0 {
		sb.WriteString(":" + strconv.Itoa(d.Port))
	}
	if len(d.Path) > 0 {
		sb.WriteString("/" + strings.Join(d.Path, "/"))
	}
	return sb.String()
}
