package connector

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
)

// Kind names a connector. It is also the settings prefix: <kind>.client.*.
type Kind string

const (
	MySQL      Kind = "mysql"
	PostgreSQL Kind = "postgresql"
	SQLServer  Kind = "sqlserver"
	Oracle     Kind = "oracle"
	MongoDB    Kind = "mongodb"
	RabbitMQ   Kind = "rabbitmq"
	NATS       Kind = "nats"
	Redis      Kind = "redis"
)

type kindSpec struct {
	scheme      string
	port        int
	database    string
	credentials bool
	// aliases match Cloud Foundry service labels and tags.
	aliases []string
}

var kinds = map[Kind]kindSpec{
	MySQL:      {scheme: "mysql", port: 3306, credentials: true, aliases: []string{"mysql", "mariadb"}},
	PostgreSQL: {scheme: "postgres", port: 5432, credentials: true, aliases: []string{"postgres"}},
	SQLServer:  {scheme: "sqlserver", port: 1433, credentials: true, aliases: []string{"sqlserver", "mssql"}},
	Oracle:     {scheme: "oracle", port: 1521, credentials: true, aliases: []string{"oracle"}},
	MongoDB:    {scheme: "mongodb", port: 27017, aliases: []string{"mongo"}},
	RabbitMQ:   {scheme: "amqp", port: 5672, database: "/", aliases: []string{"rabbit", "amqp"}},
	NATS:       {scheme: "nats", port: 4222, aliases: []string{"nats"}},
	Redis:      {scheme: "redis", port: 6379, database: "0", aliases: []string{"redis"}},
}

// Kinds returns every connector kind in wiring order.
func Kinds() []Kind {
	return []Kind{MySQL, PostgreSQL, SQLServer, Oracle, MongoDB, RabbitMQ, NATS, Redis}
}

// Info is the validated connection information of one connector.
type Info struct {
	Kind     Kind
	Scheme   string
	Host     string
	Port     int
	Username string
	Password string
	Database string
	Query    url.Values
}

// Address returns host:port.
func (i *Info) Address() string {
	return net.JoinHostPort(i.Host, strconv.Itoa(i.Port))
}

// URL renders the connection string, including credentials.
func (i *Info) URL() string {
	return i.url(false)
}

// Redacted renders the connection string with the password masked.
func (i *Info) Redacted() string {
	return i.url(true)
}

func (i *Info) url(redact bool) string {
	u := url.URL{Scheme: i.Scheme, Host: i.Address(), RawQuery: i.Query.Encode()}
	switch {
	case i.Username != "" && i.Password != "" && redact:
		u.User = url.UserPassword(i.Username, "xxxxx")
	case i.Username != "" && i.Password != "":
		u.User = url.UserPassword(i.Username, i.Password)
	case i.Username != "":
		u.User = url.User(i.Username)
	case i.Password != "" && redact:
		u.User = url.UserPassword("", "xxxxx")
	case i.Password != "":
		u.User = url.UserPassword("", i.Password)
	}
	if i.Database != "" && i.Database != "/" {
		u.Path = "/" + strings.TrimPrefix(i.Database, "/")
	}
	return u.String()
}

// ParseInfo reads <kind>.client.* from settings. An explicit
// <kind>.client.url wins, then connectionstrings.<kind>, then the
// individual host, port, username, password and database keys.
func ParseInfo(kind Kind, s *host.Settings) (*Info, error) {
	spec, ok := kinds[kind]
	if !ok {
		return nil, fmt.Errorf("unknown connector %q: %w", kind, core.ErrInvalidConfiguration)
	}
	prefix := string(kind) + ".client."

	info := &Info{
		Kind:     kind,
		Scheme:   spec.scheme,
		Host:     s.GetStringOr(prefix+"host", "localhost"),
		Port:     spec.port,
		Username: s.GetString(prefix + "username"),
		Password: s.GetString(prefix + "password"),
		Database: s.GetStringOr(prefix+"database", spec.database),
		Query:    url.Values{},
	}
	if s.IsSet(prefix + "port") {
		info.Port = s.GetInt(prefix + "port")
	}

	key, raw := prefix+"url", s.GetString(prefix+"url")
	if raw == "" {
		key, raw = "connectionstrings."+string(kind), s.GetString("connectionstrings."+string(kind))
	}
	if raw != "" {
		if err := info.apply(raw); err != nil {
			return nil, core.ConfigError("connector.ParseInfo", key, err.Error(), core.ErrInvalidConfiguration)
		}
	}

	if info.Port <= 0 || info.Port > 65535 {
		return nil, core.ConfigError("connector.ParseInfo", prefix+"port", fmt.Sprintf("invalid port %d", info.Port), core.ErrInvalidConfiguration)
	}
	if info.Host == "" {
		return nil, core.ConfigError("connector.ParseInfo", prefix+"host", "host is required", core.ErrMissingConfiguration)
	}
	return info, nil
}

// apply overlays the parts of a connection URL onto info.
func (i *Info) apply(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("malformed connection url")
	}
	if u.Host == "" {
		return fmt.Errorf("connection url has no host")
	}
	if u.Scheme != "" {
		i.Scheme = u.Scheme
	}
	i.Host = u.Hostname()
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("malformed port %q", p)
		}
		i.Port = port
	}
	if u.User != nil {
		i.Username = u.User.Username()
		i.Password, _ = u.User.Password()
	}
	if db := strings.TrimPrefix(u.Path, "/"); db != "" {
		i.Database = db
	}
	for k, vs := range u.Query() {
		if k == "database" && len(vs) > 0 {
			i.Database = vs[0]
			continue
		}
		i.Query[k] = vs
	}
	return nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
