package connector

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
)

// sqlDrivers lists the database/sql driver names each SQL connector can
// use, in preference order.
var sqlDrivers = map[Kind][]string{
	MySQL:      {"mysql"},
	PostgreSQL: {"pgx", "postgres"},
	SQLServer:  {"sqlserver", "mssql"},
	Oracle:     {"oracle", "godror"},
}

// driverFor returns the first registered driver for kind.
func driverFor(kind Kind) (string, bool) {
	registered := make(map[string]bool)
	for _, d := range sql.Drivers() {
		registered[d] = true
	}
	for _, d := range sqlDrivers[kind] {
		if registered[d] {
			return d, true
		}
	}
	return "", false
}

// DSN renders info in the form the driver expects.
func DSN(driver string, info *Info) string {
	switch driver {
	case "mysql":
		dsn := ""
		if info.Username != "" {
			dsn = info.Username
			if info.Password != "" {
				dsn += ":" + info.Password
			}
			dsn += "@"
		}
		dsn += fmt.Sprintf("tcp(%s)/%s", info.Address(), info.Database)
		if q := info.Query.Encode(); q != "" {
			dsn += "?" + q
		}
		return dsn
	case "godror":
		return fmt.Sprintf(`user=%q password=%q connectString="%s/%s"`, info.Username, info.Password, info.Address(), info.Database)
	case "sqlserver", "mssql":
		copied := *info
		copied.Query = cloneValues(info.Query)
		if info.Database != "" {
			copied.Query.Set("database", info.Database)
		}
		copied.Database = ""
		copied.Scheme = "sqlserver"
		return copied.URL()
	default:
		return info.URL()
	}
}

// OpenSQL opens a pool for info with the first registered driver for its
// kind. The pool connects lazily.
func OpenSQL(info *Info) (*sql.DB, error) {
	driver, ok := driverFor(info.Kind)
	if !ok {
		return nil, fmt.Errorf("no database/sql driver registered for %s (want one of %v): %w",
			info.Kind, sqlDrivers[info.Kind], core.ErrServiceUnavailable)
	}
	db, err := sql.Open(driver, DSN(driver, info))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", info.Kind, err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// DialCheck reports healthy while the address accepts TCP connections. It
// backs the connectors that register connection info only.
func DialCheck(info *Info) HealthCheck {
	return func(ctx context.Context, _ *host.Host) host.HealthResult {
		if err := dial(ctx, info); err != nil {
			return host.Unhealthy(err)
		}
		return host.Healthy(map[string]interface{}{"url": info.Redacted()})
	}
}

func dial(ctx context.Context, info *Info) error {
	var d net.Dialer
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	conn, err := d.DialContext(ctx, "tcp", info.Address())
	if err != nil {
		return fmt.Errorf("%s at %s: %w", info.Kind, info.Address(), core.ErrConnectionFailed)
	}
	return conn.Close()
}
