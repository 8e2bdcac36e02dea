// Package connector wires backing-service connectors: a connection strings
// configuration source and, per connector, validated connection info, a
// client service and a health contributor.
//
// Each connector reads <kind>.client.url or connectionstrings.<kind>, or
// the individual <kind>.client.host, port, username, password and database
// keys. Services are named connector.<kind> and connector.<kind>.info.
//
//	connector.mysql, .postgresql, .sqlserver, .oracle  *sql.DB
//	connector.mongodb, connector.rabbitmq              *Info
//
// The SQL connectors need only a database/sql driver, which the application
// links. Connectors built on a client library live in their own packages:
// import modules/connector/redis or modules/connector/nats to enable them.
package connector

import (
	"context"
	"database/sql"

	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
	"github.com/itsneelabh/autowire/wiring"
)

func init() {
	capability.Register(capability.ConnectorCore, core.Version)

	wiring.RegisterActivator(wiring.KeyConnectors, ActivateSource)
	wiring.RegisterActivator(wiring.KeyMySQL, Activate(MySQL))
	wiring.RegisterActivator(wiring.KeyPostgreSQL, Activate(PostgreSQL))
	wiring.RegisterActivator(wiring.KeySQLServer, Activate(SQLServer))
	wiring.RegisterActivator(wiring.KeyOracle, Activate(Oracle))
	wiring.RegisterActivator(wiring.KeyMongoDB, Activate(MongoDB))
	wiring.RegisterActivator(wiring.KeyRabbitMQ, Activate(RabbitMQ))
}

// ServiceName returns the client service name of kind.
func ServiceName(kind Kind) string { return "connector." + string(kind) }

// InfoName returns the connection info service name of kind.
func InfoName(kind Kind) string { return ServiceName(kind) + ".info" }

// ActivateSource adds the connection strings source.
func ActivateSource(a *wiring.Activation) error {
	a.Builder.AddConfigSource(Source{})
	return nil
}

// HealthCheck reports the health of one connector.
type HealthCheck func(ctx context.Context, h *host.Host) host.HealthResult

// Wire registers the info service, the client service and the health
// contributor of one connector.
func Wire(b host.Builder, info *Info, factory host.ServiceFactory, check HealthCheck) {
	b.RegisterService(InfoName(info.Kind), func(context.Context, *host.ServiceProvider) (interface{}, error) {
		return info, nil
	})
	b.RegisterService(ServiceName(info.Kind), factory)
	b.AddHealthContributor(host.NewHealthContributor(ServiceName(info.Kind), check))
}

// Activate returns the activator for one connector. Malformed connection
// settings fail the activation; connecting is deferred to first use.
func Activate(kind Kind) wiring.Activator {
	return func(a *wiring.Activation) error {
		settings, err := a.Settings()
		if err != nil {
			return err
		}
		info, err := ParseInfo(kind, settings)
		if err != nil {
			return err
		}

		var (
			factory host.ServiceFactory
			check   HealthCheck
		)
		switch kind {
		case MySQL, PostgreSQL, SQLServer, Oracle:
			factory = func(context.Context, *host.ServiceProvider) (interface{}, error) {
				return OpenSQL(info)
			}
			check = func(ctx context.Context, h *host.Host) host.HealthResult {
				db, err := host.Resolve[*sql.DB](ctx, h.Services(), ServiceName(kind))
				if err != nil {
					return host.Unhealthy(err)
				}
				if err := db.PingContext(ctx); err != nil {
					return host.Unhealthy(err)
				}
				return host.Healthy(map[string]interface{}{"url": info.Redacted()})
			}

		default:
			factory = func(context.Context, *host.ServiceProvider) (interface{}, error) {
				return info, nil
			}
			check = DialCheck(info)
		}

		Wire(a.Builder, info, factory, check)
		a.Logger().Debug("Connector configured", map[string]interface{}{
			"connector": string(kind),
			"url":       info.Redacted(),
		})
		return nil
	}
}
