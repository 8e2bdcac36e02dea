// Package nats adds the NATS connector to the connector module. Importing
// it links nats.go and registers connector.nats as a *Conn connected with
// the nats.client settings on first use.
package nats

import (
	"context"
	"fmt"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
	"github.com/itsneelabh/autowire/modules/connector"
	"github.com/itsneelabh/autowire/wiring"
)

func init() {
	capability.Register(capability.ConnectorNATS, core.Version)
	wiring.RegisterActivator(wiring.KeyNATS, Activate)
}

// Conn owns a NATS connection so the host can close it.
type Conn struct {
	*natsgo.Conn
}

// Close drains pending messages and closes the connection.
func (c *Conn) Close() error {
	if err := c.Conn.Drain(); err != nil {
		c.Conn.Close()
	}
	return nil
}

// Connect connects to the server described by info.
func Connect(info *connector.Info, name string) (*Conn, error) {
	opts := []natsgo.Option{
		natsgo.Name(name),
		natsgo.Timeout(5 * time.Second),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
	}
	conn, err := natsgo.Connect(info.URL(), opts...)
	if err != nil {
		return nil, fmt.Errorf("connect NATS at %s: %v: %w", info.Address(), err, core.ErrConnectionFailed)
	}
	return &Conn{Conn: conn}, nil
}

// Activate wires the NATS connection. Malformed settings fail the
// activation.
func Activate(a *wiring.Activation) error {
	settings, err := a.Settings()
	if err != nil {
		return err
	}
	info, err := connector.ParseInfo(connector.NATS, settings)
	if err != nil {
		return err
	}

	name := connector.ServiceName(connector.NATS)
	connector.Wire(a.Builder, info,
		func(_ context.Context, sp *host.ServiceProvider) (interface{}, error) {
			return Connect(info, sp.Settings().GetString(core.KeyApplicationName))
		},
		func(ctx context.Context, h *host.Host) host.HealthResult {
			conn, err := host.Resolve[*Conn](ctx, h.Services(), name)
			if err != nil {
				return host.Unhealthy(err)
			}
			if status := conn.Status(); status != natsgo.CONNECTED {
				return host.HealthResult{Status: core.HealthDegraded, Details: map[string]interface{}{"status": status.String()}}
			}
			return host.Healthy(map[string]interface{}{"url": info.Redacted(), "server": conn.ConnectedUrlRedacted()})
		})

	a.Logger().Debug("Connector configured", map[string]interface{}{
		"connector": string(connector.NATS),
		"url":       info.Redacted(),
	})
	return nil
}
