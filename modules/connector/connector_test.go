package connector

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"net"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
	"github.com/itsneelabh/autowire/wiring"
)

// stubDriver stands in for a MySQL driver; pings fail while down is set.
type stubDriver struct {
	down atomic.Bool
	dsn  atomic.Value
}

type stubConn struct{ d *stubDriver }

func (d *stubDriver) Open(dsn string) (driver.Conn, error) {
	d.dsn.Store(dsn)
	if d.down.Load() {
		return nil, errors.New("connection refused")
	}
	return stubConn{d}, nil
}

func (stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not supported") }
func (stubConn) Close() error                        { return nil }
func (stubConn) Begin() (driver.Tx, error)           { return nil, errors.New("not supported") }

var mysqlStub = &stubDriver{}

func init() {
	sql.Register("mysql", mysqlStub)
}

func newBuilder(values map[string]interface{}) *host.HostBuilder {
	b := host.NewHostBuilder(host.WithName("orders"))
	b.AddConfigSource(host.NewMapSource("defaults", values))
	return b
}

func run(t *testing.T, b *host.HostBuilder, fn wiring.Activator) *host.Host {
	t.Helper()
	require.NoError(t, fn(&wiring.Activation{Builder: b}))
	h, err := b.Build(context.Background())
	require.NoError(t, err)
	return h
}

func TestActivateSourceAddsConnectionStrings(t *testing.T) {
	b := newBuilder(nil)
	require.NoError(t, ActivateSource(&wiring.Activation{Builder: b}))
	assert.Equal(t, []string{"defaults", SourceName}, b.Sources())
}

func TestSQLConnector(t *testing.T) {
	mysqlStub.down.Store(false)
	b := newBuilder(map[string]interface{}{"mysql.client.url": "mysql://u:p@db:3306/shop"})
	h := run(t, b, Activate(MySQL))

	assert.Equal(t, []string{InfoName(MySQL), ServiceName(MySQL)}, b.Services())
	assert.Equal(t, []string{ServiceName(MySQL)}, b.HealthContributors())

	db, err := host.Resolve[*sql.DB](context.Background(), h.Services(), ServiceName(MySQL))
	require.NoError(t, err)
	require.NoError(t, db.PingContext(context.Background()))
	assert.Equal(t, "u:p@tcp(db:3306)/shop", mysqlStub.dsn.Load())

	report := h.Health(context.Background())
	assert.Equal(t, core.HealthHealthy, report.Components[ServiceName(MySQL)].Status)
	assert.Equal(t, "mysql://u:xxxxx@db:3306/shop", report.Components[ServiceName(MySQL)].Details["url"])

	mysqlStub.down.Store(true)
	t.Cleanup(func() { mysqlStub.down.Store(false) })
	_ = db.Close()
	report = h.Health(context.Background())
	assert.Equal(t, core.HealthUnhealthy, report.Components[ServiceName(MySQL)].Status)
}

func TestSQLConnectorWithoutDriver(t *testing.T) {
	h := run(t, newBuilder(nil), Activate(Oracle))

	_, err := h.Services().Get(context.Background(), ServiceName(Oracle))
	assert.ErrorIs(t, err, core.ErrServiceUnavailable)

	info, err := host.Resolve[*Info](context.Background(), h.Services(), InfoName(Oracle))
	require.NoError(t, err)
	assert.Equal(t, 1521, info.Port)
}

func TestActivateFailsOnMalformedSettings(t *testing.T) {
	b := newBuilder(map[string]interface{}{"postgresql.client.url": "postgres://db:notaport"})
	err := Activate(PostgreSQL)(&wiring.Activation{Builder: b})
	require.Error(t, err)
	assert.True(t, core.IsConfigurationError(err))
	assert.Empty(t, b.Services())
	assert.Empty(t, b.HealthContributors())
}

func TestInfoOnlyConnectorsDialForHealth(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	_, port, _ := net.SplitHostPort(ln.Addr().String())
	h := run(t, newBuilder(map[string]interface{}{"mongodb.client.url": "mongodb://127.0.0.1:" + port + "/orders"}), Activate(MongoDB))

	info, err := host.Resolve[*Info](context.Background(), h.Services(), ServiceName(MongoDB))
	require.NoError(t, err)
	assert.Equal(t, "orders", info.Database)
	assert.Equal(t, core.HealthHealthy, h.Health(context.Background()).Components[ServiceName(MongoDB)].Status)

	ln.Close()
	assert.Equal(t, core.HealthUnhealthy, h.Health(context.Background()).Components[ServiceName(MongoDB)].Status)
}

func TestClientConnectorsNeedTheirPackage(t *testing.T) {
	mysqlStub.down.Store(false)
	rec := host.NewRecorder(host.NewHostBuilder(host.WithName("orders")))
	report, err := wiring.New(wiring.WithRegistry(capability.Default())).Compose(rec, nil, nil)
	require.NoError(t, err)

	outcomes := make(map[string]wiring.Outcome)
	for _, d := range report.Decisions {
		outcomes[d.Rule] = d.Outcome
	}
	assert.Equal(t, wiring.OutcomeActivated, outcomes["connectors"])
	assert.Equal(t, wiring.OutcomeActivated, outcomes["mysql"], "a registered driver enables its connector")
	assert.Equal(t, wiring.OutcomeAbsent, outcomes["redis"])
	assert.Equal(t, wiring.OutcomeAbsent, outcomes["redis-cache"])
	assert.Equal(t, wiring.OutcomeAbsent, outcomes["nats"])

	assert.NotContains(t, rec.Named(host.MutationService), ServiceName(Redis))
	assert.NotContains(t, rec.Named(host.MutationHealthContributor), ServiceName(NATS))
}

func TestWireRegistersInfoClientAndHealth(t *testing.T) {
	b := newBuilder(nil)
	info, err := ParseInfo(RabbitMQ, host.NewSettings())
	require.NoError(t, err)

	Wire(b, info, func(context.Context, *host.ServiceProvider) (interface{}, error) {
		return "client", nil
	}, func(context.Context, *host.Host) host.HealthResult {
		return host.Healthy(nil)
	})

	assert.Equal(t, []string{InfoName(RabbitMQ), ServiceName(RabbitMQ)}, b.Services())
	assert.Equal(t, []string{ServiceName(RabbitMQ)}, b.HealthContributors())
}
