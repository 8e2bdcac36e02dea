package capability

const modules = "github.com/itsneelabh/autowire/modules/"

// Capability tokens of the framework's own modules. A module with a net/http
// integrated variant registers that variant under its "/web" token.
const (
	ConfigServerBase = ID(modules + "configserver")
	ConfigServerCore = ID(modules + "configserver/web")

	CloudFoundryBase = ID(modules + "cfconfig")
	CloudFoundryCore = ID(modules + "cfconfig/web")

	KubernetesBase = ID(modules + "k8sconfig")
	KubernetesCore = ID(modules + "k8sconfig/web")

	RandomValueBase = ID(modules + "randomvalue")

	PlaceholderBase = ID(modules + "placeholder")
	PlaceholderCore = ID(modules + "placeholder/web")

	ConnectorCore = ID(modules + "connector")

	// Connectors backed by a client library live in their own packages so
	// that linking the library stays the application's choice.
	ConnectorRedis = ID(modules + "connector/redis")
	ConnectorNATS  = ID(modules + "connector/nats")

	DynamicLoggingCore = ID(modules + "dynlog")

	DiscoveryClientBase = ID(modules + "discovery")
	DiscoveryClientCore = ID(modules + "discovery/web")

	ManagementEndpoint     = ID(modules + "actuator")
	ManagementKubernetes   = ID(modules + "actuator/kubernetes")
	ManagementCloudFoundry = ID(modules + "actuator/cloudfoundry")

	TracingBase = ID(modules + "tracing")
	TracingCore = ID(modules + "tracing/web")

	ContainerIdentity = ID(modules + "cfidentity")
)

// Client libraries satisfying each connector. Any one of them enables the
// connector; Go module paths come from build info, driver names from
// database/sql.
var (
	MySQLClients = []ID{
		"github.com/go-sql-driver/mysql",
		SQLDriverID("mysql"),
	}
	PostgreSQLClients = []ID{
		"github.com/lib/pq",
		"github.com/jackc/pgx/v5",
		"github.com/jackc/pgx/v4",
		SQLDriverID("postgres"),
		SQLDriverID("pgx"),
	}
	SQLServerClients = []ID{
		"github.com/microsoft/go-mssqldb",
		"github.com/denisenkom/go-mssqldb",
		SQLDriverID("sqlserver"),
	}
	OracleClients = []ID{
		"github.com/sijms/go-ora/v2",
		"github.com/godror/godror",
		SQLDriverID("oracle"),
		SQLDriverID("godror"),
	}
	MongoDBClients = []ID{
		"go.mongodb.org/mongo-driver",
		"go.mongodb.org/mongo-driver/v2",
	}
	RabbitMQClients = []ID{
		"github.com/rabbitmq/amqp091-go",
		"github.com/streadway/amqp",
	}
	NATSClients = []ID{
		"github.com/nats-io/nats.go",
	}
	RedisClients = []ID{
		"github.com/go-redis/redis/v8",
		"github.com/redis/go-redis/v9",
	}
	RedisCacheClients = []ID{
		"github.com/go-redis/cache/v8",
		"github.com/go-redis/cache/v9",
	}
)

// All returns every token the wiring table consults.
func All() []ID {
	ids := []ID{
		ConfigServerBase, ConfigServerCore,
		CloudFoundryBase, CloudFoundryCore,
		KubernetesBase, KubernetesCore,
		RandomValueBase,
		PlaceholderBase, PlaceholderCore,
		ConnectorCore, ConnectorRedis, ConnectorNATS,
		DynamicLoggingCore,
		DiscoveryClientBase, DiscoveryClientCore,
		ManagementEndpoint, ManagementKubernetes, ManagementCloudFoundry,
		TracingBase, TracingCore,
		ContainerIdentity,
	}
	for _, clients := range [][]ID{
		MySQLClients, PostgreSQLClients, SQLServerClients, OracleClients,
		MongoDBClients, RabbitMQClients, NATSClients, RedisClients, RedisCacheClients,
	} {
		ids = append(ids, clients...)
	}
	return ids
}
