package wiring

import "github.com/itsneelabh/autowire/capability"

// Activation keys. Module packages register an Activator under these keys.
const (
	KeyConfigServer       = "configserver"
	KeyCloudFoundryConfig = "cfconfig"
	KeyKubernetesConfig   = "k8sconfig"
	KeyRandomValue        = "randomvalue"
	KeyPlaceholder        = "placeholder"

	KeyConnectors = "connector"
	KeyMySQL      = "connector.mysql"
	KeyPostgreSQL = "connector.postgresql"
	KeySQLServer  = "connector.sqlserver"
	KeyOracle     = "connector.oracle"
	KeyMongoDB    = "connector.mongodb"
	KeyRabbitMQ   = "connector.rabbitmq"
	KeyNATS       = "connector.nats"
	KeyRedis      = "connector.redis"
	KeyRedisCache = "connector.rediscache"

	KeyDynamicLogging = "dynlog"

	KeyDiscoveryCore = "discovery.core"
	KeyDiscoveryBase = "discovery.base"

	KeyManagementKubernetes   = "actuator.kubernetes"
	KeyManagementCloudFoundry = "actuator.cloudfoundry"
	KeyManagementAll          = "actuator.all"

	KeyTracingCore = "tracing.core"
	KeyTracingBase = "tracing.base"

	KeyContainerIdentity = "cfidentity"
)

// DefaultTable returns the wiring table in priority order. clusterSignal
// reports whether the process runs under cluster orchestration.
func DefaultTable(clusterSignal func() bool) Table {
	return Table{
		Group{
			Name: "config-source",
			Members: []Rule{
				{
					Name:       "config-server",
					Capability: "Config Server",
					When:       AnyOf(capability.ConfigServerBase, capability.ConfigServerCore),
					Activation: KeyConfigServer,
					Message:    "Found config server module, adding config server configuration source",
				},
				{
					Name:       "cloud-foundry-config",
					Capability: "Cloud Foundry configuration",
					When:       AnyOf(capability.CloudFoundryBase, capability.CloudFoundryCore),
					Activation: KeyCloudFoundryConfig,
					Message:    "Found Cloud Foundry configuration module, adding Cloud Foundry configuration source",
					FollowUps: []Rule{{
						Name:       "kubernetes-config",
						Capability: "Kubernetes configuration",
						When:       AnyOf(capability.KubernetesBase, capability.KubernetesCore).When(clusterSignal),
						Activation: KeyKubernetesConfig,
						Message:    "Found Kubernetes configuration module and cluster environment, adding Kubernetes configuration source",
					}},
				},
			},
		},

		Standalone{Rule: Rule{
			Name:       "random-value",
			Capability: "Random value source",
			When:       AllOf(capability.RandomValueBase),
			Activation: KeyRandomValue,
			Message:    "Found random value module, adding random value configuration source",
		}},
		Standalone{Rule: Rule{
			Name:       "placeholder",
			Capability: "Placeholder resolver",
			When:       AnyOf(capability.PlaceholderBase, capability.PlaceholderCore),
			Activation: KeyPlaceholder,
			Message:    "Found placeholder module, adding placeholder resolver",
		}},

		Gate{
			Parent: Rule{
				Name:       "connectors",
				Capability: "Service connectors",
				When:       AllOf(capability.ConnectorCore),
				Activation: KeyConnectors,
				Message:    "Found connector module, adding connection strings configuration source",
			},
			Children: []Rule{
				connector("mysql", "MySQL", KeyMySQL, capability.MySQLClients),
				connector("postgresql", "PostgreSQL", KeyPostgreSQL, capability.PostgreSQLClients),
				connector("sqlserver", "SQL Server", KeySQLServer, capability.SQLServerClients),
				connector("oracle", "Oracle", KeyOracle, capability.OracleClients),
				connector("mongodb", "MongoDB", KeyMongoDB, capability.MongoDBClients),
				connector("rabbitmq", "RabbitMQ", KeyRabbitMQ, capability.RabbitMQClients),
				connector("nats", "NATS", KeyNATS, capability.NATSClients, capability.ConnectorNATS),
				connector("redis", "Redis", KeyRedis, capability.RedisClients, capability.ConnectorRedis),
				connector("redis-cache", "Redis distributed cache", KeyRedisCache, capability.RedisCacheClients, capability.ConnectorRedis),
			},
		},

		Standalone{Rule: Rule{
			Name:       "dynamic-logging",
			Capability: "Dynamic logging",
			When:       AllOf(capability.DynamicLoggingCore),
			Activation: KeyDynamicLogging,
			Message:    "Found dynamic logging module, adding dynamic logging provider",
		}},

		Group{
			Name: "discovery",
			Members: []Rule{
				{
					Name:       "discovery-core",
					Capability: "Discovery client (web)",
					When:       AllOf(capability.DiscoveryClientCore),
					Activation: KeyDiscoveryCore,
					Message:    "Found web discovery client module, adding discovery client with health contributor",
				},
				{
					Name:       "discovery-base",
					Capability: "Discovery client",
					When:       AllOf(capability.DiscoveryClientBase),
					Activation: KeyDiscoveryBase,
					Message:    "Found discovery client module, adding discovery client",
				},
			},
		},

		Group{
			Name: "management",
			Members: []Rule{
				{
					Name:       "management-kubernetes",
					Capability: "Kubernetes management endpoints",
					When:       AllOf(capability.ManagementKubernetes),
					Activation: KeyManagementKubernetes,
					Message:    "Found Kubernetes management module, adding Kubernetes actuators",
				},
				{
					Name:       "management-cloudfoundry",
					Capability: "Cloud Foundry management endpoints",
					When:       AllOf(capability.ManagementCloudFoundry),
					Activation: KeyManagementCloudFoundry,
					Message:    "Found Cloud Foundry management module, adding Cloud Foundry actuators",
				},
				{
					Name:       "management-all",
					Capability: "Management endpoints",
					When:       AllOf(capability.ManagementEndpoint),
					Activation: KeyManagementAll,
					Message:    "Found management endpoint module, adding all actuators",
				},
			},
		},

		Group{
			Name: "tracing",
			Members: []Rule{
				{
					Name:       "tracing-core",
					Capability: "Distributed tracing (web)",
					When:       AllOf(capability.TracingCore),
					Activation: KeyTracingCore,
					Message:    "Found web tracing module, adding distributed tracing with HTTP instrumentation",
				},
				{
					Name:       "tracing-base",
					Capability: "Distributed tracing",
					When:       AllOf(capability.TracingBase),
					Activation: KeyTracingBase,
					Message:    "Found tracing module, adding distributed tracing",
				},
			},
		},

		Standalone{Rule: Rule{
			Name:       "container-identity",
			Capability: "Cloud Foundry container identity",
			When:       AllOf(capability.ContainerIdentity),
			Activation: KeyContainerIdentity,
			Message:    "Found container identity module, adding container identity certificate source and rotation",
		}},
	}
}

// connector builds a connector rule satisfied by any of clients. Connectors
// whose client is built in another package also require that package.
func connector(name, display, key string, clients []capability.ID, requires ...capability.ID) Rule {
	when := AnyOf(clients...)
	if len(requires) > 0 {
		when = when.Requires(requires...)
	}
	return Rule{
		Name:       name,
		Capability: display + " connector",
		When:       when,
		Activation: key,
		Message:    "Found " + display + " client, adding " + display + " connector",
	}
}
