package core

// Environment Variables - framework settings
const (
	EnvAppName        = "AUTOWIRE_APP_NAME"
	EnvProfile        = "AUTOWIRE_PROFILE"
	EnvExclude        = "AUTOWIRE_EXCLUDE" // Comma-separated capability tokens to hide from detection
	EnvLogLevel       = "AUTOWIRE_LOG_LEVEL"
	EnvLogFormat      = "AUTOWIRE_LOG_FORMAT"
	EnvManagementPort = "AUTOWIRE_MANAGEMENT_PORT"
	EnvDevMode        = "AUTOWIRE_DEV_MODE"
	EnvDebug          = "AUTOWIRE_DEBUG"
)

// Environment Variables - platform signals
const (
	EnvKubernetesServiceHost = "KUBERNETES_SERVICE_HOST" // Set by the kubelet in every pod
	EnvKubernetesNamespace   = "AUTOWIRE_K8S_NAMESPACE"
	EnvPodName               = "HOSTNAME"
	EnvVCAPApplication       = "VCAP_APPLICATION" // Set by Cloud Foundry in every container
	EnvVCAPServices          = "VCAP_SERVICES"
	EnvCFInstanceCert        = "CF_INSTANCE_CERT"
	EnvCFInstanceKey         = "CF_INSTANCE_KEY"
)

// Settings keys shared between modules
const (
	// KeyApplicationName names the application in configuration lookups
	// (config server paths, ConfigMap names, discovery registrations).
	KeyApplicationName = "application.name"

	// KeyApplicationProfile selects the profile-specific configuration.
	KeyApplicationProfile = "application.profile"

	// AppSettingsEnvPrefix is the prefix EnvSource strips from application settings.
	// Example: AUTOWIRE__CONFIG__SERVER__URI -> config.server.uri
	AppSettingsEnvPrefix = "AUTOWIRE__"
)

// DefaultServiceAccountPath is where Kubernetes mounts the pod's service account.
const DefaultServiceAccountPath = "/var/run/secrets/kubernetes.io/serviceaccount"
