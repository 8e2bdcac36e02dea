// Package k8sconfig adds a configuration source reading ConfigMaps and
// Secrets from the pod's namespace, and publishes the pod's identity as a
// service.
//
// Settings:
//
//	kubernetes.config.name           application.name
//	kubernetes.config.namespace      the pod namespace, else "default"
//	kubernetes.config.secrets        true
//	kubernetes.config.reload_period  0 (no reload)
package k8sconfig

import (
	"context"
	"os"
	"sync"
	"time"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
	"github.com/itsneelabh/autowire/wiring"
)

const (
	SourceName   = "kubernetes"
	InstanceInfo = "kubernetes.instance_info"
	TaskName     = "kubernetes.reload"
)

func init() {
	capability.Register(capability.KubernetesBase, core.Version)
	wiring.RegisterActivator(wiring.KeyKubernetesConfig, Activate)
}

// newClient builds the clientset. Tests replace it.
var newClient = func() (kubernetes.Interface, error) {
	cfg, err := rest.InClusterConfig()
	if err != nil {
		return nil, err
	}
	return kubernetes.NewForConfig(cfg)
}

// Instance describes the pod the application runs in.
type Instance struct {
	Namespace string `json:"namespace"`
	PodName   string `json:"pod_name"`
	Hostname  string `json:"hostname"`
	NodeName  string `json:"node_name,omitempty"`
	PodIP     string `json:"pod_ip,omitempty"`
}

func currentInstance(namespace string) *Instance {
	hostname, _ := os.Hostname()
	cfg := core.DefaultConfig()
	_ = cfg.LoadFromEnv()
	return &Instance{
		Namespace: namespace,
		PodName:   cfg.Kubernetes.PodName,
		Hostname:  hostname,
		NodeName:  os.Getenv("NODE_NAME"),
		PodIP:     os.Getenv("POD_IP"),
	}
}

// defaultNamespace is the namespace the framework configuration detected.
func defaultNamespace() string {
	cfg := core.DefaultConfig()
	if err := cfg.LoadFromEnv(); err == nil && cfg.Kubernetes.Namespace != "" {
		return cfg.Kubernetes.Namespace
	}
	return "default"
}

// Activate wires the Kubernetes source, the instance info service and an
// optional reload task. The clientset is created on first load.
func Activate(a *wiring.Activation) error {
	settings, err := a.Settings()
	if err != nil {
		return err
	}

	namespace := settings.GetString("kubernetes.config.namespace")
	if namespace == "" {
		namespace = defaultNamespace()
	}
	secrets := true
	if settings.IsSet("kubernetes.config.secrets") {
		secrets = settings.GetBool("kubernetes.config.secrets")
	}
	period := settings.GetDuration("kubernetes.config.reload_period")
	if period < 0 {
		return core.ConfigError("k8sconfig.Activate", "kubernetes.config.reload_period", "reload period must not be negative", core.ErrInvalidConfiguration)
	}

	var (
		once   sync.Once
		client kubernetes.Interface
		cerr   error
	)
	lazyClient := func() (kubernetes.Interface, error) {
		once.Do(func() { client, cerr = newClient() })
		return client, cerr
	}

	b := a.Builder
	b.AddConfigSource(&Source{
		client:    lazyClient,
		namespace: namespace,
		name:      settings.GetString("kubernetes.config.name"),
		secrets:   secrets,
		logger:    a.Logger(),
	})
	b.RegisterService(InstanceInfo, func(context.Context, *host.ServiceProvider) (interface{}, error) {
		return currentInstance(namespace), nil
	})
	if period > 0 {
		b.AddBackgroundTask(host.NewPeriodicTask(TaskName, period, func(ctx context.Context, h *host.Host) error {
			reloadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			return h.Reload(reloadCtx)
		}))
	}
	return nil
}
