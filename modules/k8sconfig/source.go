package k8sconfig

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/spf13/viper"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
)

// Source reads the ConfigMaps, and optionally Secrets, named after the
// application: "<name>" first, then "<name>.<profile>" overriding it.
type Source struct {
	client    func() (kubernetes.Interface, error)
	namespace string
	name      string
	secrets   bool
	logger    core.Logger
}

func (s *Source) Name() string { return SourceName }

func (s *Source) Load(ctx context.Context, prior *host.Settings) (map[string]interface{}, error) {
	client, err := s.client()
	if err != nil {
		return nil, core.NewFrameworkError("k8sconfig.Load", "config", err)
	}

	name := s.name
	if name == "" {
		name = prior.GetString(core.KeyApplicationName)
	}
	names := []string{name}
	if profile := prior.GetString(core.KeyApplicationProfile); profile != "" && profile != "default" {
		names = append(names, name+"."+profile)
	}

	out := make(map[string]interface{})
	for _, n := range names {
		cm, err := client.CoreV1().ConfigMaps(s.namespace).Get(ctx, n, metav1.GetOptions{})
		if err := s.tolerate("configmap", n, err); err != nil {
			return nil, err
		}
		if err == nil {
			for _, key := range sortedKeys(cm.Data) {
				if err := mergeEntry(out, key, cm.Data[key]); err != nil {
					return nil, fmt.Errorf("configmap %s/%s key %s: %w", s.namespace, n, key, err)
				}
			}
		}

		if !s.secrets {
			continue
		}
		secret, err := client.CoreV1().Secrets(s.namespace).Get(ctx, n, metav1.GetOptions{})
		if err := s.tolerate("secret", n, err); err != nil {
			return nil, err
		}
		if err == nil {
			for _, key := range sortedKeys(secret.Data) {
				if err := mergeEntry(out, key, string(secret.Data[key])); err != nil {
					return nil, fmt.Errorf("secret %s/%s key %s: %w", s.namespace, n, key, err)
				}
			}
		}
	}
	return out, nil
}

// tolerate ignores missing objects and missing permissions.
func (s *Source) tolerate(kind, name string, err error) error {
	switch {
	case err == nil, apierrors.IsNotFound(err):
		return nil
	case apierrors.IsForbidden(err):
		s.logger.Warn("No permission to read Kubernetes object", map[string]interface{}{
			"kind":      kind,
			"name":      name,
			"namespace": s.namespace,
		})
		return nil
	default:
		return fmt.Errorf("read %s %s/%s: %w", kind, s.namespace, name, err)
	}
}

// sortedKeys orders data keys so that when two keys of one object set the
// same setting, the later key in byte order wins on every load.
func sortedKeys[V any](data map[string]V) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// mergeEntry adds one data key. Keys naming a yaml, json or properties
// document are parsed and flattened; any other key is a single setting.
func mergeEntry(out map[string]interface{}, key, value string) error {
	ext := strings.ToLower(path.Ext(key))
	switch ext {
	case ".yaml", ".yml", ".json", ".properties":
		v := viper.New()
		v.SetConfigType(strings.TrimPrefix(ext, "."))
		if err := v.ReadConfig(strings.NewReader(value)); err != nil {
			return fmt.Errorf("%w: %v", core.ErrInvalidConfiguration, err)
		}
		for k, val := range host.Flatten(v.AllSettings()) {
			out[k] = val
		}
	default:
		out[strings.ToLower(strings.ReplaceAll(key, "__", "."))] = value
	}
	return nil
}
