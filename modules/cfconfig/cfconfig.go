// Package cfconfig exposes the Cloud Foundry container environment as
// configuration.
//
// VCAP_APPLICATION is published below vcap.application and every bound
// service below vcap.services.<label>.<index>. Lists become numbered keys.
package cfconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
	"github.com/itsneelabh/autowire/wiring"
)

const SourceName = "cloudfoundry"

func init() {
	capability.Register(capability.CloudFoundryBase, core.Version)
	wiring.RegisterActivator(wiring.KeyCloudFoundryConfig, Activate)
}

// Source reads the VCAP variables. Outside Cloud Foundry both are unset and
// the source is empty.
type Source struct {
	lookup func(string) string
}

// NewSource reads the process environment.
func NewSource() *Source {
	return &Source{lookup: os.Getenv}
}

// NewSourceFromLookup reads variables through lookup.
func NewSourceFromLookup(lookup func(string) string) *Source {
	return &Source{lookup: lookup}
}

func (s *Source) Name() string { return SourceName }

func (s *Source) Load(context.Context, *host.Settings) (map[string]interface{}, error) {
	out := make(map[string]interface{})

	if raw := strings.TrimSpace(s.lookup(core.EnvVCAPApplication)); raw != "" {
		var app map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &app); err != nil {
			return nil, core.ConfigError("cfconfig.Load", core.EnvVCAPApplication, "malformed VCAP_APPLICATION", core.ErrInvalidConfiguration)
		}
		flatten(out, "vcap.application", app)
	}

	if raw := strings.TrimSpace(s.lookup(core.EnvVCAPServices)); raw != "" {
		var services map[string][]map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &services); err != nil {
			return nil, core.ConfigError("cfconfig.Load", core.EnvVCAPServices, "malformed VCAP_SERVICES", core.ErrInvalidConfiguration)
		}
		for label, bindings := range services {
			for i, binding := range bindings {
				flatten(out, fmt.Sprintf("vcap.services.%s.%d", label, i), binding)
			}
		}
	}
	return out, nil
}

func flatten(out map[string]interface{}, prefix string, value interface{}) {
	switch v := value.(type) {
	case map[string]interface{}:
		for k, child := range v {
			flatten(out, prefix+"."+strings.ToLower(k), child)
		}
	case []interface{}:
		for i, child := range v {
			flatten(out, prefix+"."+strconv.Itoa(i), child)
		}
	default:
		out[prefix] = v
	}
}

// Activate adds the Cloud Foundry source. The variables are parsed up front
// so a malformed environment fails the wiring pass.
func Activate(a *wiring.Activation) error {
	src := NewSource()
	if _, err := src.Load(context.Background(), nil); err != nil {
		return err
	}
	a.Builder.AddConfigSource(src)
	return nil
}
