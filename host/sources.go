package host

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/itsneelabh/autowire/core"
)

// ConfigSource contributes settings to a host. Sources are loaded in the
// order they were added; later sources override earlier ones.
type ConfigSource interface {
	// Name identifies the source kind. A builder keeps one source per name.
	Name() string

	// Load returns flat dotted keys. prior holds the merge of every source
	// added before this one.
	Load(ctx context.Context, prior *Settings) (map[string]interface{}, error)
}

// SourceFunc adapts a function to ConfigSource.
type SourceFunc struct {
	SourceName string
	LoadFunc   func(ctx context.Context, prior *Settings) (map[string]interface{}, error)
}

func (s SourceFunc) Name() string { return s.SourceName }

func (s SourceFunc) Load(ctx context.Context, prior *Settings) (map[string]interface{}, error) {
	return s.LoadFunc(ctx, prior)
}

// MapSource serves fixed values. Nested maps are flattened.
type MapSource struct {
	name   string
	values map[string]interface{}
}

// NewMapSource creates a source serving values under name.
func NewMapSource(name string, values map[string]interface{}) *MapSource {
	return &MapSource{name: name, values: Flatten(values)}
}

func (m *MapSource) Name() string { return m.name }

func (m *MapSource) Load(context.Context, *Settings) (map[string]interface{}, error) {
	out := make(map[string]interface{}, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out, nil
}

// FileSource reads a JSON, YAML or TOML settings file.
type FileSource struct {
	path     string
	optional bool
}

// NewFileSource creates a source reading path. A missing optional file
// contributes nothing.
func NewFileSource(path string, optional bool) *FileSource {
	return &FileSource{path: filepath.Clean(path), optional: optional}
}

func (f *FileSource) Name() string { return "file:" + f.path }

func (f *FileSource) Load(context.Context, *Settings) (map[string]interface{}, error) {
	if _, err := os.Stat(f.path); err != nil {
		if os.IsNotExist(err) && f.optional {
			return nil, nil
		}
		return nil, core.ConfigError("host.FileSource", f.path, "settings file not readable", core.ErrMissingConfiguration)
	}

	v := viper.New()
	v.SetConfigFile(f.path)
	if err := v.ReadInConfig(); err != nil {
		return nil, core.ConfigError("host.FileSource", f.path, fmt.Sprintf("cannot parse settings file: %v", err), core.ErrInvalidConfiguration)
	}
	return Flatten(v.AllSettings()), nil
}

// EnvSource reads prefixed environment variables. A double underscore
// separates key segments: PREFIX__A__B=v becomes a.b=v.
type EnvSource struct {
	prefix  string
	environ func() []string
}

// NewEnvSource creates a source for variables starting with prefix.
// An empty prefix uses core.AppSettingsEnvPrefix.
func NewEnvSource(prefix string) *EnvSource {
	if prefix == "" {
		prefix = core.AppSettingsEnvPrefix
	}
	return &EnvSource{prefix: prefix, environ: os.Environ}
}

func (e *EnvSource) Name() string { return "env:" + e.prefix }

func (e *EnvSource) Load(context.Context, *Settings) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	for _, kv := range e.environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, e.prefix) {
			continue
		}
		key = strings.TrimPrefix(key, e.prefix)
		if key == "" {
			continue
		}
		key = strings.ToLower(strings.ReplaceAll(key, "__", "."))
		out[key] = value
	}
	return out, nil
}
