package host

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Settings is the merged, read-only view of every configuration source added
// to a builder. Keys are case-insensitive and dot separated.
type Settings struct {
	v *viper.Viper
}

// NewSettings creates an empty settings view.
func NewSettings() *Settings {
	return &Settings{v: viper.New()}
}

// SettingsFromMap creates a settings view from flat dotted keys.
func SettingsFromMap(values map[string]interface{}) (*Settings, error) {
	s := NewSettings()
	if err := s.merge(values); err != nil {
		return nil, err
	}
	return s, nil
}

// merge layers flat dotted keys over the current values.
func (s *Settings) merge(values map[string]interface{}) error {
	if len(values) == 0 {
		return nil
	}
	if err := s.v.MergeConfigMap(Expand(values)); err != nil {
		return fmt.Errorf("merge settings: %w", err)
	}
	return nil
}

func (s *Settings) Get(key string) interface{}           { return s.v.Get(key) }
func (s *Settings) GetString(key string) string          { return s.v.GetString(key) }
func (s *Settings) GetInt(key string) int                { return s.v.GetInt(key) }
func (s *Settings) GetBool(key string) bool              { return s.v.GetBool(key) }
func (s *Settings) GetFloat64(key string) float64        { return s.v.GetFloat64(key) }
func (s *Settings) GetDuration(key string) time.Duration { return s.v.GetDuration(key) }
func (s *Settings) GetStringSlice(key string) []string   { return s.v.GetStringSlice(key) }
func (s *Settings) IsSet(key string) bool                { return s.v.IsSet(key) }

// GetStringOr returns the value of key, or def when key is unset or empty.
func (s *Settings) GetStringOr(key, def string) string {
	if v := s.v.GetString(key); v != "" {
		return v
	}
	return def
}

// GetDurationOr returns the value of key, or def when key is unset or zero.
func (s *Settings) GetDurationOr(key string, def time.Duration) time.Duration {
	if v := s.v.GetDuration(key); v > 0 {
		return v
	}
	return def
}

// Sub returns the settings below key. It never returns nil.
func (s *Settings) Sub(key string) *Settings {
	sub := s.v.Sub(key)
	if sub == nil {
		return NewSettings()
	}
	return &Settings{v: sub}
}

// Unmarshal decodes the settings below key into out. An empty key decodes
// everything.
func (s *Settings) Unmarshal(key string, out interface{}) error {
	if key == "" {
		return s.v.Unmarshal(out)
	}
	return s.v.UnmarshalKey(key, out)
}

// AllKeys returns every leaf key, sorted.
func (s *Settings) AllKeys() []string {
	keys := s.v.AllKeys()
	sort.Strings(keys)
	return keys
}

// AllSettings returns the nested settings tree.
func (s *Settings) AllSettings() map[string]interface{} {
	return s.v.AllSettings()
}

// Flat returns every leaf as a dotted key.
func (s *Settings) Flat() map[string]interface{} {
	out := make(map[string]interface{})
	for _, k := range s.v.AllKeys() {
		out[k] = s.v.Get(k)
	}
	return out
}

// Expand turns flat dotted keys into nested maps. A later dotted key below a
// scalar replaces the scalar.
func Expand(flat map[string]interface{}) map[string]interface{} {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	// Shorter keys first so parents are placed before their children.
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) < len(keys[j])
		}
		return keys[i] < keys[j]
	})

	root := make(map[string]interface{})
	for _, key := range keys {
		parts := strings.Split(strings.ToLower(key), ".")
		node := root
		for _, part := range parts[:len(parts)-1] {
			next, ok := node[part].(map[string]interface{})
			if !ok {
				next = make(map[string]interface{})
				node[part] = next
			}
			node = next
		}
		leaf := parts[len(parts)-1]
		if nested, ok := flat[key].(map[string]interface{}); ok {
			for k, v := range Flatten(nested) {
				setPath(node, append([]string{leaf}, strings.Split(k, ".")...), v)
			}
			continue
		}
		node[leaf] = flat[key]
	}
	return root
}

func setPath(node map[string]interface{}, parts []string, value interface{}) {
	for _, part := range parts[:len(parts)-1] {
		next, ok := node[part].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			node[part] = next
		}
		node = next
	}
	node[parts[len(parts)-1]] = value
}

// Flatten turns nested maps into dotted keys. Slices are kept as values.
func Flatten(nested map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	flattenInto(out, "", nested)
	return out
}

func flattenInto(out map[string]interface{}, prefix string, value interface{}) {
	switch v := value.(type) {
	case map[string]interface{}:
		for k, child := range v {
			flattenInto(out, join(prefix, k), child)
		}
	case map[interface{}]interface{}:
		for k, child := range v {
			flattenInto(out, join(prefix, fmt.Sprint(k)), child)
		}
	default:
		out[prefix] = v
	}
}

func join(prefix, key string) string {
	key = strings.ToLower(key)
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
