// Package placeholder adds a configuration source that resolves ${key} and
// ${key:default} references in the settings loaded before it.
//
// References resolve recursively and may nest, as in ${a:${b:fallback}}.
// A reference that cannot be resolved, or that refers back to itself, is
// left as written.
package placeholder

import (
	"context"
	"fmt"
	"strings"

	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
	"github.com/itsneelabh/autowire/wiring"
)

const SourceName = "placeholder"

func init() {
	capability.Register(capability.PlaceholderBase, core.Version)
	wiring.RegisterActivator(wiring.KeyPlaceholder, Activate)
}

// Source re-publishes every prior setting whose value contains a
// reference, with the references resolved.
type Source struct{}

func (Source) Name() string { return SourceName }

func (Source) Load(_ context.Context, prior *host.Settings) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	if prior == nil {
		return out, nil
	}
	for key, value := range prior.Flat() {
		str, ok := value.(string)
		if !ok || !strings.Contains(str, "${") {
			continue
		}
		r := &resolver{settings: prior, visiting: map[string]bool{key: true}}
		if resolved := r.expand(str); resolved != str && !r.cyclic {
			out[key] = resolved
		}
	}
	return out, nil
}

// Resolve expands the references in value against settings.
func Resolve(settings *host.Settings, value string) string {
	r := &resolver{settings: settings, visiting: map[string]bool{}}
	return r.expand(value)
}

type resolver struct {
	settings *host.Settings
	visiting map[string]bool
	cyclic   bool
}

func (r *resolver) expand(value string) string {
	var b strings.Builder
	for {
		start := strings.Index(value, "${")
		if start < 0 {
			b.WriteString(value)
			return b.String()
		}
		end := closingBrace(value, start+2)
		if end < 0 {
			b.WriteString(value)
			return b.String()
		}
		b.WriteString(value[:start])
		b.WriteString(r.reference(value[start+2:end], value[start:end+1]))
		value = value[end+1:]
	}
}

// reference resolves the body of one ${...}; literal is returned when it
// cannot be resolved.
func (r *resolver) reference(body, literal string) string {
	body = r.expand(body)
	key, def, hasDefault := strings.Cut(body, ":")
	key = strings.ToLower(strings.TrimSpace(key))

	if r.visiting[key] {
		r.cyclic = true
		return literal
	}
	if r.settings.IsSet(key) {
		r.visiting[key] = true
		defer delete(r.visiting, key)
		return r.expand(fmt.Sprint(r.settings.Get(key)))
	}
	if hasDefault {
		return def
	}
	return literal
}

// closingBrace returns the index of the brace closing a reference whose
// body starts at from, or -1.
func closingBrace(s string, from int) int {
	depth := 1
	for i := from; i < len(s); i++ {
		switch {
		case strings.HasPrefix(s[i:], "${"):
			depth++
			i++
		case s[i] == '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// Activate adds the placeholder source after the sources added so far.
func Activate(a *wiring.Activation) error {
	a.Builder.AddConfigSource(Source{})
	return nil
}
