// Package dynlog provides category loggers whose levels can be changed while
// the application runs, for example from the /loggers management endpoint.
//
// Categories are dotted names. A category inherits the level of its longest
// configured prefix, so setting "connector" also affects "connector.redis".
//
// Settings:
//
//	logging.level.default     info
//	logging.level.<category>  debug | info | warn | error | fatal | off
//	logging.format            text | json
package dynlog

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
	"github.com/itsneelabh/autowire/wiring"
)

// ServiceName is the service holding the *Provider.
const ServiceName = "logging.dynamic"

// DefaultCategory names the root level.
const DefaultCategory = "default"

// offLevel is above every level charmbracelet emits.
const offLevel = log.Level(math.MaxInt32)

func init() {
	capability.Register(capability.DynamicLoggingCore, core.Version)
	wiring.RegisterActivator(wiring.KeyDynamicLogging, Activate)
}

// Provider hands out category loggers sharing one output.
type Provider struct {
	base *log.Logger

	mu         sync.RWMutex
	configured map[string]log.Level
	overrides  map[string]log.Level
	seen       map[string]struct{}
}

// NewProvider creates a provider writing to w. levels maps categories to
// level names; the "default" entry sets the root level.
func NewProvider(w io.Writer, format string, levels map[string]string) (*Provider, error) {
	formatter := log.TextFormatter
	if strings.EqualFold(format, "json") {
		formatter = log.JSONFormatter
	}
	p := &Provider{
		base: log.NewWithOptions(w, log.Options{
			Level:           log.DebugLevel,
			Formatter:       formatter,
			ReportTimestamp: true,
		}),
		configured: map[string]log.Level{DefaultCategory: log.InfoLevel},
		overrides:  make(map[string]log.Level),
		seen:       make(map[string]struct{}),
	}
	for category, name := range levels {
		lvl, err := parseLevel(name)
		if err != nil {
			return nil, core.ConfigError("dynlog.NewProvider", "logging.level."+category, err.Error(), core.ErrInvalidConfiguration)
		}
		p.configured[strings.ToLower(category)] = lvl
	}
	return p, nil
}

// FromSettings creates a provider from the logging.* settings.
func FromSettings(s *host.Settings, w io.Writer) (*Provider, error) {
	levels := make(map[string]string)
	for category, v := range s.Sub("logging.level").Flat() {
		levels[category] = fmt.Sprint(v)
	}
	return NewProvider(w, s.GetString("logging.format"), levels)
}

func parseLevel(name string) (log.Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "off" {
		return offLevel, nil
	}
	return log.ParseLevel(name)
}

func levelName(l log.Level) string {
	if l == offLevel {
		return "off"
	}
	return l.String()
}

// Logger returns the logger for category. Its level follows later SetLevel
// calls.
func (p *Provider) Logger(category string) core.Logger {
	category = strings.ToLower(category)
	p.mu.Lock()
	p.seen[category] = struct{}{}
	p.mu.Unlock()
	return &categoryLogger{provider: p, category: category, logger: p.base.With("category", category)}
}

// SetLevel overrides the level of category and everything beneath it.
func (p *Provider) SetLevel(category, level string) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return fmt.Errorf("level %q: %w", level, core.ErrInvalidConfiguration)
	}
	p.mu.Lock()
	p.overrides[strings.ToLower(category)] = lvl
	p.mu.Unlock()
	return nil
}

// ResetLevel drops a runtime override, returning category to its configured
// level.
func (p *Provider) ResetLevel(category string) {
	p.mu.Lock()
	delete(p.overrides, strings.ToLower(category))
	p.mu.Unlock()
}

// EffectiveLevel returns the level name category currently logs at.
func (p *Provider) EffectiveLevel(category string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return levelName(p.effective(strings.ToLower(category)))
}

// effective walks category's dotted prefixes, overrides before
// configuration. Callers hold mu.
func (p *Provider) effective(category string) log.Level {
	for c := category; c != ""; {
		if lvl, ok := p.overrides[c]; ok {
			return lvl
		}
		if lvl, ok := p.configured[c]; ok {
			return lvl
		}
		i := strings.LastIndexByte(c, '.')
		if i < 0 {
			break
		}
		c = c[:i]
	}
	if lvl, ok := p.overrides[DefaultCategory]; ok {
		return lvl
	}
	return p.configured[DefaultCategory]
}

// Levels lists every configured, overridden or requested category.
func (p *Provider) Levels() map[string]core.LevelInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make(map[string]struct{})
	for c := range p.configured {
		names[c] = struct{}{}
	}
	for c := range p.overrides {
		names[c] = struct{}{}
	}
	for c := range p.seen {
		names[c] = struct{}{}
	}

	out := make(map[string]core.LevelInfo, len(names))
	for c := range names {
		info := core.LevelInfo{Effective: levelName(p.effective(c))}
		if lvl, ok := p.configured[c]; ok {
			info.Configured = levelName(lvl)
		}
		out[c] = info
	}
	return out
}

// Categories returns the names Levels reports, sorted.
func (p *Provider) Categories() []string {
	levels := p.Levels()
	names := make([]string, 0, len(levels))
	for c := range levels {
		names = append(names, c)
	}
	sort.Strings(names)
	return names
}

func (p *Provider) enabled(category string, l log.Level) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return l >= p.effective(category)
}

type categoryLogger struct {
	provider *Provider
	category string
	logger   *log.Logger
}

func (c *categoryLogger) Info(msg string, fields map[string]interface{}) {
	if c.provider.enabled(c.category, log.InfoLevel) {
		c.logger.Info(msg, core.KeyVals(fields)...)
	}
}

func (c *categoryLogger) Error(msg string, fields map[string]interface{}) {
	if c.provider.enabled(c.category, log.ErrorLevel) {
		c.logger.Error(msg, core.KeyVals(fields)...)
	}
}

func (c *categoryLogger) Warn(msg string, fields map[string]interface{}) {
	if c.provider.enabled(c.category, log.WarnLevel) {
		c.logger.Warn(msg, core.KeyVals(fields)...)
	}
}

func (c *categoryLogger) Debug(msg string, fields map[string]interface{}) {
	if c.provider.enabled(c.category, log.DebugLevel) {
		c.logger.Debug(msg, core.KeyVals(fields)...)
	}
}

// Activate validates the level settings and registers the provider service.
func Activate(a *wiring.Activation) error {
	settings, err := a.Settings()
	if err != nil {
		return err
	}
	if _, err := FromSettings(settings, io.Discard); err != nil {
		return err
	}

	a.Builder.RegisterService(ServiceName, func(_ context.Context, sp *host.ServiceProvider) (interface{}, error) {
		return FromSettings(sp.Settings(), os.Stdout)
	})
	return nil
}
