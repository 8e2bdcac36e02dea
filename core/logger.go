package core

import (
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
)

// ComponentAwareLogger is implemented by loggers that can tag their output
// with the component (module, subsystem) that produced it.
type ComponentAwareLogger interface {
	Logger
	WithComponent(component string) Logger
}

// LevelInfo describes the level of one logger category.
type LevelInfo struct {
	Configured string `json:"configured_level,omitempty"`
	Effective  string `json:"effective_level"`
}

// ProductionLogger is the default Logger implementation.
// Output format follows the environment: JSON in Kubernetes and Cloud Foundry
// for log aggregation, human-readable text locally.
type ProductionLogger struct {
	logger    *log.Logger
	service   string
	component string
}

// NewProductionLogger creates a logger from the framework configuration.
// A nil config falls back to DefaultConfig().
func NewProductionLogger(cfg *Config) Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return newProductionLogger(cfg, outputWriter(cfg.Logging.Output))
}

func newProductionLogger(cfg *Config, w io.Writer) *ProductionLogger {
	formatter := log.TextFormatter
	if strings.EqualFold(cfg.Logging.Format, "json") {
		formatter = log.JSONFormatter
	}

	l := log.NewWithOptions(w, log.Options{
		Level:           ParseLogLevel(cfg.Logging.Level),
		Formatter:       formatter,
		ReportTimestamp: true,
	})
	if cfg.Name != "" {
		l = l.With("service", cfg.Name)
	}

	return &ProductionLogger{
		logger:  l,
		service: cfg.Name,
	}
}

// ParseLogLevel maps a configuration level name to a charmbracelet level.
// Unknown names resolve to info.
func ParseLogLevel(level string) log.Level {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

func outputWriter(output string) io.Writer {
	if strings.EqualFold(output, "stderr") {
		return os.Stderr
	}
	return os.Stdout
}

// WithComponent returns a logger that tags every record with component.
func (p *ProductionLogger) WithComponent(component string) Logger {
	return &ProductionLogger{
		logger:    p.logger.With("component", component),
		service:   p.service,
		component: component,
	}
}

// SetLevel changes the minimum level at runtime.
func (p *ProductionLogger) SetLevel(level string) {
	p.logger.SetLevel(ParseLogLevel(level))
}

// Level returns the current minimum level name.
func (p *ProductionLogger) Level() string {
	return p.logger.GetLevel().String()
}

func (p *ProductionLogger) Info(msg string, fields map[string]interface{}) {
	p.logger.Info(msg, KeyVals(fields)...)
}

func (p *ProductionLogger) Error(msg string, fields map[string]interface{}) {
	p.logger.Error(msg, KeyVals(fields)...)
}

func (p *ProductionLogger) Warn(msg string, fields map[string]interface{}) {
	p.logger.Warn(msg, KeyVals(fields)...)
}

func (p *ProductionLogger) Debug(msg string, fields map[string]interface{}) {
	p.logger.Debug(msg, KeyVals(fields)...)
}

// KeyVals flattens fields into sorted key/value pairs so output is stable.
func KeyVals(fields map[string]interface{}) []interface{} {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kv := make([]interface{}, 0, len(keys)*2)
	for _, k := range keys {
		kv = append(kv, k, fields[k])
	}
	return kv
}
