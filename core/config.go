package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds the framework-level configuration of an autowired process.
// It supports three-layer configuration priority:
//  1. Default values (lowest priority)
//  2. Environment variables (medium priority)
//  3. Functional options (highest priority)
//
// Application settings consumed by capability modules (connection URLs,
// config server locations, exporter endpoints) are not part of Config; they
// flow through the host's configuration sources.
//
// Example usage:
//
//	cfg, err := NewConfig(
//	    WithName("orders"),
//	    WithExclusions("github.com/itsneelabh/autowire/modules/tracing"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
type Config struct {
	Name    string `json:"name" yaml:"name" toml:"name"`
	Profile string `json:"profile" yaml:"profile" toml:"profile"`

	// Exclusions are capability tokens hidden from detection for every run.
	Exclusions []string `json:"exclusions" yaml:"exclusions" toml:"exclusions"`

	// SettingsFile is an optional application settings file (json, yaml, toml)
	// added as the first configuration source of the host.
	SettingsFile string `json:"settings_file" yaml:"settings_file" toml:"settings_file"`

	Logging      LoggingConfig      `json:"logging" yaml:"logging" toml:"logging"`
	Management   ManagementConfig   `json:"management" yaml:"management" toml:"management"`
	Development  DevelopmentConfig  `json:"development" yaml:"development" toml:"development"`
	Kubernetes   KubernetesConfig   `json:"kubernetes" yaml:"kubernetes" toml:"kubernetes"`
	CloudFoundry CloudFoundryConfig `json:"cloud_foundry" yaml:"cloud_foundry" toml:"cloud_foundry"`
}

// LoggingConfig contains logging configuration.
// Supports structured (JSON) and human-readable (text) formats.
// In Kubernetes environments, JSON format is selected for log aggregation.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level"`
	Format string `json:"format" yaml:"format" toml:"format"`
	Output string `json:"output" yaml:"output" toml:"output"`
}

// ManagementConfig locates the management endpoints served by actuator modules.
type ManagementConfig struct {
	Port     int    `json:"port" yaml:"port" toml:"port"`
	BasePath string `json:"base_path" yaml:"base_path" toml:"base_path"`
}

// DevelopmentConfig contains settings for local development and testing.
//
// WARNING: Never enable development mode in production!
type DevelopmentConfig struct {
	Enabled      bool `json:"enabled" yaml:"enabled" toml:"enabled"`
	DebugLogging bool `json:"debug_logging" yaml:"debug_logging" toml:"debug_logging"`
	PrettyLogs   bool `json:"pretty_logs" yaml:"pretty_logs" toml:"pretty_logs"`
}

// KubernetesConfig contains Kubernetes-specific settings.
// The framework automatically detects Kubernetes environments by checking
// for the KUBERNETES_SERVICE_HOST environment variable.
type KubernetesConfig struct {
	Enabled            bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Namespace          string `json:"namespace" yaml:"namespace" toml:"namespace"`
	PodName            string `json:"pod_name" yaml:"pod_name" toml:"pod_name"`
	ServiceAccountPath string `json:"service_account_path" yaml:"service_account_path" toml:"service_account_path"`
}

// CloudFoundryConfig reports whether the process runs in a Cloud Foundry container.
type CloudFoundryConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" toml:"enabled"`
}

// Option is a functional option for configuring the framework.
// Options are applied in order and can return an error if the configuration is invalid.
type Option func(*Config) error

// DefaultConfig returns a configuration with sensible defaults.
// The defaults are adjusted based on the detected environment:
//   - Kubernetes: JSON logging
//   - Local: text logging, development mode
func DefaultConfig() *Config {
	cfg := &Config{
		Name:    "autowire-app",
		Profile: "default",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Management: ManagementConfig{
			Port:     8090,
			BasePath: "/actuator",
		},
		Kubernetes: KubernetesConfig{
			ServiceAccountPath: DefaultServiceAccountPath,
		},
	}

	cfg.DetectEnvironment()

	return cfg
}

// DetectEnvironment adjusts configuration based on the detected platform.
// Detection criteria:
//   - Kubernetes: KUBERNETES_SERVICE_HOST environment variable is set
//   - Cloud Foundry: VCAP_APPLICATION environment variable is set
//   - Local: neither
func (c *Config) DetectEnvironment() {
	c.CloudFoundry.Enabled = IsCloudFoundry()

	if IsKubernetes() {
		c.Kubernetes.Enabled = true
		c.Logging.Format = "json"
		return
	}
	if c.CloudFoundry.Enabled {
		c.Logging.Format = "json"
		return
	}

	if os.Getenv(EnvDevMode) == "" {
		c.Development.Enabled = true
		c.Development.PrettyLogs = true
		c.Logging.Format = "text"
	}
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables take precedence over defaults but are overridden by functional options.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv(EnvAppName); v != "" {
		c.Name = v
	}
	if v := os.Getenv(EnvProfile); v != "" {
		c.Profile = v
	}
	if v := os.Getenv(EnvExclude); v != "" {
		c.Exclusions = parseStringList(v)
	}
	if v := os.Getenv(EnvManagementPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return &FrameworkError{
				Op:      "Config.LoadFromEnv",
				Kind:    "config",
				ID:      EnvManagementPort,
				Message: fmt.Sprintf("invalid management port: %q", v),
				Err:     ErrInvalidConfiguration,
			}
		}
		c.Management.Port = port
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Logging.Format = v
	}

	if v := os.Getenv(EnvDevMode); v != "" {
		c.Development.Enabled = parseBool(v)
		if c.Development.Enabled {
			c.Development.PrettyLogs = true
			c.Logging.Level = "debug"
			c.Logging.Format = "text"
		}
	}
	if v := os.Getenv(EnvDebug); v != "" {
		c.Development.DebugLogging = parseBool(v)
		if c.Development.DebugLogging {
			c.Logging.Level = "debug"
		}
	}

	if c.Kubernetes.Enabled {
		if v := os.Getenv(EnvPodName); v != "" {
			c.Kubernetes.PodName = v
		}
		if v := os.Getenv(EnvKubernetesNamespace); v != "" {
			c.Kubernetes.Namespace = v
		}
		// Try to read namespace from service account
		if c.Kubernetes.Namespace == "" {
			if data, err := os.ReadFile(filepath.Join(c.Kubernetes.ServiceAccountPath, "namespace")); err == nil {
				c.Kubernetes.Namespace = strings.TrimSpace(string(data))
			}
		}
	}

	return nil
}

// LoadFromFile loads configuration from a JSON, YAML or TOML file.
// File settings override environment variables but are overridden by functional options.
func (c *Config) LoadFromFile(path string) error {
	cleanPath := filepath.Clean(path)

	ext := filepath.Ext(cleanPath)
	switch ext {
	case ".json", ".yaml", ".yml", ".toml":
	default:
		return fmt.Errorf("unsupported config file extension %s: %w", ext, ErrInvalidConfiguration)
	}

	data, err := os.ReadFile(cleanPath) // nosec G304 -- extension is validated
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", cleanPath, err)
	}

	switch ext {
	case ".json":
		err = json.Unmarshal(data, c)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	case ".toml":
		err = toml.Unmarshal(data, c)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %v: %w", cleanPath, err, ErrInvalidConfiguration)
	}

	return nil
}

// Validate checks if the configuration is valid and returns an error if not.
//
// Validation rules:
//   - Name is required
//   - Management port must be between 1 and 65535
//   - Log level must be one of debug, info, warn, error
//   - Log format must be json or text
func (c *Config) Validate() error {
	if c.Name == "" {
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: "application name is required",
			Err:     ErrMissingConfiguration,
		}
	}

	if c.Management.Port < 1 || c.Management.Port > 65535 {
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: fmt.Sprintf("invalid management port: %d", c.Management.Port),
			Err:     ErrInvalidConfiguration,
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: fmt.Sprintf("invalid log level: %q", c.Logging.Level),
			Err:     ErrInvalidConfiguration,
		}
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return &FrameworkError{
			Op:      "Config.Validate",
			Kind:    "config",
			Message: fmt.Sprintf("invalid log format: %q", c.Logging.Format),
			Err:     ErrInvalidConfiguration,
		}
	}

	return nil
}

// Helper functions

// parseStringList splits a comma-separated string into a slice of strings.
// Whitespace is trimmed from each element, and empty strings are filtered out.
// Example: "a, b, c" -> ["a", "b", "c"]
func parseStringList(s string) []string {
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parseBool converts a string to a boolean value.
// Accepts: "true", "1", "yes", "on" (case-insensitive) as true.
// Everything else is false.
func parseBool(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// Functional Options

// WithName sets the application name.
func WithName(name string) Option {
	return func(c *Config) error {
		c.Name = name
		return nil
	}
}

// WithProfile sets the configuration profile (e.g. "development", "production").
func WithProfile(profile string) Option {
	return func(c *Config) error {
		c.Profile = profile
		return nil
	}
}

// WithExclusions hides the given capability tokens from detection.
// Repeated calls accumulate.
func WithExclusions(tokens ...string) Option {
	return func(c *Config) error {
		c.Exclusions = append(c.Exclusions, tokens...)
		return nil
	}
}

// WithSettingsFile sets the application settings file fed to the host.
func WithSettingsFile(path string) Option {
	return func(c *Config) error {
		c.SettingsFile = path
		return nil
	}
}

// WithManagementPort sets the port actuator endpoints are served on.
func WithManagementPort(port int) Option {
	return func(c *Config) error {
		if port < 1 || port > 65535 {
			return &FrameworkError{
				Op:      "WithManagementPort",
				Kind:    "config",
				Message: fmt.Sprintf("invalid management port: %d", port),
				Err:     ErrInvalidConfiguration,
			}
		}
		c.Management.Port = port
		return nil
	}
}

// WithLogLevel sets the minimum logging level: debug, info, warn or error.
func WithLogLevel(level string) Option {
	return func(c *Config) error {
		c.Logging.Level = level
		return nil
	}
}

// WithLogFormat sets the logging output format: json or text.
func WithLogFormat(format string) Option {
	return func(c *Config) error {
		c.Logging.Format = format
		return nil
	}
}

// WithConfigFile loads configuration from a file.
// File configuration is applied at the option's position, so later
// options can override file settings.
func WithConfigFile(path string) Option {
	return func(c *Config) error {
		return c.LoadFromFile(path)
	}
}

// WithDevelopmentMode enables development mode with developer-friendly defaults.
//
// WARNING: Never enable in production!
func WithDevelopmentMode(enabled bool) Option {
	return func(c *Config) error {
		c.Development.Enabled = enabled
		if enabled {
			c.Development.PrettyLogs = true
			c.Logging.Format = "text"
			c.Logging.Level = "debug"
		}
		return nil
	}
}

// NewConfig creates a new configuration with the provided options.
// Configuration is applied in the following order:
//  1. Default values from DefaultConfig()
//  2. Environment variables via LoadFromEnv()
//  3. Functional options (highest priority)
//  4. Validation via Validate()
func NewConfig(opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env config: %w", err)
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
