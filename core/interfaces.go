package core

import (
	"context"
	"time"
)

// Logger interface - minimal logging interface
type Logger interface {
	Info(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Debug(msg string, fields map[string]interface{})
}

// HealthStatus for services and health contributors
type HealthStatus string

const (
	HealthHealthy      HealthStatus = "healthy"
	HealthDegraded     HealthStatus = "degraded"
	HealthUnhealthy    HealthStatus = "unhealthy"
	HealthOutOfService HealthStatus = "out_of_service"
	HealthUnknown      HealthStatus = "unknown"
)

// Severity orders health statuses so aggregates can report the worst one.
// Unknown sorts below healthy: a contributor that cannot tell does not
// degrade the aggregate.
func (s HealthStatus) Severity() int {
	switch s {
	case HealthUnknown:
		return 0
	case HealthHealthy:
		return 1
	case HealthDegraded:
		return 2
	case HealthOutOfService:
		return 3
	case HealthUnhealthy:
		return 4
	default:
		return 0
	}
}

// Memory interface for key/value state storage
type Memory interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Default no-op implementations

// NoOpLogger provides a no-op logger implementation
type NoOpLogger struct{}

func (n *NoOpLogger) Info(msg string, fields map[string]interface{})  {}
func (n *NoOpLogger) Error(msg string, fields map[string]interface{}) {}
func (n *NoOpLogger) Warn(msg string, fields map[string]interface{})  {}
func (n *NoOpLogger) Debug(msg string, fields map[string]interface{}) {}

// LoggerOrNoOp returns logger, or a NoOpLogger when logger is nil.
func LoggerOrNoOp(logger Logger) Logger {
	if logger == nil {
		return &NoOpLogger{}
	}
	return logger
}
