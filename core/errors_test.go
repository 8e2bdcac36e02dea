package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"module not found", ErrModuleNotFound, true},
		{"cyclic resolution", ErrCyclicResolution, true},
		{"service not found", ErrServiceNotFound, true},
		{"wrapped", fmt.Errorf("resolve: %w", ErrModuleNotFound), true},
		{"framework error", NewFrameworkError("resolver.Resolve", "module", ErrCyclicResolution), true},
		{"other", ErrInvalidConfiguration, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNotFound(tt.err))
		})
	}
}

func TestIsConfigurationError(t *testing.T) {
	assert.True(t, IsConfigurationError(ErrInvalidConfiguration))
	assert.True(t, IsConfigurationError(ErrMissingConfiguration))
	assert.True(t, IsConfigurationError(ConfigError("connector.mysql", "mysql.url", "malformed url", ErrInvalidConfiguration)))
	assert.False(t, IsConfigurationError(ErrWiringFailed))
}

func TestIsWiringError(t *testing.T) {
	assert.True(t, IsWiringError(fmt.Errorf("rule: %w", ErrWiringFailed)))
	assert.False(t, IsWiringError(ErrModuleNotFound))
}

func TestIsStateError(t *testing.T) {
	assert.True(t, IsStateError(ErrAlreadyStarted))
	assert.True(t, IsStateError(ErrNotInitialized))
	assert.True(t, IsStateError(ErrAlreadyRegistered))
	assert.False(t, IsStateError(ErrRequestFailed))
}

func TestFrameworkErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *FrameworkError
		want string
	}{
		{
			name: "op with id",
			err:  &FrameworkError{Op: "resolver.Resolve", ID: "github.com/x/y", Err: ErrModuleNotFound},
			want: "resolver.Resolve [github.com/x/y]: module not found",
		},
		{
			name: "op without id",
			err:  &FrameworkError{Op: "host.Build", Err: ErrAlreadyStarted},
			want: "host.Build: already started",
		},
		{
			name: "message only",
			err:  &FrameworkError{Message: "bad things"},
			want: "bad things",
		},
		{
			name: "kind only",
			err:  &FrameworkError{Kind: "wiring"},
			want: "wiring error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestConfigErrorWrapping(t *testing.T) {
	err := ConfigError("connector.redis", "redis.url", "cannot parse url", ErrInvalidConfiguration)

	assert.Equal(t, "redis.url", err.ID)
	assert.Equal(t, "config", err.Kind)
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
	assert.Contains(t, err.Error(), "cannot parse url")

	var fe *FrameworkError
	assert.True(t, errors.As(fmt.Errorf("outer: %w", err), &fe))
}
