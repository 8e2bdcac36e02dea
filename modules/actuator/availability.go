package actuator

import (
	"context"
	"sync"

	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
)

// LivenessState says whether the application can recover without a restart.
type LivenessState string

// ReadinessState says whether the application accepts traffic.
type ReadinessState string

const (
	LivenessCorrect LivenessState = "CORRECT"
	LivenessBroken  LivenessState = "BROKEN"

	ReadinessAccepting ReadinessState = "ACCEPTING_TRAFFIC"
	ReadinessRefusing  ReadinessState = "REFUSING_TRAFFIC"
)

// Health contributor IDs of the probe states.
const (
	LivenessID  = "liveness"
	ReadinessID = "readiness"
)

// Availability tracks the probe states. The management server marks the
// application ready once it listens and refusing once it shuts down.
type Availability struct {
	mu        sync.RWMutex
	liveness  LivenessState
	readiness ReadinessState
}

// NewAvailability starts live and not yet ready.
func NewAvailability() *Availability {
	return &Availability{liveness: LivenessCorrect, readiness: ReadinessRefusing}
}

func (a *Availability) Liveness() LivenessState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.liveness
}

func (a *Availability) Readiness() ReadinessState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.readiness
}

func (a *Availability) SetLiveness(s LivenessState) {
	a.mu.Lock()
	a.liveness = s
	a.mu.Unlock()
}

func (a *Availability) SetReadiness(s ReadinessState) {
	a.mu.Lock()
	a.readiness = s
	a.mu.Unlock()
}

func livenessContributor() host.HealthContributor {
	return host.NewHealthContributor(LivenessID, func(ctx context.Context, h *host.Host) host.HealthResult {
		a, err := host.Resolve[*Availability](ctx, h.Services(), AvailabilityName)
		if err != nil {
			return host.Unhealthy(err)
		}
		state := a.Liveness()
		status := core.HealthHealthy
		if state == LivenessBroken {
			status = core.HealthUnhealthy
		}
		return host.HealthResult{Status: status, Details: map[string]interface{}{"state": state}}
	})
}

func readinessContributor() host.HealthContributor {
	return host.NewHealthContributor(ReadinessID, func(ctx context.Context, h *host.Host) host.HealthResult {
		a, err := host.Resolve[*Availability](ctx, h.Services(), AvailabilityName)
		if err != nil {
			return host.Unhealthy(err)
		}
		state := a.Readiness()
		status := core.HealthHealthy
		if state == ReadinessRefusing {
			status = core.HealthOutOfService
		}
		return host.HealthResult{Status: status, Details: map[string]interface{}{"state": state}}
	})
}
