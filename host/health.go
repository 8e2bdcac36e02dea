package host

import (
	"context"
	"sort"
	"time"

	"github.com/itsneelabh/autowire/core"
)

// HealthContributor reports the health of one component.
type HealthContributor interface {
	ID() string
	Health(ctx context.Context, h *Host) HealthResult
}

// HealthResult is one contributor's report.
type HealthResult struct {
	Status  core.HealthStatus      `json:"status"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthReport aggregates every contributor. Status is the worst component
// status; a host without contributors is healthy.
type HealthReport struct {
	Status     core.HealthStatus       `json:"status"`
	Components map[string]HealthResult `json:"components,omitempty"`
	CheckedAt  time.Time               `json:"checked_at"`
}

type funcContributor struct {
	id    string
	check func(ctx context.Context, h *Host) HealthResult
}

func (c *funcContributor) ID() string { return c.id }

func (c *funcContributor) Health(ctx context.Context, h *Host) HealthResult {
	return c.check(ctx, h)
}

// NewHealthContributor adapts a function to HealthContributor.
func NewHealthContributor(id string, check func(ctx context.Context, h *Host) HealthResult) HealthContributor {
	return &funcContributor{id: id, check: check}
}

// Healthy builds a healthy result with optional details.
func Healthy(details map[string]interface{}) HealthResult {
	return HealthResult{Status: core.HealthHealthy, Details: details}
}

// Unhealthy builds an unhealthy result carrying err.
func Unhealthy(err error) HealthResult {
	details := map[string]interface{}{}
	if err != nil {
		details["error"] = err.Error()
	}
	return HealthResult{Status: core.HealthUnhealthy, Details: details}
}

func aggregate(results map[string]HealthResult) core.HealthStatus {
	status := core.HealthHealthy
	for _, r := range results {
		if r.Status.Severity() > status.Severity() {
			status = r.Status
		}
	}
	return status
}

func sortedIDs(contributors []HealthContributor) []string {
	ids := make([]string, 0, len(contributors))
	for _, c := range contributors {
		ids = append(ids, c.ID())
	}
	sort.Strings(ids)
	return ids
}
