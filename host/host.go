package host

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/itsneelabh/autowire/core"
)

// Host is a built composition: settings, services, background tasks and
// health contributors. Background tasks are owned by the host and run by Run.
type Host struct {
	name         string
	logger       core.Logger
	sources      []ConfigSource
	tasks        []BackgroundTask
	contributors []HealthContributor
	services     *ServiceProvider

	mu       sync.RWMutex
	settings *Settings
	running  bool
}

// Name returns the application name.
func (h *Host) Name() string { return h.name }

// Logger returns the host logger.
func (h *Host) Logger() core.Logger { return h.logger }

// Services returns the service provider.
func (h *Host) Services() *ServiceProvider { return h.services }

// Settings returns the current settings. Reload replaces them.
func (h *Host) Settings() *Settings {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.settings
}

// Tasks returns background task names in registration order.
func (h *Host) Tasks() []string {
	names := make([]string, len(h.tasks))
	for i, t := range h.tasks {
		names[i] = t.Name()
	}
	return names
}

// Reload loads every configuration source again and swaps the settings.
// The previous settings stay in place when a source fails.
func (h *Host) Reload(ctx context.Context) error {
	settings, err := loadSources(ctx, h.sources)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.settings = settings
	h.mu.Unlock()

	h.logger.Debug("Settings reloaded", map[string]interface{}{
		"sources": len(h.sources),
		"keys":    len(settings.AllKeys()),
	})
	return nil
}

// HealthContributors returns contributor IDs, sorted.
func (h *Host) HealthContributors() []string {
	return sortedIDs(h.contributors)
}

// Health asks every contributor and aggregates the results.
func (h *Host) Health(ctx context.Context) HealthReport {
	return h.HealthOf(ctx, h.HealthContributors()...)
}

// HealthOf asks only the contributors named by ids. Unknown IDs are skipped.
func (h *Host) HealthOf(ctx context.Context, ids ...string) HealthReport {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	results := make(map[string]HealthResult, len(ids))
	for _, c := range h.contributors {
		if wanted[c.ID()] {
			results[c.ID()] = c.Health(ctx, h)
		}
	}
	return HealthReport{
		Status:     aggregate(results),
		Components: results,
		CheckedAt:  time.Now().UTC(),
	}
}

// Run starts every background task and blocks until ctx ends or a task
// fails. Services are closed before Run returns.
func (h *Host) Run(ctx context.Context) error {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return core.NewFrameworkError("host.Run", "host", core.ErrAlreadyStarted)
	}
	h.running = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		h.running = false
		h.mu.Unlock()
	}()

	h.logger.Info("Starting host", map[string]interface{}{
		"name":     h.name,
		"tasks":    len(h.tasks),
		"services": len(h.services.Names()),
	})

	g, gctx := errgroup.WithContext(ctx)
	// Holds the group open until ctx ends or a task fails, even when there
	// are no tasks or every task returns early.
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	for _, task := range h.tasks {
		task := task
		g.Go(func() error {
			h.logger.Debug("Background task started", map[string]interface{}{"task": task.Name()})
			err := task.Run(gctx, h)
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, ctx.Err()) {
				h.logger.Error("Background task failed", map[string]interface{}{
					"task":  task.Name(),
					"error": err.Error(),
				})
				return fmt.Errorf("task %s: %w", task.Name(), err)
			}
			return nil
		})
	}

	err := g.Wait()
	if closeErr := h.services.Close(); closeErr != nil {
		h.logger.Warn("Failed to close services", map[string]interface{}{"error": closeErr.Error()})
	}

	h.logger.Info("Host stopped", map[string]interface{}{"name": h.name})
	return err
}

// loadSources merges sources in order, handing each the merge so far.
func loadSources(ctx context.Context, sources []ConfigSource) (*Settings, error) {
	settings := NewSettings()
	for _, src := range sources {
		values, err := src.Load(ctx, settings)
		if err != nil {
			return nil, fmt.Errorf("load config source %s: %w", src.Name(), err)
		}
		if err := settings.merge(values); err != nil {
			return nil, fmt.Errorf("merge config source %s: %w", src.Name(), err)
		}
	}
	return settings, nil
}
