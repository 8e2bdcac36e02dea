package host

import (
	"context"
	"math/rand"
	"time"
)

// BackgroundTask runs for the lifetime of a host. Run should return when ctx
// is cancelled; a non-nil error other than the context's stops the host.
type BackgroundTask interface {
	Name() string
	Run(ctx context.Context, h *Host) error
}

type funcTask struct {
	name string
	run  func(ctx context.Context, h *Host) error
}

func (t *funcTask) Name() string                           { return t.name }
func (t *funcTask) Run(ctx context.Context, h *Host) error { return t.run(ctx, h) }

// NewTask adapts a function to BackgroundTask.
func NewTask(name string, run func(ctx context.Context, h *Host) error) BackgroundTask {
	return &funcTask{name: name, run: run}
}

// NewPeriodicTask runs tick every interval until the context ends. Each wait
// is jittered by up to 10% so replicas do not tick in lockstep. Tick errors
// are logged and do not stop the task.
func NewPeriodicTask(name string, interval time.Duration, tick func(ctx context.Context, h *Host) error) BackgroundTask {
	return NewTask(name, func(ctx context.Context, h *Host) error {
		logger := h.Logger()
		for {
			wait := interval
			if jitter := int64(interval / 10); jitter > 0 {
				wait += time.Duration(rand.Int63n(jitter)) // #nosec G404 -- jitter only
			}

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil
			case <-timer.C:
			}

			if err := tick(ctx, h); err != nil && ctx.Err() == nil {
				logger.Warn("Background task tick failed", map[string]interface{}{
					"task":  name,
					"error": err.Error(),
				})
			}
		}
	})
}
