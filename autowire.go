// Package autowire composes a service host from the capability modules
// linked into the binary. Import the modules you want, usually for their
// side effects, and let Compose wire them:
//
//	import (
//	    "github.com/itsneelabh/autowire"
//	    _ "github.com/itsneelabh/autowire/modules/actuator/kubernetes"
//	    _ "github.com/itsneelabh/autowire/modules/configserver"
//	    _ "github.com/itsneelabh/autowire/modules/discovery/web"
//	)
//
//	func main() {
//	    if err := autowire.Run(ctx, core.WithName("orders")); err != nil {
//	        log.Fatal(err)
//	    }
//	}
package autowire

import (
	"context"
	"fmt"

	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/core"
	"github.com/itsneelabh/autowire/host"
	"github.com/itsneelabh/autowire/wiring"
)

// Re-exported types for callers that only need the entry points.
type (
	Config      = core.Config
	Option      = core.Option
	Logger      = core.Logger
	Builder     = host.Builder
	HostBuilder = host.HostBuilder
	Host        = host.Host
	Report      = wiring.Report
)

// Composition is a builder with every present capability wired in.
type Composition struct {
	Config  *core.Config
	Builder *host.HostBuilder
	Report  *wiring.Report
	Logger  core.Logger
}

// Compose creates a host builder from the framework configuration and runs
// the wiring pass over it.
func Compose(opts ...core.Option) (*Composition, error) {
	cfg, err := core.NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	return ComposeConfig(cfg)
}

// ComposeConfig is Compose for an already validated configuration.
func ComposeConfig(cfg *core.Config) (*Composition, error) {
	logger := core.NewProductionLogger(cfg)
	if cl, ok := logger.(core.ComponentAwareLogger); ok {
		logger = cl.WithComponent("autowire")
	}

	b := host.NewHostBuilder(host.WithConfig(cfg), host.WithLogger(logger))
	report, err := wiring.New().Compose(b, Exclusions(cfg.Exclusions), logger)
	if err != nil {
		return nil, err
	}
	return &Composition{Config: cfg, Builder: b, Report: report, Logger: logger}, nil
}

// Exclusions normalizes configured tokens into capability identities.
func Exclusions(tokens []string) []capability.ID {
	ids := make([]capability.ID, 0, len(tokens))
	for _, t := range tokens {
		if id := capability.Normalize(t); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Run composes, builds and runs a host until ctx ends.
func Run(ctx context.Context, opts ...core.Option) error {
	c, err := Compose(opts...)
	if err != nil {
		return err
	}
	h, err := c.Builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("failed to build host: %w", err)
	}
	return h.Run(ctx)
}
