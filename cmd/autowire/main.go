// Command autowire inspects and runs a host composed from every capability
// module in the framework.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/itsneelabh/autowire/modules/all"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
