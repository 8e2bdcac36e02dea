// Package kubernetes selects the Kubernetes management endpoint set: probes
// over HTTP and a gRPC health server.
package kubernetes

import (
	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/core"

	_ "github.com/itsneelabh/autowire/modules/actuator"
)

func init() {
	capability.Register(capability.ManagementKubernetes, core.Version)
}
