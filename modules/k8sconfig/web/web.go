// Package web is the web-integrated variant of the Kubernetes
// configuration. It adds no behavior of its own: importing it links
// modules/k8sconfig and registers the "/web" capability token, and the
// kubernetes rule wires the same source whichever token is present.
package web

import (
	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/core"

	_ "github.com/itsneelabh/autowire/modules/k8sconfig"
)

func init() {
	capability.Register(capability.KubernetesCore, core.Version)
}
