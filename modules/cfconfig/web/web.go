// Package web is the web-integrated variant of the Cloud Foundry
// configuration. It adds no behavior of its own: importing it links
// modules/cfconfig and registers the "/web" capability token, and the
// cloud-foundry rule wires the same source whichever token is present.
package web

import (
	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/core"

	_ "github.com/itsneelabh/autowire/modules/cfconfig"
)

func init() {
	capability.Register(capability.CloudFoundryCore, core.Version)
}
