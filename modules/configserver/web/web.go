// Package web is the web-integrated variant of the config server client. It
// adds no behavior of its own: importing it links modules/configserver and
// registers the "/web" capability token, and the config-server rule wires
// the same client whichever of the two tokens is present.
package web

import (
	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/core"

	_ "github.com/itsneelabh/autowire/modules/configserver"
)

func init() {
	capability.Register(capability.ConfigServerCore, core.Version)
}
