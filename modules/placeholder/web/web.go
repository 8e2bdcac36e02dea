// Package web is the web-integrated variant of the placeholder resolver. It
// adds no behavior of its own: importing it links modules/placeholder and
// registers the "/web" capability token, and the placeholder rule wires the
// same resolver whichever token is present.
package web

import (
	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/core"

	_ "github.com/itsneelabh/autowire/modules/placeholder"
)

func init() {
	capability.Register(capability.PlaceholderCore, core.Version)
}
