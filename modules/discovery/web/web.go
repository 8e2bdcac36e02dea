// Package web marks the net/http integrated discovery client as present.
package web

import (
	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/core"

	_ "github.com/itsneelabh/autowire/modules/discovery"
)

func init() {
	capability.Register(capability.DiscoveryClientCore, core.Version)
}
