// Package web marks the net/http integrated tracing module as present.
package web

import (
	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/core"

	_ "github.com/itsneelabh/autowire/modules/tracing"
)

func init() {
	capability.Register(capability.TracingCore, core.Version)
}
