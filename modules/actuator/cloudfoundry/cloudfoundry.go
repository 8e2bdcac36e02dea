// Package cloudfoundry selects the Cloud Foundry management endpoint set,
// served under /cloudfoundryapplication for Apps Manager.
package cloudfoundry

import (
	"github.com/itsneelabh/autowire/capability"
	"github.com/itsneelabh/autowire/core"

	_ "github.com/itsneelabh/autowire/modules/actuator"
)

func init() {
	capability.Register(capability.ManagementCloudFoundry, core.Version)
}
