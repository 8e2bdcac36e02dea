// Package all links every autowire module, with the net/http integrated
// variants where a module has one. Management endpoints use the full set;
// import modules/actuator/kubernetes or modules/actuator/cloudfoundry
// alongside to select a platform set.
//
// Connectors built on a client library are left out: import
// modules/connector/redis or modules/connector/nats to enable them.
package all

import (
	_ "github.com/itsneelabh/autowire/modules/actuator"
	_ "github.com/itsneelabh/autowire/modules/cfconfig/web"
	_ "github.com/itsneelabh/autowire/modules/cfidentity"
	_ "github.com/itsneelabh/autowire/modules/configserver/web"
	_ "github.com/itsneelabh/autowire/modules/connector"
	_ "github.com/itsneelabh/autowire/modules/discovery/web"
	_ "github.com/itsneelabh/autowire/modules/dynlog"
	_ "github.com/itsneelabh/autowire/modules/k8sconfig/web"
	_ "github.com/itsneelabh/autowire/modules/placeholder/web"
	_ "github.com/itsneelabh/autowire/modules/randomvalue"
	_ "github.com/itsneelabh/autowire/modules/tracing/web"
)
