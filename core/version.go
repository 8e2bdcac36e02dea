package core

// Version is the framework version recorded by every module that registers
// a capability token. It is overridden at build time with
// -ldflags "-X github.com/itsneelabh/autowire/core.Version=..."
var Version = "0.4.0"
