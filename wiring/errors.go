package wiring

import (
	"fmt"

	"github.com/itsneelabh/autowire/core"
)

// ActivationError reports a capability that was present but failed to
// activate. It matches core.ErrWiringFailed and the activator's error.
type ActivationError struct {
	Rule       string
	Capability string
	Err        error
}

func (e *ActivationError) Error() string {
	return fmt.Sprintf("wiring rule %s (%s): %v", e.Rule, e.Capability, e.Err)
}

func (e *ActivationError) Unwrap() []error {
	return []error{core.ErrWiringFailed, e.Err}
}
