package resolver

import (
	"strings"

	"github.com/itsneelabh/autowire/capability"
)

// isSatellite reports whether requested names a resource-only satellite
// module. Satellites never carry code, so a request for one is routed back
// to the requester instead of being loaded.
//
// A request is a satellite request when the bare name ends in ".resources",
// contains a "/resources" path segment, or carries a non-neutral culture or
// locale qualifier.
func isSatellite(requested string, name capability.ID) bool {
	bare := strings.ToLower(string(name))
	if strings.HasSuffix(bare, ".resources") {
		return true
	}
	if strings.HasSuffix(bare, "/resources") || strings.Contains(bare, "/resources/") {
		return true
	}
	for _, key := range []string{"culture", "locale"} {
		if v, ok := qualifier(requested, key); ok && !isNeutral(v) {
			return true
		}
	}
	return false
}

func isNeutral(locale string) bool {
	switch strings.ToLower(strings.TrimSpace(locale)) {
	case "", "neutral", "invariant":
		return true
	}
	return false
}
