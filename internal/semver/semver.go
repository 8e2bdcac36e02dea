// Package semver provides the tolerant version matching used when a module
// is requested at one version and a different build is linked in.
package semver

import (
	"fmt"
	"strings"

	mm "github.com/Masterminds/semver/v3"
)

// Version is a semantic version.
//
// This is a thin wrapper around github.com/Masterminds/semver/v3.
type Version struct {
	v *mm.Version
}

// Constraint is a semantic version constraint. The only constraint the
// resolver builds is the caret range returned by Compatible.
type Constraint struct {
	c *mm.Constraints
}

// ParseVersion parses raw leniently: a leading "v" is accepted, and
// four-part versions such as "4.2.0.0" are truncated to major.minor.patch.
func ParseVersion(raw string) (Version, error) {
	v, err := mm.NewVersion(normalize(raw))
	if err != nil {
		return Version{}, fmt.Errorf("semver: parse version %q: %w", raw, err)
	}
	return Version{v: v}, nil
}

// Compatible returns the caret constraint for v: same major version, not older.
func Compatible(v Version) Constraint {
	if v.v == nil {
		return Constraint{}
	}
	c, err := mm.NewConstraint("^" + v.v.String())
	if err != nil {
		return Constraint{}
	}
	return Constraint{c: c}
}

func Satisfies(v Version, c Constraint) bool {
	if v.v == nil || c.c == nil {
		return false
	}
	return c.c.Check(v.v)
}

// Compare compares a and b, returning:
// -1 if a < b
//
//	0 if a == b
//	1 if a > b
//
// The zero Version sorts below every parsed one.
func Compare(a, b Version) int {
	if a.v == nil && b.v == nil {
		return 0
	}
	if a.v == nil {
		return -1
	}
	if b.v == nil {
		return 1
	}
	return a.v.Compare(b.v)
}

// MaxSatisfying returns the highest version in candidates that satisfies c.
//
// If multiple versions are equal, the first encountered wins.
func MaxSatisfying(c Constraint, candidates []Version) (Version, bool) {
	var best Version
	found := false
	for _, candidate := range candidates {
		if !Satisfies(candidate, c) {
			continue
		}
		if !found || Compare(candidate, best) > 0 {
			best = candidate
			found = true
		}
	}
	return best, found
}

// IsZero reports whether v was never parsed.
func (v Version) IsZero() bool {
	return v.v == nil
}

func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.v.Original()
}

func normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	core, suffix := raw, ""
	if i := strings.IndexAny(raw, "-+"); i >= 0 {
		core, suffix = raw[:i], raw[i:]
	}
	if parts := strings.Split(core, "."); len(parts) > 3 {
		core = strings.Join(parts[:3], ".")
	}
	return core + suffix
}
