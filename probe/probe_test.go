package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/itsneelabh/autowire/capability"
)

func newProber(ids ...capability.ID) (*Prober, *capability.Registry) {
	reg := capability.NewRegistry()
	for _, id := range ids {
		reg.Register(id, "1.0.0")
	}
	return New(reg), reg
}

func TestIsLoadedHonoursExclusions(t *testing.T) {
	p, _ := newProber("a", "b")

	tests := []struct {
		name       string
		id         capability.ID
		exclusions Exclusions
		want       bool
	}{
		{"present", "a", NewExclusions(), true},
		{"absent", "c", NewExclusions(), false},
		{"present but excluded", "a", NewExclusions("a"), false},
		{"absent and excluded", "c", NewExclusions("c"), false},
		{"other excluded", "b", NewExclusions("a"), true},
		{"qualified exclusion", "a", NewExclusions("a@v1.0.0"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.IsLoaded(tt.id, tt.exclusions))
		})
	}
}

func TestExcludedNeverLoaded(t *testing.T) {
	all := capability.All()
	p, _ := newProber(all...)
	excl := NewExclusions(all...)

	for _, id := range all {
		assert.False(t, p.IsLoaded(id, excl), "%s", id)
	}
	assert.Equal(t, len(all), excl.Len())
}

func TestAnyLoaded(t *testing.T) {
	p, _ := newProber("a")
	none := NewExclusions()

	assert.True(t, p.AnyLoaded([]capability.ID{"x", "a"}, none))
	assert.False(t, p.AnyLoaded([]capability.ID{"x", "y"}, none))
	assert.False(t, p.AnyLoaded(nil, none))
	assert.False(t, p.AnyLoaded([]capability.ID{"x", "a"}, NewExclusions("a")))
}

func TestAllLoaded(t *testing.T) {
	p, _ := newProber("a", "b")
	none := NewExclusions()

	assert.True(t, p.AllLoaded([]capability.ID{"a", "b"}, none))
	assert.False(t, p.AllLoaded([]capability.ID{"a", "c"}, none))
	assert.False(t, p.AllLoaded(nil, none), "an empty list never fires")
	assert.False(t, p.AllLoaded([]capability.ID{"a", "b"}, NewExclusions("b")))
}

func TestProbeSeesModulesRegisteredMidRun(t *testing.T) {
	p, reg := newProber()
	none := NewExclusions()

	assert.False(t, p.IsLoaded("late", none))
	reg.Register("late", "1.0.0")
	assert.True(t, p.IsLoaded("late", none))
}

func TestPresent(t *testing.T) {
	p, _ := newProber("a", "c")
	got := p.Present([]capability.ID{"a", "b", "c"}, NewExclusions("c"))
	assert.Equal(t, []capability.ID{"a"}, got)
}
