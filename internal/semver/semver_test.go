package semver

import "testing"

func version(t *testing.T, raw string) Version {
	t.Helper()
	v, err := ParseVersion(raw)
	if err != nil {
		t.Fatalf("ParseVersion(%q): %v", raw, err)
	}
	return v
}

func TestParseVersionLenient(t *testing.T) {
	tests := map[string]string{
		"v1.2.3":           "1.2.3",
		"4.2.0.0":          "4.2.0",
		" 2.0.1 ":          "2.0.1",
		"1.0.0.7-beta.1":   "1.0.0-beta.1",
		"v0.31.2+incompat": "0.31.2+incompat",
	}
	for raw, want := range tests {
		if got := version(t, raw); Compare(got, version(t, want)) != 0 {
			t.Fatalf("ParseVersion(%q) = %s, want %s", raw, got, want)
		}
	}

	if _, err := ParseVersion("(devel)"); err == nil {
		t.Fatalf("expected (devel) to be rejected")
	}
}

func TestCompatible(t *testing.T) {
	c := Compatible(version(t, "1.4.0"))

	for _, raw := range []string{"1.4.0", "v1.7.2", "1.9.9.1"} {
		if !Satisfies(version(t, raw), c) {
			t.Fatalf("expected %s to be compatible with 1.4.0", raw)
		}
	}
	for _, raw := range []string{"1.3.9", "2.0.0"} {
		if Satisfies(version(t, raw), c) {
			t.Fatalf("expected %s to be incompatible with 1.4.0", raw)
		}
	}
	if Satisfies(Version{}, c) {
		t.Fatalf("expected zero version to satisfy nothing")
	}
	if Satisfies(version(t, "1.4.0"), Compatible(Version{})) {
		t.Fatalf("expected constraint of zero version to match nothing")
	}
}

func TestMaxSatisfyingPicksHighestCompatibleBuild(t *testing.T) {
	builds := []Version{
		version(t, "4.1.0"),
		version(t, "4.3.2.0"),
		{},
		version(t, "5.0.0"),
		version(t, "4.2.0"),
	}

	best, ok := MaxSatisfying(Compatible(version(t, "4.2.0")), builds)
	if !ok {
		t.Fatalf("expected a compatible build")
	}
	if best.String() != "4.3.2" {
		t.Fatalf("expected best=4.3.2, got %s", best)
	}

	if _, ok := MaxSatisfying(Compatible(version(t, "6.0.0")), builds); ok {
		t.Fatalf("expected no build compatible with 6.0.0")
	}
}

func TestCompareZero(t *testing.T) {
	if Compare(Version{}, Version{}) != 0 {
		t.Fatalf("expected zero versions to compare equal")
	}
	if Compare(Version{}, version(t, "0.0.1")) != -1 {
		t.Fatalf("expected zero version to sort first")
	}
	if !(Version{}).IsZero() {
		t.Fatalf("expected IsZero")
	}
}
