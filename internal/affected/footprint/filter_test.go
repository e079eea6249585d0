package footprint

import "testing"

// TestFilter_Keep tests each drop rule.
func TestFilter_Keep(t *testing.T) {
	f := NewFilter([]string{"/usr/lib/rt", ""}, "")

	tests := []struct {
		path string
		want bool
	}{
		{"/home/user/app.ext", true},
		{"/usr/lib/rt/json.ext", false},
		{"/usr/lib/rtx/a.ext", false},
		{"/usr/lib/other.ext", true},
		{"", false},
		{"<string>", false},
		{"<autogenerated>", false},
	}

	for _, tt := range tests {
		if got := f.Keep(tt.path); got != tt.want {
			t.Errorf("Keep(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}

	if len(f.Exclude) != 1 {
		t.Errorf("NewFilter kept empty prefix: %q", f.Exclude)
	}
}

// TestFilter_Scenario tests the canonical user-code scenario.
func TestFilter_Scenario(t *testing.T) {
	f := NewFilter([]string{"/usr/lib/rt"}, "")

	got := f.Apply([]string{"/usr/lib/rt/json.ext", "/home/user/app.ext", "", "<string>"})
	if len(got) != 1 || got[0] != "/home/user/app.ext" {
		t.Errorf("Apply() = %v, want [/home/user/app.ext]", got)
	}
}

// TestFilter_CustomMarker tests a non-default synthetic marker.
func TestFilter_CustomMarker(t *testing.T) {
	f := Filter{SyntheticMarker: "@"}

	if f.Keep("@eval") {
		t.Error("custom marker not applied")
	}
	if !f.Keep("<looks-synthetic>") {
		t.Error("default marker applied despite override")
	}
}

// TestFilter_ApplySortsAndDedups tests output normalization.
func TestFilter_ApplySortsAndDedups(t *testing.T) {
	var f Filter

	got := f.Apply([]string{"/b", "/a", "/b", "", "/a"})
	want := []string{"/a", "/b"}
	if len(got) != len(want) {
		t.Fatalf("Apply() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Apply()[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if out := f.Apply(nil); len(out) != 0 {
		t.Errorf("Apply(nil) = %v, want empty", out)
	}
}
