package taxonomy_test

import (
	"slices"
	"testing"

	"github.com/vanderheijden86/dealtree/pkg/taxonomy"
	"github.com/vanderheijden86/dealtree/pkg/testutil"
)

func TestCovers(t *testing.T) {
	tree := testutil.AsiaGeography().Tree()

	tests := []struct {
		selected []string
		name     string
		distance int
		ok       bool
	}{
		{[]string{"Japan"}, "Japan", 0, true},
		{[]string{"East Asia"}, "Japan", 1, true},
		{[]string{"Asia"}, "Japan", 2, true},
		{[]string{"China", "South Asia"}, "Japan", 0, false},
		{[]string{"Japan"}, "East Asia", 0, false},
		{[]string{"Asia"}, "South Asia", 1, true},
		{[]string{"Legacy Land"}, "Legacy Land", 0, true},
		{nil, "Japan", 0, false},
	}
	for _, tt := range tests {
		d, ok := taxonomy.Covers(tree, tt.selected, tt.name)
		if ok != tt.ok || (ok && d != tt.distance) {
			t.Errorf("Covers(%v, %q) = %d, %v; want %d, %v", tt.selected, tt.name, d, ok, tt.distance, tt.ok)
		}
	}
}

func TestSuggest(t *testing.T) {
	tree := taxonomy.DefaultGeoData().Tree()

	got := taxonomy.Suggest(tree, "Japn", 5)
	if !slices.Contains(got, "Japan") {
		t.Errorf("expected Japan among suggestions, got %v", got)
	}
	if len(taxonomy.Suggest(tree, "a", 2)) > 2 {
		t.Error("limit not applied")
	}
	if taxonomy.Suggest(tree, "", 3) != nil {
		t.Error("empty name should yield nothing")
	}
}
