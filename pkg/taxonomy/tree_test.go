package taxonomy_test

import (
	"strings"
	"testing"

	"github.com/vanderheijden86/dealtree/pkg/taxonomy"
	"github.com/vanderheijden86/dealtree/pkg/testutil"
)

func TestGeoDataTreeLinksLevelsAndParents(t *testing.T) {
	tree := testutil.AsiaGeography().Tree()

	if tree.Kind != taxonomy.KindGeography || tree.Filter != taxonomy.ShallowFilter {
		t.Fatalf("unexpected kind/filter: %s/%v", tree.Kind, tree.Filter)
	}
	if tree.Depth() != 3 {
		t.Fatalf("expected depth 3, got %d", tree.Depth())
	}
	if tree.Len() != 6 {
		t.Errorf("expected 6 nodes, got %d", tree.Len())
	}

	jp, ok := tree.Node("jp")
	if !ok {
		t.Fatal("jp missing")
	}
	if jp.Level != 2 || jp.Parent == nil || jp.Parent.ID != "east-asia" {
		t.Errorf("jp linked wrong: level=%d parent=%v", jp.Level, jp.Parent)
	}
	anc := jp.Ancestors()
	if len(anc) != 2 || anc[0].ID != "asia" || anc[1].ID != "east-asia" {
		t.Errorf("unexpected ancestors %v", anc)
	}
	if got := jp.Path(); got != "Asia / East Asia / Japan" {
		t.Errorf("unexpected path %q", got)
	}
}

func TestIndustryTreeDropsSubIndustries(t *testing.T) {
	ind := taxonomy.IndustryData{Sectors: []taxonomy.Sector{
		{ID: "tech", Name: "Tech", IndustryGroups: []taxonomy.IndustryGroup{
			{ID: "sw", Name: "Software", Industries: []taxonomy.Industry{
				{ID: "app", Name: "Application Software", SubIndustries: []taxonomy.SubIndustry{{ID: "saas", Name: "SaaS"}}},
			}},
		}},
	}}
	tree := ind.Tree()
	app, _ := tree.Node("app")
	if !app.IsLeaf() {
		t.Error("industries are selection leaves")
	}
	if _, ok := tree.Node("saas"); ok {
		t.Error("sub-industries must not be indexed")
	}
}

func TestNewTreeCutsDeeperNodes(t *testing.T) {
	roots := []*taxonomy.Node{{ID: "a", Name: "A", Children: []*taxonomy.Node{
		{ID: "b", Name: "B", Children: []*taxonomy.Node{{ID: "c", Name: "C"}}},
	}}}
	tree := taxonomy.NewTree(taxonomy.KindIndustry, []string{"one", "two"}, taxonomy.DeepFilter, roots)
	if tree.Len() != 2 {
		t.Errorf("expected 2 nodes, got %d", tree.Len())
	}
	b, _ := tree.Node("b")
	if !b.IsLeaf() {
		t.Error("b should be cut to a leaf")
	}
}

func TestFindByNameSearchesLevelOrder(t *testing.T) {
	roots := []*taxonomy.Node{
		{ID: "x", Name: "X", Children: []*taxonomy.Node{{ID: "dup-deep", Name: "Dup"}}},
		{ID: "dup-top", Name: "Dup"},
	}
	tree := taxonomy.NewTree(taxonomy.KindIndustry, []string{"one", "two"}, taxonomy.DeepFilter, roots)

	if n := tree.FindByName("Dup"); n == nil || n.ID != "dup-top" {
		t.Errorf("expected top-level match first, got %v", n)
	}
	if tree.FindByName("missing") != nil {
		t.Error("expected nil for unknown name")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name         string
		roots        []*taxonomy.Node
		wantErr      string
		wantWarnings int
	}{
		{
			name:  "clean",
			roots: []*taxonomy.Node{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}},
		},
		{
			name:    "duplicate id",
			roots:   []*taxonomy.Node{{ID: "a", Name: "A"}, {ID: "a", Name: "B"}},
			wantErr: `duplicate node id "a"`,
		},
		{
			name:    "empty name",
			roots:   []*taxonomy.Node{{ID: "a", Name: " "}},
			wantErr: "empty name",
		},
		{
			name:    "empty id",
			roots:   []*taxonomy.Node{{ID: "", Name: "A"}},
			wantErr: "empty id",
		},
		{
			name: "duplicate name warns",
			roots: []*taxonomy.Node{
				{ID: "a", Name: "Retail", Children: []*taxonomy.Node{{ID: "b", Name: "Retail"}}},
			},
			wantWarnings: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tree := taxonomy.NewTree(taxonomy.KindIndustry, []string{"one", "two"}, taxonomy.DeepFilter, tt.roots)
			warnings, err := tree.Validate()
			if tt.wantErr == "" && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != "" && (err == nil || !strings.Contains(err.Error(), tt.wantErr)) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
			if len(warnings) != tt.wantWarnings {
				t.Errorf("expected %d warnings, got %v", tt.wantWarnings, warnings)
			}
		})
	}
}

func TestEmbeddedCatalogsAreValid(t *testing.T) {
	for _, tree := range []*taxonomy.Tree{
		taxonomy.DefaultGeoData().Tree(),
		taxonomy.DefaultIndustryData().Tree(),
	} {
		warnings, err := tree.Validate()
		if err != nil {
			t.Errorf("%s catalog invalid: %v", tree.Kind, err)
		}
		if len(warnings) != 0 {
			t.Errorf("%s catalog has ambiguous names: %v", tree.Kind, warnings)
		}
		if len(tree.Roots) == 0 {
			t.Errorf("%s catalog is empty", tree.Kind)
		}
	}
}

func TestParseKind(t *testing.T) {
	for in, want := range map[string]taxonomy.Kind{
		"geography": taxonomy.KindGeography,
		"GEO":       taxonomy.KindGeography,
		"industry":  taxonomy.KindIndustry,
		" sectors ": taxonomy.KindIndustry,
	} {
		got, err := taxonomy.ParseKind(in)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := taxonomy.ParseKind("planets"); err == nil {
		t.Error("expected error for unknown catalog")
	}
}
