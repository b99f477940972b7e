package taxonomy_test

import (
	"testing"

	"github.com/vanderheijden86/dealtree/pkg/taxonomy"
	"github.com/vanderheijden86/dealtree/pkg/testutil"
)

func names(nodes []*taxonomy.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Name)
	}
	return out
}

func TestFilterShallowTestsRegionsOnly(t *testing.T) {
	tree := testutil.AsiaGeography().Tree()

	// Region match keeps only that region with all of its subregions.
	got := taxonomy.FilterShallow(tree.Roots, "east")
	testutil.AssertNames(t, names(got), []string{"Asia"})
	testutil.AssertNames(t, names(got[0].Children), []string{"East Asia"})
	testutil.AssertNames(t, names(got[0].Children[0].Children), []string{"China", "Japan"})

	// Continent names are not tested.
	got = taxonomy.FilterShallow(tree.Roots, "asia")
	testutil.AssertNames(t, names(got[0].Children), []string{"East Asia", "South Asia"})
	if len(taxonomy.FilterShallow(tree.Roots, "Asia ")) != 1 {
		t.Error("query should be trimmed")
	}

	// Subregion names are not tested either.
	if got := taxonomy.FilterShallow(tree.Roots, "japan"); len(got) != 0 {
		t.Errorf("expected no match for a subregion name, got %v", names(got))
	}
}

func TestFilterDeepRecurses(t *testing.T) {
	tree := testutil.TechIndustry().Tree()

	got := taxonomy.FilterDeep(tree.Roots, "saas")
	testutil.AssertNames(t, names(got), []string{"Tech"})
	testutil.AssertNames(t, names(got[0].Children), []string{"Software"})
	testutil.AssertNames(t, names(got[0].Children[0].Children), []string{"SaaS"})

	// Own-name match keeps every original child.
	got = taxonomy.FilterDeep(tree.Roots, "SOFT")
	testutil.AssertNames(t, names(got[0].Children[0].Children), []string{"SaaS", "Dev Tools"})

	got = taxonomy.FilterDeep(tree.Roots, "tech")
	testutil.AssertNames(t, names(got[0].Children), []string{"Software"})
	testutil.AssertNames(t, names(got[0].Children[0].Children), []string{"SaaS", "Dev Tools"})

	if got := taxonomy.FilterDeep(tree.Roots, "mining"); len(got) != 0 {
		t.Errorf("expected empty result, got %v", names(got))
	}
}

func TestFilterBlankQueryReturnsCopy(t *testing.T) {
	tree := testutil.AsiaGeography().Tree()
	got := taxonomy.FilterTree(tree, "  ")
	testutil.AssertNames(t, names(got), []string{"Asia"})
	if got[0] == tree.Roots[0] {
		t.Error("filter must not hand out the source nodes")
	}
	got[0].Children = nil
	if len(tree.Roots[0].Children) != 2 {
		t.Error("mutating the copy changed the source tree")
	}
}

func TestFilterCopyKeepsIDsAndLinks(t *testing.T) {
	tree := testutil.TechIndustry().Tree()
	got := taxonomy.FilterTree(tree, "dev")
	leaf := got[0].Children[0].Children[0]
	if leaf.ID != "dev-tools" || leaf.Level != 2 {
		t.Errorf("unexpected leaf copy %+v", leaf)
	}
	if leaf.Parent != got[0].Children[0] {
		t.Error("copy parent should point into the copy")
	}
}
