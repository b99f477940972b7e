package selection_test

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/dealtree/pkg/selection"
	"github.com/vanderheijden86/dealtree/pkg/taxonomy"
	"github.com/vanderheijden86/dealtree/pkg/testutil"
)

// rapidTree draws a three-level tree with unique names.
func rapidTree(t *rapid.T) *taxonomy.Tree {
	return testutil.GenerateTree(testutil.TreeConfig{
		Seed:        rapid.Int64().Draw(t, "seed"),
		Roots:       rapid.IntRange(1, 4).Draw(t, "roots"),
		MaxChildren: rapid.IntRange(0, 4).Draw(t, "maxChildren"),
		Depth:       3,
	})
}

// rapidNode draws any node of the tree.
func rapidNode(t *rapid.T, tree *taxonomy.Tree, label string) *taxonomy.Node {
	var all []*taxonomy.Node
	for level := 0; level < tree.Depth(); level++ {
		all = append(all, tree.Level(level)...)
	}
	return rapid.SampledFrom(all).Draw(t, label)
}

// randomSelector applies a random sequence of toggles to a fresh selector.
func randomSelector(t *rapid.T) *selection.Selector {
	tree := rapidTree(t)
	sel := selection.New(tree, nil)
	steps := rapid.IntRange(0, 12).Draw(t, "steps")
	for i := 0; i < steps; i++ {
		n := rapidNode(t, tree, "toggle")
		sel.Toggle(n, n.Ancestors())
	}
	return sel
}

func TestPropertyToggleCascadesDown(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sel := randomSelector(t)
		n := rapidNode(t, sel.Tree(), "target")
		got := sel.Toggle(n, n.Ancestors())
		testutil.AssertSubtree(t, sel, n, got)
	})
}

func TestPropertyParentsMatchChildren(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sel := randomSelector(t)
		testutil.AssertParentsConsistent(t, sel)

		n := rapidNode(t, sel.Tree(), "remove")
		sel.RemoveByName(n.Name)
		testutil.AssertParentsConsistent(t, sel)
	})
}

func TestPropertySerializeIsMinimal(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sel := randomSelector(t)
		out := make(map[string]bool)
		for _, name := range sel.Serialize() {
			if out[name] {
				t.Fatalf("name %q emitted twice", name)
			}
			out[name] = true
		}

		sel.Tree().Walk(func(n *taxonomy.Node) bool {
			if sel.Mark(n.ID) != selection.MarkAll {
				return true
			}
			// Either n itself or one of its ancestors was emitted, and
			// nothing below it.
			covered := out[n.Name]
			for _, a := range n.Ancestors() {
				covered = covered || out[a.Name]
			}
			if !covered {
				t.Errorf("fully selected %s is not represented in %v", n.Name, sel.Serialize())
			}
			var noDescendants func(*taxonomy.Node)
			noDescendants = func(p *taxonomy.Node) {
				for _, c := range p.Children {
					if out[c.Name] {
						t.Errorf("descendant %s of fully selected %s was emitted", c.Name, n.Name)
					}
					noDescendants(c)
				}
			}
			noDescendants(n)
			return false
		})
	})
}

func TestPropertyRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sel := randomSelector(t)
		names := sel.Serialize()

		restored := selection.New(sel.Tree(), names)
		if !restored.Snapshot().Equal(sel.Snapshot()) {
			t.Fatalf("round trip through %v changed the selection", names)
		}
		testutil.AssertNames(t, restored.Serialize(), names)
	})
}

func TestPropertyRemoveByNameIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sel := randomSelector(t)
		n := rapidNode(t, sel.Tree(), "remove")

		sel.RemoveByName(n.Name)
		once := sel.Snapshot()
		sel.RemoveByName(n.Name)
		if !sel.Snapshot().Equal(once) {
			t.Fatalf("second RemoveByName(%q) changed the selection", n.Name)
		}
	})
}

func TestPropertySingleSelectTogglesBackToEmpty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		tree := rapidTree(t)
		sel := selection.New(tree, nil, selection.WithSingleSelect())
		n := rapidNode(t, tree, "node")

		if !sel.Toggle(n, n.Ancestors()) {
			t.Fatalf("first toggle of %s should select it", n.ID)
		}
		if got := sel.Serialize(); len(got) != 1 {
			t.Fatalf("single select serialized to %v", got)
		}
		if sel.Toggle(n, n.Ancestors()) {
			t.Fatalf("second toggle of %s should clear it", n.ID)
		}
		if got := sel.Serialize(); len(got) != 0 {
			t.Fatalf("expected empty selection, got %v", got)
		}
	})
}
