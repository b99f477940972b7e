package testutil

import (
	"strings"

	"github.com/vanderheijden86/dealtree/pkg/selection"
	"github.com/vanderheijden86/dealtree/pkg/taxonomy"
)

// TB is the subset of testing.TB (and *rapid.T) the assertions need.
type TB interface {
	Helper()
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
}

// AssertNames verifies an ordered name list.
func AssertNames(t TB, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Errorf("expected %d names [%s], got %d [%s]", len(want), strings.Join(want, ", "), len(got), strings.Join(got, ", "))
		return
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("name %d: expected %q, got %q (full: [%s])", i, want[i], got[i], strings.Join(got, ", "))
		}
	}
}

// AssertParentsConsistent verifies that every parent is selected exactly
// when all of its children are.
func AssertParentsConsistent(t TB, sel *selection.Selector) {
	t.Helper()
	tree := sel.Tree()
	tree.Walk(func(n *taxonomy.Node) bool {
		if n.IsLeaf() {
			return true
		}
		all := true
		for _, c := range n.Children {
			if !sel.IsSelected(c.ID) {
				all = false
				break
			}
		}
		if got := sel.IsSelected(n.ID); got != all {
			t.Errorf("node %s (%s): selected=%v but all children selected=%v", n.ID, n.Name, got, all)
		}
		return true
	})
}

// AssertSubtree verifies that n and every descendant carry flag want.
func AssertSubtree(t TB, sel *selection.Selector, n *taxonomy.Node, want bool) {
	t.Helper()
	if got := sel.IsSelected(n.ID); got != want {
		t.Errorf("node %s (%s): expected selected=%v, got %v", n.ID, n.Name, want, got)
	}
	for _, c := range n.Children {
		AssertSubtree(t, sel, c, want)
	}
}
