// Package selection keeps a multi-select over a taxonomy tree consistent and
// converts it to and from the flat, minimal name lists that profiles and
// deals persist.
//
// A parent is selected exactly when all of its children are; there is no
// stored "partial" flag. Toggling a parent forces its flag onto the whole
// subtree. Serialize collapses every fully selected subtree to its root name.
//
// A Selector has a single owner and is not safe for concurrent mutation.
// Each mutation installs a fresh State, so a State obtained from Snapshot
// never changes underneath its holder.
package selection

import (
	"slices"

	"github.com/vanderheijden86/dealtree/pkg/debug"
	"github.com/vanderheijden86/dealtree/pkg/metrics"
	"github.com/vanderheijden86/dealtree/pkg/taxonomy"
)

// Mark is the derived display state of a node.
type Mark int

const (
	MarkNone Mark = iota
	MarkPartial
	MarkAll
)

// Option configures a Selector.
type Option func(*Selector)

// WithOnChange registers the form binding. fn receives the serialized
// selection after every mutation.
func WithOnChange(fn func(names []string)) Option {
	return func(s *Selector) {
		s.onChange = fn
	}
}

// WithSingleSelect turns toggling into radio behavior: toggling the current
// choice clears it and toggling any other node replaces it, so Serialize
// yields at most one name. Deals use this for their single geography and
// industry fields.
func WithSingleSelect() Option {
	return func(s *Selector) {
		s.single = true
	}
}

// Selector is the hierarchical selection synchronizer for one tree.
type Selector struct {
	tree      *taxonomy.Tree
	state     State
	onChange  func([]string)
	single    bool
	unmatched []string
}

// New builds a selector over tree, pre-populated from a persisted name list.
// The OnChange binding is not invoked for the initial load.
func New(tree *taxonomy.Tree, initial []string, opts ...Option) *Selector {
	s := &Selector{
		tree:  tree,
		state: newState(tree.Depth()),
	}
	for _, opt := range opts {
		opt(s)
	}
	if len(initial) > 0 {
		s.state, s.unmatched = s.load(initial)
	}
	return s
}

// Tree is the taxonomy the selector was built over.
func (s *Selector) Tree() *taxonomy.Tree {
	return s.tree
}

// Snapshot returns the current state. It stays valid after later mutations.
func (s *Selector) Snapshot() State {
	return s.state
}

// Toggle flips node, cascades the new flag to its descendants and recomputes
// the ancestors given in ancestors (root first, immediate parent last). The
// node's own level comes from the tree; an ancestor path that does not match
// it is replaced by the node's real ancestors. It returns the node's new flag.
func (s *Selector) Toggle(node *taxonomy.Node, ancestors []*taxonomy.Node) bool {
	if node == nil {
		return false
	}
	defer metrics.Time(metrics.Toggle, string(s.tree.Kind))()
	level := node.Level
	if level < 0 || level >= s.tree.Depth() {
		return false
	}
	if len(ancestors) != level {
		ancestors = node.Ancestors()
	}

	selected := !s.state.Selected(level, node.ID)
	var next State
	if s.single {
		// Radio behavior: toggling whatever the node alone would serialize
		// to clears it, anything else replaces it. A node that is its
		// parent's only child serializes as the parent.
		only := newState(s.tree.Depth())
		only.setSubtree(node, level, true)
		only.recompute(s.tree)
		cur := s.state.serialize(s.tree.Roots, 0, nil)
		selected = !slices.Equal(cur, only.serialize(s.tree.Roots, 0, nil))
		next = newState(s.tree.Depth())
		if selected {
			next = only
		}
	} else {
		next = s.state.clone()
		next.setSubtree(node, level, selected)
		next.propagateUp(ancestors)
	}
	s.commit(next)
	debug.Log("selection[%s]: toggle %s -> %v", s.tree.Kind, node.ID, selected)
	return selected
}

// ToggleID toggles the node with the given ID, deriving its ancestors from
// the tree. ok is false when the ID is unknown.
func (s *Selector) ToggleID(id string) (selected, ok bool) {
	n, found := s.tree.Node(id)
	if !found {
		return false, false
	}
	return s.Toggle(n, n.Ancestors()), true
}

// RemoveByName deselects the first node named name (level order), together
// with its subtree, and recomputes its ancestors. Unknown names are a no-op
// and return false.
func (s *Selector) RemoveByName(name string) bool {
	n := s.tree.FindByName(name)
	if n == nil {
		debug.Log("selection[%s]: remove %q: no such name", s.tree.Kind, name)
		return false
	}
	next := s.state.clone()
	next.setSubtree(n, n.Level, false)
	next.propagateUp(n.Ancestors())
	s.commit(next)
	return true
}

// Serialize returns the minimal flat name list in tree declaration order.
func (s *Selector) Serialize() []string {
	defer metrics.Time(metrics.Serialize, string(s.tree.Kind))()
	return s.state.serialize(s.tree.Roots, 0, []string{})
}

// Deserialize replaces the selection with the one described by names. Each
// name selects the first node with that name and its subtree; ancestors are
// recomputed once at the end. Names the tree does not contain are dropped
// and remembered in Unmatched.
func (s *Selector) Deserialize(names []string) {
	defer metrics.Time(metrics.Deserialize, string(s.tree.Kind))()
	next, unmatched := s.load(names)
	s.unmatched = unmatched
	s.commit(next)
}

// Unmatched lists the names dropped by the last load.
func (s *Selector) Unmatched() []string {
	return s.unmatched
}

// Clear deselects everything.
func (s *Selector) Clear() {
	s.commit(newState(s.tree.Depth()))
}

// IsSelected reports the stored flag of the node with the given ID.
func (s *Selector) IsSelected(id string) bool {
	n, ok := s.tree.Node(id)
	if !ok {
		return false
	}
	return s.state.Selected(n.Level, id)
}

// Mark derives the display state of the node with the given ID.
func (s *Selector) Mark(id string) Mark {
	n, ok := s.tree.Node(id)
	if !ok {
		return MarkNone
	}
	switch {
	case s.state.full(n, n.Level):
		return MarkAll
	case s.state.touched(n, n.Level):
		return MarkPartial
	default:
		return MarkNone
	}
}

// Filter returns a pruned copy of the tree for a search query, using the
// tree's filter mode. Node IDs in the copy resolve with ToggleID.
func (s *Selector) Filter(query string) []*taxonomy.Node {
	defer metrics.Time(metrics.Filter, string(s.tree.Kind))()
	return taxonomy.FilterTree(s.tree, query)
}

func (s *Selector) load(names []string) (State, []string) {
	next := newState(s.tree.Depth())
	var unmatched []string
	for _, name := range names {
		n := s.tree.FindByName(name)
		if n == nil {
			unmatched = append(unmatched, name)
			continue
		}
		next.setSubtree(n, n.Level, true)
	}
	next.recompute(s.tree)
	if len(unmatched) > 0 {
		debug.Log("selection[%s]: %d persisted names not in catalog: %v", s.tree.Kind, len(unmatched), unmatched)
	}
	return next, unmatched
}

func (s *Selector) commit(next State) {
	s.state = next
	if s.onChange != nil {
		s.onChange(s.Serialize())
	}
}
