package selection

import (
	"sort"

	"github.com/vanderheijden86/dealtree/pkg/taxonomy"
)

// State is an immutable view of a selection: one ID set per tree level.
// Absent IDs are unselected. Selector never mutates a State after handing
// it out; every change builds a new one.
type State struct {
	levels []map[string]bool
}

func newState(depth int) State {
	levels := make([]map[string]bool, depth)
	for i := range levels {
		levels[i] = make(map[string]bool)
	}
	return State{levels: levels}
}

// Selected reports whether id is selected on the given level.
func (s State) Selected(level int, id string) bool {
	if level < 0 || level >= len(s.levels) {
		return false
	}
	return s.levels[level][id]
}

// Depth is the number of levels tracked.
func (s State) Depth() int {
	return len(s.levels)
}

// Count is the number of selected IDs on one level.
func (s State) Count(level int) int {
	if level < 0 || level >= len(s.levels) {
		return 0
	}
	return len(s.levels[level])
}

// IDs returns the selected IDs of one level, sorted.
func (s State) IDs(level int) []string {
	if level < 0 || level >= len(s.levels) {
		return nil
	}
	ids := make([]string, 0, len(s.levels[level]))
	for id := range s.levels[level] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Equal compares two states level by level.
func (s State) Equal(o State) bool {
	if len(s.levels) != len(o.levels) {
		return false
	}
	for i := range s.levels {
		if len(s.levels[i]) != len(o.levels[i]) {
			return false
		}
		for id := range s.levels[i] {
			if !o.levels[i][id] {
				return false
			}
		}
	}
	return true
}

func (s State) clone() State {
	levels := make([]map[string]bool, len(s.levels))
	for i, m := range s.levels {
		cp := make(map[string]bool, len(m))
		for id := range m {
			cp[id] = true
		}
		levels[i] = cp
	}
	return State{levels: levels}
}

// set stores only true flags so that Equal and Count see absent and false
// the same way.
func (s State) set(level int, id string, v bool) {
	if v {
		s.levels[level][id] = true
	} else {
		delete(s.levels[level], id)
	}
}

func (s State) setSubtree(n *taxonomy.Node, level int, v bool) {
	if level >= len(s.levels) {
		return
	}
	s.set(level, n.ID, v)
	for _, c := range n.Children {
		s.setSubtree(c, level+1, v)
	}
}

func (s State) allChildrenSelected(n *taxonomy.Node, level int) bool {
	for _, c := range n.Children {
		if !s.Selected(level+1, c.ID) {
			return false
		}
	}
	return true
}

// propagateUp recomputes ancestors from the immediate parent to the root and
// stops at the first one whose flag is unchanged.
func (s State) propagateUp(ancestors []*taxonomy.Node) {
	for level := len(ancestors) - 1; level >= 0; level-- {
		a := ancestors[level]
		all := s.allChildrenSelected(a, level)
		if s.Selected(level, a.ID) == all {
			return
		}
		s.set(level, a.ID, all)
	}
}

// recompute re-derives every parent flag bottom-up across the tree.
func (s State) recompute(t *taxonomy.Tree) {
	for level := len(s.levels) - 2; level >= 0; level-- {
		for _, n := range t.Level(level) {
			if n.IsLeaf() {
				continue
			}
			s.set(level, n.ID, s.allChildrenSelected(n, level))
		}
	}
}

// full reports whether n and its whole subtree are selected.
func (s State) full(n *taxonomy.Node, level int) bool {
	if !s.Selected(level, n.ID) {
		return false
	}
	for _, c := range n.Children {
		if !s.full(c, level+1) {
			return false
		}
	}
	return true
}

// touched reports whether n or anything below it is selected.
func (s State) touched(n *taxonomy.Node, level int) bool {
	if s.Selected(level, n.ID) {
		return true
	}
	for _, c := range n.Children {
		if s.touched(c, level+1) {
			return true
		}
	}
	return false
}

func (s State) serialize(nodes []*taxonomy.Node, level int, out []string) []string {
	for _, n := range nodes {
		if s.full(n, level) {
			out = append(out, n.Name)
			continue
		}
		out = s.serialize(n.Children, level+1, out)
	}
	return out
}
