package taxonomy

import "strings"

// FilterTree prunes the tree with the filter mode it was built with.
func FilterTree(t *Tree, query string) []*Node {
	if t.Filter == DeepFilter {
		return FilterDeep(t.Roots, query)
	}
	return FilterShallow(t.Roots, query)
}

// FilterShallow keeps the top-level nodes that have at least one child whose
// name contains query, and of those children only the matching ones (with
// their own children intact). Top-level names are not tested.
//
// The result is a pruned copy; IDs match the source tree. A blank query
// returns a copy of every root.
func FilterShallow(roots []*Node, query string) []*Node {
	q := normalizeQuery(query)
	if q == "" {
		return cloneAll(roots, nil)
	}

	var out []*Node
	for _, root := range roots {
		var kept []*Node
		for _, child := range root.Children {
			if matches(child.Name, q) {
				kept = append(kept, child)
			}
		}
		if len(kept) == 0 {
			continue
		}
		cp := shallowClone(root, nil)
		cp.Children = cloneAll(kept, cp)
		out = append(out, cp)
	}
	return out
}

// FilterDeep recursively keeps branches where some descendant's name contains
// query. A node whose own name matches keeps all of its original children.
func FilterDeep(roots []*Node, query string) []*Node {
	q := normalizeQuery(query)
	if q == "" {
		return cloneAll(roots, nil)
	}

	var out []*Node
	for _, root := range roots {
		if cp := filterDeep(root, q, nil); cp != nil {
			out = append(out, cp)
		}
	}
	return out
}

func filterDeep(n *Node, q string, parent *Node) *Node {
	if matches(n.Name, q) {
		return cloneSubtree(n, parent)
	}
	cp := shallowClone(n, parent)
	for _, child := range n.Children {
		if kept := filterDeep(child, q, cp); kept != nil {
			cp.Children = append(cp.Children, kept)
		}
	}
	if len(cp.Children) == 0 {
		return nil
	}
	return cp
}

func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

func matches(name, q string) bool {
	return strings.Contains(strings.ToLower(name), q)
}

func shallowClone(n *Node, parent *Node) *Node {
	return &Node{ID: n.ID, Name: n.Name, Level: n.Level, Parent: parent}
}

func cloneSubtree(n *Node, parent *Node) *Node {
	cp := shallowClone(n, parent)
	cp.Children = cloneAll(n.Children, cp)
	return cp
}

func cloneAll(nodes []*Node, parent *Node) []*Node {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		out[i] = cloneSubtree(n, parent)
	}
	return out
}
