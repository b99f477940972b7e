// Package taxonomy holds the static reference trees (geography and industry)
// that deal criteria are picked from, plus the catalog loaders and providers
// that feed them.
package taxonomy

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies which catalog a tree was built from.
type Kind string

const (
	KindGeography Kind = "geography"
	KindIndustry  Kind = "industry"
)

// ParseKind accepts the catalog names used on the command line.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "geography", "geo", "countries":
		return KindGeography, nil
	case "industry", "industries", "sectors":
		return KindIndustry, nil
	}
	return "", fmt.Errorf("unknown catalog %q (want geography or industry)", s)
}

// FilterMode selects how a text query prunes the tree.
type FilterMode int

const (
	// ShallowFilter only tests second-level names (geography behavior).
	ShallowFilter FilterMode = iota
	// DeepFilter tests names at every level; a matching node keeps all of
	// its children (industry behavior).
	DeepFilter
)

// Node is one entry of a taxonomy tree. Level and Parent are set by NewTree.
type Node struct {
	ID       string
	Name     string
	Children []*Node
	Level    int
	Parent   *Node
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Ancestors returns the chain from the root down to the node's parent.
func (n *Node) Ancestors() []*Node {
	var chain []*Node
	for p := n.Parent; p != nil; p = p.Parent {
		chain = append(chain, p)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

// Path returns the names from the root to the node, joined with " / ".
func (n *Node) Path() string {
	parts := make([]string, 0, n.Level+1)
	for _, a := range n.Ancestors() {
		parts = append(parts, a.Name)
	}
	parts = append(parts, n.Name)
	return strings.Join(parts, " / ")
}

// Tree is an indexed taxonomy: roots in declaration order, a by-ID index and
// per-level node lists in level order.
type Tree struct {
	Kind   Kind
	Levels []string
	Roots  []*Node
	Filter FilterMode

	byID    map[string]*Node
	byLevel [][]*Node
	dupIDs  []string
}

// NewTree links parents and levels in place and indexes the nodes. Nodes
// deeper than len(levels) are cut off. When an ID repeats, the first node in
// level order owns it and Validate reports the rest.
func NewTree(kind Kind, levels []string, mode FilterMode, roots []*Node) *Tree {
	t := &Tree{
		Kind:    kind,
		Levels:  levels,
		Roots:   roots,
		Filter:  mode,
		byID:    make(map[string]*Node),
		byLevel: make([][]*Node, len(levels)),
	}
	if len(levels) == 0 {
		t.Roots = nil
		return t
	}

	current := roots
	for level := 0; level < len(levels) && len(current) > 0; level++ {
		var next []*Node
		for _, n := range current {
			n.Level = level
			if level == 0 {
				n.Parent = nil
			}
			if level == len(levels)-1 {
				n.Children = nil
			}
			for _, c := range n.Children {
				c.Parent = n
			}
			next = append(next, n.Children...)

			if _, exists := t.byID[n.ID]; exists {
				t.dupIDs = append(t.dupIDs, n.ID)
			} else {
				t.byID[n.ID] = n
			}
			t.byLevel[level] = append(t.byLevel[level], n)
		}
		current = next
	}
	return t
}

// Depth is the number of selectable levels.
func (t *Tree) Depth() int {
	return len(t.Levels)
}

// Node looks a node up by ID.
func (t *Tree) Node(id string) (*Node, bool) {
	n, ok := t.byID[id]
	return n, ok
}

// Level returns the nodes of one level in level order.
func (t *Tree) Level(level int) []*Node {
	if level < 0 || level >= len(t.byLevel) {
		return nil
	}
	return t.byLevel[level]
}

// Len is the number of indexed nodes.
func (t *Tree) Len() int {
	return len(t.byID)
}

// FindByName returns the first node whose name equals name, searching the
// top level first and then each level down.
func (t *Tree) FindByName(name string) *Node {
	for _, nodes := range t.byLevel {
		for _, n := range nodes {
			if n.Name == name {
				return n
			}
		}
	}
	return nil
}

// Names returns every node name in level order.
func (t *Tree) Names() []string {
	names := make([]string, 0, len(t.byID))
	for _, nodes := range t.byLevel {
		for _, n := range nodes {
			names = append(names, n.Name)
		}
	}
	return names
}

// Walk visits nodes depth-first in declaration order. Returning false from
// fn skips the node's children.
func (t *Tree) Walk(fn func(n *Node) bool) {
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			if fn(n) {
				walk(n.Children)
			}
		}
	}
	walk(t.Roots)
}

// Warning describes a catalog problem that does not block loading.
type Warning struct {
	NodeID  string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s", w.NodeID, w.Message)
}

// Validate reports structural errors (missing IDs or names, duplicate IDs)
// and, as warnings, names shared by several nodes. Name-based matching picks
// the first of those, which is rarely what the author meant.
func (t *Tree) Validate() ([]Warning, error) {
	var errs []error
	for _, id := range t.dupIDs {
		errs = append(errs, fmt.Errorf("duplicate node id %q", id))
	}

	seen := make(map[string]*Node)
	var warnings []Warning
	for level, nodes := range t.byLevel {
		for _, n := range nodes {
			if strings.TrimSpace(n.ID) == "" {
				errs = append(errs, fmt.Errorf("%s %q has an empty id", t.Levels[level], n.Name))
			}
			if strings.TrimSpace(n.Name) == "" {
				errs = append(errs, fmt.Errorf("%s %q has an empty name", t.Levels[level], n.ID))
				continue
			}
			if first, ok := seen[n.Name]; ok {
				warnings = append(warnings, Warning{
					NodeID:  n.ID,
					Message: fmt.Sprintf("name %q already used by %s (%s); name lookups resolve to %s", n.Name, first.ID, t.Levels[first.Level], first.ID),
				})
				continue
			}
			seen[n.Name] = n
		}
	}
	return warnings, errors.Join(errs...)
}
