package taxonomy

import (
	"github.com/sahilm/fuzzy"
)

// Covers reports whether a flat selection (as persisted) includes name,
// either directly or through one of its ancestors. distance is 0 for a
// direct hit and grows by one per level the covering ancestor sits above the
// node. Names outside the tree only match themselves.
func Covers(t *Tree, selected []string, name string) (distance int, ok bool) {
	set := make(map[string]bool, len(selected))
	for _, s := range selected {
		set[s] = true
	}

	n := t.FindByName(name)
	if n == nil {
		return 0, set[name]
	}
	for d, cur := 0, n; cur != nil; d, cur = d+1, cur.Parent {
		if set[cur.Name] {
			return d, true
		}
	}
	return 0, false
}

// Suggest returns up to limit catalog names that fuzzily match name, best
// first. It is used to explain persisted names the catalog no longer knows.
func Suggest(t *Tree, name string, limit int) []string {
	if name == "" || limit <= 0 {
		return nil
	}
	names := t.Names()
	matches := fuzzy.Find(name, names)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Str)
	}
	return out
}
