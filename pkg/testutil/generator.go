// Package testutil provides taxonomy fixtures and generators for tests.
// Fixed fixtures mirror the marketplace scenarios; generated trees are
// deterministic for a given seed.
package testutil

import (
	"fmt"
	"math/rand"

	"github.com/vanderheijden86/dealtree/pkg/taxonomy"
)

// AsiaGeography is the one-continent tree used by the geography scenarios:
// Asia > East Asia (China, Japan), South Asia (India).
func AsiaGeography() taxonomy.GeoData {
	return taxonomy.GeoData{Continents: []taxonomy.Continent{
		{ID: "asia", Name: "Asia", Regions: []taxonomy.Region{
			{ID: "east-asia", Name: "East Asia", SubRegions: []taxonomy.SubRegion{
				{ID: "cn", Name: "China"},
				{ID: "jp", Name: "Japan"},
			}},
			{ID: "south-asia", Name: "South Asia", SubRegions: []taxonomy.SubRegion{
				{ID: "in", Name: "India"},
			}},
		}},
	}}
}

// TechIndustry is the one-sector tree used by the industry scenarios:
// Tech > Software (SaaS, Dev Tools).
func TechIndustry() taxonomy.IndustryData {
	return taxonomy.IndustryData{Sectors: []taxonomy.Sector{
		{ID: "tech", Name: "Tech", IndustryGroups: []taxonomy.IndustryGroup{
			{ID: "software", Name: "Software", Industries: []taxonomy.Industry{
				{ID: "saas", Name: "SaaS"},
				{ID: "dev-tools", Name: "Dev Tools"},
			}},
		}},
	}}
}

// TreeConfig controls generated tree shape.
type TreeConfig struct {
	Seed        int64 // Random seed for determinism
	Roots       int   // Number of top-level nodes
	MaxChildren int   // Upper bound on children per node (0 allowed)
	Depth       int   // Number of levels
}

// DefaultTreeConfig returns a small three-level shape.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{Seed: 42, Roots: 3, MaxChildren: 4, Depth: 3}
}

// GenerateTree builds a tree with unique IDs and names ("L<level>-<n>").
func GenerateTree(cfg TreeConfig) *taxonomy.Tree {
	rng := rand.New(rand.NewSource(cfg.Seed))
	counter := 0
	var build func(level int) *taxonomy.Node
	build = func(level int) *taxonomy.Node {
		counter++
		n := &taxonomy.Node{
			ID:   fmt.Sprintf("n%d", counter),
			Name: fmt.Sprintf("L%d-%d", level, counter),
		}
		if level+1 < cfg.Depth && cfg.MaxChildren > 0 {
			for i := rng.Intn(cfg.MaxChildren + 1); i > 0; i-- {
				n.Children = append(n.Children, build(level+1))
			}
		}
		return n
	}
	roots := make([]*taxonomy.Node, 0, cfg.Roots)
	for i := 0; i < cfg.Roots; i++ {
		roots = append(roots, build(0))
	}
	return taxonomy.NewTree(taxonomy.KindIndustry, levelNames(cfg.Depth), taxonomy.DeepFilter, roots)
}

func levelNames(depth int) []string {
	names := make([]string, depth)
	for i := range names {
		names[i] = fmt.Sprintf("level%d", i)
	}
	return names
}
