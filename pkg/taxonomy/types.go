package taxonomy

// GeoData is the geography catalog as returned by the reference-data API.
type GeoData struct {
	Continents []Continent `json:"continents" yaml:"continents"`
}

// Continent is the top geography level.
type Continent struct {
	ID      string   `json:"id" yaml:"id"`
	Name    string   `json:"name" yaml:"name"`
	Regions []Region `json:"regions" yaml:"regions"`
}

// Region belongs to a continent. SubRegions is optional; a region without
// subregions is selected as a leaf.
type Region struct {
	ID         string      `json:"id" yaml:"id"`
	Name       string      `json:"name" yaml:"name"`
	SubRegions []SubRegion `json:"subRegions,omitempty" yaml:"subRegions,omitempty"`
}

// SubRegion is the geography leaf (usually a country).
type SubRegion struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// IndustryData is the industry catalog as returned by the reference-data API.
type IndustryData struct {
	Sectors []Sector `json:"sectors" yaml:"sectors"`
}

// Sector is the top industry level.
type Sector struct {
	ID             string          `json:"id" yaml:"id"`
	Name           string          `json:"name" yaml:"name"`
	IndustryGroups []IndustryGroup `json:"industryGroups" yaml:"industryGroups"`
}

// IndustryGroup belongs to a sector.
type IndustryGroup struct {
	ID         string     `json:"id" yaml:"id"`
	Name       string     `json:"name" yaml:"name"`
	Industries []Industry `json:"industries" yaml:"industries"`
}

// Industry is the selection leaf of the industry tree. SubIndustries are
// carried for display and export but never take part in selection.
type Industry struct {
	ID            string        `json:"id" yaml:"id"`
	Name          string        `json:"name" yaml:"name"`
	SubIndustries []SubIndustry `json:"subIndustries,omitempty" yaml:"subIndustries,omitempty"`
}

// SubIndustry is the optional fourth industry level.
type SubIndustry struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Level names for the two catalogs, root first.
var (
	GeographyLevels = []string{"continent", "region", "subregion"}
	IndustryLevels  = []string{"sector", "industry_group", "industry"}
)

// Tree converts the geography catalog into a selection tree.
func (g GeoData) Tree() *Tree {
	roots := nodesOf(g.Continents,
		func(c Continent) (string, string) { return c.ID, c.Name },
		func(c Continent) []*Node {
			return nodesOf(c.Regions,
				func(r Region) (string, string) { return r.ID, r.Name },
				func(r Region) []*Node {
					return nodesOf(r.SubRegions,
						func(s SubRegion) (string, string) { return s.ID, s.Name },
						nil)
				})
		})
	return NewTree(KindGeography, GeographyLevels, ShallowFilter, roots)
}

// Tree converts the industry catalog into a selection tree. Sub-industries
// are not part of the result.
func (d IndustryData) Tree() *Tree {
	roots := nodesOf(d.Sectors,
		func(s Sector) (string, string) { return s.ID, s.Name },
		func(s Sector) []*Node {
			return nodesOf(s.IndustryGroups,
				func(g IndustryGroup) (string, string) { return g.ID, g.Name },
				func(g IndustryGroup) []*Node {
					return nodesOf(g.Industries,
						func(i Industry) (string, string) { return i.ID, i.Name },
						nil)
				})
		})
	return NewTree(KindIndustry, IndustryLevels, DeepFilter, roots)
}

// nodesOf maps one catalog level onto nodes. children is the accessor for
// the next level down; nil marks the leaf level.
func nodesOf[T any](items []T, label func(T) (string, string), children func(T) []*Node) []*Node {
	if len(items) == 0 {
		return nil
	}
	nodes := make([]*Node, 0, len(items))
	for _, item := range items {
		id, name := label(item)
		n := &Node{ID: id, Name: name}
		if children != nil {
			n.Children = children(item)
		}
		nodes = append(nodes, n)
	}
	return nodes
}
