package taxonomy

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

//go:embed data/geography.yaml
var defaultGeography []byte

//go:embed data/industry.yaml
var defaultIndustry []byte

// Format is a catalog encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the encoding from the file extension; anything that
// is not .json is read as YAML.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

func decode(data []byte, format Format, v any) error {
	switch format {
	case FormatJSON:
		return json.Unmarshal(data, v)
	default:
		return yaml.Unmarshal(data, v)
	}
}

// DecodeGeoData parses a geography catalog.
func DecodeGeoData(data []byte, format Format) (GeoData, error) {
	var g GeoData
	if err := decode(data, format, &g); err != nil {
		return GeoData{}, fmt.Errorf("parsing geography catalog: %w", err)
	}
	return g, nil
}

// DecodeIndustryData parses an industry catalog.
func DecodeIndustryData(data []byte, format Format) (IndustryData, error) {
	var d IndustryData
	if err := decode(data, format, &d); err != nil {
		return IndustryData{}, fmt.Errorf("parsing industry catalog: %w", err)
	}
	return d, nil
}

// LoadGeoDataFile reads a geography catalog from disk.
func LoadGeoDataFile(path string) (GeoData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return GeoData{}, fmt.Errorf("reading geography catalog: %w", err)
	}
	return DecodeGeoData(data, FormatFromPath(path))
}

// LoadIndustryDataFile reads an industry catalog from disk.
func LoadIndustryDataFile(path string) (IndustryData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return IndustryData{}, fmt.Errorf("reading industry catalog: %w", err)
	}
	return DecodeIndustryData(data, FormatFromPath(path))
}

// DefaultGeoData returns the embedded geography catalog.
func DefaultGeoData() GeoData {
	g, err := DecodeGeoData(defaultGeography, FormatYAML)
	if err != nil {
		panic(err)
	}
	return g
}

// DefaultIndustryData returns the embedded industry catalog.
func DefaultIndustryData() IndustryData {
	d, err := DecodeIndustryData(defaultIndustry, FormatYAML)
	if err != nil {
		panic(err)
	}
	return d
}

// EncodeJSON renders a catalog or tree export as indented JSON.
func EncodeJSON(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// ExportNode is the JSON shape of a tree node in robot output.
type ExportNode struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Level    string       `json:"level"`
	Children []ExportNode `json:"children,omitempty"`
}

// Export converts nodes into their JSON shape.
func Export(t *Tree, nodes []*Node) []ExportNode {
	out := make([]ExportNode, 0, len(nodes))
	for _, n := range nodes {
		level := ""
		if n.Level < len(t.Levels) {
			level = t.Levels[n.Level]
		}
		out = append(out, ExportNode{
			ID:       n.ID,
			Name:     n.Name,
			Level:    level,
			Children: Export(t, n.Children),
		})
	}
	return out
}
