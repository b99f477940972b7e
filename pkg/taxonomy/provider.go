package taxonomy

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/dealtree/pkg/debug"
	"github.com/vanderheijden86/dealtree/pkg/metrics"
)

// GeographyProvider supplies the continent/region/subregion catalog.
type GeographyProvider interface {
	GetGeoData(ctx context.Context) (GeoData, error)
}

// IndustryProvider supplies the sector/group/industry catalog.
type IndustryProvider interface {
	GetIndustryData(ctx context.Context) (IndustryData, error)
}

// StaticGeography serves a fixed in-memory catalog.
type StaticGeography struct {
	Data GeoData
}

func (s StaticGeography) GetGeoData(ctx context.Context) (GeoData, error) {
	if err := ctx.Err(); err != nil {
		return GeoData{}, err
	}
	return s.Data, nil
}

// StaticIndustry serves a fixed in-memory catalog.
type StaticIndustry struct {
	Data IndustryData
}

func (s StaticIndustry) GetIndustryData(ctx context.Context) (IndustryData, error) {
	if err := ctx.Err(); err != nil {
		return IndustryData{}, err
	}
	return s.Data, nil
}

// FileGeography reads a catalog file once and serves it until Reload.
type FileGeography struct {
	path   string
	mu     sync.RWMutex
	data   GeoData
	loaded bool
}

// NewFileGeography returns a provider backed by path. Nothing is read until
// the first request.
func NewFileGeography(path string) *FileGeography {
	return &FileGeography{path: path}
}

// Path is the catalog file being served.
func (f *FileGeography) Path() string { return f.path }

func (f *FileGeography) GetGeoData(ctx context.Context) (GeoData, error) {
	if err := ctx.Err(); err != nil {
		return GeoData{}, err
	}
	f.mu.RLock()
	if f.loaded {
		defer f.mu.RUnlock()
		return f.data, nil
	}
	f.mu.RUnlock()
	if err := f.Reload(); err != nil {
		return GeoData{}, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.data, nil
}

// Reload re-reads the file. On failure the previously loaded data is kept.
func (f *FileGeography) Reload() error {
	data, err := LoadGeoDataFile(f.path)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.data = data
	f.loaded = true
	f.mu.Unlock()
	debug.Log("geography catalog loaded from %s (%d continents)", f.path, len(data.Continents))
	return nil
}

// FileIndustry reads a catalog file once and serves it until Reload.
type FileIndustry struct {
	path   string
	mu     sync.RWMutex
	data   IndustryData
	loaded bool
}

// NewFileIndustry returns a provider backed by path.
func NewFileIndustry(path string) *FileIndustry {
	return &FileIndustry{path: path}
}

// Path is the catalog file being served.
func (f *FileIndustry) Path() string { return f.path }

func (f *FileIndustry) GetIndustryData(ctx context.Context) (IndustryData, error) {
	if err := ctx.Err(); err != nil {
		return IndustryData{}, err
	}
	f.mu.RLock()
	if f.loaded {
		defer f.mu.RUnlock()
		return f.data, nil
	}
	f.mu.RUnlock()
	if err := f.Reload(); err != nil {
		return IndustryData{}, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.data, nil
}

// Reload re-reads the file. On failure the previously loaded data is kept.
func (f *FileIndustry) Reload() error {
	data, err := LoadIndustryDataFile(f.path)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.data = data
	f.loaded = true
	f.mu.Unlock()
	debug.Log("industry catalog loaded from %s (%d sectors)", f.path, len(data.Sectors))
	return nil
}

// NewGeographyProvider returns a file provider for path, or the embedded
// catalog when path is empty.
func NewGeographyProvider(path string) GeographyProvider {
	if path == "" {
		return StaticGeography{Data: DefaultGeoData()}
	}
	return NewFileGeography(path)
}

// NewIndustryProvider returns a file provider for path, or the embedded
// catalog when path is empty.
func NewIndustryProvider(path string) IndustryProvider {
	if path == "" {
		return StaticIndustry{Data: DefaultIndustryData()}
	}
	return NewFileIndustry(path)
}

// Catalogs holds both selection trees for one editing session.
type Catalogs struct {
	Geography *Tree
	Industry  *Tree
	Warnings  []Warning
}

// Tree returns the catalog tree for kind.
func (c *Catalogs) Tree(kind Kind) *Tree {
	if kind == KindIndustry {
		return c.Industry
	}
	return c.Geography
}

// LoadCatalogs fetches both catalogs concurrently and builds their trees.
// Either failure fails the whole load; structural catalog errors are
// reported, name collisions only warned about.
func LoadCatalogs(ctx context.Context, geo GeographyProvider, ind IndustryProvider) (*Catalogs, error) {
	done := metrics.Time(metrics.CatalogLoad, "")
	defer func() { debug.LogTiming("LoadCatalogs", done()) }()

	var (
		geoData GeoData
		indData IndustryData
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		geoData, err = geo.GetGeoData(gctx)
		if err != nil {
			return fmt.Errorf("loading geography catalog: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		indData, err = ind.GetIndustryData(gctx)
		if err != nil {
			return fmt.Errorf("loading industry catalog: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	c := &Catalogs{
		Geography: geoData.Tree(),
		Industry:  indData.Tree(),
	}
	for _, t := range []*Tree{c.Geography, c.Industry} {
		warnings, err := t.Validate()
		if err != nil {
			return nil, fmt.Errorf("invalid %s catalog: %w", t.Kind, err)
		}
		for _, w := range warnings {
			debug.Log("%s catalog: %s", t.Kind, w)
		}
		c.Warnings = append(c.Warnings, warnings...)
	}
	return c, nil
}
