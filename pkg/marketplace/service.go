package marketplace

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vanderheijden86/dealtree/internal/datasource"
	"github.com/vanderheijden86/dealtree/pkg/debug"
	"github.com/vanderheijden86/dealtree/pkg/metrics"
	"github.com/vanderheijden86/dealtree/pkg/model"
	"github.com/vanderheijden86/dealtree/pkg/taxonomy"
)

// Repository is the persistence the service needs. *datasource.Store
// satisfies it.
type Repository interface {
	SaveProfile(ctx context.Context, p model.Profile) error
	GetProfile(ctx context.Context, id string) (model.Profile, error)
	ListProfiles(ctx context.Context, q datasource.ProfileQuery) ([]model.Profile, error)
	DeleteProfile(ctx context.Context, id string) error
	SaveDeal(ctx context.Context, d model.Deal) error
	GetDeal(ctx context.Context, id string) (model.Deal, error)
	ListDeals(ctx context.Context, status model.DealStatus) ([]model.Deal, error)
	UpdateDealStatus(ctx context.Context, id string, to model.DealStatus, now time.Time) (model.Deal, error)
}

// Service wires the store to the taxonomy catalogs.
type Service struct {
	repo  Repository
	geo   taxonomy.GeographyProvider
	ind   taxonomy.IndustryProvider
	now   func() time.Time
	newID func() string

	mu       sync.Mutex
	catalogs *taxonomy.Catalogs
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides record ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// NewService creates a service over repo and the two catalog providers.
func NewService(repo Repository, geo taxonomy.GeographyProvider, ind taxonomy.IndustryProvider, opts ...Option) *Service {
	s := &Service{
		repo:  repo,
		geo:   geo,
		ind:   ind,
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalogs returns the loaded catalogs, fetching them on first use.
func (s *Service) Catalogs(ctx context.Context) (*taxonomy.Catalogs, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.catalogs != nil {
		metrics.Hit(metrics.CatalogCache)
		return s.catalogs, nil
	}
	metrics.Miss(metrics.CatalogCache)
	c, err := taxonomy.LoadCatalogs(ctx, s.geo, s.ind)
	if err != nil {
		return nil, err
	}
	s.catalogs = c
	return c, nil
}

// InvalidateCatalogs drops the cached trees so the next call reloads them.
// Editors opened earlier keep the trees they were built with.
func (s *Service) InvalidateCatalogs() {
	s.mu.Lock()
	s.catalogs = nil
	s.mu.Unlock()
	debug.Log("catalog cache invalidated")
}

func (s *Service) timestamp() time.Time {
	return s.now().UTC()
}
