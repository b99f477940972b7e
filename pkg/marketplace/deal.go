package marketplace

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/vanderheijden86/dealtree/internal/datasource"
	"github.com/vanderheijden86/dealtree/pkg/debug"
	"github.com/vanderheijden86/dealtree/pkg/metrics"
	"github.com/vanderheijden86/dealtree/pkg/model"
	"github.com/vanderheijden86/dealtree/pkg/selection"
	"github.com/vanderheijden86/dealtree/pkg/taxonomy"
)

// DealInput is the editable part of a deal.
type DealInput struct {
	Title       string `json:"title"`
	Geography   string `json:"geographySelection"`
	Industry    string `json:"industrySector"`
	AskingPrice int64  `json:"askingPrice,omitempty"`
	Description string `json:"description,omitempty"`
}

// normalizeSingle resolves name through a single-select selector so the
// stored value is the minimal serialization of that one choice.
func normalizeSingle(tree *taxonomy.Tree, field, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%s is required", field)
	}
	sel := selection.New(tree, []string{name}, selection.WithSingleSelect())
	if len(sel.Unmatched()) > 0 {
		hint := ""
		if sugg := taxonomy.Suggest(tree, name, 3); len(sugg) > 0 {
			hint = fmt.Sprintf(" (did you mean %s?)", strings.Join(sugg, ", "))
		}
		return "", fmt.Errorf("%w: %s %q%s", ErrUnknownName, field, name, hint)
	}
	return sel.Serialize()[0], nil
}

func (s *Service) applyDealInput(ctx context.Context, d *model.Deal, in DealInput) error {
	c, err := s.Catalogs(ctx)
	if err != nil {
		return err
	}
	geo, err := normalizeSingle(c.Geography, "geographySelection", in.Geography)
	if err != nil {
		return err
	}
	ind, err := normalizeSingle(c.Industry, "industrySector", in.Industry)
	if err != nil {
		return err
	}
	d.Title = strings.TrimSpace(in.Title)
	d.GeographySelection = geo
	d.IndustrySector = ind
	d.AskingPrice = in.AskingPrice
	d.Description = in.Description
	return nil
}

// CreateDeal lists a new active deal for the session's seller.
func (s *Service) CreateDeal(ctx context.Context, sess Session, in DealInput) (model.Deal, error) {
	if err := sess.require(RoleSeller); err != nil {
		return model.Deal{}, err
	}
	now := s.timestamp()
	d := model.Deal{
		ID:        s.newID(),
		Seller:    sess.UserID,
		Status:    model.DealActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.applyDealInput(ctx, &d, in); err != nil {
		return model.Deal{}, err
	}
	if err := s.repo.SaveDeal(ctx, d); err != nil {
		return model.Deal{}, err
	}
	debug.Log("created deal %s (%s / %s)", d.ID, d.GeographySelection, d.IndustrySector)
	return d, nil
}

// UpdateDeal edits a deal the seller owns. Completed deals are frozen.
func (s *Service) UpdateDeal(ctx context.Context, sess Session, id string, in DealInput) (model.Deal, error) {
	d, err := s.ownedDeal(ctx, sess, id)
	if err != nil {
		return model.Deal{}, err
	}
	if d.Status.IsTerminal() {
		return model.Deal{}, fmt.Errorf("deal %s: %w: completed deals cannot be edited", id, model.ErrInvalidTransition)
	}
	if err := s.applyDealInput(ctx, &d, in); err != nil {
		return model.Deal{}, err
	}
	d.UpdatedAt = s.timestamp()
	if err := s.repo.SaveDeal(ctx, d); err != nil {
		return model.Deal{}, err
	}
	return d, nil
}

// MarkOffMarket hides an active deal from buyers.
func (s *Service) MarkOffMarket(ctx context.Context, sess Session, id string) (model.Deal, error) {
	return s.transition(ctx, sess, id, model.DealOffMarket)
}

// Relist puts an off-market deal back on the market.
func (s *Service) Relist(ctx context.Context, sess Session, id string) (model.Deal, error) {
	return s.transition(ctx, sess, id, model.DealActive)
}

// CompleteDeal closes a deal for good.
func (s *Service) CompleteDeal(ctx context.Context, sess Session, id string) (model.Deal, error) {
	return s.transition(ctx, sess, id, model.DealCompleted)
}

func (s *Service) transition(ctx context.Context, sess Session, id string, to model.DealStatus) (model.Deal, error) {
	if _, err := s.ownedDeal(ctx, sess, id); err != nil {
		return model.Deal{}, err
	}
	d, err := s.repo.UpdateDealStatus(ctx, id, to, s.timestamp())
	if err != nil {
		return model.Deal{}, err
	}
	debug.Log("deal %s -> %s", id, to)
	return d, nil
}

func (s *Service) ownedDeal(ctx context.Context, sess Session, id string) (model.Deal, error) {
	if err := sess.require(RoleSeller); err != nil {
		return model.Deal{}, err
	}
	d, err := s.repo.GetDeal(ctx, id)
	if err != nil {
		return model.Deal{}, err
	}
	if d.Seller != sess.UserID {
		return model.Deal{}, fmt.Errorf("%w: deal %s belongs to another seller", ErrForbidden, id)
	}
	return d, nil
}

// GetDeal returns a deal visible to the session: sellers see their own
// deals in any status, buyers see active deals.
func (s *Service) GetDeal(ctx context.Context, sess Session, id string) (model.Deal, error) {
	if err := sess.Validate(); err != nil {
		return model.Deal{}, fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	d, err := s.repo.GetDeal(ctx, id)
	if err != nil {
		return model.Deal{}, err
	}
	if !visible(sess, d) {
		return model.Deal{}, fmt.Errorf("deal %s: %w", id, ErrNotFound)
	}
	return d, nil
}

// ListDeals returns the deals visible to the session, optionally narrowed to
// one status.
func (s *Service) ListDeals(ctx context.Context, sess Session, status model.DealStatus) ([]model.Deal, error) {
	if err := sess.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	all, err := s.repo.ListDeals(ctx, status)
	if err != nil {
		return nil, err
	}
	var out []model.Deal
	for _, d := range all {
		if visible(sess, d) {
			out = append(out, d)
		}
	}
	return out, nil
}

func visible(sess Session, d model.Deal) bool {
	if sess.Role == RoleSeller {
		return d.Seller == sess.UserID
	}
	return d.Status == model.DealActive
}

// BuyerMatch is one buyer profile whose criteria cover a deal.
type BuyerMatch struct {
	Profile          model.Profile `json:"profile"`
	GeoDistance      int           `json:"geo_distance"`
	IndustryDistance int           `json:"industry_distance"`
}

// Distance is the combined specificity; lower is a tighter fit.
func (m BuyerMatch) Distance() int {
	return m.GeoDistance + m.IndustryDistance
}

// MatchBuyers finds buyer profiles whose target criteria include the deal's
// geography and industry, directly or through an ancestor. An empty
// criteria list accepts anything at the loosest distance (the tree depth).
// Results are ordered tightest fit first.
func (s *Service) MatchBuyers(ctx context.Context, sess Session, dealID string) ([]BuyerMatch, error) {
	defer metrics.Time(metrics.BuyerMatch, "")()
	d, err := s.ownedDeal(ctx, sess, dealID)
	if err != nil {
		return nil, err
	}
	c, err := s.Catalogs(ctx)
	if err != nil {
		return nil, err
	}
	profiles, err := s.repo.ListProfiles(ctx, datasource.ProfileQuery{})
	if err != nil {
		return nil, err
	}
	return rankBuyers(c, d, profiles), nil
}

func rankBuyers(c *taxonomy.Catalogs, d model.Deal, profiles []model.Profile) []BuyerMatch {
	var out []BuyerMatch
	for _, p := range profiles {
		geo, ok := coverDistance(c.Geography, p.TargetCriteria.Countries, d.GeographySelection)
		if !ok {
			continue
		}
		ind, ok := coverDistance(c.Industry, p.TargetCriteria.IndustrySectors, d.IndustrySector)
		if !ok {
			continue
		}
		out = append(out, BuyerMatch{Profile: p, GeoDistance: geo, IndustryDistance: ind})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Distance() != out[j].Distance() {
			return out[i].Distance() < out[j].Distance()
		}
		return out[i].Profile.ID < out[j].Profile.ID
	})
	return out
}

func coverDistance(tree *taxonomy.Tree, selected []string, name string) (int, bool) {
	if len(selected) == 0 {
		return tree.Depth(), true
	}
	return taxonomy.Covers(tree, selected, name)
}

// DealEditor edits a deal through two single-select selectors bound to the
// input's geography and industry.
type DealEditor struct {
	Input     DealInput
	Geography *selection.Selector
	Industry  *selection.Selector

	dealID  string
	svc     *Service
	session Session
}

// OpenDealEditor prepares an editor for deal id, or for a new deal when id
// is empty.
func (s *Service) OpenDealEditor(ctx context.Context, sess Session, id string) (*DealEditor, error) {
	if err := sess.require(RoleSeller); err != nil {
		return nil, err
	}
	e := &DealEditor{svc: s, session: sess, dealID: id}
	if id != "" {
		d, err := s.ownedDeal(ctx, sess, id)
		if err != nil {
			return nil, err
		}
		e.Input = DealInput{
			Title:       d.Title,
			Geography:   d.GeographySelection,
			Industry:    d.IndustrySector,
			AskingPrice: d.AskingPrice,
			Description: d.Description,
		}
	}
	c, err := s.Catalogs(ctx)
	if err != nil {
		return nil, err
	}
	e.bind(c)
	return e, nil
}

func (e *DealEditor) bind(c *taxonomy.Catalogs) {
	e.Geography = selection.New(c.Geography, nonEmpty(e.Input.Geography), selection.WithSingleSelect(),
		selection.WithOnChange(func(names []string) { e.Input.Geography = first(names) }))
	e.Industry = selection.New(c.Industry, nonEmpty(e.Input.Industry), selection.WithSingleSelect(),
		selection.WithOnChange(func(names []string) { e.Input.Industry = first(names) }))
}

// Rebind rebuilds both selectors against freshly loaded catalogs. The input
// keeps its names even if they no longer resolve; Save reports those.
func (e *DealEditor) Rebind(ctx context.Context) error {
	e.svc.InvalidateCatalogs()
	c, err := e.svc.Catalogs(ctx)
	if err != nil {
		return err
	}
	e.bind(c)
	return nil
}

// IsNew reports whether saving will create a deal.
func (e *DealEditor) IsNew() bool { return e.dealID == "" }

// Save creates or updates the deal.
func (e *DealEditor) Save(ctx context.Context) (model.Deal, error) {
	if e.dealID == "" {
		d, err := e.svc.CreateDeal(ctx, e.session, e.Input)
		if err != nil {
			return model.Deal{}, err
		}
		e.dealID = d.ID
		return d, nil
	}
	return e.svc.UpdateDeal(ctx, e.session, e.dealID, e.Input)
}

func nonEmpty(name string) []string {
	if name == "" {
		return nil
	}
	return []string{name}
}

func first(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return names[0]
}
