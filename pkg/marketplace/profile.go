package marketplace

import (
	"context"
	"fmt"
	"strings"

	"github.com/vanderheijden86/dealtree/internal/datasource"
	"github.com/vanderheijden86/dealtree/pkg/debug"
	"github.com/vanderheijden86/dealtree/pkg/model"
	"github.com/vanderheijden86/dealtree/pkg/selection"
	"github.com/vanderheijden86/dealtree/pkg/taxonomy"
)

// UnmatchedName is a persisted name the current catalog could not resolve.
type UnmatchedName struct {
	Field       string   `json:"field"`
	Name        string   `json:"name"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// ProfileEditor is an open editing session for one buyer profile. Its two
// selectors are bound to the working copy's target criteria.
type ProfileEditor struct {
	Profile   model.Profile
	Geography *selection.Selector
	Industry  *selection.Selector

	svc       *Service
	session   Session
	isNew     bool
	unmatched []UnmatchedName
}

// OpenProfileEditor loads an existing profile owned by the session's user.
func (s *Service) OpenProfileEditor(ctx context.Context, sess Session, id string) (*ProfileEditor, error) {
	if err := sess.require(RoleBuyer); err != nil {
		return nil, err
	}
	p, err := s.repo.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Owner != sess.UserID {
		return nil, fmt.Errorf("%w: profile %s belongs to another user", ErrForbidden, id)
	}
	return s.newEditor(ctx, sess, p, false)
}

// NewProfileEditor starts a blank profile for the session's user.
func (s *Service) NewProfileEditor(ctx context.Context, sess Session, kind model.ProfileKind, company string) (*ProfileEditor, error) {
	if err := sess.require(RoleBuyer); err != nil {
		return nil, err
	}
	if kind == "" {
		kind = model.KindAcquire
	}
	now := s.timestamp()
	p := model.Profile{
		ID:        s.newID(),
		Kind:      kind,
		Company:   company,
		Owner:     sess.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return s.newEditor(ctx, sess, p, true)
}

func (s *Service) newEditor(ctx context.Context, sess Session, p model.Profile, isNew bool) (*ProfileEditor, error) {
	c, err := s.Catalogs(ctx)
	if err != nil {
		return nil, err
	}
	e := &ProfileEditor{
		Profile: p.Clone(),
		svc:     s,
		session: sess,
		isNew:   isNew,
	}
	e.bind(c, p.TargetCriteria.Countries, p.TargetCriteria.IndustrySectors)
	return e, nil
}

func (e *ProfileEditor) bind(c *taxonomy.Catalogs, countries, sectors []string) {
	e.Geography = selection.New(c.Geography, countries,
		selection.WithOnChange(func(names []string) { e.Profile.TargetCriteria.Countries = names }))
	e.Industry = selection.New(c.Industry, sectors,
		selection.WithOnChange(func(names []string) { e.Profile.TargetCriteria.IndustrySectors = names }))

	e.unmatched = append(unmatchedNames("countries", c.Geography, e.Geography.Unmatched()),
		unmatchedNames("industrySectors", c.Industry, e.Industry.Unmatched())...)
}

// Rebind rebuilds both selectors against freshly loaded catalogs, keeping
// the current selection and any names that have not resolved yet.
func (e *ProfileEditor) Rebind(ctx context.Context) error {
	e.svc.InvalidateCatalogs()
	c, err := e.svc.Catalogs(ctx)
	if err != nil {
		return err
	}
	countries := e.Geography.Serialize()
	sectors := e.Industry.Serialize()
	for _, u := range e.unmatched {
		switch u.Field {
		case "countries":
			countries = append(countries, u.Name)
		case "industrySectors":
			sectors = append(sectors, u.Name)
		}
	}
	e.bind(c, countries, sectors)
	e.Profile.TargetCriteria = model.TargetCriteria{
		Countries:       e.Geography.Serialize(),
		IndustrySectors: e.Industry.Serialize(),
	}
	debug.Log("rebound profile %s: %d unmatched", e.Profile.ID, len(e.unmatched))
	return nil
}

func unmatchedNames(field string, tree *taxonomy.Tree, names []string) []UnmatchedName {
	var out []UnmatchedName
	for _, n := range names {
		out = append(out, UnmatchedName{Field: field, Name: n, Suggestions: taxonomy.Suggest(tree, n, 3)})
	}
	return out
}

// IsNew reports whether the profile has never been saved.
func (e *ProfileEditor) IsNew() bool { return e.isNew }

// Unmatched lists persisted names that did not resolve when the editor was
// opened. Saving drops them.
func (e *ProfileEditor) Unmatched() []UnmatchedName { return e.unmatched }

// Save writes the working copy. The criteria saved are always the selectors'
// minimal serialization, so names that failed to resolve are not carried
// forward. The returned list reports what was dropped.
func (e *ProfileEditor) Save(ctx context.Context) (model.Profile, []UnmatchedName, error) {
	e.Profile.Company = strings.TrimSpace(e.Profile.Company)
	e.Profile.TargetCriteria = model.TargetCriteria{
		Countries:       e.Geography.Serialize(),
		IndustrySectors: e.Industry.Serialize(),
	}
	e.Profile.UpdatedAt = e.svc.timestamp()
	if err := e.svc.repo.SaveProfile(ctx, e.Profile); err != nil {
		return model.Profile{}, nil, err
	}
	dropped := e.unmatched
	e.unmatched = nil
	e.isNew = false
	debug.Log("saved profile %s: %d countries, %d sectors, %d dropped",
		e.Profile.ID, len(e.Profile.TargetCriteria.Countries), len(e.Profile.TargetCriteria.IndustrySectors), len(dropped))
	return e.Profile.Clone(), dropped, nil
}

// ListProfiles returns the session user's profiles.
func (s *Service) ListProfiles(ctx context.Context, sess Session) ([]model.Profile, error) {
	if err := sess.require(RoleBuyer); err != nil {
		return nil, err
	}
	return s.repo.ListProfiles(ctx, datasource.ProfileQuery{Owner: sess.UserID})
}

// DeleteProfile removes one of the session user's profiles.
func (s *Service) DeleteProfile(ctx context.Context, sess Session, id string) error {
	if err := sess.require(RoleBuyer); err != nil {
		return err
	}
	p, err := s.repo.GetProfile(ctx, id)
	if err != nil {
		return err
	}
	if p.Owner != sess.UserID {
		return fmt.Errorf("%w: profile %s belongs to another user", ErrForbidden, id)
	}
	return s.repo.DeleteProfile(ctx, id)
}

// ImportProfile stores a profile read from an external file on behalf of the
// session user, normalizing its criteria through the catalogs.
func (s *Service) ImportProfile(ctx context.Context, sess Session, p model.Profile) (model.Profile, []UnmatchedName, error) {
	if err := sess.require(RoleBuyer); err != nil {
		return model.Profile{}, nil, err
	}
	if p.ID == "" {
		p.ID = s.newID()
	}
	if p.Kind == "" {
		p.Kind = model.KindAcquire
	}
	p.Owner = sess.UserID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.timestamp()
	}
	e, err := s.newEditor(ctx, sess, p, true)
	if err != nil {
		return model.Profile{}, nil, err
	}
	return e.Save(ctx)
}
