// Package wizard implements the interactive prompts behind --new-profile and
// --new-deal. Forms fall back to huh's accessible mode when stdin is not a
// terminal, so the same flow works when answers are piped in.
package wizard

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/vanderheijden86/dealtree/pkg/marketplace"
	"github.com/vanderheijden86/dealtree/pkg/model"
	"github.com/vanderheijden86/dealtree/pkg/taxonomy"
)

// isTerminal checks if stdin is connected to a terminal
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form with appropriate settings based on TTY detection
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// treeOptions lists every node as a form option, labelled with its full
// path and valued with its name.
func treeOptions(t *taxonomy.Tree) []huh.Option[string] {
	var opts []huh.Option[string]
	var walk func(nodes []*taxonomy.Node)
	walk = func(nodes []*taxonomy.Node) {
		for _, n := range nodes {
			opts = append(opts, huh.NewOption(n.Path(), n.Name))
			walk(n.Children)
		}
	}
	walk(t.Roots)
	return opts
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

// ParsePrice accepts whole amounts with optional thousands separators and
// an optional k/m suffix ("250k", "1.5m", "1,200,000"). Empty means 0.
func ParsePrice(s string) (int64, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(",", "", "_", "", " ", "").Replace(s)
	if s == "" {
		return 0, nil
	}
	mult := 1.0
	switch {
	case strings.HasSuffix(s, "k"):
		mult, s = 1e3, strings.TrimSuffix(s, "k")
	case strings.HasSuffix(s, "m"):
		mult, s = 1e6, strings.TrimSuffix(s, "m")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("price cannot be negative")
	}
	return int64(v*mult + 0.5), nil
}

// ProfileAnswers are the values collected by the profile form.
type ProfileAnswers struct {
	Company     string
	Kind        string
	Description string
	Countries   []string
	Sectors     []string
}

// Apply copies the answers into an editor. Picked names go through the
// selectors, so picking every child of a node stores the node instead.
func (a ProfileAnswers) Apply(e *marketplace.ProfileEditor) error {
	kind := model.ProfileKind(a.Kind)
	if a.Kind == "" {
		kind = model.KindAcquire
	}
	if !kind.IsValid() {
		return fmt.Errorf("invalid profile kind: %s", a.Kind)
	}
	e.Profile.Company = strings.TrimSpace(a.Company)
	e.Profile.Kind = kind
	e.Profile.Description = strings.TrimSpace(a.Description)
	e.Geography.Deserialize(a.Countries)
	e.Industry.Deserialize(a.Sectors)
	return nil
}

// DealAnswers are the values collected by the deal form.
type DealAnswers struct {
	Title       string
	Price       string
	Description string
	Geography   string
	Industry    string
}

// Apply copies the answers into a deal editor.
func (a DealAnswers) Apply(e *marketplace.DealEditor) error {
	price, err := ParsePrice(a.Price)
	if err != nil {
		return err
	}
	e.Input.Title = strings.TrimSpace(a.Title)
	e.Input.AskingPrice = price
	e.Input.Description = strings.TrimSpace(a.Description)
	if a.Geography != "" {
		e.Geography.Deserialize([]string{a.Geography})
	}
	if a.Industry != "" {
		e.Industry.Deserialize([]string{a.Industry})
	}
	return nil
}

// NewProfile asks for a profile's details and target criteria, then saves it.
func NewProfile(ctx context.Context, svc *marketplace.Service, sess marketplace.Session) (model.Profile, error) {
	e, err := svc.NewProfileEditor(ctx, sess, model.KindAcquire, "")
	if err != nil {
		return model.Profile{}, err
	}

	var a ProfileAnswers
	a.Kind = string(model.KindAcquire)
	form := newForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Company name").
				Value(&a.Company).
				Validate(required("company")),
			huh.NewSelect[string]().
				Title("Profile type").
				Options(
					huh.NewOption("Looking to acquire", string(model.KindAcquire)),
					huh.NewOption("Company profile", string(model.KindCompany)),
				).
				Value(&a.Kind),
			huh.NewText().
				Title("Description (optional)").
				Value(&a.Description),
		),
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Target countries").
				Description("Leave empty to match any geography").
				Options(treeOptions(e.Geography.Tree())...).
				Value(&a.Countries).
				Filterable(true).
				Height(12),
		),
		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Target industry sectors").
				Options(treeOptions(e.Industry.Tree())...).
				Value(&a.Sectors).
				Filterable(true).
				Height(12),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		return model.Profile{}, err
	}
	if err := a.Apply(e); err != nil {
		return model.Profile{}, err
	}
	p, _, err := e.Save(ctx)
	return p, err
}

// NewDeal asks for a deal's details and saves it as an active listing.
func NewDeal(ctx context.Context, svc *marketplace.Service, sess marketplace.Session) (model.Deal, error) {
	e, err := svc.OpenDealEditor(ctx, sess, "")
	if err != nil {
		return model.Deal{}, err
	}

	var a DealAnswers
	form := newForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Deal title").
				Value(&a.Title).
				Validate(required("title")),
			huh.NewInput().
				Title("Asking price").
				Placeholder("e.g. 2.5m").
				Value(&a.Price).
				Validate(func(s string) error {
					_, err := ParsePrice(s)
					return err
				}),
			huh.NewText().
				Title("Description (optional)").
				Value(&a.Description),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Geography").
				Options(treeOptions(e.Geography.Tree())...).
				Value(&a.Geography).
				Filtering(true).
				Height(12),
			huh.NewSelect[string]().
				Title("Industry").
				Options(treeOptions(e.Industry.Tree())...).
				Value(&a.Industry).
				Filtering(true).
				Height(12),
		),
	)
	if err := form.RunWithContext(ctx); err != nil {
		return model.Deal{}, err
	}
	if err := a.Apply(e); err != nil {
		return model.Deal{}, err
	}
	return e.Save(ctx)
}
