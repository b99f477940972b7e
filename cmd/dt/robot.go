package main

import (
	"context"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/dealtree/pkg/model"
	"github.com/vanderheijden86/dealtree/pkg/selection"
	"github.com/vanderheijden86/dealtree/pkg/taxonomy"
)

// Robot output is indented JSON on stdout; diagnostics stay on stderr.

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) catalogs(ctx context.Context) (*taxonomy.Catalogs, error) {
	c, err := taxonomy.LoadCatalogs(ctx, a.geo, a.ind)
	if err != nil {
		return nil, err
	}
	for _, w := range c.Warnings {
		fmt.Fprintf(a.stderr, "Warning: %s\n", w)
	}
	return c, nil
}

type catalogOutput struct {
	Kind   taxonomy.Kind         `json:"kind"`
	Levels []string              `json:"levels"`
	Nodes  int                   `json:"nodes"`
	Tree   []taxonomy.ExportNode `json:"tree"`
}

func (a *app) robotCatalog(ctx context.Context, kindArg string) error {
	kind, err := taxonomy.ParseKind(kindArg)
	if err != nil {
		return err
	}
	c, err := a.catalogs(ctx)
	if err != nil {
		return err
	}
	t := c.Tree(kind)
	return a.writeJSON(catalogOutput{
		Kind:   kind,
		Levels: t.Levels,
		Nodes:  t.Len(),
		Tree:   taxonomy.Export(t, t.Roots),
	})
}

type unmatchedOutput struct {
	Name        string   `json:"name"`
	Suggestions []string `json:"suggestions,omitempty"`
}

type normalizeOutput struct {
	Kind      taxonomy.Kind     `json:"kind"`
	Input     []string          `json:"input"`
	Names     []string          `json:"names"`
	Unmatched []unmatchedOutput `json:"unmatched,omitempty"`
}

func splitNames(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// robotNormalize loads names into a selector and prints its minimal
// serialization, so callers can canonicalize stored criteria.
func (a *app) robotNormalize(ctx context.Context, kindArg, names string) error {
	kind, err := taxonomy.ParseKind(kindArg)
	if err != nil {
		return err
	}
	c, err := a.catalogs(ctx)
	if err != nil {
		return err
	}
	t := c.Tree(kind)
	input := splitNames(names)
	sel := selection.New(t, input)

	out := normalizeOutput{
		Kind:  kind,
		Input: input,
		Names: sel.Serialize(),
	}
	if out.Input == nil {
		out.Input = []string{}
	}
	if out.Names == nil {
		out.Names = []string{}
	}
	for _, n := range sel.Unmatched() {
		out.Unmatched = append(out.Unmatched, unmatchedOutput{Name: n, Suggestions: taxonomy.Suggest(t, n, 3)})
	}
	return a.writeJSON(out)
}

type matchOutput struct {
	ProfileID        string `json:"profile_id"`
	Company          string `json:"company"`
	Owner            string `json:"owner"`
	GeoDistance      int    `json:"geo_distance"`
	IndustryDistance int    `json:"industry_distance"`
	Distance         int    `json:"distance"`
}

func (a *app) robotMatchBuyers(ctx context.Context, dealID string) error {
	matches, err := a.svc.MatchBuyers(ctx, a.sess, dealID)
	if err != nil {
		return err
	}
	out := make([]matchOutput, 0, len(matches))
	for _, m := range matches {
		out = append(out, matchOutput{
			ProfileID:        m.Profile.ID,
			Company:          m.Profile.Company,
			Owner:            m.Profile.Owner,
			GeoDistance:      m.GeoDistance,
			IndustryDistance: m.IndustryDistance,
			Distance:         m.Distance(),
		})
	}
	return a.writeJSON(map[string]any{
		"deal_id": dealID,
		"buyers":  out,
	})
}

func (a *app) robotListDeals(ctx context.Context, statusArg string) error {
	var status model.DealStatus
	if statusArg != "all" {
		s, err := model.ParseDealStatus(statusArg)
		if err != nil {
			return err
		}
		status = s
	}
	deals, err := a.svc.ListDeals(ctx, a.sess, status)
	if err != nil {
		return err
	}
	if deals == nil {
		deals = []model.Deal{}
	}
	return a.writeJSON(deals)
}

func (a *app) robotAuditNames(ctx context.Context) error {
	c, err := a.catalogs(ctx)
	if err != nil {
		return err
	}
	audit, err := a.store.AuditNames(ctx, c)
	if err != nil {
		return err
	}
	if audit.HasStaleNames() {
		fmt.Fprint(a.stderr, audit.Summary())
	}
	return a.writeJSON(audit)
}
