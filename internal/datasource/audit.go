package datasource

import (
	"context"
	"fmt"
	"strings"

	"github.com/vanderheijden86/dealtree/pkg/taxonomy"
)

// StaleName is one persisted name the current catalog no longer knows.
type StaleName struct {
	RecordID    string   `json:"record_id"`
	Field       string   `json:"field"`
	Name        string   `json:"name"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// NameAudit compares persisted selections against the loaded catalogs.
type NameAudit struct {
	ProfilesChecked int         `json:"profiles_checked"`
	DealsChecked    int         `json:"deals_checked"`
	Stale           []StaleName `json:"stale,omitempty"`
}

// HasStaleNames returns true if any record references an unknown name
func (a NameAudit) HasStaleNames() bool {
	return len(a.Stale) > 0
}

// Summary returns a human-readable summary of the audit
func (a NameAudit) Summary() string {
	if !a.HasStaleNames() {
		return fmt.Sprintf("All names resolve (%d profiles, %d deals)", a.ProfilesChecked, a.DealsChecked)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d stale names across %d profiles and %d deals:\n", len(a.Stale), a.ProfilesChecked, a.DealsChecked)
	for i, s := range a.Stale {
		if i == 5 {
			fmt.Fprintf(&sb, "  ... and %d more\n", len(a.Stale)-5)
			break
		}
		fmt.Fprintf(&sb, "  - %s %s: %q", s.RecordID, s.Field, s.Name)
		if len(s.Suggestions) > 0 {
			fmt.Fprintf(&sb, " (did you mean %s?)", strings.Join(s.Suggestions, ", "))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// AuditNames scans every stored profile and deal for names that the catalogs
// cannot resolve, as happens after a catalog rename.
func (s *Store) AuditNames(ctx context.Context, c *taxonomy.Catalogs) (NameAudit, error) {
	var audit NameAudit

	profiles, err := s.ListProfiles(ctx, ProfileQuery{})
	if err != nil {
		return audit, err
	}
	deals, err := s.ListDeals(ctx, "")
	if err != nil {
		return audit, err
	}
	audit.ProfilesChecked = len(profiles)
	audit.DealsChecked = len(deals)

	check := func(id, field string, tree *taxonomy.Tree, names ...string) {
		for _, n := range names {
			if n == "" || tree.FindByName(n) != nil {
				continue
			}
			audit.Stale = append(audit.Stale, StaleName{
				RecordID:    id,
				Field:       field,
				Name:        n,
				Suggestions: taxonomy.Suggest(tree, n, 3),
			})
		}
	}
	for _, p := range profiles {
		check(p.ID, "countries", c.Geography, p.TargetCriteria.Countries...)
		check(p.ID, "industrySectors", c.Industry, p.TargetCriteria.IndustrySectors...)
	}
	for _, d := range deals {
		check(d.ID, "geographySelection", c.Geography, d.GeographySelection)
		check(d.ID, "industrySector", c.Industry, d.IndustrySector)
	}
	return audit, nil
}
