// Package model holds the marketplace records that carry taxonomy
// selections: buyer profiles and seller deals. Selections are persisted as
// flat lists of catalog names, never IDs.
package model

import (
	"fmt"
	"strings"
	"time"
)

// ProfileKind distinguishes what a buyer profile describes
type ProfileKind string

const (
	KindAcquire ProfileKind = "acquire"
	KindCompany ProfileKind = "company"
)

// IsValid returns true if the kind is a recognized value
func (k ProfileKind) IsValid() bool {
	switch k {
	case KindAcquire, KindCompany:
		return true
	}
	return false
}

// TargetCriteria is what a buyer is looking for. Both lists hold the minimal
// serialized selection over their catalog.
type TargetCriteria struct {
	Countries       []string `json:"countries"`
	IndustrySectors []string `json:"industrySectors"`
}

// IsEmpty reports whether the buyer has not narrowed anything down.
func (c TargetCriteria) IsEmpty() bool {
	return len(c.Countries) == 0 && len(c.IndustrySectors) == 0
}

// Profile is a buyer's acquisition or company profile
type Profile struct {
	ID             string         `json:"id"`
	Kind           ProfileKind    `json:"kind"`
	Company        string         `json:"company"`
	Owner          string         `json:"owner"`
	TargetCriteria TargetCriteria `json:"targetCriteria"`
	Description    string         `json:"description,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Clone creates a deep copy of the profile
func (p Profile) Clone() Profile {
	clone := p
	clone.TargetCriteria.Countries = cloneNames(p.TargetCriteria.Countries)
	clone.TargetCriteria.IndustrySectors = cloneNames(p.TargetCriteria.IndustrySectors)
	return clone
}

// Validate checks if the profile data is logically valid
func (p *Profile) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("profile ID cannot be empty")
	}
	if strings.TrimSpace(p.Company) == "" {
		return fmt.Errorf("profile company cannot be empty")
	}
	if p.Owner == "" {
		return fmt.Errorf("profile owner cannot be empty")
	}
	if !p.Kind.IsValid() {
		return fmt.Errorf("invalid profile kind: %s", p.Kind)
	}
	if err := checkNames("countries", p.TargetCriteria.Countries); err != nil {
		return err
	}
	if err := checkNames("industrySectors", p.TargetCriteria.IndustrySectors); err != nil {
		return err
	}
	return checkTimes(p.CreatedAt, p.UpdatedAt)
}

func cloneNames(names []string) []string {
	if names == nil {
		return nil
	}
	out := make([]string, len(names))
	copy(out, names)
	return out
}

func checkNames(field string, names []string) error {
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return fmt.Errorf("%s contains an empty name", field)
		}
		if seen[n] {
			return fmt.Errorf("%s lists %q twice", field, n)
		}
		seen[n] = true
	}
	return nil
}

func checkTimes(created, updated time.Time) error {
	if !updated.IsZero() && !created.IsZero() && updated.Before(created) {
		return fmt.Errorf("updated_at (%v) cannot be before created_at (%v)", updated, created)
	}
	return nil
}
