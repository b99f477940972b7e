package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidTransition is returned when a deal cannot move to the requested
// status from its current one.
var ErrInvalidTransition = errors.New("invalid status transition")

// DealStatus is the listing state of a deal
type DealStatus string

const (
	DealActive    DealStatus = "active"
	DealOffMarket DealStatus = "off_market"
	DealCompleted DealStatus = "completed"
)

// IsValid returns true if the status is a recognized value
func (s DealStatus) IsValid() bool {
	switch s {
	case DealActive, DealOffMarket, DealCompleted:
		return true
	}
	return false
}

// IsTerminal returns true once the deal can no longer change status
func (s DealStatus) IsTerminal() bool {
	return s == DealCompleted
}

// ParseDealStatus accepts the stored spelling plus a hyphenated variant.
func ParseDealStatus(s string) (DealStatus, error) {
	st := DealStatus(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if !st.IsValid() {
		return "", fmt.Errorf("unknown deal status %q", s)
	}
	return st, nil
}

var dealTransitions = map[DealStatus][]DealStatus{
	DealActive:    {DealOffMarket, DealCompleted},
	DealOffMarket: {DealActive, DealCompleted},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to DealStatus) bool {
	for _, s := range dealTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Deal is a seller's listing. Geography and industry are single selections,
// so each field holds at most one catalog name.
type Deal struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Seller             string     `json:"seller"`
	GeographySelection string     `json:"geographySelection"`
	IndustrySector     string     `json:"industrySector"`
	AskingPrice        int64      `json:"askingPrice,omitempty"`
	Description        string     `json:"description,omitempty"`
	Status             DealStatus `json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// Validate checks if the deal data is logically valid
func (d *Deal) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("deal ID cannot be empty")
	}
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("deal title cannot be empty")
	}
	if d.Seller == "" {
		return fmt.Errorf("deal seller cannot be empty")
	}
	if !d.Status.IsValid() {
		return fmt.Errorf("invalid deal status: %s", d.Status)
	}
	if d.AskingPrice < 0 {
		return fmt.Errorf("asking price cannot be negative: %d", d.AskingPrice)
	}
	if d.Status == DealCompleted && d.CompletedAt == nil {
		return fmt.Errorf("completed deal has no completed_at")
	}
	return checkTimes(d.CreatedAt, d.UpdatedAt)
}

// Transition moves the deal to status to, stamping UpdatedAt (and
// CompletedAt when the deal closes).
func (d *Deal) Transition(to DealStatus, now time.Time) error {
	if !CanTransition(d.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.Status, to)
	}
	d.Status = to
	d.UpdatedAt = now
	if to == DealCompleted {
		t := now
		d.CompletedAt = &t
	}
	return nil
}
