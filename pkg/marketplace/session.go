// Package marketplace is the service layer between the selection widgets and
// the store. Buyers edit acquisition profiles whose target criteria are
// bound to two hierarchical selectors; sellers list deals and find buyers
// whose criteria cover them.
//
// Every call takes an explicit Session. Nothing is read from ambient state.
package marketplace

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vanderheijden86/dealtree/internal/datasource"
)

var (
	// ErrForbidden is returned when the session may not perform the call.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound aliases the store's sentinel so callers need only one.
	ErrNotFound = datasource.ErrNotFound
	// ErrUnknownName is returned when a deal names a catalog entry that does
	// not exist.
	ErrUnknownName = errors.New("unknown catalog name")
)

// Role is what a user is doing on the marketplace
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// IsValid returns true if the role is a recognized value
func (r Role) IsValid() bool {
	return r == RoleBuyer || r == RoleSeller
}

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.IsValid() {
		return "", fmt.Errorf("unknown role %q (want buyer or seller)", s)
	}
	return r, nil
}

// Session identifies the caller. Token is carried for callers that front a
// remote API; the local service only requires it to be non-empty when set
// through configuration.
type Session struct {
	UserID string `json:"user_id" yaml:"user_id"`
	Role   Role   `json:"role" yaml:"role"`
	Token  string `json:"token,omitempty" yaml:"token,omitempty"`
}

// Validate checks the session is usable
func (s Session) Validate() error {
	if strings.TrimSpace(s.UserID) == "" {
		return fmt.Errorf("session has no user ID")
	}
	if !s.Role.IsValid() {
		return fmt.Errorf("session role %q is not buyer or seller", s.Role)
	}
	return nil
}

func (s Session) require(role Role) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	if s.Role != role {
		return fmt.Errorf("%w: %s session cannot act as %s", ErrForbidden, s.Role, role)
	}
	return nil
}
