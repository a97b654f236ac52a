// Package profilepolicy decides who may see a profile and how much a
// profile may hold on its plan.
package profilepolicy

import (
	"fmt"
	"net/http"

	"github.com/dalemusser/cardhub/internal/app/system/authz"
	"github.com/dalemusser/cardhub/internal/domain/models"
)

// LimitError is returned when a profile section exceeds its plan limit.
type LimitError struct {
	Section string
	Limit   int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("your plan allows at most %d %s", e.Limit, e.Section)
}

// CanView reports whether the current request may see u's public profile.
// Hidden and banned profiles are visible only to their owner and to staff.
func CanView(r *http.Request, u *models.User) bool {
	if u == nil {
		return false
	}
	if u.IsPublic && !u.Banned {
		return true
	}
	return authz.IsSelfOrAdmin(r, u.ID)
}

// IsOwner reports whether the current user is u.
func IsOwner(r *http.Request, u *models.User) bool {
	id, ok := authz.UserID(r)
	return ok && u != nil && id == u.ID
}

// CheckLimits validates section sizes against the plan limits.
func CheckLimits(limits models.PlanLimits, links, portfolio, contacts int) error {
	switch {
	case links > limits.Links:
		return &LimitError{Section: "links", Limit: limits.Links}
	case portfolio > limits.Portfolio:
		return &LimitError{Section: "portfolio items", Limit: limits.Portfolio}
	case contacts > limits.Contacts:
		return &LimitError{Section: "private contacts", Limit: limits.Contacts}
	}
	return nil
}

// CanMessage reports whether sender may message owner.
func CanMessage(owner *models.User, sender *models.User) bool {
	if owner == nil || owner.Banned {
		return false
	}
	if sender == nil {
		return true
	}
	return sender.ID != owner.ID && !owner.HasBlocked(sender.ID) && !sender.Banned
}
