// Package usernamepolicy holds the rules for claiming a username.
//
// Rules:
//   - Usernames match [a-zA-Z0-9_]+ and are at most MaxLength characters
//   - Regular users need at least MinLength characters; staff have no minimum
//   - Regular users wait Cooldown between changes; admin and super_admin do not
//   - Removing a username is always allowed
package usernamepolicy

import (
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/dalemusser/cardhub/internal/domain/models"
)

const (
	MinLength = 5
	MaxLength = 30
	Cooldown  = 30 * 24 * time.Hour
)

var pattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidationError describes why a candidate was rejected before any write.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// CooldownError is returned when a user changed their username too recently.
type CooldownError struct {
	DaysRemaining int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active, %d days remaining", e.DaysRemaining)
}

// Validate checks a trimmed candidate for the given role. An empty
// candidate means removal and is always valid.
func Validate(candidate, role string) error {
	if candidate == "" {
		return nil
	}
	if !pattern.MatchString(candidate) {
		return &ValidationError{Reason: "username may only contain letters, numbers and underscores"}
	}
	if len(candidate) > MaxLength {
		return &ValidationError{Reason: fmt.Sprintf("username must be at most %d characters", MaxLength)}
	}
	if !models.IsStaffRole(role) && len(candidate) < MinLength {
		return &ValidationError{Reason: fmt.Sprintf("username must be at least %d characters", MinLength)}
	}
	return nil
}

// BypassesCooldown reports whether role may change usernames at any time.
func BypassesCooldown(role string) bool {
	return models.IsStaffRole(role)
}

// CheckCooldown returns a CooldownError if a user with role who last changed
// their username at lastChanged may not change it at now.
func CheckCooldown(lastChanged *time.Time, role string, now time.Time) error {
	if lastChanged == nil || BypassesCooldown(role) {
		return nil
	}
	remaining := lastChanged.Add(Cooldown).Sub(now)
	if remaining <= 0 {
		return nil
	}
	days := int(math.Ceil(remaining.Hours() / 24))
	return &CooldownError{DaysRemaining: days}
}
