// Package normalize canonicalizes user-supplied identifiers before they are
// stored or compared.
package normalize

import (
	"strings"

	"github.com/dalemusser/waffle/pantry/text"
)

// Email trims and lowercases an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a display name and collapses inner whitespace. Case is kept.
func Name(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Username trims a candidate username. Case is kept for display.
func Username(s string) string {
	return strings.TrimSpace(s)
}

// UsernameKey returns the case-insensitive form of a username used as the
// reservation key and for lookups.
func UsernameKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NameKey folds a display name for case/diacritic-insensitive sorting.
func NameKey(s string) string {
	return text.Fold(Name(s))
}

// Role trims and lowercases a role value.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// QueryParam trims a query-string value. Case is kept.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}
