// internal/domain/models/authmethods.go
package models

// Auth methods a user record can carry.
const (
	AuthPassword = "password"
	AuthGoogle   = "google"
	AuthFirebase = "firebase"
)

// IsValidAuthMethod checks if a value is a supported auth method.
func IsValidAuthMethod(value string) bool {
	switch value {
	case AuthPassword, AuthGoogle, AuthFirebase:
		return true
	}
	return false
}
