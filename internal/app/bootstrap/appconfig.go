// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables (CARDHUB_*), configuration
// files, or command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig
// covers the framework-level settings: ports, TLS, log level and request
// limits. Everything specific to CardHub lives here.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string        // Secret key for signing session cookies (must be strong in production)
	SessionName   string        // Cookie name for sessions (default: cardhub-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// UnlockKey signs PIN unlock tokens. Blank falls back to SessionKey.
	UnlockKey string

	// Public URLs
	PublicBaseURL string   // Web app origin, target of card redirects and OAuth returns
	APIBaseURL    string   // Where this server is reachable, used for OAuth callbacks
	CORSOrigins   []string // Origins allowed to call the API and open the notification socket

	// File storage configuration
	StorageType      string // Storage backend: "local" or "s3"
	StorageLocalPath string // Local storage root (e.g., "./uploads")
	StorageLocalURL  string // URL prefix for serving local files (e.g., "/files")

	// S3 configuration (only used if StorageType is "s3")
	StorageS3Region    string
	StorageS3Bucket    string
	StorageS3Prefix    string
	StorageS3Endpoint  string // non-empty for R2/MinIO
	StorageS3PublicURL string // CDN or public bucket URL; blank means presigned GETs
	StorageS3AccessKey string // blank uses the default AWS credential chain
	StorageS3SecretKey string

	// Redis backs the notification hub when set; otherwise the hub is in memory.
	RedisAddr     string
	RedisPassword string

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string

	// Google OAuth configuration
	GoogleClientID     string
	GoogleClientSecret string

	// Firebase ID token sign in
	FirebaseProjectID       string
	FirebaseCredentialsFile string

	// Audit logging: all, db, log or off per category
	AuditLogAuth  string
	AuditLogAdmin string

	// SuperAdmin bootstrap
	SuperAdminEmail string
}
