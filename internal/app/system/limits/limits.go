// internal/app/system/limits/limits.go
package limits

import "github.com/dalemusser/cardhub/internal/app/system/blobstore"

// Request body size limits for various features.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// MaxJSONBody caps every JSON request payload.
	MaxJSONBody = 1 << 20 // 1 MB

	// MaxUploadBody is the multipart ceiling for image uploads: the image
	// itself plus room for the form envelope.
	MaxUploadBody = blobstore.MaxImageSize + 1<<20

	// MaxWebhookBody matches the payload ceiling Stripe documents for events.
	MaxWebhookBody = 64 << 10
)
