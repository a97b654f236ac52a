// internal/app/features/analytics/routes.go
package analytics

import "github.com/go-chi/chi/v5"

// Routes is mounted at /api/me/analytics behind RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeSummary)
	return r
}
