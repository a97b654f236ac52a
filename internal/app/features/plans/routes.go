// internal/app/features/plans/routes.go
package plans

import "github.com/go-chi/chi/v5"

// Routes is mounted at /api/plans.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeActive)
	return r
}

// AdminRoutes is mounted at /api/admin/plans behind RequireStaff.
func AdminRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeAll)
	r.Put("/{id}/entitlements", h.HandleEntitlements)
	return r
}
