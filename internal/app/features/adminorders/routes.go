// internal/app/features/adminorders/routes.go
package adminorders

import "github.com/go-chi/chi/v5"

// Routes is mounted under /api/admin/orders behind RequireStaff.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeOrder)
	r.Post("/{id}/advance", h.HandleAdvance)
	r.Put("/{id}/tracking", h.HandleTracking)
	return r
}
