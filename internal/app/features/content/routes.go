// internal/app/features/content/routes.go
package content

import "github.com/go-chi/chi/v5"

// Routes is mounted at /api/content and needs no session.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/{slug}", h.ServeContent)
	return r
}

// AdminRoutes is mounted at /api/admin/content behind RequireStaff.
func AdminRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeAll)
	r.Put("/{slug}", h.HandleSave)
	return r
}
