// internal/app/features/reports/routes.go
package reports

import "github.com/go-chi/chi/v5"

// Routes is mounted at /api/reports behind RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.HandleSubmit)
	return r
}

// AdminRoutes is mounted at /api/admin/reports behind RequireStaff.
func AdminRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeReport)
	r.Post("/{id}/close", h.HandleClose)
	return r
}
