// internal/app/features/adminusers/routes.go
package adminusers

import (
	"github.com/dalemusser/cardhub/internal/app/system/auth"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted under /api/admin/users behind RequireStaff. Role
// changes additionally need a super admin.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeUser)
	r.Post("/{id}/ban", h.HandleBan)
	r.Post("/{id}/unban", h.HandleUnban)
	r.Post("/{id}/warn", h.HandleWarn)
	r.Delete("/{id}/warning", h.HandleClearWarning)
	r.Put("/{id}/username", h.HandleUsername)
	r.With(sm.RequireRole(models.RoleSuperAdmin)).Put("/{id}/role", h.HandleRole)
	return r
}
