// internal/app/features/notifications/routes.go
package notifications

import "github.com/go-chi/chi/v5"

// Routes is mounted under /api/notifications behind RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Get("/unread", h.ServeUnreadCount)
	r.Get("/stream", h.ServeStream)
	r.Post("/read-all", h.HandleMarkAllRead)
	r.Post("/{id}/read", h.HandleMarkRead)
	r.Delete("/{id}", h.HandleDelete)
	return r
}
