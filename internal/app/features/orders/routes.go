// internal/app/features/orders/routes.go
package orders

import "github.com/go-chi/chi/v5"

// Routes is mounted under /api/orders behind RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Get("/{id}", h.ServeOrder)
	r.Put("/{id}", h.HandleUpdate)
	return r
}

// WebhookRoutes is mounted at /api/webhooks without a session requirement.
func WebhookRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/stripe", h.HandleStripeWebhook)
	return r
}
