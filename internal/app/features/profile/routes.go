// internal/app/features/profile/routes.go
package profile

import "github.com/go-chi/chi/v5"

// Routes is mounted under /api/me behind RequireSignedIn.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeProfile)
	r.Put("/", h.HandleUpdate)
	r.Delete("/", h.HandleDeleteAccount)

	r.Post("/photo", h.HandlePhotoUpload)
	r.Delete("/photo", h.HandlePhotoDelete)

	r.Get("/private", h.ServePrivate)
	r.Put("/private", h.HandlePrivateUpdate)
	r.Put("/private/pin", h.HandleSetPIN)

	r.Get("/blocked", h.ServeBlocked)
	r.Put("/blocked/{userID}", h.HandleBlock)
	r.Delete("/blocked/{userID}", h.HandleUnblock)

	r.Put("/username", h.HandleUsername)
	r.Get("/username/available", h.ServeUsernameAvailable)

	r.Get("/cards", h.ServeCards)
	r.Put("/cards/{cardID}", h.HandleCardUpdate)
	return r
}
