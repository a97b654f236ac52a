// internal/app/features/publicprofile/routes.go
package publicprofile

import "github.com/go-chi/chi/v5"

// Routes is mounted at /api. Session users are loaded but not required.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/u/{username}", h.ServeByUsername)

	r.Route("/p/{id}", func(r chi.Router) {
		r.Get("/", h.ServeByID)
		r.Get("/vcard", h.ServeVCard)
		r.Post("/unlock", h.HandleUnlock)
		r.Get("/private", h.ServePrivate)
		r.Post("/message", h.HandleMessage)
	})
	return r
}

// CardRoutes is mounted at /c.
func CardRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/{cardID}", h.ServeCard)
	return r
}
