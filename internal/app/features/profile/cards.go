package profile

import (
	"context"
	"errors"
	"net/http"

	cardstore "github.com/dalemusser/cardhub/internal/app/store/cards"
	"github.com/dalemusser/cardhub/internal/app/system/respond"
	"github.com/dalemusser/cardhub/internal/app/system/timeouts"
	"github.com/dalemusser/cardhub/internal/app/system/validate"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

type cardsResponse struct {
	Cards []models.Card `json:"cards"`
}

type cardRequest struct {
	Label  string `json:"label" validate:"maxgraphemes=60"`
	Active bool   `json:"active"`
}

// GET /api/me/cards
func (h *Handler) ServeCards(w http.ResponseWriter, r *http.Request) {
	id, _, ok := caller(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	cards, err := h.Cards.ListByUser(ctx, id)
	if err != nil {
		respond.ServerError(w, r, h.Log, "list cards failed", err)
		return
	}
	if cards == nil {
		cards = []models.Card{}
	}
	respond.OK(w, r, cardsResponse{Cards: cards})
}

// PUT /api/me/cards/{cardID} relabels or (de)activates one of the caller's
// cards. A deactivated card redirects to the not-found page.
func (h *Handler) HandleCardUpdate(w http.ResponseWriter, r *http.Request) {
	id, _, ok := caller(w, r)
	if !ok {
		return
	}
	var req cardRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, r, errors.New("malformed JSON body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		respond.Invalid(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	cardID := chi.URLParam(r, "cardID")
	err := h.Cards.Update(ctx, cardID, id, req.Label, req.Active)
	if errors.Is(err, cardstore.ErrNotFound) {
		respond.NotFound(w, r)
		return
	}
	if err != nil {
		respond.ServerError(w, r, h.Log, "update card failed", err)
		return
	}
	card, err := h.Cards.Get(ctx, cardID)
	if err != nil {
		respond.ServerError(w, r, h.Log, "reload card failed", err)
		return
	}
	respond.OK(w, r, card)
}
