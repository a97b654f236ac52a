// internal/app/features/publicprofile/card.go
package publicprofile

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	cardstore "github.com/dalemusser/cardhub/internal/app/store/cards"
	"github.com/dalemusser/cardhub/internal/app/system/timeouts"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| GET /c/{cardID}                                                              |
| The id is what the NFC tag or QR code carries. Every outcome is a redirect   |
| into the web app so a tapped phone always lands somewhere readable.         |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	cardID := chi.URLParam(r, "cardID")
	card, err := h.Cards.Get(ctx, cardID)
	if err != nil || !card.Active {
		if err != nil && !errors.Is(err, cardstore.ErrNotFound) {
			h.Log.Error("load card failed", zap.String("card_id", cardID), zap.Error(err))
		}
		h.redirect(w, r, "/card-not-found")
		return
	}

	// Taps only count once the card resolves to a visible owner.
	owner, err := h.Users.GetByID(ctx, card.UserID)
	if err != nil || owner.Banned {
		if err != nil {
			h.Log.Warn("card owner lookup failed", zap.String("card_id", cardID), zap.Error(err))
		}
		h.redirect(w, r, "/card-not-found")
		return
	}

	card, err = h.Cards.RecordTap(ctx, cardID)
	if err != nil {
		if !errors.Is(err, cardstore.ErrNotFound) {
			h.Log.Error("record card tap failed", zap.String("card_id", cardID), zap.Error(err))
		}
		h.redirect(w, r, "/card-not-found")
		return
	}

	h.recordQuietly(ctx, r, models.Interaction{OwnerID: owner.ID, Type: models.InteractionTap, CardID: card.ID})

	if owner.Username != "" {
		h.redirect(w, r, "/u/"+url.PathEscape(owner.Username))
		return
	}
	h.redirect(w, r, "/p/"+owner.ID.Hex())
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, strings.TrimSuffix(h.PublicBaseURL, "/")+path, http.StatusFound)
}
