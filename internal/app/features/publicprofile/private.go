// internal/app/features/publicprofile/private.go
package publicprofile

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/cardhub/internal/app/policy/profilepolicy"
	privatestore "github.com/dalemusser/cardhub/internal/app/store/privatecontent"
	"github.com/dalemusser/cardhub/internal/app/system/pinlock"
	"github.com/dalemusser/cardhub/internal/app/system/respond"
	"github.com/dalemusser/cardhub/internal/app/system/timeouts"
	"github.com/dalemusser/cardhub/internal/app/system/validate"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type unlockRequest struct {
	PIN string `json:"pin" validate:"required,pin"`
}

type unlockResponse struct {
	Items     []models.PrivateItem `json:"items"`
	Token     string               `json:"token"`
	ExpiresAt time.Time            `json:"expires_at"`
}

type privateItemsResponse struct {
	Items []models.PrivateItem `json:"items"`
}

// privateEnabled reports whether u's plan still includes private content.
// It writes 404 when it does not.
func (h *Handler) privateEnabled(ctx context.Context, w http.ResponseWriter, r *http.Request, u *models.User) bool {
	_, features, err := h.Plans.Entitlements(ctx, u.PlanID)
	if err != nil {
		respond.ServerError(w, r, h.Log, "load plan entitlements failed", err)
		return false
	}
	if !features.PrivateContent {
		respond.NotFound(w, r)
		return false
	}
	return true
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/p/{id}/unlock                                                      |
| Every attempt counts against the IP+profile window, right or wrong. A       |
| correct PIN clears the window.                                               |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleUnlock(w http.ResponseWriter, r *http.Request) {
	u, ok := h.viewable(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	profileID := u.ID.Hex()

	if !h.Unlocks.Allow(r, profileID) {
		h.Log.Warn("pin unlock rate limited", zap.String("profile_id", profileID))
		respond.TooManyRequests(w, r, "too many attempts, please try again later", h.Unlocks.RetryAfter(r, profileID))
		return
	}

	var req unlockRequest
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
	if !h.privateEnabled(ctx, w, r, u) {
		return
	}

	pc, err := h.Private.Unlock(ctx, u.ID, req.PIN)
	switch {
	case errors.Is(err, privatestore.ErrNoPIN):
		respond.NotFound(w, r)
		return
	case errors.Is(err, privatestore.ErrWrongPIN):
		respond.Error(w, r, http.StatusForbidden, err.Error())
		return
	case err != nil:
		respond.ServerError(w, r, h.Log, "unlock private content failed", err)
		return
	}
	h.Unlocks.Reset(r, profileID)

	token, expires, err := h.Tokens.Issue(profileID, pc.PinHash)
	if err != nil {
		respond.ServerError(w, r, h.Log, "issue unlock token failed", err)
		return
	}
	items := pc.Items
	if items == nil {
		items = []models.PrivateItem{}
	}
	respond.OK(w, r, unlockResponse{Items: items, Token: token, ExpiresAt: expires})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/p/{id}/private                                                      |
| Requires the unlock token in X-Unlock-Token unless the caller is the owner. |
| A token stops working once the PIN it was issued under changes.             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServePrivate(w http.ResponseWriter, r *http.Request) {
	u, ok := h.viewable(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()
	if !h.privateEnabled(ctx, w, r, u) {
		return
	}

	pc, err := h.Private.Get(ctx, u.ID)
	if err != nil && !errors.Is(err, privatestore.ErrNotFound) {
		respond.ServerError(w, r, h.Log, "load private content failed", err)
		return
	}
	if !profilepolicy.IsOwner(r, u) {
		var pinHash string
		if pc != nil {
			pinHash = pc.PinHash
		}
		if err := h.Tokens.Verify(r.Header.Get(pinlock.Header), u.ID.Hex(), pinHash); err != nil {
			respond.Error(w, r, http.StatusUnauthorized, err.Error())
			return
		}
	}
	if pc == nil {
		respond.NotFound(w, r)
		return
	}
	items := pc.Items
	if items == nil {
		items = []models.PrivateItem{}
	}
	respond.OK(w, r, privateItemsResponse{Items: items})
}
