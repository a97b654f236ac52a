package profile

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/cardhub/internal/app/features/shared"
	userstore "github.com/dalemusser/cardhub/internal/app/store/users"
	"github.com/dalemusser/cardhub/internal/app/system/respond"
	"github.com/dalemusser/cardhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type blockedResponse struct {
	BlockedIDs []primitive.ObjectID `json:"blocked_ids"`
}

// GET /api/me/blocked
func (h *Handler) ServeBlocked(w http.ResponseWriter, r *http.Request) {
	id, _, ok := caller(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, ok := h.loadUser(ctx, w, r, id)
	if !ok {
		return
	}
	ids := u.BlockedIDs
	if ids == nil {
		ids = []primitive.ObjectID{}
	}
	respond.OK(w, r, blockedResponse{BlockedIDs: ids})
}

// PUT /api/me/blocked/{userID}
func (h *Handler) HandleBlock(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, true)
}

// DELETE /api/me/blocked/{userID}
func (h *Handler) HandleUnblock(w http.ResponseWriter, r *http.Request) {
	h.setBlocked(w, r, false)
}

func (h *Handler) setBlocked(w http.ResponseWriter, r *http.Request, block bool) {
	id, _, ok := caller(w, r)
	if !ok {
		return
	}
	target, ok := shared.ObjectIDParam(w, r, "userID")
	if !ok {
		return
	}
	if target == id {
		respond.Error(w, r, http.StatusBadRequest, "you cannot block yourself")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	var err error
	if block {
		if _, err = h.Users.GetByID(ctx, target); errors.Is(err, userstore.ErrNotFound) {
			respond.NotFound(w, r)
			return
		}
		if err == nil {
			err = h.Users.Block(ctx, id, target)
		}
	} else {
		err = h.Users.Unblock(ctx, id, target)
	}
	if err != nil {
		respond.ServerError(w, r, h.Log, "update blocked list failed", err)
		return
	}
	respond.NoContent(w)
}
