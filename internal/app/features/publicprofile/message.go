// internal/app/features/publicprofile/message.go
package publicprofile

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/cardhub/internal/app/policy/profilepolicy"
	userstore "github.com/dalemusser/cardhub/internal/app/store/users"
	"github.com/dalemusser/cardhub/internal/app/system/authz"
	"github.com/dalemusser/cardhub/internal/app/system/respond"
	"github.com/dalemusser/cardhub/internal/app/system/timeouts"
	"github.com/dalemusser/cardhub/internal/app/system/validate"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

type messageRequest struct {
	Name    string `json:"name" validate:"maxgraphemes=100"`
	Message string `json:"message" validate:"required,maxgraphemes=1000"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/p/{id}/message                                                     |
| Anonymous visitors may message; signed-in senders are checked against the  |
| owner's blocked list.                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.viewable(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req messageRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, r, errors.New("malformed JSON body"))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Message = strings.TrimSpace(req.Message)
	if err := validate.Struct(req); err != nil {
		respond.Invalid(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	var sender *models.User
	if id, signedIn := authz.UserID(r); signedIn {
		u, err := h.Users.GetByID(ctx, id)
		if err != nil && !errors.Is(err, userstore.ErrNotFound) {
			respond.ServerError(w, r, h.Log, "load sender failed", err)
			return
		}
		sender = u
	}
	if !profilepolicy.CanMessage(owner, sender) {
		respond.Error(w, r, http.StatusForbidden, "you cannot message this profile")
		return
	}

	in := models.Interaction{OwnerID: owner.ID, Type: models.InteractionMessage, Message: req.Message, ActorName: req.Name}
	if sender != nil && in.ActorName == "" {
		in.ActorName = sender.FullName
	}
	saved, err := h.record(ctx, r, in)
	if err != nil {
		respond.ServerError(w, r, h.Log, "record message failed", err)
		return
	}
	respond.Created(w, r, saved)
}
