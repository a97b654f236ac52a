package profile

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/cardhub/internal/app/features/shared"
	"github.com/dalemusser/cardhub/internal/app/policy/usernamepolicy"
	"github.com/dalemusser/cardhub/internal/app/system/respond"
	"github.com/dalemusser/cardhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

type usernameRequest struct {
	Username string `json:"username"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /api/me/username                                                         |
| Claims, changes the case of, or (with "") removes the caller's username.     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleUsername(w http.ResponseWriter, r *http.Request) {
	id, role, ok := caller(w, r)
	if !ok {
		return
	}
	var req usernameRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, r, errors.New("malformed JSON body"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	res, err := h.Usernames.Claim(ctx, id, strings.TrimSpace(req.Username), role)
	if err != nil {
		shared.UsernameClaimError(w, r, h.Log, err)
		return
	}
	if !res.Unchanged {
		h.AuditLog.UsernameChanged(ctx, r, id, id, res.Previous, res.Username)
		h.Log.Info("username changed",
			zap.String("user_id", id.Hex()),
			zap.String("from", res.Previous),
			zap.String("to", res.Username))
	}
	respond.OK(w, r, res)
}

type availabilityResponse struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/me/username/available?username=                                     |
| Advisory only; the claim itself is the authority.                            |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeUsernameAvailable(w http.ResponseWriter, r *http.Request) {
	id, role, ok := caller(w, r)
	if !ok {
		return
	}
	name := strings.TrimSpace(query.Get(r, "username"))
	if name == "" {
		respond.Invalid(w, r, errors.New("username is required"))
		return
	}
	if err := usernamepolicy.Validate(name, role); err != nil {
		respond.OK(w, r, availabilityResponse{Username: name, Reason: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	free, err := h.Usernames.Available(ctx, name, id)
	if err != nil {
		respond.ServerError(w, r, h.Log, "check username availability failed", err)
		return
	}
	resp := availabilityResponse{Username: name, Available: free}
	if !free {
		resp.Reason = "username already taken"
	}
	respond.OK(w, r, resp)
}
