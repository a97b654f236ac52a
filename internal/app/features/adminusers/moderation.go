// internal/app/features/adminusers/moderation.go
package adminusers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/cardhub/internal/app/features/shared"
	userstore "github.com/dalemusser/cardhub/internal/app/store/users"
	"github.com/dalemusser/cardhub/internal/app/system/authz"
	"github.com/dalemusser/cardhub/internal/app/system/respond"
	"github.com/dalemusser/cardhub/internal/app/system/timeouts"
	"github.com/dalemusser/cardhub/internal/app/system/validate"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// target resolves {id} and refuses actions an admin may not take on it:
// acting on yourself, or on a super admin without being one.
func (h *Handler) target(ctx context.Context, w http.ResponseWriter, r *http.Request) (actor primitive.ObjectID, u *models.User, ok bool) {
	uid, ok := shared.ObjectIDParam(w, r, "id")
	if !ok {
		return actor, nil, false
	}
	actor, _ = authz.UserID(r)
	if uid == actor {
		respond.Error(w, r, http.StatusBadRequest, "you cannot moderate your own account")
		return actor, nil, false
	}
	u, ok = h.load(ctx, w, r, uid)
	if !ok {
		return actor, nil, false
	}
	if u.Role == models.RoleSuperAdmin && !authz.IsSuperAdmin(r) {
		respond.Forbidden(w, r)
		return actor, nil, false
	}
	return actor, u, true
}

func (h *Handler) reply(ctx context.Context, w http.ResponseWriter, r *http.Request, id primitive.ObjectID) {
	if u, ok := h.load(ctx, w, r, id); ok {
		respond.OK(w, r, u)
	}
}

type banRequest struct {
	Reason string `json:"reason" validate:"required,maxgraphemes=500"`
}

// HandleBan handles POST /api/admin/users/{id}/ban.
func (h *Handler) HandleBan(w http.ResponseWriter, r *http.Request) {
	var req banRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, r, errors.New("malformed JSON body"))
		return
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if err := validate.Struct(req); err != nil {
		respond.Invalid(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	actor, u, ok := h.target(ctx, w, r)
	if !ok {
		return
	}
	if err := h.Users.Ban(ctx, u.ID, req.Reason); err != nil {
		h.storeError(w, r, "ban user failed", err)
		return
	}
	h.AuditLog.UserBanned(ctx, r, actor, u.ID, req.Reason)
	h.Log.Info("user banned", zap.String("user_id", u.ID.Hex()), zap.String("actor_id", actor.Hex()))
	h.reply(ctx, w, r, u.ID)
}

// HandleUnban handles POST /api/admin/users/{id}/unban.
func (h *Handler) HandleUnban(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	actor, u, ok := h.target(ctx, w, r)
	if !ok {
		return
	}
	if !u.Banned {
		respond.OK(w, r, u)
		return
	}
	if err := h.Users.Unban(ctx, u.ID); err != nil {
		h.storeError(w, r, "unban user failed", err)
		return
	}
	h.AuditLog.UserUnbanned(ctx, r, actor, u.ID)
	h.reply(ctx, w, r, u.ID)
}

type warnRequest struct {
	Message string `json:"message" validate:"required,maxgraphemes=1000"`
}

// HandleWarn handles POST /api/admin/users/{id}/warn. The warning replaces
// any earlier one.
func (h *Handler) HandleWarn(w http.ResponseWriter, r *http.Request) {
	var req warnRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, r, errors.New("malformed JSON body"))
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if err := validate.Struct(req); err != nil {
		respond.Invalid(w, r, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	actor, u, ok := h.target(ctx, w, r)
	if !ok {
		return
	}
	warning := &models.Warning{Message: req.Message, IssuedBy: actor, IssuedAt: h.Users.Now().UTC()}
	if err := h.Users.SetWarning(ctx, u.ID, warning); err != nil {
		h.storeError(w, r, "warn user failed", err)
		return
	}
	h.AuditLog.UserWarned(ctx, r, actor, u.ID, req.Message)
	h.reply(ctx, w, r, u.ID)
}

// HandleClearWarning handles DELETE /api/admin/users/{id}/warning.
func (h *Handler) HandleClearWarning(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	_, u, ok := h.target(ctx, w, r)
	if !ok {
		return
	}
	if err := h.Users.SetWarning(ctx, u.ID, nil); err != nil {
		h.storeError(w, r, "clear warning failed", err)
		return
	}
	respond.NoContent(w)
}

type roleRequest struct {
	Role string `json:"role" validate:"required,oneof=user admin super_admin"`
}

// HandleRole handles PUT /api/admin/users/{id}/role. Mounted behind
// RequireRole(super_admin).
func (h *Handler) HandleRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
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

	actor, u, ok := h.target(ctx, w, r)
	if !ok {
		return
	}
	if u.Role == req.Role {
		respond.OK(w, r, u)
		return
	}
	if err := h.Users.SetRole(ctx, u.ID, req.Role); err != nil {
		h.storeError(w, r, "set role failed", err)
		return
	}
	h.AuditLog.RoleChanged(ctx, r, actor, u.ID, u.Role, req.Role)
	h.Log.Info("role changed",
		zap.String("user_id", u.ID.Hex()),
		zap.String("from", u.Role),
		zap.String("to", req.Role))
	h.reply(ctx, w, r, u.ID)
}

type usernameRequest struct {
	Username string `json:"username"`
}

// HandleUsername handles PUT /api/admin/users/{id}/username. Staff claims
// skip the change cooldown but not validation or uniqueness.
func (h *Handler) HandleUsername(w http.ResponseWriter, r *http.Request) {
	var req usernameRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, r, errors.New("malformed JSON body"))
		return
	}
	role, _, actor, _ := authz.UserCtx(r)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	uid, ok := shared.ObjectIDParam(w, r, "id")
	if !ok {
		return
	}
	res, err := h.Usernames.Claim(ctx, uid, strings.TrimSpace(req.Username), role)
	if err != nil {
		shared.UsernameClaimError(w, r, h.Log, err)
		return
	}
	if !res.Unchanged {
		h.AuditLog.UsernameChanged(ctx, r, actor, uid, res.Previous, res.Username)
	}
	respond.OK(w, r, res)
}

func (h *Handler) storeError(w http.ResponseWriter, r *http.Request, what string, err error) {
	if errors.Is(err, userstore.ErrNotFound) {
		respond.NotFound(w, r)
		return
	}
	respond.ServerError(w, r, h.Log, what, err)
}
