// internal/app/features/adminusers/handler.go
package adminusers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/cardhub/internal/app/features/shared"
	reportstore "github.com/dalemusser/cardhub/internal/app/store/reports"
	"github.com/dalemusser/cardhub/internal/app/store/usernames"
	userstore "github.com/dalemusser/cardhub/internal/app/store/users"
	"github.com/dalemusser/cardhub/internal/app/system/auditlog"
	"github.com/dalemusser/cardhub/internal/app/system/paging"
	"github.com/dalemusser/cardhub/internal/app/system/respond"
	"github.com/dalemusser/cardhub/internal/app/system/timeouts"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the admin users table and moderation actions.
type Handler struct {
	Users     *userstore.Store
	Usernames *usernames.Store
	Reports   *reportstore.Store
	AuditLog  *auditlog.Logger
	Log       *zap.Logger
}

func NewHandler(users *userstore.Store, names *usernames.Store, reports *reportstore.Store, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Users: users, Usernames: names, Reports: reports, AuditLog: audit, Log: logger}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/admin/users?banned=&role=&after=&limit=                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	var f userstore.ListFilter
	switch v := strings.TrimSpace(query.Get(r, "banned")); v {
	case "":
	case "true", "1":
		b := true
		f.Banned = &b
	case "false", "0":
		b := false
		f.Banned = &b
	default:
		respond.Error(w, r, http.StatusBadRequest, "banned must be true or false")
		return
	}
	if role := strings.TrimSpace(query.Get(r, "role")); role != "" {
		if !models.IsValidRole(role) {
			respond.Error(w, r, http.StatusBadRequest, "unknown role")
			return
		}
		f.Role = role
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	page, err := h.Users.List(ctx, f, paging.ParseRequest(r))
	if errors.Is(err, paging.ErrBadCursor) {
		respond.Invalid(w, r, err)
		return
	}
	if err != nil {
		respond.ServerError(w, r, h.Log, "list users failed", err)
		return
	}
	if page.Fallback {
		h.Log.Warn("user list served without filter index", zap.String("role", f.Role))
	}
	respond.OK(w, r, page)
}

type userDetail struct {
	User    *models.User    `json:"user"`
	Reports []models.Report `json:"reports_against"`
}

// ServeUser handles GET /api/admin/users/{id}.
func (h *Handler) ServeUser(w http.ResponseWriter, r *http.Request) {
	uid, ok := shared.ObjectIDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, ok := h.load(ctx, w, r, uid)
	if !ok {
		return
	}
	reps, err := h.Reports.ListAgainst(ctx, uid)
	if err != nil {
		respond.ServerError(w, r, h.Log, "list reports against user failed", err)
		return
	}
	respond.OK(w, r, userDetail{User: u, Reports: reps})
}

func (h *Handler) load(ctx context.Context, w http.ResponseWriter, r *http.Request, id primitive.ObjectID) (*models.User, bool) {
	u, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, userstore.ErrNotFound) {
		respond.NotFound(w, r)
		return nil, false
	}
	if err != nil {
		respond.ServerError(w, r, h.Log, "load user failed", err)
		return nil, false
	}
	return u, true
}
