// internal/app/features/notifications/handler.go
package notifications

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/cardhub/internal/app/features/shared"
	interactionstore "github.com/dalemusser/cardhub/internal/app/store/interactions"
	"github.com/dalemusser/cardhub/internal/app/system/authz"
	"github.com/dalemusser/cardhub/internal/app/system/notify"
	"github.com/dalemusser/cardhub/internal/app/system/paging"
	"github.com/dalemusser/cardhub/internal/app/system/respond"
	"github.com/dalemusser/cardhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves the signed-in owner's notification panel.
type Handler struct {
	Interactions *interactionstore.Store
	Hub          notify.Hub
	Log          *zap.Logger

	// AllowedOrigins gates websocket upgrades. Empty allows same-origin only.
	AllowedOrigins []string
}

func NewHandler(interactions *interactionstore.Store, hub notify.Hub, allowedOrigins []string, logger *zap.Logger) *Handler {
	return &Handler{
		Interactions:   interactions,
		Hub:            hub,
		Log:            logger,
		AllowedOrigins: allowedOrigins,
	}
}

func owner(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, ok := authz.UserID(r)
	if !ok {
		respond.Unauthorized(w, r)
	}
	return id, ok
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/notifications?unread=1&after=&limit=                                |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	id, ok := owner(w, r)
	if !ok {
		return
	}
	unread := query.Get(r, "unread")
	unreadOnly := unread == "1" || unread == "true"

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	page, err := h.Interactions.List(ctx, id, unreadOnly, paging.ParseRequest(r))
	if errors.Is(err, paging.ErrBadCursor) {
		respond.Invalid(w, r, err)
		return
	}
	if err != nil {
		respond.ServerError(w, r, h.Log, "list notifications failed", err)
		return
	}
	respond.OK(w, r, page)
}

type unreadResponse struct {
	Unread int64 `json:"unread"`
}

func (h *Handler) ServeUnreadCount(w http.ResponseWriter, r *http.Request) {
	id, ok := owner(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := h.Interactions.UnreadCount(ctx, id)
	if err != nil {
		respond.ServerError(w, r, h.Log, "count unread notifications failed", err)
		return
	}
	respond.OK(w, r, unreadResponse{Unread: n})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Read / delete                                                                |
| Both answer 204 when the row is already read or gone.                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	id, ok := owner(w, r)
	if !ok {
		return
	}
	nid, ok := shared.ObjectIDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Interactions.MarkRead(ctx, id, nid); err != nil {
		respond.ServerError(w, r, h.Log, "mark notification read failed", err)
		return
	}
	respond.NoContent(w)
}

type markAllResponse struct {
	Updated int64 `json:"updated"`
}

func (h *Handler) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	id, ok := owner(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	n, err := h.Interactions.MarkAllRead(ctx, id)
	if err != nil {
		respond.ServerError(w, r, h.Log, "mark all notifications read failed", err)
		return
	}
	respond.OK(w, r, markAllResponse{Updated: n})
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := owner(w, r)
	if !ok {
		return
	}
	nid, ok := shared.ObjectIDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Interactions.Delete(ctx, id, nid); err != nil {
		respond.ServerError(w, r, h.Log, "delete notification failed", err)
		return
	}
	respond.NoContent(w)
}
