// internal/app/features/analytics/handler.go
package analytics

import (
	"context"
	"net/http"
	"strconv"

	interactionstore "github.com/dalemusser/cardhub/internal/app/store/interactions"
	"github.com/dalemusser/cardhub/internal/app/system/authz"
	"github.com/dalemusser/cardhub/internal/app/system/respond"
	"github.com/dalemusser/cardhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

// DefaultDays is the window used when ?days is missing.
const DefaultDays = 30

type Handler struct {
	Interactions *interactionstore.Store
	Log          *zap.Logger
}

func NewHandler(interactions *interactionstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Interactions: interactions, Log: logger}
}

// ServeSummary handles GET /api/me/analytics?days=N.
func (h *Handler) ServeSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := authz.UserID(r)
	if !ok {
		respond.Unauthorized(w, r)
		return
	}

	days := DefaultDays
	if s := query.Get(r, "days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respond.Error(w, r, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	sum, err := h.Interactions.Analytics(ctx, id, days)
	if err != nil {
		respond.ServerError(w, r, h.Log, "compute analytics failed", err)
		return
	}
	respond.OK(w, r, sum)
}
