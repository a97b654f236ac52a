// internal/app/features/plans/handler.go
package plans

import (
	"context"
	"errors"
	"net/http"

	planstore "github.com/dalemusser/cardhub/internal/app/store/plans"
	"github.com/dalemusser/cardhub/internal/app/system/authz"
	"github.com/dalemusser/cardhub/internal/app/system/respond"
	"github.com/dalemusser/cardhub/internal/app/system/timeouts"
	"github.com/dalemusser/cardhub/internal/app/system/validate"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	Plans *planstore.Store
	Log   *zap.Logger
}

func NewHandler(plans *planstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Plans: plans, Log: logger}
}

// ServeActive handles GET /api/plans.
func (h *Handler) ServeActive(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Plans.ListActive(ctx)
	if err != nil {
		respond.ServerError(w, r, h.Log, "list plans failed", err)
		return
	}
	respond.OK(w, r, list)
}

// ServeAll handles GET /api/admin/plans, deactivated plans included.
func (h *Handler) ServeAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.Plans.ListAll(ctx)
	if err != nil {
		respond.ServerError(w, r, h.Log, "list plans failed", err)
		return
	}
	respond.OK(w, r, list)
}

type entitlementsRequest struct {
	Limits struct {
		Links     int `json:"links" validate:"gte=0,lte=100"`
		Contacts  int `json:"contacts" validate:"gte=0,lte=100"`
		Portfolio int `json:"portfolio" validate:"gte=0,lte=100"`
	} `json:"limits"`
	Features models.PlanFeatures `json:"features"`
}

// HandleEntitlements handles PUT /api/admin/plans/{id}/entitlements.
// Entitlements set here survive later syncs from the store document.
func (h *Handler) HandleEntitlements(w http.ResponseWriter, r *http.Request) {
	var req entitlementsRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, r, errors.New("malformed JSON body"))
		return
	}
	if err := validate.Struct(req); err != nil {
		respond.Invalid(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	limits := models.PlanLimits{
		Links:     req.Limits.Links,
		Contacts:  req.Limits.Contacts,
		Portfolio: req.Limits.Portfolio,
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Plans.SetEntitlements(ctx, id, limits, req.Features); err != nil {
		if errors.Is(err, planstore.ErrNotFound) {
			respond.NotFound(w, r)
			return
		}
		respond.ServerError(w, r, h.Log, "set entitlements failed", err)
		return
	}
	actor, _ := authz.UserID(r)
	h.Log.Info("plan entitlements changed",
		zap.String("plan_id", id),
		zap.String("actor_id", actor.Hex()),
		zap.Any("limits", limits),
		zap.Any("features", req.Features))

	p, err := h.Plans.GetByID(ctx, id)
	if err != nil {
		respond.ServerError(w, r, h.Log, "reload plan failed", err)
		return
	}
	respond.OK(w, r, p)
}
