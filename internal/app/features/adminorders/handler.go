// internal/app/features/adminorders/handler.go
package adminorders

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/cardhub/internal/app/features/shared"
	"github.com/dalemusser/cardhub/internal/app/policy/orderpolicy"
	orderstore "github.com/dalemusser/cardhub/internal/app/store/orders"
	"github.com/dalemusser/cardhub/internal/app/system/auditlog"
	"github.com/dalemusser/cardhub/internal/app/system/authz"
	"github.com/dalemusser/cardhub/internal/app/system/paging"
	"github.com/dalemusser/cardhub/internal/app/system/respond"
	"github.com/dalemusser/cardhub/internal/app/system/timeouts"
	"github.com/dalemusser/cardhub/internal/app/system/validate"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
)

// Handler serves the admin order table and the status workflow.
type Handler struct {
	Orders   *orderstore.Store
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(orders *orderstore.Store, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Orders: orders, AuditLog: audit, Log: logger}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/admin/orders?status=&after=&limit=                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	status := strings.TrimSpace(query.Get(r, "status"))
	if status != "" && !models.IsValidOrderStatus(status) {
		respond.Error(w, r, http.StatusBadRequest, "unknown order status")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	page, err := h.Orders.List(ctx, status, paging.ParseRequest(r))
	if errors.Is(err, paging.ErrBadCursor) {
		respond.Invalid(w, r, err)
		return
	}
	if err != nil {
		respond.ServerError(w, r, h.Log, "list orders failed", err)
		return
	}
	if page.Fallback {
		h.Log.Warn("order list served without status index", zap.String("status", status))
	}
	respond.OK(w, r, page)
}

func (h *Handler) ServeOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ObjectIDParam(w, r, "id")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	o, err := h.Orders.Get(ctx, id)
	if errors.Is(err, orderstore.ErrNotFound) {
		respond.NotFound(w, r)
		return
	}
	if err != nil {
		respond.ServerError(w, r, h.Log, "load order failed", err)
		return
	}
	respond.OK(w, r, o)
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/admin/orders/{id}/advance                                          |
| Body {"status": "..."} names the target; an empty body means the next step. |
*─────────────────────────────────────────────────────────────────────────────*/

type advanceRequest struct {
	Status string `json:"status"`
}

func (h *Handler) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.UserID(r)
	id, ok := shared.ObjectIDParam(w, r, "id")
	if !ok {
		return
	}
	var req advanceRequest
	if r.ContentLength != 0 {
		if err := respond.Decode(r, &req); err != nil {
			respond.Invalid(w, r, errors.New("malformed JSON body"))
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	to := req.Status
	if to == "" {
		cur, err := h.Orders.Get(ctx, id)
		if errors.Is(err, orderstore.ErrNotFound) {
			respond.NotFound(w, r)
			return
		}
		if err != nil {
			respond.ServerError(w, r, h.Log, "load order failed", err)
			return
		}
		if to = orderpolicy.Next(cur.Status); to == "" {
			respond.Error(w, r, http.StatusUnprocessableEntity, "order is already delivered")
			return
		}
	}
	if !models.IsValidOrderStatus(to) {
		respond.Error(w, r, http.StatusBadRequest, "unknown order status")
		return
	}

	from, o, err := h.Orders.Advance(ctx, id, to)
	switch {
	case errors.Is(err, orderstore.ErrNotFound):
		respond.NotFound(w, r)
		return
	case errors.Is(err, orderstore.ErrBadTransition):
		respond.Error(w, r, http.StatusUnprocessableEntity, "order cannot move from "+from+" to "+to)
		return
	case err != nil:
		respond.ServerError(w, r, h.Log, "advance order failed", err)
		return
	}
	h.AuditLog.OrderStatusChanged(ctx, r, actor, o.UserID, o.ID, from, to)
	respond.OK(w, r, o)
}

/*─────────────────────────────────────────────────────────────────────────────*
| PUT /api/admin/orders/{id}/tracking                                          |
*─────────────────────────────────────────────────────────────────────────────*/

type trackingRequest struct {
	TrackingNumber string `json:"tracking_number" validate:"required,max=100"`
}

func (h *Handler) HandleTracking(w http.ResponseWriter, r *http.Request) {
	id, ok := shared.ObjectIDParam(w, r, "id")
	if !ok {
		return
	}
	var req trackingRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Invalid(w, r, errors.New("malformed JSON body"))
		return
	}
	req.TrackingNumber = strings.TrimSpace(req.TrackingNumber)
	if err := validate.Struct(req); err != nil {
		respond.Invalid(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	err := h.Orders.SetTracking(ctx, id, req.TrackingNumber)
	switch {
	case errors.Is(err, orderstore.ErrNotFound):
		respond.NotFound(w, r)
		return
	case errors.Is(err, orderstore.ErrNotEditable):
		respond.Error(w, r, http.StatusUnprocessableEntity, "tracking can be added once the order has shipped")
		return
	case err != nil:
		respond.ServerError(w, r, h.Log, "set tracking failed", err)
		return
	}
	o, err := h.Orders.Get(ctx, id)
	if err != nil {
		respond.ServerError(w, r, h.Log, "reload order failed", err)
		return
	}
	respond.OK(w, r, o)
}
