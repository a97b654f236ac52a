// internal/app/features/orders/webhook.go
package orders

import (
	"context"
	"errors"
	"io"
	"net/http"

	orderstore "github.com/dalemusser/cardhub/internal/app/store/orders"
	"github.com/dalemusser/cardhub/internal/app/system/limits"
	"github.com/dalemusser/cardhub/internal/app/system/payments"
	"github.com/dalemusser/cardhub/internal/app/system/respond"
	"github.com/dalemusser/cardhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type ackResponse struct {
	Received bool `json:"received"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /api/webhooks/stripe                                                    |
| Anything verified is acknowledged with 200 so Stripe stops redelivering,    |
| including events for orders we cannot find. Storage errors answer 500 so    |
| the event is retried.                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	if h.Payments == nil {
		respond.NotFound(w, r)
		return
	}
	payload, err := io.ReadAll(io.LimitReader(r.Body, limits.MaxWebhookBody))
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, "could not read body")
		return
	}

	ev, err := h.Payments.ParseWebhook(payload, r.Header.Get("Stripe-Signature"))
	switch {
	case errors.Is(err, payments.ErrBadSignature):
		h.Log.Warn("stripe webhook rejected", zap.Error(err))
		respond.Error(w, r, http.StatusBadRequest, "invalid signature")
		return
	case errors.Is(err, payments.ErrMissingOrder):
		h.Log.Warn("stripe checkout event without order id", zap.String("type", ev.Type), zap.String("session_id", ev.SessionID))
		respond.OK(w, r, ackResponse{Received: true})
		return
	case err != nil:
		respond.Error(w, r, http.StatusBadRequest, "malformed event")
		return
	}
	if ev.Kind == payments.EventIgnored {
		respond.OK(w, r, ackResponse{Received: true})
		return
	}

	orderID, err := primitive.ObjectIDFromHex(ev.OrderID)
	if err != nil {
		h.Log.Warn("stripe event with malformed order id", zap.String("order_id", ev.OrderID))
		respond.OK(w, r, ackResponse{Received: true})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	switch ev.Kind {
	case payments.EventCheckoutCompleted:
		if ev.PaymentStatus != "paid" && ev.PaymentStatus != "no_payment_required" {
			h.Log.Info("checkout completed before payment settled",
				zap.String("order_id", ev.OrderID), zap.String("payment_status", ev.PaymentStatus))
			break
		}
		if err := h.markPaid(ctx, orderID, ev.SessionID); err != nil {
			respond.ServerError(w, r, h.Log, "mark order paid failed", err)
			return
		}
	case payments.EventCheckoutExpired:
		if err := h.Orders.MarkCheckoutExpired(ctx, orderID, ev.SessionID); err != nil {
			respond.ServerError(w, r, h.Log, "mark checkout expired failed", err)
			return
		}
		h.Log.Info("checkout expired", zap.String("order_id", ev.OrderID))
	}
	respond.OK(w, r, ackResponse{Received: true})
}

// markPaid records payment and applies the plan the first time an order
// is paid. Redelivered events change nothing.
func (h *Handler) markPaid(ctx context.Context, orderID primitive.ObjectID, sessionID string) error {
	o, changed, err := h.Orders.MarkPaid(ctx, orderID, sessionID)
	if errors.Is(err, orderstore.ErrNotFound) {
		h.Log.Warn("paid checkout for unknown order", zap.String("order_id", orderID.Hex()), zap.String("session_id", sessionID))
		return nil
	}
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	if err := h.Users.SetPlan(ctx, o.UserID, o.PlanID); err != nil {
		return err
	}
	h.Log.Info("order paid", zap.String("order_id", o.ID.Hex()), zap.String("plan_id", o.PlanID))
	return nil
}
