// internal/app/features/orders/handler.go
package orders

import (
	"context"

	cardstore "github.com/dalemusser/cardhub/internal/app/store/cards"
	orderstore "github.com/dalemusser/cardhub/internal/app/store/orders"
	planstore "github.com/dalemusser/cardhub/internal/app/store/plans"
	userstore "github.com/dalemusser/cardhub/internal/app/store/users"
	"github.com/dalemusser/cardhub/internal/app/system/payments"
	"go.uber.org/zap"
)

// Payments is the part of the Stripe client the order flow uses.
type Payments interface {
	CreateCheckout(ctx context.Context, req payments.CheckoutRequest) (payments.Checkout, error)
	ParseWebhook(payload []byte, signature string) (payments.WebhookEvent, error)
}

// Handler serves the owner's orders and the Stripe webhook.
type Handler struct {
	Orders   *orderstore.Store
	Plans    *planstore.Store
	Cards    *cardstore.Store
	Users    *userstore.Store
	Payments Payments // nil when Stripe is not configured; orders are then manual
	Log      *zap.Logger

	// AppURL is where checkout returns the buyer.
	AppURL string
}

func NewHandler(
	orders *orderstore.Store,
	plans *planstore.Store,
	cards *cardstore.Store,
	users *userstore.Store,
	pay Payments,
	appURL string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		Orders:   orders,
		Plans:    plans,
		Cards:    cards,
		Users:    users,
		Payments: pay,
		Log:      logger,
		AppURL:   appURL,
	}
}
