// Package payments opens Stripe Checkout sessions for card orders and
// verifies the webhooks Stripe sends back.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"
)

// MetadataOrderID is the checkout metadata key carrying the order id.
const MetadataOrderID = "order_id"

var (
	// ErrBadSignature is returned when a webhook payload fails verification.
	ErrBadSignature = errors.New("invalid webhook signature")
	// ErrMissingOrder is returned when a checkout event carries no order id.
	ErrMissingOrder = errors.New("checkout session has no order id")
)

// EventKind classifies a verified webhook event.
type EventKind int

const (
	EventIgnored EventKind = iota
	EventCheckoutCompleted
	EventCheckoutExpired
)

// CheckoutRequest describes a single-item checkout for one order.
type CheckoutRequest struct {
	OrderID     string
	UserID      string
	Email       string
	ProductName string
	// PriceID is a Stripe price. When empty, AmountCents and Currency are
	// sent as inline price data.
	PriceID     string
	AmountCents int64
	Currency    string
	SuccessURL  string
	CancelURL   string
}

// Checkout is an opened Stripe Checkout session.
type Checkout struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// WebhookEvent is the part of a Stripe event the order flow cares about.
type WebhookEvent struct {
	Kind          EventKind
	Type          string
	SessionID     string
	OrderID       string
	PaymentStatus string
}

// Client talks to Stripe.
type Client struct {
	sc            *stripe.Client
	webhookSecret string
	log           *zap.Logger
}

// New builds a Client from a secret API key and a webhook signing secret.
func New(secretKey, webhookSecret string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		sc:            stripe.NewClient(secretKey),
		webhookSecret: webhookSecret,
		log:           logger,
	}
}

// CreateCheckout opens a payment-mode checkout session for req.
func (c *Client) CreateCheckout(ctx context.Context, req CheckoutRequest) (Checkout, error) {
	if req.OrderID == "" {
		return Checkout{}, ErrMissingOrder
	}

	params := &stripe.CheckoutSessionCreateParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		ClientReferenceID: stripe.String(req.UserID),
		LineItems:         []*stripe.CheckoutSessionCreateLineItemParams{lineItem(req)},
		Metadata: map[string]string{
			MetadataOrderID: req.OrderID,
			"user_id":       req.UserID,
		},
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}

	cs, err := c.sc.V1CheckoutSessions.Create(ctx, params)
	if err != nil {
		return Checkout{}, fmt.Errorf("create checkout session: %w", err)
	}
	c.log.Info("checkout session created",
		zap.String("order_id", req.OrderID),
		zap.String("session_id", cs.ID))
	return Checkout{SessionID: cs.ID, URL: cs.URL}, nil
}

func lineItem(req CheckoutRequest) *stripe.CheckoutSessionCreateLineItemParams {
	if req.PriceID != "" {
		return &stripe.CheckoutSessionCreateLineItemParams{
			Price:    stripe.String(req.PriceID),
			Quantity: stripe.Int64(1),
		}
	}
	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = "usd"
	}
	return &stripe.CheckoutSessionCreateLineItemParams{
		Quantity: stripe.Int64(1),
		PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
			Currency:   stripe.String(currency),
			UnitAmount: stripe.Int64(req.AmountCents),
			ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
				Name: stripe.String(req.ProductName),
			},
		},
	}
}

// ParseWebhook verifies payload against the Stripe-Signature header and
// decodes checkout session events. Other event types come back with
// Kind EventIgnored.
func (c *Client) ParseWebhook(payload []byte, signature string) (WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, c.webhookSecret)
	if err != nil {
		return WebhookEvent{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	out := WebhookEvent{Type: string(event.Type)}
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		out.Kind = EventCheckoutCompleted
	case stripe.EventTypeCheckoutSessionExpired:
		out.Kind = EventCheckoutExpired
	default:
		return out, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return WebhookEvent{}, fmt.Errorf("decode checkout session: %w", err)
	}
	out.SessionID = cs.ID
	out.PaymentStatus = string(cs.PaymentStatus)
	out.OrderID = cs.Metadata[MetadataOrderID]
	if out.OrderID == "" {
		return out, ErrMissingOrder
	}
	return out, nil
}
