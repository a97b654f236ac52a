package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order statuses, in workflow order.
const (
	OrderReceived   = "order_received"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
)

// OrderStatuses lists every status in the order it is reached.
var OrderStatuses = []string{OrderReceived, OrderProcessing, OrderShipped, OrderDelivered}

// IsValidOrderStatus reports whether s is a known order status.
func IsValidOrderStatus(s string) bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// Payment statuses.
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentManual  = "manual"
	PaymentExpired = "expired"
)

// Shipping is the delivery address captured at checkout.
type Shipping struct {
	Name       string `bson:"name" json:"name"`
	Line1      string `bson:"line1" json:"line1"`
	Line2      string `bson:"line2,omitempty" json:"line2,omitempty"`
	City       string `bson:"city" json:"city"`
	State      string `bson:"state,omitempty" json:"state,omitempty"`
	PostalCode string `bson:"postal_code" json:"postal_code"`
	Country    string `bson:"country" json:"country"`
	Phone      string `bson:"phone,omitempty" json:"phone,omitempty"`
}

// Customization is the card design form filled in at purchase time.
type Customization struct {
	NameOnCard string `bson:"name_on_card" json:"name_on_card"`
	Title      string `bson:"title,omitempty" json:"title,omitempty"`
	Color      string `bson:"color,omitempty" json:"color,omitempty"`
	Finish     string `bson:"finish,omitempty" json:"finish,omitempty"`
	LogoURL    string `bson:"logo_url,omitempty" json:"logo_url,omitempty"`
	Notes      string `bson:"notes,omitempty" json:"notes,omitempty"`
}

// Timeline records when each status was reached.
type Timeline struct {
	OrderReceived *time.Time `bson:"order_received,omitempty" json:"order_received,omitempty"`
	Processing    *time.Time `bson:"processing,omitempty" json:"processing,omitempty"`
	Shipped       *time.Time `bson:"shipped,omitempty" json:"shipped,omitempty"`
	Delivered     *time.Time `bson:"delivered,omitempty" json:"delivered,omitempty"`
}

// Payment tracks the checkout state of an order.
type Payment struct {
	Provider          string     `bson:"provider" json:"provider"`
	CheckoutSessionID string     `bson:"checkout_session_id,omitempty" json:"checkout_session_id,omitempty"`
	Status            string     `bson:"status" json:"status"`
	PaidAt            *time.Time `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
}

// Order is a purchase of a card plan.
type Order struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         primitive.ObjectID `bson:"user_id" json:"user_id"`
	PlanID         string             `bson:"plan_id" json:"plan_id"`
	PlanName       string             `bson:"plan_name" json:"plan_name"`
	AmountCents    int64              `bson:"amount_cents" json:"amount_cents"`
	Currency       string             `bson:"currency" json:"currency"`
	Status         string             `bson:"status" json:"status"`
	Timeline       Timeline           `bson:"timeline" json:"timeline"`
	Shipping       Shipping           `bson:"shipping" json:"shipping"`
	Customization  Customization      `bson:"customization" json:"customization"`
	Payment        Payment            `bson:"payment" json:"payment"`
	TrackingNumber string             `bson:"tracking_number,omitempty" json:"tracking_number,omitempty"`
	CardID         string             `bson:"card_id,omitempty" json:"card_id,omitempty"`
	// LegacyID is the Firestore document id of an imported order.
	LegacyID       string             `bson:"legacy_id,omitempty" json:"-"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}
