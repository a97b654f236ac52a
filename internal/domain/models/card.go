package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Card is a physical NFC/QR card. Its ID is the redirect id written to the
// tag, so it is a random string rather than an ObjectID.
type Card struct {
	ID        string              `bson:"_id" json:"id"`
	UserID    primitive.ObjectID  `bson:"user_id" json:"user_id"`
	OrderID   *primitive.ObjectID `bson:"order_id,omitempty" json:"order_id,omitempty"`
	Label     string              `bson:"label,omitempty" json:"label,omitempty"`
	Active    bool                `bson:"active" json:"active"`
	TapCount  int64               `bson:"tap_count" json:"tap_count"`
	LastTapAt *time.Time          `bson:"last_tap_at,omitempty" json:"last_tap_at,omitempty"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
}
