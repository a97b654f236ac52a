package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PrivateItem is a single PIN-gated entry (e.g. a personal phone number).
type PrivateItem struct {
	Label string `bson:"label" json:"label"`
	Value string `bson:"value" json:"value"`
}

// PrivateContent holds the PIN-gated section of a profile. It is keyed by
// the owner's user id; the PIN itself is only stored as a bcrypt hash.
type PrivateContent struct {
	ID        primitive.ObjectID `bson:"_id" json:"-"`
	PinHash   string             `bson:"pin_hash,omitempty" json:"-"`
	Items     []PrivateItem      `bson:"items" json:"items"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// HasPIN reports whether a PIN has been set.
func (p *PrivateContent) HasPIN() bool { return p != nil && p.PinHash != "" }
