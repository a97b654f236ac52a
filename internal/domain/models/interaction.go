package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Interaction types.
const (
	InteractionView         = "view"
	InteractionTap          = "tap"
	InteractionContactSaved = "contact_saved"
	InteractionMessage      = "message"
)

// InteractionTypes lists every interaction type.
var InteractionTypes = []string{InteractionView, InteractionTap, InteractionContactSaved, InteractionMessage}

// Interaction is an event recorded against a profile owner. It backs both
// the notification panel and the analytics summary.
type Interaction struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	OwnerID   primitive.ObjectID  `bson:"owner_id" json:"owner_id"`
	Type      string              `bson:"type" json:"type"`
	ActorID   *primitive.ObjectID `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
	ActorName string              `bson:"actor_name,omitempty" json:"actor_name,omitempty"`
	CardID    string              `bson:"card_id,omitempty" json:"card_id,omitempty"`
	Message   string              `bson:"message,omitempty" json:"message,omitempty"`
	Read      bool                `bson:"read" json:"read"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
}
