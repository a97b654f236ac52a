package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UsernameReservation maps a folded username to the user holding it.
// The _id is the folded name, which makes the collection itself the
// uniqueness guard.
type UsernameReservation struct {
	ID        string             `bson:"_id" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Username  string             `bson:"username" json:"username"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
