// internal/app/store/oauthstate/store.go
package oauthstate

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrInvalid is returned when a state is unknown, expired or already used.
var ErrInvalid = errors.New("invalid or expired oauth state")

// State is a one-time OAuth2 CSRF token. The PKCE verifier travels with it
// so the callback can complete the code exchange.
type State struct {
	State     string    `bson:"_id"`
	Verifier  string    `bson:"verifier"`
	ReturnTo  string    `bson:"return_to,omitempty"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// Store keeps OAuth states in oauth_states. A TTL index on expires_at
// (see system/indexes) removes stale rows.
type Store struct {
	c   *mongo.Collection
	Now func() time.Time
}

// New creates a new OAuth state Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("oauth_states"), Now: time.Now}
}

// Save stores st, stamping CreatedAt.
func (s *Store) Save(ctx context.Context, st State) error {
	st.CreatedAt = s.Now().UTC()
	_, err := s.c.InsertOne(ctx, st)
	return err
}

// Consume deletes and returns the state if it exists and has not expired.
func (s *Store) Consume(ctx context.Context, state string) (State, error) {
	var st State
	err := s.c.FindOneAndDelete(ctx, bson.M{
		"_id":        state,
		"expires_at": bson.M{"$gt": s.Now().UTC()},
	}).Decode(&st)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return State{}, ErrInvalid
	}
	if err != nil {
		return State{}, err
	}
	return st, nil
}

// CleanupExpired removes expired states ahead of the TTL monitor.
func (s *Store) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": s.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
