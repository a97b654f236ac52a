package cardstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/cardhub/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned for unknown cards, and by RecordTap for inactive ones.
var ErrNotFound = errors.New("card not found")

type Store struct {
	c   *mongo.Collection
	Now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("cards"), Now: time.Now}
}

// Issue creates an active card with a fresh redirect id.
func (s *Store) Issue(ctx context.Context, userID primitive.ObjectID, orderID *primitive.ObjectID, label string) (models.Card, error) {
	card := models.Card{
		ID:        uuid.NewString(),
		UserID:    userID,
		OrderID:   orderID,
		Label:     label,
		Active:    true,
		CreatedAt: s.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, card); err != nil {
		return models.Card{}, err
	}
	return card, nil
}

// Get loads a card by redirect id.
func (s *Store) Get(ctx context.Context, id string) (*models.Card, error) {
	var card models.Card
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&card); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &card, nil
}

// ListByUser returns the user's cards, newest first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Card, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Card{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RecordTap counts a tap on an active card and returns the updated card.
func (s *Store) RecordTap(ctx context.Context, id string) (*models.Card, error) {
	var card models.Card
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "active": true},
		bson.M{"$inc": bson.M{"tap_count": 1}, "$set": bson.M{"last_tap_at": s.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&card)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

// Update changes the label and active flag of a card owned by userID.
func (s *Store) Update(ctx context.Context, id string, userID primitive.ObjectID, label string, active bool) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"label": label, "active": active}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByUser removes every card of userID.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
