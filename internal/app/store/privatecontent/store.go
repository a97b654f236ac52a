// Package privatestore holds the PIN-gated section of each profile.
package privatestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/cardhub/internal/app/system/validate"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound = errors.New("private content not found")
	ErrBadPIN   = errors.New("pin must be 4 to 8 digits")
	ErrNoPIN    = errors.New("no pin set for this profile")
	ErrWrongPIN = errors.New("incorrect pin")
)

type Store struct {
	c   *mongo.Collection
	Now func() time.Time
	// Cost is the bcrypt cost used when hashing PINs.
	Cost int
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("private_contents"), Now: time.Now, Cost: bcrypt.DefaultCost}
}

// Get returns the owner's private section including the PIN hash.
func (s *Store) Get(ctx context.Context, owner primitive.ObjectID) (*models.PrivateContent, error) {
	var pc models.PrivateContent
	if err := s.c.FindOne(ctx, bson.M{"_id": owner}).Decode(&pc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if pc.Items == nil {
		pc.Items = []models.PrivateItem{}
	}
	return &pc, nil
}

// SaveItems replaces the owner's private items, creating the document if needed.
func (s *Store) SaveItems(ctx context.Context, owner primitive.ObjectID, items []models.PrivateItem) error {
	if items == nil {
		items = []models.PrivateItem{}
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": owner},
		bson.M{"$set": bson.M{"items": items, "updated_at": s.Now().UTC()}},
		options.Update().SetUpsert(true))
	return err
}

// SetPIN hashes and stores pin. An empty pin removes it, which locks the
// section for everyone but the owner.
func (s *Store) SetPIN(ctx context.Context, owner primitive.ObjectID, pin string) error {
	now := s.Now().UTC()
	if pin == "" {
		_, err := s.c.UpdateOne(ctx, bson.M{"_id": owner},
			bson.M{"$unset": bson.M{"pin_hash": ""}, "$set": bson.M{"updated_at": now}})
		return err
	}
	if !validate.IsPIN(pin) {
		return ErrBadPIN
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), s.Cost)
	if err != nil {
		return err
	}
	_, err = s.c.UpdateOne(ctx, bson.M{"_id": owner},
		bson.M{
			"$set":         bson.M{"pin_hash": string(hash), "updated_at": now},
			"$setOnInsert": bson.M{"items": []models.PrivateItem{}},
		},
		options.Update().SetUpsert(true))
	return err
}

// Unlock checks pin and returns the private section on success.
func (s *Store) Unlock(ctx context.Context, owner primitive.ObjectID, pin string) (*models.PrivateContent, error) {
	pc, err := s.Get(ctx, owner)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrNoPIN
	}
	if err != nil {
		return nil, err
	}
	if !pc.HasPIN() {
		return nil, ErrNoPIN
	}
	if bcrypt.CompareHashAndPassword([]byte(pc.PinHash), []byte(pin)) != nil {
		return nil, ErrWrongPIN
	}
	return pc, nil
}

// Delete removes the owner's private section.
func (s *Store) Delete(ctx context.Context, owner primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": owner})
	return err
}
