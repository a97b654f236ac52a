// Package usernames owns the username_reservations collection and the
// claim/release flow that keeps it in step with users.username.
//
// A reservation's _id is the lower-cased username, so the collection's
// primary key is the global uniqueness guard. Claims run in a transaction
// when the server supports one. On a standalone server the same steps run
// as ordered single-document writes: the reservation is inserted first,
// so a concurrent claim loses on the duplicate key.
package usernames

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dalemusser/cardhub/internal/app/policy/usernamepolicy"
	"github.com/dalemusser/cardhub/internal/app/system/normalize"
	"github.com/dalemusser/cardhub/internal/app/system/txn"
	"github.com/dalemusser/cardhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	// ErrTaken is returned when another user holds the username.
	ErrTaken = errors.New("username already taken")
	// ErrUserNotFound is returned when the claiming user does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// Result reports what a claim changed.
type Result struct {
	Username string `json:"username"`
	Previous string `json:"previous,omitempty"`
	Removed  bool   `json:"removed,omitempty"`
	// Unchanged is set when the user already held exactly this username.
	Unchanged bool `json:"unchanged,omitempty"`
}

type Store struct {
	client       *mongo.Client
	users        *mongo.Collection
	reservations *mongo.Collection
	log          *zap.Logger
	noTxn        atomic.Bool
	Now          func() time.Time
}

func New(db *mongo.Database, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client:       db.Client(),
		users:        db.Collection("users"),
		reservations: db.Collection("username_reservations"),
		log:          logger,
		Now:          time.Now,
	}
}

// Claim sets userID's username to candidate on behalf of an actor with
// actorRole. An empty candidate removes the current username. Validation
// and cooldown rules come from usernamepolicy.
func (s *Store) Claim(ctx context.Context, userID primitive.ObjectID, candidate, actorRole string) (Result, error) {
	candidate = normalize.Username(candidate)
	if err := usernamepolicy.Validate(candidate, actorRole); err != nil {
		return Result{}, err
	}

	var res Result
	err := s.run(ctx, func(ctx context.Context, compensate bool) error {
		var err error
		if candidate == "" {
			res, err = s.release(ctx, userID)
		} else {
			res, err = s.claim(ctx, userID, candidate, actorRole, compensate)
		}
		return err
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// run executes fn in a transaction, or directly when the server has
// already told us it cannot run one.
func (s *Store) run(ctx context.Context, fn func(ctx context.Context, compensate bool) error) error {
	if !s.noTxn.Load() {
		err := txn.Run(ctx, s.client, func(sc mongo.SessionContext) error {
			return fn(sc, false)
		})
		if err == nil || !txn.IsNotSupported(err) {
			return err
		}
		s.noTxn.Store(true)
		s.log.Warn("transactions not supported, username claims use ordered writes", zap.Error(err))
	}
	return fn(ctx, true)
}

type holder struct {
	ID                primitive.ObjectID `bson:"_id"`
	Username          string             `bson:"username"`
	UsernameCI        string             `bson:"username_ci"`
	UsernameChangedAt *time.Time         `bson:"username_changed_at"`
}

func (s *Store) loadHolder(ctx context.Context, userID primitive.ObjectID) (holder, error) {
	var h holder
	proj := options.FindOne().SetProjection(bson.M{"username": 1, "username_ci": 1, "username_changed_at": 1})
	err := s.users.FindOne(ctx, bson.M{"_id": userID}, proj).Decode(&h)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return holder{}, ErrUserNotFound
	}
	return h, err
}

func (s *Store) claim(ctx context.Context, userID primitive.ObjectID, candidate, role string, compensate bool) (Result, error) {
	h, err := s.loadHolder(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	key := normalize.UsernameKey(candidate)

	var existing models.UsernameReservation
	found := true
	if err := s.reservations.FindOne(ctx, bson.M{"_id": key}).Decode(&existing); err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return Result{}, fmt.Errorf("read reservation: %w", err)
		}
		found = false
	}
	if found && existing.UserID != userID {
		return Result{}, ErrTaken
	}

	now := s.Now().UTC()
	res := Result{Username: candidate, Previous: h.Username}

	// Same name, possibly different case: refresh the display form only.
	if h.UsernameCI == key {
		if h.Username == candidate && found {
			res.Unchanged = true
			return res, nil
		}
		if err := s.putReservation(ctx, found, key, userID, candidate, now); err != nil {
			return Result{}, err
		}
		if _, err := s.users.UpdateOne(ctx, bson.M{"_id": userID},
			bson.M{"$set": bson.M{"username": candidate, "updated_at": now}}); err != nil {
			return Result{}, err
		}
		return res, nil
	}

	if err := usernamepolicy.CheckCooldown(h.UsernameChangedAt, role, now); err != nil {
		return Result{}, err
	}

	if err := s.putReservation(ctx, found, key, userID, candidate, now); err != nil {
		return Result{}, err
	}

	_, err = s.users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{
		"username":            candidate,
		"username_ci":         key,
		"username_changed_at": now,
		"updated_at":          now,
	}})
	if err != nil {
		if compensate && !found {
			s.undoReservation(key, userID)
		}
		if wafflemongo.IsDup(err) {
			return Result{}, ErrTaken
		}
		return Result{}, err
	}

	if h.UsernameCI != "" {
		if _, err := s.reservations.DeleteOne(ctx, bson.M{"_id": h.UsernameCI, "user_id": userID}); err != nil {
			return Result{}, fmt.Errorf("release previous reservation: %w", err)
		}
	}
	return res, nil
}

func (s *Store) putReservation(ctx context.Context, found bool, key string, userID primitive.ObjectID, display string, now time.Time) error {
	if found {
		_, err := s.reservations.UpdateOne(ctx,
			bson.M{"_id": key, "user_id": userID},
			bson.M{"$set": bson.M{"username": display}})
		return err
	}
	_, err := s.reservations.InsertOne(ctx, models.UsernameReservation{
		ID:        key,
		UserID:    userID,
		Username:  display,
		CreatedAt: now,
	})
	if wafflemongo.IsDup(err) {
		return ErrTaken
	}
	return err
}

// undoReservation removes a reservation inserted by a fallback claim whose
// user update then failed.
func (s *Store) undoReservation(key string, userID primitive.ObjectID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.reservations.DeleteOne(ctx, bson.M{"_id": key, "user_id": userID}); err != nil {
		s.log.Error("failed to undo username reservation", zap.String("username", key), zap.Error(err))
	}
}

// release clears the user's username. username_changed_at is left alone so
// removing a name does not restart the cooldown.
func (s *Store) release(ctx context.Context, userID primitive.ObjectID) (Result, error) {
	h, err := s.loadHolder(ctx, userID)
	if err != nil {
		return Result{}, err
	}
	res := Result{Previous: h.Username, Removed: h.UsernameCI != ""}
	if h.UsernameCI == "" {
		return res, nil
	}

	if _, err := s.users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$unset": bson.M{"username": "", "username_ci": ""},
		"$set":   bson.M{"updated_at": s.Now().UTC()},
	}); err != nil {
		return Result{}, err
	}
	if _, err := s.reservations.DeleteOne(ctx, bson.M{"_id": h.UsernameCI, "user_id": userID}); err != nil {
		return Result{}, fmt.Errorf("delete reservation: %w", err)
	}
	return res, nil
}

// Available reports whether name is free (or already held by userID).
func (s *Store) Available(ctx context.Context, name string, userID primitive.ObjectID) (bool, error) {
	var r models.UsernameReservation
	err := s.reservations.FindOne(ctx, bson.M{"_id": normalize.UsernameKey(name)}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return r.UserID == userID, nil
}

// Owner returns the user holding name.
func (s *Store) Owner(ctx context.Context, name string) (primitive.ObjectID, error) {
	var r models.UsernameReservation
	err := s.reservations.FindOne(ctx, bson.M{"_id": normalize.UsernameKey(name)}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return primitive.NilObjectID, ErrUserNotFound
	}
	if err != nil {
		return primitive.NilObjectID, err
	}
	return r.UserID, nil
}

// ReleaseAll drops every reservation held by userID. Used on account deletion.
func (s *Store) ReleaseAll(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.reservations.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
