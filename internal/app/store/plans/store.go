// Package planstore keeps the plans collection in step with the CMS store
// document.
package planstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/cardhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when no plan has the given id.
var ErrNotFound = errors.New("plan not found")

type Store struct {
	c   *mongo.Collection
	Now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("plans"), Now: time.Now}
}

// SyncResult counts what Sync changed.
type SyncResult struct {
	Upserted    int64 `json:"upserted"`
	Updated     int64 `json:"updated"`
	Deactivated int64 `json:"deactivated"`
}

/*
Sync mirrors products into plans, one-way.

Listing fields (name, price, currency, description, Stripe price) always
follow the product. Limits and features are only written when the plan is
first created, so entitlements tuned by an admin survive later syncs.
Plans whose product disappeared are deactivated, never deleted, because
orders reference them.
*/
func (s *Store) Sync(ctx context.Context, products []models.StoreProduct) (SyncResult, error) {
	now := s.Now().UTC()
	var res SyncResult

	ids := make([]string, 0, len(products))
	writes := make([]mongo.WriteModel, 0, len(products))
	for _, p := range products {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			continue
		}
		ids = append(ids, id)
		currency := strings.ToLower(strings.TrimSpace(p.Currency))
		if currency == "" {
			currency = "usd"
		}
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": id}).
			SetUpdate(bson.M{
				"$set": bson.M{
					"name":            p.Name,
					"price_cents":     p.PriceCents,
					"currency":        currency,
					"description":     p.Description,
					"stripe_price_id": p.StripePriceID,
					"active":          true,
					"synced_at":       now,
				},
				"$setOnInsert": bson.M{
					"limits":     models.DefaultPlanLimits,
					"features":   models.DefaultPlanFeatures,
					"created_at": now,
				},
			}).
			SetUpsert(true))
	}

	if len(writes) > 0 {
		br, err := s.c.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
		if err != nil {
			return res, err
		}
		res.Upserted = br.UpsertedCount
		res.Updated = br.ModifiedCount
	}

	ur, err := s.c.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$nin": ids}, "active": true},
		bson.M{"$set": bson.M{"active": false, "synced_at": now}})
	if err != nil {
		return res, err
	}
	res.Deactivated = ur.ModifiedCount
	return res, nil
}

// GetByID loads a plan, active or not.
func (s *Store) GetByID(ctx context.Context, id string) (*models.Plan, error) {
	var p models.Plan
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListActive returns purchasable plans, cheapest first.
func (s *Store) ListActive(ctx context.Context) ([]models.Plan, error) {
	return s.list(ctx, bson.M{"active": true})
}

// ListAll returns every plan including deactivated ones.
func (s *Store) ListAll(ctx context.Context) ([]models.Plan, error) {
	return s.list(ctx, bson.M{})
}

func (s *Store) list(ctx context.Context, filter bson.M) ([]models.Plan, error) {
	opts := options.Find().SetSort(bson.D{{Key: "price_cents", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Plan{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetEntitlements overrides a plan's limits and features.
func (s *Store) SetEntitlements(ctx context.Context, id string, limits models.PlanLimits, features models.PlanFeatures) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"limits":   limits,
		"features": features,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Entitlements returns the limits and features for planID, falling back to
// the free tier when the user has no plan or the plan is gone.
func (s *Store) Entitlements(ctx context.Context, planID string) (models.PlanLimits, models.PlanFeatures, error) {
	if planID == "" {
		return models.FreePlanLimits, models.FreePlanFeatures, nil
	}
	p, err := s.GetByID(ctx, planID)
	if errors.Is(err, ErrNotFound) {
		return models.FreePlanLimits, models.FreePlanFeatures, nil
	}
	if err != nil {
		return models.PlanLimits{}, models.PlanFeatures{}, err
	}
	return p.Limits, p.Features, nil
}
