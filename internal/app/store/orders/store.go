package orderstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/cardhub/internal/app/policy/orderpolicy"
	"github.com/dalemusser/cardhub/internal/app/system/indexes"
	"github.com/dalemusser/cardhub/internal/app/system/paging"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound = errors.New("order not found")
	// ErrBadTransition is returned when the order is not in the status the
	// requested step starts from, including when another admin got there first.
	ErrBadTransition = errors.New("order cannot move to that status")
	// ErrNotEditable is returned when the owner edits an order that has
	// left order_received, or tracking is set before shipping.
	ErrNotEditable = errors.New("order can no longer be changed")
)

type Store struct {
	c   *mongo.Collection
	Now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("orders"), Now: time.Now}
}

func key(o models.Order) paging.Cursor { return paging.Cursor{At: o.CreatedAt, ID: o.ID} }

// Create inserts a new order in order_received.
func (s *Store) Create(ctx context.Context, o models.Order) (models.Order, error) {
	now := s.Now().UTC()
	o.ID = primitive.NewObjectID()
	o.Status = models.OrderReceived
	o.Timeline = models.Timeline{OrderReceived: &now}
	o.CreatedAt = now
	o.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, o); err != nil {
		return models.Order{}, err
	}
	return o, nil
}

func (s *Store) one(ctx context.Context, filter bson.M) (*models.Order, error) {
	var o models.Order
	if err := s.c.FindOne(ctx, filter).Decode(&o); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// Get loads an order by id.
func (s *Store) Get(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return s.one(ctx, bson.M{"_id": id})
}

// GetForUser loads an order only if userID owns it.
func (s *Store) GetForUser(ctx context.Context, id, userID primitive.ObjectID) (*models.Order, error) {
	return s.one(ctx, bson.M{"_id": id, "user_id": userID})
}

// ListByUser pages through one user's orders, newest first.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID, req paging.Request) (paging.Page[models.Order], error) {
	return paging.Find(ctx, s.c, paging.Spec[models.Order]{
		Base: bson.M{"user_id": userID},
		Key:  key,
	}, req)
}

// List pages through all orders for the admin table, optionally narrowed
// to one status.
func (s *Store) List(ctx context.Context, status string, req paging.Request) (paging.Page[models.Order], error) {
	spec := paging.Spec[models.Order]{Key: key}
	if status != "" {
		spec.Filter = bson.M{"status": status}
		spec.Hint = indexes.OrdersStatusCreated
		spec.Match = func(o models.Order) bool { return o.Status == status }
	}
	return paging.Find(ctx, s.c, spec, req)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Workflow                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// Advance moves an order one step to status to and stamps its timeline.
// The write is conditional on the status read beforehand, so two admins
// advancing at once cannot skip or repeat a step. It returns the status
// the order left.
func (s *Store) Advance(ctx context.Context, id primitive.ObjectID, to string) (string, *models.Order, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return "", nil, err
	}
	from := cur.Status
	if !orderpolicy.CanAdvance(from, to) {
		return from, nil, ErrBadTransition
	}

	now := s.Now().UTC()
	var o models.Order
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{
			"status":         to,
			"timeline." + to: now,
			"updated_at":     now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return from, nil, ErrBadTransition
	}
	if err != nil {
		return from, nil, err
	}
	return from, &o, nil
}

// Details are the owner-editable parts of an order.
type Details struct {
	Customization models.Customization
	Shipping      *models.Shipping
}

// UpdateDetails replaces the customization (and shipping when given) of an
// order owned by userID, only while it is order_received.
func (s *Store) UpdateDetails(ctx context.Context, id, userID primitive.ObjectID, d Details) (*models.Order, error) {
	set := bson.M{"customization": d.Customization, "updated_at": s.Now().UTC()}
	if d.Shipping != nil {
		set["shipping"] = *d.Shipping
	}

	var o models.Order
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "user_id": userID, "status": models.OrderReceived},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&o)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, gerr := s.GetForUser(ctx, id, userID); gerr != nil {
			return nil, gerr
		}
		return nil, ErrNotEditable
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// SetTracking records the carrier tracking number once the order has shipped.
func (s *Store) SetTracking(ctx context.Context, id primitive.ObjectID, number string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": bson.M{"$in": bson.A{models.OrderShipped, models.OrderDelivered}}},
		bson.M{"$set": bson.M{"tracking_number": number, "updated_at": s.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if _, gerr := s.Get(ctx, id); gerr != nil {
			return gerr
		}
		return ErrNotEditable
	}
	return nil
}

// SetCard links the card issued for the order.
func (s *Store) SetCard(ctx context.Context, id primitive.ObjectID, cardID string) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"card_id": cardID, "updated_at": s.Now().UTC()}})
	return err
}

/*─────────────────────────────────────────────────────────────────────────────*
| Payment                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// AttachCheckout records the Stripe checkout session opened for an order.
func (s *Store) AttachCheckout(ctx context.Context, id primitive.ObjectID, sessionID string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"payment.provider":            "stripe",
		"payment.checkout_session_id": sessionID,
		"payment.status":              models.PaymentPending,
		"updated_at":                  s.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkPaid marks the order paid by its checkout session. Webhooks are
// redelivered, so an order already paid is returned with changed=false.
func (s *Store) MarkPaid(ctx context.Context, id primitive.ObjectID, sessionID string) (o *models.Order, changed bool, err error) {
	now := s.Now().UTC()
	var out models.Order
	err = s.c.FindOneAndUpdate(ctx,
		bson.M{
			"_id":                         id,
			"payment.checkout_session_id": sessionID,
			"payment.status":              bson.M{"$ne": models.PaymentPaid},
		},
		bson.M{"$set": bson.M{
			"payment.status":  models.PaymentPaid,
			"payment.paid_at": now,
			"updated_at":      now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&out)
	if err == nil {
		return &out, true, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, err
	}

	existing, gerr := s.one(ctx, bson.M{"_id": id, "payment.checkout_session_id": sessionID})
	if gerr != nil {
		return nil, false, gerr
	}
	return existing, false, nil
}

// MarkCheckoutExpired flags an unpaid order whose checkout session expired.
func (s *Store) MarkCheckoutExpired(ctx context.Context, id primitive.ObjectID, sessionID string) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{
			"_id":                         id,
			"payment.checkout_session_id": sessionID,
			"payment.status":              models.PaymentPending,
		},
		bson.M{"$set": bson.M{"payment.status": models.PaymentExpired, "updated_at": s.Now().UTC()}})
	return err
}

/*─────────────────────────────────────────────────────────────────────────────*
| Counts                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// CountByStatus returns the number of orders per status. Every known status
// is present in the map, zero or not.
func (s *Store) CountByStatus(ctx context.Context) (map[string]int64, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[string]int64, len(models.OrderStatuses))
	for _, st := range models.OrderStatuses {
		out[st] = 0
	}
	for cur.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			N      int64  `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode status count: %w", err)
		}
		out[row.Status] = row.N
	}
	return out, cur.Err()
}

// CountAwaitingPayment counts orders whose checkout is still pending and
// was opened before olderThan.
func (s *Store) CountAwaitingPayment(ctx context.Context, olderThan time.Time) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"payment.status": models.PaymentPending,
		"created_at":     bson.M{"$lt": olderThan},
	})
}

// DetachUser keeps orders of a deleted account for bookkeeping but drops
// the link to its card.
func (s *Store) DetachUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.c.UpdateMany(ctx, bson.M{"user_id": userID},
		bson.M{"$unset": bson.M{"card_id": ""}, "$set": bson.M{"updated_at": s.Now().UTC()}})
	return err
}

// Import upserts an order carried over from the legacy store, keyed by
// LegacyID. An order imported earlier is left untouched; the result
// reports whether a new document was written.
func (s *Store) Import(ctx context.Context, o models.Order) (bool, error) {
	if o.LegacyID == "" {
		return false, errors.New("import: order has no legacy id")
	}
	o.ID = primitive.NewObjectID()
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = s.Now().UTC()
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"legacy_id": o.LegacyID},
		bson.M{"$setOnInsert": o},
		options.Update().SetUpsert(true))
	if err != nil {
		return false, err
	}
	return res.UpsertedCount > 0, nil
}
