package interactionstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/cardhub/internal/app/system/indexes"
	"github.com/dalemusser/cardhub/internal/app/system/paging"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MaxAnalyticsDays bounds the analytics window.
const MaxAnalyticsDays = 365

type Store struct {
	c   *mongo.Collection
	Now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("interactions"), Now: time.Now}
}

// Record stores an interaction and returns it with id and timestamp set.
func (s *Store) Record(ctx context.Context, in models.Interaction) (models.Interaction, error) {
	in.ID = primitive.NewObjectID()
	in.Read = false
	in.CreatedAt = s.Now().UTC()
	if _, err := s.c.InsertOne(ctx, in); err != nil {
		return models.Interaction{}, err
	}
	return in, nil
}

// List pages the owner's notifications newest first.
func (s *Store) List(ctx context.Context, owner primitive.ObjectID, unreadOnly bool, req paging.Request) (paging.Page[models.Interaction], error) {
	spec := paging.Spec[models.Interaction]{
		Base: bson.M{"owner_id": owner},
		Key:  func(in models.Interaction) paging.Cursor { return paging.Cursor{At: in.CreatedAt, ID: in.ID} },
	}
	if unreadOnly {
		spec.Filter = bson.M{"read": false}
		spec.Hint = indexes.InteractionsOwnerUnread
		spec.Match = func(in models.Interaction) bool { return !in.Read }
	}
	return paging.Find(ctx, s.c, spec, req)
}

// UnreadCount returns how many notifications the owner has not read.
func (s *Store) UnreadCount(ctx context.Context, owner primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"owner_id": owner, "read": false})
}

// MarkRead flags one notification read. A row that is already read or
// gone is not an error.
func (s *Store) MarkRead(ctx context.Context, owner, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "owner_id": owner}, bson.M{"$set": bson.M{"read": true}})
	return err
}

// MarkAllRead flags every unread notification of owner read.
func (s *Store) MarkAllRead(ctx context.Context, owner primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx, bson.M{"owner_id": owner, "read": false}, bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Delete removes one notification. Deleting a missing row is not an error.
func (s *Store) Delete(ctx context.Context, owner, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "owner_id": owner})
	return err
}

// DeleteByOwner removes every interaction recorded for owner.
func (s *Store) DeleteByOwner(ctx context.Context, owner primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"owner_id": owner})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Analytics                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// Day is one point of the analytics series.
type Day struct {
	Date   string           `json:"date"`
	Counts map[string]int64 `json:"counts"`
}

// Summary is the owner's interaction analytics over a window of days.
type Summary struct {
	Days   int              `json:"days"`
	Since  time.Time        `json:"since"`
	Totals map[string]int64 `json:"totals"`
	Series []Day            `json:"series"`
}

func zeroCounts() map[string]int64 {
	m := make(map[string]int64, len(models.InteractionTypes))
	for _, t := range models.InteractionTypes {
		m[t] = 0
	}
	return m
}

// Analytics counts interactions per type over the last days days (UTC),
// with one series entry per day including empty ones.
func (s *Store) Analytics(ctx context.Context, owner primitive.ObjectID, days int) (Summary, error) {
	if days <= 0 {
		days = 30
	}
	if days > MaxAnalyticsDays {
		days = MaxAnalyticsDays
	}
	today := s.Now().UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(days - 1))

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"owner_id": owner, "created_at": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"day":  bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$created_at"}},
				"type": "$type",
			},
			"n": bson.M{"$sum": 1},
		}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
	if err != nil {
		return Summary{}, err
	}
	defer cur.Close(ctx)

	byDay := map[string]map[string]int64{}
	totals := zeroCounts()
	for cur.Next(ctx) {
		var row struct {
			ID struct {
				Day  string `bson:"day"`
				Type string `bson:"type"`
			} `bson:"_id"`
			N int64 `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return Summary{}, fmt.Errorf("decode analytics row: %w", err)
		}
		if byDay[row.ID.Day] == nil {
			byDay[row.ID.Day] = zeroCounts()
		}
		byDay[row.ID.Day][row.ID.Type] += row.N
		totals[row.ID.Type] += row.N
	}
	if err := cur.Err(); err != nil {
		return Summary{}, err
	}

	series := make([]Day, 0, days)
	for d := since; !d.After(today); d = d.AddDate(0, 0, 1) {
		date := d.Format("2006-01-02")
		counts := byDay[date]
		if counts == nil {
			counts = zeroCounts()
		}
		series = append(series, Day{Date: date, Counts: counts})
	}
	return Summary{Days: days, Since: since, Totals: totals, Series: series}, nil
}
