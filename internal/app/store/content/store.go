package contentstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/cardhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotFound is returned when a slug has never been saved.
var ErrNotFound = errors.New("content not found")

// ErrBadSlug is returned for slugs outside the fixed CMS set.
var ErrBadSlug = errors.New("unknown content slug")

type Store struct {
	c   *mongo.Collection
	Now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("site_content"), Now: time.Now}
}

// GetBySlug loads one CMS document.
func (s *Store) GetBySlug(ctx context.Context, slug string) (*models.SiteContent, error) {
	if !models.IsValidContentSlug(slug) {
		return nil, ErrBadSlug
	}
	var doc models.SiteContent
	if err := s.c.FindOne(ctx, bson.M{"_id": slug}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

// Upsert replaces the document for doc.Slug and stamps UpdatedAt.
// Callers sanitize Body before saving.
func (s *Store) Upsert(ctx context.Context, doc models.SiteContent) (models.SiteContent, error) {
	if !models.IsValidContentSlug(doc.Slug) {
		return models.SiteContent{}, ErrBadSlug
	}
	now := s.Now().UTC()
	doc.UpdatedAt = &now
	_, err := s.c.ReplaceOne(ctx, bson.M{"_id": doc.Slug}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return models.SiteContent{}, err
	}
	return doc, nil
}

// List returns every saved CMS document ordered by slug.
func (s *Store) List(ctx context.Context) ([]models.SiteContent, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.SiteContent{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
