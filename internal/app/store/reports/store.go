package reportstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/cardhub/internal/app/policy/reportpolicy"
	"github.com/dalemusser/cardhub/internal/app/system/indexes"
	"github.com/dalemusser/cardhub/internal/app/system/paging"
	"github.com/dalemusser/cardhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound = errors.New("report not found")
	// ErrDuplicate is returned when the reporter already reported this user.
	ErrDuplicate = errors.New("you have already reported this user")
	// ErrClosed is returned when closing a report that is no longer pending.
	ErrClosed    = errors.New("report is already closed")
	ErrSelf      = errors.New("you cannot report yourself")
	ErrBadReason = errors.New("at least one valid reason is required")
	ErrBadStatus = errors.New(`status must be "resolved"|"dismissed"`)
)

type Store struct {
	c   *mongo.Collection
	Now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("reports"), Now: time.Now}
}

func key(r models.Report) paging.Cursor {
	return paging.Cursor{At: r.CreatedAt, Key: r.ID}
}

// Submit files a report. The id is derived from the reporter and target,
// so a repeat submission fails on the primary key.
func (s *Store) Submit(ctx context.Context, reporter, reported primitive.ObjectID, reasons []string, description string) (models.Report, error) {
	if reporter == reported {
		return models.Report{}, ErrSelf
	}
	clean := make([]string, 0, len(reasons))
	seen := map[string]bool{}
	for _, r := range reasons {
		r = strings.TrimSpace(r)
		if !models.IsValidReportReason(r) {
			return models.Report{}, ErrBadReason
		}
		if !seen[r] {
			seen[r] = true
			clean = append(clean, r)
		}
	}
	if len(clean) == 0 {
		return models.Report{}, ErrBadReason
	}

	rep := models.Report{
		ID:             models.ReportID(reporter, reported),
		ReporterID:     reporter,
		ReportedUserID: reported,
		Reasons:        clean,
		Description:    strings.TrimSpace(description),
		Status:         models.ReportPending,
		CreatedAt:      s.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, rep); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Report{}, ErrDuplicate
		}
		return models.Report{}, err
	}
	return rep, nil
}

// Get loads a report by id.
func (s *Store) Get(ctx context.Context, id string) (*models.Report, error) {
	var rep models.Report
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&rep); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rep, nil
}

// Close moves a pending report to resolved or dismissed. Both are final.
func (s *Store) Close(ctx context.Context, id, status, note string, closedBy primitive.ObjectID) (*models.Report, error) {
	if !reportpolicy.CanClose(models.ReportPending, status) {
		return nil, ErrBadStatus
	}
	now := s.Now().UTC()
	var rep models.Report
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.ReportPending},
		bson.M{"$set": bson.M{
			"status":          status,
			"resolution_note": strings.TrimSpace(note),
			"closed_by":       closedBy,
			"closed_at":       now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&rep)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, gerr := s.Get(ctx, id); gerr != nil {
			return nil, gerr
		}
		return nil, ErrClosed
	}
	if err != nil {
		return nil, err
	}
	return &rep, nil
}

// List pages through reports newest first, optionally by status. The
// string report id breaks created_at ties.
func (s *Store) List(ctx context.Context, status string, req paging.Request) (paging.Page[models.Report], error) {
	spec := paging.Spec[models.Report]{Key: key}
	if status != "" {
		spec.Filter = bson.M{"status": status}
		spec.Hint = indexes.ReportsStatusCreated
		spec.Match = func(r models.Report) bool { return r.Status == status }
	}
	return paging.Find(ctx, s.c, spec, req)
}

func (s *Store) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Report, error) {
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Report
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAgainst returns every report filed against userID, newest first.
func (s *Store) ListAgainst(ctx context.Context, userID primitive.ObjectID) ([]models.Report, error) {
	out, err := s.find(ctx, bson.M{"reported_user_id": userID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Report{}
	}
	return out, nil
}

// CountPending returns the number of open reports.
func (s *Store) CountPending(ctx context.Context) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"status": models.ReportPending})
}

// Import inserts a report carried over from the legacy store as is. It
// returns false when a report for the same pair already exists.
func (s *Store) Import(ctx context.Context, rep models.Report) (bool, error) {
	rep.ID = models.ReportID(rep.ReporterID, rep.ReportedUserID)
	if _, err := s.c.InsertOne(ctx, rep); err != nil {
		if wafflemongo.IsDup(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
