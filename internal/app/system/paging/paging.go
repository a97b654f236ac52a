// internal/app/system/paging/paging.go
package paging

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// PageSize is the default number of rows in a paged list.
const PageSize = 25

// MaxPageSize caps the limit a client may ask for.
const MaxPageSize = 100

// fallbackBatch is how many rows each fallback scan reads per round trip,
// as a multiple of the page size.
const fallbackBatch = 4

// ErrBadCursor is returned when the "after" token cannot be decoded.
var ErrBadCursor = errors.New("invalid cursor")

// Cursor is a position in a created_at desc, _id desc ordering.
// Collections with string ids set Key instead of ID.
type Cursor struct {
	At  time.Time
	ID  primitive.ObjectID
	Key string
}

func (c Cursor) tie() any {
	if c.Key != "" {
		return c.Key
	}
	return c.ID
}

// EncodeCursor returns the opaque token for c.
func EncodeCursor(c Cursor) string {
	ci := c.At.UTC().Format(time.RFC3339Nano)
	if c.Key != "" {
		ci += "|" + c.Key
	}
	return wafflemongo.EncodeCursor(ci, c.ID)
}

// DecodeCursor parses a token produced by EncodeCursor.
func DecodeCursor(s string) (Cursor, error) {
	wc, ok := wafflemongo.DecodeCursor(s)
	if !ok {
		return Cursor{}, ErrBadCursor
	}
	ts, key, _ := strings.Cut(wc.CI, "|")
	at, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return Cursor{}, ErrBadCursor
	}
	return Cursor{At: at, ID: wc.ID, Key: key}, nil
}

// Request holds the paging parameters of a list call.
type Request struct {
	After string
	Limit int
}

// ParseRequest reads "after" and "limit" from the query string.
// A missing or invalid limit falls back to PageSize; a larger one is capped.
func ParseRequest(r *http.Request) Request {
	req := Request{After: query.Get(r, "after"), Limit: PageSize}
	if s := query.Get(r, "limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			req.Limit = n
		}
	}
	if req.Limit > MaxPageSize {
		req.Limit = MaxPageSize
	}
	return req
}

func (r Request) size() int {
	if r.Limit <= 0 {
		return PageSize
	}
	if r.Limit > MaxPageSize {
		return MaxPageSize
	}
	return r.Limit
}

// Page is one page of results as returned to API clients.
type Page[T any] struct {
	Items    []T    `json:"items"`
	Next     string `json:"next,omitempty"`
	HasMore  bool   `json:"has_more"`
	Fallback bool   `json:"fallback,omitempty"`
}

// Spec describes a paged query over a collection ordered newest first.
type Spec[T any] struct {
	// Base is always applied (for example an owner id).
	Base bson.M
	// Filter is the optional constraint served by the Hint index.
	Filter bson.M
	// Hint names the composite index backing Filter.
	Hint string
	// Match is the in-memory equivalent of Filter, used when the hinted
	// index is missing.
	Match func(T) bool
	// Key returns the sort position of a row. It must be unique per row,
	// so it always carries the row's _id.
	Key func(T) Cursor
}

// Window returns the filter selecting rows strictly after c in a
// created_at desc, _id desc ordering. It returns nil for a nil cursor.
func Window(c *Cursor) bson.M {
	if c == nil {
		return nil
	}
	return bson.M{"$or": bson.A{
		bson.M{"created_at": bson.M{"$lt": c.At}},
		bson.M{"created_at": c.At, "_id": bson.M{"$lt": c.tie()}},
	}}
}

func and(parts ...bson.M) bson.M {
	var clauses bson.A
	for _, p := range parts {
		if len(p) > 0 {
			clauses = append(clauses, p)
		}
	}
	switch len(clauses) {
	case 0:
		return bson.M{}
	case 1:
		return clauses[0].(bson.M)
	}
	return bson.M{"$and": clauses}
}

func newestFirst(limit int) *options.FindOptions {
	return options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))
}

// IsMissingIndex reports whether err is the server rejecting a hint that
// names an index it does not have.
func IsMissingIndex(err error) bool {
	var se mongo.ServerError
	if !errors.As(err, &se) {
		return false
	}
	if se.HasErrorCode(291) || se.HasErrorCode(17007) {
		return true
	}
	return se.HasErrorCode(2) && strings.Contains(strings.ToLower(err.Error()), "hint")
}

// Find runs spec against coll and returns the page following req.After.
//
// When spec.Filter is set the query is hinted at spec.Hint. If the server
// rejects the hint because the index is missing, the query is retried once
// without the filter: rows are scanned newest first from the cursor and
// matched in memory until the page is full or the collection is exhausted.
func Find[T any](ctx context.Context, coll *mongo.Collection, spec Spec[T], req Request) (Page[T], error) {
	var after *Cursor
	if req.After != "" {
		c, err := DecodeCursor(req.After)
		if err != nil {
			return Page[T]{}, err
		}
		after = &c
	}
	size := req.size()

	opts := newestFirst(size + 1)
	if len(spec.Filter) > 0 && spec.Hint != "" {
		opts.SetHint(spec.Hint)
	}

	rows, err := fetch[T](ctx, coll, and(spec.Base, spec.Filter, Window(after)), opts)
	fallback := false
	if err != nil {
		if len(spec.Filter) == 0 || !IsMissingIndex(err) {
			return Page[T]{}, err
		}
		rows, err = scan(ctx, coll, spec, after, size+1)
		if err != nil {
			return Page[T]{}, err
		}
		fallback = true
	}

	page := Page[T]{Items: rows, Fallback: fallback}
	if len(rows) > size {
		page.Items = rows[:size]
		page.HasMore = true
	}
	if page.HasMore && spec.Key != nil {
		page.Next = EncodeCursor(spec.Key(page.Items[len(page.Items)-1]))
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page, nil
}

// scan is the unhinted path of Find. Each batch resumes from the last row
// of the previous one, so no row is read twice.
func scan[T any](ctx context.Context, coll *mongo.Collection, spec Spec[T], after *Cursor, want int) ([]T, error) {
	batch := want * fallbackBatch
	var out []T
	pos := after
	for len(out) < want {
		rows, err := fetch[T](ctx, coll, and(spec.Base, Window(pos)), newestFirst(batch))
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if spec.Match == nil || spec.Match(row) {
				out = append(out, row)
				if len(out) == want {
					break
				}
			}
		}
		if len(rows) < batch {
			break
		}
		last := spec.Key(rows[len(rows)-1])
		pos = &last
	}
	return out, nil
}

func fetch[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []T
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
