package paging

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/cardhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type row struct {
	ID        primitive.ObjectID `bson:"_id"`
	Status    string             `bson:"status"`
	CreatedAt time.Time          `bson:"created_at"`
}

func rowKey(r row) Cursor { return Cursor{At: r.CreatedAt, ID: r.ID} }

func TestCursorRoundTrip(t *testing.T) {
	c := Cursor{At: time.Date(2024, 5, 1, 12, 30, 0, 123000000, time.UTC), ID: primitive.NewObjectID()}
	got, err := DecodeCursor(EncodeCursor(c))
	if err != nil {
		t.Fatalf("DecodeCursor: %v", err)
	}
	if !got.At.Equal(c.At) || got.ID != c.ID {
		t.Errorf("got %+v, want %+v", got, c)
	}
}

func TestCursorRoundTrip_StringKey(t *testing.T) {
	c := Cursor{At: time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC), Key: "a_b|c"}
	got, err := DecodeCursor(EncodeCursor(c))
	if err != nil {
		t.Fatalf("DecodeCursor: %v", err)
	}
	if !got.At.Equal(c.At) || got.Key != c.Key || !got.ID.IsZero() {
		t.Errorf("got %+v, want %+v", got, c)
	}
}

func TestWindow_TiesOnKeyWhenSet(t *testing.T) {
	at := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	oid := primitive.NewObjectID()
	tests := []struct {
		name string
		c    Cursor
		want any
	}{
		{"object id", Cursor{At: at, ID: oid}, oid},
		{"string key", Cursor{At: at, Key: "r_1"}, "r_1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Window(&tt.c)
			second := w["$or"].(bson.A)[1].(bson.M)
			if got := second["_id"].(bson.M)["$lt"]; got != tt.want {
				t.Errorf("_id $lt = %v, want %v", got, tt.want)
			}
		})
	}
	if Window(nil) != nil {
		t.Error("Window(nil) should be nil")
	}
}

func TestDecodeCursor_Invalid(t *testing.T) {
	for _, s := range []string{"garbage", "!!!", ""} {
		if _, err := DecodeCursor(s); err != ErrBadCursor {
			t.Errorf("DecodeCursor(%q) err = %v, want ErrBadCursor", s, err)
		}
	}
}

func TestParseRequest(t *testing.T) {
	tests := []struct {
		url       string
		wantLimit int
		wantAfter string
	}{
		{"/x", PageSize, ""},
		{"/x?limit=10", 10, ""},
		{"/x?limit=0", PageSize, ""},
		{"/x?limit=abc", PageSize, ""},
		{"/x?limit=1000", MaxPageSize, ""},
		{"/x?after=tok&limit=5", 5, "tok"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got := ParseRequest(httptest.NewRequest("GET", tt.url, nil))
			if got.Limit != tt.wantLimit || got.After != tt.wantAfter {
				t.Errorf("got %+v, want limit=%d after=%q", got, tt.wantLimit, tt.wantAfter)
			}
		})
	}
}

func seedRows(t *testing.T, coll *mongo.Collection, n int) []row {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Now().UTC().Truncate(time.Millisecond)
	var rows []row
	var docs []any
	for i := 0; i < n; i++ {
		status := "open"
		if i%3 == 0 {
			status = "closed"
		}
		// Pairs share a timestamp so the _id tiebreak is exercised.
		r := row{ID: primitive.NewObjectID(), Status: status, CreatedAt: base.Add(-time.Duration(i/2) * time.Minute)}
		rows = append(rows, r)
		docs = append(docs, r)
	}
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return rows
}

func collectAll(t *testing.T, coll *mongo.Collection, spec Spec[row], limit int) ([]row, bool) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	var all []row
	fallback := false
	req := Request{Limit: limit}
	for i := 0; i < 100; i++ {
		page, err := Find(ctx, coll, spec, req)
		if err != nil {
			t.Fatalf("Find: %v", err)
		}
		if len(page.Items) > limit {
			t.Fatalf("page has %d items, limit %d", len(page.Items), limit)
		}
		fallback = fallback || page.Fallback
		all = append(all, page.Items...)
		if !page.HasMore {
			return all, fallback
		}
		req.After = page.Next
	}
	t.Fatal("paging did not terminate")
	return nil, false
}

func assertNewestFirstUnique(t *testing.T, rows []row) {
	t.Helper()
	seen := map[primitive.ObjectID]bool{}
	for i, r := range rows {
		if seen[r.ID] {
			t.Fatalf("row %s returned twice", r.ID.Hex())
		}
		seen[r.ID] = true
		if i == 0 {
			continue
		}
		prev := rows[i-1]
		if r.CreatedAt.After(prev.CreatedAt) {
			t.Fatalf("row %d is newer than row %d", i, i-1)
		}
		if r.CreatedAt.Equal(prev.CreatedAt) && r.ID.Hex() > prev.ID.Hex() {
			t.Fatalf("row %d breaks the _id tiebreak", i)
		}
	}
}

func TestFind_Unfiltered(t *testing.T) {
	db := testutil.SetupTestDB(t)
	coll := db.Collection("rows")
	seedRows(t, coll, 60)

	all, fallback := collectAll(t, coll, Spec[row]{Key: rowKey}, 25)
	if len(all) != 60 {
		t.Fatalf("got %d rows, want 60", len(all))
	}
	if fallback {
		t.Error("unfiltered query should not fall back")
	}
	assertNewestFirstUnique(t, all)
}

func TestFind_HintedFilter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	coll := db.Collection("rows")
	seeded := seedRows(t, coll, 60)

	ctx, cancel := testutil.TestContext()
	defer cancel()
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
		Options: options.Index().SetName("idx_rows_status_created"),
	})
	if err != nil {
		t.Fatalf("create index: %v", err)
	}

	want := 0
	for _, r := range seeded {
		if r.Status == "closed" {
			want++
		}
	}

	spec := Spec[row]{
		Filter: bson.M{"status": "closed"},
		Hint:   "idx_rows_status_created",
		Match:  func(r row) bool { return r.Status == "closed" },
		Key:    rowKey,
	}
	all, fallback := collectAll(t, coll, spec, 7)
	if fallback {
		t.Error("expected hinted path, got fallback")
	}
	if len(all) != want {
		t.Fatalf("got %d rows, want %d", len(all), want)
	}
	for _, r := range all {
		if r.Status != "closed" {
			t.Fatalf("unexpected status %q", r.Status)
		}
	}
	assertNewestFirstUnique(t, all)
}

func TestFind_MissingIndexFallsBack(t *testing.T) {
	db := testutil.SetupTestDB(t)
	coll := db.Collection("rows")
	seeded := seedRows(t, coll, 60)

	want := 0
	for _, r := range seeded {
		if r.Status == "open" {
			want++
		}
	}

	spec := Spec[row]{
		Filter: bson.M{"status": "open"},
		Hint:   "idx_does_not_exist",
		Match:  func(r row) bool { return r.Status == "open" },
		Key:    rowKey,
	}
	all, fallback := collectAll(t, coll, spec, 25)
	if !fallback {
		t.Error("expected fallback flag")
	}
	if len(all) != want {
		t.Fatalf("got %d rows, want %d", len(all), want)
	}
	for _, r := range all {
		if r.Status != "open" {
			t.Fatalf("unexpected status %q", r.Status)
		}
	}
	assertNewestFirstUnique(t, all)
}

func TestFind_BadCursor(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := Find(ctx, db.Collection("rows"), Spec[row]{Key: rowKey}, Request{After: "nope"})
	if err != ErrBadCursor {
		t.Errorf("err = %v, want ErrBadCursor", err)
	}
}

func TestFind_EmptyCollection(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	page, err := Find(ctx, db.Collection("rows"), Spec[row]{Key: rowKey}, Request{})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if page.Items == nil || len(page.Items) != 0 || page.HasMore || page.Next != "" {
		t.Errorf("unexpected page %+v", page)
	}
}
