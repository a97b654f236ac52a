package profile_test

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/cardhub/internal/app/features/profile"
	cardstore "github.com/dalemusser/cardhub/internal/app/store/cards"
	interactionstore "github.com/dalemusser/cardhub/internal/app/store/interactions"
	orderstore "github.com/dalemusser/cardhub/internal/app/store/orders"
	planstore "github.com/dalemusser/cardhub/internal/app/store/plans"
	privatestore "github.com/dalemusser/cardhub/internal/app/store/privatecontent"
	"github.com/dalemusser/cardhub/internal/app/store/usernames"
	userstore "github.com/dalemusser/cardhub/internal/app/store/users"
	"github.com/dalemusser/cardhub/internal/app/system/auth"
	"github.com/dalemusser/cardhub/internal/app/system/blobstore"
	"github.com/dalemusser/cardhub/internal/app/system/indexes"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"github.com/dalemusser/cardhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type env struct {
	h   *profile.Handler
	db  *mongo.Database
	fx  *testutil.Fixtures
	dir string
}

func newEnv(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}

	logger := zap.NewNop()
	sessionMgr, err := auth.NewSessionManager("test-session-key-for-testing-only", "test-session", "", time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	dir := t.TempDir()
	files, err := blobstore.NewLocal(dir, "/files")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	private := privatestore.New(db)
	private.Cost = bcrypt.MinCost

	h := profile.NewHandler(profile.Deps{
		Users:        userstore.New(db),
		Usernames:    usernames.New(db, logger),
		Plans:        planstore.New(db),
		Private:      private,
		Cards:        cardstore.New(db),
		Interactions: interactionstore.New(db),
		Orders:       orderstore.New(db),
		Files:        files,
	}, sessionMgr, nil, logger)
	return env{h: h, db: db, fx: testutil.NewFixtures(t, db), dir: dir}
}

func (e env) userOnPlan(t *testing.T, email string) models.User {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := e.fx.CreateRegularUser(ctx, "Plan User", email)
	e.fx.CreatePlan(ctx, "pro", "Pro", 2999)
	if err := userstore.New(e.db).SetPlan(ctx, u.ID, "pro"); err != nil {
		t.Fatalf("SetPlan: %v", err)
	}
	u.PlanID = "pro"
	return u
}

type profileBody struct {
	User models.User `json:"user"`
	Plan struct {
		Limits   models.PlanLimits   `json:"limits"`
		Features models.PlanFeatures `json:"features"`
	} `json:"plan"`
}

func TestServeProfile_FreePlan(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := e.fx.CreateRegularUser(ctx, "Free", "free@example.com")

	rec := testutil.NewRecorder()
	e.h.ServeProfile(rec, testutil.NewAuthenticatedRequest("GET", "/api/me", testutil.AsTestUser(u)))
	rec.AssertStatus(t, http.StatusOK)

	var body profileBody
	rec.DecodeJSON(t, &body)
	if body.User.ID != u.ID {
		t.Errorf("wrong user")
	}
	if body.Plan.Limits != models.FreePlanLimits {
		t.Errorf("limits = %+v, want free tier", body.Plan.Limits)
	}

	rec = testutil.NewRecorder()
	e.h.ServeProfile(rec, testutil.NewRequest("GET", "/api/me"))
	rec.AssertStatus(t, http.StatusUnauthorized)
}

func link(i int) map[string]string {
	return map[string]string{"label": "Link", "url": "https://example.com/" + string(rune('a'+i))}
}

func TestHandleUpdate(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := e.fx.CreateRegularUser(ctx, "Before", "edit@example.com")
	tu := testutil.AsTestUser(u)

	links := func(n int) []map[string]string {
		out := make([]map[string]string, n)
		for i := range out {
			out[i] = link(i)
		}
		return out
	}

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"ok", map[string]any{"full_name": "After", "bio": "hi", "links": links(3), "is_public": false}, http.StatusOK},
		{"over free link limit", map[string]any{"full_name": "After", "links": links(4)}, http.StatusUnprocessableEntity},
		{"bad link url", map[string]any{"full_name": "After", "links": []map[string]string{{"label": "x", "url": "javascript:alert(1)"}}}, http.StatusBadRequest},
		{"missing name", map[string]any{"bio": "x"}, http.StatusBadRequest},
		{"bio too long", map[string]any{"full_name": "A", "bio": strings.Repeat("é", 501)}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.NewRecorder()
			e.h.HandleUpdate(rec, testutil.NewAuthenticatedJSONRequest("PUT", "/api/me", tu, tt.body))
			rec.AssertStatus(t, tt.want)
		})
	}

	got, err := userstore.New(e.db).GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.FullName != "After" || got.IsPublic || len(got.Links) != 3 {
		t.Errorf("stored profile = %q public=%v links=%d", got.FullName, got.IsPublic, len(got.Links))
	}
}

func multipartFile(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, "upload.bin")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	_, _ = fw.Write(data)
	_ = mw.Close()
	return &buf, mw.FormDataContentType()
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestPhotoUploadAndDelete(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := e.fx.CreateRegularUser(ctx, "Pic", "pic@example.com")
	tu := testutil.AsTestUser(u)

	body, ct := multipartFile(t, "file", pngBytes)
	req := httptest.NewRequest("POST", "/api/me/photo", body)
	req.Header.Set("Content-Type", ct)
	rec := testutil.NewRecorder()
	e.h.HandlePhotoUpload(rec, testutil.WithUser(req, tu))
	rec.AssertStatus(t, http.StatusOK)

	var resp struct {
		PhotoURL string `json:"photo_url"`
	}
	rec.DecodeJSON(t, &resp)
	if !strings.HasPrefix(resp.PhotoURL, "/files/photo/"+u.ID.Hex()+"/") {
		t.Errorf("photo_url = %q", resp.PhotoURL)
	}
	got, _ := userstore.New(e.db).GetByID(ctx, u.ID)
	if got.PhotoURL != resp.PhotoURL {
		t.Errorf("stored photo = %q", got.PhotoURL)
	}

	body, ct = multipartFile(t, "file", []byte("plain text pretending"))
	req = httptest.NewRequest("POST", "/api/me/photo", body)
	req.Header.Set("Content-Type", ct)
	rec = testutil.NewRecorder()
	e.h.HandlePhotoUpload(rec, testutil.WithUser(req, tu))
	rec.AssertStatus(t, http.StatusUnsupportedMediaType)

	rec = testutil.NewRecorder()
	e.h.HandlePhotoDelete(rec, testutil.NewAuthenticatedRequest("DELETE", "/api/me/photo", tu))
	rec.AssertStatus(t, http.StatusNoContent)
	got, _ = userstore.New(e.db).GetByID(ctx, u.ID)
	if got.PhotoURL != "" {
		t.Errorf("photo not cleared")
	}
}

func TestPrivateContent(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	free := e.fx.CreateRegularUser(ctx, "Free", "free@example.com")
	items := map[string]any{"items": []map[string]string{{"label": "Cell", "value": "555-0100"}}}

	rec := testutil.NewRecorder()
	e.h.HandlePrivateUpdate(rec, testutil.NewAuthenticatedJSONRequest("PUT", "/api/me/private", testutil.AsTestUser(free), items))
	rec.AssertStatus(t, http.StatusForbidden)

	paid := testutil.AsTestUser(e.userOnPlan(t, "pro@example.com"))

	rec = testutil.NewRecorder()
	e.h.HandlePrivateUpdate(rec, testutil.NewAuthenticatedJSONRequest("PUT", "/api/me/private", paid, items))
	rec.AssertStatus(t, http.StatusOK)

	tooMany := make([]map[string]string, models.DefaultPlanLimits.Contacts+1)
	for i := range tooMany {
		tooMany[i] = map[string]string{"label": "L", "value": "V"}
	}
	rec = testutil.NewRecorder()
	e.h.HandlePrivateUpdate(rec, testutil.NewAuthenticatedJSONRequest("PUT", "/api/me/private", paid, map[string]any{"items": tooMany}))
	rec.AssertStatus(t, http.StatusUnprocessableEntity)

	for _, tt := range []struct {
		pin  string
		want int
	}{
		{"12", http.StatusBadRequest},
		{"12ab", http.StatusBadRequest},
		{"4321", http.StatusNoContent},
	} {
		rec = testutil.NewRecorder()
		e.h.HandleSetPIN(rec, testutil.NewAuthenticatedJSONRequest("PUT", "/api/me/private/pin", paid, map[string]string{"pin": tt.pin}))
		rec.AssertStatus(t, tt.want)
	}

	rec = testutil.NewRecorder()
	e.h.ServePrivate(rec, testutil.NewAuthenticatedRequest("GET", "/api/me/private", paid))
	rec.AssertStatus(t, http.StatusOK)
	var body struct {
		Items  []models.PrivateItem `json:"items"`
		HasPIN bool                 `json:"has_pin"`
	}
	rec.DecodeJSON(t, &body)
	if len(body.Items) != 1 || !body.HasPIN {
		t.Errorf("private = %+v", body)
	}
	rec.AssertNotContains(t, "pin_hash")
}

func TestBlockedList(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	owner := e.fx.CreateRegularUser(ctx, "Owner", "owner@example.com")
	pest := e.fx.CreateRegularUser(ctx, "Pest", "pest@example.com")
	tu := testutil.AsTestUser(owner)

	call := func(method, target string, fn http.HandlerFunc) *testutil.ResponseRecorder {
		req := testutil.WithChiURLParam(testutil.NewAuthenticatedRequest(method, "/api/me/blocked/"+target, tu), "userID", target)
		rec := testutil.NewRecorder()
		fn(rec, req)
		return rec
	}

	call("PUT", owner.ID.Hex(), e.h.HandleBlock).AssertStatus(t, http.StatusBadRequest)
	call("PUT", "000000000000000000000000", e.h.HandleBlock).AssertStatus(t, http.StatusNotFound)
	call("PUT", pest.ID.Hex(), e.h.HandleBlock).AssertStatus(t, http.StatusNoContent)
	call("PUT", pest.ID.Hex(), e.h.HandleBlock).AssertStatus(t, http.StatusNoContent)

	rec := testutil.NewRecorder()
	e.h.ServeBlocked(rec, testutil.NewAuthenticatedRequest("GET", "/api/me/blocked", tu))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, pest.ID.Hex())

	call("DELETE", pest.ID.Hex(), e.h.HandleUnblock).AssertStatus(t, http.StatusNoContent)
	got, _ := userstore.New(e.db).GetByID(ctx, owner.ID)
	if len(got.BlockedIDs) != 0 {
		t.Errorf("blocked = %v", got.BlockedIDs)
	}
}

func TestHandleUsername(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	alice := e.fx.CreateRegularUser(ctx, "Alice", "alice@example.com")
	bob := e.fx.CreateRegularUser(ctx, "Bob", "bob@example.com")

	claim := func(u models.User, name string) *testutil.ResponseRecorder {
		rec := testutil.NewRecorder()
		e.h.HandleUsername(rec, testutil.NewAuthenticatedJSONRequest("PUT", "/api/me/username", testutil.AsTestUser(u), map[string]string{"username": name}))
		return rec
	}

	claim(alice, "alice_w").AssertStatus(t, http.StatusOK)
	claim(bob, "ALICE_W").AssertStatus(t, http.StatusConflict)
	claim(bob, "bob").AssertStatus(t, http.StatusBadRequest)
	claim(alice, "alice_x").AssertStatus(t, http.StatusUnprocessableEntity)
	claim(alice, "Alice_W").AssertStatus(t, http.StatusOK)

	avail := func(u models.User, name string) (bool, string) {
		rec := testutil.NewRecorder()
		e.h.ServeUsernameAvailable(rec, testutil.NewAuthenticatedRequest("GET", "/api/me/username/available?username="+name, testutil.AsTestUser(u)))
		rec.AssertStatus(t, http.StatusOK)
		var body struct {
			Available bool   `json:"available"`
			Reason    string `json:"reason"`
		}
		rec.DecodeJSON(t, &body)
		return body.Available, body.Reason
	}
	if ok, _ := avail(bob, "alice_w"); ok {
		t.Error("alice_w reported available to bob")
	}
	if ok, _ := avail(alice, "alice_w"); !ok {
		t.Error("own username should be available to its holder")
	}
	if ok, reason := avail(bob, "b!"); ok || reason == "" {
		t.Errorf("invalid name: available=%v reason=%q", ok, reason)
	}

	rec := testutil.NewRecorder()
	e.h.ServeUsernameAvailable(rec, testutil.NewAuthenticatedRequest("GET", "/api/me/username/available?name=alice_w", testutil.AsTestUser(bob)))
	rec.AssertStatus(t, http.StatusBadRequest)
}

func TestCards(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := e.fx.CreateRegularUser(ctx, "Carder", "card@example.com")
	other := e.fx.CreateRegularUser(ctx, "Other", "other@example.com")
	card := e.fx.CreateCard(ctx, u.ID)
	foreign := e.fx.CreateCard(ctx, other.ID)
	tu := testutil.AsTestUser(u)

	rec := testutil.NewRecorder()
	e.h.ServeCards(rec, testutil.NewAuthenticatedRequest("GET", "/api/me/cards", tu))
	rec.AssertStatus(t, http.StatusOK)
	rec.AssertContains(t, card.ID)
	rec.AssertNotContains(t, foreign.ID)

	update := func(id string) *testutil.ResponseRecorder {
		req := testutil.NewAuthenticatedJSONRequest("PUT", "/api/me/cards/"+id, tu, map[string]any{"label": "Desk", "active": false})
		rec := testutil.NewRecorder()
		e.h.HandleCardUpdate(rec, testutil.WithChiURLParam(req, "cardID", id))
		return rec
	}
	update(foreign.ID).AssertStatus(t, http.StatusNotFound)
	rec = update(card.ID)
	rec.AssertStatus(t, http.StatusOK)
	var got models.Card
	rec.DecodeJSON(t, &got)
	if got.Label != "Desk" || got.Active {
		t.Errorf("card = %+v", got)
	}
}

func TestHandleDeleteAccount(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := e.fx.CreateUserWithUsername(ctx, "Leaver", "leaver@example.com", "leaver_1")
	e.fx.CreateCard(ctx, u.ID)
	e.fx.CreateInteraction(ctx, u.ID, models.InteractionView, time.Now())
	order := e.fx.CreateOrder(ctx, u.ID, models.OrderReceived, time.Now())

	rec := testutil.NewRecorder()
	e.h.HandleDeleteAccount(rec, testutil.NewAuthenticatedRequest("DELETE", "/api/me", testutil.AsTestUser(u)))
	rec.AssertStatus(t, http.StatusNoContent)

	for _, tt := range []struct {
		coll   string
		filter bson.M
		want   int64
	}{
		{"users", bson.M{"_id": u.ID}, 0},
		{"username_reservations", bson.M{"user_id": u.ID}, 0},
		{"cards", bson.M{"user_id": u.ID}, 0},
		{"interactions", bson.M{"owner_id": u.ID}, 0},
		{"orders", bson.M{"_id": order.ID}, 1},
	} {
		n, err := e.db.Collection(tt.coll).CountDocuments(ctx, tt.filter)
		if err != nil {
			t.Fatalf("count %s: %v", tt.coll, err)
		}
		if n != tt.want {
			t.Errorf("%s: %d documents left, want %d", tt.coll, n, tt.want)
		}
	}
}
