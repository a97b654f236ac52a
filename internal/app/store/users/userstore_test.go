package userstore_test

import (
	"errors"
	"testing"
	"time"

	userstore "github.com/dalemusser/cardhub/internal/app/store/users"
	"github.com/dalemusser/cardhub/internal/app/system/indexes"
	"github.com/dalemusser/cardhub/internal/app/system/paging"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"github.com/dalemusser/cardhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		FullName:   "  Ada   Lovelace ",
		Email:      " ADA@Example.com ",
		AuthMethod: models.AuthPassword,
		Username:   "sneaky",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.FullName != "Ada Lovelace" {
		t.Errorf("FullName = %q, want normalized", created.FullName)
	}
	if created.Email != "ada@example.com" {
		t.Errorf("Email = %q, want normalized", created.Email)
	}
	if created.Role != models.RoleUser {
		t.Errorf("Role = %q, want default user", created.Role)
	}
	if created.Username != "" {
		t.Error("Create must not write username fields")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}
}

func TestStore_Create_InvalidRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.Create(ctx, models.User{FullName: "X", Email: "x@example.com", Role: "coordinator"})
	if err == nil {
		t.Fatal("expected error for invalid role")
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	store := userstore.New(db)

	if _, err := store.Create(ctx, models.User{FullName: "A", Email: "dup@example.com"}); err != nil {
		t.Fatalf("first Create: %v", err)
	}
	_, err := store.Create(ctx, models.User{FullName: "B", Email: "DUP@example.com"})
	if !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Fatalf("err = %v, want ErrDuplicateEmail", err)
	}
}

func TestStore_Lookups(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUserWithUsername(ctx, "Grace Hopper", "grace@example.com", "GraceH")

	tests := []struct {
		name string
		get  func() (*models.User, error)
	}{
		{"by id", func() (*models.User, error) { return store.GetByID(ctx, u.ID) }},
		{"by email", func() (*models.User, error) { return store.GetByEmail(ctx, "GRACE@example.com") }},
		{"by username", func() (*models.User, error) { return store.GetByUsername(ctx, "graceh") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.get()
			if err != nil {
				t.Fatalf("lookup: %v", err)
			}
			if got.ID != u.ID {
				t.Errorf("got %s, want %s", got.ID.Hex(), u.ID.Hex())
			}
		})
	}

	if _, err := store.GetByID(ctx, primitive.NewObjectID()); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("missing id err = %v, want ErrNotFound", err)
	}
	if _, err := store.GetByUsername(ctx, ""); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("empty username err = %v, want ErrNotFound", err)
	}
}

func TestStore_GetByAuthSubject(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		FullName:    "Fed User",
		Email:       "fed@example.com",
		AuthMethod:  models.AuthFirebase,
		AuthSubject: "fb-uid-1",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.GetByAuthSubject(ctx, models.AuthFirebase, "fb-uid-1")
	if err != nil {
		t.Fatalf("GetByAuthSubject: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("wrong user returned")
	}
	if _, err := store.GetByAuthSubject(ctx, models.AuthGoogle, "fb-uid-1"); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("other provider err = %v, want ErrNotFound", err)
	}
}

func TestStore_UpdateProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateRegularUser(ctx, "Old Name", "p@example.com")

	got, err := store.UpdateProfile(ctx, u.ID, userstore.ProfileUpdate{
		FullName: "New  Name",
		Title:    "Engineer",
		Links:    []models.Link{{Label: "Site", URL: "https://example.com"}},
		IsPublic: false,
	})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.FullName != "New Name" || got.Title != "Engineer" || got.IsPublic {
		t.Errorf("unexpected profile %+v", got)
	}
	if len(got.Links) != 1 || got.Portfolio == nil {
		t.Errorf("links/portfolio not written: %+v %+v", got.Links, got.Portfolio)
	}

	if _, err := store.UpdateProfile(ctx, primitive.NewObjectID(), userstore.ProfileUpdate{}); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("missing user err = %v, want ErrNotFound", err)
	}
}

func TestStore_BlockUnblock(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateRegularUser(ctx, "Owner", "owner@example.com")
	pest := primitive.NewObjectID()

	for i := 0; i < 2; i++ {
		if err := store.Block(ctx, u.ID, pest); err != nil {
			t.Fatalf("Block: %v", err)
		}
	}
	got, _ := store.GetByID(ctx, u.ID)
	if len(got.BlockedIDs) != 1 || !got.HasBlocked(pest) {
		t.Fatalf("blocked ids = %v, want exactly pest", got.BlockedIDs)
	}

	if err := store.Unblock(ctx, u.ID, pest); err != nil {
		t.Fatalf("Unblock: %v", err)
	}
	got, _ = store.GetByID(ctx, u.ID)
	if got.HasBlocked(pest) {
		t.Fatal("pest still blocked")
	}
}

func TestStore_Moderation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateRegularUser(ctx, "Target", "target@example.com")
	admin := fx.CreateAdmin(ctx, "Admin", "admin@example.com")

	if err := store.Ban(ctx, u.ID, "spam"); err != nil {
		t.Fatalf("Ban: %v", err)
	}
	got, _ := store.GetByID(ctx, u.ID)
	if !got.Banned || got.BannedReason != "spam" || got.BannedAt == nil {
		t.Fatalf("ban not recorded: %+v", got)
	}

	if err := store.Unban(ctx, u.ID); err != nil {
		t.Fatalf("Unban: %v", err)
	}
	got, _ = store.GetByID(ctx, u.ID)
	if got.Banned || got.BannedReason != "" || got.BannedAt != nil {
		t.Fatalf("ban not cleared: %+v", got)
	}

	w := &models.Warning{Message: "be nice", IssuedBy: admin.ID, IssuedAt: time.Now().UTC()}
	if err := store.SetWarning(ctx, u.ID, w); err != nil {
		t.Fatalf("SetWarning: %v", err)
	}
	got, _ = store.GetByID(ctx, u.ID)
	if got.Warning == nil || got.Warning.Message != "be nice" {
		t.Fatalf("warning not set: %+v", got.Warning)
	}
	if err := store.SetWarning(ctx, u.ID, nil); err != nil {
		t.Fatalf("clear warning: %v", err)
	}
	got, _ = store.GetByID(ctx, u.ID)
	if got.Warning != nil {
		t.Fatal("warning not cleared")
	}

	if err := store.Ban(ctx, primitive.NewObjectID(), "x"); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("ban missing user err = %v, want ErrNotFound", err)
	}
}

func TestStore_SetRoleAndPromote(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateRegularUser(ctx, "Role", "role@example.com")

	if err := store.SetRole(ctx, u.ID, "Admin"); err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	if err := store.SetRole(ctx, u.ID, "owner"); err == nil {
		t.Error("expected invalid role error")
	}

	p, err := store.PromoteByEmail(ctx, "ROLE@example.com", models.RoleSuperAdmin)
	if err != nil {
		t.Fatalf("PromoteByEmail: %v", err)
	}
	if p.Role != models.RoleSuperAdmin {
		t.Errorf("role = %q, want super_admin", p.Role)
	}
	if _, err := store.PromoteByEmail(ctx, "nobody@example.com", models.RoleAdmin); !errors.Is(err, userstore.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_List(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	store := userstore.New(db)
	fx := testutil.NewFixtures(t, db)

	for i := 0; i < 3; i++ {
		fx.CreateRegularUser(ctx, "User", primitive.NewObjectID().Hex()+"@example.com")
	}
	fx.CreateBannedUser(ctx, "Banned", "banned@example.com")
	fx.CreateAdmin(ctx, "Admin", "admin@example.com")

	all, err := store.List(ctx, userstore.ListFilter{}, paging.Request{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all.Items) != 5 || all.HasMore {
		t.Errorf("all: %d items (has_more=%v), want 5", len(all.Items), all.HasMore)
	}

	banned := true
	b, err := store.List(ctx, userstore.ListFilter{Banned: &banned}, paging.Request{})
	if err != nil {
		t.Fatalf("List banned: %v", err)
	}
	if len(b.Items) != 1 || !b.Items[0].Banned || b.Fallback {
		t.Errorf("banned page = %+v", b)
	}

	admins, err := store.List(ctx, userstore.ListFilter{Role: models.RoleAdmin}, paging.Request{})
	if err != nil {
		t.Fatalf("List admins: %v", err)
	}
	if len(admins.Items) != 1 {
		t.Errorf("admins = %d, want 1", len(admins.Items))
	}

	n, err := store.CountBanned(ctx)
	if err != nil || n != 1 {
		t.Errorf("CountBanned = %d, %v; want 1", n, err)
	}
}

func TestFetcher_FetchUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUserWithUsername(ctx, "Fetch Me", "fetch@example.com", "fetchme")
	banned := fx.CreateBannedUser(ctx, "Banned", "b@example.com")
	f := userstore.NewFetcher(db)

	su := f.FetchUser(ctx, u.ID.Hex())
	if su == nil {
		t.Fatal("expected session user")
	}
	if su.Name != "Fetch Me" || su.Username != "fetchme" || su.Role != models.RoleUser || su.Banned {
		t.Errorf("unexpected session user %+v", su)
	}

	if bu := f.FetchUser(ctx, banned.ID.Hex()); bu == nil || !bu.Banned {
		t.Errorf("banned user should be returned flagged, got %+v", bu)
	}
	if f.FetchUser(ctx, "not-an-id") != nil {
		t.Error("malformed id should return nil")
	}
	if f.FetchUser(ctx, primitive.NewObjectID().Hex()) != nil {
		t.Error("missing user should return nil")
	}
}
