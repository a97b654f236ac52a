package privatestore_test

import (
	"errors"
	"testing"

	privatestore "github.com/dalemusser/cardhub/internal/app/store/privatecontent"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"github.com/dalemusser/cardhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

func newStore(t *testing.T) *privatestore.Store {
	t.Helper()
	s := privatestore.New(testutil.SetupTestDB(t))
	s.Cost = bcrypt.MinCost
	return s
}

func TestItemsAndPIN(t *testing.T) {
	s := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	owner := primitive.NewObjectID()

	if _, err := s.Get(ctx, owner); !errors.Is(err, privatestore.ErrNotFound) {
		t.Fatalf("Get before save err = %v, want ErrNotFound", err)
	}

	items := []models.PrivateItem{{Label: "Mobile", Value: "+1 555 0100"}}
	if err := s.SaveItems(ctx, owner, items); err != nil {
		t.Fatalf("SaveItems: %v", err)
	}
	if _, err := s.Unlock(ctx, owner, "1234"); !errors.Is(err, privatestore.ErrNoPIN) {
		t.Fatalf("Unlock without pin err = %v, want ErrNoPIN", err)
	}

	if err := s.SetPIN(ctx, owner, "2468"); err != nil {
		t.Fatalf("SetPIN: %v", err)
	}
	pc, err := s.Get(ctx, owner)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if pc.PinHash == "" || pc.PinHash == "2468" {
		t.Fatalf("pin not hashed: %q", pc.PinHash)
	}
	if len(pc.Items) != 1 {
		t.Fatalf("SetPIN must keep items, got %+v", pc.Items)
	}

	got, err := s.Unlock(ctx, owner, "2468")
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if len(got.Items) != 1 || got.Items[0].Value != "+1 555 0100" {
		t.Errorf("items = %+v", got.Items)
	}
	if got.PinHash != pc.PinHash {
		t.Error("Unlock should return the stored pin hash")
	}
	if _, err := s.Unlock(ctx, owner, "0000"); !errors.Is(err, privatestore.ErrWrongPIN) {
		t.Errorf("wrong pin err = %v, want ErrWrongPIN", err)
	}

	if err := s.SetPIN(ctx, owner, ""); err != nil {
		t.Fatalf("clear pin: %v", err)
	}
	if _, err := s.Unlock(ctx, owner, "2468"); !errors.Is(err, privatestore.ErrNoPIN) {
		t.Errorf("after clear err = %v, want ErrNoPIN", err)
	}
}

func TestSetPIN_Validation(t *testing.T) {
	s := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	for _, pin := range []string{"12", "123456789", "12a4", " 1234"} {
		if err := s.SetPIN(ctx, primitive.NewObjectID(), pin); !errors.Is(err, privatestore.ErrBadPIN) {
			t.Errorf("SetPIN(%q) err = %v, want ErrBadPIN", pin, err)
		}
	}
}

func TestSetPIN_CreatesDocument(t *testing.T) {
	s := newStore(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	owner := primitive.NewObjectID()

	if err := s.SetPIN(ctx, owner, "1234"); err != nil {
		t.Fatalf("SetPIN: %v", err)
	}
	pc, err := s.Unlock(ctx, owner, "1234")
	if err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if pc.Items == nil || len(pc.Items) != 0 {
		t.Errorf("items = %v, want empty", pc.Items)
	}

	if err := s.Delete(ctx, owner); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get(ctx, owner); !errors.Is(err, privatestore.ErrNotFound) {
		t.Errorf("Get after delete err = %v", err)
	}
}
