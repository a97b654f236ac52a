package cardstore_test

import (
	"errors"
	"testing"

	cardstore "github.com/dalemusser/cardhub/internal/app/store/cards"
	"github.com/dalemusser/cardhub/internal/testutil"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestIssueAndTap(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := cardstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	orderID := primitive.NewObjectID()
	card, err := store.Issue(ctx, owner, &orderID, "Main card")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := uuid.Parse(card.ID); err != nil {
		t.Errorf("card id %q is not a uuid", card.ID)
	}
	if !card.Active {
		t.Error("new card should be active")
	}

	for i := 0; i < 3; i++ {
		if _, err := store.RecordTap(ctx, card.ID); err != nil {
			t.Fatalf("RecordTap: %v", err)
		}
	}
	got, err := store.Get(ctx, card.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.TapCount != 3 || got.LastTapAt == nil {
		t.Errorf("tap count = %d last=%v", got.TapCount, got.LastTapAt)
	}
}

func TestRecordTap_InactiveOrUnknown(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := cardstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	card := fx.CreateCard(ctx, owner)

	if err := store.Update(ctx, card.ID, owner, "lost", false); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := store.RecordTap(ctx, card.ID); !errors.Is(err, cardstore.ErrNotFound) {
		t.Errorf("inactive tap err = %v, want ErrNotFound", err)
	}
	if _, err := store.RecordTap(ctx, "no-such-card"); !errors.Is(err, cardstore.ErrNotFound) {
		t.Errorf("unknown tap err = %v, want ErrNotFound", err)
	}
	if err := store.Update(ctx, card.ID, primitive.NewObjectID(), "x", true); !errors.Is(err, cardstore.ErrNotFound) {
		t.Errorf("update by non-owner err = %v, want ErrNotFound", err)
	}
}

func TestListAndDeleteByUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := cardstore.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	owner := primitive.NewObjectID()
	fx.CreateCard(ctx, owner)
	fx.CreateCard(ctx, owner)
	fx.CreateCard(ctx, primitive.NewObjectID())

	cards, err := store.ListByUser(ctx, owner)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(cards) != 2 {
		t.Errorf("len = %d, want 2", len(cards))
	}

	n, err := store.DeleteByUser(ctx, owner)
	if err != nil || n != 2 {
		t.Errorf("DeleteByUser = %d, %v; want 2", n, err)
	}
	cards, _ = store.ListByUser(ctx, owner)
	if len(cards) != 0 {
		t.Errorf("cards left: %d", len(cards))
	}
}
