package oauthstate_test

import (
	"errors"
	"testing"
	"time"

	"github.com/dalemusser/cardhub/internal/app/store/oauthstate"
	"github.com/dalemusser/cardhub/internal/testutil"
)

func TestStore_SaveConsume(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := oauthstate.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := store.Save(ctx, oauthstate.State{
		State:     "abc",
		Verifier:  "verifier-1",
		ReturnTo:  "/me",
		ExpiresAt: time.Now().Add(10 * time.Minute),
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	st, err := store.Consume(ctx, "abc")
	if err != nil {
		t.Fatalf("Consume: %v", err)
	}
	if st.Verifier != "verifier-1" || st.ReturnTo != "/me" {
		t.Errorf("unexpected state %+v", st)
	}

	// One-time use.
	if _, err := store.Consume(ctx, "abc"); !errors.Is(err, oauthstate.ErrInvalid) {
		t.Errorf("second Consume err = %v, want ErrInvalid", err)
	}
}

func TestStore_ConsumeExpired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := oauthstate.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.Save(ctx, oauthstate.State{State: "old", ExpiresAt: time.Now().Add(-time.Minute)}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := store.Consume(ctx, "old"); !errors.Is(err, oauthstate.ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
	if _, err := store.Consume(ctx, "never-saved"); !errors.Is(err, oauthstate.ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}

func TestStore_CleanupExpired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := oauthstate.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_ = store.Save(ctx, oauthstate.State{State: "a", ExpiresAt: time.Now().Add(-time.Minute)})
	_ = store.Save(ctx, oauthstate.State{State: "b", ExpiresAt: time.Now().Add(-time.Second)})
	_ = store.Save(ctx, oauthstate.State{State: "c", ExpiresAt: time.Now().Add(time.Hour)})

	n, err := store.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	if n != 2 {
		t.Errorf("removed %d, want 2", n)
	}
	if _, err := store.Consume(ctx, "c"); err != nil {
		t.Errorf("live state should survive cleanup: %v", err)
	}
}
