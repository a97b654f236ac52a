package shared_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/cardhub/internal/app/features/shared"
	"github.com/dalemusser/cardhub/internal/app/policy/usernamepolicy"
	"github.com/dalemusser/cardhub/internal/app/store/usernames"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"github.com/dalemusser/cardhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestObjectIDParam(t *testing.T) {
	id := primitive.NewObjectID()

	req := testutil.WithChiURLParam(testutil.NewRequest("GET", "/x"), "id", id.Hex())
	rec := testutil.NewRecorder()
	got, ok := shared.ObjectIDParam(rec, req, "id")
	if !ok || got != id {
		t.Fatalf("ObjectIDParam = %s, %v", got.Hex(), ok)
	}

	req = testutil.WithChiURLParam(testutil.NewRequest("GET", "/x"), "id", "not-hex")
	rec = testutil.NewRecorder()
	if _, ok := shared.ObjectIDParam(rec, req, "id"); ok {
		t.Fatal("malformed id accepted")
	}
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestUsernameClaimError(t *testing.T) {
	last := time.Now().Add(-24 * time.Hour)
	cooldown := usernamepolicy.CheckCooldown(&last, models.RoleUser, time.Now())
	invalid := usernamepolicy.Validate("a!", models.RoleUser)

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", invalid, http.StatusBadRequest},
		{"cooldown", cooldown, http.StatusUnprocessableEntity},
		{"taken", fmt.Errorf("claim: %w", usernames.ErrTaken), http.StatusConflict},
		{"no user", usernames.ErrUserNotFound, http.StatusNotFound},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Fatal("test setup produced a nil error")
			}
			rec := testutil.NewRecorder()
			shared.UsernameClaimError(rec, testutil.NewRequest("PUT", "/x"), zap.NewNop(), tt.err)
			rec.AssertStatus(t, tt.want)
		})
	}
}
