package fsimport

import (
	"testing"
	"time"

	"github.com/dalemusser/cardhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMapOrderStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Order Received", models.OrderReceived, true},
		{"", models.OrderReceived, true},
		{"processing", models.OrderProcessing, true},
		{"In-Progress", models.OrderProcessing, true},
		{"Shipped", models.OrderShipped, true},
		{"completed", models.OrderDelivered, true},
		{"cancelled", "", false},
	}
	for _, tt := range tests {
		got, ok := mapOrderStatus(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("mapOrderStatus(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestMapRole(t *testing.T) {
	tests := map[string]string{
		"superAdmin":  models.RoleSuperAdmin,
		"super_admin": models.RoleSuperAdmin,
		"Admin":       models.RoleAdmin,
		"":            models.RoleUser,
		"moderator":   models.RoleUser,
	}
	for in, want := range tests {
		if got := mapRole(in); got != want {
			t.Errorf("mapRole(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestToOrderTimeline(t *testing.T) {
	created := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	o := toOrder("legacy1", primitive.NewObjectID(), legacyOrder{
		Price:     19.99,
		CreatedAt: created,
		Shipping:  legacyShipping{Address1: "1 Main", Zip: "12345", Country: "us"},
	}, models.OrderShipped)

	if o.AmountCents != 1999 || o.Currency != "usd" || o.LegacyID != "legacy1" {
		t.Errorf("order = %+v", o)
	}
	if o.Timeline.OrderReceived == nil || o.Timeline.Processing == nil || o.Timeline.Shipped == nil {
		t.Errorf("timeline missing steps: %+v", o.Timeline)
	}
	if o.Timeline.Delivered != nil {
		t.Error("timeline stamped past the order's status")
	}
	if o.Shipping.Line1 != "1 Main" || o.Shipping.PostalCode != "12345" || o.Shipping.Country != "US" {
		t.Errorf("shipping = %+v", o.Shipping)
	}
}

func TestToUser(t *testing.T) {
	hidden := false
	u := toUser("uid1", legacyUser{
		Email:    "sam@example.com",
		Bio:      "<b>hello</b>",
		IsPublic: &hidden,
		Links:    []legacyLink{{Label: "Site", URL: " https://x.test "}, {Label: "empty"}},
	})
	if u.FullName != "sam" || u.Bio != "hello" || u.IsPublic {
		t.Errorf("user = %+v", u)
	}
	if u.AuthMethod != models.AuthFirebase || u.AuthSubject != "uid1" {
		t.Errorf("auth = %s/%s", u.AuthMethod, u.AuthSubject)
	}
	if len(u.Links) != 1 || u.Links[0].URL != "https://x.test" {
		t.Errorf("links = %+v", u.Links)
	}
	if !toUser("uid2", legacyUser{Email: "a@b.c"}).IsPublic {
		t.Error("missing isPublic should default to public")
	}
}

func TestToReasons(t *testing.T) {
	got := toReasons([]string{"Spam", "spam", "Inappropriate Content", "bogus"})
	if len(got) != 2 || got[0] != "spam" || got[1] != "inappropriate_content" {
		t.Errorf("toReasons = %v", got)
	}
	if got := toReasons(nil); len(got) != 1 || got[0] != "other" {
		t.Errorf("toReasons(nil) = %v", got)
	}
}
