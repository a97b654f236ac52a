package testutil

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/cardhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
// Calling it repeatedly on the same request accumulates parameters.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok || rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to insert into %s: %v", coll, err)
	}
}

// CreateUser creates a public test user with the given role.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email, role string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		Email:      strings.ToLower(email),
		AuthMethod: models.AuthPassword,
		Role:       role,
		IsPublic:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.insert(ctx, "users", user)
	return user
}

// CreateRegularUser creates a test user with the user role.
func (f *Fixtures) CreateRegularUser(ctx context.Context, fullName, email string) models.User {
	return f.CreateUser(ctx, fullName, email, models.RoleUser)
}

// CreateAdmin creates a test admin user.
func (f *Fixtures) CreateAdmin(ctx context.Context, fullName, email string) models.User {
	return f.CreateUser(ctx, fullName, email, models.RoleAdmin)
}

// CreatePasswordUser creates a user that can sign in with password.
func (f *Fixtures) CreatePasswordUser(ctx context.Context, fullName, email, password string) models.User {
	f.t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("hash password: %v", err)
	}
	now := time.Now().UTC()
	user := models.User{
		ID:           primitive.NewObjectID(),
		FullName:     fullName,
		FullNameCI:   text.Fold(fullName),
		Email:        strings.ToLower(email),
		AuthMethod:   models.AuthPassword,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		IsPublic:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.insert(ctx, "users", user)
	return user
}

// CreateUserWithUsername creates a user holding username, including the
// matching reservation document.
func (f *Fixtures) CreateUserWithUsername(ctx context.Context, fullName, email, username string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	changed := now.Add(-365 * 24 * time.Hour)
	user := models.User{
		ID:                primitive.NewObjectID(),
		FullName:          fullName,
		FullNameCI:        text.Fold(fullName),
		Email:             strings.ToLower(email),
		AuthMethod:        models.AuthPassword,
		Role:              models.RoleUser,
		Username:          username,
		UsernameCI:        strings.ToLower(username),
		UsernameChangedAt: &changed,
		IsPublic:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	f.insert(ctx, "users", user)
	f.insert(ctx, "username_reservations", models.UsernameReservation{
		ID:        strings.ToLower(username),
		UserID:    user.ID,
		Username:  username,
		CreatedAt: changed,
	})
	return user
}

// CreateBannedUser creates a banned test user.
func (f *Fixtures) CreateBannedUser(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:           primitive.NewObjectID(),
		FullName:     fullName,
		FullNameCI:   text.Fold(fullName),
		Email:        strings.ToLower(email),
		AuthMethod:   models.AuthPassword,
		Role:         models.RoleUser,
		IsPublic:     true,
		Banned:       true,
		BannedReason: "test",
		BannedAt:     &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	f.insert(ctx, "users", user)
	return user
}

// CreatePlan creates an active plan with default limits.
func (f *Fixtures) CreatePlan(ctx context.Context, id, name string, priceCents int64) models.Plan {
	f.t.Helper()

	now := time.Now().UTC()
	plan := models.Plan{
		ID:         id,
		Name:       name,
		PriceCents: priceCents,
		Currency:   "usd",
		Limits:     models.DefaultPlanLimits,
		Features:   models.DefaultPlanFeatures,
		Active:     true,
		SyncedAt:   now,
		CreatedAt:  now,
	}
	f.insert(ctx, "plans", plan)
	return plan
}

// CreateOrder creates an order for userID in the given status, created at
// the given time. The timeline is stamped for every step up to status.
func (f *Fixtures) CreateOrder(ctx context.Context, userID primitive.ObjectID, status string, createdAt time.Time) models.Order {
	f.t.Helper()

	ts := createdAt.UTC()
	var tl models.Timeline
	for _, s := range models.OrderStatuses {
		switch s {
		case models.OrderReceived:
			tl.OrderReceived = &ts
		case models.OrderProcessing:
			tl.Processing = &ts
		case models.OrderShipped:
			tl.Shipped = &ts
		case models.OrderDelivered:
			tl.Delivered = &ts
		}
		if s == status {
			break
		}
	}
	order := models.Order{
		ID:          primitive.NewObjectID(),
		UserID:      userID,
		PlanID:      "basic",
		PlanName:    "Basic",
		AmountCents: 1999,
		Currency:    "usd",
		Status:      status,
		Timeline:    tl,
		Shipping: models.Shipping{
			Name: "Test Person", Line1: "1 Main St", City: "Springfield",
			PostalCode: "00000", Country: "US",
		},
		Customization: models.Customization{NameOnCard: "Test Person"},
		Payment:       models.Payment{Provider: "manual", Status: models.PaymentManual},
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}
	f.insert(ctx, "orders", order)
	return order
}

// CreateReport creates a report by reporter against reported.
func (f *Fixtures) CreateReport(ctx context.Context, reporter, reported primitive.ObjectID, status string, createdAt time.Time) models.Report {
	f.t.Helper()

	rep := models.Report{
		ID:             models.ReportID(reporter, reported),
		ReporterID:     reporter,
		ReportedUserID: reported,
		Reasons:        []string{models.ReportReasons[0]},
		Description:    "test report",
		Status:         status,
		CreatedAt:      createdAt.UTC(),
	}
	f.insert(ctx, "reports", rep)
	return rep
}

// CreateCard issues an active card for userID.
func (f *Fixtures) CreateCard(ctx context.Context, userID primitive.ObjectID) models.Card {
	f.t.Helper()

	card := models.Card{
		ID:        uuid.NewString(),
		UserID:    userID,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
	f.insert(ctx, "cards", card)
	return card
}

// CreateInteraction records an interaction of type typ for ownerID.
func (f *Fixtures) CreateInteraction(ctx context.Context, ownerID primitive.ObjectID, typ string, createdAt time.Time) models.Interaction {
	f.t.Helper()

	in := models.Interaction{
		ID:        primitive.NewObjectID(),
		OwnerID:   ownerID,
		Type:      typ,
		ActorName: "Visitor",
		CreatedAt: createdAt.UTC(),
	}
	f.insert(ctx, "interactions", in)
	return in
}

// CreateContent stores a site content document.
func (f *Fixtures) CreateContent(ctx context.Context, doc models.SiteContent) models.SiteContent {
	f.t.Helper()

	if doc.UpdatedAt == nil {
		now := time.Now().UTC()
		doc.UpdatedAt = &now
	}
	f.insert(ctx, "site_content", doc)
	return doc
}
