package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/cardhub/internal/app/system/indexes"
	"github.com/dalemusser/cardhub/internal/app/system/normalize"
	"github.com/dalemusser/cardhub/internal/app/system/paging"
	"github.com/dalemusser/cardhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrNotFound is returned when no user matches.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when the email (or provider account) is
	// already registered.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	errBadRole        = errors.New(`role must be "user"|"admin"|"super_admin"`)
)

type Store struct {
	c   *mongo.Collection
	Now func() time.Time
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users"), Now: time.Now}
}

// Collection exposes the underlying collection for cross-store operations
// such as the username claim transaction.
func (s *Store) Collection() *mongo.Collection { return s.c }

func (s *Store) one(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.one(ctx, bson.M{"_id": id})
}

// GetByEmail looks up a user by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.one(ctx, bson.M{"email": normalize.Email(email)})
}

// GetByUsername looks up a user by case-insensitive username.
func (s *Store) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	key := normalize.UsernameKey(username)
	if key == "" {
		return nil, ErrNotFound
	}
	return s.one(ctx, bson.M{"username_ci": key})
}

// GetByAuthSubject finds the account linked to a federated identity.
func (s *Store) GetByAuthSubject(ctx context.Context, method, subject string) (*models.User, error) {
	if subject == "" {
		return nil, ErrNotFound
	}
	return s.one(ctx, bson.M{"auth_method": method, "auth_subject": subject})
}

// Create inserts a new user after normalizing and validating fields.
// CreatedAt is kept when set (imports) and stamped otherwise.
// Username fields are never written here; see the usernames store.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = text.Fold(u.FullName)
	u.Email = normalize.Email(u.Email)
	u.Role = normalize.Role(u.Role)
	if u.Role == "" {
		u.Role = models.RoleUser
	}
	if !models.IsValidRole(u.Role) {
		return models.User{}, errBadRole
	}
	u.Username, u.UsernameCI, u.UsernameChangedAt = "", "", nil

	now := s.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// ProfileUpdate holds the owner-editable profile fields. Every field is
// written; callers load the user first and send the full set.
type ProfileUpdate struct {
	FullName  string
	Title     string
	Company   string
	Location  string
	Bio       string
	Phone     string
	Website   string
	PhotoURL  string
	Links     []models.Link
	Portfolio []models.PortfolioItem
	IsPublic  bool
}

// UpdateProfile replaces the editable profile fields of id.
func (s *Store) UpdateProfile(ctx context.Context, id primitive.ObjectID, upd ProfileUpdate) (*models.User, error) {
	name := normalize.Name(upd.FullName)
	if upd.Links == nil {
		upd.Links = []models.Link{}
	}
	if upd.Portfolio == nil {
		upd.Portfolio = []models.PortfolioItem{}
	}
	set := bson.M{
		"full_name":    name,
		"full_name_ci": text.Fold(name),
		"title":        upd.Title,
		"company":      upd.Company,
		"location":     upd.Location,
		"bio":          upd.Bio,
		"phone":        upd.Phone,
		"website":      upd.Website,
		"photo_url":    upd.PhotoURL,
		"links":        upd.Links,
		"portfolio":    upd.Portfolio,
		"is_public":    upd.IsPublic,
		"updated_at":   s.Now().UTC(),
	}
	return s.updateReturning(ctx, id, bson.M{"$set": set})
}

func (s *Store) updateReturning(ctx context.Context, id primitive.ObjectID, update bson.M) (*models.User, error) {
	var u models.User
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) set(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPhoto updates the profile photo URL.
func (s *Store) SetPhoto(ctx context.Context, id primitive.ObjectID, url string) error {
	return s.set(ctx, id, bson.M{"$set": bson.M{"photo_url": url, "updated_at": s.Now().UTC()}})
}

// LinkAuthSubject records the provider subject on an account that was
// matched by email.
func (s *Store) LinkAuthSubject(ctx context.Context, id primitive.ObjectID, subject string) error {
	err := s.set(ctx, id, bson.M{"$set": bson.M{"auth_subject": subject, "updated_at": s.Now().UTC()}})
	if wafflemongo.IsDup(err) {
		return ErrDuplicateEmail
	}
	return err
}

// SetPlan records the plan a user bought.
func (s *Store) SetPlan(ctx context.Context, id primitive.ObjectID, planID string) error {
	return s.set(ctx, id, bson.M{"$set": bson.M{"plan_id": planID, "updated_at": s.Now().UTC()}})
}

// Block adds target to id's blocked list.
func (s *Store) Block(ctx context.Context, id, target primitive.ObjectID) error {
	return s.set(ctx, id, bson.M{
		"$addToSet": bson.M{"blocked_ids": target},
		"$set":      bson.M{"updated_at": s.Now().UTC()},
	})
}

// Unblock removes target from id's blocked list.
func (s *Store) Unblock(ctx context.Context, id, target primitive.ObjectID) error {
	return s.set(ctx, id, bson.M{
		"$pull": bson.M{"blocked_ids": target},
		"$set":  bson.M{"updated_at": s.Now().UTC()},
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| Moderation                                                                   |
*─────────────────────────────────────────────────────────────────────────────*/

// Ban marks the user banned. Sessions are rejected on the next request
// because the fetcher reloads the user every time.
func (s *Store) Ban(ctx context.Context, id primitive.ObjectID, reason string) error {
	now := s.Now().UTC()
	return s.set(ctx, id, bson.M{"$set": bson.M{
		"banned":        true,
		"banned_reason": reason,
		"banned_at":     now,
		"updated_at":    now,
	}})
}

// Unban clears the ban flags.
func (s *Store) Unban(ctx context.Context, id primitive.ObjectID) error {
	return s.set(ctx, id, bson.M{
		"$set":   bson.M{"banned": false, "updated_at": s.Now().UTC()},
		"$unset": bson.M{"banned_reason": "", "banned_at": ""},
	})
}

// SetWarning attaches a moderator warning. A nil warning clears it.
func (s *Store) SetWarning(ctx context.Context, id primitive.ObjectID, w *models.Warning) error {
	if w == nil {
		return s.set(ctx, id, bson.M{
			"$set":   bson.M{"updated_at": s.Now().UTC()},
			"$unset": bson.M{"warning": ""},
		})
	}
	return s.set(ctx, id, bson.M{"$set": bson.M{"warning": w, "updated_at": s.Now().UTC()}})
}

// SetRole changes a user's role.
func (s *Store) SetRole(ctx context.Context, id primitive.ObjectID, role string) error {
	role = normalize.Role(role)
	if !models.IsValidRole(role) {
		return errBadRole
	}
	return s.set(ctx, id, bson.M{"$set": bson.M{"role": role, "updated_at": s.Now().UTC()}})
}

// PromoteByEmail sets the role of the user with email and returns it.
func (s *Store) PromoteByEmail(ctx context.Context, email, role string) (*models.User, error) {
	role = normalize.Role(role)
	if !models.IsValidRole(role) {
		return nil, errBadRole
	}
	var u models.User
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"email": normalize.Email(email)},
		bson.M{"$set": bson.M{"role": role, "updated_at": s.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Delete removes the user document. Related records are the caller's job.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Admin listing                                                                |
*─────────────────────────────────────────────────────────────────────────────*/

// ListFilter narrows the admin users table.
type ListFilter struct {
	Banned *bool
	Role   string
}

// List returns a page of users newest first.
func (s *Store) List(ctx context.Context, f ListFilter, req paging.Request) (paging.Page[models.User], error) {
	spec := paging.Spec[models.User]{
		Key: func(u models.User) paging.Cursor { return paging.Cursor{At: u.CreatedAt, ID: u.ID} },
	}
	switch {
	case f.Banned != nil:
		banned := *f.Banned
		spec.Filter = bson.M{"banned": banned}
		spec.Hint = indexes.UsersBannedCreated
		spec.Match = func(u models.User) bool { return u.Banned == banned }
	case f.Role != "":
		role := normalize.Role(f.Role)
		spec.Filter = bson.M{"role": role}
		spec.Hint = indexes.UsersRoleCreated
		spec.Match = func(u models.User) bool { return u.Role == role }
	}
	return paging.Find(ctx, s.c, spec, req)
}

// Count returns the number of users matching filter (nil for all).
func (s *Store) Count(ctx context.Context, filter bson.M) (int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	return s.c.CountDocuments(ctx, filter)
}

// CountBanned returns the number of banned users.
func (s *Store) CountBanned(ctx context.Context) (int64, error) {
	return s.Count(ctx, bson.M{"banned": true})
}

// GetByIDs loads the users in ids. Missing ids are skipped.
func (s *Store) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	out := []models.User{}
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
