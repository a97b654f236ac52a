// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Index names that list queries hint at. Keep in sync with the paging
// specs in the stores.
const (
	UsersBannedCreated       = "idx_users_banned_created_id"
	UsersRoleCreated         = "idx_users_role_created_id"
	OrdersStatusCreated      = "idx_orders_status_created_id"
	ReportsStatusCreated     = "idx_reports_status_created_id"
	InteractionsOwnerCreated = "idx_interactions_owner_created_id"
	InteractionsOwnerUnread  = "idx_interactions_owner_read_created_id"
)

/*
EnsureAll is called at startup and by `cardctl ensure-indexes`. Each
collection is reconciled independently and every problem is reported, so
startup fails fast with the full picture.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string
	for _, set := range desired() {
		if err := ensureIndexSet(ctx, db.Collection(set.coll), set.models); err != nil {
			problems = append(problems, set.coll+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

type indexSet struct {
	coll   string
	models []mongo.IndexModel
}

func keys(pairs ...any) bson.D {
	d := make(bson.D, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		d = append(d, bson.E{Key: pairs[i].(string), Value: pairs[i+1]})
	}
	return d
}

func named(name string) *options.IndexOptions { return options.Index().SetName(name) }

// uniqueWhereString is a unique index that ignores documents where field
// is absent, so users without a username or provider subject never collide.
func uniqueWhereString(name, field string) *options.IndexOptions {
	return named(name).SetUnique(true).
		SetPartialFilterExpression(bson.M{field: bson.M{"$type": "string"}})
}

func desired() []indexSet {
	return []indexSet{
		{"users", []mongo.IndexModel{
			{Keys: keys("email", 1), Options: named("uniq_users_email").SetUnique(true)},
			{Keys: keys("auth_method", 1, "auth_subject", 1), Options: uniqueWhereString("uniq_users_auth_subject", "auth_subject")},
			{Keys: keys("username_ci", 1), Options: uniqueWhereString("uniq_users_username_ci", "username_ci")},
			{Keys: keys("created_at", -1, "_id", -1), Options: named("idx_users_created_id")},
			{Keys: keys("banned", 1, "created_at", -1, "_id", -1), Options: named(UsersBannedCreated)},
			{Keys: keys("role", 1, "created_at", -1, "_id", -1), Options: named(UsersRoleCreated)},
		}},
		{"username_reservations", []mongo.IndexModel{
			{Keys: keys("user_id", 1), Options: named("idx_username_reservations_user")},
		}},
		{"cards", []mongo.IndexModel{
			{Keys: keys("user_id", 1, "created_at", -1), Options: named("idx_cards_user_created")},
		}},
		{"orders", []mongo.IndexModel{
			{Keys: keys("created_at", -1, "_id", -1), Options: named("idx_orders_created_id")},
			{Keys: keys("status", 1, "created_at", -1, "_id", -1), Options: named(OrdersStatusCreated)},
			{Keys: keys("user_id", 1, "created_at", -1), Options: named("idx_orders_user_created")},
			{Keys: keys("payment.checkout_session_id", 1), Options: uniqueWhereString("uniq_orders_checkout_session", "payment.checkout_session_id")},
			{Keys: keys("legacy_id", 1), Options: uniqueWhereString("uniq_orders_legacy_id", "legacy_id")},
		}},
		{"reports", []mongo.IndexModel{
			{Keys: keys("created_at", -1, "_id", -1), Options: named("idx_reports_created_id")},
			{Keys: keys("status", 1, "created_at", -1, "_id", -1), Options: named(ReportsStatusCreated)},
			{Keys: keys("reported_user_id", 1, "status", 1), Options: named("idx_reports_reported_status")},
		}},
		{"plans", []mongo.IndexModel{
			{Keys: keys("active", 1, "price_cents", 1), Options: named("idx_plans_active_price")},
		}},
		{"interactions", []mongo.IndexModel{
			{Keys: keys("owner_id", 1, "created_at", -1, "_id", -1), Options: named(InteractionsOwnerCreated)},
			{Keys: keys("owner_id", 1, "read", 1, "created_at", -1, "_id", -1), Options: named(InteractionsOwnerUnread)},
			{Keys: keys("owner_id", 1, "type", 1, "created_at", -1), Options: named("idx_interactions_owner_type_created")},
		}},
		{"audit_events", []mongo.IndexModel{
			{Keys: keys("timestamp", -1), Options: named("idx_audit_timestamp")},
			{Keys: keys("user_id", 1, "timestamp", -1), Options: named("idx_audit_user_timestamp")},
			{Keys: keys("category", 1, "event_type", 1, "timestamp", -1), Options: named("idx_audit_category_type_timestamp")},
		}},
		{"oauth_states", []mongo.IndexModel{
			{Keys: keys("expires_at", 1), Options: named("ttl_oauth_states_expires").SetExpireAfterSeconds(0)},
		}},
	}
}

/*───────────────────────────────────────────────────────────────────────────*|
| Reconcile one collection's desired indexes against what the server has.    |
*|───────────────────────────────────────────────────────────────────────────*/

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(k bson.D) string {
	parts := make([]string, 0, len(k))
	for _, kv := range k {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func isTrue(b *bool) bool { return b != nil && *b }

func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if mongo.IsDuplicateKeyError(err) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

func listExisting(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()), zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

func createErr(coll *mongo.Collection, name string, unique bool, err error) string {
	if unique && isDuplicateKeyErr(err) {
		return fmt.Sprintf("%s(%s): cannot create unique index, duplicates present", coll.Name(), name)
	}
	return fmt.Sprintf("%s(%s): %v", coll.Name(), name, err)
}

// ensureIndexSet makes each model exist under its desired name and
// uniqueness. An index with the same keys but a different name is renamed
// (drop + create); one whose uniqueness differs is rebuilt.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	if len(models) == 0 {
		return nil
	}
	existing, err := listExisting(ctx, coll)
	if err != nil {
		// A missing collection lists as empty on most servers; treat any
		// other listing failure as "nothing exists" and let create report.
		existing = map[string]existingIndex{}
	}

	var errs []string
	for _, m := range models {
		name := *m.Options.Name
		unique := isTrue(m.Options.Unique)
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()
		log := zap.L().With(
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", unique))

		ex, found := existing[sig]
		switch {
		case found && isTrue(ex.Unique) == unique && ex.Name == name:
			log.Debug("index up to date")
			continue
		case found:
			log.Info("rebuilding index", zap.String("existing_name", ex.Name))
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s(%s): drop %s failed: %v", coll.Name(), name, ex.Name, err))
				continue
			}
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			log.Warn("index ensure failed", zap.Error(err))
			errs = append(errs, createErr(coll, name, unique, err))
			continue
		}
		log.Info("index created", zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
