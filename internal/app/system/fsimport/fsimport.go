// Package fsimport copies a legacy Firestore project into MongoDB. It is
// run once per environment through cardctl import-firestore and is safe
// to re-run: users are matched on their Firebase uid, orders on their
// Firestore id and reports on the reporter/target pair.
package fsimport

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	contentstore "github.com/dalemusser/cardhub/internal/app/store/content"
	orderstore "github.com/dalemusser/cardhub/internal/app/store/orders"
	planstore "github.com/dalemusser/cardhub/internal/app/store/plans"
	reportstore "github.com/dalemusser/cardhub/internal/app/store/reports"
	"github.com/dalemusser/cardhub/internal/app/store/usernames"
	userstore "github.com/dalemusser/cardhub/internal/app/store/users"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Legacy collection names.
const (
	UsersCollection     = "users"
	UsernamesCollection = "usernames"
	OrdersCollection    = "orders"
	ReportsCollection   = "reports"
	ContentCollection   = "siteContent"
)

// Open connects to projectID. With FIRESTORE_EMULATOR_HOST set the client
// talks to the emulator and credentials are ignored.
func Open(ctx context.Context, projectID, credentialsFile string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, errors.New("fsimport: project id is required")
	}
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	c, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	return c, nil
}

// Stats counts what a run did.
type Stats struct {
	Users             int `json:"users"`
	UsersExisting     int `json:"users_existing"`
	UsersSkipped      int `json:"users_skipped"`
	Usernames         int `json:"usernames"`
	UsernameConflicts int `json:"username_conflicts"`
	Orders            int `json:"orders"`
	OrdersExisting    int `json:"orders_existing"`
	OrdersSkipped     int `json:"orders_skipped"`
	Reports           int `json:"reports"`
	ReportsExisting   int `json:"reports_existing"`
	ReportsSkipped    int `json:"reports_skipped"`
	Content           int `json:"content"`
	PlansUpserted     int `json:"plans_upserted"`
}

type Importer struct {
	FS        *firestore.Client
	Users     *userstore.Store
	Usernames *usernames.Store
	Orders    *orderstore.Store
	Reports   *reportstore.Store
	Content   *contentstore.Store
	Plans     *planstore.Store
	Log       *zap.Logger
}

func New(fs *firestore.Client, db *mongo.Database, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{
		FS:        fs,
		Users:     userstore.New(db),
		Usernames: usernames.New(db, logger),
		Orders:    orderstore.New(db),
		Reports:   reportstore.New(db),
		Content:   contentstore.New(db),
		Plans:     planstore.New(db),
		Log:       logger,
	}
}

// Run imports every collection in dependency order. Documents that cannot
// be mapped are logged and skipped; only read or write failures abort.
func (im *Importer) Run(ctx context.Context) (Stats, error) {
	var st Stats

	uids, names, err := im.importUsers(ctx, &st)
	if err != nil {
		return st, err
	}
	if err := im.importUsernames(ctx, &st, uids, names); err != nil {
		return st, err
	}
	if err := im.importOrders(ctx, &st, uids); err != nil {
		return st, err
	}
	if err := im.importReports(ctx, &st, uids); err != nil {
		return st, err
	}
	if err := im.importContent(ctx, &st); err != nil {
		return st, err
	}
	return st, nil
}

func each(it *firestore.DocumentIterator, fn func(*firestore.DocumentSnapshot) error) error {
	defer it.Stop()
	for {
		doc, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| users                                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// importUsers returns the uid → ObjectID map and the username each legacy
// user document carried.
func (im *Importer) importUsers(ctx context.Context, st *Stats) (map[string]primitive.ObjectID, map[primitive.ObjectID]string, error) {
	uids := make(map[string]primitive.ObjectID)
	names := make(map[primitive.ObjectID]string)

	err := each(im.FS.Collection(UsersCollection).Documents(ctx), func(doc *firestore.DocumentSnapshot) error {
		uid := doc.Ref.ID
		if existing, err := im.Users.GetByAuthSubject(ctx, models.AuthFirebase, uid); err == nil {
			uids[uid] = existing.ID
			st.UsersExisting++
			return nil
		} else if !errors.Is(err, userstore.ErrNotFound) {
			return fmt.Errorf("lookup user %s: %w", uid, err)
		}

		var lu legacyUser
		if err := doc.DataTo(&lu); err != nil {
			im.Log.Warn("skipping undecodable user", zap.String("uid", uid), zap.Error(err))
			st.UsersSkipped++
			return nil
		}
		if strings.TrimSpace(lu.Email) == "" {
			im.Log.Warn("skipping user without email", zap.String("uid", uid))
			st.UsersSkipped++
			return nil
		}

		u, err := im.Users.Create(ctx, toUser(uid, lu))
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			// Same person signed up again with another provider. Keep the
			// Mongo account and remember the mapping for their records.
			other, gerr := im.Users.GetByEmail(ctx, lu.Email)
			if gerr != nil {
				return fmt.Errorf("resolve duplicate email for %s: %w", uid, gerr)
			}
			im.Log.Info("legacy user matched by email", zap.String("uid", uid), zap.String("user_id", other.ID.Hex()))
			uids[uid] = other.ID
			st.UsersExisting++
			return nil
		}
		if err != nil {
			return fmt.Errorf("create user %s: %w", uid, err)
		}
		if lu.Banned {
			reason := lu.BanReason
			if reason == "" {
				reason = "imported ban"
			}
			if err := im.Users.Ban(ctx, u.ID, reason); err != nil {
				return fmt.Errorf("ban user %s: %w", uid, err)
			}
		}
		uids[uid] = u.ID
		if n := strings.TrimSpace(lu.Username); n != "" {
			names[u.ID] = n
		}
		st.Users++
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("import users: %w", err)
	}
	return uids, names, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| usernames                                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

// importUsernames claims each user's name through the normal claim flow so
// reservations and users stay in step. The legacy usernames collection
// wins over the field on the user document when both exist.
func (im *Importer) importUsernames(ctx context.Context, st *Stats, uids map[string]primitive.ObjectID, names map[primitive.ObjectID]string) error {
	err := each(im.FS.Collection(UsernamesCollection).Documents(ctx), func(doc *firestore.DocumentSnapshot) error {
		var ln legacyUsername
		if err := doc.DataTo(&ln); err != nil {
			im.Log.Warn("skipping undecodable username", zap.String("doc", doc.Ref.ID), zap.Error(err))
			return nil
		}
		if id, ok := uids[ln.UID]; ok {
			names[id] = doc.Ref.ID
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("import usernames: %w", err)
	}

	for id, name := range names {
		res, err := im.Usernames.Claim(ctx, id, name, models.RoleSuperAdmin)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			im.Log.Warn("username not imported",
				zap.String("user_id", id.Hex()),
				zap.String("username", name),
				zap.Error(err))
			st.UsernameConflicts++
			continue
		}
		if !res.Unchanged {
			st.Usernames++
		}
	}
	return nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| orders, reports, content                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (im *Importer) importOrders(ctx context.Context, st *Stats, uids map[string]primitive.ObjectID) error {
	err := each(im.FS.Collection(OrdersCollection).Documents(ctx), func(doc *firestore.DocumentSnapshot) error {
		var lo legacyOrder
		if err := doc.DataTo(&lo); err != nil {
			im.Log.Warn("skipping undecodable order", zap.String("doc", doc.Ref.ID), zap.Error(err))
			st.OrdersSkipped++
			return nil
		}
		owner, ok := uids[lo.UserID]
		if !ok {
			im.Log.Warn("skipping order of unknown user", zap.String("doc", doc.Ref.ID), zap.String("uid", lo.UserID))
			st.OrdersSkipped++
			return nil
		}
		status, ok := mapOrderStatus(lo.Status)
		if !ok {
			im.Log.Warn("skipping order with unknown status", zap.String("doc", doc.Ref.ID), zap.String("status", lo.Status))
			st.OrdersSkipped++
			return nil
		}
		inserted, err := im.Orders.Import(ctx, toOrder(doc.Ref.ID, owner, lo, status))
		if err != nil {
			return fmt.Errorf("order %s: %w", doc.Ref.ID, err)
		}
		if inserted {
			st.Orders++
		} else {
			st.OrdersExisting++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("import orders: %w", err)
	}
	return nil
}

func (im *Importer) importReports(ctx context.Context, st *Stats, uids map[string]primitive.ObjectID) error {
	err := each(im.FS.Collection(ReportsCollection).Documents(ctx), func(doc *firestore.DocumentSnapshot) error {
		var lr legacyReport
		if err := doc.DataTo(&lr); err != nil {
			im.Log.Warn("skipping undecodable report", zap.String("doc", doc.Ref.ID), zap.Error(err))
			st.ReportsSkipped++
			return nil
		}
		reporter, ok1 := uids[lr.ReporterID]
		reported, ok2 := uids[lr.ReportedUserID]
		if !ok1 || !ok2 || reporter == reported {
			im.Log.Warn("skipping report with unknown or identical users", zap.String("doc", doc.Ref.ID))
			st.ReportsSkipped++
			return nil
		}
		inserted, err := im.Reports.Import(ctx, models.Report{
			ReporterID:     reporter,
			ReportedUserID: reported,
			Reasons:        toReasons(lr.Reasons),
			Description:    strings.TrimSpace(lr.Description),
			Status:         mapReportStatus(lr.Status),
			CreatedAt:      lr.CreatedAt.UTC(),
		})
		if err != nil {
			return fmt.Errorf("report %s: %w", doc.Ref.ID, err)
		}
		if inserted {
			st.Reports++
		} else {
			st.ReportsExisting++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("import reports: %w", err)
	}
	return nil
}

// importContent copies the CMS documents and, when the store document is
// among them, syncs plans from it.
func (im *Importer) importContent(ctx context.Context, st *Stats) error {
	var store *models.SiteContent
	err := each(im.FS.Collection(ContentCollection).Documents(ctx), func(doc *firestore.DocumentSnapshot) error {
		slug := strings.ToLower(doc.Ref.ID)
		if !models.IsValidContentSlug(slug) {
			im.Log.Info("ignoring legacy content document", zap.String("doc", doc.Ref.ID))
			return nil
		}
		var lc legacyContent
		if err := doc.DataTo(&lc); err != nil {
			im.Log.Warn("skipping undecodable content", zap.String("doc", doc.Ref.ID), zap.Error(err))
			return nil
		}
		saved, err := im.Content.Upsert(ctx, toContent(slug, lc))
		if err != nil {
			return fmt.Errorf("content %s: %w", slug, err)
		}
		if slug == models.ContentStore {
			store = &saved
		}
		st.Content++
		return nil
	})
	if err != nil {
		return fmt.Errorf("import content: %w", err)
	}
	if store != nil {
		res, err := im.Plans.Sync(ctx, store.Products)
		if err != nil {
			return fmt.Errorf("sync plans: %w", err)
		}
		st.PlansUpserted = int(res.Upserted)
	}
	return nil
}
