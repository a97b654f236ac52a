package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dalemusser/cardhub/internal/app/store/audit"
	contentstore "github.com/dalemusser/cardhub/internal/app/store/content"
	planstore "github.com/dalemusser/cardhub/internal/app/store/plans"
	userstore "github.com/dalemusser/cardhub/internal/app/store/users"
	"github.com/dalemusser/cardhub/internal/app/system/auditlog"
	"github.com/dalemusser/cardhub/internal/app/system/fsimport"
	"github.com/dalemusser/cardhub/internal/app/system/indexes"
	"github.com/dalemusser/cardhub/internal/domain/models"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var ensureIndexesCmd = &cobra.Command{
	Use:   "ensure-indexes",
	Short: "Create or update every collection index",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDB(cmd, func(e env) error {
			if err := indexes.EnsureAll(e.ctx, e.db); err != nil {
				return err
			}
			e.log.Info("indexes ensured")
			return nil
		})
	},
}

var syncPlansCmd = &cobra.Command{
	Use:   "sync-plans",
	Short: "Upsert plans from the store content document",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDB(cmd, func(e env) error {
			doc, err := contentstore.New(e.db).GetBySlug(e.ctx, models.ContentStore)
			if errors.Is(err, contentstore.ErrNotFound) {
				return errors.New("no store content document; run seed-content first")
			}
			if err != nil {
				return err
			}
			return syncPlans(e, doc.Products)
		})
	},
}

func syncPlans(e env, products []models.StoreProduct) error {
	res, err := planstore.New(e.db).Sync(e.ctx, products)
	if err != nil {
		return fmt.Errorf("sync plans: %w", err)
	}
	cliAudit(e).PlansSynced(e.ctx, nil, primitive.NilObjectID, int(res.Upserted), int(res.Deactivated))
	e.log.Info("plans synced",
		zap.Int64("upserted", res.Upserted),
		zap.Int64("updated", res.Updated),
		zap.Int64("deactivated", res.Deactivated))
	return nil
}

func cliAudit(e env) *auditlog.Logger {
	return auditlog.New(audit.New(e.db), e.log, auditlog.Config{})
}

var promoteRole string

var promoteCmd = &cobra.Command{
	Use:   "promote --email user@example.com",
	Short: "Set a user's role (super_admin by default)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		email, _ := cmd.Flags().GetString("email")
		if email == "" {
			return errors.New("--email is required")
		}
		if !models.IsValidRole(promoteRole) {
			return fmt.Errorf("unknown role %q", promoteRole)
		}
		return withDB(cmd, func(e env) error {
			u, err := userstore.New(e.db).PromoteByEmail(e.ctx, email, promoteRole)
			if errors.Is(err, userstore.ErrNotFound) {
				return fmt.Errorf("no user with email %s", email)
			}
			if err != nil {
				return err
			}
			e.log.Info("role set", zap.String("user_id", u.ID.Hex()), zap.String("email", u.Email), zap.String("role", u.Role))
			return nil
		})
	},
}

var seedContentCmd = &cobra.Command{
	Use:   "seed-content --file content.yaml",
	Short: "Load CMS documents from YAML and sync plans from the store document",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("file")
		if path == "" {
			return errors.New("--file is required")
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		docs, err := parseSeed(f)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		return withDB(cmd, func(e env) error {
			store := contentstore.New(e.db)
			var products []models.StoreProduct
			hasStore := false
			for _, doc := range docs {
				if _, err := store.Upsert(e.ctx, doc); err != nil {
					return fmt.Errorf("save %s: %w", doc.Slug, err)
				}
				cliAudit(e).ContentUpdated(e.ctx, nil, primitive.NilObjectID, doc.Slug)
				e.log.Info("content saved", zap.String("slug", doc.Slug))
				if doc.Slug == models.ContentStore {
					products, hasStore = doc.Products, true
				}
			}
			if !hasStore {
				return nil
			}
			return syncPlans(e, products)
		})
	},
}

var importFirestoreCmd = &cobra.Command{
	Use:   "import-firestore --project legacy-project",
	Short: "Copy a legacy Firestore project into MongoDB",
	Long: `Imports users, usernames, orders, reports and siteContent from Firestore.

Safe to re-run: records already imported are matched and left alone.
With FIRESTORE_EMULATOR_HOST set the emulator is read instead.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		project, _ := cmd.Flags().GetString("project")
		creds, _ := cmd.Flags().GetString("credentials")
		return withDB(cmd, func(e env) error {
			if err := indexes.EnsureAll(e.ctx, e.db); err != nil {
				return err
			}
			fs, err := fsimport.Open(e.ctx, project, creds)
			if err != nil {
				return err
			}
			defer fs.Close()

			st, err := fsimport.New(fs, e.db, e.log).Run(e.ctx)
			out, _ := json.MarshalIndent(st, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		})
	},
}

func init() {
	promoteCmd.Flags().String("email", "", "Email of the user to promote")
	promoteCmd.Flags().StringVar(&promoteRole, "role", models.RoleSuperAdmin, "Role to set")

	seedContentCmd.Flags().String("file", "", "YAML file with a top-level content list")

	importFirestoreCmd.Flags().String("project", "", "Legacy Firebase project id")
	importFirestoreCmd.Flags().String("credentials", "", "Service account JSON (blank uses application default credentials)")
	_ = importFirestoreCmd.MarkFlagRequired("project")
}
