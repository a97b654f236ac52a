// Command cardctl runs operator tasks against the CardHub database: index
// creation, plan sync, super admin promotion, content seeding and the
// one-time Firestore import.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mongoURI string
	mongoDB  string
	verbose  bool
	timeout  time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "cardctl",
	Short:         "CardHub operator commands",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	rootCmd.PersistentFlags().StringVar(&mongoURI, "mongo-uri", envOr("CARDHUB_MONGO_URI", "mongodb://localhost:27017"), "MongoDB connection URI")
	rootCmd.PersistentFlags().StringVar(&mongoDB, "mongo-database", envOr("CARDHUB_MONGO_DATABASE", "cardhub"), "MongoDB database name")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Minute, "Overall command timeout")

	rootCmd.AddCommand(ensureIndexesCmd, syncPlansCmd, promoteCmd, seedContentCmd, importFirestoreCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "cardctl:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

// env is what every subcommand gets: a bounded context, a logger and the
// database.
type env struct {
	ctx context.Context
	log *zap.Logger
	db  *mongo.Database
}

// withDB connects to MongoDB, runs fn and disconnects.
func withDB(cmd *cobra.Command, fn func(e env) error) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		return fmt.Errorf("mongo connect: %w", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("mongo ping: %w", err)
	}
	logger.Debug("connected", zap.String("database", mongoDB))

	return fn(env{ctx: ctx, log: logger, db: client.Database(mongoDB)})
}
