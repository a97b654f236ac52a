// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/cardhub/internal/app/system/blobstore"
	"github.com/dalemusser/cardhub/internal/app/system/firebaseauth"
	"github.com/dalemusser/cardhub/internal/app/system/indexes"
	"github.com/dalemusser/cardhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB opens MongoDB and the other back ends named in the config.
// Optional back ends that are not configured are left nil.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	var deps DBDeps

	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return deps, fmt.Errorf("mongo connect: %w", err)
	}
	pctx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()
	if err := client.Ping(pctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return deps, fmt.Errorf("mongo ping: %w", err)
	}
	deps.MongoClient = client
	deps.MongoDatabase = client.Database(appCfg.MongoDatabase)
	logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))

	if appCfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     appCfg.RedisAddr,
			Password: appCfg.RedisPassword,
		})
		if err := rdb.Ping(pctx).Err(); err != nil {
			_ = rdb.Close()
			return deps, fmt.Errorf("redis ping: %w", err)
		}
		deps.Redis = rdb
		logger.Info("connected to Redis", zap.String("addr", appCfg.RedisAddr))
	}

	files, err := openFiles(ctx, appCfg)
	if err != nil {
		return deps, err
	}
	deps.Files = files

	if appCfg.FirebaseProjectID != "" {
		fb, err := firebaseauth.New(ctx, appCfg.FirebaseProjectID, appCfg.FirebaseCredentialsFile)
		if err != nil {
			return deps, fmt.Errorf("firebase: %w", err)
		}
		deps.Firebase = fb
	}
	return deps, nil
}

func openFiles(ctx context.Context, appCfg AppConfig) (blobstore.Store, error) {
	if appCfg.StorageType == "s3" {
		s, err := blobstore.NewS3(ctx, blobstore.S3Config{
			Region:          appCfg.StorageS3Region,
			Bucket:          appCfg.StorageS3Bucket,
			Prefix:          appCfg.StorageS3Prefix,
			Endpoint:        appCfg.StorageS3Endpoint,
			PublicURL:       appCfg.StorageS3PublicURL,
			AccessKeyID:     appCfg.StorageS3AccessKey,
			SecretAccessKey: appCfg.StorageS3SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("s3 storage: %w", err)
		}
		return s, nil
	}
	l, err := blobstore.NewLocal(appCfg.StorageLocalPath, appCfg.StorageLocalURL)
	if err != nil {
		return nil, fmt.Errorf("local storage: %w", err)
	}
	return l, nil
}

// EnsureSchema creates every collection index the stores rely on.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("ensure indexes failed", zap.Error(err))
		return err
	}
	return nil
}
