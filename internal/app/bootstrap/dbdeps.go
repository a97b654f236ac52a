// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/cardhub/internal/app/system/blobstore"
	"github.com/dalemusser/cardhub/internal/app/system/firebaseauth"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database and back-end dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Redis is nil when redis_addr is blank.
	Redis *redis.Client

	Files blobstore.Store

	// Firebase is nil when firebase_project_id is blank.
	Firebase firebaseauth.Verifier
}
