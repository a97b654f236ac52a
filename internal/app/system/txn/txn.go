// Package txn runs MongoDB multi-document transactions and detects servers
// that cannot run them (standalone mongod, some managed offerings).
package txn

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// illegalOperation is the code a standalone mongod returns for any
// operation carrying a transaction number ("Transaction numbers are only
// allowed on a replica set member or mongos").
const illegalOperation = 20

// IsNotSupported reports whether err indicates the server cannot run a
// transaction, as opposed to the transaction itself failing. Only the
// server error code is consulted; error text is not.
func IsNotSupported(err error) bool {
	var se mongo.ServerError
	if !errors.As(err, &se) {
		return false
	}
	return se.HasErrorCode(illegalOperation)
}

// Run executes fn inside a transaction on a new session. The driver retries
// fn on transient transaction errors, so fn must be safe to re-run.
func Run(ctx context.Context, client *mongo.Client, fn func(sc mongo.SessionContext) error) error {
	sess, err := client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc)
	})
	return err
}
