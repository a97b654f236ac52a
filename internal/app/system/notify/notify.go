// Package notify fans recorded interactions out to the owner's open
// notification streams.
//
// Subscribers receive on a buffered channel. A slow subscriber loses
// messages rather than blocking the publisher; the notification list in
// Mongo remains the source of truth.
package notify

import (
	"context"

	"github.com/dalemusser/cardhub/internal/domain/models"
)

// Buffer is the per-subscriber channel capacity.
const Buffer = 16

// Hub publishes interactions and hands out per-owner subscriptions.
type Hub interface {
	Publish(ctx context.Context, in models.Interaction) error
	// Subscribe returns a channel of the owner's interactions and a cancel
	// func that must be called to release the subscription. The channel is
	// closed after cancel or when ctx ends.
	Subscribe(ctx context.Context, ownerID string) (<-chan models.Interaction, func(), error)
	Close() error
}

// trySend delivers without blocking and reports whether it did.
func trySend(ch chan models.Interaction, in models.Interaction) bool {
	select {
	case ch <- in:
		return true
	default:
		return false
	}
}
