package notify

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dalemusser/cardhub/internal/domain/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ChannelPrefix namespaces the per-owner pub/sub channels.
const ChannelPrefix = "cardhub:notify:"

// Redis is a Hub backed by Redis pub/sub so every app instance sees
// interactions recorded by any other.
type Redis struct {
	client *redis.Client
	log    *zap.Logger
}

// NewRedis wraps an existing client. The caller owns the client.
func NewRedis(client *redis.Client, logger *zap.Logger) *Redis {
	return &Redis{client: client, log: logger}
}

func channel(ownerID string) string { return ChannelPrefix + ownerID }

// Publish sends in on its owner's channel.
func (h *Redis) Publish(ctx context.Context, in models.Interaction) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return h.client.Publish(ctx, channel(in.OwnerID.Hex()), payload).Err()
}

// Subscribe opens a Redis subscription for ownerID. It waits for the
// server to confirm the subscription so no message published after it
// returns is missed.
func (h *Redis) Subscribe(ctx context.Context, ownerID string) (<-chan models.Interaction, func(), error) {
	ps := h.client.Subscribe(ctx, channel(ownerID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, err
	}

	out := make(chan models.Interaction, Buffer)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = ps.Close()
		})
	}

	go func() {
		defer close(out)
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				cancel()
				return
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var in models.Interaction
				if err := json.Unmarshal([]byte(msg.Payload), &in); err != nil {
					h.log.Warn("bad notification payload", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				if !trySend(out, in) {
					h.log.Debug("notification dropped for slow subscriber", zap.String("owner_id", ownerID))
				}
			}
		}
	}()
	return out, cancel, nil
}

// Close is a no-op; the client is closed by its owner at shutdown.
func (h *Redis) Close() error { return nil }
