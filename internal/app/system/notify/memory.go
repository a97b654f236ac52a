package notify

import (
	"context"
	"sync"

	"github.com/dalemusser/cardhub/internal/domain/models"
	"go.uber.org/zap"
)

// Memory is an in-process Hub for single-instance deployments and tests.
type Memory struct {
	mu     sync.Mutex
	subs   map[string]map[*memSub]struct{}
	log    *zap.Logger
	closed bool
}

type memSub struct {
	ch   chan models.Interaction
	once sync.Once
}

// NewMemory creates an in-process hub.
func NewMemory(logger *zap.Logger) *Memory {
	return &Memory{subs: map[string]map[*memSub]struct{}{}, log: logger}
}

// Publish delivers in to every current subscriber of its owner.
func (m *Memory) Publish(_ context.Context, in models.Interaction) error {
	owner := in.OwnerID.Hex()
	m.mu.Lock()
	defer m.mu.Unlock()
	for s := range m.subs[owner] {
		if !trySend(s.ch, in) {
			m.log.Debug("notification dropped for slow subscriber", zap.String("owner_id", owner))
		}
	}
	return nil
}

// Subscribe registers a subscriber for ownerID.
func (m *Memory) Subscribe(ctx context.Context, ownerID string) (<-chan models.Interaction, func(), error) {
	s := &memSub{ch: make(chan models.Interaction, Buffer)}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		close(s.ch)
		return s.ch, func() {}, nil
	}
	if m.subs[ownerID] == nil {
		m.subs[ownerID] = map[*memSub]struct{}{}
	}
	m.subs[ownerID][s] = struct{}{}
	m.mu.Unlock()

	cancel := func() {
		s.once.Do(func() {
			m.mu.Lock()
			delete(m.subs[ownerID], s)
			if len(m.subs[ownerID]) == 0 {
				delete(m.subs, ownerID)
			}
			m.mu.Unlock()
			close(s.ch)
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return s.ch, cancel, nil
}

// Subscribers returns the number of live subscriptions for ownerID.
func (m *Memory) Subscribers(ownerID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[ownerID])
}

// Close ends every subscription.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	var all []*memSub
	for owner, set := range m.subs {
		for s := range set {
			all = append(all, s)
		}
		delete(m.subs, owner)
	}
	m.mu.Unlock()

	for _, s := range all {
		s.once.Do(func() { close(s.ch) })
	}
	return nil
}
