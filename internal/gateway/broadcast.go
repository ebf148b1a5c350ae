// Package gateway pushes engine state out to dashboards and other
// observers. The core never depends on it; it consumes snapshots through
// the engine's tick callback.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// UpdateType categorizes broadcast updates.
type UpdateType string

const (
	UpdateSnapshot UpdateType = "snapshot"
	UpdateControl  UpdateType = "control"
	UpdateAlert    UpdateType = "alert"
)

// StateUpdate is a single outbound update.
type StateUpdate struct {
	Type      UpdateType      `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

// Publisher delivers updates to one transport.
type Publisher interface {
	Name() string
	Publish(ctx context.Context, update *StateUpdate) error
	Close() error
}

// Record tracks a sent update for history.
type Record struct {
	Type    UpdateType `json:"type"`
	SentAt  time.Time  `json:"sent_at"`
	Targets []string   `json:"targets"`
}

// historyCap bounds the broadcast history.
const historyCap = 200

// Broadcaster fans updates out to all registered publishers and keeps a
// bounded send history.
type Broadcaster struct {
	publishers []Publisher
	history    []Record
	mu         sync.Mutex
	logger     *zap.Logger
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster(logger *zap.Logger) *Broadcaster {
	return &Broadcaster{logger: logger}
}

// Register adds a publisher.
func (b *Broadcaster) Register(p Publisher) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.publishers = append(b.publishers, p)
	b.logger.Info("registered broadcast publisher", zap.String("name", p.Name()))
}

// Send marshals payload and delivers it to every publisher. A failing
// publisher is logged and skipped; the others still receive the update.
func (b *Broadcaster) Send(ctx context.Context, kind UpdateType, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s update: %w", kind, err)
	}
	update := &StateUpdate{
		Type:      kind,
		Payload:   raw,
		Timestamp: time.Now(),
	}

	b.mu.Lock()
	publishers := make([]Publisher, len(b.publishers))
	copy(publishers, b.publishers)
	b.mu.Unlock()

	var targets []string
	for _, p := range publishers {
		if err := p.Publish(ctx, update); err != nil {
			b.logger.Warn("broadcast publish failed",
				zap.String("publisher", p.Name()),
				zap.Error(err))
			continue
		}
		targets = append(targets, p.Name())
	}

	b.mu.Lock()
	b.history = append(b.history, Record{
		Type:    kind,
		SentAt:  update.Timestamp,
		Targets: targets,
	})
	if len(b.history) > historyCap {
		b.history = append([]Record(nil), b.history[len(b.history)-historyCap:]...)
	}
	b.mu.Unlock()
	return nil
}

// History returns up to limit recent records, oldest first.
func (b *Broadcaster) History(limit int) []Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	if limit <= 0 || limit > len(b.history) {
		limit = len(b.history)
	}
	start := len(b.history) - limit
	return append([]Record(nil), b.history[start:]...)
}

// Close shuts down all publishers.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, p := range b.publishers {
		if err := p.Close(); err != nil {
			b.logger.Warn("publisher close failed",
				zap.String("publisher", p.Name()),
				zap.Error(err))
		}
	}
	b.publishers = nil
}
