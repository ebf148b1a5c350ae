package engine

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// activityCap bounds the in-memory activity log.
const activityCap = 1000

// Activity is a single entry in the engine's activity log.
type Activity struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Module      string    `json:"module"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Severity    string    `json:"severity"` // info|warning|error|critical
}

// activityLog is a bounded append-only log of engine activity.
type activityLog struct {
	entries []Activity
	mu      sync.Mutex
}

func (l *activityLog) add(module, kind, description, severity string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, Activity{
		ID:          uuid.New().String(),
		Timestamp:   time.Now(),
		Module:      module,
		Type:        kind,
		Description: description,
		Severity:    severity,
	})
	if len(l.entries) > activityCap {
		l.entries = append([]Activity(nil), l.entries[len(l.entries)-activityCap:]...)
	}
}

// recent returns up to limit entries, newest first.
func (l *activityLog) recent(limit int) []Activity {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 || limit > len(l.entries) {
		limit = len(l.entries)
	}
	out := make([]Activity, 0, limit)
	for i := len(l.entries) - 1; i >= len(l.entries)-limit; i-- {
		out = append(out, l.entries[i])
	}
	return out
}
