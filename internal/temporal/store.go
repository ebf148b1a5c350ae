// Package temporal keeps the timestamped event stream whose relevance
// fades with age. Events are append-only; the only removals are the
// oldest-first retention cap and a full Reset.
package temporal

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nidhogg/mindspace/internal/relevance"
)

// DefaultRetainCap bounds how many events are kept verbatim.
const DefaultRetainCap = 1000

// Event is a single timestamped entry in the stream.
type Event struct {
	ID               string          `json:"id"`
	Timestamp        time.Time       `json:"timestamp"`
	Kind             string          `json:"kind"`
	Significance     float64         `json:"significance"`
	EmotionalValence float64         `json:"emotional_valence"`
	CausalRelations  []string        `json:"causal_relations,omitempty"`
	MemoryStrength   float64         `json:"memory_strength"`
	Scale            relevance.Scale `json:"scale"`
}

// Config tunes store capacity and decay.
type Config struct {
	RetainCap int
	Decay     DecayConfig
}

// Store is the in-memory temporal event store.
type Store struct {
	events map[string]*Event
	order  []string // ids in record order, which is timestamp order
	cfg    Config
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewStore creates a temporal event store.
func NewStore(cfg Config, logger *zap.Logger) *Store {
	if cfg.RetainCap <= 0 {
		cfg.RetainCap = DefaultRetainCap
	}
	if cfg.Decay.HalfLifeFactor == 0 {
		cfg.Decay = DefaultDecayConfig()
	}
	return &Store{
		events: make(map[string]*Event),
		cfg:    cfg,
		logger: logger,
	}
}

// Record creates an event with full memory strength at the given time and
// returns its id. Out-of-range significance is clamped, not rejected.
// Causal relations are soft references: ids that never resolve are kept
// as-is and simply fail lookups.
func (s *Store) Record(now time.Time, kind string, significance, valence float64, causal []string, scale relevance.Scale) string {
	significance = relevance.ClampUnit(significance)
	if !scale.Valid() {
		scale = relevance.ScaleShortTerm
	}

	ev := &Event{
		ID:               uuid.New().String(),
		Timestamp:        now,
		Kind:             kind,
		Significance:     significance,
		EmotionalValence: valence,
		CausalRelations:  append([]string(nil), causal...),
		MemoryStrength:   1.0,
		Scale:            scale,
	}

	s.mu.Lock()
	s.events[ev.ID] = ev
	s.order = append(s.order, ev.ID)
	evicted := s.enforceCapLocked()
	s.mu.Unlock()

	if evicted > 0 {
		s.logger.Debug("temporal retention cap enforced",
			zap.Int("evicted", evicted))
	}
	s.logger.Debug("temporal event recorded",
		zap.String("id", ev.ID),
		zap.String("kind", kind),
		zap.String("scale", string(scale)))
	return ev.ID
}

// enforceCapLocked drops oldest events beyond the retention cap.
// Caller must hold the write lock.
func (s *Store) enforceCapLocked() int {
	over := len(s.order) - s.cfg.RetainCap
	if over <= 0 {
		return 0
	}
	for _, id := range s.order[:over] {
		delete(s.events, id)
	}
	s.order = append([]string(nil), s.order[over:]...)
	return over
}

// Decay recomputes memory strength for all events from their age at now.
// Returns the number of events whose strength changed.
func (s *Store) Decay(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for _, ev := range s.events {
		next := s.cfg.Decay.strengthAt(now.Sub(ev.Timestamp), ev.Scale)
		if next > ev.MemoryStrength {
			// Clock skew between record and sweep must not resurrect.
			continue
		}
		if next != ev.MemoryStrength {
			ev.MemoryStrength = next
			updated++
		}
	}
	return updated
}

// Relevant returns events whose time-weighted relevance at now exceeds
// the threshold, most recent first.
func (s *Store) Relevant(now time.Time, threshold float64) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for i := len(s.order) - 1; i >= 0; i-- {
		ev := s.events[s.order[i]]
		dist := relevance.TemporalDistance(ev.Timestamp, now, ev.Scale)
		if relevance.IsRelevant(ev.Significance, ev.MemoryStrength, dist, threshold) {
			out = append(out, *ev)
		}
	}
	return out
}

// Recent returns the most recent n events, newest first.
func (s *Store) Recent(n int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.order) {
		n = len(s.order)
	}
	out := make([]Event, 0, n)
	for i := len(s.order) - 1; i >= len(s.order)-n; i-- {
		out = append(out, *s.events[s.order[i]])
	}
	return out
}

// Get looks up a single event by id. Missing ids, including unresolved
// causal relations, report ok=false.
func (s *Store) Get(id string) (Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[id]
	if !ok {
		return Event{}, false
	}
	return *ev, true
}

// Len returns the number of retained events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Reset drops all events. Used by full engine reinitialization.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string]*Event)
	s.order = nil
}
