// Package workspace holds the bounded, ranked attention structure that
// arbitrates which content items currently win focus.
package workspace

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nidhogg/mindspace/internal/relevance"
)

const (
	// DefaultFocusCap bounds the ranked focus ordering.
	DefaultFocusCap = 50
	// DefaultRetainCap bounds the total number of retained items.
	DefaultRetainCap = 1000
	// SnapshotFocusTop is how many leading focus ids a snapshot exposes.
	SnapshotFocusTop = 10
)

// Item is a single piece of content competing for attention.
type Item struct {
	ID         string          `json:"id"`
	ProducerID string          `json:"producer_id"`
	Kind       string          `json:"kind"`
	Payload    map[string]any  `json:"payload"`
	Priority   float64         `json:"priority"`
	Coherence  float64         `json:"coherence"`
	Level      relevance.Level `json:"attention_level"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Snapshot is a grouped, read-only view of the workspace.
type Snapshot struct {
	ByLevel     map[relevance.Level][]Item `json:"by_level"`
	FocusTop10  []string                   `json:"focus_top10"`
	Connections map[string]float64         `json:"producer_connections"`
	TotalItems  int                        `json:"total_items"`
}

// Config tunes workspace capacity.
type Config struct {
	FocusCap  int
	RetainCap int
}

// Store is the bounded ranked attention structure.
type Store struct {
	items       map[string]*Item
	order       []string // ids in admission order
	focus       []string // ranked focus ordering, capped at FocusCap
	connections map[string]float64
	cfg         Config
	mu          sync.RWMutex
	logger      *zap.Logger
}

// NewStore creates a workspace store.
func NewStore(cfg Config, logger *zap.Logger) *Store {
	if cfg.FocusCap <= 0 {
		cfg.FocusCap = DefaultFocusCap
	}
	if cfg.RetainCap <= 0 {
		cfg.RetainCap = DefaultRetainCap
	}
	return &Store{
		items:       make(map[string]*Item),
		connections: make(map[string]float64),
		cfg:         cfg,
		logger:      logger,
	}
}

// SetConnection sets a producer's connection strength, clamped to [0, 1].
// Connections are configuration-time state; ingestion never mutates them.
func (s *Store) SetConnection(producerID string, strength float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections[producerID] = relevance.ClampUnit(strength)
}

// ConnectionStrength returns the configured strength for a producer,
// or the default for unknown producers.
func (s *Store) ConnectionStrength(producerID string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.connections[producerID]; ok {
		return v
	}
	return relevance.DefaultProducerStrength
}

// Admit scores and classifies new content, inserts it into the focus
// ordering and returns its id. Out-of-range priority is clamped, never
// rejected. The attention level is fixed at admission; only an explicit
// recompute changes it.
func (s *Store) Admit(now time.Time, producerID, kind string, payload map[string]any, priority float64) string {
	priority = relevance.ClampUnit(priority)

	// Score outside the write lock; only the mutation needs it.
	coherence := relevance.Coherence(payload, s.ConnectionStrength(producerID))
	level := relevance.Classify(priority, coherence)

	item := &Item{
		ID:         uuid.New().String(),
		ProducerID: producerID,
		Kind:       kind,
		Payload:    payload,
		Priority:   priority,
		Coherence:  coherence,
		Level:      level,
		CreatedAt:  now,
	}

	s.mu.Lock()
	s.items[item.ID] = item
	s.order = append(s.order, item.ID)
	s.updateFocusLocked(item)
	evicted := s.enforceCapLocked()
	s.mu.Unlock()

	if evicted != "" {
		s.logger.Debug("workspace item evicted", zap.String("id", evicted))
	}
	s.logger.Debug("content admitted",
		zap.String("id", item.ID),
		zap.String("producer", producerID),
		zap.String("level", level.String()),
		zap.Float64("priority", priority),
		zap.Float64("coherence", coherence))
	return item.ID
}

// updateFocusLocked inserts an item into the ranked focus ordering.
// Conscious items always take the head; everything else slots before the
// first entry it strictly out-prioritizes, so equal priorities keep their
// existing relative order. Caller must hold the write lock.
func (s *Store) updateFocusLocked(item *Item) {
	s.removeFromFocusLocked(item.ID)

	if item.Level == relevance.Conscious {
		s.focus = append([]string{item.ID}, s.focus...)
	} else {
		inserted := false
		for i, id := range s.focus {
			existing, ok := s.items[id]
			if ok && item.Priority > existing.Priority {
				s.focus = append(s.focus[:i], append([]string{item.ID}, s.focus[i:]...)...)
				inserted = true
				break
			}
		}
		if !inserted {
			s.focus = append(s.focus, item.ID)
		}
	}

	if len(s.focus) > s.cfg.FocusCap {
		s.focus = s.focus[:s.cfg.FocusCap]
	}
}

func (s *Store) removeFromFocusLocked(id string) {
	for i, fid := range s.focus {
		if fid == id {
			s.focus = append(s.focus[:i], s.focus[i+1:]...)
			return
		}
	}
}

// enforceCapLocked evicts the oldest non-Conscious item when the backing
// map outgrows the retention cap, falling back to the oldest item when
// everything is Conscious. Returns the evicted id, if any.
// Caller must hold the write lock.
func (s *Store) enforceCapLocked() string {
	if len(s.items) <= s.cfg.RetainCap {
		return ""
	}

	victim := ""
	for _, id := range s.order {
		if it, ok := s.items[id]; ok && it.Level != relevance.Conscious {
			victim = id
			break
		}
	}
	if victim == "" && len(s.order) > 0 {
		victim = s.order[0]
	}
	if victim == "" {
		return ""
	}

	delete(s.items, victim)
	s.removeFromFocusLocked(victim)
	for i, id := range s.order {
		if id == victim {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return victim
}

// Get looks up an item by id. Items dropped from the focus ordering stay
// retrievable until evicted from the backing map.
func (s *Store) Get(id string) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok {
		return Item{}, false
	}
	return *it, true
}

// Conscious returns all currently Conscious items in admission order.
func (s *Store) Conscious() []Item {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Item
	for _, id := range s.order {
		if it, ok := s.items[id]; ok && it.Level == relevance.Conscious {
			out = append(out, *it)
		}
	}
	return out
}

// Focus returns a copy of the current focus ordering.
func (s *Store) Focus() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.focus...)
}

// Len returns the number of retained items.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Snapshot returns the grouped view of the workspace: items by level,
// the leading focus ids and configured producer connections.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byLevel := make(map[relevance.Level][]Item, len(relevance.Levels()))
	for _, lvl := range relevance.Levels() {
		byLevel[lvl] = []Item{}
	}
	for _, id := range s.order {
		if it, ok := s.items[id]; ok {
			byLevel[it.Level] = append(byLevel[it.Level], *it)
		}
	}

	top := len(s.focus)
	if top > SnapshotFocusTop {
		top = SnapshotFocusTop
	}
	conns := make(map[string]float64, len(s.connections))
	for k, v := range s.connections {
		conns[k] = v
	}

	return Snapshot{
		ByLevel:     byLevel,
		FocusTop10:  append([]string(nil), s.focus[:top]...),
		Connections: conns,
		TotalItems:  len(s.items),
	}
}

// Reset drops all items and the focus ordering but keeps configured
// producer connections. Used by full engine reinitialization.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]*Item)
	s.order = nil
	s.focus = nil
}
