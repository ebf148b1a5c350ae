// Package engine orchestrates ingestion and periodic refresh across the
// workspace and temporal stores: producers submit content, the relevance
// model scores it, and the tick loop decays events and refreshes metrics.
package engine

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nidhogg/mindspace/internal/relevance"
	"github.com/nidhogg/mindspace/internal/temporal"
	"github.com/nidhogg/mindspace/internal/workspace"
)

// State is the engine lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateActive  State = "active"
	StatePaused  State = "paused"
	StateStopped State = "emergency_stopped"
)

// Command is a control request against the engine lifecycle.
type Command string

const (
	CommandPause         Command = "pause"
	CommandResume        Command = "resume"
	CommandEmergencyStop Command = "emergency_stop"
)

// Config tunes the engine and its stores.
type Config struct {
	Workspace          workspace.Config
	Temporal           temporal.Config
	RelevanceThreshold float64
	Producers          map[string]float64 // producerID -> connection strength
}

// Snapshot is the full engine view exposed to the query/broadcast layer.
type Snapshot struct {
	State       State                                `json:"state"`
	ByLevel     map[relevance.Level][]workspace.Item `json:"by_level"`
	FocusTop10  []string                             `json:"focus_top10"`
	Metrics     workspace.Metrics                    `json:"metrics"`
	Connections map[string]float64                   `json:"producer_connections"`
	TotalItems  int                                  `json:"total_items"`
	TotalEvents int                                  `json:"total_events"`
	Timestamp   time.Time                            `json:"timestamp"`
}

// SnapshotFunc receives the engine snapshot produced by each tick.
type SnapshotFunc func(Snapshot)

// Engine arbitrates workspace admission and drives periodic refresh.
type Engine struct {
	workspace *workspace.Store
	temporal  *temporal.Store
	metrics   *workspace.Aggregator
	threshold float64

	state       State
	lastMetrics workspace.Metrics
	mu          sync.RWMutex

	log       activityLog
	onTick    SnapshotFunc
	tickCount uint64
	logger    *zap.Logger
}

// New constructs an idle engine. Call Initialize to seed foundational
// events and start accepting ingestion.
func New(cfg Config, logger *zap.Logger) *Engine {
	ws := workspace.NewStore(cfg.Workspace, logger)
	for id, strength := range cfg.Producers {
		ws.SetConnection(id, strength)
	}

	threshold := cfg.RelevanceThreshold
	if threshold <= 0 {
		threshold = relevance.DefaultThreshold
	}

	return &Engine{
		workspace: ws,
		temporal:  temporal.NewStore(cfg.Temporal, logger),
		metrics:   workspace.NewAggregator(ws),
		threshold: threshold,
		state:     StateIdle,
		logger:    logger,
	}
}

// SetOnTick registers a callback invoked with the snapshot after every
// tick. Must be called before the tick loop starts.
func (e *Engine) SetOnTick(fn SnapshotFunc) {
	e.onTick = fn
}

// Initialize seeds foundational events and activates the engine.
func (e *Engine) Initialize(now time.Time) {
	e.mu.Lock()
	e.state = StateActive
	e.mu.Unlock()

	e.seedFoundationalEvents(now)
	e.log.add("engine", "initialization", "engine initialized", "info")
	e.logger.Info("engine initialized")
}

// Reinitialize clears both stores and reactivates the engine. This is
// the only way out of an emergency stop. Unlike Initialize it seeds
// nothing: the new lifetime starts from a verifiably empty state.
func (e *Engine) Reinitialize(now time.Time) {
	e.mu.Lock()
	e.workspace.Reset()
	e.temporal.Reset()
	e.lastMetrics = workspace.Metrics{}
	e.state = StateActive
	e.mu.Unlock()

	e.log.add("engine", "reinitialization", "stores cleared, engine reactivated", "warning")
	e.logger.Warn("engine reinitialized")
}

// seedFoundationalEvents records the long-horizon events every fresh
// lifetime starts from.
func (e *Engine) seedFoundationalEvents(now time.Time) {
	seeds := []struct {
		kind         string
		significance float64
		scale        relevance.Scale
	}{
		{"initialization", 1.0, relevance.ScaleExistential},
		{"first_awareness", 0.9, relevance.ScaleLongTerm},
		{"identity_formation_start", 0.8, relevance.ScaleLongTerm},
	}
	for _, seed := range seeds {
		e.temporal.Record(now, seed.kind, seed.significance, 0, nil, seed.scale)
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Control applies a lifecycle command. It reports whether the command
// was accepted from the current state. Resuming from an emergency stop
// performs a full reinitialize, clearing both stores.
func (e *Engine) Control(now time.Time, cmd Command) bool {
	e.mu.Lock()
	state := e.state

	switch cmd {
	case CommandPause:
		if state != StateActive {
			e.mu.Unlock()
			return false
		}
		e.state = StatePaused
		e.mu.Unlock()
		e.log.add("engine", "pause", "engine paused", "info")
		e.logger.Info("engine paused")
		return true

	case CommandResume:
		switch state {
		case StatePaused:
			e.state = StateActive
			e.mu.Unlock()
			e.log.add("engine", "resume", "engine resumed", "info")
			e.logger.Info("engine resumed")
			return true
		case StateStopped, StateIdle:
			e.mu.Unlock()
			e.Reinitialize(now)
			return true
		default:
			e.mu.Unlock()
			return false
		}

	case CommandEmergencyStop:
		e.state = StateStopped
		e.mu.Unlock()
		e.log.add("engine", "emergency_stop", "emergency stop activated", "critical")
		e.logger.Warn("emergency stop activated")
		return true

	default:
		e.mu.Unlock()
		e.logger.Warn("unknown control command", zap.String("command", string(cmd)))
		return false
	}
}

// Ingest scores a producer's content, admits it into the workspace and
// records a matching temporal event. Outside the active state nothing is
// mutated and accepted=false tells the caller the submission was rejected
// rather than silently dropped.
func (e *Engine) Ingest(now time.Time, producerID, kind string, payload map[string]any, priority float64) (string, bool) {
	if e.State() != StateActive {
		e.log.add(producerID, "ingest_rejected", "ingest while not active", "warning")
		return "", false
	}

	id := e.workspace.Admit(now, producerID, kind, payload, priority)
	e.temporal.Record(now, kind, relevance.ClampUnit(priority), 0, nil, scaleForKind(kind))
	return id, true
}

// RecordEvent records a temporal event directly, subject to the same
// lifecycle gating as Ingest.
func (e *Engine) RecordEvent(now time.Time, kind string, significance, valence float64, causal []string, scale relevance.Scale) (string, bool) {
	if e.State() != StateActive {
		e.log.add("temporal", "record_rejected", "record while not active", "warning")
		return "", false
	}
	return e.temporal.Record(now, kind, significance, valence, causal, scale), true
}

// scaleForKind infers an event's relevance horizon from its content kind.
func scaleForKind(kind string) relevance.Scale {
	switch kind {
	case "initialization", "identity_formation":
		return relevance.ScaleExistential
	case "learning", "goal_formation":
		return relevance.ScaleLongTerm
	case "interaction", "decision":
		return relevance.ScaleMediumTerm
	default:
		return relevance.ScaleShortTerm
	}
}

// Tick runs one periodic refresh: decay the event stream, recompute
// metrics, publish a snapshot. A panic in one cycle is logged and the
// next tick proceeds independently. Attention levels stay fixed at
// admission; the tick never re-classifies.
func (e *Engine) Tick(now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("tick cycle failed", zap.Any("panic", r))
			e.log.add("engine", "tick_error", fmt.Sprintf("tick cycle failed: %v", r), "error")
		}
	}()

	if e.State() == StateActive {
		if updated := e.temporal.Decay(now); updated > 0 {
			e.logger.Debug("decay sweep complete", zap.Int("updated", updated))
		}
	}

	m := e.metrics.Aggregate(now)
	e.mu.Lock()
	e.lastMetrics = m
	e.tickCount++
	e.mu.Unlock()

	if e.onTick != nil {
		e.onTick(e.Snapshot(now))
	}
}

// OnTick implements the clock listener interface.
func (e *Engine) OnTick(now time.Time) {
	e.Tick(now)
}

// Metrics returns the metrics cached by the latest tick.
func (e *Engine) Metrics() workspace.Metrics {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastMetrics
}

// TickCount returns how many ticks have run since construction.
func (e *Engine) TickCount() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.tickCount
}

// Snapshot assembles the full engine view at the given time. Metrics are
// recomputed fresh so ad-hoc queries between ticks stay accurate.
func (e *Engine) Snapshot(now time.Time) Snapshot {
	ws := e.workspace.Snapshot()
	return Snapshot{
		State:       e.State(),
		ByLevel:     ws.ByLevel,
		FocusTop10:  ws.FocusTop10,
		Metrics:     e.metrics.Aggregate(now),
		Connections: ws.Connections,
		TotalItems:  ws.TotalItems,
		TotalEvents: e.temporal.Len(),
		Timestamp:   now,
	}
}

// Conscious returns all currently Conscious items in admission order.
func (e *Engine) Conscious() []workspace.Item {
	return e.workspace.Conscious()
}

// RecentEvents returns the most recent n temporal events, newest first.
func (e *Engine) RecentEvents(n int) []temporal.Event {
	return e.temporal.Recent(n)
}

// RelevantEvents returns events still relevant at now. A threshold of 0
// uses the engine's configured threshold.
func (e *Engine) RelevantEvents(now time.Time, threshold float64) []temporal.Event {
	if threshold <= 0 {
		threshold = e.threshold
	}
	return e.temporal.Relevant(now, threshold)
}

// SetConnection sets a producer's connection strength. Configuration-time
// operation; ingestion never touches connections.
func (e *Engine) SetConnection(producerID string, strength float64) {
	e.workspace.SetConnection(producerID, strength)
	e.log.add("workspace", "connection_update",
		fmt.Sprintf("producer %s connection strength set", producerID), "info")
}

// ConnectionStrength resolves a producer's configured strength.
func (e *Engine) ConnectionStrength(producerID string) float64 {
	return e.workspace.ConnectionStrength(producerID)
}

// Activities returns up to limit activity log entries, newest first.
func (e *Engine) Activities(limit int) []Activity {
	return e.log.recent(limit)
}
