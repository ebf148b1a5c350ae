// Package api exposes the arbitration engine over HTTP. Field names on
// the wire follow the engine's ingestion/query contract.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/nidhogg/mindspace/internal/clock"
	"github.com/nidhogg/mindspace/internal/engine"
	"github.com/nidhogg/mindspace/internal/gateway"
	"github.com/nidhogg/mindspace/internal/relevance"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	engine      *engine.Engine
	clock       *clock.Clock
	broadcaster *gateway.Broadcaster
	hub         *gateway.Hub
	startedAt   time.Time
	logger      *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(
	eng *engine.Engine,
	clk *clock.Clock,
	broadcaster *gateway.Broadcaster,
	hub *gateway.Hub,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		engine:      eng,
		clock:       clk,
		broadcaster: broadcaster,
		hub:         hub,
		startedAt:   time.Now(),
		logger:      logger,
	}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)
		r.Get("/status", h.status)

		r.Post("/ingest", h.ingest)
		r.Get("/snapshot", h.snapshot)
		r.Get("/conscious", h.conscious)

		r.Post("/events", h.recordEvent)
		r.Get("/events/recent", h.recentEvents)
		r.Get("/events/relevant", h.relevantEvents)

		r.Post("/control", h.control)
		r.Get("/activities", h.activities)

		r.Get("/producers", h.listProducers)
		r.Put("/producers/{id}", h.setProducer)

		if h.hub != nil {
			r.Get("/ws", h.hub.ServeHTTP)
		}
	})

	return r
}

func (h *Handler) now() time.Time {
	if h.clock != nil {
		return h.clock.Now()
	}
	return time.Now()
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"state":  string(h.engine.State()),
	})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state":        h.engine.State(),
		"clock_time":   now.Format(time.RFC3339),
		"tick_count":   h.engine.TickCount(),
		"uptime_sec":   time.Since(h.startedAt).Seconds(),
		"total_items":  h.engine.Snapshot(now).TotalItems,
		"total_events": len(h.engine.RecentEvents(0)),
	})
}

type ingestRequest struct {
	ProducerID string         `json:"producer_id"`
	Kind       string         `json:"kind"`
	Payload    map[string]any `json:"payload"`
	Priority   float64        `json:"priority"`
}

type ingestResponse struct {
	ID       string `json:"id"`
	Accepted bool   `json:"accepted"`
}

func (h *Handler) ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.ProducerID == "" || req.Kind == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "producer_id and kind are required"})
		return
	}

	id, accepted := h.engine.Ingest(h.now(), req.ProducerID, req.Kind, req.Payload, req.Priority)
	status := http.StatusCreated
	if !accepted {
		// The engine is paused or stopped; the caller must be able to
		// tell a rejection from an admission.
		status = http.StatusConflict
	}
	writeJSON(w, status, ingestResponse{ID: id, Accepted: accepted})
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Snapshot(h.now()))
}

func (h *Handler) conscious(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.engine.Conscious())
}

type recordEventRequest struct {
	Kind             string   `json:"kind"`
	Significance     float64  `json:"significance"`
	EmotionalValence float64  `json:"emotional_valence"`
	CausalRelations  []string `json:"causal_relations"`
	Scale            string   `json:"scale"`
}

func (h *Handler) recordEvent(w http.ResponseWriter, r *http.Request) {
	var req recordEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Kind == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "kind is required"})
		return
	}

	id, accepted := h.engine.RecordEvent(h.now(), req.Kind, req.Significance,
		req.EmotionalValence, req.CausalRelations, relevance.Scale(req.Scale))
	status := http.StatusCreated
	if !accepted {
		status = http.StatusConflict
	}
	writeJSON(w, status, ingestResponse{ID: id, Accepted: accepted})
}

func (h *Handler) recentEvents(w http.ResponseWriter, r *http.Request) {
	n := queryInt(r, "n", 20)
	writeJSON(w, http.StatusOK, h.engine.RecentEvents(n))
}

func (h *Handler) relevantEvents(w http.ResponseWriter, r *http.Request) {
	threshold := 0.0
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid threshold"})
			return
		}
		threshold = v
	}
	writeJSON(w, http.StatusOK, h.engine.RelevantEvents(h.now(), threshold))
}

type controlRequest struct {
	Command string `json:"command"`
}

type controlResponse struct {
	Accepted bool         `json:"accepted"`
	State    engine.State `json:"state"`
}

func (h *Handler) control(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	cmd := engine.Command(req.Command)
	switch cmd {
	case engine.CommandPause, engine.CommandResume, engine.CommandEmergencyStop:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown command"})
		return
	}

	accepted := h.engine.Control(h.now(), cmd)
	if h.broadcaster != nil {
		if err := h.broadcaster.Send(r.Context(), gateway.UpdateControl, map[string]any{
			"command":  req.Command,
			"accepted": accepted,
			"state":    h.engine.State(),
		}); err != nil {
			h.logger.Warn("control broadcast failed", zap.Error(err))
		}
	}

	status := http.StatusOK
	if !accepted {
		status = http.StatusConflict
	}
	writeJSON(w, status, controlResponse{Accepted: accepted, State: h.engine.State()})
}

func (h *Handler) activities(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	writeJSON(w, http.StatusOK, h.engine.Activities(limit))
}

// producerView is the wire form of a producer connection.
type producerView struct {
	ID                 string  `json:"id"`
	ConnectionStrength float64 `json:"connection_strength"`
}

func (h *Handler) listProducers(w http.ResponseWriter, r *http.Request) {
	conns := h.engine.Snapshot(h.now()).Connections
	out := make([]producerView, 0, len(conns))
	for id, strength := range conns {
		out = append(out, producerView{ID: id, ConnectionStrength: strength})
	}
	writeJSON(w, http.StatusOK, out)
}

type setProducerRequest struct {
	ConnectionStrength float64 `json:"connection_strength"`
}

func (h *Handler) setProducer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req setProducerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	h.engine.SetConnection(id, req.ConnectionStrength)
	writeJSON(w, http.StatusOK, producerView{
		ID:                 id,
		ConnectionStrength: h.engine.ConnectionStrength(id),
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
