// Package server exposes the adaptive search engine over HTTP: a JSON
// search endpoint, a websocket stream of relaxation passes, and
// metrics/health probes.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/danja/semem-sub000/internal/search"
	"github.com/danja/semem-sub000/internal/store"
	"github.com/danja/semem-sub000/internal/zpt"
)

// Memory is the persistence surface the server needs beyond similarity
// search. *store.Store satisfies it.
type Memory interface {
	Add(ctx context.Context, input store.MemoryInput) (*store.Interaction, bool, error)
	Touch(ctx context.Context, ids ...string)
	Count(ctx context.Context) (int, error)
}

// Server routes the search API. All handlers reply JSON.
type Server struct {
	engine   *search.AdaptiveSearchEngine
	memory   Memory
	defaults search.Options
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New creates a server around the engine. defaults seeds the search
// options for every request before per-request overrides are applied.
// memory may be nil, which disables access tracking and the memory
// endpoint.
func New(engine *search.AdaptiveSearchEngine, memory Memory, defaults search.Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine:   engine,
		memory:   memory,
		defaults: defaults,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the routed handler with request logging attached.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /search", s.handleSearch)
	mux.HandleFunc("GET /search/live", s.handleSearchLive)
	mux.HandleFunc("POST /memory", s.handleAddMemory)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("GET /health", s.handleHealth)
	return loggingMiddleware(s.logger, mux)
}

type searchRequest struct {
	Query   string          `json:"query"`
	Zoom    string          `json:"zoom,omitempty"`
	Tilt    string          `json:"tilt,omitempty"`
	Pan     panRequest      `json:"pan"`
	Options *optionsRequest `json:"options,omitempty"`
}

type panRequest struct {
	Keywords []string   `json:"keywords,omitempty"`
	Domains  []string   `json:"domains,omitempty"`
	Entities []string   `json:"entities,omitempty"`
	Since    *time.Time `json:"since,omitempty"`
	Until    *time.Time `json:"until,omitempty"`
}

type optionsRequest struct {
	Threshold        *float64 `json:"threshold,omitempty"`
	MaxPasses        int      `json:"max_passes,omitempty"`
	TargetResults    int      `json:"target_results,omitempty"`
	MaxResults       int      `json:"max_results,omitempty"`
	MinQuality       *float64 `json:"min_quality,omitempty"`
	DisablePanBoosts bool     `json:"disable_pan_boosts,omitempty"`
	DisableLearning  bool     `json:"disable_learning,omitempty"`
}

// navigation maps the wire request onto a navigation state. Unknown zoom
// or tilt values are rejected here rather than silently degraded so the
// client learns about typos.
func (r searchRequest) navigation() (zpt.NavigationState, error) {
	zoom, err := zpt.ParseZoom(r.Zoom)
	if err != nil {
		return zpt.NavigationState{}, err
	}
	tilt, err := zpt.ParseTilt(r.Tilt)
	if err != nil {
		return zpt.NavigationState{}, err
	}
	pan := zpt.PanFilter{
		Domains:  r.Pan.Domains,
		Keywords: r.Pan.Keywords,
		Entities: r.Pan.Entities,
	}
	if r.Pan.Since != nil || r.Pan.Until != nil {
		var tr zpt.TimeRange
		if r.Pan.Since != nil {
			tr.Start = *r.Pan.Since
		}
		if r.Pan.Until != nil {
			tr.End = *r.Pan.Until
		}
		pan.Temporal = &tr
	}
	return zpt.NavigationState{Zoom: zoom, Pan: pan, Tilt: tilt}, nil
}

// options layers per-request overrides onto the server defaults.
func (r searchRequest) options(base search.Options) search.Options {
	o := r.Options
	if o == nil {
		return base
	}
	if o.Threshold != nil {
		base.Threshold = o.Threshold
	}
	if o.MaxPasses > 0 {
		base.MaxPasses = o.MaxPasses
	}
	if o.TargetResults > 0 {
		base.TargetResultCount = o.TargetResults
	}
	if o.MaxResults > 0 {
		base.MaxResultCount = o.MaxResults
	}
	if o.MinQuality != nil {
		base.MinAcceptableQuality = *o.MinQuality
	}
	if o.DisablePanBoosts {
		base.EnablePanBoosts = false
	}
	if o.DisableLearning {
		base.EnableLearning = false
	}
	return base
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	nav, err := req.navigation()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := s.engine.Execute(r.Context(), req.Query, nav, req.options(s.defaults))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.touchResults(r.Context(), outcome)
	s.writeJSON(w, http.StatusOK, outcome)
}

// liveEvent is one websocket frame on /search/live: pass progress while
// the relaxation loop runs, then the final outcome.
type liveEvent struct {
	Type    string                `json:"type"`
	Pass    *search.PassRecord    `json:"pass,omitempty"`
	Outcome *search.SearchOutcome `json:"outcome,omitempty"`
	Error   string                `json:"error,omitempty"`
}

func (s *Server) handleSearchLive(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var req searchRequest
	if err := conn.ReadJSON(&req); err != nil {
		s.writeLiveError(conn, "invalid request: "+err.Error())
		return
	}
	nav, err := req.navigation()
	if err != nil {
		s.writeLiveError(conn, err.Error())
		return
	}

	opts := req.options(s.defaults)
	opts.OnPass = func(p search.PassRecord) {
		if err := conn.WriteJSON(liveEvent{Type: "pass", Pass: &p}); err != nil {
			s.logger.Debug("live pass write failed", "error", err)
		}
	}

	outcome, err := s.engine.Execute(r.Context(), req.Query, nav, opts)
	if err != nil {
		s.writeLiveError(conn, err.Error())
		return
	}

	s.touchResults(r.Context(), outcome)
	if err := conn.WriteJSON(liveEvent{Type: "result", Outcome: &outcome}); err != nil {
		s.logger.Debug("live result write failed", "error", err)
	}
}

func (s *Server) writeLiveError(conn *websocket.Conn, msg string) {
	if err := conn.WriteJSON(liveEvent{Type: "error", Error: msg}); err != nil {
		s.logger.Debug("live error write failed", "error", err)
	}
}

type memoryRequest struct {
	ID        string     `json:"id,omitempty"`
	Prompt    string     `json:"prompt"`
	Response  string     `json:"response,omitempty"`
	Concepts  []string   `json:"concepts,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type memoryResponse struct {
	ID      string `json:"id"`
	Created bool   `json:"created"`
}

func (s *Server) handleAddMemory(w http.ResponseWriter, r *http.Request) {
	if s.memory == nil {
		s.writeError(w, http.StatusServiceUnavailable, "memory store unavailable")
		return
	}
	var req memoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		s.writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	input := store.MemoryInput{
		ID:       req.ID,
		Prompt:   req.Prompt,
		Response: req.Response,
		Concepts: req.Concepts,
	}
	if req.Timestamp != nil {
		input.Timestamp = *req.Timestamp
	}

	rec, created, err := s.memory.Add(r.Context(), input)
	if err != nil {
		s.logger.Error("failed to add memory", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to add memory")
		return
	}

	id, err := store.RecordIDString(rec.ID)
	if err != nil {
		s.logger.Warn("unexpected record ID type", "error", err)
		id = req.ID
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.writeJSON(w, status, memoryResponse{ID: id, Created: created})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.PerformanceReport())
}

type healthResponse struct {
	Status      string `json:"status"`
	MemoryCount int    `json:"memory_count,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if s.memory != nil {
		n, err := s.memory.Count(r.Context())
		if err != nil {
			s.logger.Warn("memory count failed", "error", err)
			resp.Status = "degraded"
		} else {
			resp.MemoryCount = n
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// touchResults bumps access tracking for every returned interaction.
func (s *Server) touchResults(ctx context.Context, outcome search.SearchOutcome) {
	if s.memory == nil || len(outcome.Results) == 0 {
		return
	}
	ids := make([]string, 0, len(outcome.Results))
	for _, res := range outcome.Results {
		ids = append(ids, res.ID)
	}
	s.memory.Touch(ctx, ids...)
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}
