// Package server exposes the session service over HTTP: a small JSON API for
// typed turns plus a WebSocket upgrade for the voice-capable widget.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"alignercoach/core"
	"alignercoach/factories"
	sessionhandler "alignercoach/handlers/session"
	"alignercoach/metrics"
	"alignercoach/protocol"
	"alignercoach/storage"
	wstransport "alignercoach/transports/websocket"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server routes widget traffic to per-session handlers, sharing one set of
// stateless remote services across all sessions.
type Server struct {
	settings factories.SettingsConfig
	services *factories.SessionServices
	store    storage.SessionStore
	metrics  *metrics.Metrics
	logger   *core.Logger

	mu       sync.Mutex
	sessions map[string]*sessionEntry

	upgrader websocket.Upgrader
}

// sessionEntry pairs a live handler with its last activity time so idle
// handlers can be evicted from memory.
type sessionEntry struct {
	handler    *sessionhandler.SessionHandler
	lastActive time.Time
}

func New(settings factories.SettingsConfig, store storage.SessionStore, m *metrics.Metrics, logger *core.Logger) *Server {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &Server{
		settings: settings,
		services: settings.Session.BuildServices(logger),
		store:    store,
		metrics:  m,
		logger:   logger,
		sessions: make(map[string]*sessionEntry),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  32 * 1024,
			WriteBufferSize: 32 * 1024,
			// The widget is served from arbitrary clinic domains.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sessions", s.handleCreateSession)
	mux.HandleFunc("POST /api/sessions/{id}/turns", s.handleSubmitTurn)
	mux.HandleFunc("POST /api/sessions/{id}/reset", s.handleReset)
	mux.HandleFunc("GET /api/sessions/{id}/history", s.handleHistory)
	mux.HandleFunc("GET /ws/{id}", s.handleWebSocket)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess := s.settings.Session.NewSession(s.services, s.logger)
	if s.metrics != nil {
		sess.WithObserver(s.metrics)
	}

	s.mu.Lock()
	s.sessions[sess.ID] = &sessionEntry{handler: sess, lastActive: time.Now()}
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.ActiveSessions.Inc()
	}

	s.logger.Infof("session %s created", sess.ID)
	writeJSON(w, http.StatusCreated, map[string]string{"id": sess.ID})
}

type submitTurnRequest struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

func (s *Server) handleSubmitTurn(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(r.Context(), r.PathValue("id"))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	var req submitTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}
	if req.Language != "" {
		sess.SetLanguage(core.Language(req.Language))
	}

	turn, ok := sess.SubmitTurn(r.Context(), req.Text)
	if !ok {
		http.Error(w, "empty utterance", http.StatusBadRequest)
		return
	}
	s.persist(r.Context(), sess)
	writeJSON(w, http.StatusOK, protocol.TurnPayloadFromTurn(turn))
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(r.Context(), r.PathValue("id"))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	sess.Reset()
	if s.store != nil {
		if err := s.store.Delete(r.Context(), sess.ID); err != nil {
			s.logger.Warnf("server: delete snapshot for %s: %v", sess.ID, err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(r.Context(), r.PathValue("id"))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	turns := sess.History()
	payloads := make([]protocol.TurnPayload, 0, len(turns))
	for _, t := range turns {
		payloads = append(payloads, protocol.TurnPayloadFromTurn(t))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"language": string(sess.Language()),
		"turns":    payloads,
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(r.Context(), r.PathValue("id"))
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("server: websocket upgrade failed: %v", err)
		return
	}

	transport := wstransport.NewWidgetTransport(conn, sess, s.logger).OnTurn(func() {
		s.touch(sess.ID)
		s.persist(r.Context(), sess)
	})
	transport.Run(r.Context())
	s.persist(context.Background(), sess)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// session returns the live handler for an ID, reviving it from the store
// when the handler was evicted or the process has restarted since the
// session was created. Every lookup refreshes the entry's activity time.
func (s *Server) session(ctx context.Context, id string) (*sessionhandler.SessionHandler, bool) {
	if id == "" {
		return nil, false
	}
	s.mu.Lock()
	if e, ok := s.sessions[id]; ok {
		e.lastActive = time.Now()
		s.mu.Unlock()
		return e.handler, true
	}
	s.mu.Unlock()
	if s.store == nil {
		return nil, false
	}

	snap, found, err := s.store.Load(ctx, id)
	if err != nil {
		s.logger.Warnf("server: load snapshot for %s: %v", id, err)
		return nil, false
	}
	if !found {
		return nil, false
	}

	sess := s.settings.Session.NewSession(s.services, s.logger)
	sess.ID = snap.SessionID
	sess.Restore(snap.Turns, snap.Language)
	if s.metrics != nil {
		sess.WithObserver(s.metrics)
	}

	s.mu.Lock()
	if existing, raced := s.sessions[id]; raced {
		existing.lastActive = time.Now()
		s.mu.Unlock()
		return existing.handler, true
	}
	s.sessions[id] = &sessionEntry{handler: sess, lastActive: time.Now()}
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.ActiveSessions.Inc()
	}
	return sess, true
}

// touch refreshes a session's activity time without looking it up.
func (s *Server) touch(id string) {
	s.mu.Lock()
	if e, ok := s.sessions[id]; ok {
		e.lastActive = time.Now()
	}
	s.mu.Unlock()
}

// StartEviction periodically drops handlers idle beyond maxIdle until ctx is
// done. Evicted sessions are persisted first, so a later request revives them
// from the store.
func (s *Server) StartEviction(ctx context.Context, maxIdle time.Duration) {
	if maxIdle <= 0 {
		return
	}
	interval := maxIdle / 4
	if interval > time.Minute {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.evictIdle(ctx, maxIdle)
			}
		}
	}()
}

func (s *Server) evictIdle(ctx context.Context, maxIdle time.Duration) {
	cutoff := time.Now().Add(-maxIdle)
	var evicted []*sessionhandler.SessionHandler
	s.mu.Lock()
	for id, e := range s.sessions {
		if e.lastActive.Before(cutoff) {
			delete(s.sessions, id)
			evicted = append(evicted, e.handler)
		}
	}
	s.mu.Unlock()

	for _, h := range evicted {
		s.persist(ctx, h)
		if s.metrics != nil {
			s.metrics.ActiveSessions.Dec()
		}
		s.logger.Debugf("session %s evicted after idling", h.ID)
	}
}

func (s *Server) persist(ctx context.Context, sess *sessionhandler.SessionHandler) {
	if s.store == nil {
		return
	}
	snap := storage.Snapshot{
		SessionID: sess.ID,
		Language:  sess.Language(),
		Turns:     sess.History(),
	}
	if err := s.store.Save(ctx, snap); err != nil {
		s.logger.Warnf("server: save snapshot for %s: %v", sess.ID, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
