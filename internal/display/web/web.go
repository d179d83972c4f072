// Package web serves the latest aircraft snapshot over HTTP and pushes new
// snapshots to browsers over a WebSocket.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/unklstewy/overhead/internal/db"
	"github.com/unklstewy/overhead/internal/display"
	"github.com/unklstewy/overhead/pkg/config"
)

const (
	writeWait      = 10 * time.Second
	clientQueueLen = 8

	// defaultHistoryWindow applies when /api/v1/history has no since parameter
	defaultHistoryWindow = time.Hour
)

// HistoryStore answers queries over recorded sightings; implemented by *db.History.
type HistoryStore interface {
	RecentAircraft(ctx context.Context, since time.Time) ([]db.AircraftSummary, error)
	GetStats(ctx context.Context) (map[string]interface{}, error)
}

// Server is a display sink backed by an HTTP server.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	upgrader   websocket.Upgrader
	history    HistoryStore
	logger     zerolog.Logger
	now        func() time.Time

	mu      sync.RWMutex
	latest  *display.Snapshot
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// New creates the server; call Start to begin listening.
func New(cfg config.WebDisplayConfig, logger zerolog.Logger) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		logger:  logger.With().Str("sink", "web").Logger(),
		clients: make(map[*wsClient]struct{}),
		now:     time.Now,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(cfg.AllowedOrigins),
	}
	s.setupRoutes(cfg.AllowedOrigins)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(origins []string) {
	r := s.router

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/aircraft", s.handleGetAircraft)
		r.Get("/aircraft/{icao24}", s.handleGetAircraftByICAO)
		r.Get("/history", s.handleGetHistory)
		r.Get("/stats", s.handleGetStats)
	})
}

// SetHistory enables the history and stats endpoints. Call before Start.
func (s *Server) SetHistory(h HistoryStore) {
	s.history = h
}

// Handler returns the HTTP handler, for embedding or tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens in the background. Listen errors are returned immediately.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}

	go func() {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("Web display listening")
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Web display server failed")
		}
	}()
	return nil
}

// Deliver stores snap as the latest snapshot and pushes it to WebSocket clients.
// Slow clients miss snapshots rather than blocking delivery.
func (s *Server) Deliver(ctx context.Context, snap display.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.latest = &snap
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			s.logger.Warn().Str("remote", c.conn.RemoteAddr().String()).Msg("Dropping snapshot for slow client")
		}
	}
	return nil
}

// Close disconnects WebSocket clients and shuts the server down.
func (s *Server) Close() error {
	s.mu.Lock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.send)
	}
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) snapshot() *display.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"status": "ok"}
	if snap := s.snapshot(); snap != nil {
		resp["last_cycle"] = snap.CycleID
		resp["last_update"] = snap.Taken
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetAircraft(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot()
	if snap == nil {
		respondError(w, http.StatusServiceUnavailable, "no snapshot yet")
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleGetAircraftByICAO(w http.ResponseWriter, r *http.Request) {
	icao := strings.ToLower(chi.URLParam(r, "icao24"))

	snap := s.snapshot()
	if snap == nil {
		respondError(w, http.StatusServiceUnavailable, "no snapshot yet")
		return
	}
	for _, st := range snap.States {
		if st.ICAO24 == icao {
			respondJSON(w, http.StatusOK, st)
			return
		}
	}
	respondError(w, http.StatusNotFound, "aircraft not found")
}

// handleGetHistory lists aircraft seen since the "since" query parameter,
// given as an RFC 3339 time or a duration back from now (e.g. "30m").
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		respondError(w, http.StatusNotFound, "history is not enabled")
		return
	}

	since, err := s.parseSince(r.URL.Query().Get("since"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	aircraft, err := s.history.RecentAircraft(r.Context(), since)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to query history")
		respondError(w, http.StatusInternalServerError, "failed to query history")
		return
	}
	if aircraft == nil {
		aircraft = []db.AircraftSummary{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"since":    since,
		"count":    len(aircraft),
		"aircraft": aircraft,
	})
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		respondError(w, http.StatusNotFound, "history is not enabled")
		return
	}

	stats, err := s.history.GetStats(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to query stats")
		respondError(w, http.StatusInternalServerError, "failed to query stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) parseSince(v string) (time.Time, error) {
	now := s.now()
	if v == "" {
		return now.Add(-defaultHistoryWindow), nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return time.Time{}, fmt.Errorf("invalid since %q: want RFC 3339 time or positive duration", v)
	}
	return now.Add(-d), nil
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, clientQueueLen)}

	s.mu.Lock()
	if s.latest != nil {
		if data, err := json.Marshal(s.latest); err == nil {
			c.send <- data
		}
	}
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	s.logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("WebSocket client connected")

	go s.writePump(c)
	s.readPump(c)
}

// readPump discards client messages and unregisters the client when the
// connection fails.
func (s *Server) readPump(c *wsClient) {
	defer func() {
		s.mu.Lock()
		if _, ok := s.clients[c]; ok {
			delete(s.clients, c)
			close(c.send)
		}
		s.mu.Unlock()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(c *wsClient) {
	defer c.conn.Close()

	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || slices.Contains(allowed, "*") {
			return true
		}
		return slices.Contains(allowed, origin)
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
