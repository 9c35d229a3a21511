package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/lox/gbridge/internal/audit"
	"github.com/lox/gbridge/internal/auth"
)

// Server is the WebSocket game server: it authenticates handshakes,
// attaches sessions, and runs the HTTP diagnostics endpoints. All game
// semantics live in the registries it wires together.
type Server struct {
	cfg       *Config
	logger    *log.Logger
	upgrader  websocket.Upgrader
	validator auth.Validator
	clock     quartz.Clock

	sessions *SessionRegistry
	lobbies  *LobbyRegistry
	games    *GameRegistry
	timers   *TimerService
	router   *Router

	httpServer *http.Server

	mu    sync.Mutex
	conns map[*Connection]bool
}

// New wires a server from its configuration. The recorder may be nil to
// disable auditing.
func New(cfg *Config, validator auth.Validator, recorder *audit.Recorder, clock quartz.Clock, logger *log.Logger) *Server {
	sessions := NewSessionRegistry(cfg.ReconnectGrace(), clock, logger)
	timers := NewTimerService(clock, logger)
	games := NewGameRegistry(sessions, timers, recorder, clock, cfg.TurnTimeout(), logger)
	lobbies := NewLobbyRegistry(clock, logger)
	router := NewRouter(sessions, lobbies, games, logger)

	return &Server{
		cfg:    cfg,
		logger: logger.WithPrefix("server"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Identity comes from the token, not the origin
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		validator: validator,
		clock:     clock,
		sessions:  sessions,
		lobbies:   lobbies,
		games:     games,
		timers:    timers,
		router:    router,
		conns:     make(map[*Connection]bool),
	}
}

// Handler returns the server's HTTP routes. Exposed so tests can run
// the server under httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	return mux
}

// Start runs the listener and the session sweeper until ctx is
// cancelled, then shuts down cleanly.
func (s *Server) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	s.httpServer = &http.Server{
		Addr:    s.cfg.Addr(),
		Handler: s.Handler(),
	}

	g.Go(func() error {
		s.logger.Info("Starting WebSocket server", "addr", s.cfg.Addr())
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		return s.Stop()
	})

	// Sweep on half the grace window so an expired session waits at
	// most 1.5 windows before cleanup.
	g.Go(func() error {
		err := s.clock.TickerFunc(ctx, s.cfg.ReconnectGrace()/2, func() error {
			if swept := s.sessions.Sweep(s.clock.Now()); len(swept) > 0 {
				s.router.HandleSwept(swept)
			}
			return nil
		}, "sweep").Wait()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	return g.Wait()
}

// Stop shuts down the listener and closes every live connection
func (s *Server) Stop() error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(context.Background())
	}

	s.mu.Lock()
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()
	return err
}

// extractToken pulls the identity token from the handshake: query
// string first, then Authorization bearer, then X-Auth-Token.
func extractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return token
		}
	}
	return r.Header.Get("X-Auth-Token")
}

// handleWebSocket authenticates and upgrades a client connection. The
// token is checked before the upgrade so rejects stay plain HTTP.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := extractToken(r)
	identity, err := s.validator.Validate(r.Context(), token)
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	case errors.Is(err, auth.ErrUnavailable):
		s.logger.Warn("Auth service unavailable", "error", err)
		http.Error(w, "auth unavailable", http.StatusServiceUnavailable)
		return
	case err != nil:
		s.logger.Error("Auth validation failed", "error", err)
		http.Error(w, "auth failed", http.StatusServiceUnavailable)
		return
	case identity == nil:
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	// Reconnects re-use their session slot; only new identities count
	// against the cap.
	if !s.sessions.Has(identity.PlayerID) && s.sessions.Len() >= s.cfg.Server.MaxConnections {
		s.logger.Warn("Rejecting connection at capacity", "max", s.cfg.Server.MaxConnections)
		http.Error(w, "server full", http.StatusServiceUnavailable)
		return
	}

	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	sink := make(chan []byte, sinkCapacity)

	// Preload Connected before the sink is visible to any broadcast,
	// guaranteeing it is the first frame the client reads.
	connected, err := NewMessage(MessageTypeConnected, ConnectedPayload{PlayerID: identity.PlayerID})
	if err == nil {
		if frame, err := json.Marshal(connected); err == nil {
			sink <- frame
		}
	}

	reconnected := s.sessions.Attach(identity.PlayerID, identity.Name, sink)

	conn := NewConnection(wsConn, identity.PlayerID, sink, s.router, s.logger)
	s.mu.Lock()
	s.conns[conn] = true
	s.mu.Unlock()

	conn.Start()
	go func() {
		<-conn.Done()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	if reconnected {
		s.broadcastReconnected(identity.PlayerID)
	}
}

// broadcastReconnected tells everyone else the player is back
func (s *Server) broadcastReconnected(playerID string) {
	msg, err := NewMessage(MessageTypePlayerReconnected, PlayerReconnectedPayload{PlayerID: playerID})
	if err != nil {
		return
	}

	var others []string
	for _, id := range s.sessions.ActiveIDs() {
		if id != playerID {
			others = append(others, id)
		}
	}
	if len(others) > 0 {
		s.sessions.Broadcast(others, msg)
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// statsResponse is the /stats JSON shape
type statsResponse struct {
	Connections SessionStats `json:"connections"`
	Games       struct {
		Active int `json:"active"`
	} `json:"games"`
}

// handleStats reports connection and game counts
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var stats statsResponse
	stats.Connections = s.sessions.Stats()
	stats.Games.Active = s.games.ActiveGames()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		s.logger.Error("Failed to encode stats", "error", err)
	}
}
