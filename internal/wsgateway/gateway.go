package wsgateway

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/chainstream/streams/internal/apikey"
	"github.com/chainstream/streams/internal/config"
	"github.com/chainstream/streams/internal/stream"
)

// Gateway upgrades HTTP requests to WebSocket connections and runs one
// Session per connection (spec §4.I). Grounded on pkg/websocket.ServeWS
// + Hub's register/unregister bookkeeping, reduced to a plain tracked
// set since there is no broadcast-to-everyone path left to justify the
// teacher's channel-mediated Hub actor.
type Gateway struct {
	apikeys *apikey.Manager
	engine  *stream.Engine
	cfg     config.WebSocket
	logger  zerolog.Logger
	metrics Metrics

	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[*Session]struct{}
}

// Option customizes a Gateway at construction time, mirroring
// internal/executor.Option.
type Option func(*Gateway)

// WithMetrics wires a Metrics sink.
func WithMetrics(m Metrics) Option { return func(g *Gateway) { g.metrics = m } }

// New builds the WebSocket gateway serving spec §4.I.
func New(apikeys *apikey.Manager, engine *stream.Engine, cfg config.WebSocket, logger zerolog.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		apikeys:  apikeys,
		engine:   engine,
		cfg:      cfg,
		logger:   logger,
		metrics:  nopMetrics{},
		sessions: make(map[*Session]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ServeHTTP handles the upgrade at /api/v1/ws (spec §6). Auth happens
// before the upgrade whenever the key is missing or invalid, returning a
// plain 401 rather than an upgraded-then-closed socket (spec §4.I.1:
// "reject with 401 before upgrade when possible").
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	value := extractAPIKey(r)
	if value == "" {
		g.metrics.IncAuthRejected()
		http.Error(w, "missing API key", http.StatusUnauthorized)
		return
	}

	key, role, err := g.apikeys.Authenticate(r.Context(), value)
	if err != nil {
		g.metrics.IncAuthRejected()
		http.Error(w, "invalid API key: "+err.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn().Err(err).Msg("wsgateway: upgrade failed")
		return
	}

	session := NewSession(conn, key, role, g.apikeys, g.engine, g.cfg, g.logger, g.metrics)
	g.track(session)
	g.metrics.IncSessionOpened()

	go func() {
		defer g.untrack(session)
		defer g.metrics.IncSessionClosed()
		session.Run(r.Context())
	}()
}

// Shutdown sends every open session a "server shutdown" close frame and
// tears it down via closeAll, draining it to Closed (spec §5).
func (g *Gateway) Shutdown(ctx context.Context) {
	g.mu.Lock()
	sessions := make([]*Session, 0, len(g.sessions))
	for s := range g.sessions {
		sessions = append(sessions, s)
	}
	g.mu.Unlock()

	for _, s := range sessions {
		s.writeClose(websocket.CloseNormalClosure, "server shutdown")
		s.closeAll()
	}
}

func (g *Gateway) track(s *Session) {
	g.mu.Lock()
	g.sessions[s] = struct{}{}
	g.mu.Unlock()
}

func (g *Gateway) untrack(s *Session) {
	g.mu.Lock()
	delete(g.sessions, s)
	g.mu.Unlock()
}

// extractAPIKey reads the bearer key from the Authorization header,
// falling back to an "api_key" query parameter for browser clients that
// can't set headers on a WebSocket upgrade request (spec §6: "Auth
// header: Authorization: Bearer <api_key_value>").
func extractAPIKey(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		const prefix = "Bearer "
		if strings.HasPrefix(h, prefix) {
			return strings.TrimPrefix(h, prefix)
		}
	}
	return r.URL.Query().Get("api_key")
}
