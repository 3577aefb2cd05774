// internal/server/server.go
//
// Browser session server.
//
// Routes
// ------
//
//	GET    /{app}/ws            websocket: open a session on the app at /{app}
//	GET    /api/types           resolved schema of every registered type
//	GET    /api/sessions        attached sessions
//	DELETE /api/sessions/{id}   tear a session down
//	GET    /api/history         closed and open sessions from the journal
//	GET    /metrics             Prometheus
//	GET    /healthz             liveness
//
// Middleware order: Recoverer, Security, ClientInfo.  ClientInfo must run
// before the websocket handler so the SessionContext carries client data.
package server

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yanizio/widgetkit/internal/remote"
	"github.com/yanizio/widgetkit/internal/schema"
	"github.com/yanizio/widgetkit/internal/session"
	"github.com/yanizio/widgetkit/internal/sessionlog"
)

// Options configure the session server.
type Options struct {
	// AllowedOrigins lists websocket origins.  Empty allows same-host and
	// loopback origins only.
	AllowedOrigins []string

	// SendBuffer is the outbound frame queue per connection.
	SendBuffer int

	// ReadLimit caps one inbound message in bytes.
	ReadLimit int64

	// KeepOnDisconnect leaves a session attached when its socket drops so
	// a client can reconnect with ?session=<id>.  The evictor reaps it
	// once idle.  When false the session is torn down on disconnect.
	KeepOnDisconnect bool

	// Fanout, when set, returns an extra executor per session.  Remote
	// invocations go to the websocket first, then to it.
	Fanout func(sessionID string) remote.Executor

	// History, when set, serves /api/history from the session journal.
	History func(ctx context.Context, limit int) ([]sessionlog.Record, error)
}

// Server serves sessions managed by mgr.
type Server struct {
	mgr      *session.Manager
	reg      *schema.Registry
	opts     Options
	upgrader websocket.Upgrader
	origins  map[string]bool
	hosts    map[string]bool
}

// New builds a Server.  reg is the registry the manager builds documents
// against.
func New(mgr *session.Manager, reg *schema.Registry, opts Options) *Server {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = 1 << 20
	}
	s := &Server{
		mgr:     mgr,
		reg:     reg,
		opts:    opts,
		origins: make(map[string]bool),
		hosts:   make(map[string]bool),
	}
	for _, origin := range opts.AllowedOrigins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		s.origins[trimmed] = true
		if parsed, err := url.Parse(trimmed); err == nil && parsed.Host != "" {
			s.hosts[parsed.Host] = true
		}
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

// Routes returns the root handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(Security)
	r.Use(ClientInfo)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Get("/types", s.handleTypes)
		api.Get("/sessions", s.handleSessions)
		api.Delete("/sessions/{id}", s.handleCloseSession)
		api.Get("/history", s.handleHistory)
	})

	r.Get("/{app}/ws", s.handleWS)
	return r
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(s.origins) > 0 {
		if s.origins[origin] {
			return true
		}
		if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
			return s.hosts[parsed.Host]
		}
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}
	host := parsed.Host
	if host == r.Host {
		return true
	}
	switch parsed.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
