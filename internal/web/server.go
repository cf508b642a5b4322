// Package web serves the classbot page, its JSON command API and the
// websocket channel.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/p-n-ai/classbot/internal/agent"
	"github.com/p-n-ai/classbot/internal/chat"
	"github.com/p-n-ai/classbot/internal/platform/metrics"
	"github.com/p-n-ai/classbot/internal/session"
)

const (
	// CookieName holds the browser session id.
	CookieName = "classbot_session"

	maxCommandBytes = 64 << 10
	readyTimeout    = 3 * time.Second
)

// HealthChecker is a dependency checked by /readyz.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Config holds the server dependencies.
type Config struct {
	Engine       *agent.Engine
	Sessions     session.Store
	Channel      *chat.WebSocketChannel
	Metrics      *metrics.Metrics
	Checks       map[string]HealthChecker
	SessionTTL   time.Duration
	CookieSecure bool
}

// Server handles HTTP requests for the classbot.
type Server struct {
	engine       *agent.Engine
	sessions     session.Store
	channel      *chat.WebSocketChannel
	metrics      *metrics.Metrics
	checks       map[string]HealthChecker
	sessionTTL   time.Duration
	cookieSecure bool

	// Commands for one session run one at a time so two tabs cannot
	// overwrite each other's state.
	locksMu sync.Mutex
	locks   map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewServer creates a server. A nil session store falls back to memory.
func NewServer(cfg Config) *Server {
	sessions := cfg.Sessions
	if sessions == nil {
		sessions = session.NewMemoryStore(cfg.SessionTTL)
	}
	channel := cfg.Channel
	if channel == nil {
		channel = chat.NewWebSocketChannel()
	}
	return &Server{
		engine:       cfg.Engine,
		sessions:     sessions,
		channel:      channel,
		metrics:      cfg.Metrics,
		checks:       cfg.Checks,
		sessionTTL:   cfg.SessionTTL,
		cookieSecure: cfg.CookieSecure,
		locks:        make(map[string]*sessionLock),
	}
}

// Handler returns the HTTP router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/command", s.handleCommand)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.Handle("GET /metrics", s.metrics.Handler())
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))
	return logRequests(mux)
}

// run loads the session, applies fn under the session lock and saves the
// state, even when fn fails, since a rejected command may still discard a
// broken quiz. A missing session starts fresh.
func (s *Server) run(ctx context.Context, id string, fn func(*agent.State) (agent.View, error)) (agent.View, error) {
	unlock := s.lock(id)
	defer unlock()

	st, err := s.sessions.Load(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		st = agent.NewState(id)
	} else if err != nil {
		return agent.View{}, fmt.Errorf("loading session: %w", err)
	}

	view, err := fn(st)
	if saveErr := s.sessions.Save(ctx, st); saveErr != nil {
		if err == nil {
			return agent.View{}, fmt.Errorf("saving session: %w", saveErr)
		}
		slog.Error("saving session failed", "session_id", id, "error", saveErr)
	}
	return view, err
}

func (s *Server) lock(id string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.locksMu.Unlock()
	}
}

// sessionID returns the id from the cookie, issuing a new one when the cookie
// is missing or malformed.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && session.ValidID(c.Value) {
		return c.Value
	}
	id := session.NewID()
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if s.sessionTTL > 0 {
		cookie.MaxAge = int(s.sessionTTL.Seconds())
	}
	http.SetCookie(w, cookie)
	return id
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			return
		}
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}
