// Package web provides the chat front-end HTTP server and its middleware.
package web

import (
	"net/http"
	"time"

	"github.com/askdocs/askdocs/internal/log"
	"github.com/askdocs/askdocs/internal/session"
	"github.com/askdocs/askdocs/internal/web/handlers"
)

const defaultSessionCookieAge = 24 * time.Hour

// Server is the chat front-end HTTP server.
type Server struct {
	mux     *http.ServeMux
	logger  log.Logger
	limiter *rateLimiter
}

// ServerConfig contains configuration for creating the server.
type ServerConfig struct {
	Logger        log.Logger
	Engines       handlers.EngineProvider // Required: yields the current query engine
	Transcripts   *session.Store          // Required: per-session transcripts
	Store         handlers.Counter        // Optional: document count for /ready
	DataDir       string                  // Folder named in the empty-index answer
	SessionTTL    time.Duration           // Cookie lifetime; defaults to 24h
	RatePerSecond float64                 // Token refill rate per IP; <=0 disables limiting
	RateBurst     int                     // Token bucket size per IP
	IsDev         bool                    // Allows plain-HTTP cookies for local development
}

// NewServer creates the server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = defaultSessionCookieAge
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	sessions := handlers.NewSessions(ttl, !cfg.IsDev)

	home, err := handlers.NewHome(handlers.HomeConfig{
		Logger:      logger,
		Engines:     cfg.Engines,
		Transcripts: cfg.Transcripts,
		Sessions:    sessions,
		DataDir:     cfg.DataDir,
	})
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	home.RegisterRoutes(mux)
	handlers.NewHealth(cfg.Store).RegisterRoutes(mux)

	s := &Server{
		mux:    mux,
		logger: logger,
	}
	if cfg.RatePerSecond > 0 && cfg.RateBurst > 0 {
		s.limiter = newRateLimiter(cfg.RatePerSecond, cfg.RateBurst)
	}
	return s, nil
}

// ServeHTTP implements http.Handler with the middleware stack:
// Recovery → Logging → RateLimit → Routes.
// Probe endpoints bypass rate limiting so orchestrators never see 429s.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.setSecurityHeaders(w)

	var handler http.Handler = s.mux
	if s.limiter != nil && r.URL.Path != "/health" && r.URL.Path != "/ready" {
		handler = RateLimitMiddleware(s.limiter, s.logger)(handler)
	}
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RecoveryMiddleware(s.logger)(handler)

	handler.ServeHTTP(w, r)
}

// setSecurityHeaders applies security headers for the chat page.
func (s *Server) setSecurityHeaders(w http.ResponseWriter) {
	// The page styles itself inline and loads nothing else.
	w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'unsafe-inline'")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
}

// Handler returns the server as an http.Handler for mounting.
func (s *Server) Handler() http.Handler {
	return s
}
