package spectator

import (
	"context"
	"log/slog"
	"net/http"

	pkgerrors "github.com/pkg/errors"
)

// Config configures the spectator HTTP/WebSocket bridge.
type Config struct {
	Enabled    bool
	ListenAddr string
	BoardSize  int
	MaxTargets int
}

// Server is the spectator bridge: an HTTP server serving /ws and
// /healthz, backed by a Hub. Background work (the HTTP listener) does
// not start until Start is called, keeping construction side-effect-free
// for tests.
type Server struct {
	cfg        Config
	hub        *Hub
	httpServer *http.Server
	rateLimit  *IPRateLimiter
	log        *slog.Logger
}

// NewServer builds the spectator bridge. Returns nil if cfg.Enabled is
// false, so callers can wire it unconditionally and nil-check once.
func NewServer(cfg Config, log *slog.Logger) *Server {
	if !cfg.Enabled {
		return nil
	}
	if log == nil {
		log = slog.Default()
	}

	hub := NewHub(cfg.BoardSize, cfg.MaxTargets, log)
	rl := NewIPRateLimiter(DefaultRateLimitConfig)
	router := NewRouter(RouterConfig{Hub: hub, RateLimiter: rl, Log: log})

	return &Server{
		cfg:        cfg,
		hub:        hub,
		rateLimit:  rl,
		log:        log,
		httpServer: &http.Server{Addr: cfg.ListenAddr, Handler: router},
	}
}

// Hub returns the server's broadcast sink so it can be wired as a
// second scheduler.Broadcaster alongside the native publish transport.
func (s *Server) Hub() *Hub { return s.hub }

// Start runs the spectator HTTP server in the background. A bind
// failure here is logged, not fatal, only the native request/reply and
// publish transports are treated as startup-fatal.
func (s *Server) Start() {
	go func() {
		s.log.Info("spectator bridge listening", "addr", s.cfg.ListenAddr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Warn("spectator bridge stopped", "error", pkgerrors.Wrap(err, "spectator listen"))
		}
	}()
}

// Stop shuts the spectator server and its rate limiter down.
func (s *Server) Stop(ctx context.Context) error {
	s.rateLimit.Stop()
	return s.httpServer.Shutdown(ctx)
}
