package spectator

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig wires a Hub and rate limiter into the spectator HTTP
// surface via dependency-injected router construction, with no
// streaming-platform-specific or admin-auth routes.
type RouterConfig struct {
	Hub         *Hub
	RateLimiter *IPRateLimiter
	CORSOrigins []string
	Log         *slog.Logger
}

// NewRouter builds the spectator bridge's chi router: CORS, per-IP rate
// limiting, /ws for the live feed, and /healthz for the load balancer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = AllowedOrigins
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(loggingMiddleware(cfg.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/ws", cfg.Hub.ServeWS)

	return r
}

func loggingMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Debug("spectator request", "method", r.Method, "path", r.URL.Path, "remote", ClientIP(r))
			next.ServeHTTP(w, r)
		})
	}
}
