// Package observability runs the server's loopback-only debug endpoint:
// Prometheus metrics, pprof profiling, and a liveness check. None of this
// is reachable from the game's own TCP endpoints, it is a separate HTTP
// server bound to 127.0.0.1 unless OUTERSPACE_ALLOW_DEBUG_EXTERNAL=true.
package observability

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics carry bounded cardinality only, no per-shooter or per-client
// labels, since a malicious client could otherwise inflate label
// cardinality into an unbounded memory cost.
var (
	commandLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outerspace_command_duration_seconds",
		Help:    "Time spent evaluating one client command under the World lock",
		Buckets: []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
	}, []string{"kind"}) // kind: join, move, shoot, disconnect, unknown

	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outerspace_commands_total",
		Help: "Total client commands evaluated, by kind and outcome",
	}, []string{"kind", "outcome"}) // outcome: ok, refused, invalid_token

	shooterCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "outerspace_shooters_occupied",
		Help: "Currently occupied shooter slots",
	})

	targetCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "outerspace_targets",
		Help: "Current target population",
	})

	generationCounter = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "outerspace_generation",
		Help: "World mutation generation counter",
	})

	broadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outerspace_broadcasts_total",
		Help: "Total snapshots published on the publish endpoint",
	})

	subscriberDropsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "outerspace_subscriber_drops_total",
		Help: "Snapshots dropped because a subscriber's outbound buffer was full",
	})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "outerspace_websocket_connections_active",
		Help: "Currently active spectator WebSocket connections",
	})

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outerspace_connection_rejected_total",
		Help: "Spectator connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // bounded: "rate_limit", "origin", "ws_limit"
)

// Config configures the debug server.
type Config struct {
	Enabled    bool
	ListenAddr string // must be loopback; see Server.
}

// DefaultConfig binds the debug server to loopback only, matching the
// teacher's "never expose externally" stance for pprof.
func DefaultConfig() Config {
	return Config{Enabled: true, ListenAddr: "127.0.0.1:6060"}
}

// Server is the debug HTTP server: pprof, /metrics, /healthz.
type Server struct {
	httpServer *http.Server
	log        *slog.Logger
}

// NewServer builds the debug server, or returns nil if cfg.Enabled is
// false so callers can wire it unconditionally and nil-check once. It
// refuses to bind anywhere but loopback unless
// OUTERSPACE_ALLOW_DEBUG_EXTERNAL=true is set, pprof's profile and
// trace endpoints are a denial-of-service surface if exposed.
func NewServer(cfg Config, log *slog.Logger) *Server {
	if !cfg.Enabled {
		return nil
	}
	if log == nil {
		log = slog.Default()
	}
	addr := cfg.ListenAddr
	if !isLoopback(addr) && os.Getenv("OUTERSPACE_ALLOW_DEBUG_EXTERNAL") != "true" {
		log.Warn("debug server forced to loopback for safety", "requested", addr)
		addr = "127.0.0.1:6060"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return &Server{
		httpServer: &http.Server{Addr: addr, Handler: mux},
		log:        log,
	}
}

// Start runs the debug server in the background. Bind failures here are
// logged, not fatal, only the request/reply and publish transport binds
// are treated as startup-fatal.
func (s *Server) Start() {
	go func() {
		s.log.Info("debug server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Warn("debug server stopped", "error", err)
		}
	}()
}

// Stop shuts the debug server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func isLoopback(addr string) bool {
	return addr == "127.0.0.1:6060" || addr == "localhost:6060" ||
		len(addr) >= 9 && addr[:9] == "127.0.0.1"
}

// RecordCommand records one evaluated command's latency and outcome.
func RecordCommand(kind, outcome string, seconds float64) {
	commandLatency.WithLabelValues(kind).Observe(seconds)
	commandsTotal.WithLabelValues(kind, outcome).Inc()
}

// UpdateWorldGauges refreshes the population and generation gauges.
func UpdateWorldGauges(shooters, targets int, generation uint64) {
	shooterCount.Set(float64(shooters))
	targetCount.Set(float64(targets))
	generationCounter.Set(float64(generation))
}

// RecordBroadcast increments the broadcast counter.
func RecordBroadcast() { broadcastsTotal.Inc() }

// RecordSubscriberDrop increments the dropped-snapshot counter.
func RecordSubscriberDrop() { subscriberDropsTotal.Inc() }

// UpdateWSConnections updates the active spectator WebSocket gauge.
func UpdateWSConnections(count int) { wsConnectionsActive.Set(float64(count)) }

// RecordConnectionRejected increments the rejection counter. reason must
// be one of "rate_limit", "origin", "ws_limit".
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}
