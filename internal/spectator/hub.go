// Package spectator bridges the authoritative publish stream to
// browser-based display clients over a chi-routed HTTP server and a
// gorilla/websocket hub. It never touches the World directly, it only
// ever decodes
// the same wire frames internal/transport.PublishServer sends to native
// subscribers.
package spectator

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"outerspace/internal/codec"
	"outerspace/internal/observability"
)

// MaxConnectionsTotal bounds total spectator WebSocket connections.
const MaxConnectionsTotal = 500

// MaxConnectionsPerIP bounds concurrent connections from one IP.
const MaxConnectionsPerIP = 10

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		if IsAllowedOrigin(r.Header.Get("Origin")) {
			return true
		}
		observability.RecordConnectionRejected("origin")
		return false
	},
}

type wsClient struct {
	conn *websocket.Conn
	ip   string
}

// Hub fans out decoded snapshots to every connected browser. It
// implements scheduler.Broadcaster, so it can sit directly alongside
// internal/transport.PublishServer as a second publish target.
type Hub struct {
	boardSize  int
	maxTargets int
	log        *slog.Logger

	mu      sync.RWMutex
	clients map[*websocket.Conn]*wsClient

	connLimiter *WSConnLimiter
}

// NewHub builds a spectator hub. boardSize and maxTargets must match the
// World the server is running, so it can decode the fixed-layout world
// blob frame.
func NewHub(boardSize, maxTargets int, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		boardSize:   boardSize,
		maxTargets:  maxTargets,
		log:         log,
		clients:     make(map[*websocket.Conn]*wsClient),
		connLimiter: NewWSConnLimiter(MaxConnectionsPerIP),
	}
}

// Broadcast decodes a publish-channel message (the same frames
// PublishServer.Broadcast sends) and fans a JSON event out to every
// connected browser.
func (h *Hub) Broadcast(frames ...[]byte) {
	var event map[string]any
	switch {
	case len(frames) == 1 && string(frames[0]) == codec.TopicTerminate:
		event = map[string]any{"event": "terminate"}
	case len(frames) == 3 && string(frames[0]) == codec.TopicSnapshot:
		event = h.snapshotEvent(frames[1], frames[2])
	default:
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Warn("spectator: failed to marshal event", "error", err)
		return
	}
	h.fanOut(payload)
}

func (h *Hub) snapshotEvent(roster, blob []byte) map[string]any {
	decoded := codec.DecodeWorldBlob(blob, h.boardSize, h.maxTargets)

	shooters := make([]map[string]any, 0, len(decoded.Shooters))
	for i, s := range decoded.Shooters {
		if roster[i] == 0 {
			continue
		}
		shooters = append(shooters, map[string]any{
			"glyph": string(s.Glyph),
			"row":   s.Row,
			"col":   s.Col,
			"score": s.Score,
		})
	}

	targets := make([][2]int, 0, decoded.TargetCount)
	for i := 0; i < decoded.TargetCount; i++ {
		targets = append(targets, [2]int{decoded.Targets[i].Row, decoded.Targets[i].Col})
	}

	return map[string]any{
		"event": "snapshot",
		"data": map[string]any{
			"shooters": shooters,
			"targets":  targets,
			"board":    string(decoded.Board),
		},
	}
}

func (h *Hub) fanOut(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
		}
	}
}

// ServeWS upgrades an HTTP request to a WebSocket connection and
// registers it as a spectator, subject to the total and per-IP caps.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ip := ClientIP(r)

	h.mu.RLock()
	total := len(h.clients)
	h.mu.RUnlock()
	if total >= MaxConnectionsTotal {
		observability.RecordConnectionRejected("ws_limit")
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}
	if !h.connLimiter.Allow(ip) {
		observability.RecordConnectionRejected("ws_limit")
		http.Error(w, "too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.connLimiter.Release(ip)
		return
	}

	h.mu.Lock()
	h.clients[conn] = &wsClient{conn: conn, ip: ip}
	observability.UpdateWSConnections(len(h.clients))
	h.mu.Unlock()

	go h.readLoop(conn, ip)
}

// readLoop drains (and discards) inbound frames so the connection stays
// healthy; spectators are read-only and send nothing the server acts on.
func (h *Hub) readLoop(conn *websocket.Conn, ip string) {
	defer h.remove(conn, ip)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(conn *websocket.Conn, ip string) {
	h.mu.Lock()
	delete(h.clients, conn)
	observability.UpdateWSConnections(len(h.clients))
	h.mu.Unlock()
	h.connLimiter.Release(ip)
	conn.Close()
}

// ClientCount reports currently connected spectators.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// AllowedOrigins lists the spectator bridge's default accepted origins.
var AllowedOrigins = []string{
	"http://localhost",
	"http://localhost:3000",
	"http://localhost:8080",
}

// IsAllowedOrigin reports whether origin may open a spectator WebSocket.
// Empty origins (non-browser clients, same-origin requests without the
// header) are rejected; only localhost is allowed out of the box.
func IsAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	if strings.HasPrefix(origin, "http://localhost:") {
		return true
	}
	for _, allowed := range AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}
