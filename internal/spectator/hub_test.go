package spectator

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"outerspace/internal/codec"
	"outerspace/internal/world"
)

func newTestWorldFrames(t *testing.T) (topic, roster, blob []byte) {
	t.Helper()
	w := world.New(world.Config{BoardSize: 20, MaxTargets: 16, InitialTargets: 3}, rand.New(rand.NewSource(1)), time.Now())
	w.Render()
	return []byte(codec.TopicSnapshot), codec.EncodeRoster(w), codec.EncodeWorldBlob(w)
}

func TestHubBroadcastDecodesSnapshotToJSON(t *testing.T) {
	hub := NewHub(20, 16, nil)
	conn, cleanup := dialTestHub(t, hub)
	defer cleanup()

	topic, roster, blob := newTestWorldFrames(t)
	hub.Broadcast(topic, roster, blob)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}

	var msg map[string]any
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg["event"] != "snapshot" {
		t.Fatalf("event = %v, want snapshot", msg["event"])
	}
	data, ok := msg["data"].(map[string]any)
	if !ok {
		t.Fatalf("data field missing or wrong type: %+v", msg)
	}
	if _, ok := data["targets"]; !ok {
		t.Fatalf("expected targets field in snapshot data")
	}
}

func TestHubBroadcastDecodesTerminateToJSON(t *testing.T) {
	hub := NewHub(20, 16, nil)
	conn, cleanup := dialTestHub(t, hub)
	defer cleanup()

	hub.Broadcast([]byte(codec.TopicTerminate))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read message: %v", err)
	}
	var msg map[string]any
	if err := json.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if msg["event"] != "terminate" {
		t.Fatalf("event = %v, want terminate", msg["event"])
	}
}

func TestServeWSRejectsDisallowedOrigin(t *testing.T) {
	hub := NewHub(20, 16, nil)
	ts := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	dialer := websocket.Dialer{}
	headers := make(map[string][]string)
	headers["Origin"] = []string{"https://evil.example"}

	_, resp, err := dialer.Dial(wsURL, headers)
	if err == nil {
		t.Fatalf("expected dial to be rejected for disallowed origin")
	}
	if resp == nil || resp.StatusCode != 403 {
		status := -1
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("expected 403 from disallowed origin, got %d", status)
	}
}

func dialTestHub(t *testing.T, hub *Hub) (*websocket.Conn, func()) {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(hub.ServeWS))

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")
	headers := make(map[string][]string)
	headers["Origin"] = []string{"http://localhost"}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, headers)
	if err != nil {
		ts.Close()
		t.Fatalf("dial: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	return conn, func() {
		conn.Close()
		ts.Close()
	}
}
