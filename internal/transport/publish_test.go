package transport

import (
	"bytes"
	"net"
	"testing"
	"time"

	"outerspace/internal/codec"
)

func TestEncodeDecodeMultipartRoundTrips(t *testing.T) {
	frames := [][]byte{[]byte("Outer_space_update"), {1, 0, 1, 0, 0, 0, 0, 0}, []byte("blob")}
	encoded := EncodeMultipart(frames...)

	decoded, err := DecodeMultipart(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != len(frames) {
		t.Fatalf("frame count = %d, want %d", len(decoded), len(frames))
	}
	for i, f := range frames {
		if !bytes.Equal(decoded[i], f) {
			t.Errorf("frame %d = %q, want %q", i, decoded[i], f)
		}
	}
}

func TestPublishServerBroadcastsToSubscribers(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := NewPublishServer(ln)
	go srv.Serve()
	defer srv.Close()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// give the accept loop a moment to register the connection
	deadline := time.Now().Add(2 * time.Second)
	for srv.SubscriberCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if srv.SubscriberCount() != 1 {
		t.Fatalf("expected 1 subscriber registered, got %d", srv.SubscriberCount())
	}

	srv.Broadcast([]byte(codec.TopicTerminate))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 64)
	n, err := conn.Read(buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	frames, err := DecodeMultipart(buf[:n])
	if err != nil {
		t.Fatalf("decode received message: %v", err)
	}
	if len(frames) != 1 || string(frames[0]) != codec.TopicTerminate {
		t.Fatalf("expected single terminate frame, got %+v", frames)
	}
}
