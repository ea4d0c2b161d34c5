package spectator

import (
	"context"
	"testing"
	"time"
)

func TestServerReturnsNilWhenDisabled(t *testing.T) {
	if NewServer(Config{Enabled: false}, nil) != nil {
		t.Fatalf("expected nil server when disabled")
	}
}

func TestServerStartStopLifecycle(t *testing.T) {
	srv := NewServer(Config{
		Enabled:    true,
		ListenAddr: "127.0.0.1:0",
		BoardSize:  20,
		MaxTargets: 16,
	}, nil)
	if srv == nil {
		t.Fatalf("expected non-nil server")
	}

	srv.Start()
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
