package scheduler

import (
	"math/rand"
	"testing"
	"time"

	"outerspace/internal/rules"
	"outerspace/internal/world"
)

type fakeBroadcaster struct {
	messages [][][]byte
}

func (f *fakeBroadcaster) Broadcast(frames ...[]byte) {
	cp := make([][]byte, len(frames))
	copy(cp, frames)
	f.messages = append(f.messages, cp)
}

func newTestScheduler() (*Scheduler, *fakeBroadcaster) {
	w := world.New(world.Config{BoardSize: 20, MaxTargets: 256, InitialTargets: 0}, rand.New(rand.NewSource(1)), time.Now())
	pub := &fakeBroadcaster{}
	s := New(w, rules.DefaultConfig(), DefaultConfig(), rand.New(rand.NewSource(2)), pub, nil, nil)
	return s, pub
}

func TestSubmitJoinBroadcastsSnapshot(t *testing.T) {
	s, pub := newTestScheduler()

	reply, after := s.Submit(rules.Command{Kind: rules.KindJoin})
	if reply == "" {
		t.Fatalf("expected non-empty reply")
	}
	after()
	if len(pub.messages) != 1 {
		t.Fatalf("expected one broadcast, got %d", len(pub.messages))
	}
	if string(pub.messages[0][0]) != "Outer_space_update" {
		t.Fatalf("expected snapshot topic frame, got %q", pub.messages[0][0])
	}
}

func TestSubmitUnknownDoesNotBroadcast(t *testing.T) {
	s, pub := newTestScheduler()

	_, after := s.Submit(rules.Command{Kind: rules.KindUnknown})
	after()
	if len(pub.messages) != 0 {
		t.Fatalf("expected no broadcast for an unknown command, got %d", len(pub.messages))
	}
}

func TestDepletionTriggersShutdown(t *testing.T) {
	s, pub := newTestScheduler()
	s.world.Slots[0] = world.ShooterSlot{Occupied: true, Row: 5, Col: 0, Token: "AAAAAA"}
	s.world.AddTarget(5, 3)

	done := make(chan int, 1)
	go func() { done <- s.Run(nil) }()

	_, after := s.Submit(rules.Command{Kind: rules.KindShoot, Glyph: 'A', Token: "AAAAAA"})
	after()

	select {
	case code := <-done:
		if code != 0 {
			t.Fatalf("expected exit code 0, got %d", code)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("scheduler did not shut down after target depletion")
	}

	found := false
	for _, msg := range pub.messages {
		if len(msg) == 1 && string(msg[0]) == "Server_terminate" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a Server_terminate broadcast, got %+v", pub.messages)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	s, _ := newTestScheduler()
	s.Shutdown()
	s.Shutdown() // must not panic on double-close
	select {
	case <-s.Terminated():
	default:
		t.Fatalf("expected terminated channel closed")
	}
}
