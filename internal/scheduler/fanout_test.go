package scheduler

import "testing"

type recordingBroadcaster struct {
	calls [][][]byte
}

func (r *recordingBroadcaster) Broadcast(frames ...[]byte) {
	r.calls = append(r.calls, frames)
}

func TestFanOutForwardsToEverySink(t *testing.T) {
	a := &recordingBroadcaster{}
	b := &recordingBroadcaster{}
	fo := FanOut{a, b}

	fo.Broadcast([]byte("topic"), []byte("payload"))

	if len(a.calls) != 1 || len(b.calls) != 1 {
		t.Fatalf("expected both sinks to receive one broadcast, got a=%d b=%d", len(a.calls), len(b.calls))
	}
}

func TestFanOutWithNoSinksDoesNothing(t *testing.T) {
	var fo FanOut
	fo.Broadcast([]byte("topic"))
}
