package codec

import (
	"math/rand"
	"testing"
	"time"

	"outerspace/internal/rules"
	"outerspace/internal/world"
)

func TestEncodeDecodeWorldBlobRoundTrips(t *testing.T) {
	w := world.New(world.Config{BoardSize: 20, MaxTargets: 256, InitialTargets: 0}, rand.New(rand.NewSource(1)), time.Now())
	now := time.Now()
	w.Slots[0] = world.ShooterSlot{Occupied: true, Row: 5, Col: 0, Score: 3, Token: "ABCDEF", StunnedUntil: now.Add(2 * time.Second)}
	w.AddTarget(6, 6)
	w.AddTarget(7, 9)
	w.Render()

	blob := EncodeWorldBlob(w)
	wantSize := world.NumSlots*shooterRecordSize + w.MaxTargets()*targetRecordSize + w.Board.Size()*w.Board.Size() + 8
	if len(blob) != wantSize {
		t.Fatalf("blob size = %d, want %d", len(blob), wantSize)
	}

	decoded := DecodeWorldBlob(blob, w.Board.Size(), w.MaxTargets())
	if decoded.Shooters[0].Row != 5 || decoded.Shooters[0].Col != 0 || decoded.Shooters[0].Score != 3 {
		t.Fatalf("shooter 0 round-trip mismatch: %+v", decoded.Shooters[0])
	}
	if decoded.Shooters[0].Glyph != 'A' {
		t.Fatalf("expected glyph A, got %q", decoded.Shooters[0].Glyph)
	}
	if decoded.Shooters[0].StunnedUntil.UnixNano() != now.Add(2*time.Second).UnixNano() {
		t.Fatalf("stunned_until round-trip mismatch: got %v", decoded.Shooters[0].StunnedUntil)
	}
	if !decoded.Shooters[1].StunnedUntil.IsZero() {
		t.Fatalf("expected vacant slot 1 to encode a zero stunned_until")
	}

	if decoded.TargetCount != 2 {
		t.Fatalf("target count = %d, want 2", decoded.TargetCount)
	}
	foundA, foundB := false, false
	for i := 0; i < decoded.TargetCount; i++ {
		if decoded.Targets[i].Row == 6 && decoded.Targets[i].Col == 6 {
			foundA = true
		}
		if decoded.Targets[i].Row == 7 && decoded.Targets[i].Col == 9 {
			foundB = true
		}
	}
	if !foundA || !foundB {
		t.Fatalf("expected both seeded targets present, got %+v", decoded.Targets[:decoded.TargetCount])
	}
	for i := decoded.TargetCount; i < len(decoded.Targets); i++ {
		if decoded.Targets[i].Row != 0 || decoded.Targets[i].Col != 0 {
			t.Fatalf("expected padding target record to be zeroed, got %+v", decoded.Targets[i])
		}
	}

	if decoded.ShooterCount != 1 {
		t.Fatalf("shooter count = %d, want 1", decoded.ShooterCount)
	}
	if len(decoded.Board) != w.Board.Size()*w.Board.Size() {
		t.Fatalf("decoded board size mismatch: %d", len(decoded.Board))
	}
}

func TestEncodeRosterMarksOnlyOccupiedSlots(t *testing.T) {
	w := world.New(world.Config{BoardSize: 20, MaxTargets: 256, InitialTargets: 0}, rand.New(rand.NewSource(1)), time.Now())
	w.Slots[2].Occupied = true
	w.Slots[5].Occupied = true

	roster := EncodeRoster(w)
	for i, b := range roster {
		want := byte(0)
		if i == 2 || i == 5 {
			want = 1
		}
		if b != want {
			t.Errorf("roster[%d] = %d, want %d", i, b, want)
		}
	}
}

func TestApplyTrailDoesNotMutateWorldBoard(t *testing.T) {
	w := world.New(world.Config{BoardSize: 20, MaxTargets: 256, InitialTargets: 0}, rand.New(rand.NewSource(1)), time.Now())
	w.Render()

	boardCopy := append([]byte(nil), w.Board.Bytes()...)
	ApplyTrail(boardCopy, w.Board.Size(), []rules.TrailMark{{Row: 5, Col: 5, Glyph: world.CellShotH}})

	if boardCopy[5*w.Board.Size()+5] != byte(world.CellShotH) {
		t.Fatalf("expected trail mark painted onto the copy")
	}
	if w.Board.At(5, 5) != world.CellEmpty {
		t.Fatalf("expected World's own board to remain untouched by the overlay")
	}
}
