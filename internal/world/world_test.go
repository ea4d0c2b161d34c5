package world

import (
	"math/rand"
	"testing"
	"time"
)

// TestNewWorldPlacesInitialTargets checks that New scatters exactly
// InitialTargets targets inside the inner square with no collisions.
func TestNewWorldPlacesInitialTargets(t *testing.T) {
	cfg := DefaultConfig()
	w := New(cfg, rand.New(rand.NewSource(1)), time.Now())

	if len(w.Targets) != cfg.InitialTargets {
		t.Fatalf("expected %d targets, got %d", cfg.InitialTargets, len(w.Targets))
	}

	seen := make(map[[2]int]bool)
	min, max := w.InnerBounds()
	for _, target := range w.Targets {
		if target.Row < min || target.Row > max || target.Col < min || target.Col > max {
			t.Fatalf("target out of inner bounds: %+v", target)
		}
		key := [2]int{target.Row, target.Col}
		if seen[key] {
			t.Fatalf("two targets share cell %v", key)
		}
		seen[key] = true
	}
}

// TestLanesMatchSpecTable verifies the generalized Lanes() formula
// reproduces the fixed 20x20 lane table.
func TestLanesMatchSpecTable(t *testing.T) {
	lanes := Lanes(DefaultBoardSize)

	want := []struct {
		fixedRow bool
		fixed    int
		min, max int
		axis     Axis
	}{
		{false, 0, 2, 17, AxisColInc},
		{false, 1, 2, 17, AxisColInc},
		{false, 18, 2, 17, AxisColDec},
		{false, 19, 2, 17, AxisColDec},
		{true, 0, 2, 17, AxisRowInc},
		{true, 1, 2, 17, AxisRowInc},
		{true, 18, 2, 17, AxisRowDec},
		{true, 19, 2, 17, AxisRowDec},
	}

	for i, w := range want {
		l := lanes[i]
		if l.FixedRow != w.fixedRow || l.Fixed != w.fixed || l.RangeMin != w.min || l.RangeMax != w.max || l.Axis != w.axis {
			t.Errorf("slot %d: got %+v, want %+v", i, l, w)
		}
	}
}

// TestVacantSlotLowestIndex checks admission always picks the
// lowest-indexed vacant slot.
func TestVacantSlotLowestIndex(t *testing.T) {
	w := New(DefaultConfig(), rand.New(rand.NewSource(1)), time.Now())
	w.Slots[0].Occupied = true
	w.Slots[2].Occupied = true

	if got := w.VacantSlot(); got != 1 {
		t.Fatalf("expected slot 1, got %d", got)
	}
}

// TestVacantSlotFull checks VacantSlot returns -1 once all eight are taken.
func TestVacantSlotFull(t *testing.T) {
	w := New(DefaultConfig(), rand.New(rand.NewSource(1)), time.Now())
	for i := range w.Slots {
		w.Slots[i].Occupied = true
	}
	if got := w.VacantSlot(); got != -1 {
		t.Fatalf("expected -1, got %d", got)
	}
}

// TestRenderReflectsSlotsAndTargets checks Render derives the board purely
// from current slots/targets, with no leftover transient state.
func TestRenderReflectsSlotsAndTargets(t *testing.T) {
	w := New(Config{BoardSize: 20, MaxTargets: 256, InitialTargets: 0}, rand.New(rand.NewSource(1)), time.Now())
	w.Slots[0] = ShooterSlot{Occupied: true, Row: 5, Col: 0}
	w.AddTarget(5, 5)
	w.Render()

	if w.Board.At(5, 0) != Cell('A') {
		t.Errorf("expected glyph A at shooter cell, got %q", w.Board.At(5, 0))
	}
	if w.Board.At(5, 5) != CellTarget {
		t.Errorf("expected target glyph, got %q", w.Board.At(5, 5))
	}
	if w.Board.At(0, 0) != CellEmpty {
		t.Errorf("expected empty cell, got %q", w.Board.At(0, 0))
	}
}
