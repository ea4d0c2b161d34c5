package world

import (
	"math/rand"
	"time"
)

// World is the board grid plus the eight shooter slots, the target
// population, the growth-wave clock and a mutation counter. It holds no
// lock of its own, internal/scheduler serializes all access to a World
// through a single mutex.
type World struct {
	boardSize int
	maxTarget int
	lanes     [NumSlots]Lane

	Board        *Board
	Slots        [NumSlots]ShooterSlot
	Targets      []Target
	LastKillTime time.Time
	Generation   uint64

	nextTargetID uint64
}

// Config bounds a World's geometry and population caps.
type Config struct {
	BoardSize      int
	MaxTargets     int
	InitialTargets int
}

// DefaultConfig returns the game's fixed geometry and population caps.
func DefaultConfig() Config {
	return Config{
		BoardSize:      DefaultBoardSize,
		MaxTargets:     MaxTargets,
		InitialTargets: DefaultInitialTargets,
	}
}

// New builds a World at world-init time: an empty board, all slots vacant,
// and InitialTargets targets scattered uniformly at random over the inner
// square, no two sharing a cell.
func New(cfg Config, rng *rand.Rand, now time.Time) *World {
	w := &World{
		boardSize:    cfg.BoardSize,
		maxTarget:    cfg.MaxTargets,
		lanes:        Lanes(cfg.BoardSize),
		Board:        NewBoard(cfg.BoardSize),
		LastKillTime: now,
	}
	for i := 0; i < cfg.InitialTargets; i++ {
		row, col := w.randomFreeInnerCell(rng)
		w.Targets = append(w.Targets, Target{ID: w.nextTargetID, Row: row, Col: col})
		w.nextTargetID++
	}
	w.Render()
	return w
}

// BoardSize returns the board side length this World was built with.
func (w *World) BoardSize() int { return w.boardSize }

// MaxTargets returns the target population cap this World was built with.
func (w *World) MaxTargets() int { return w.maxTarget }

// Lane returns the home lane for slot index i.
func (w *World) Lane(i int) Lane { return w.lanes[i] }

// InnerBounds returns the inclusive row/col range targets may occupy.
func (w *World) InnerBounds() (min, max int) { return 2, w.boardSize - 3 }

// Touch increments the generation counter. Every rule that changes
// observable state must call this exactly once.
func (w *World) Touch() { w.Generation++ }

// OccupiedByShooter reports whether (row, col) is held by an occupied slot
// other than except (pass -1 to check all slots).
func (w *World) OccupiedByShooter(row, col, except int) bool {
	for i := range w.Slots {
		if i == except {
			continue
		}
		s := &w.Slots[i]
		if s.Occupied && s.Row == row && s.Col == col {
			return true
		}
	}
	return false
}

// TargetAt returns the index of the target at (row, col), or -1.
func (w *World) TargetAt(row, col int) int {
	for i := range w.Targets {
		if w.Targets[i].Row == row && w.Targets[i].Col == col {
			return i
		}
	}
	return -1
}

// OccupiedByTarget reports whether (row, col) holds a target.
func (w *World) OccupiedByTarget(row, col int) bool {
	return w.TargetAt(row, col) >= 0
}

// ShooterAt returns the slot index whose position is (row, col), or -1.
func (w *World) ShooterAt(row, col int) int {
	for i := range w.Slots {
		s := &w.Slots[i]
		if s.Occupied && s.Row == row && s.Col == col {
			return i
		}
	}
	return -1
}

// RemoveTarget deletes the target at index i (order not preserved).
func (w *World) RemoveTarget(i int) {
	last := len(w.Targets) - 1
	w.Targets[i] = w.Targets[last]
	w.Targets = w.Targets[:last]
}

// AddTarget places a new target at (row, col) and returns it.
func (w *World) AddTarget(row, col int) Target {
	t := Target{ID: w.nextTargetID, Row: row, Col: col}
	w.nextTargetID++
	w.Targets = append(w.Targets, t)
	return t
}

// VacantSlot returns the lowest-indexed unoccupied slot, or -1 if all eight
// are occupied.
func (w *World) VacantSlot() int {
	for i := range w.Slots {
		if !w.Slots[i].Occupied {
			return i
		}
	}
	return -1
}

// randomFreeInnerCell picks a uniformly random (row, col) inside the inner
// square that is not already occupied by a shooter or a target.
func (w *World) randomFreeInnerCell(rng *rand.Rand) (int, int) {
	min, max := w.InnerBounds()
	span := max - min + 1
	for {
		row := min + rng.Intn(span)
		col := min + rng.Intn(span)
		if w.OccupiedByShooter(row, col, -1) || w.OccupiedByTarget(row, col) {
			continue
		}
		return row, col
	}
}

// RandomFreeLanePosition picks a uniformly random position inside slot i's
// home lane that is not already occupied by another shooter or a target.
func (w *World) RandomFreeLanePosition(i int, rng *rand.Rand) (int, int) {
	lane := w.lanes[i]
	span := lane.RangeMax - lane.RangeMin + 1
	for {
		movable := lane.RangeMin + rng.Intn(span)
		var row, col int
		if lane.FixedRow {
			row, col = lane.Fixed, movable
		} else {
			row, col = movable, lane.Fixed
		}
		if w.OccupiedByShooter(row, col, i) || w.OccupiedByTarget(row, col) {
			continue
		}
		return row, col
	}
}

// RandomFreeInnerCell exposes randomFreeInnerCell for the growth wave.
func (w *World) RandomFreeInnerCell(rng *rand.Rand) (int, int) {
	return w.randomFreeInnerCell(rng)
}

// Render recomputes the board grid from the current slots and targets. It
// never carries over transient shot glyphs from a previous Shoot
// evaluation, those are overlaid only on the single snapshot emitted
// immediately after the shot, by the caller, never persisted here.
func (w *World) Render() {
	w.Board.Clear()
	for _, t := range w.Targets {
		w.Board.Set(t.Row, t.Col, CellTarget)
	}
	for i := range w.Slots {
		s := &w.Slots[i]
		if s.Occupied {
			w.Board.Set(s.Row, s.Col, Cell(Glyph(i)))
		}
	}
}
