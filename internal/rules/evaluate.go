// Package rules is the game's only mutator: Evaluate takes a decoded
// command and a World and applies the game's admission, movement, shooting
// and disconnection semantics to it. Every exported function here is a
// pure function of its arguments plus the World it is handed, callers
// (internal/scheduler) are responsible for holding the World's lock for
// the duration of the call.
package rules

import (
	"fmt"
	"math/rand"
	"time"

	"outerspace/internal/tokens"
	"outerspace/internal/world"
)

// Evaluate applies cmd to w at instant now and reports the result. rng
// supplies the randomness Join needs to place a new shooter; it is unused
// by every other command.
func Evaluate(w *world.World, cmd Command, now time.Time, rng *rand.Rand, cfg Config) Result {
	switch cmd.Kind {
	case KindJoin:
		return evalJoin(w, now, rng)
	case KindMove:
		return evalMove(w, cmd, now)
	case KindShoot:
		return evalShoot(w, cmd, now, rng, cfg)
	case KindDisconnect:
		return evalDisconnect(w, cmd)
	default:
		return Result{Reply: ReplyInvalidMessage, Slot: -1}
	}
}

func evalJoin(w *world.World, now time.Time, rng *rand.Rand) Result {
	idx := w.VacantSlot()
	if idx < 0 {
		return Result{Reply: ReplyGameFull, Slot: -1}
	}

	row, col := w.RandomFreeLanePosition(idx, rng)
	token := tokens.Mint(rng)
	w.Slots[idx] = world.ShooterSlot{
		Occupied: true,
		Row:      row,
		Col:      col,
		Token:    token,
	}
	w.Touch()

	return Result{
		Reply:     fmt.Sprintf("Welcome! You are player %c %s", world.Glyph(idx), token),
		Broadcast: true,
		Slot:      idx,
	}
}

func evalMove(w *world.World, cmd Command, now time.Time) Result {
	idx := world.SlotIndex(cmd.Glyph)
	if idx < 0 || !tokens.Valid(w.Slots[idx].Token, cmd.Token) {
		return Result{Reply: ReplyInvalidToken, Slot: -1}
	}
	s := &w.Slots[idx]

	if s.Stunned(now) {
		return Result{Reply: ReplyMoveStunned, Slot: idx}
	}

	lane := w.Lane(idx)
	newRow, newCol := step(s.Row, s.Col, cmd.Direction)
	if !lane.InLane(newRow, newCol) ||
		w.OccupiedByShooter(newRow, newCol, idx) ||
		w.OccupiedByTarget(newRow, newCol) {
		return Result{Reply: ReplyMoveRefused, Slot: idx}
	}

	s.Row, s.Col = newRow, newCol
	w.Touch()
	return Result{Reply: ReplyMoveProcessed, Broadcast: true, Slot: idx}
}

// step computes the single-cell position one cardinal move away from
// (row, col). A direction that does not belong to the caller's lane axis
// simply produces a cell outside the lane, which InLane then refuses , 
// there is no special case for "wrong axis" beyond that.
func step(row, col int, dir world.Direction) (int, int) {
	switch dir {
	case world.DirUp:
		return row - 1, col
	case world.DirDown:
		return row + 1, col
	case world.DirLeft:
		return row, col - 1
	case world.DirRight:
		return row, col + 1
	}
	return row, col
}

func evalShoot(w *world.World, cmd Command, now time.Time, rng *rand.Rand, cfg Config) Result {
	idx := world.SlotIndex(cmd.Glyph)
	if idx < 0 || !tokens.Valid(w.Slots[idx].Token, cmd.Token) {
		return Result{Reply: ReplyInvalidToken, Slot: -1}
	}
	s := &w.Slots[idx]

	if s.Stunned(now) {
		return Result{Reply: ReplyShootStunned, Slot: idx}
	}
	if s.OnCooldown(now) {
		return Result{Reply: ReplyShootCooldown, Slot: idx}
	}
	s.CooldownUntil = now.Add(cfg.CooldownDuration)

	lane := w.Lane(idx)
	dRow, dCol := axisDelta(lane.Axis)
	trailGlyph := world.CellShotV
	if lane.Axis == world.AxisColInc || lane.Axis == world.AxisColDec {
		trailGlyph = world.CellShotH
	}

	var trail []TrailMark
	scored := 0
	depleted := false
	row, col := s.Row+dRow, s.Col+dCol
	for w.Board.InBounds(row, col) {
		if ti := w.TargetAt(row, col); ti >= 0 {
			w.RemoveTarget(ti)
			w.LastKillTime = now
			s.Score++
			scored++
			depleted = len(w.Targets) == 0
			break
		}
		if hit := w.ShooterAt(row, col); hit >= 0 {
			w.Slots[hit].StunnedUntil = now.Add(cfg.StunDuration)
			if cfg.BeamStopsOnShooter {
				break
			}
			row, col = row+dRow, col+dCol
			continue
		}
		trail = append(trail, TrailMark{Row: row, Col: col, Glyph: trailGlyph})
		row, col = row+dRow, col+dCol
	}
	w.Touch()

	return Result{
		Reply:      fmt.Sprintf("This play: %d points | Current score: %d", scored, s.Score),
		Broadcast:  true,
		Slot:       idx,
		ScoreDelta: scored,
		Trail:      trail,
		Depleted:   depleted,
	}
}

func axisDelta(axis world.Axis) (int, int) {
	switch axis {
	case world.AxisColInc:
		return 0, 1
	case world.AxisColDec:
		return 0, -1
	case world.AxisRowInc:
		return 1, 0
	case world.AxisRowDec:
		return -1, 0
	}
	return 0, 0
}

func evalDisconnect(w *world.World, cmd Command) Result {
	idx := world.SlotIndex(cmd.Glyph)
	if idx < 0 || !tokens.Valid(w.Slots[idx].Token, cmd.Token) {
		return Result{Reply: ReplyInvalidToken, Slot: -1}
	}

	w.Slots[idx] = world.ShooterSlot{}
	w.Touch()
	return Result{Reply: ReplyDisconnected, Broadcast: true, Slot: idx}
}
