package world

import "time"

// NumSlots is the fixed number of shooter slots (glyphs 'A'..'H').
const NumSlots = 8

// Glyph returns the single-letter identifier for slot index i (0 -> 'A').
func Glyph(i int) byte { return byte('A' + i) }

// SlotIndex returns the slot index for a glyph, or -1 if it is not one of
// A..H.
func SlotIndex(glyph byte) int {
	if glyph < 'A' || glyph > 'H' {
		return -1
	}
	return int(glyph - 'A')
}

// Direction is a cardinal movement direction.
type Direction byte

const (
	DirUp    Direction = 'U'
	DirDown  Direction = 'D'
	DirLeft  Direction = 'L'
	DirRight Direction = 'R'
)

// ParseDirection validates a single-character direction code.
func ParseDirection(b byte) (Direction, bool) {
	switch Direction(b) {
	case DirUp, DirDown, DirLeft, DirRight:
		return Direction(b), true
	}
	return 0, false
}

// Axis is the direction a slot's beam travels when it fires.
type Axis byte

const (
	AxisColInc Axis = iota // fires along increasing column
	AxisColDec              // fires along decreasing column
	AxisRowInc              // fires along increasing row
	AxisRowDec              // fires along decreasing row
)

// Lane describes one slot's home lane and firing axis.
type Lane struct {
	FixedRow  bool // true if the lane is a fixed row (slots 4-7), false if a fixed column (slots 0-3)
	Fixed     int  // the fixed row or column value
	RangeMin  int  // inclusive bound of the movable coordinate
	RangeMax  int  // inclusive bound of the movable coordinate
	Axis      Axis
}

// Lanes computes the eight home lanes for a board of the given size,
// generalizing the fixed 20x20 lane table: the inner square is always
// rows/cols [2, size-3], and the perimeter lanes sit at columns/rows
// {0, 1, size-2, size-1}.
func Lanes(boardSize int) [NumSlots]Lane {
	innerMin, innerMax := 2, boardSize-3
	return [NumSlots]Lane{
		0: {FixedRow: false, Fixed: 0, RangeMin: innerMin, RangeMax: innerMax, Axis: AxisColInc},
		1: {FixedRow: false, Fixed: 1, RangeMin: innerMin, RangeMax: innerMax, Axis: AxisColInc},
		2: {FixedRow: false, Fixed: boardSize - 2, RangeMin: innerMin, RangeMax: innerMax, Axis: AxisColDec},
		3: {FixedRow: false, Fixed: boardSize - 1, RangeMin: innerMin, RangeMax: innerMax, Axis: AxisColDec},
		4: {FixedRow: true, Fixed: 0, RangeMin: innerMin, RangeMax: innerMax, Axis: AxisRowInc},
		5: {FixedRow: true, Fixed: 1, RangeMin: innerMin, RangeMax: innerMax, Axis: AxisRowInc},
		6: {FixedRow: true, Fixed: boardSize - 2, RangeMin: innerMin, RangeMax: innerMax, Axis: AxisRowDec},
		7: {FixedRow: true, Fixed: boardSize - 1, RangeMin: innerMin, RangeMax: innerMax, Axis: AxisRowDec},
	}
}

// InLane reports whether (row, col) sits inside the lane's home strip.
func (l Lane) InLane(row, col int) bool {
	if l.FixedRow {
		return row == l.Fixed && col >= l.RangeMin && col <= l.RangeMax
	}
	return col == l.Fixed && row >= l.RangeMin && row <= l.RangeMax
}

// ShooterSlot is one of the eight fixed player positions.
type ShooterSlot struct {
	Occupied      bool
	Row, Col      int
	Score         int
	StunnedUntil  time.Time
	CooldownUntil time.Time
	Token         string
}

// Stunned reports whether the slot's last action at instant now would be
// refused for being stunned.
func (s *ShooterSlot) Stunned(now time.Time) bool {
	return s.Occupied && now.Before(s.StunnedUntil)
}

// OnCooldown reports whether a shot at instant now would be refused.
func (s *ShooterSlot) OnCooldown(now time.Time) bool {
	return s.Occupied && now.Before(s.CooldownUntil)
}

// clear resets a slot to its vacant zero value. The token is discarded, not
// reissued.
func (s *ShooterSlot) clear() {
	*s = ShooterSlot{}
}
