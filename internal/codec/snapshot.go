// Package codec implements the fixed on-wire layout for the world
// snapshot the wire protocol defines, plus the length-delimited score-archive
// encoding for the optional archival sink. Everything here is pure
// encode/decode: no sockets, no locking.
package codec

import (
	"encoding/binary"
	"time"

	"outerspace/internal/rules"
	"outerspace/internal/world"
)

// Topic names carried in the first frame of a publish message.
const (
	TopicSnapshot  = "Outer_space_update"
	TopicTerminate = "Server_terminate"
)

const (
	shooterRecordSize = 1 + 4 + 4 + 4 + 8 + 8 // glyph, row, col, score, stunned_until, cooldown_until
	targetRecordSize  = 4 + 4                 // row, col
)

// BoardOffset returns the byte offset of the board grid within a blob
// EncodeWorldBlob produced for w, the point after the fixed shooter and
// target records, where the row-major board bytes begin.
func BoardOffset(w *world.World) int {
	return world.NumSlots*shooterRecordSize + w.MaxTargets()*targetRecordSize
}

// EncodeRoster builds the 8-byte occupancy bitmap: byte i is 1 iff slot i
// is occupied.
func EncodeRoster(w *world.World) []byte {
	roster := make([]byte, world.NumSlots)
	for i := range w.Slots {
		if w.Slots[i].Occupied {
			roster[i] = 1
		}
	}
	return roster
}

// EncodeWorldBlob lays out the fixed world blob: 8 shooter records, then
// MaxTargets() target records (real targets first, the remainder zeroed),
// then the row-major board grid, then the shooter and target counts.
//
// Shot overlay cells are never part of the persisted board, callers that
// want the transient trail visible in the snapshot that follows a Shoot
// paint the trail marks onto the board bytes of the returned blob (see
// BoardOffset and ApplyTrail); EncodeWorldBlob itself only ever sees
// w.Board as Render() left it.
func EncodeWorldBlob(w *world.World) []byte {
	boardBytes := w.Board.Size() * w.Board.Size()
	size := world.NumSlots*shooterRecordSize + w.MaxTargets()*targetRecordSize + boardBytes + 4 + 4
	buf := make([]byte, size)
	off := 0

	for i := range w.Slots {
		s := &w.Slots[i]
		buf[off] = world.Glyph(i)
		off++
		binary.LittleEndian.PutUint32(buf[off:], uint32(int32(s.Row)))
		off += 4
		binary.LittleEndian.PutUint32(buf[off:], uint32(int32(s.Col)))
		off += 4
		binary.LittleEndian.PutUint32(buf[off:], uint32(int32(s.Score)))
		off += 4
		binary.LittleEndian.PutUint64(buf[off:], uint64(encodeTime(s.StunnedUntil)))
		off += 8
		binary.LittleEndian.PutUint64(buf[off:], uint64(encodeTime(s.CooldownUntil)))
		off += 8
	}

	for i := 0; i < w.MaxTargets(); i++ {
		var row, col int
		if i < len(w.Targets) {
			row, col = w.Targets[i].Row, w.Targets[i].Col
		}
		binary.LittleEndian.PutUint32(buf[off:], uint32(int32(row)))
		off += 4
		binary.LittleEndian.PutUint32(buf[off:], uint32(int32(col)))
		off += 4
	}

	copy(buf[off:], w.Board.Bytes())
	off += boardBytes

	shooterCount := 0
	for i := range w.Slots {
		if w.Slots[i].Occupied {
			shooterCount++
		}
	}
	binary.LittleEndian.PutUint32(buf[off:], uint32(shooterCount))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(w.Targets)))
	off += 4

	return buf
}

// ApplyTrail paints Shoot's transient overlay cells onto a board byte
// slice previously produced by (*world.Board).Bytes, for exactly one
// snapshot. The caller is responsible for building this from a fresh
// Render() and discarding it after use, World itself never retains the
// overlay.
func ApplyTrail(boardBytes []byte, boardSize int, trail []rules.TrailMark) {
	for _, m := range trail {
		idx := m.Row*boardSize + m.Col
		if idx >= 0 && idx < len(boardBytes) {
			boardBytes[idx] = byte(m.Glyph)
		}
	}
}

// ShooterRecord is a decoded view of one of the blob's fixed shooter
// slots.
type ShooterRecord struct {
	Glyph         byte
	Row, Col      int
	Score         int
	StunnedUntil  time.Time
	CooldownUntil time.Time
}

// TargetRecord is a decoded view of one of the blob's fixed target slots.
type TargetRecord struct {
	Row, Col int
}

// WorldBlob is the decoded form of a world blob frame, for display clients
// and for round-trip tests.
type WorldBlob struct {
	Shooters     [world.NumSlots]ShooterRecord
	Targets      []TargetRecord // length MaxTargets, trailing entries may be (0,0) padding
	Board        []byte
	ShooterCount int
	TargetCount  int
}

// DecodeWorldBlob parses a buffer produced by EncodeWorldBlob. maxTargets
// and boardSize must match the values the encoder used.
func DecodeWorldBlob(buf []byte, boardSize, maxTargets int) WorldBlob {
	var blob WorldBlob
	off := 0

	for i := 0; i < world.NumSlots; i++ {
		r := ShooterRecord{Glyph: buf[off]}
		off++
		r.Row = int(int32(binary.LittleEndian.Uint32(buf[off:])))
		off += 4
		r.Col = int(int32(binary.LittleEndian.Uint32(buf[off:])))
		off += 4
		r.Score = int(int32(binary.LittleEndian.Uint32(buf[off:])))
		off += 4
		r.StunnedUntil = decodeTime(int64(binary.LittleEndian.Uint64(buf[off:])))
		off += 8
		r.CooldownUntil = decodeTime(int64(binary.LittleEndian.Uint64(buf[off:])))
		off += 8
		blob.Shooters[i] = r
	}

	blob.Targets = make([]TargetRecord, maxTargets)
	for i := 0; i < maxTargets; i++ {
		row := int(int32(binary.LittleEndian.Uint32(buf[off:])))
		off += 4
		col := int(int32(binary.LittleEndian.Uint32(buf[off:])))
		off += 4
		blob.Targets[i] = TargetRecord{Row: row, Col: col}
	}

	boardBytes := boardSize * boardSize
	blob.Board = append([]byte(nil), buf[off:off+boardBytes]...)
	off += boardBytes

	blob.ShooterCount = int(binary.LittleEndian.Uint32(buf[off:]))
	off += 4
	blob.TargetCount = int(binary.LittleEndian.Uint32(buf[off:]))

	return blob
}

func encodeTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func decodeTime(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(0, v)
}
