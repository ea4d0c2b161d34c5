package codec

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"

	"github.com/pkg/errors"

	"outerspace/internal/world"
)

// ScoreRecord is one slot's archived score, encoded only while the slot
// is occupied.
type ScoreRecord struct {
	Label string
	Score int
}

// EncodeScoreArchive builds the self-describing, length-delimited score
// archive push: one gob-encoded ScoreRecord per occupied slot, each
// prefixed with its own 4-byte little-endian length, the same
// length-prefix-then-payload framing the publish channel's multipart
// envelope uses for each frame. Vacant slots are skipped, so every
// record carries a non-empty label.
func EncodeScoreArchive(w *world.World) ([]byte, error) {
	var out bytes.Buffer
	for i := range w.Slots {
		s := &w.Slots[i]
		if !s.Occupied {
			continue
		}
		rec := ScoreRecord{Label: string(world.Glyph(i)), Score: s.Score}

		var body bytes.Buffer
		if err := gob.NewEncoder(&body).Encode(rec); err != nil {
			return nil, errors.Wrap(err, "codec: encode score record")
		}

		var lenPrefix [4]byte
		binary.LittleEndian.PutUint32(lenPrefix[:], uint32(body.Len()))
		out.Write(lenPrefix[:])
		out.Write(body.Bytes())
	}
	return out.Bytes(), nil
}

// DecodeScoreArchive parses a buffer produced by EncodeScoreArchive back
// into its records, in wire order.
func DecodeScoreArchive(buf []byte) ([]ScoreRecord, error) {
	var records []ScoreRecord
	for len(buf) > 0 {
		if len(buf) < 4 {
			return nil, errors.New("codec: truncated score archive length prefix")
		}
		n := binary.LittleEndian.Uint32(buf[:4])
		buf = buf[4:]
		if uint32(len(buf)) < n {
			return nil, errors.New("codec: truncated score archive record")
		}

		var rec ScoreRecord
		if err := gob.NewDecoder(bytes.NewReader(buf[:n])).Decode(&rec); err != nil {
			return nil, errors.Wrap(err, "codec: decode score record")
		}
		records = append(records, rec)
		buf = buf[n:]
	}
	return records, nil
}
