// Package transport implements the game's two TCP endpoints:
// a line-oriented request/reply server for client commands, and a
// length-framed publish server for world snapshots and the terminate
// topic. Command decoding lives here too, since it is purely a function
// of wire bytes, not of game rules.
package transport

import (
	"strings"

	"outerspace/internal/rules"
	"outerspace/internal/world"
)

// DecodeCommand parses one UTF-8, space-separated request line into a
// rules.Command. Anything that does not match the request vocabulary
// exactly decodes to KindUnknown, which Evaluate turns into "Invalid
// message" with no state change, the decoder never rejects a line
// outright, it just downgrades it.
func DecodeCommand(line string) rules.Command {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return rules.Command{Kind: rules.KindUnknown}
	}

	switch fields[0] {
	case "Astronaut_connect":
		if len(fields) != 1 {
			return rules.Command{Kind: rules.KindUnknown}
		}
		return rules.Command{Kind: rules.KindJoin}

	case "Astronaut_movement":
		if len(fields) != 4 || len(fields[1]) != 1 || len(fields[2]) != 1 {
			return rules.Command{Kind: rules.KindUnknown}
		}
		dir, ok := world.ParseDirection(fields[2][0])
		if !ok {
			return rules.Command{Kind: rules.KindUnknown}
		}
		return rules.Command{Kind: rules.KindMove, Glyph: fields[1][0], Direction: dir, Token: fields[3]}

	case "Astronaut_zap":
		if len(fields) != 3 || len(fields[1]) != 1 {
			return rules.Command{Kind: rules.KindUnknown}
		}
		return rules.Command{Kind: rules.KindShoot, Glyph: fields[1][0], Token: fields[2]}

	case "Astronaut_disconnect":
		if len(fields) != 3 || len(fields[1]) != 1 {
			return rules.Command{Kind: rules.KindUnknown}
		}
		return rules.Command{Kind: rules.KindDisconnect, Glyph: fields[1][0], Token: fields[2]}

	default:
		return rules.Command{Kind: rules.KindUnknown}
	}
}
