// Package tokens mints and validates the per-slot opaque capability strings
// admission hands out. This is anti-cheat for a game, not anti-forgery for
// security: comparison is a plain byte-for-byte string compare, not
// constant-time.
package tokens

import "math/rand"

// Length is the fixed token length.
const Length = 6

// alphabet is the 26-letter uniform alphabet tokens are drawn from.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Mint draws a fresh 6-character token uniformly from the 26-letter
// alphabet. Tokens are never reissued: a vacated slot's token is discarded,
// and the next occupant gets an independently drawn one.
func Mint(rng *rand.Rand) string {
	buf := make([]byte, Length)
	for i := range buf {
		buf[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return string(buf)
}

// Valid reports whether candidate matches the slot's stored token exactly.
// An empty stored token (vacant slot) never matches anything, including an
// empty candidate.
func Valid(stored, candidate string) bool {
	return stored != "" && stored == candidate
}
