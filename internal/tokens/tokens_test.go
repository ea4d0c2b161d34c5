package tokens

import (
	"math/rand"
	"testing"
)

// TestMintLengthAndAlphabet checks every minted token is six uppercase
// letters.
func TestMintLengthAndAlphabet(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		tok := Mint(rng)
		if len(tok) != Length {
			t.Fatalf("token %q has length %d, want %d", tok, len(tok), Length)
		}
		for _, c := range tok {
			if c < 'A' || c > 'Z' {
				t.Fatalf("token %q contains non-alphabet rune %q", tok, c)
			}
		}
	}
}

// TestValidRejectsMismatchAndEmpty checks token comparison semantics.
func TestValidRejectsMismatchAndEmpty(t *testing.T) {
	if !Valid("ABCDEF", "ABCDEF") {
		t.Error("expected exact match to validate")
	}
	if Valid("ABCDEF", "ABCDEG") {
		t.Error("expected mismatch to fail")
	}
	if Valid("", "") {
		t.Error("expected empty stored token (vacant slot) to never validate")
	}
	if Valid("", "ABCDEF") {
		t.Error("expected empty stored token to reject any candidate")
	}
}
