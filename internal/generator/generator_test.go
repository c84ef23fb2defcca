package generator

import (
	"strings"
	"testing"

	"github.com/verte-zerg/subcrack/internal/cipher"
)

const text = "the quick brown fox jumps over the lazy dog and keeps running far away"

func TestNewRandZeroSeedIsStable(t *testing.T) {
	a := NewRand(0).Int63()
	b := NewRand(defaultSeed).Int63()
	if a != b {
		t.Fatalf("expected seed 0 to map to default seed")
	}
}

func TestDeriveSeedIndependentStreams(t *testing.T) {
	seen := map[int64]struct{}{}
	for s := uint64(0); s < 1000; s++ {
		v := DeriveSeed(42, s)
		if _, ok := seen[v]; ok {
			t.Fatalf("collision at stream %d", s)
		}
		seen[v] = struct{}{}
	}
	if DeriveSeed(42, 3) != DeriveSeed(42, 3) {
		t.Fatalf("expected derivation to be deterministic")
	}
}

func TestSampleHasEnoughLetters(t *testing.T) {
	alpha := cipher.DefaultAlphabet()
	g := New(9)
	for i := 0; i < 50; i++ {
		s := g.Sample(text, alpha, 20)
		if len(alpha.Normalize(s)) < 20 {
			t.Fatalf("sample too short: %q", s)
		}
		for _, w := range strings.Fields(s) {
			if !strings.Contains(text, w) {
				t.Fatalf("sample word %q not from text", w)
			}
		}
	}
	if got := g.Sample("tiny", alpha, 20); got != "tiny" {
		t.Fatalf("expected whole text, got %q", got)
	}
}

func TestCaseRoundTrips(t *testing.T) {
	alpha := cipher.DefaultAlphabet()
	c := New(4).Case(text, alpha, 30)
	if !c.Key.Valid() {
		t.Fatalf("generated key is not a permutation")
	}
	if cipher.Decrypt(c.Ciphertext, c.Key) != c.Plaintext {
		t.Fatalf("case does not decrypt to its plaintext")
	}
}
