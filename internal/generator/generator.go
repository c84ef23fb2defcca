// Package generator builds seeded random keys and plaintext samples for test cases.
package generator

import (
	"math/rand"
	"strings"

	"github.com/verte-zerg/subcrack/internal/cipher"
)

// defaultSeed replaces a zero seed so zero-valued options stay reproducible.
const defaultSeed int64 = 1

// NewRand returns a deterministic source. Seed 0 maps to defaultSeed.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = defaultSeed
	}
	return rand.New(rand.NewSource(seed))
}

// DeriveSeed mixes a parent seed and a stream id into an independent seed
// (SplitMix64 finalizer).
func DeriveSeed(parent int64, stream uint64) int64 {
	x := uint64(parent) ^ (stream + 0x9e3779b97f4a7c15)
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	x ^= x >> 31
	return int64(x)
}

// Generator produces random keys and plaintext samples.
type Generator struct {
	rnd *rand.Rand
}

// New returns a Generator seeded with seed.
func New(seed int64) *Generator {
	return &Generator{rnd: NewRand(seed)}
}

// Key draws a uniformly random key over alphabet.
func (g *Generator) Key(alphabet cipher.Alphabet) cipher.Key {
	return cipher.RandomKey(alphabet, g.rnd)
}

// Sample returns a run of whole words from text holding at least minLetters
// alphabet symbols. It returns the whole text if it is too short.
func (g *Generator) Sample(text string, alphabet cipher.Alphabet, minLetters int) string {
	words := strings.Fields(text)
	if len(words) == 0 || minLetters <= 0 {
		return ""
	}
	if len(alphabet.Normalize(text)) <= minLetters {
		return strings.Join(words, " ")
	}
	start := g.rnd.Intn(len(words))
	out := make([]string, 0, 16)
	letters := 0
	for i := 0; i < len(words) && letters < minLetters; i++ {
		word := words[(start+i)%len(words)]
		out = append(out, word)
		letters += len(alphabet.Normalize(word))
	}
	return strings.Join(out, " ")
}

// Case is a generated plaintext/key/ciphertext triple.
type Case struct {
	Plaintext  string
	Key        cipher.Key
	Ciphertext string
}

// Case samples a plaintext and encrypts it under a fresh random key.
func (g *Generator) Case(text string, alphabet cipher.Alphabet, minLetters int) Case {
	plain := g.Sample(text, alphabet, minLetters)
	key := g.Key(alphabet)
	return Case{Plaintext: plain, Key: key, Ciphertext: cipher.Encrypt(plain, key)}
}
