package cipher

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"unicode"
)

// ErrInvalidKey is returned when a mapping is not a bijection over the alphabet.
var ErrInvalidKey = errors.New("cipher: invalid key")

// Key is a permutation of the alphabet. Position i holds the ciphertext symbol
// that plaintext symbol alphabet[i] encrypts to.
type Key struct {
	alphabet Alphabet
	perm     []int
	inverse  []int
}

// NewKey parses an alphabet-ordered substitute string.
func NewKey(alphabet Alphabet, substitutes string) (Key, error) {
	runes := []rune(strings.ToUpper(substitutes))
	if len(runes) != alphabet.Size() {
		return Key{}, fmt.Errorf("%w: length %d, want %d", ErrInvalidKey, len(runes), alphabet.Size())
	}
	perm := make([]int, len(runes))
	for i, r := range runes {
		idx, ok := alphabet.Index(r)
		if !ok {
			return Key{}, fmt.Errorf("%w: symbol %q not in alphabet", ErrInvalidKey, r)
		}
		perm[i] = idx
	}
	return KeyFromIndices(alphabet, perm)
}

// KeyFromIndices builds a key from a permutation of alphabet positions.
// The slice is copied.
func KeyFromIndices(alphabet Alphabet, perm []int) (Key, error) {
	n := alphabet.Size()
	if n == 0 {
		return Key{}, ErrEmptyAlphabet
	}
	if len(perm) != n {
		return Key{}, fmt.Errorf("%w: length %d, want %d", ErrInvalidKey, len(perm), n)
	}
	inverse := make([]int, n)
	for i := range inverse {
		inverse[i] = -1
	}
	for i, p := range perm {
		if p < 0 || p >= n {
			return Key{}, fmt.Errorf("%w: position %d out of range", ErrInvalidKey, p)
		}
		if inverse[p] != -1 {
			return Key{}, fmt.Errorf("%w: duplicate symbol %q", ErrInvalidKey, alphabet.Symbol(p))
		}
		inverse[p] = i
	}
	cp := make([]int, n)
	copy(cp, perm)
	return Key{alphabet: alphabet, perm: cp, inverse: inverse}, nil
}

// IdentityKey maps every symbol to itself.
func IdentityKey(alphabet Alphabet) Key {
	perm := make([]int, alphabet.Size())
	for i := range perm {
		perm[i] = i
	}
	return Key{alphabet: alphabet, perm: perm, inverse: append([]int(nil), perm...)}
}

// RandomKey draws a uniformly random permutation from rnd.
func RandomKey(alphabet Alphabet, rnd *rand.Rand) Key {
	perm := rnd.Perm(alphabet.Size())
	inverse := make([]int, len(perm))
	for i, p := range perm {
		inverse[p] = i
	}
	return Key{alphabet: alphabet, perm: perm, inverse: inverse}
}

// Alphabet returns the key's alphabet.
func (k Key) Alphabet() Alphabet {
	return k.alphabet
}

// Size returns the alphabet size.
func (k Key) Size() int {
	return len(k.perm)
}

// IsZero reports whether k is the zero Key.
func (k Key) IsZero() bool {
	return len(k.perm) == 0
}

// Perm returns a copy of the permutation.
func (k Key) Perm() []int {
	return append([]int(nil), k.perm...)
}

// At returns the ciphertext position for plaintext position i.
func (k Key) At(i int) int {
	return k.perm[i]
}

// Swap returns a copy of k with positions i and j exchanged.
func (k Key) Swap(i, j int) Key {
	perm := append([]int(nil), k.perm...)
	inverse := append([]int(nil), k.inverse...)
	perm[i], perm[j] = perm[j], perm[i]
	inverse[perm[i]] = i
	inverse[perm[j]] = j
	return Key{alphabet: k.alphabet, perm: perm, inverse: inverse}
}

// Inverse returns the decryption mapping as a key.
func (k Key) Inverse() Key {
	return Key{
		alphabet: k.alphabet,
		perm:     append([]int(nil), k.inverse...),
		inverse:  append([]int(nil), k.perm...),
	}
}

// Valid reports whether k is a bijection.
func (k Key) Valid() bool {
	_, err := KeyFromIndices(k.alphabet, k.perm)
	return err == nil
}

// String serializes the key as alphabet-ordered substitutes.
func (k Key) String() string {
	return k.alphabet.FromIndices(k.perm)
}

// Encrypt substitutes every alphabet symbol in text. Other runes pass through.
func Encrypt(text string, key Key) string {
	return substitute(text, key.alphabet, key.perm)
}

// Decrypt reverses Encrypt. Other runes pass through.
func Decrypt(text string, key Key) string {
	return substitute(text, key.alphabet, key.inverse)
}

// DecryptIndices maps ciphertext positions to plaintext positions into dst.
func DecryptIndices(dst, src []int, key Key) []int {
	dst = dst[:0]
	for _, c := range src {
		dst = append(dst, key.inverse[c])
	}
	return dst
}

func substitute(text string, alphabet Alphabet, mapping []int) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		i, ok := alphabet.Index(r)
		if !ok {
			b.WriteRune(r)
			continue
		}
		out := alphabet.Symbol(mapping[i])
		if unicode.IsLower(r) {
			out = unicode.ToLower(out)
		}
		b.WriteRune(out)
	}
	return b.String()
}
