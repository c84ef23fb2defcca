// Package cipher implements monoalphabetic substitution over a fixed alphabet.
package cipher

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// DefaultSymbols is the 26-letter uppercase Latin alphabet.
const DefaultSymbols = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// ErrEmptyAlphabet is returned when an alphabet has no symbols.
var ErrEmptyAlphabet = errors.New("cipher: empty alphabet")

// Alphabet is an ordered set of distinct symbols.
type Alphabet struct {
	symbols []rune
	index   map[rune]int
}

// DefaultAlphabet returns the A-Z alphabet.
func DefaultAlphabet() Alphabet {
	a, err := NewAlphabet(DefaultSymbols)
	if err != nil {
		panic(err)
	}
	return a
}

// NewAlphabet builds an alphabet from symbols. Symbols are upper-cased.
func NewAlphabet(symbols string) (Alphabet, error) {
	runes := []rune(strings.ToUpper(symbols))
	if len(runes) == 0 {
		return Alphabet{}, ErrEmptyAlphabet
	}
	index := make(map[rune]int, len(runes))
	for i, r := range runes {
		if _, ok := index[r]; ok {
			return Alphabet{}, fmt.Errorf("cipher: duplicate alphabet symbol %q", r)
		}
		index[r] = i
	}
	return Alphabet{symbols: runes, index: index}, nil
}

// Size returns the number of symbols.
func (a Alphabet) Size() int {
	return len(a.symbols)
}

// Symbol returns the symbol at position i.
func (a Alphabet) Symbol(i int) rune {
	return a.symbols[i]
}

// Index returns the position of r, folding case.
func (a Alphabet) Index(r rune) (int, bool) {
	i, ok := a.index[unicode.ToUpper(r)]
	return i, ok
}

// String returns the symbols in order.
func (a Alphabet) String() string {
	return string(a.symbols)
}

// Normalize upper-cases text and drops every rune outside the alphabet.
func (a Alphabet) Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if i, ok := a.Index(r); ok {
			b.WriteRune(a.symbols[i])
		}
	}
	return b.String()
}

// Indices maps text to alphabet positions, skipping foreign runes.
func (a Alphabet) Indices(text string) []int {
	out := make([]int, 0, len(text))
	for _, r := range text {
		if i, ok := a.Index(r); ok {
			out = append(out, i)
		}
	}
	return out
}

// FromIndices renders positions back to symbols.
func (a Alphabet) FromIndices(idx []int) string {
	var b strings.Builder
	b.Grow(len(idx))
	for _, i := range idx {
		b.WriteRune(a.symbols[i])
	}
	return b.String()
}
