// Package langmodel builds smoothed bigram log-weights and scores candidate text.
//
// Weights are computed once from a reference corpus with additive smoothing:
//
//	w(a,b) = log((count(a,b) + alpha) / (total + alpha*|A|²))
//
// A corpus with fewer than two symbols yields a degenerate table in which every
// bigram has the same weight. This is not an error.
package langmodel

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/verte-zerg/subcrack/internal/cipher"
)

const (
	// DefaultAlpha is the default additive smoothing constant.
	DefaultAlpha = 0.01
	// MinAlpha is the floor applied to a zero alpha so weights stay finite.
	MinAlpha = 1e-12
)

// ErrInvalidAlpha is returned for negative or NaN smoothing constants.
var ErrInvalidAlpha = errors.New("langmodel: alpha must be a non-negative number")

// Weights is an immutable |A|×|A| table of bigram log-weights.
type Weights struct {
	alphabet   cipher.Alphabet
	counts     []int
	weights    []float64
	total      int
	alpha      float64
	degenerate bool
}

// LoadWeights counts overlapping bigrams in corpus and smooths them with alpha.
// The corpus is normalized to the alphabet first.
func LoadWeights(corpus string, alpha float64, alphabet cipher.Alphabet) (*Weights, error) {
	n := alphabet.Size()
	if n == 0 {
		return nil, cipher.ErrEmptyAlphabet
	}
	counts := make([]int, n*n)
	idx := alphabet.Indices(corpus)
	total := 0
	for i := 1; i < len(idx); i++ {
		counts[idx[i-1]*n+idx[i]]++
		total++
	}
	return fromCounts(alphabet, counts, total, alpha)
}

func fromCounts(alphabet cipher.Alphabet, counts []int, total int, alpha float64) (*Weights, error) {
	if math.IsNaN(alpha) || alpha < 0 {
		return nil, ErrInvalidAlpha
	}
	if alpha < MinAlpha {
		alpha = MinAlpha
	}
	n := alphabet.Size()
	cells := float64(n * n)
	w := &Weights{
		alphabet:   alphabet,
		counts:     counts,
		weights:    make([]float64, n*n),
		total:      total,
		alpha:      alpha,
		degenerate: total == 0,
	}
	den := float64(total) + alpha*cells
	for i, c := range counts {
		w.weights[i] = math.Log((float64(c) + alpha) / den)
	}
	return w, nil
}

// Alphabet returns the alphabet the table was built over.
func (w *Weights) Alphabet() cipher.Alphabet {
	return w.alphabet
}

// At returns the weight of bigram (a, b) given as alphabet positions.
func (w *Weights) At(a, b int) float64 {
	return w.weights[a*w.alphabet.Size()+b]
}

// Count returns the raw corpus count of bigram (a, b).
func (w *Weights) Count(a, b int) int {
	return w.counts[a*w.alphabet.Size()+b]
}

// Total returns the number of bigrams counted in the corpus.
func (w *Weights) Total() int {
	return w.total
}

// Alpha returns the effective smoothing constant.
func (w *Weights) Alpha() float64 {
	return w.alpha
}

// Degenerate reports whether the corpus contributed no bigrams.
func (w *Weights) Degenerate() bool {
	return w.degenerate
}

// WriteTo writes the raw counts as "AB<TAB>count" lines, skipping zeros.
func (w *Weights) WriteTo(out io.Writer) (int64, error) {
	bw := bufio.NewWriter(out)
	var written int64
	n := w.alphabet.Size()
	for a := 0; a < n; a++ {
		for b := 0; b < n; b++ {
			c := w.counts[a*n+b]
			if c == 0 {
				continue
			}
			k, err := fmt.Fprintf(bw, "%c%c\t%d\n", w.alphabet.Symbol(a), w.alphabet.Symbol(b), c)
			written += int64(k)
			if err != nil {
				return written, err
			}
		}
	}
	return written, bw.Flush()
}

// ReadWeights parses a table written by WriteTo and smooths it with alpha.
func ReadWeights(r io.Reader, alpha float64, alphabet cipher.Alphabet) (*Weights, error) {
	n := alphabet.Size()
	if n == 0 {
		return nil, cipher.ErrEmptyAlphabet
	}
	counts := make([]int, n*n)
	total := 0
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected bigram and count", line)
		}
		pair := []rune(fields[0])
		if len(pair) != 2 {
			return nil, fmt.Errorf("line %d: bigram %q must have two symbols", line, fields[0])
		}
		a, okA := alphabet.Index(pair[0])
		b, okB := alphabet.Index(pair[1])
		if !okA || !okB {
			return nil, fmt.Errorf("line %d: bigram %q outside alphabet", line, fields[0])
		}
		c, err := strconv.Atoi(fields[1])
		if err != nil || c < 0 {
			return nil, fmt.Errorf("line %d: invalid count %q", line, fields[1])
		}
		counts[a*n+b] += c
		total += c
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return fromCounts(alphabet, counts, total, alpha)
}
