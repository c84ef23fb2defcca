// Package evaluate compares recovered plaintext and keys against ground truth.
package evaluate

import (
	"github.com/verte-zerg/subcrack/internal/cipher"
)

// Metrics holds accuracy percentages in [0, 100].
type Metrics struct {
	// TextAccuracy is the share of matching positions over the compared prefix.
	TextAccuracy float64
	// KeyAccuracy is nil when no true key was supplied.
	KeyAccuracy *float64
	// Compared is the number of positions compared.
	Compared int
}

// Evaluate scores decrypted against reference over the default alphabet.
// See EvaluateWith.
func Evaluate(decrypted, reference string, recovered, truth *cipher.Key) Metrics {
	alphabet := cipher.DefaultAlphabet()
	if truth != nil && !truth.IsZero() {
		alphabet = truth.Alphabet()
	} else if recovered != nil && !recovered.IsZero() {
		alphabet = recovered.Alphabet()
	}
	return EvaluateWith(alphabet, decrypted, reference, recovered, truth)
}

// EvaluateWith normalizes both texts to the alphabet and compares them up to
// the shorter length. Substitution never changes length, so a mismatch only
// comes from differently normalized inputs.
func EvaluateWith(alphabet cipher.Alphabet, decrypted, reference string, recovered, truth *cipher.Key) Metrics {
	got := []rune(alphabet.Normalize(decrypted))
	want := []rune(alphabet.Normalize(reference))
	n := len(got)
	if len(want) < n {
		n = len(want)
	}
	m := Metrics{Compared: n}
	if n > 0 {
		match := 0
		for i := 0; i < n; i++ {
			if got[i] == want[i] {
				match++
			}
		}
		m.TextAccuracy = percent(match, n)
	}
	if acc, ok := KeyAccuracy(recovered, truth); ok {
		m.KeyAccuracy = &acc
	}
	return m
}

// KeyAccuracy returns the share of alphabet positions where the keys agree.
// It reports false when either key is missing or the alphabets differ in size.
func KeyAccuracy(recovered, truth *cipher.Key) (float64, bool) {
	if recovered == nil || truth == nil || recovered.IsZero() || truth.IsZero() {
		return 0, false
	}
	if recovered.Size() != truth.Size() {
		return 0, false
	}
	match := 0
	for i := 0; i < truth.Size(); i++ {
		if recovered.At(i) == truth.At(i) {
			match++
		}
	}
	return percent(match, truth.Size()), true
}

func percent(part, whole int) float64 {
	return float64(part) / float64(whole) * 100
}
