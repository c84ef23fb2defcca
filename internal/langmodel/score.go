package langmodel

// Score sums the weights of every overlapping bigram in text. Runes outside
// the alphabet are ignored. Texts shorter than two symbols score 0.
func Score(text string, w *Weights) float64 {
	return ScoreIndices(w.alphabet.Indices(text), w)
}

// ScoreIndices scores text already mapped to alphabet positions.
func ScoreIndices(idx []int, w *Weights) float64 {
	n := w.alphabet.Size()
	var sum float64
	for i := 1; i < len(idx); i++ {
		sum += w.weights[idx[i-1]*n+idx[i]]
	}
	return sum
}
