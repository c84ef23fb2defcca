package stats

import (
	"sort"

	"github.com/verte-zerg/subcrack/internal/bench"
)

// RankSummaries orders summaries by mean text accuracy, then speed.
// Algorithms without successful runs sort last.
func RankSummaries(summaries []bench.Summary) []bench.Summary {
	out := make([]bench.Summary, len(summaries))
	copy(out, summaries)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.NoData != b.NoData {
			return !a.NoData
		}
		if a.MeanTextAccuracy != b.MeanTextAccuracy {
			return a.MeanTextAccuracy > b.MeanTextAccuracy
		}
		if a.MeanElapsed != b.MeanElapsed {
			return a.MeanElapsed < b.MeanElapsed
		}
		return a.Algorithm < b.Algorithm
	})
	return out
}
