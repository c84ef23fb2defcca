// Package stats renders convergence series, benchmark summaries and run
// history as aligned tables and braille plots.
package stats

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/verte-zerg/subcrack/internal/bench"
	"github.com/verte-zerg/subcrack/internal/model"
)

const (
	sparkChars   = " .:-=+*#%@"
	noData       = "n/a"
	reachPercent = 90.0
)

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSeries prints a convergence table followed by an accuracy plot.
func RenderSeries(w io.Writer, title string, points []model.ConvergencePoint, opts PlotOptions) error {
	if len(points) == 0 {
		_, err := fmt.Fprintln(w, "No convergence points found.")
		return err
	}
	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}

	headers := []string{"Budget", "Done", "Mean Score", "Std Score", "Accuracy", "Std Acc", "Key Acc"}
	rows := make([][]string, 0, len(points))
	partial := false
	var accs, keyAccs []float64
	var firstBudget, lastBudget int
	for _, p := range points {
		if p.Completed < p.Trials {
			partial = true
		}
		done := fmt.Sprintf("%d/%d", p.Completed, p.Trials)
		if p.NoData {
			rows = append(rows, []string{strconv.Itoa(p.Budget), done, noData, noData, noData, noData, noData})
			continue
		}
		if len(accs) == 0 {
			firstBudget = p.Budget
		}
		lastBudget = p.Budget
		accs = append(accs, p.MeanAccuracy)
		keyCell := noData
		if p.MeanKeyAccuracy != nil {
			keyCell = formatPercent(*p.MeanKeyAccuracy)
			keyAccs = append(keyAccs, *p.MeanKeyAccuracy)
		}
		rows = append(rows, []string{
			strconv.Itoa(p.Budget),
			done,
			fmt.Sprintf("%.2f", p.MeanScore),
			fmt.Sprintf("%.2f", p.StdScore),
			formatPercent(p.MeanAccuracy),
			fmt.Sprintf("%.2f", p.StdAccuracy),
			keyCell,
		})
	}
	rightAlign := map[int]bool{0: true, 1: true, 2: true, 3: true, 4: true, 5: true, 6: true}
	if err := WriteTable(w, headers, rows, rightAlign); err != nil {
		return err
	}
	if partial {
		if _, err := fmt.Fprintln(w, "Partial: some trials did not complete."); err != nil {
			return err
		}
	}
	if budget, ok := BudgetToReach(points, reachPercent); ok {
		if _, err := fmt.Fprintf(w, "Budget to reach %.0f%%: %d\n", reachPercent, budget); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	if len(accs) == 0 {
		return nil
	}

	series := []Series{{Name: "Text accuracy", Values: accs}}
	if len(keyAccs) == len(accs) {
		series = append(series, Series{Name: "Key accuracy", Values: keyAccs})
	}
	opts.Shared = true
	opts.Min, opts.Max = 0, 100
	opts.XFirst = strconv.Itoa(firstBudget)
	opts.XLast = strconv.Itoa(lastBudget)
	return Plot(w, "Accuracy by iteration budget", series, opts)
}

// RenderBench prints benchmark summaries, best algorithm first.
func RenderBench(w io.Writer, summaries []bench.Summary) error {
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(w, "No benchmark results found.")
		return err
	}
	headers := []string{"Algorithm", "Runs", "OK", "Timeout", "Failed", "Text Acc", "Key Acc", "Mean Time"}
	rows := make([][]string, 0, len(summaries))
	for _, s := range RankSummaries(summaries) {
		text, key := noData, noData
		if !s.NoData {
			text = formatPercent(s.MeanTextAccuracy)
			if s.HasKeyAccuracy {
				key = formatPercent(s.MeanKeyAccuracy)
			}
		}
		rows = append(rows, []string{
			s.Algorithm,
			strconv.Itoa(s.Runs),
			strconv.Itoa(s.Succeeded),
			strconv.Itoa(s.Timeouts),
			strconv.Itoa(s.Failures),
			text,
			key,
			s.MeanElapsed.Round(time.Millisecond).String(),
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true, 7: true}
	if err := WriteTable(w, headers, rows, rightAlign); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderRuns prints one line per stored run.
func RenderRuns(w io.Writer, runs []model.RunRecord) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs found.")
		return err
	}
	headers := []string{"ID", "Kind", "Algorithm", "Created", "Score", "Elapsed", "Status"}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			ShortID(r.ID),
			string(r.Kind),
			r.Algorithm,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			formatScore(r),
			(time.Duration(r.ElapsedMs) * time.Millisecond).String(),
			r.Status,
		})
	}
	return WriteTable(w, headers, rows, map[int]bool{4: true, 5: true})
}

// ShortID returns the first block of a run id.
func ShortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

func formatScore(r model.RunRecord) string {
	if r.Kind != model.KindAnalyze {
		return "-"
	}
	return fmt.Sprintf("%.2f", r.Score)
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}
