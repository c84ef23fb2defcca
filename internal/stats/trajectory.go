package stats

import (
	"fmt"
	"io"
	"math"
)

const sparkWidth = 60

// Trajectory collects the per-proposal scores of one analysis.
type Trajectory struct {
	Current  []float64
	Best     []float64
	Accepted int
}

// Record appends one proposal.
func (t *Trajectory) Record(current, best float64, accepted bool) {
	t.Current = append(t.Current, current)
	t.Best = append(t.Best, best)
	if accepted {
		t.Accepted++
	}
}

// Len returns the number of recorded proposals.
func (t *Trajectory) Len() int {
	return len(t.Current)
}

// RenderTrajectory prints a sparkline of the best score followed by the
// smoothed current score and the best score on a shared scale. A window <= 0
// smooths over one percent of the run.
func RenderTrajectory(w io.Writer, t Trajectory, window int, opts PlotOptions) error {
	n := t.Len()
	if n == 0 {
		_, err := fmt.Fprintln(w, "No trajectory recorded.")
		return err
	}
	if window <= 0 {
		window = n / 100
	}
	if window < 1 {
		window = 1
	}
	if _, err := fmt.Fprintf(w, "Search trajectory: %d proposals, %.1f%% accepted, window %d\n",
		n, float64(t.Accepted)/float64(n)*100, window); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Best: %s\n", Sparkline(resampleSeries(t.Best, sparkWidth))); err != nil {
		return err
	}

	smoothed := MovingAverage(t.Current, window)
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, vals := range [][]float64{smoothed, t.Best} {
		for _, v := range vals {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	opts.Shared = true
	opts.Min, opts.Max = lo, hi
	opts.XFirst = "1"
	opts.XLast = fmt.Sprintf("%d", n)
	return Plot(w, "Score by proposal", []Series{
		{Name: "Current (smoothed)", Values: smoothed},
		{Name: "Best in restart", Values: t.Best},
	}, opts)
}
