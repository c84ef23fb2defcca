package stats

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/verte-zerg/subcrack/internal/bench"
	"github.com/verte-zerg/subcrack/internal/model"
	"github.com/verte-zerg/subcrack/internal/store"
)

// RunReport bundles a stored run with its child rows.
type RunReport struct {
	Run    model.RunRecord
	Points []model.ConvergencePoint
	Bench  []model.BenchRecord
}

// BuildReport loads the rows that belong to run.
func BuildReport(ctx context.Context, st *store.Store, run model.RunRecord) (RunReport, error) {
	report := RunReport{Run: run}
	switch run.Kind {
	case model.KindConverge:
		points, err := st.GetConvergence(ctx, run.ID)
		if err != nil && !errors.Is(err, store.ErrNoSeries) {
			return RunReport{}, err
		}
		report.Points = points
	case model.KindBench:
		results, err := st.ListBenchResults(ctx, run.ID)
		if err != nil {
			return RunReport{}, err
		}
		report.Bench = results
	}
	return report, nil
}

// BenchAlgorithms lists algorithm names in order of first appearance.
func (r RunReport) BenchAlgorithms() []string {
	seen := map[string]bool{}
	var names []string
	for _, rec := range r.Bench {
		if seen[rec.Algorithm] {
			continue
		}
		seen[rec.Algorithm] = true
		names = append(names, rec.Algorithm)
	}
	return names
}

// RenderReport prints a run header followed by its kind-specific body.
func RenderReport(w io.Writer, r RunReport, opts PlotOptions) error {
	run := r.Run
	if _, err := fmt.Fprintf(w, "Run %s (%s, %s)\n", run.ID, run.Kind, run.Algorithm); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Created: %s\n", run.CreatedAt.Local().Format("2006-01-02 15:04:05")); err != nil {
		return err
	}
	if run.Params != "" {
		if _, err := fmt.Fprintf(w, "Params: %s\n", run.Params); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, ""); err != nil {
		return err
	}
	switch run.Kind {
	case model.KindConverge:
		return RenderSeries(w, "", r.Points, opts)
	case model.KindBench:
		return RenderBench(w, bench.Summarize(r.BenchAlgorithms(), r.Bench))
	default:
		if _, err := fmt.Fprintf(w, "Key: %s\nScore: %.2f\n\n", run.Key, run.Score); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w, run.Plaintext)
		return err
	}
}
