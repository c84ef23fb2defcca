package stats

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/verte-zerg/subcrack/internal/model"
	"github.com/verte-zerg/subcrack/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "subcrack.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	ctx := context.Background()

	points := []model.ConvergencePoint{
		{Budget: 1000, Trials: 4, Completed: 4, MeanAccuracy: 40},
		{Budget: 5000, Trials: 4, Completed: 4, MeanAccuracy: 95},
	}
	convID, err := st.InsertConvergence(ctx, model.RunRecord{Algorithm: "annealing"}, points)
	if err != nil {
		t.Fatalf("insert convergence: %v", err)
	}
	acc := 88.0
	benchID, err := st.InsertBench(ctx, model.RunRecord{Algorithm: "annealing,hillclimb"}, []model.BenchRecord{
		{CaseIdx: 0, Algorithm: "hillclimb", Status: "ok", TextAccuracy: &acc},
		{CaseIdx: 0, Algorithm: "annealing", Status: "timeout"},
	})
	if err != nil {
		t.Fatalf("insert bench: %v", err)
	}

	runs, err := st.ListRuns(ctx, model.RunFilter{})
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	byID := map[string]model.RunRecord{}
	for _, r := range runs {
		byID[r.ID] = r
	}

	conv, err := BuildReport(ctx, st, byID[convID])
	if err != nil {
		t.Fatalf("build convergence report: %v", err)
	}
	if len(conv.Points) != 2 || conv.Bench != nil {
		t.Fatalf("unexpected convergence report: %+v", conv)
	}

	br, err := BuildReport(ctx, st, byID[benchID])
	if err != nil {
		t.Fatalf("build bench report: %v", err)
	}
	names := br.BenchAlgorithms()
	if len(names) != 2 || names[0] != "annealing" || names[1] != "hillclimb" {
		t.Fatalf("unexpected algorithms: %v", names)
	}

	var buf bytes.Buffer
	if err := RenderReport(&buf, br, PlotOptions{Width: 20, Height: 4}); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "88.00%") || !strings.Contains(out, "Timeout") {
		t.Fatalf("expected bench table in output:\n%s", out)
	}
	// hillclimb has data, so it ranks above annealing.
	hc, an := strings.Index(out, "\nhillclimb "), strings.Index(out, "\nannealing ")
	if hc < 0 || an < 0 || hc > an {
		t.Fatalf("expected hillclimb ranked first:\n%s", out)
	}
}

func TestRenderReportAnalysis(t *testing.T) {
	var buf bytes.Buffer
	r := RunReport{Run: model.RunRecord{ID: "abc", Kind: model.KindAnalyze, Algorithm: "annealing", Key: "KEY", Plaintext: "HELLO THERE", Score: -3}}
	if err := RenderReport(&buf, r, PlotOptions{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "Key: KEY") || !strings.Contains(buf.String(), "HELLO THERE") {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}
