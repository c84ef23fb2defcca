package stats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/verte-zerg/subcrack/internal/model"
)

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestBudgetToReach(t *testing.T) {
	points := []model.ConvergencePoint{
		{Budget: 1000, MeanAccuracy: 50},
		{Budget: 5000, MeanAccuracy: 92},
		{Budget: 20000, NoData: true},
	}
	if b, ok := BudgetToReach(points, 90); !ok || b != 5000 {
		t.Fatalf("expected 5000, got %d %v", b, ok)
	}
	if _, ok := BudgetToReach(points, 99); ok {
		t.Fatalf("expected no budget")
	}
}

func TestRenderSeries(t *testing.T) {
	key := 70.0
	points := []model.ConvergencePoint{
		{Budget: 1000, Trials: 3, Completed: 3, MeanAccuracy: 40, MeanKeyAccuracy: &key},
		{Budget: 5000, Trials: 3, Completed: 3, MeanAccuracy: 91, MeanKeyAccuracy: &key},
		{Budget: 20000, Trials: 3, Completed: 0, NoData: true},
	}
	var buf bytes.Buffer
	if err := RenderSeries(&buf, "annealing", points, PlotOptions{Width: 20, Height: 4}); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"annealing", "Budget", "91.00%", "n/a", "Partial", "Budget to reach 90%: 5000", "Shared scale.", "Legend:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderSeriesEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSeries(&buf, "", nil, PlotOptions{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "No convergence points") {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestShortID(t *testing.T) {
	if got := ShortID("1b4e28ba-2fa1-11d2-883f-0016d3cca427"); got != "1b4e28ba" {
		t.Fatalf("unexpected short id %q", got)
	}
	if got := ShortID("plain"); got != "plain" {
		t.Fatalf("unexpected short id %q", got)
	}
}
