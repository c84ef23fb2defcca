package stats

import (
	"bytes"
	"strings"
	"testing"
)

func TestPlotPerSeriesScale(t *testing.T) {
	var buf bytes.Buffer
	err := Plot(&buf, "Test Plot", []Series{
		{Name: "A", Values: []float64{1, 2, 3, 2, 1}},
		{Name: "B", Values: []float64{1, 1, 2, 3, 4}},
	}, PlotOptions{Width: 5, Height: 4})
	if err != nil {
		t.Fatalf("plot failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Test Plot") {
		t.Fatalf("expected title in output")
	}
	if !strings.Contains(out, "Scaled per series") {
		t.Fatalf("expected scale note in output")
	}
	if !strings.Contains(out, "Legend:") {
		t.Fatalf("expected legend in output")
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	expectedMin := 1 + 1 + 2 + 4 + 1
	if len(lines) < expectedMin {
		t.Fatalf("expected at least %d lines of output, got %d", expectedMin, len(lines))
	}
}

func TestPlotSharedScale(t *testing.T) {
	var buf bytes.Buffer
	err := Plot(&buf, "", []Series{{Name: "Acc", Values: []float64{10, 50, 90}}}, PlotOptions{
		Width: 12, Height: 5, Shared: true, Min: 0, Max: 100, XFirst: "1000", XLast: "20000",
	})
	if err != nil {
		t.Fatalf("Plot failed: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "min=") {
		t.Fatalf("shared plots should not print per-series ranges")
	}
	lines := strings.Split(out, "\n")
	if !strings.HasPrefix(lines[1], "100 │ ") {
		t.Fatalf("expected top axis label 100, got %q", lines[1])
	}
	if !strings.Contains(out, "1000") || !strings.Contains(out, "20000") {
		t.Fatalf("expected x labels in output")
	}
}
