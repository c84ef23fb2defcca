package stats

import (
	"bytes"
	"strings"
	"testing"
)

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{0, 9}); got != " @" {
		t.Fatalf("unexpected sparkline %q", got)
	}
	if got := Sparkline([]float64{3, 3, 3}); len(got) != 3 || strings.Trim(got, got[:1]) != "" {
		t.Fatalf("expected flat sparkline, got %q", got)
	}
	if got := Sparkline(nil); got != "" {
		t.Fatalf("expected empty sparkline, got %q", got)
	}
}

func TestTrajectoryRecord(t *testing.T) {
	var tr Trajectory
	tr.Record(-50, -50, true)
	tr.Record(-60, -50, false)
	tr.Record(-40, -40, true)
	if tr.Len() != 3 || tr.Accepted != 2 {
		t.Fatalf("unexpected trajectory %+v", tr)
	}
	if tr.Best[2] != -40 {
		t.Fatalf("expected best -40, got %v", tr.Best[2])
	}
}

func TestRenderTrajectory(t *testing.T) {
	var tr Trajectory
	for i := 0; i < 500; i++ {
		cur := -100 + float64(i)/10
		tr.Record(cur, cur, i%2 == 0)
	}
	var buf bytes.Buffer
	if err := RenderTrajectory(&buf, tr, 0, PlotOptions{Width: 30, Height: 4}); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"500 proposals", "50.0% accepted", "window 5", "Best: ", "Score by proposal", "Shared scale.", "Legend:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "Best: ") {
			if n := len(strings.TrimPrefix(line, "Best: ")); n != sparkWidth {
				t.Fatalf("expected %d sparkline cells, got %d", sparkWidth, n)
			}
		}
	}
}

func TestRenderTrajectoryEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderTrajectory(&buf, Trajectory{}, 0, PlotOptions{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "No trajectory") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
