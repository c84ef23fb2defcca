package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/subcrack/internal/model"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "subcrack.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})
	return s
}

func TestInsertAndListRuns(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	first, err := s.InsertAnalysis(ctx, model.RunRecord{
		Algorithm: "annealing",
		CreatedAt: base,
		Params:    "iterations=20000",
		Key:       "QWERTYUIOPASDFGHJKLZXCVBNM",
		Plaintext: "HELLO",
		Score:     -12.5,
		ElapsedMs: 42,
	})
	if err != nil {
		t.Fatalf("insert analysis: %v", err)
	}
	if first == "" {
		t.Fatalf("expected generated id")
	}
	if _, err := s.InsertConvergence(ctx, model.RunRecord{Algorithm: "hillclimb", CreatedAt: base.Add(time.Hour)}, nil); err != nil {
		t.Fatalf("insert convergence: %v", err)
	}

	runs, err := s.ListRuns(ctx, model.RunFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].Kind != model.KindConverge || runs[1].Kind != model.KindAnalyze {
		t.Fatalf("expected newest first, got %s then %s", runs[0].Kind, runs[1].Kind)
	}
	got := runs[1]
	if got.ID != first || got.Key != "QWERTYUIOPASDFGHJKLZXCVBNM" || got.Score != -12.5 || got.Status != "ok" {
		t.Fatalf("unexpected run: %+v", got)
	}
	if !got.CreatedAt.Equal(base) {
		t.Fatalf("created_at mismatch: %v", got.CreatedAt)
	}

	runs, err = s.ListRuns(ctx, model.RunFilter{Kind: model.KindAnalyze})
	if err != nil || len(runs) != 1 {
		t.Fatalf("kind filter: %v %d", err, len(runs))
	}
	since := base.Add(time.Minute)
	runs, err = s.ListRuns(ctx, model.RunFilter{Since: &since})
	if err != nil || len(runs) != 1 || runs[0].Kind != model.KindConverge {
		t.Fatalf("since filter: %v %+v", err, runs)
	}
	runs, err = s.ListRuns(ctx, model.RunFilter{Last: 1})
	if err != nil || len(runs) != 1 {
		t.Fatalf("last filter: %v %d", err, len(runs))
	}
}

func TestConvergenceRoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	keyAcc := 61.5
	points := []model.ConvergencePoint{
		{Budget: 5000, Trials: 10, Completed: 10, MeanScore: -300, StdScore: 4, MeanAccuracy: 70, StdAccuracy: 10, MeanKeyAccuracy: &keyAcc},
		{Budget: 1000, Trials: 10, Completed: 0, NoData: true},
	}
	id, err := s.InsertConvergence(ctx, model.RunRecord{Algorithm: "annealing"}, points)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := s.GetConvergence(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 2 || got[0].Budget != 1000 || got[1].Budget != 5000 {
		t.Fatalf("expected points ordered by budget, got %+v", got)
	}
	if !got[0].NoData || got[0].MeanKeyAccuracy != nil {
		t.Fatalf("expected no-data point, got %+v", got[0])
	}
	if got[1].MeanKeyAccuracy == nil || *got[1].MeanKeyAccuracy != keyAcc || got[1].StdAccuracy != 10 {
		t.Fatalf("unexpected point: %+v", got[1])
	}

	if _, err := s.GetConvergence(ctx, "missing"); !errors.Is(err, ErrNoSeries) {
		t.Fatalf("expected ErrNoSeries, got %v", err)
	}
}

func TestBenchRoundTrip(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	text := 92.0
	results := []model.BenchRecord{
		{CaseIdx: 0, Algorithm: "annealing", Status: "ok", TextAccuracy: &text, ElapsedMs: 10},
		{CaseIdx: 0, Algorithm: "slow", Status: "timeout", ElapsedMs: 1000, ExitCode: -1, Stderr: "killed"},
	}
	id, err := s.InsertBench(ctx, model.RunRecord{Algorithm: "annealing,slow"}, results)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	got, err := s.ListBenchResults(ctx, id)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].TextAccuracy == nil || *got[0].TextAccuracy != text || got[0].KeyAccuracy != nil {
		t.Fatalf("unexpected ok result: %+v", got[0])
	}
	if got[1].Status != "timeout" || got[1].TextAccuracy != nil || got[1].ExitCode != -1 || got[1].Stderr != "killed" {
		t.Fatalf("unexpected timeout result: %+v", got[1])
	}
}

func TestInsertRollsBackOnDuplicateChild(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	dup := []model.ConvergencePoint{{Budget: 10}, {Budget: 10}}
	if _, err := s.InsertConvergence(ctx, model.RunRecord{Algorithm: "annealing"}, dup); err == nil {
		t.Fatalf("expected primary key violation")
	}
	runs, err := s.ListRuns(ctx, model.RunFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected rollback, got %d runs", len(runs))
	}
}
