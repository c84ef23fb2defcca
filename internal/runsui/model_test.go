package runsui

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/subcrack/internal/model"
	"github.com/verte-zerg/subcrack/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "subcrack.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

func TestModelOpensAnalysisDetail(t *testing.T) {
	st := newTestStore(t)
	_, err := st.InsertAnalysis(context.Background(), model.RunRecord{
		Algorithm: "annealing",
		Key:       "BCDEFGHIJKLMNOPQRSTUVWXYZA",
		Plaintext: "HELLO WORLD",
		Score:     -20,
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	m := NewModel(st, model.RunFilter{})
	if len(m.runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(m.runs))
	}
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.activeTab != tabDetail {
		t.Fatalf("expected detail tab for analysis run, got %d", m.activeTab)
	}
	view := stripStyles(m.View())
	for _, want := range []string{"annealing", "HELLO WORLD", "BCDEFGHIJKLMNOPQRSTUVWXYZA"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view:\n%s", want, view)
		}
	}
}

func TestModelOpensConvergenceReport(t *testing.T) {
	st := newTestStore(t)
	points := []model.ConvergencePoint{
		{Budget: 1000, Trials: 2, Completed: 2, MeanAccuracy: 30},
		{Budget: 5000, Trials: 2, Completed: 2, MeanAccuracy: 95},
	}
	if _, err := st.InsertConvergence(context.Background(), model.RunRecord{Algorithm: "annealing"}, points); err != nil {
		t.Fatalf("insert: %v", err)
	}

	m := NewModel(st, model.RunFilter{})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 60})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.activeTab != tabReport {
		t.Fatalf("expected report tab, got %d", m.activeTab)
	}
	view := stripStyles(m.View())
	if !strings.Contains(view, "95.00%") {
		t.Fatalf("expected convergence table in view:\n%s", view)
	}
}

func TestModelEmptyStore(t *testing.T) {
	m := NewModel(newTestStore(t), model.RunFilter{})
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	if !strings.Contains(m.View(), "No runs found.") {
		t.Fatalf("expected empty state")
	}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
}

func TestParseFilter(t *testing.T) {
	f, err := parseFilter(" Bench ", "2026-01-02", "5")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f.Kind != model.KindBench || f.Since == nil || f.Last != 5 {
		t.Fatalf("unexpected filter: %+v", f)
	}
	if _, err := parseFilter("other", "", ""); err == nil {
		t.Fatalf("expected kind error")
	}
	if _, err := parseFilter("", "yesterday", ""); err == nil {
		t.Fatalf("expected date error")
	}
	if _, err := parseFilter("", "", "-1"); err == nil {
		t.Fatalf("expected last error")
	}
}
