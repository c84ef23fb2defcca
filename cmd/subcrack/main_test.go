package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/subcrack/internal/analyzer"
	"github.com/verte-zerg/subcrack/internal/bench"
	"github.com/verte-zerg/subcrack/internal/model"
)

func TestFindRunMatchesPrefix(t *testing.T) {
	runs := []model.RunRecord{{ID: "abc123"}, {ID: "abd456"}, {ID: "ab"}}
	got, err := findRun(runs, "abc")
	if err != nil || got.ID != "abc123" {
		t.Fatalf("expected abc123, got %q (%v)", got.ID, err)
	}
	got, err = findRun(runs, "ab")
	if err != nil || got.ID != "ab" {
		t.Fatalf("expected exact match to win, got %q (%v)", got.ID, err)
	}
	if _, err := findRun(runs, "abx"); err == nil {
		t.Fatalf("expected error for unknown id")
	}
	if _, err := findRun(runs[:2], "ab"); err == nil || !strings.Contains(err.Error(), "matches 2 runs") {
		t.Fatalf("expected ambiguity error, got %v", err)
	}
}

func TestRunsFilter(t *testing.T) {
	f, err := runsFilter("Bench", "2026-01-02", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Kind != model.KindBench || f.Last != 5 || f.Since == nil {
		t.Fatalf("unexpected filter: %+v", f)
	}
	if _, err := runsFilter("typing", "", 0); err == nil {
		t.Fatalf("expected invalid kind error")
	}
	if _, err := runsFilter("", "yesterday", 0); err == nil {
		t.Fatalf("expected invalid since error")
	}
	if _, err := runsFilter("", "", -1); err == nil {
		t.Fatalf("expected invalid last error")
	}
}

func TestValidateConvergeConfig(t *testing.T) {
	ok := model.ConvergeConfig{Budgets: []int{100}, Trials: 2, MinLetters: 50}
	if err := validateConvergeConfig(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := ok
	bad.Budgets = []int{100, 0}
	if err := validateConvergeConfig(bad); err == nil {
		t.Fatalf("expected zero budget to be rejected")
	}
	bad = ok
	bad.Budgets = nil
	if err := validateConvergeConfig(bad); err == nil {
		t.Fatalf("expected empty budgets to be rejected")
	}
}

func TestBenchContestants(t *testing.T) {
	cfg := model.AnalyzeConfig{Algorithm: "annealing", Iterations: 10, Restarts: 1, Alpha: 1}
	runCfg := model.BenchConfig{
		Cases:      1,
		MinLetters: 10,
		Workers:    1,
		Timeout:    time.Second,
		Algorithms: []string{"hc"},
		Exec:       []string{"./solver {cipher}"},
	}
	if err := validateBenchConfig(runCfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	algs, err := benchContestants(cfg, runCfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(algs) != 2 {
		t.Fatalf("expected 2 contestants, got %d", len(algs))
	}
	if _, ok := algs[0].(bench.InProcess); !ok {
		t.Fatalf("expected in-process first, got %T", algs[0])
	}
	if algs[1].Name() != "exec-1" {
		t.Fatalf("unexpected external name %q", algs[1].Name())
	}

	runCfg.Algorithms = []string{"genetic"}
	if _, err := benchContestants(cfg, runCfg); err == nil {
		t.Fatalf("expected unknown algorithm error")
	}
	runCfg.Algorithms = nil
	runCfg.Exec = nil
	if err := validateBenchConfig(runCfg); err == nil {
		t.Fatalf("expected empty contestant list to be rejected")
	}
}

func TestNonPositiveIterationsUseDefault(t *testing.T) {
	for _, n := range []int{0, -5} {
		f := searchFlags{
			algorithm:   "annealing",
			iterations:  n,
			restarts:    1,
			alpha:       0.01,
			initialTemp: 10,
			finalTemp:   0.001,
		}
		cfg, err := f.config()
		if err != nil {
			t.Fatalf("iterations %d: unexpected error: %v", n, err)
		}
		if cfg.Iterations != analyzer.DefaultIterations {
			t.Fatalf("iterations %d: expected default %d, got %d", n, analyzer.DefaultIterations, cfg.Iterations)
		}
	}
}

func TestAnalyzeCurveWritesTrajectoryToStderr(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cipherPath := filepath.Join(t.TempDir(), "cipher.txt")
	if err := os.WriteFile(cipherPath, []byte("Gsv jfrxp yildm ulc."), 0o644); err != nil {
		t.Fatalf("write cipher: %v", err)
	}

	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"analyze", "--quiet", "--cipher", cipherPath, "--iterations", "300", "--restarts", "2", "--curve"})
	if err := root.Execute(); err != nil {
		t.Fatalf("analyze: %v", err)
	}

	lines := strings.Split(strings.TrimRight(stdout.String(), "\n"), "\n")
	if len(lines) != 2 || len(lines[0]) != 26 {
		t.Fatalf("expected key and plaintext on stdout, got %q", stdout.String())
	}
	if !strings.HasSuffix(lines[1], ".") || len(lines[1]) != len("Gsv jfrxp yildm ulc.") {
		t.Fatalf("expected punctuation kept in plaintext, got %q", lines[1])
	}
	if !strings.Contains(stderr.String(), "Search trajectory: 600 proposals") {
		t.Fatalf("expected trajectory on stderr, got %q", stderr.String())
	}
	if strings.Contains(stdout.String(), "trajectory") {
		t.Fatalf("trajectory leaked to stdout")
	}
}
