package bench

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/subcrack/internal/cipher"
	"github.com/verte-zerg/subcrack/internal/evaluate"
	"github.com/verte-zerg/subcrack/internal/generator"
	"github.com/verte-zerg/subcrack/internal/logging"
	"github.com/verte-zerg/subcrack/internal/model"
)

// Case is one prepared problem.
type Case struct {
	Name        string
	CipherPath  string
	BigramsPath string
	Plaintext   string
	TrueKey     *cipher.Key
}

// Trial pairs a run with its evaluation. Metrics is nil unless the run succeeded.
type Trial struct {
	Case    int
	Result  AlgorithmResult
	Metrics *evaluate.Metrics
}

// Summary aggregates one algorithm's trials. Accuracy means cover
// successful runs only; NoData is set when there were none.
type Summary struct {
	Algorithm        string
	Runs             int
	Succeeded        int
	Timeouts         int
	Failures         int
	MeanTextAccuracy float64
	MeanKeyAccuracy  float64
	HasKeyAccuracy   bool
	MeanElapsed      time.Duration
	NoData           bool
}

// Report is the outcome of Benchmark. Summaries follow the order of algs.
type Report struct {
	Trials    []Trial
	Summaries []Summary
}

// PrepareCases writes each ciphertext under dir and returns runnable cases
// sharing bigramsPath.
func PrepareCases(dir, bigramsPath string, cases []generator.Case) ([]Case, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create case dir: %w", err)
	}
	out := make([]Case, 0, len(cases))
	for i, c := range cases {
		name := fmt.Sprintf("case-%03d", i)
		path := filepath.Join(dir, name+".txt")
		if err := os.WriteFile(path, []byte(c.Ciphertext), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", name, err)
		}
		key := c.Key
		out = append(out, Case{
			Name:        name,
			CipherPath:  path,
			BigramsPath: bigramsPath,
			Plaintext:   c.Plaintext,
			TrueKey:     &key,
		})
	}
	return out, nil
}

// Benchmark runs every algorithm on every case. Runs that time out or fail
// are counted but never contribute accuracy.
func (h *Harness) Benchmark(ctx context.Context, algs []Algorithm, cases []Case, workDir string) Report {
	trials := make([]Trial, len(cases)*len(algs))
	ran := make([]bool, len(trials))

	g := &errgroup.Group{}
	workers := h.Workers
	if workers <= 0 {
		workers = 1
	}
	g.SetLimit(workers)

spawn:
	for ci, c := range cases {
		ci, c := ci, c
		for ai, alg := range algs {
			alg := alg
			if ctx.Err() != nil {
				break spawn
			}
			slot := ci*len(algs) + ai
			in := Input{
				CipherPath:  c.CipherPath,
				BigramsPath: c.BigramsPath,
				WorkDir:     workDir,
				Seed:        generator.DeriveSeed(h.Seed, uint64(ci)),
			}
			g.Go(func() error {
				res := <-h.RunAsync(ctx, alg, in)
				trials[slot] = h.judge(ci, c, res)
				ran[slot] = true
				return nil
			})
		}
	}
	_ = g.Wait()

	done := make([]Trial, 0, len(trials))
	for i, t := range trials {
		if ran[i] {
			done = append(done, t)
		}
	}
	names := make([]string, len(algs))
	for i, alg := range algs {
		names[i] = alg.Name()
	}
	report := Report{Trials: done}
	report.Summaries = Summarize(names, report.Records())
	logging.OrDiscard(h.Logger).Info("benchmark finished", "cases", len(cases), "algorithms", len(algs), "trials", len(done))
	return report
}

func (h *Harness) judge(ci int, c Case, res AlgorithmResult) Trial {
	t := Trial{Case: ci, Result: res}
	if res.Status != StatusOK {
		return t
	}
	key := res.Key
	m := evaluate.EvaluateWith(h.alphabet(), res.Plaintext, c.Plaintext, &key, c.TrueKey)
	t.Metrics = &m
	return t
}

// Records flattens the trials for storage.
func (r Report) Records() []model.BenchRecord {
	out := make([]model.BenchRecord, 0, len(r.Trials))
	for _, t := range r.Trials {
		rec := model.BenchRecord{
			CaseIdx:   t.Case,
			Algorithm: t.Result.Algorithm,
			Status:    string(t.Result.Status),
			ElapsedMs: t.Result.Elapsed.Milliseconds(),
			ExitCode:  t.Result.ExitCode,
			Stderr:    t.Result.Stderr,
		}
		if t.Metrics != nil {
			text := t.Metrics.TextAccuracy
			rec.TextAccuracy = &text
			rec.KeyAccuracy = t.Metrics.KeyAccuracy
		}
		out = append(out, rec)
	}
	return out
}

// Summarize aggregates records per algorithm in the order of names.
func Summarize(names []string, records []model.BenchRecord) []Summary {
	out := make([]Summary, 0, len(names))
	for _, name := range names {
		out = append(out, summarize(name, records))
	}
	return out
}

func summarize(name string, records []model.BenchRecord) Summary {
	s := Summary{Algorithm: name}
	var elapsedMs int64
	var textSum, keySum float64
	keyN := 0
	for _, r := range records {
		if r.Algorithm != name {
			continue
		}
		s.Runs++
		elapsedMs += r.ElapsedMs
		switch Status(r.Status) {
		case StatusOK:
			s.Succeeded++
		case StatusTimeout:
			s.Timeouts++
			continue
		default:
			s.Failures++
			continue
		}
		if r.TextAccuracy != nil {
			textSum += *r.TextAccuracy
		}
		if r.KeyAccuracy != nil {
			keySum += *r.KeyAccuracy
			keyN++
		}
	}
	if s.Runs > 0 {
		s.MeanElapsed = time.Duration(elapsedMs/int64(s.Runs)) * time.Millisecond
	}
	if s.Succeeded == 0 {
		s.NoData = true
		return s
	}
	s.MeanTextAccuracy = textSum / float64(s.Succeeded)
	if keyN > 0 {
		s.MeanKeyAccuracy = keySum / float64(keyN)
		s.HasKeyAccuracy = true
	}
	return s
}
