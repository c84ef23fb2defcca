// Package converge measures how search quality grows with the iteration budget.
//
// For every budget the tracker runs independent trials in parallel, each with
// its own analyzer and seed, and aggregates score and text accuracy. Bigram
// weights are shared read-only between trials.
package converge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/verte-zerg/subcrack/internal/analyzer"
	"github.com/verte-zerg/subcrack/internal/cipher"
	"github.com/verte-zerg/subcrack/internal/evaluate"
	"github.com/verte-zerg/subcrack/internal/generator"
	"github.com/verte-zerg/subcrack/internal/langmodel"
	"github.com/verte-zerg/subcrack/internal/logging"
	"github.com/verte-zerg/subcrack/internal/model"
)

// ErrNoBudgets is returned when a job has no positive budget.
var ErrNoBudgets = errors.New("converge: no positive iteration budgets")

// Factory builds a fresh analyzer for one trial.
type Factory func(seed int64) (*analyzer.Analyzer, error)

// Job describes one convergence run.
type Job struct {
	Algorithm  string
	CipherText string
	// Plaintext is the known reference used for text accuracy.
	Plaintext string
	TrueKey   *cipher.Key
	Budgets   []int
	Trials    int
	Seed      int64
}

// Point aggregates the trials of one budget. When NoData is set no trial
// completed and every statistic is zero.
type Point struct {
	Budget          int
	Trials          int
	Completed       int
	MeanScore       float64
	StdScore        float64
	MeanAccuracy    float64
	StdAccuracy     float64
	MeanKeyAccuracy float64
	HasKeyAccuracy  bool
	NoData          bool
}

// Series is the ordered list of points for one algorithm. Partial is set when
// any point has fewer completed trials than requested.
type Series struct {
	Algorithm string
	Points    []Point
	Partial   bool
}

// MonotoneAccuracy reports whether mean text accuracy never drops by more
// than tolerance percentage points between consecutive points with data.
func (s Series) MonotoneAccuracy(tolerance float64) bool {
	prev := math.Inf(-1)
	for _, p := range s.Points {
		if p.NoData {
			continue
		}
		if p.MeanAccuracy < prev-tolerance {
			return false
		}
		prev = p.MeanAccuracy
	}
	return true
}

// Records converts the points for storage and rendering.
func (s Series) Records() []model.ConvergencePoint {
	out := make([]model.ConvergencePoint, len(s.Points))
	for i, p := range s.Points {
		out[i] = model.ConvergencePoint{
			Budget:       p.Budget,
			Trials:       p.Trials,
			Completed:    p.Completed,
			MeanScore:    p.MeanScore,
			StdScore:     p.StdScore,
			MeanAccuracy: p.MeanAccuracy,
			StdAccuracy:  p.StdAccuracy,
			NoData:       p.NoData,
		}
		if p.HasKeyAccuracy {
			acc := p.MeanKeyAccuracy
			out[i].MeanKeyAccuracy = &acc
		}
	}
	return out
}

// Tracker runs convergence jobs.
type Tracker struct {
	Weights *langmodel.Weights
	Factory Factory
	// Workers bounds concurrent trials; <= 0 means one.
	Workers int
	Logger  *slog.Logger
}

type trial struct {
	done     bool
	score    float64
	accuracy float64
	keyAcc   float64
	hasKey   bool
}

// Run executes job. On cancellation it stops spawning trials, abandons
// in-flight ones and returns the partial series together with ctx.Err().
// A cancel that lands after every trial finished is not reported.
func (t *Tracker) Run(ctx context.Context, job Job) (Series, error) {
	if t.Weights == nil || t.Factory == nil {
		return Series{}, fmt.Errorf("converge: tracker needs weights and a factory")
	}
	budgets := normalizeBudgets(job.Budgets)
	if len(budgets) == 0 {
		return Series{}, ErrNoBudgets
	}
	trials := job.Trials
	if trials <= 0 {
		trials = 1
	}
	workers := t.Workers
	if workers <= 0 {
		workers = 1
	}
	logger := logging.OrDiscard(t.Logger)
	alphabet := t.Weights.Alphabet()

	results := make([][]trial, len(budgets))
	for i := range results {
		results[i] = make([]trial, trials)
	}

	g := new(errgroup.Group)
	g.SetLimit(workers)
spawn:
	for bi, budget := range budgets {
		budgetSeed := generator.DeriveSeed(job.Seed, uint64(budget))
		for ti := 0; ti < trials; ti++ {
			if ctx.Err() != nil {
				break spawn
			}
			bi, ti, budget := bi, ti, budget
			seed := generator.DeriveSeed(budgetSeed, uint64(ti))
			g.Go(func() error {
				a, err := t.Factory(seed)
				if err != nil {
					return fmt.Errorf("failed to build analyzer: %w", err)
				}
				a.SetIterations(budget)
				res, err := a.Analyze(ctx, job.CipherText, t.Weights)
				if err != nil {
					if ctx.Err() != nil {
						return nil
					}
					return err
				}
				m := evaluate.EvaluateWith(alphabet, res.Plaintext, job.Plaintext, &res.Key, job.TrueKey)
				slot := trial{done: true, score: res.Score, accuracy: m.TextAccuracy}
				if m.KeyAccuracy != nil {
					slot.keyAcc, slot.hasKey = *m.KeyAccuracy, true
				}
				results[bi][ti] = slot
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return Series{}, err
	}

	series := Series{Algorithm: job.Algorithm, Points: make([]Point, len(budgets))}
	for bi, budget := range budgets {
		p := aggregate(budget, results[bi])
		if p.Completed < p.Trials {
			series.Partial = true
		}
		series.Points[bi] = p
		logger.Info("budget aggregated",
			"algorithm", job.Algorithm,
			"budget", budget,
			"completed", p.Completed,
			"mean_accuracy", p.MeanAccuracy)
	}
	if series.Partial {
		return series, ctx.Err()
	}
	return series, nil
}

func aggregate(budget int, trials []trial) Point {
	p := Point{Budget: budget, Trials: len(trials)}
	var scores, accs, keys []float64
	for _, tr := range trials {
		if !tr.done {
			continue
		}
		scores = append(scores, tr.score)
		accs = append(accs, tr.accuracy)
		if tr.hasKey {
			keys = append(keys, tr.keyAcc)
		}
	}
	p.Completed = len(scores)
	if p.Completed == 0 {
		p.NoData = true
		return p
	}
	p.MeanScore, p.StdScore = meanStd(scores)
	p.MeanAccuracy, p.StdAccuracy = meanStd(accs)
	if len(keys) > 0 {
		p.MeanKeyAccuracy = stat.Mean(keys, nil)
		p.HasKeyAccuracy = true
	}
	return p
}

func meanStd(xs []float64) (float64, float64) {
	if len(xs) == 1 {
		return xs[0], 0
	}
	return stat.MeanStdDev(xs, nil)
}

func normalizeBudgets(in []int) []int {
	seen := make(map[int]struct{}, len(in))
	out := make([]int, 0, len(in))
	for _, b := range in {
		if b <= 0 {
			continue
		}
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	sort.Ints(out)
	return out
}

// AnalyzerFactory returns a Factory that clones base options with a new seed.
func AnalyzerFactory(base analyzer.Options) Factory {
	return func(seed int64) (*analyzer.Analyzer, error) {
		opts := base
		opts.Rand = nil
		opts.Seed = seed
		opts.Trace = nil
		return analyzer.New(opts)
	}
}
