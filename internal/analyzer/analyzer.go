// Package analyzer recovers substitution keys by stochastic local search over
// permutations, scored with a bigram language model.
//
// Two variants share one search loop:
//
//   - Annealing: Metropolis acceptance with a geometric cooling schedule
//     T_k = T0·(Tf/T0)^(k/(n-1)), so the last steps behave as hill-climbing.
//   - HillClimb: only non-worsening moves are accepted.
//
// The only neighbor move is a swap of two distinct key positions, which keeps
// every candidate a valid permutation. The best-so-far score of a run never
// decreases.
//
// An Analyzer owns its random source and is not safe for concurrent use;
// create one per goroutine. Weights are read-only and may be shared.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/verte-zerg/subcrack/internal/cipher"
	"github.com/verte-zerg/subcrack/internal/generator"
	"github.com/verte-zerg/subcrack/internal/langmodel"
	"github.com/verte-zerg/subcrack/internal/logging"
)

// Algorithm selects the acceptance rule.
type Algorithm string

const (
	// Annealing accepts worse moves with Metropolis probability.
	Annealing Algorithm = "annealing"
	// HillClimb accepts only non-worsening moves.
	HillClimb Algorithm = "hillclimb"
)

const (
	// DefaultIterations is the per-restart budget used when none is configured.
	DefaultIterations = 20000
	// DefaultRestarts is the number of independent restarts per Analyze call.
	DefaultRestarts = 4
	// DefaultInitialTemperature is T0 of the cooling schedule.
	DefaultInitialTemperature = 10.0
	// DefaultFinalTemperature is the floor reached on the last step.
	DefaultFinalTemperature = 1e-3

	ctxCheckMask = 1023
)

// WorstScore is reported when there is nothing to score.
const WorstScore = -math.MaxFloat64

// ErrUnknownAlgorithm is returned by ParseAlgorithm.
var ErrUnknownAlgorithm = errors.New("analyzer: unknown algorithm")

// Algorithms lists the supported variants.
func Algorithms() []Algorithm {
	return []Algorithm{Annealing, HillClimb}
}

// ParseAlgorithm maps a name to an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(name))) {
	case Annealing, "sa", "":
		return Annealing, nil
	case HillClimb, "hc":
		return HillClimb, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
}

// Options configures an Analyzer. Zero fields take defaults.
type Options struct {
	Algorithm          Algorithm
	Iterations         int
	InitialTemperature float64
	FinalTemperature   float64
	Restarts           int
	RandomStart        bool
	Alpha              float64
	Alphabet           cipher.Alphabet

	// Rand overrides Seed when set.
	Rand *rand.Rand
	Seed int64

	// Trace, when set, is called after every proposal.
	Trace  func(Step)
	Logger *slog.Logger
}

// DefaultOptions returns annealing with a random initial key.
func DefaultOptions() Options {
	return Options{
		Algorithm:          Annealing,
		Iterations:         DefaultIterations,
		InitialTemperature: DefaultInitialTemperature,
		FinalTemperature:   DefaultFinalTemperature,
		Restarts:           DefaultRestarts,
		RandomStart:        true,
		Alpha:              langmodel.DefaultAlpha,
		Alphabet:           cipher.DefaultAlphabet(),
	}
}

// Step describes one proposal.
type Step struct {
	Restart     int
	Iteration   int
	Temperature float64
	Candidate   float64
	Current     float64
	Best        float64
	Accepted    bool
	// Perm is the candidate permutation. It is only valid during the callback.
	Perm []int
}

// Result is the outcome of one Analyze call.
type Result struct {
	Key          cipher.Key
	Plaintext    string
	Score        float64
	Iterations   int
	Accepted     int
	Improvements int
	Elapsed      time.Duration
}

// Analyzer runs the key search.
type Analyzer struct {
	opts Options
	rnd  *rand.Rand
}

// New validates opts and fills defaults.
func New(opts Options) (*Analyzer, error) {
	algo, err := ParseAlgorithm(string(opts.Algorithm))
	if err != nil {
		return nil, err
	}
	opts.Algorithm = algo
	if opts.Iterations <= 0 {
		opts.Iterations = DefaultIterations
	}
	if opts.InitialTemperature <= 0 {
		opts.InitialTemperature = DefaultInitialTemperature
	}
	if opts.FinalTemperature <= 0 {
		opts.FinalTemperature = DefaultFinalTemperature
	}
	if opts.FinalTemperature > opts.InitialTemperature {
		return nil, fmt.Errorf("analyzer: final temperature %g exceeds initial %g", opts.FinalTemperature, opts.InitialTemperature)
	}
	if opts.Restarts <= 0 {
		opts.Restarts = 1
	}
	if opts.Alpha < 0 || math.IsNaN(opts.Alpha) {
		return nil, langmodel.ErrInvalidAlpha
	}
	if opts.Alphabet.Size() == 0 {
		opts.Alphabet = cipher.DefaultAlphabet()
	}
	opts.Logger = logging.OrDiscard(opts.Logger)
	rnd := opts.Rand
	if rnd == nil {
		rnd = generator.NewRand(opts.Seed)
	}
	return &Analyzer{opts: opts, rnd: rnd}, nil
}

// SetIterations sets the budget for later runs. Values <= 0 are ignored.
func (a *Analyzer) SetIterations(n int) {
	if n <= 0 {
		return
	}
	a.opts.Iterations = n
}

// Iterations returns the configured budget.
func (a *Analyzer) Iterations() int {
	return a.opts.Iterations
}

// Algorithm returns the configured variant.
func (a *Analyzer) Algorithm() Algorithm {
	return a.opts.Algorithm
}

// AnalyzeReference builds weights from referenceText and runs Analyze.
func (a *Analyzer) AnalyzeReference(ctx context.Context, cipherText, referenceText string) (Result, error) {
	w, err := langmodel.LoadWeights(referenceText, a.opts.Alpha, a.opts.Alphabet)
	if err != nil {
		return Result{}, fmt.Errorf("failed to build bigram weights: %w", err)
	}
	return a.Analyze(ctx, cipherText, w)
}

// Analyze searches for the key that makes cipherText most English-like under w.
// A cancelled context returns the best result so far together with ctx.Err().
func (a *Analyzer) Analyze(ctx context.Context, cipherText string, w *langmodel.Weights) (Result, error) {
	started := time.Now()
	alphabet := w.Alphabet()
	ct := alphabet.Indices(cipherText)
	if len(ct) == 0 {
		return Result{Key: cipher.IdentityKey(alphabet), Score: WorstScore}, nil
	}

	var (
		best                  Result
		iters, acc, improving int
		runErr                error
	)
	for r := 0; r < a.opts.Restarts; r++ {
		res, err := a.search(ctx, r, ct, w)
		iters += res.Iterations
		acc += res.Accepted
		improving += res.Improvements
		if r == 0 || res.Score > best.Score {
			best = res
		}
		if err != nil {
			runErr = err
			break
		}
	}
	best.Iterations, best.Accepted, best.Improvements = iters, acc, improving
	best.Plaintext = cipher.Decrypt(cipherText, best.Key)
	best.Elapsed = time.Since(started)
	a.opts.Logger.Debug("analysis finished",
		"algorithm", a.opts.Algorithm,
		"iterations", best.Iterations,
		"score", best.Score,
		"elapsed", best.Elapsed)
	return best, runErr
}

func (a *Analyzer) search(ctx context.Context, restart int, ct []int, w *langmodel.Weights) (Result, error) {
	alphabet := w.Alphabet()
	n := alphabet.Size()

	var start cipher.Key
	if a.opts.RandomStart {
		start = cipher.RandomKey(alphabet, a.rnd)
	} else {
		start = cipher.IdentityKey(alphabet)
	}
	perm := start.Perm()
	inv := start.Inverse().Perm()

	plain := make([]int, len(ct))
	decode := func() float64 {
		for i, c := range ct {
			plain[i] = inv[c]
		}
		return langmodel.ScoreIndices(plain, w)
	}

	current := decode()
	res := Result{Key: start, Score: current}
	bestPerm := append([]int(nil), perm...)

	budget := a.opts.Iterations
	temp := a.opts.InitialTemperature
	cooling := 1.0
	if budget > 1 {
		cooling = math.Pow(a.opts.FinalTemperature/a.opts.InitialTemperature, 1/float64(budget-1))
	} else {
		temp = a.opts.FinalTemperature
	}

	var err error
	for k := 0; k < budget && n > 1; k++ {
		if k&ctxCheckMask == 0 {
			if err = ctx.Err(); err != nil {
				break
			}
		}
		i, j := proposeSwap(a.rnd, n)
		swapInPlace(perm, inv, i, j)
		candidate := decode()

		accepted := a.accept(candidate, current, temp)
		if accepted {
			current = candidate
			res.Accepted++
			if current > res.Score {
				res.Score = current
				res.Improvements++
				copy(bestPerm, perm)
			}
		}
		if a.opts.Trace != nil {
			a.opts.Trace(Step{
				Restart:     restart,
				Iteration:   k,
				Temperature: temp,
				Candidate:   candidate,
				Current:     current,
				Best:        res.Score,
				Accepted:    accepted,
				Perm:        perm,
			})
		}
		if !accepted {
			swapInPlace(perm, inv, i, j)
		}
		res.Iterations++
		temp *= cooling
	}

	key, kerr := cipher.KeyFromIndices(alphabet, bestPerm)
	if kerr != nil {
		return res, fmt.Errorf("search produced an invalid key: %w", kerr)
	}
	res.Key = key
	return res, err
}

func (a *Analyzer) accept(candidate, current, temp float64) bool {
	if candidate >= current {
		return true
	}
	if a.opts.Algorithm == HillClimb || temp <= 0 {
		return false
	}
	return a.rnd.Float64() < math.Exp((candidate-current)/temp)
}

// Neighbor returns key with two distinct random positions swapped.
func Neighbor(key cipher.Key, rnd *rand.Rand) cipher.Key {
	if key.Size() < 2 {
		return key
	}
	i, j := proposeSwap(rnd, key.Size())
	return key.Swap(i, j)
}

func proposeSwap(rnd *rand.Rand, n int) (int, int) {
	i := rnd.Intn(n)
	j := rnd.Intn(n - 1)
	if j >= i {
		j++
	}
	return i, j
}

func swapInPlace(perm, inv []int, i, j int) {
	inv[perm[i]], inv[perm[j]] = j, i
	perm[i], perm[j] = perm[j], perm[i]
}
