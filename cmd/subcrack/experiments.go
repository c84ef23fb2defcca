package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/subcrack/internal/analyzer"
	"github.com/verte-zerg/subcrack/internal/bench"
	"github.com/verte-zerg/subcrack/internal/cipher"
	"github.com/verte-zerg/subcrack/internal/config"
	"github.com/verte-zerg/subcrack/internal/converge"
	"github.com/verte-zerg/subcrack/internal/corpus"
	"github.com/verte-zerg/subcrack/internal/generator"
	"github.com/verte-zerg/subcrack/internal/langmodel"
	"github.com/verte-zerg/subcrack/internal/model"
	"github.com/verte-zerg/subcrack/internal/stats"
)

const (
	defaultTrials       = 50
	defaultMinLetters   = 300
	defaultBenchCases   = 10
	defaultBenchTimeout = 30 * time.Second
)

var defaultBudgets = []int{1000, 5000, 20000}

var (
	convergeSearch    searchFlags
	convergePlainPath string
	convergeBudgets   []int
	convergeTrials    int
	convergeWorkers   int
	convergeMinLetter int
	convergeTimeout   time.Duration
	convergeNoSave    bool
)

func newConvergeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "converge",
		Short: "Measure accuracy against the iteration budget",
		Args:  cobra.NoArgs,
		RunE:  runConvergeCmd,
	}
	convergeSearch.register(cmd)
	cmd.Flags().StringVar(&convergePlainPath, "plain", "", "known plaintext (default: a sample of the corpus)")
	cmd.Flags().IntSliceVar(&convergeBudgets, "budgets", defaultBudgets, "iteration budgets")
	cmd.Flags().IntVar(&convergeTrials, "trials", defaultTrials, "trials per budget")
	cmd.Flags().IntVar(&convergeWorkers, "workers", 0, "parallel trials (0: one per CPU)")
	cmd.Flags().IntVar(&convergeMinLetter, "min-letters", defaultMinLetters, "letters in a sampled plaintext")
	cmd.Flags().DurationVar(&convergeTimeout, "timeout", 0, "stop after this long and keep partial results (0: no limit)")
	cmd.Flags().BoolVar(&convergeNoSave, "no-save", false, "do not store the series")
	return cmd
}

func runConvergeCmd(cmd *cobra.Command, _ []string) error {
	convergeSearch.applyFile(cmd)
	c := fileCfg.Converge
	applyIntSliceConfig(cmd, "budgets", &convergeBudgets, c.Budgets)
	applyIntConfig(cmd, "trials", &convergeTrials, c.Trials)
	applyIntConfig(cmd, "workers", &convergeWorkers, c.Workers)
	applyIntConfig(cmd, "min-letters", &convergeMinLetter, c.MinLetters)
	if err := applyDurationConfig(cmd, "timeout", &convergeTimeout, c.Timeout); err != nil {
		return err
	}
	cfg, err := convergeSearch.config()
	if err != nil {
		return err
	}
	runCfg := model.ConvergeConfig{
		Budgets:    convergeBudgets,
		Trials:     convergeTrials,
		Workers:    convergeWorkers,
		MinLetters: convergeMinLetter,
		Timeout:    convergeTimeout,
	}
	if err := validateConvergeConfig(runCfg); err != nil {
		return err
	}
	if runCfg.Workers == 0 {
		runCfg.Workers = runtime.NumCPU()
	}

	w, reference, err := loadReference(convergeSearch.corpusPath, cfg.Alpha)
	if err != nil {
		return err
	}
	gen := generator.New(cfg.Seed)
	plain, err := knownPlaintext(cmd, convergePlainPath, reference, gen, runCfg.MinLetters)
	if err != nil {
		return err
	}
	key := gen.Key(w.Alphabet())
	job := converge.Job{
		Algorithm:  cfg.Algorithm,
		CipherText: cipher.Encrypt(plain, key),
		Plaintext:  plain,
		TrueKey:    &key,
		Budgets:    runCfg.Budgets,
		Trials:     runCfg.Trials,
		Seed:       cfg.Seed,
	}

	ctx := cmd.Context()
	if runCfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runCfg.Timeout)
		defer cancel()
	}
	opts := analyzerOptions(cfg)
	opts.Logger = nil
	tracker := &converge.Tracker{
		Weights: w,
		Factory: converge.AnalyzerFactory(opts),
		Workers: runCfg.Workers,
		Logger:  logger,
	}
	started := time.Now()
	series, runErr := tracker.Run(ctx, job)
	status := "ok"
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.DeadlineExceeded), errors.Is(runErr, context.Canceled):
		logger.Warn("convergence run stopped early", "err", runErr)
		status = "partial"
	default:
		return fmt.Errorf("convergence run failed: %w", runErr)
	}
	if series.Partial {
		status = "partial"
	}

	points := series.Records()
	title := fmt.Sprintf("%s on %d letters, %d trials per budget", cfg.Algorithm, len(w.Alphabet().Normalize(plain)), runCfg.Trials)
	if err := stats.RenderSeries(cmd.OutOrStdout(), title, points, stats.PlotOptions{Height: 10}); err != nil {
		return fmt.Errorf("failed to render series: %w", err)
	}

	if convergeNoSave {
		return nil
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)
	id, err := st.InsertConvergence(context.Background(), model.RunRecord{
		Algorithm: cfg.Algorithm,
		Params:    fmt.Sprintf("%s budgets=%v trials=%d", describeConfig(cfg), runCfg.Budgets, runCfg.Trials),
		Key:       key.String(),
		Plaintext: plain,
		ElapsedMs: time.Since(started).Milliseconds(),
		Status:    status,
	}, points)
	if err != nil {
		return fmt.Errorf("failed to save series: %w", err)
	}
	logger.Info("saved convergence run", "id", id)
	return nil
}

func validateConvergeConfig(cfg model.ConvergeConfig) error {
	if len(cfg.Budgets) == 0 {
		return fmt.Errorf("--budgets must not be empty")
	}
	for _, b := range cfg.Budgets {
		if b <= 0 {
			return fmt.Errorf("--budgets must be > 0, got %d", b)
		}
	}
	if cfg.Trials <= 0 {
		return fmt.Errorf("--trials must be > 0")
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("--workers must be >= 0")
	}
	if cfg.MinLetters <= 0 {
		return fmt.Errorf("--min-letters must be > 0")
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("--timeout must be >= 0")
	}
	return nil
}

// knownPlaintext reads path, or samples the reference text when path is empty.
func knownPlaintext(cmd *cobra.Command, path, reference string, gen *generator.Generator, minLetters int) (string, error) {
	if path != "" {
		text, err := readInput(cmd, path)
		if err != nil {
			return "", err
		}
		if corpus.Letters(text, cipher.DefaultAlphabet()) == 0 {
			return "", fmt.Errorf("plaintext %s has no letters", path)
		}
		return text, nil
	}
	if reference == "" {
		reference = corpus.Sample()
	}
	return gen.Sample(reference, cipher.DefaultAlphabet(), minLetters), nil
}

var (
	benchSearch     searchFlags
	benchPlainPath  string
	benchCases      int
	benchMinLetters int
	benchWorkers    int
	benchTimeout    time.Duration
	benchAlgorithms []string
	benchExec       []string
	benchWorkDir    string
	benchKeep       bool
	benchNoSave     bool
)

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark built-in and external algorithms on generated cases",
		Long: `Benchmark built-in and external algorithms on generated cases.

External commands may use the placeholders {cipher}, {bigrams}, {workdir} and
{seed}. They must print the recovered key on the first non-empty line of
stdout and the plaintext after it.`,
		Args: cobra.NoArgs,
		RunE: runBenchCmd,
	}
	benchSearch.register(cmd)
	cmd.Flags().StringVar(&benchPlainPath, "plain", "", "text to sample cases from (default: the corpus)")
	cmd.Flags().IntVar(&benchCases, "cases", defaultBenchCases, "number of generated cases")
	cmd.Flags().IntVar(&benchMinLetters, "min-letters", defaultMinLetters, "letters per case")
	cmd.Flags().IntVar(&benchWorkers, "workers", 1, "parallel runs")
	cmd.Flags().DurationVar(&benchTimeout, "timeout", defaultBenchTimeout, "time limit per run")
	cmd.Flags().StringSliceVar(&benchAlgorithms, "algos", []string{string(analyzer.Annealing), string(analyzer.HillClimb)}, "built-in algorithms to include")
	cmd.Flags().StringArrayVar(&benchExec, "exec", nil, "external algorithm command line (repeatable)")
	cmd.Flags().StringVar(&benchWorkDir, "workdir", "", "directory for case files (default: temporary dir under the XDG data dir)")
	cmd.Flags().BoolVar(&benchKeep, "keep", false, "keep generated case files")
	cmd.Flags().BoolVar(&benchNoSave, "no-save", false, "do not store the results")
	return cmd
}

func runBenchCmd(cmd *cobra.Command, _ []string) error {
	benchSearch.applyFile(cmd)
	c := fileCfg.Bench
	applyIntConfig(cmd, "cases", &benchCases, c.Cases)
	applyIntConfig(cmd, "min-letters", &benchMinLetters, c.MinLetters)
	applyIntConfig(cmd, "workers", &benchWorkers, c.Workers)
	applyStringSliceConfig(cmd, "algos", &benchAlgorithms, c.Algorithms)
	applyStringSliceConfig(cmd, "exec", &benchExec, c.Exec)
	if err := applyDurationConfig(cmd, "timeout", &benchTimeout, c.Timeout); err != nil {
		return err
	}
	cfg, err := benchSearch.config()
	if err != nil {
		return err
	}
	runCfg := model.BenchConfig{
		Cases:      benchCases,
		MinLetters: benchMinLetters,
		Workers:    benchWorkers,
		Timeout:    benchTimeout,
		Algorithms: benchAlgorithms,
		Exec:       benchExec,
	}
	if err := validateBenchConfig(runCfg); err != nil {
		return err
	}
	algs, err := benchContestants(cfg, runCfg)
	if err != nil {
		return err
	}

	w, reference, err := loadReference(benchSearch.corpusPath, cfg.Alpha)
	if err != nil {
		return err
	}
	source := reference
	if benchPlainPath != "" {
		if source, err = readInput(cmd, benchPlainPath); err != nil {
			return err
		}
	}
	if source == "" {
		source = corpus.Sample()
	}

	workDir, cleanup, err := benchDir(benchWorkDir, benchKeep)
	if err != nil {
		return err
	}
	defer cleanup()
	bigramsPath := filepath.Join(workDir, "reference"+langmodel.TableExt)
	if err := langmodel.SaveFile(bigramsPath, w); err != nil {
		return fmt.Errorf("failed to write bigram table: %w", err)
	}
	gen := generator.New(cfg.Seed)
	generated := make([]generator.Case, runCfg.Cases)
	for i := range generated {
		generated[i] = gen.Case(source, w.Alphabet(), runCfg.MinLetters)
	}
	cases, err := bench.PrepareCases(filepath.Join(workDir, "cases"), bigramsPath, generated)
	if err != nil {
		return err
	}

	h := &bench.Harness{
		Timeout:  runCfg.Timeout,
		Alphabet: w.Alphabet(),
		Seed:     cfg.Seed,
		Workers:  runCfg.Workers,
		Logger:   logger,
	}
	started := time.Now()
	report := h.Benchmark(cmd.Context(), algs, cases, workDir)
	if err := stats.RenderBench(cmd.OutOrStdout(), report.Summaries); err != nil {
		return fmt.Errorf("failed to render benchmark: %w", err)
	}

	if benchNoSave {
		return nil
	}
	names := make([]string, len(algs))
	for i, alg := range algs {
		names[i] = alg.Name()
	}
	status := "ok"
	if cmd.Context().Err() != nil {
		status = "partial"
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)
	id, err := st.InsertBench(context.Background(), model.RunRecord{
		Algorithm: strings.Join(names, ","),
		Params:    fmt.Sprintf("%s cases=%d min-letters=%d timeout=%s", describeConfig(cfg), runCfg.Cases, runCfg.MinLetters, runCfg.Timeout),
		ElapsedMs: time.Since(started).Milliseconds(),
		Status:    status,
	}, report.Records())
	if err != nil {
		return fmt.Errorf("failed to save benchmark: %w", err)
	}
	logger.Info("saved benchmark run", "id", id)
	return nil
}

func validateBenchConfig(cfg model.BenchConfig) error {
	if cfg.Cases <= 0 {
		return fmt.Errorf("--cases must be > 0")
	}
	if cfg.MinLetters <= 0 {
		return fmt.Errorf("--min-letters must be > 0")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("--workers must be > 0")
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("--timeout must be > 0")
	}
	if len(cfg.Algorithms) == 0 && len(cfg.Exec) == 0 {
		return fmt.Errorf("nothing to benchmark: set --algos or --exec")
	}
	return nil
}

func benchContestants(cfg model.AnalyzeConfig, runCfg model.BenchConfig) ([]bench.Algorithm, error) {
	algs := make([]bench.Algorithm, 0, len(runCfg.Algorithms)+len(runCfg.Exec))
	for _, name := range runCfg.Algorithms {
		algo, err := analyzer.ParseAlgorithm(name)
		if err != nil {
			return nil, fmt.Errorf("invalid --algos: %w", err)
		}
		opts := analyzerOptions(cfg)
		opts.Algorithm = algo
		opts.Logger = nil
		algs = append(algs, bench.InProcess{Options: opts})
	}
	for i, line := range runCfg.Exec {
		ext, err := bench.NewExternal(fmt.Sprintf("exec-%d", i+1), line)
		if err != nil {
			return nil, fmt.Errorf("invalid --exec %q: %w", line, err)
		}
		algs = append(algs, ext)
	}
	return algs, nil
}

// benchDir returns the case directory and a cleanup that removes it unless keep is set.
func benchDir(dir string, keep bool) (string, func(), error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", nil, fmt.Errorf("failed to create workdir: %w", err)
		}
		return dir, func() {}, nil
	}
	base := config.DefaultWorkDir()
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", nil, fmt.Errorf("failed to create workdir: %w", err)
	}
	tmp, err := os.MkdirTemp(base, "run-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create workdir: %w", err)
	}
	if keep {
		logger.Info("keeping case files", "dir", tmp)
		return tmp, func() {}, nil
	}
	return tmp, func() {
		if err := os.RemoveAll(tmp); err != nil {
			logger.Warn("failed to remove workdir", "dir", tmp, "err", err)
		}
	}, nil
}
