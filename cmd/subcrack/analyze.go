package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/subcrack/internal/analyzer"
	"github.com/verte-zerg/subcrack/internal/cipher"
	"github.com/verte-zerg/subcrack/internal/corpus"
	"github.com/verte-zerg/subcrack/internal/generator"
	"github.com/verte-zerg/subcrack/internal/langmodel"
	"github.com/verte-zerg/subcrack/internal/model"
	"github.com/verte-zerg/subcrack/internal/stats"
)

const (
	defaultAlgorithm   = string(analyzer.Annealing)
	defaultIterations  = analyzer.DefaultIterations
	defaultAlpha       = langmodel.DefaultAlpha
	defaultInitialTemp = analyzer.DefaultInitialTemperature
	defaultFinalTemp   = analyzer.DefaultFinalTemperature
)

// searchFlags are the analyzer settings shared by analyze, converge and bench.
type searchFlags struct {
	algorithm     string
	iterations    int
	restarts      int
	alpha         float64
	initialTemp   float64
	finalTemp     float64
	seed          int64
	corpusPath    string
	identityStart bool
}

func (f *searchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.algorithm, "algo", defaultAlgorithm, "search algorithm (annealing, hillclimb)")
	cmd.Flags().IntVar(&f.iterations, "iterations", defaultIterations, "proposals per restart (<= 0 uses the default)")
	cmd.Flags().IntVar(&f.restarts, "restarts", analyzer.DefaultRestarts, "independent restarts")
	cmd.Flags().Float64Var(&f.alpha, "alpha", defaultAlpha, "additive smoothing for bigram counts")
	cmd.Flags().Float64Var(&f.initialTemp, "t0", defaultInitialTemp, "initial annealing temperature")
	cmd.Flags().Float64Var(&f.finalTemp, "tf", defaultFinalTemp, "final annealing temperature")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "random seed (0 uses the default seed)")
	cmd.Flags().StringVar(&f.corpusPath, "corpus", "", "reference text or .bigrams table (default: built-in sample)")
	cmd.Flags().BoolVar(&f.identityStart, "identity-start", false, "start from the identity key instead of a random one")
}

func (f *searchFlags) applyFile(cmd *cobra.Command) {
	c := fileCfg.Analyze
	applyStringConfig(cmd, "algo", &f.algorithm, c.Algorithm)
	applyIntConfig(cmd, "iterations", &f.iterations, c.Iterations)
	applyIntConfig(cmd, "restarts", &f.restarts, c.Restarts)
	applyFloatConfig(cmd, "alpha", &f.alpha, c.Alpha)
	applyFloatConfig(cmd, "t0", &f.initialTemp, c.InitialTemperature)
	applyFloatConfig(cmd, "tf", &f.finalTemp, c.FinalTemperature)
	applyInt64Config(cmd, "seed", &f.seed, c.Seed)
	applyStringConfig(cmd, "corpus", &f.corpusPath, c.Corpus)
}

func (f *searchFlags) config() (model.AnalyzeConfig, error) {
	algo, err := analyzer.ParseAlgorithm(f.algorithm)
	if err != nil {
		return model.AnalyzeConfig{}, fmt.Errorf("invalid --algo: %w", err)
	}
	cfg := model.AnalyzeConfig{
		Algorithm:          string(algo),
		Iterations:         f.iterations,
		Restarts:           f.restarts,
		Alpha:              f.alpha,
		InitialTemperature: f.initialTemp,
		FinalTemperature:   f.finalTemp,
		Seed:               f.seed,
		RandomStart:        !f.identityStart,
	}
	if cfg.Iterations <= 0 {
		cfg.Iterations = analyzer.DefaultIterations
	}
	if err := validateAnalyzeConfig(cfg); err != nil {
		return model.AnalyzeConfig{}, err
	}
	return cfg, nil
}

func validateAnalyzeConfig(cfg model.AnalyzeConfig) error {
	if cfg.Restarts <= 0 {
		return fmt.Errorf("--restarts must be > 0")
	}
	if cfg.Alpha < 0 {
		return fmt.Errorf("--alpha must be >= 0")
	}
	if cfg.InitialTemperature <= 0 || cfg.FinalTemperature <= 0 {
		return fmt.Errorf("--t0 and --tf must be > 0")
	}
	if cfg.FinalTemperature > cfg.InitialTemperature {
		return fmt.Errorf("--tf must not exceed --t0")
	}
	return nil
}

func analyzerOptions(cfg model.AnalyzeConfig) analyzer.Options {
	opts := analyzer.DefaultOptions()
	opts.Algorithm = analyzer.Algorithm(cfg.Algorithm)
	opts.Iterations = cfg.Iterations
	opts.Restarts = cfg.Restarts
	opts.Alpha = cfg.Alpha
	opts.InitialTemperature = cfg.InitialTemperature
	opts.FinalTemperature = cfg.FinalTemperature
	opts.Seed = cfg.Seed
	opts.RandomStart = cfg.RandomStart
	opts.Logger = logger
	return opts
}

func describeConfig(cfg model.AnalyzeConfig) string {
	return fmt.Sprintf("iterations=%d restarts=%d alpha=%g t0=%g tf=%g seed=%d random-start=%t",
		cfg.Iterations, cfg.Restarts, cfg.Alpha, cfg.InitialTemperature, cfg.FinalTemperature, cfg.Seed, cfg.RandomStart)
}

// loadReference returns bigram weights and, unless path is a count table,
// the reference text they were built from.
func loadReference(path string, alpha float64) (*langmodel.Weights, string, error) {
	alphabet := cipher.DefaultAlphabet()
	if strings.HasSuffix(strings.ToLower(path), langmodel.TableExt) {
		w, err := langmodel.LoadFile(path, alpha, alphabet)
		if err != nil {
			return nil, "", err
		}
		return w, "", nil
	}
	text, err := corpus.LoadOrSample(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load corpus: %w", err)
	}
	w, err := langmodel.LoadWeights(text, alpha, alphabet)
	if err != nil {
		return nil, "", err
	}
	if w.Degenerate() {
		logger.Warn("corpus has no letter pairs; scoring is uniform", "corpus", path)
	}
	logger.Info("loaded reference", "corpus", path, "bigrams", w.Total())
	return w, text, nil
}

// readInput reads path, or stdin when path is empty or "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

var (
	analyzeSearch      searchFlags
	analyzeCipherPath  string
	analyzeSave        bool
	analyzeSaveBigrams string
	analyzeCurve       bool
)

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Recover the key of a ciphertext",
		Long:  "Recover the key of a ciphertext. Prints the key on the first line and the plaintext after it.",
		Args:  cobra.NoArgs,
		RunE:  runAnalyzeCmd,
	}
	analyzeSearch.register(cmd)
	cmd.Flags().StringVar(&analyzeCipherPath, "cipher", "", "ciphertext file (default: stdin)")
	cmd.Flags().BoolVar(&analyzeSave, "save", false, "store the run in the history database")
	cmd.Flags().StringVar(&analyzeSaveBigrams, "save-bigrams", "", "write the bigram count table to this path")
	cmd.Flags().BoolVar(&analyzeCurve, "curve", false, "plot the score trajectory to stderr")
	return cmd
}

func runAnalyzeCmd(cmd *cobra.Command, _ []string) error {
	analyzeSearch.applyFile(cmd)
	cfg, err := analyzeSearch.config()
	if err != nil {
		return err
	}
	cipherText, err := readInput(cmd, analyzeCipherPath)
	if err != nil {
		return err
	}
	w, _, err := loadReference(analyzeSearch.corpusPath, cfg.Alpha)
	if err != nil {
		return err
	}
	if analyzeSaveBigrams != "" {
		if err := langmodel.SaveFile(analyzeSaveBigrams, w); err != nil {
			return fmt.Errorf("failed to write bigram table: %w", err)
		}
		logger.Info("wrote bigram table", "path", analyzeSaveBigrams)
	}

	opts := analyzerOptions(cfg)
	var traj stats.Trajectory
	if analyzeCurve {
		opts.Trace = func(s analyzer.Step) {
			traj.Record(s.Current, s.Best, s.Accepted)
		}
	}
	a, err := analyzer.New(opts)
	if err != nil {
		return err
	}
	res, err := a.Analyze(cmd.Context(), cipherText, w)
	status := "ok"
	if err != nil {
		// Interrupted searches still report their best key.
		logger.Warn("analysis interrupted", "err", err, "iterations", res.Iterations)
		status = "interrupted"
	}
	logger.Info("analysis finished", "score", res.Score, "iterations", res.Iterations,
		"accepted", res.Accepted, "elapsed", res.Elapsed.Round(time.Millisecond))

	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintln(out, res.Key.String()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if _, err := fmt.Fprintln(out, res.Plaintext); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if analyzeCurve {
		if err := stats.RenderTrajectory(cmd.ErrOrStderr(), traj, 0, stats.PlotOptions{}); err != nil {
			return fmt.Errorf("failed to render trajectory: %w", err)
		}
	}

	if analyzeSave {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore(st)
		id, err := st.InsertAnalysis(context.Background(), model.RunRecord{
			Algorithm: cfg.Algorithm,
			Params:    describeConfig(cfg),
			Key:       res.Key.String(),
			Plaintext: res.Plaintext,
			Score:     res.Score,
			ElapsedMs: res.Elapsed.Milliseconds(),
			Status:    status,
		})
		if err != nil {
			return fmt.Errorf("failed to save run: %w", err)
		}
		logger.Info("saved run", "id", id)
	}
	return nil
}

var (
	encryptInPath string
	encryptKey    string
	encryptSeed   int64
)

func newEncryptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt text with a given or random key",
		Long:  "Encrypt text with a given or random key. Prints the key on the first line and the ciphertext after it.",
		Args:  cobra.NoArgs,
		RunE:  runEncryptCmd,
	}
	cmd.Flags().StringVar(&encryptInPath, "in", "", "plaintext file (default: stdin)")
	cmd.Flags().StringVar(&encryptKey, "key", "", "26-letter key; position i replaces the i-th letter")
	cmd.Flags().Int64Var(&encryptSeed, "seed", 0, "seed for the random key when --key is not set")
	return cmd
}

func runEncryptCmd(cmd *cobra.Command, _ []string) error {
	alphabet := cipher.DefaultAlphabet()
	var key cipher.Key
	if encryptKey != "" {
		parsed, err := cipher.NewKey(alphabet, encryptKey)
		if err != nil {
			return fmt.Errorf("invalid --key: %w", err)
		}
		key = parsed
	} else {
		seed := encryptSeed
		if !cmd.Flags().Changed("seed") {
			seed = time.Now().UnixNano()
		}
		key = generator.New(seed).Key(alphabet)
	}
	text, err := readInput(cmd, encryptInPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintln(out, key.String()); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if _, err := fmt.Fprint(out, cipher.Encrypt(text, key)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
