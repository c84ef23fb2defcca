// Package main provides the CLI entrypoint for subcrack.
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/subcrack/internal/config"
	"github.com/verte-zerg/subcrack/internal/logging"
	"github.com/verte-zerg/subcrack/internal/store"
)

var (
	verbosity int
	quiet     bool
	dbPath    string

	fileCfg config.FileConfig
	logger  = logging.Discard()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	rootCmd := newRootCmd()
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "subcrack",
		Short:             "Recover substitution cipher keys with bigram-scored local search",
		SilenceUsage:      true,
		SilenceErrors:     false,
		PersistentPreRunE: setup,
	}
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress all logging")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default: XDG data dir)")

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newEncryptCmd())
	rootCmd.AddCommand(newConvergeCmd())
	rootCmd.AddCommand(newBenchCmd())
	rootCmd.AddCommand(newCorpusCmd())
	rootCmd.AddCommand(newRunsCmd())
	rootCmd.AddCommand(newConfigCmd())
	return rootCmd
}

func setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	fileCfg = cfg

	level := logging.LevelFromVerbosity(verbosity, quiet)
	if fileCfg.Log.Level != nil && !cmd.Flags().Changed("verbose") && !cmd.Flags().Changed("quiet") {
		level = logging.LevelFromString(*fileCfg.Log.Level)
	}
	logger = logging.New(os.Stderr, level)
	return nil
}

func openStore() (*store.Store, error) {
	path := dbPath
	if path == "" {
		path = config.DefaultDBPath()
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if cerr := st.Close(); cerr != nil {
		logger.Warn("failed to close db", "err", cerr)
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# subcrack configuration
# Uncomment a value to enable it. CLI flags override config values.

[analyze]
# algorithm = %q          # annealing or hillclimb
# iterations = %d          # Proposals per restart
# restarts = 4               # Independent restarts, best result wins
# alpha = %g               # Additive smoothing for bigram counts
# initial-temperature = %g  # Annealing start temperature
# final-temperature = %g  # Annealing end temperature
# seed = 0                   # 0 picks the default seed
# corpus = ""                # Reference text or .bigrams table

[converge]
# budgets = [1000, 5000, 20000]
# trials = %d
# workers = 0                # 0 uses every CPU
# min-letters = %d
# timeout = "10m"

[bench]
# cases = %d
# min-letters = %d
# workers = 1
# timeout = "%s"
# algorithms = ["annealing", "hillclimb"]
# exec = ["python3 solve.py {cipher} {bigrams}"]

[log]
# level = "warn"             # debug, info, warn, error or quiet
`,
		defaultAlgorithm,
		defaultIterations,
		defaultAlpha,
		defaultInitialTemp,
		defaultFinalTemp,
		defaultTrials,
		defaultMinLetters,
		defaultBenchCases,
		defaultMinLetters,
		defaultBenchTimeout,
	)
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyInt64Config(cmd *cobra.Command, name string, target, value *int64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntSliceConfig(cmd *cobra.Command, name string, target *[]int, value []int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = append([]int(nil), value...)
}

func applyStringSliceConfig(cmd *cobra.Command, name string, target *[]string, value []string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = append([]string(nil), value...)
}

func applyDurationConfig(cmd *cobra.Command, name string, target *time.Duration, value *string) error {
	if value == nil {
		return nil
	}
	if cmd.Flags().Changed(name) {
		return nil
	}
	d, err := time.ParseDuration(*value)
	if err != nil {
		return fmt.Errorf("invalid %s in config: %w", name, err)
	}
	*target = d
	return nil
}
