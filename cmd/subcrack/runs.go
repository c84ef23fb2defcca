package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/subcrack/internal/config"
	"github.com/verte-zerg/subcrack/internal/corpus"
	"github.com/verte-zerg/subcrack/internal/model"
	"github.com/verte-zerg/subcrack/internal/runsui"
	"github.com/verte-zerg/subcrack/internal/stats"
)

var (
	runsKind  string
	runsSince string
	runsLast  int
	runsPlain bool
)

func newRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse stored runs",
		Args:  cobra.NoArgs,
		RunE:  runRunsCmd,
	}
	cmd.Flags().StringVar(&runsKind, "kind", "", "run kind (analyze, converge or bench)")
	cmd.Flags().StringVar(&runsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&runsLast, "last", 0, "limit to last N runs")
	cmd.Flags().BoolVar(&runsPlain, "plain", false, "print a table instead of the TUI")
	cmd.AddCommand(newRunsShowCmd())
	return cmd
}

func runRunsCmd(cmd *cobra.Command, _ []string) error {
	filter, err := runsFilter(runsKind, runsSince, runsLast)
	if err != nil {
		return err
	}
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	if runsPlain {
		runs, err := st.ListRuns(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		return stats.RenderRuns(cmd.OutOrStdout(), runs)
	}
	program := tea.NewProgram(runsui.NewModel(st, filter), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run runs TUI: %w", err)
	}
	return nil
}

func runsFilter(kind, since string, last int) (model.RunFilter, error) {
	var filter model.RunFilter
	switch k := model.RunKind(strings.ToLower(kind)); k {
	case "", model.KindAnalyze, model.KindConverge, model.KindBench:
		filter.Kind = k
	default:
		return filter, fmt.Errorf("invalid --kind %q (use analyze, converge or bench)", kind)
	}
	if since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return filter, fmt.Errorf("invalid --since value: %w", err)
		}
		filter.Since = &parsed
	}
	if last < 0 {
		return filter, fmt.Errorf("--last must be >= 0")
	}
	filter.Last = last
	return filter, nil
}

func newRunsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Print the report of one run (ID prefixes are accepted)",
		Args:  cobra.ExactArgs(1),
		RunE:  runRunsShowCmd,
	}
}

func runRunsShowCmd(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore(st)

	runs, err := st.ListRuns(cmd.Context(), model.RunFilter{})
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	run, err := findRun(runs, args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if run.Kind == model.KindAnalyze {
		_, err := fmt.Fprintf(out, "%s  %s  %s\n%s\nscore %.4f  %dms  %s\n\n%s\n",
			run.ID, run.Kind, run.Algorithm, run.Params, run.Score, run.ElapsedMs, run.Status, run.Key)
		if err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		if _, err := fmt.Fprintln(out, run.Plaintext); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	report, err := stats.BuildReport(cmd.Context(), st, run)
	if err != nil {
		return err
	}
	return stats.RenderReport(out, report, stats.PlotOptions{})
}

// findRun matches id against full IDs first, then unique prefixes.
func findRun(runs []model.RunRecord, id string) (model.RunRecord, error) {
	var matches []model.RunRecord
	for _, run := range runs {
		if run.ID == id {
			return run, nil
		}
		if strings.HasPrefix(run.ID, id) {
			matches = append(matches, run)
		}
	}
	switch len(matches) {
	case 0:
		return model.RunRecord{}, fmt.Errorf("no run matches %q", id)
	case 1:
		return matches[0], nil
	}
	return model.RunRecord{}, fmt.Errorf("%q matches %d runs", id, len(matches))
}

var (
	corpusURL   string
	corpusForce bool
)

func newCorpusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Manage reference corpora",
	}
	fetch := &cobra.Command{
		Use:   "fetch",
		Short: "Download a reference text into the cache",
		Args:  cobra.NoArgs,
		RunE:  runCorpusFetchCmd,
	}
	fetch.Flags().StringVar(&corpusURL, "url", "", "text or .gz URL to download")
	fetch.Flags().BoolVar(&corpusForce, "force", false, "download even if cached")
	_ = fetch.MarkFlagRequired("url")
	cmd.AddCommand(fetch)
	return cmd
}

func runCorpusFetchCmd(cmd *cobra.Command, _ []string) error {
	dl, err := corpus.Fetch(cmd.Context(), corpusURL, config.DefaultCorpusCacheDir(), corpusForce)
	if err != nil {
		return err
	}
	if dl.Cached {
		logger.Info("corpus already cached", "path", dl.Path)
	} else {
		logger.Info("downloaded corpus", "path", dl.Path, "bytes", dl.Bytes)
	}
	if _, err := fmt.Fprintln(cmd.OutOrStdout(), dl.Path); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
