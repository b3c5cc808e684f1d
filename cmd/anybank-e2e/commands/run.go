package commands

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/anybank/anybank-e2e/cmd/anybank-e2e/internal/clierr"
	"github.com/anybank/anybank-e2e/internal/anybank"
	"github.com/anybank/anybank-e2e/internal/config"
	"github.com/anybank/anybank-e2e/internal/harness"
	"github.com/anybank/anybank-e2e/internal/history"
	"github.com/anybank/anybank-e2e/internal/logging"
	"github.com/anybank/anybank-e2e/internal/scenarios"
	"github.com/anybank/anybank-e2e/internal/session"
)

var (
	runJSON     bool
	runPlain    bool
	runHeadless bool
	runTimeout  time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run <all|suite>",
	Short: "Run check suites against a live deployment",
	Long: `Run one or all suites in order. Checks within a suite run strictly
sequentially and share one session; results are recorded in the local
run history.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runSuites(cmd, args)
	},
}

func init() {
	runCmd.PersistentFlags().BoolVar(&runJSON, "json", false, "output results as JSON")
	runCmd.PersistentFlags().BoolVar(&runPlain, "plain", false, "disable styled output")
	runCmd.PersistentFlags().BoolVar(&runHeadless, "headless", true, "run the browser headless")
	runCmd.PersistentFlags().DurationVar(&runTimeout, "timeout", 0, "override the per-request HTTP timeout")

	runCmd.AddCommand(runListCmd)
	runCmd.AddCommand(runAllCmd)
	runCmd.AddCommand(runReportCmd)
}

// GetRunCmd exposes the command to the root.
func GetRunCmd() *cobra.Command {
	return runCmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, clierr.Wrap(2, "loading configuration", err)
	}
	if cmd.Flags().Changed("headless") {
		cfg.Headless = runHeadless
	}
	if runTimeout > 0 {
		cfg.HTTPTimeout = runTimeout
	}
	return cfg, nil
}

func runSuites(cmd *cobra.Command, names []string) error {
	var suites []harness.Suite
	for _, name := range names {
		if name == "all" {
			suites = scenarios.All()
			break
		}
		s, err := scenarios.ByName(name)
		if err != nil {
			return clierr.Wrap(2, "resolving suite", err)
		}
		suites = append(suites, s)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	logger := logging.NewDefault(cfg.LogLevel)
	sess, err := session.New()
	if err != nil {
		return clierr.Wrap(1, "initializing session", err)
	}

	deps := &harness.Deps{
		Config:  cfg,
		Log:     logger,
		Session: sess,
		Bank:    anybank.New(cfg, sess, logger),
	}

	results, err := harness.NewRunner(deps).RunAll(cmd.Context(), suites)
	if err != nil {
		return clierr.Wrap(1, "running suites", err)
	}

	if store, herr := history.Open(cfg.HistoryPath); herr != nil {
		logger.Warn("run history unavailable", "err", herr)
	} else {
		if _, herr := store.RecordRun(results); herr != nil {
			logger.Warn("recording run", "err", herr)
		}
		store.Close()
	}

	out := cmd.OutOrStdout()
	if runJSON {
		rendered, jerr := harness.RenderJSON(results)
		if jerr != nil {
			return clierr.Wrap(1, "rendering results", jerr)
		}
		fmt.Fprintln(out, rendered)
	} else {
		fmt.Fprint(out, harness.RenderSummary(results, !runPlain))
	}

	if !harness.Succeeded(results) {
		return clierr.New(1, "one or more checks failed")
	}
	return nil
}

var runListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available suites",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if runJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"suites": scenarios.Names()})
		}
		for _, s := range scenarios.All() {
			fmt.Fprintf(out, "%-10s %s\n", s.Name, s.Description)
		}
		return nil
	},
}

var runAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Run every suite in order",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSuites(cmd, []string{"all"})
	},
}

var runReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the last recorded run",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := history.Open(cfg.HistoryPath)
		if err != nil {
			return clierr.Wrap(1, "opening run history", err)
		}
		defer store.Close()

		last, err := store.LastRun()
		if err != nil {
			return clierr.Wrap(1, "reading run history", err)
		}
		out := cmd.OutOrStdout()
		if last == nil {
			fmt.Fprintln(out, "No recorded runs.")
			return nil
		}

		results, err := store.Results(last.ID)
		if err != nil {
			return clierr.Wrap(1, "reading run results", err)
		}

		if runJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"run": last, "results": results})
		}

		verdict := "PASS"
		if !last.Passed {
			verdict = "FAIL"
		}
		fmt.Fprintf(out, "Run %s  %s  (%s, %s)\n", last.ID, verdict,
			last.Started.Format("2006-01-02 15:04:05"), last.Duration)
		for _, r := range results {
			fmt.Fprintf(out, "  [%s] %s/%s", r.Status, r.Suite, r.Check)
			if r.Message != "" {
				fmt.Fprintf(out, ": %s", r.Message)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}
