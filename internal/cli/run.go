package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/polyinline/internal/config"
	"github.com/roach88/polyinline/internal/harness"
	"github.com/roach88/polyinline/internal/heuristic"
	"github.com/roach88/polyinline/internal/ir"
	"github.com/roach88/polyinline/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Config   string // CUE file replacing every scenario's embedded config
	RunID    string
	// Deterministic keeps the scenario's own pass ids and uses the
	// scenario name as run id.
	Deterministic bool

	// PassGenerator overrides the pass id generator (for testing).
	// If nil, defaults to heuristic.UUIDv7Generator.
	PassGenerator heuristic.PassIDGenerator
}

// RunScenarioResult summarizes one scenario of a run.
type RunScenarioResult struct {
	Name       string               `json:"name"`
	RunID      string               `json:"run_id"`
	Pass       bool                 `json:"pass"`
	Passes     []harness.PassResult `json:"passes"`
	Inlined    []string             `json:"inlined"`
	Cumulative int                  `json:"cumulative"`
	Decisions  []ir.Decision        `json:"decisions"`
	Sites      map[string]ir.NodeID `json:"sites"`
	Errors     []string             `json:"errors,omitempty"`
}

// RunResult holds the results of all scenarios of a run.
type RunResult struct {
	Database  string              `json:"database"`
	Scenarios []RunScenarioResult `json:"scenarios"`
	Failed    int                 `json:"failed"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario-path>...",
		Short: "Run scenarios and journal the decisions",
		Long: `Run the inlining heuristic over each scenario to a fixpoint and journal
every pass and decision to a SQLite database (created if it doesn't exist).

Pass ids are UUIDv7 and every scenario gets a fresh run id, unless
--deterministic is set. The journal is verified after each scenario.

Exit codes:
  0 - All scenario assertions hold
  1 - One or more assertions failed
  2 - Command error (invalid paths, database errors, bad config)

Examples:
  polyinline run --db ./inline.db ./testdata/scenarios
  polyinline run --db ./inline.db --config stress.cue scenario.yaml --verbose`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Config, "config", "", "CUE configuration overriding the scenarios' own")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "run id (single scenario only)")
	cmd.Flags().BoolVar(&opts.Deterministic, "deterministic", false, "use scenario pass ids and names as run ids")

	return cmd
}

func runScenarios(opts *RunOptions, paths []string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := f.Logger()

	loaded, loadErrs := LoadScenarios(paths, "", LoadModeFailFast)
	if len(loadErrs) > 0 {
		_ = f.Error(errorCode(loadErrs[0]), loadErrs[0].Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenarios", loadErrs[0])
	}
	if len(loaded) == 0 {
		_ = f.Error(ErrCodeNoFiles, "no scenario files found", nil)
		return NewExitError(ExitCommandError, "no scenario files found")
	}
	if opts.RunID != "" && len(loaded) > 1 {
		return NewExitError(ExitCommandError, "--run-id requires a single scenario")
	}

	override := ""
	if opts.Config != "" {
		if _, err := config.Load(opts.Config); err != nil {
			_ = f.Error(ErrCodeConfig, err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid configuration", err)
		}
		data, err := os.ReadFile(opts.Config)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read configuration", err)
		}
		override = string(data)
	}

	logger.Debug("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		_ = f.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result := RunResult{Database: opts.Database, Scenarios: make([]RunScenarioResult, 0, len(loaded))}
	for _, l := range loaded {
		s := l.Scenario
		if override != "" {
			s.Config = override
		}

		runOpts := []harness.Option{harness.WithStore(st), harness.WithLogger(logger)}
		if !opts.Deterministic {
			gen := opts.PassGenerator
			if gen == nil {
				gen = heuristic.UUIDv7Generator{}
			}
			runID := opts.RunID
			if runID == "" {
				runID = uuid.Must(uuid.NewV7()).String()
			}
			runOpts = append(runOpts, harness.WithPassIDGenerator(gen), harness.WithRunID(runID))
		}

		logger.Info("running scenario", "scenario", s.Name, "file", l.Path)
		res, err := harness.RunContext(ctx, s, runOpts...)
		if err != nil {
			_ = f.Error(ErrCodeGeneric, fmt.Sprintf("%s: %v", s.Name, err), nil)
			return WrapExitError(ExitCommandError, fmt.Sprintf("scenario %s failed to run", s.Name), err)
		}

		result.Scenarios = append(result.Scenarios, RunScenarioResult{
			Name:       s.Name,
			RunID:      res.RunID,
			Pass:       res.Pass,
			Passes:     res.Passes,
			Inlined:    res.Inlined,
			Cumulative: res.Cumulative,
			Decisions:  res.Decisions,
			Sites:      res.Sites,
			Errors:     res.Errors,
		})
		if !res.Pass {
			result.Failed++
		}
	}

	if f.JSON() {
		if err := f.Respond(result, result.Failed > 0, "E_ASSERTION", fmt.Sprintf("%d scenario(s) failed", result.Failed)); err != nil {
			return err
		}
	} else {
		outputRunText(f, result)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

func outputRunText(f *OutputFormatter, result RunResult) {
	w := f.Writer
	for _, s := range result.Scenarios {
		status := "✓"
		if !s.Pass {
			status = "✗"
		}
		fmt.Fprintf(w, "%s %s (run %s)\n", status, s.Name, s.RunID)
		fmt.Fprintf(w, "  Passes: %d, decisions: %d, cumulative size: %d\n", len(s.Passes), len(s.Decisions), s.Cumulative)
		fmt.Fprintf(w, "  Inlined: %v\n", s.Inlined)
		if f.Verbose {
			for _, d := range s.Decisions {
				fmt.Fprintf(w, "    %s\n", formatDecision(d))
			}
		}
		for _, e := range s.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
}
