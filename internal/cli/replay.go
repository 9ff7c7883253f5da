package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/polyinline/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
}

// ReplayRunResult holds the verification result for a single run.
type ReplayRunResult struct {
	RunID     string   `json:"run_id"`
	Passes    int      `json:"passes"`
	Decisions int      `json:"decisions"`
	Verified  bool     `json:"verified"`
	Mismatch  []string `json:"mismatch,omitempty"` // pass ids whose digest differs
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs        []ReplayRunResult `json:"runs"`
	TotalRuns   int               `json:"total_runs"`
	AllVerified bool              `json:"all_verified"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-read the journal and verify decision digests",
		Long: `Re-read every journaled pass and recompute the digest of its decisions
from the stored rows. A pass whose rows no longer hash to the digest
recorded with it was altered or written by a different heuristic.

Exit codes:
  0 - Every pass verified
  1 - One or more digests do not match
  2 - Command error (database not found, etc.)

Examples:
  polyinline replay --db ./inline.db
  polyinline replay --db ./inline.db --run monomorphic_budget
  polyinline replay --db ./inline.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "verify a specific run only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := openExisting(opts.Database)
	if err != nil {
		_ = f.Error(ErrCodeStore, err.Error(), nil)
		return err
	}
	defer st.Close()

	passes, err := st.ListPasses(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list passes", err)
	}
	if opts.RunID != "" && len(passes) == 0 {
		_ = f.Error(ErrCodeNotFound, fmt.Sprintf("run %s not found", opts.RunID), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("run %s not found", opts.RunID))
	}

	result := ReplayResult{Runs: []ReplayRunResult{}, AllVerified: true}
	index := make(map[string]int)
	for _, p := range passes {
		i, ok := index[p.RunID]
		if !ok {
			i = len(result.Runs)
			index[p.RunID] = i
			result.Runs = append(result.Runs, ReplayRunResult{RunID: p.RunID, Verified: true})
		}
		run := &result.Runs[i]

		ok, n, err := verifyPass(ctx, st, p.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay pass %s", p.ID), err)
		}
		run.Passes++
		run.Decisions += n
		if !ok {
			run.Verified = false
			run.Mismatch = append(run.Mismatch, p.ID)
			result.AllVerified = false
		}
	}
	result.TotalRuns = len(result.Runs)

	if f.JSON() {
		if err := f.Respond(result, !result.AllVerified, "E_DIGEST", "decision digest verification failed"); err != nil {
			return err
		}
	} else {
		outputReplayText(f, result)
	}

	if !result.AllVerified {
		return NewExitError(ExitFailure, "decision digest verification failed")
	}
	return nil
}

// verifyPass reports whether the pass's stored decisions match its
// recorded digest, and how many decisions it holds. Only failures other
// than a digest mismatch are returned as errors.
func verifyPass(ctx context.Context, st *store.Store, passID string) (bool, int, error) {
	decisions, err := st.ReadDecisions(ctx, passID)
	if err != nil {
		return false, 0, err
	}
	err = st.VerifyPass(ctx, passID)
	var mismatch *store.DigestMismatchError
	if errors.As(err, &mismatch) {
		return false, len(decisions), nil
	}
	if err != nil {
		return false, 0, err
	}
	return true, len(decisions), nil
}

func outputReplayText(f *OutputFormatter, result ReplayResult) {
	w := f.Writer

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.TotalRuns)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		status := "✓"
		if !run.Verified {
			status = "✗"
		}
		fmt.Fprintf(w, "%s Run: %s\n", status, run.RunID)
		fmt.Fprintf(w, "  %d pass(es), %d decision(s)\n", run.Passes, run.Decisions)
		for _, id := range run.Mismatch {
			fmt.Fprintf(w, "  Warning: digest mismatch in pass %s\n", id)
		}
		fmt.Fprintln(w)
	}

	if result.AllVerified {
		fmt.Fprintln(w, "✓ All passes verified")
		return
	}
	fmt.Fprintln(w, "✗ Digest verification failed")
}
