package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/polyinline/internal/ir"
	"github.com/roach88/polyinline/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Outcome  string // optional - filter to one outcome
}

// TracePass summarizes one stored pass.
type TracePass struct {
	ID         string `json:"id"`
	Ordinal    int    `json:"ordinal"`
	Scenario   string `json:"scenario"`
	Changed    bool   `json:"changed"`
	Cumulative int    `json:"cumulative"`
	Digest     string `json:"decisions_digest"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunID     string         `json:"run_id"`
	Passes    []TracePass    `json:"passes"`
	Decisions []ir.Decision  `json:"decisions"`
	Stats     map[string]int `json:"stats"` // decisions per outcome
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the journaled decisions of a run",
		Long: `Print the decision journal of one run: its passes, then every decision
in clock order with the callees considered and the budget after it.

Examples:
  polyinline trace --db ./inline.db --run 0190f5c2-...
  polyinline trace --db ./inline.db --run monomorphic_budget --outcome skipped
  polyinline trace --db ./inline.db --run monomorphic_budget --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to trace (required)")
	_ = cmd.MarkFlagRequired("run")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "only show decisions with this outcome")

	return cmd
}

var validOutcomes = []ir.Outcome{
	ir.OutcomeInlined, ir.OutcomeDeclined, ir.OutcomeRejected,
	ir.OutcomeDeferred, ir.OutcomeSkipped, ir.OutcomeDiscarded,
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if opts.Outcome != "" && !isValidOutcome(opts.Outcome) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid outcome %q: must be one of %v", opts.Outcome, validOutcomes))
	}

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
	if len(passes) == 0 {
		_ = f.Error(ErrCodeNotFound, fmt.Sprintf("run %s not found", opts.RunID), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("run %s not found", opts.RunID))
	}

	var decisions []ir.Decision
	if opts.Outcome != "" {
		decisions, err = st.ReadDecisionsByOutcome(ctx, opts.RunID, ir.Outcome(opts.Outcome))
	} else {
		decisions, err = st.ReadRunDecisions(ctx, opts.RunID)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read decisions", err)
	}

	result := TraceResult{
		RunID:     opts.RunID,
		Passes:    make([]TracePass, 0, len(passes)),
		Decisions: decisions,
		Stats:     make(map[string]int),
	}
	for _, p := range passes {
		result.Passes = append(result.Passes, TracePass{
			ID:         p.ID,
			Ordinal:    p.Ordinal,
			Scenario:   p.Scenario,
			Changed:    p.Changed,
			Cumulative: p.Cumulative,
			Digest:     p.DecisionsDigest,
		})
	}
	for _, d := range decisions {
		result.Stats[string(d.Outcome)]++
	}

	if f.JSON() {
		return f.Success(result)
	}
	outputTraceText(f, result)
	return nil
}

func isValidOutcome(s string) bool {
	for _, o := range validOutcomes {
		if string(o) == s {
			return true
		}
	}
	return false
}

// openExisting opens a journal that must already exist; store.Open would
// silently create an empty one.
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func outputTraceText(f *OutputFormatter, result TraceResult) {
	w := f.Writer

	fmt.Fprintf(w, "Run: %s\n", result.RunID)
	for _, p := range result.Passes {
		fmt.Fprintf(w, "  Pass %d: %s (%s) changed=%v cumulative=%d\n", p.Ordinal, p.ID, p.Scenario, p.Changed, p.Cumulative)
		if f.Verbose {
			fmt.Fprintf(w, "    decisions digest: %s\n", p.Digest)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Decisions:")
	if len(result.Decisions) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, d := range result.Decisions {
		fmt.Fprintf(w, "  %s\n", formatDecision(d))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Stats: %d decision(s)", len(result.Decisions))
	for _, o := range validOutcomes {
		if n := result.Stats[string(o)]; n > 0 {
			fmt.Fprintf(w, ", %d %s", n, o)
		}
	}
	fmt.Fprintln(w)
}

// formatDecision renders one journal entry on a single line:
//
//	[3] #19:Call deferred/queued freq=0.5 size=300 cumulative=12 [b:300]
func formatDecision(d ir.Decision) string {
	callees := make([]string, len(d.Callees))
	for i, c := range d.Callees {
		mark := ""
		if !c.Inlinable {
			mark = "!"
		}
		callees[i] = fmt.Sprintf("%s%s:%d", mark, c.Name, c.Size)
	}
	line := fmt.Sprintf("[%d] #%d:%s %s/%s freq=%s size=%d cumulative=%d [%s]",
		d.Seq, d.Node, d.Mnemonic, d.Outcome, d.Reason, d.Frequency, d.TotalSize, d.Cumulative,
		strings.Join(callees, " "))
	if d.Dispatch != ir.DispatchNone {
		line += " dispatch=" + string(d.Dispatch)
	}
	return line
}
