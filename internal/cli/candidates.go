package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/polyinline/internal/harness"
)

// CandidatesResult is the JSON payload of the candidates command.
type CandidatesResult struct {
	Scenario string `json:"scenario"`
	Pending  int    `json:"pending"`
	Dump     string `json:"dump"`
}

// NewCandidatesCommand creates the candidates command.
func NewCandidatesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "candidates <scenario.yaml>",
		Short: "Show the queue after one traversal",
		Long: `Build a scenario and visit every node once, then print the call sites
waiting in the candidate queue, in the order they would be committed.

Small and force-inlined callees are committed during the traversal and
do not appear.

Example:
  polyinline candidates ./testdata/scenarios/monomorphic_budget.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCandidates(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runCandidates(opts *RootOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	s, err := loadOne(path)
	if err != nil {
		_ = f.Error(errorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	if !f.JSON() {
		if _, err := harness.Inspect(s, f.Writer); err != nil {
			return WrapExitError(ExitCommandError, "failed to inspect scenario", err)
		}
		return nil
	}

	var sb strings.Builder
	n, err := harness.Inspect(s, &sb)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to inspect scenario", err)
	}
	return f.Success(CandidatesResult{Scenario: s.Name, Pending: n, Dump: sb.String()})
}
