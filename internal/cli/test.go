package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/polyinline/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Golden string   `json:"golden,omitempty"` // "match", "updated" or "missing"
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-path>...",
		Short: "Run scenarios against their assertions and golden traces",
		Long: `Run each scenario in memory, check its assertions and compare the
decision trace with golden/<name>.golden next to the scenario file.
Scenarios without a golden file are checked against their assertions only.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  polyinline test ./testdata/scenarios
  polyinline test ./testdata/scenarios --filter "poly*"
  polyinline test ./testdata/scenarios --update
  polyinline test ./testdata/scenarios --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runTests(opts *TestOptions, paths []string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	for _, p := range paths {
		if _, err := os.Stat(p); os.IsNotExist(err) {
			_ = f.Error(ErrCodeNotFound, fmt.Sprintf("scenarios path not found: %s", p), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("scenarios path not found: %s", p))
		}
	}

	loaded, loadErrs := LoadScenarios(paths, opts.Filter, LoadModeCollectAll)
	if len(loaded) == 0 && len(loadErrs) == 0 {
		if f.JSON() {
			return f.Success(TestResult{Scenarios: []ScenarioResult{}})
		}
		fmt.Fprintln(f.Writer, "No scenarios found.")
		return nil
	}

	result := TestResult{Scenarios: make([]ScenarioResult, 0, len(loaded)+len(loadErrs))}

	for _, err := range loadErrs {
		var loadErr *LoadError
		if !errors.As(err, &loadErr) || loadErr.File == "" {
			_ = f.Error(errorCode(err), err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to find scenarios", err)
		}
		sr := ScenarioResult{
			Name:   filepath.Base(loadErr.File),
			Errors: []string{fmt.Sprintf("failed to load scenario: %v", err)},
		}
		report(f, sr)
		result.Scenarios = append(result.Scenarios, sr)
	}

	for _, l := range loaded {
		sr := runScenario(l, opts, f)
		report(f, sr)
		result.Scenarios = append(result.Scenarios, sr)
	}

	for _, sr := range result.Scenarios {
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}
	result.Total = len(result.Scenarios)

	if f.JSON() {
		if err := f.Respond(result, result.Failed > 0, "E_TEST_FAILED", fmt.Sprintf("%d scenario(s) failed", result.Failed)); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(f.Writer)
		fmt.Fprintf(f.Writer, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	if !f.JSON() {
		fmt.Fprintln(f.Writer, "✓ All scenarios passed")
	}
	return nil
}

// runScenario executes a single scenario and returns the result.
func runScenario(l LoadedScenario, opts *TestOptions, f *OutputFormatter) ScenarioResult {
	s := l.Scenario
	sr := ScenarioResult{Name: s.Name}

	f.VerboseLog("running %s", l.Path)
	result, err := harness.Run(s, harness.WithLogger(f.Logger()))
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("execution failed: %v", err)}
		return sr
	}

	snapshot := harness.NewTraceSnapshot(s.Name, result)
	trace, err := snapshot.MarshalTrace()
	if err != nil {
		sr.Errors = []string{fmt.Sprintf("failed to marshal trace: %v", err)}
		return sr
	}

	goldenPath := goldenFilePath(l.Path)
	switch {
	case opts.Update:
		if err := writeGolden(goldenPath, trace); err != nil {
			sr.Errors = []string{fmt.Sprintf("failed to update golden file: %v", err)}
			return sr
		}
		sr.Golden = "updated"
	default:
		golden, err := os.ReadFile(goldenPath)
		switch {
		case os.IsNotExist(err):
			sr.Golden = "missing"
		case err != nil:
			sr.Errors = []string{fmt.Sprintf("failed to read golden file: %v", err)}
			return sr
		case !bytes.Equal(golden, trace):
			sr.Errors = append(sr.Errors, "trace does not match golden file (run with --update to regenerate)")
		default:
			sr.Golden = "match"
		}
	}

	sr.Errors = append(sr.Errors, result.Errors...)
	sr.Pass = len(sr.Errors) == 0
	return sr
}

func report(f *OutputFormatter, sr ScenarioResult) {
	if f.JSON() {
		return
	}
	w := f.Writer
	if sr.Pass {
		if sr.Golden == "updated" {
			fmt.Fprintf(w, "✓ %s (golden updated)\n", sr.Name)
			return
		}
		fmt.Fprintf(w, "✓ %s\n", sr.Name)
		return
	}
	fmt.Fprintf(w, "✗ %s\n", sr.Name)
	for _, e := range sr.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
