package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationError is one problem reported by validate.
type ValidationError struct {
	File    string `json:"file,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Scenarios []string          `json:"scenarios"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario-path>...",
		Short: "Check scenario files without running them",
		Long: `Parse and validate scenario files and their embedded configuration.

Each path is a scenario file or a directory searched recursively for
.yaml and .yml files. Every file is checked; all problems are reported.

Exit codes:
  0 - All scenarios are valid
  1 - One or more scenarios are invalid
  2 - Command error (path not found, etc.)

Examples:
  polyinline validate ./testdata/scenarios
  polyinline validate a.yaml b.yaml --format json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	f := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	loaded, loadErrs := LoadScenarios(paths, "", LoadModeCollectAll)
	if loaded == nil && len(loadErrs) == 1 {
		code := errorCode(loadErrs[0])
		if code == ErrCodeNotFound || code == ErrCodeScanError {
			_ = f.Error(code, loadErrs[0].Error(), nil)
			return WrapExitError(ExitCommandError, "cannot read scenarios", loadErrs[0])
		}
	}

	result := ValidationResult{Valid: len(loadErrs) == 0, Scenarios: []string{}}
	for _, l := range loaded {
		f.VerboseLog("Validated %s (%s)", l.Scenario.Name, l.Path)
		result.Scenarios = append(result.Scenarios, l.Scenario.Name)
	}
	for _, err := range loadErrs {
		ve := ValidationError{Code: errorCode(err), Message: err.Error()}
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			ve.File = loadErr.File
			ve.Message = loadErr.Message
			ve.Line = loadErr.Line()
		}
		result.Errors = append(result.Errors, ve)
	}

	if len(loaded) == 0 && len(loadErrs) == 0 {
		_ = f.Error(ErrCodeNoFiles, "no scenario files found", nil)
		return NewExitError(ExitCommandError, "no scenario files found")
	}

	if f.JSON() {
		if err := f.Respond(result, !result.Valid, "E_INVALID", fmt.Sprintf("%d invalid scenario(s)", len(result.Errors))); err != nil {
			return err
		}
	} else {
		w := f.Writer
		for _, ve := range result.Errors {
			if ve.Line > 0 {
				fmt.Fprintf(w, "✗ %s:%d: [%s] %s\n", ve.File, ve.Line, ve.Code, ve.Message)
			} else {
				fmt.Fprintf(w, "✗ %s: [%s] %s\n", ve.File, ve.Code, ve.Message)
			}
		}
		if result.Valid {
			fmt.Fprintf(w, "✓ %d scenario(s) valid\n", len(result.Scenarios))
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("%d invalid scenario(s)", len(result.Errors)))
	}
	return nil
}
