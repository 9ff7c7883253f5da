package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/polyinline/internal/config"
	"github.com/roach88/polyinline/internal/heuristic"
)

// ConfigOptions holds flags for the config command.
type ConfigOptions struct {
	*RootOptions
	OutputFile string
}

// ConfigView is the JSON rendering of an effective configuration.
type ConfigView struct {
	MaxInlinedSize                 int     `json:"max_inlined_size"`
	MaxInlinedSizeSmall            int     `json:"max_inlined_size_small"`
	MaxInlinedSizeAbsolute         int     `json:"max_inlined_size_absolute"`
	MaxInlinedSizeCumulative       int     `json:"max_inlined_size_cumulative"`
	ReserveInlineBudgetScaleFactor float64 `json:"reserve_inline_budget_scale_factor"`
	MaxInliningLevels              int     `json:"max_inlining_levels"`
	MinInliningFrequency           float64 `json:"min_inlining_frequency"`
	PolymorphicInlining            bool    `json:"polymorphic_inlining"`
	MaxPolymorphism                int     `json:"max_polymorphism"`
	Mode                           string  `json:"mode"`
	TraceInlining                  bool    `json:"trace_inlining"`
}

func newConfigView(cfg heuristic.Config) ConfigView {
	return ConfigView{
		MaxInlinedSize:                 cfg.MaxInlinedSize,
		MaxInlinedSizeSmall:            cfg.MaxInlinedSizeSmall,
		MaxInlinedSizeAbsolute:         cfg.MaxInlinedSizeAbsolute,
		MaxInlinedSizeCumulative:       cfg.MaxInlinedSizeCumulative,
		ReserveInlineBudgetScaleFactor: cfg.ReserveInlineBudgetScaleFactor,
		MaxInliningLevels:              cfg.MaxInliningLevels,
		MinInliningFrequency:           cfg.MinInliningFrequency,
		PolymorphicInlining:            cfg.PolymorphicInlining,
		MaxPolymorphism:                cfg.MaxPolymorphism,
		Mode:                           cfg.Mode.String(),
		TraceInlining:                  cfg.TraceInlining,
	}
}

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ConfigOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "config [config.cue]",
		Short: "Print the effective heuristic configuration",
		Long: `Resolve a CUE configuration against the built-in defaults and print
the result. Without an argument the defaults are printed.

The configuration lives under the top-level "inlining" field:

  inlining: {
  	max_inlined_size_cumulative: 1200
  	mode: "stress"
  }

Examples:
  polyinline config
  polyinline config ./inlining.cue -o effective.cue
  polyinline config ./inlining.cue --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runConfig(opts, path, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.OutputFile, "output", "o", "", "write the rendered CUE to a file")

	return cmd
}

func runConfig(opts *ConfigOptions, path string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg := heuristic.DefaultConfig()
	if path != "" {
		f.VerboseLog("Loading configuration from %s", path)
		loaded, err := config.Load(path)
		if err != nil {
			loadErr := convertConfigError(path, err)
			_ = f.Error(loadErr.Code, loadErr.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid configuration", err)
		}
		cfg = loaded
	}

	rendered, err := config.Format(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to render configuration", err)
	}

	if opts.OutputFile != "" {
		if err := os.WriteFile(opts.OutputFile, rendered, 0o644); err != nil {
			_ = f.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to write configuration", err)
		}
		f.VerboseLog("Wrote %s", opts.OutputFile)
	}

	if f.JSON() {
		return f.Success(newConfigView(cfg))
	}
	_, err = fmt.Fprint(f.Writer, string(rendered))
	return err
}
