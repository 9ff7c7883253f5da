package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/format"
	"cuelang.org/go/cue/token"

	"github.com/roach88/polyinline/internal/heuristic"
)

//go:embed schema.cue
var schemaSource string

// RootField is the top-level field that holds the configuration.
const RootField = "inlining"

// ConfigError is a configuration problem, with its CUE source position
// when one is known.
type ConfigError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *ConfigError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// fileConfig mirrors #Config. Pointer fields distinguish "absent" from
// the zero value.
type fileConfig struct {
	MaxInlinedSize                 *int     `json:"max_inlined_size,omitempty"`
	MaxInlinedSizeSmall            *int     `json:"max_inlined_size_small,omitempty"`
	MaxInlinedSizeAbsolute         *int     `json:"max_inlined_size_absolute,omitempty"`
	MaxInlinedSizeCumulative       *int     `json:"max_inlined_size_cumulative,omitempty"`
	ReserveInlineBudgetScaleFactor *float64 `json:"reserve_inline_budget_scale_factor,omitempty"`
	MaxInliningLevels              *int     `json:"max_inlining_levels,omitempty"`
	MinInliningFrequency           *float64 `json:"min_inlining_frequency,omitempty"`
	PolymorphicInlining            *bool    `json:"polymorphic_inlining,omitempty"`
	MaxPolymorphism                *int     `json:"max_polymorphism,omitempty"`
	Mode                           *string  `json:"mode,omitempty"`
	TraceInlining                  *bool    `json:"trace_inlining,omitempty"`
}

// Load reads the CUE file at path.
func Load(path string) (heuristic.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return heuristic.Config{}, fmt.Errorf("reading config: %w", err)
	}
	return load(path, string(data))
}

// LoadString parses CUE source. An empty source yields the defaults.
func LoadString(src string) (heuristic.Config, error) {
	return load("config.cue", src)
}

func load(filename, src string) (heuristic.Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return heuristic.Config{}, fmt.Errorf("embedded schema: %w", err)
	}

	v := ctx.CompileString(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return heuristic.Config{}, formatCUEError(err)
	}

	cfg := heuristic.DefaultConfig()
	root := v.LookupPath(cue.ParsePath(RootField))
	if !root.Exists() {
		return cfg, nil
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(root)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return heuristic.Config{}, formatCUEError(err)
	}

	var fc fileConfig
	if err := unified.Decode(&fc); err != nil {
		return heuristic.Config{}, formatCUEError(err)
	}
	if err := fc.apply(&cfg); err != nil {
		return heuristic.Config{}, &ConfigError{Field: RootField, Message: err.Error(), Pos: root.Pos()}
	}
	if err := cfg.Validate(); err != nil {
		return heuristic.Config{}, &ConfigError{Field: RootField, Message: err.Error(), Pos: root.Pos()}
	}
	return cfg, nil
}

func (fc fileConfig) apply(cfg *heuristic.Config) error {
	setInt(&cfg.MaxInlinedSize, fc.MaxInlinedSize)
	setInt(&cfg.MaxInlinedSizeSmall, fc.MaxInlinedSizeSmall)
	setInt(&cfg.MaxInlinedSizeAbsolute, fc.MaxInlinedSizeAbsolute)
	setInt(&cfg.MaxInlinedSizeCumulative, fc.MaxInlinedSizeCumulative)
	setInt(&cfg.MaxInliningLevels, fc.MaxInliningLevels)
	setInt(&cfg.MaxPolymorphism, fc.MaxPolymorphism)
	if fc.ReserveInlineBudgetScaleFactor != nil {
		cfg.ReserveInlineBudgetScaleFactor = *fc.ReserveInlineBudgetScaleFactor
	}
	if fc.MinInliningFrequency != nil {
		cfg.MinInliningFrequency = *fc.MinInliningFrequency
	}
	if fc.PolymorphicInlining != nil {
		cfg.PolymorphicInlining = *fc.PolymorphicInlining
	}
	if fc.TraceInlining != nil {
		cfg.TraceInlining = *fc.TraceInlining
	}
	if fc.Mode != nil {
		m, err := heuristic.ParseMode(*fc.Mode)
		if err != nil {
			return err
		}
		cfg.Mode = m
	}
	return nil
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

// Format renders cfg as a CUE file that Load reads back to cfg.
func Format(cfg heuristic.Config) ([]byte, error) {
	mode := cfg.Mode.String()
	fc := fileConfig{
		MaxInlinedSize:                 &cfg.MaxInlinedSize,
		MaxInlinedSizeSmall:            &cfg.MaxInlinedSizeSmall,
		MaxInlinedSizeAbsolute:         &cfg.MaxInlinedSizeAbsolute,
		MaxInlinedSizeCumulative:       &cfg.MaxInlinedSizeCumulative,
		ReserveInlineBudgetScaleFactor: &cfg.ReserveInlineBudgetScaleFactor,
		MaxInliningLevels:              &cfg.MaxInliningLevels,
		MinInliningFrequency:           &cfg.MinInliningFrequency,
		PolymorphicInlining:            &cfg.PolymorphicInlining,
		MaxPolymorphism:                &cfg.MaxPolymorphism,
		Mode:                           &mode,
		TraceInlining:                  &cfg.TraceInlining,
	}
	ctx := cuecontext.New()
	v := ctx.Encode(map[string]any{RootField: fc})
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	// Emit the fields as file-level declarations rather than one
	// enclosing struct literal.
	node := v.Syntax(cue.Final())
	if lit, ok := node.(*ast.StructLit); ok {
		node = &ast.File{Decls: lit.Elts}
	}
	return format.Node(node)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	ce := &ConfigError{Field: "cue", Message: first.Error()}
	if positions := errors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}

// IsConfigError reports whether err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
