package heuristic

import (
	"errors"
	"fmt"
)

// MaxCallPolymorphism is the largest number of statically-known callees a
// single call site may resolve to.
const MaxCallPolymorphism = 4

// Mode selects how aggressively the heuristic inlines.
type Mode int

const (
	// ModeGeneral is the budgeted, frequency-ordered default.
	ModeGeneral Mode = iota
	// ModeRestricted only honors force-inline hints.
	ModeRestricted
	// ModeStress inlines every admissible candidate regardless of budget.
	ModeStress
)

var modeNames = map[Mode]string{
	ModeGeneral:    "general",
	ModeRestricted: "restricted",
	ModeStress:     "stress",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode parses "general", "restricted" or "stress".
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return ModeGeneral, fmt.Errorf("unknown inlining mode %q", s)
}

// Config holds the read-only knobs of one heuristic instance. Sizes are
// measured in bytecode length.
type Config struct {
	// MaxInlinedSize is the largest body eligible for inlining at all.
	MaxInlinedSize int
	// MaxInlinedSizeSmall is the "always inline" threshold.
	MaxInlinedSizeSmall int
	// MaxInlinedSizeAbsolute caps the cumulative budget under which small
	// functions are still inlined immediately.
	MaxInlinedSizeAbsolute int
	// MaxInlinedSizeCumulative caps the cumulative budget for deferred
	// candidates and for each branch of a polymorphic commit.
	MaxInlinedSizeCumulative int
	// ReserveInlineBudgetScaleFactor scales a deferred candidate's size to
	// keep headroom for small callees exposed by inlining it.
	ReserveInlineBudgetScaleFactor float64
	// MaxInliningLevels bounds the number of enclosing function frames.
	MaxInliningLevels int
	// MinInliningFrequency drops call sites colder than this.
	MinInliningFrequency float64
	// PolymorphicInlining enables call sites with several known callees.
	PolymorphicInlining bool
	// MaxPolymorphism caps the number of resolved callees; it never exceeds
	// MaxCallPolymorphism.
	MaxPolymorphism int
	// Mode selects restricted, general or stress inlining.
	Mode Mode
	// TraceInlining emits debug trace lines for every decision.
	TraceInlining bool
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxInlinedSize:                 460,
		MaxInlinedSizeSmall:            30,
		MaxInlinedSizeAbsolute:         5000,
		MaxInlinedSizeCumulative:       920,
		ReserveInlineBudgetScaleFactor: 1.2,
		MaxInliningLevels:              5,
		MinInliningFrequency:           0.15,
		PolymorphicInlining:            true,
		MaxPolymorphism:                MaxCallPolymorphism,
		Mode:                           ModeGeneral,
	}
}

// Validate checks the configuration for values the heuristic cannot honor.
func (c Config) Validate() error {
	var errs []error
	if c.MaxInlinedSize < 0 {
		errs = append(errs, fmt.Errorf("max_inlined_size must be >= 0, got %d", c.MaxInlinedSize))
	}
	if c.MaxInlinedSizeSmall < 0 {
		errs = append(errs, fmt.Errorf("max_inlined_size_small must be >= 0, got %d", c.MaxInlinedSizeSmall))
	}
	if c.MaxInlinedSizeAbsolute < 0 {
		errs = append(errs, fmt.Errorf("max_inlined_size_absolute must be >= 0, got %d", c.MaxInlinedSizeAbsolute))
	}
	if c.MaxInlinedSizeCumulative < 0 {
		errs = append(errs, fmt.Errorf("max_inlined_size_cumulative must be >= 0, got %d", c.MaxInlinedSizeCumulative))
	}
	if c.ReserveInlineBudgetScaleFactor < 0 {
		errs = append(errs, fmt.Errorf("reserve_inline_budget_scale_factor must be >= 0, got %v", c.ReserveInlineBudgetScaleFactor))
	}
	if c.MaxInliningLevels < 0 {
		errs = append(errs, fmt.Errorf("max_inlining_levels must be >= 0, got %d", c.MaxInliningLevels))
	}
	if c.MaxPolymorphism < 1 || c.MaxPolymorphism > MaxCallPolymorphism {
		errs = append(errs, fmt.Errorf("max_polymorphism must be in [1,%d], got %d", MaxCallPolymorphism, c.MaxPolymorphism))
	}
	if _, ok := modeNames[c.Mode]; !ok {
		errs = append(errs, fmt.Errorf("unknown mode %d", int(c.Mode)))
	}
	return errors.Join(errs...)
}
