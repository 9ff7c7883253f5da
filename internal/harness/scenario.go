package harness

import (
	"bytes"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/polyinline/internal/ir"
)

// Scenario defines an inlining scenario: a set of functions, a graph of
// call sites over them, the heuristic configuration, and assertions on the
// resulting decisions.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is CUE source for the heuristic configuration (see package
	// config). Empty means defaults.
	Config string `yaml:"config,omitempty"`

	// Functions declares every callee referenced by the sites.
	Functions []FunctionSpec `yaml:"functions"`

	// Sites are built in order on one graph, so node ids are stable.
	Sites []SiteSpec `yaml:"sites"`

	// Decline lists callee names the inliner refuses to substitute.
	Decline []string `yaml:"decline,omitempty"`

	// Passes is the number of heuristic instances run back to back, each
	// to its own fixpoint. Later passes start from the cumulative size of
	// earlier ones. Zero means one.
	Passes int `yaml:"passes,omitempty"`

	// MaxIterations bounds the Reduce/Finalize rounds of one pass.
	// Zero means DefaultMaxIterations.
	MaxIterations int `yaml:"max_iterations,omitempty"`

	// PassID is an optional fixed pass id for deterministic journals.
	// If empty, defaults to "test-pass-default".
	PassID string `yaml:"pass_id,omitempty"`

	// Assertions validate the decisions and the final graph.
	// Supported types: inlined, outcome, dispatch, cumulative,
	// decision_count, converged.
	Assertions []Assertion `yaml:"assertions"`
}

// FunctionSpec declares a callee's metadata.
type FunctionSpec struct {
	Name string `yaml:"name"`
	// Size is the bytecode length.
	Size int `yaml:"size"`
	// Builtin is a non-zero builtin id for runtime-provided functions.
	Builtin int `yaml:"builtin,omitempty"`
	// NoBytecode marks a function that was never compiled.
	NoBytecode bool `yaml:"no_bytecode,omitempty"`
	// NonUser marks library code outside the user's program.
	NonUser     bool `yaml:"non_user,omitempty"`
	ForceInline bool `yaml:"force_inline,omitempty"`
	// Calls lists functions whose call sites appear when this function
	// is inlined, one frame deeper.
	Calls []string `yaml:"calls,omitempty"`
}

// SiteSpec describes one call site. Exactly one of Callees, Closure and
// Opaque selects the target.
type SiteSpec struct {
	// Label names the site in assertions and golden traces.
	// Defaults to "site<index>".
	Label   string   `yaml:"label,omitempty"`
	Callees []string `yaml:"callees,omitempty"`
	Closure string   `yaml:"closure,omitempty"`
	Opaque  bool     `yaml:"opaque,omitempty"`

	Construct bool `yaml:"construct,omitempty"`
	// Frequency is a decimal or "unknown" (the default).
	Frequency string `yaml:"frequency,omitempty"`
	Depth     int    `yaml:"depth,omitempty"`
	Args      int    `yaml:"args,omitempty"`

	Checkpoint      bool `yaml:"checkpoint,omitempty"`
	StateUses       bool `yaml:"state_uses,omitempty"`
	SharedLocals    bool `yaml:"shared_locals,omitempty"`
	ExtraUse        bool `yaml:"extra_use,omitempty"`
	SeparateControl bool `yaml:"separate_control,omitempty"`
	Exceptional     bool `yaml:"exceptional,omitempty"`
}

// Assertion validates the outcome of a run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "inlined": the inliner substituted exactly Names, in order
	// - "outcome": Site has a decision with Outcome (and Reason, if set)
	// - "dispatch": Site was split with Dispatch ("reused" or "synthesized")
	// - "cumulative": the final cumulative size equals Value
	// - "decision_count": exactly Count decisions have Outcome
	// - "converged": every pass reached a fixpoint
	Type string `yaml:"type"`

	Site     string   `yaml:"site,omitempty"`
	Names    []string `yaml:"names,omitempty"`
	Outcome  string   `yaml:"outcome,omitempty"`
	Reason   string   `yaml:"reason,omitempty"`
	Dispatch string   `yaml:"dispatch,omitempty"`
	Value    int      `yaml:"value,omitempty"`
	Count    int      `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertInlined       = "inlined"
	AssertOutcome       = "outcome"
	AssertDispatch      = "dispatch"
	AssertCumulative    = "cumulative"
	AssertDecisionCount = "decision_count"
	AssertConverged     = "converged"
)

var assertionTypes = []string{
	AssertInlined, AssertOutcome, AssertDispatch,
	AssertCumulative, AssertDecisionCount, AssertConverged,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or fails validation.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and that every
// reference resolves.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Functions) == 0 {
		return fmt.Errorf("functions list is required and must be non-empty")
	}
	if len(s.Sites) == 0 {
		return fmt.Errorf("sites list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}
	if s.Passes < 0 {
		return fmt.Errorf("passes must be >= 0, got %d", s.Passes)
	}
	if s.MaxIterations < 0 {
		return fmt.Errorf("max_iterations must be >= 0, got %d", s.MaxIterations)
	}

	names := make(map[string]bool, len(s.Functions))
	for i, fn := range s.Functions {
		if fn.Name == "" {
			return fmt.Errorf("functions[%d]: name is required", i)
		}
		if names[fn.Name] {
			return fmt.Errorf("functions[%d]: duplicate name %q", i, fn.Name)
		}
		if fn.Size < 0 {
			return fmt.Errorf("functions[%d]: size must be >= 0, got %d", i, fn.Size)
		}
		names[fn.Name] = true
	}
	for i, fn := range s.Functions {
		for _, callee := range fn.Calls {
			if !names[callee] {
				return fmt.Errorf("functions[%d]: calls unknown function %q", i, callee)
			}
		}
	}

	labels := make(map[string]bool, len(s.Sites))
	for i := range s.Sites {
		site := &s.Sites[i]
		if site.Label == "" {
			site.Label = fmt.Sprintf("site%d", i)
		}
		if labels[site.Label] {
			return fmt.Errorf("sites[%d]: duplicate label %q", i, site.Label)
		}
		labels[site.Label] = true

		targets := 0
		if len(site.Callees) > 0 {
			targets++
		}
		if site.Closure != "" {
			targets++
		}
		if site.Opaque {
			targets++
		}
		if targets != 1 {
			return fmt.Errorf("sites[%d]: exactly one of callees, closure or opaque is required", i)
		}
		for _, callee := range append(slices.Clone(site.Callees), site.Closure) {
			if callee != "" && !names[callee] {
				return fmt.Errorf("sites[%d]: unknown function %q", i, callee)
			}
		}
		if site.Frequency != "" {
			if _, err := ir.ParseFrequency(site.Frequency); err != nil {
				return fmt.Errorf("sites[%d]: %w", i, err)
			}
		}
		if site.Depth < 0 || site.Args < 0 {
			return fmt.Errorf("sites[%d]: depth and args must be >= 0", i)
		}
	}

	for i, name := range s.Decline {
		if !names[name] {
			return fmt.Errorf("decline[%d]: unknown function %q", i, name)
		}
	}

	for i, a := range s.Assertions {
		if !slices.Contains(assertionTypes, a.Type) {
			return fmt.Errorf("assertions[%d]: unknown type %q", i, a.Type)
		}
		if (a.Type == AssertOutcome || a.Type == AssertDispatch) && !labels[a.Site] {
			return fmt.Errorf("assertions[%d]: %s requires a known site, got %q", i, a.Type, a.Site)
		}
		if (a.Type == AssertOutcome || a.Type == AssertDecisionCount) && a.Outcome == "" {
			return fmt.Errorf("assertions[%d]: %s requires outcome", i, a.Type)
		}
		if a.Type == AssertDispatch && a.Dispatch == "" {
			return fmt.Errorf("assertions[%d]: dispatch requires dispatch", i)
		}
	}

	return nil
}
