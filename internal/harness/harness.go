package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/polyinline/internal/config"
	"github.com/roach88/polyinline/internal/heuristic"
	"github.com/roach88/polyinline/internal/ir"
	"github.com/roach88/polyinline/internal/store"
	"github.com/roach88/polyinline/internal/testutil"
)

// Harness is the scenario execution engine.
// It runs scenarios with a deterministic clock and pass ids.
type Harness struct {
	store   *store.Store
	passGen heuristic.PassIDGenerator
	runID   string
	logger  *slog.Logger
}

// Option configures a Harness run.
type Option func(*Harness)

// WithStore journals the run into st instead of a fresh in-memory
// database. The caller keeps ownership of st.
func WithStore(st *store.Store) Option {
	return func(h *Harness) {
		h.store = st
	}
}

// WithRunID sets the run id recorded with every pass.
// Default: the scenario name.
func WithRunID(id string) Option {
	return func(h *Harness) {
		h.runID = id
	}
}

// WithPassIDGenerator overrides the deterministic pass ids.
func WithPassIDGenerator(gen heuristic.PassIDGenerator) Option {
	return func(h *Harness) {
		h.passGen = gen
	}
}

// WithLogger sets the logger for the driver and the heuristic.
// Default: a logger that discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Load the configuration and build the functions and call sites
//  2. Run each pass to a fixpoint, carrying the cumulative size forward
//  3. Journal every pass and its decisions, then verify the journal
//  4. Evaluate assertions against the result
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	return RunContext(context.Background(), scenario, opts...)
}

// RunContext is Run with a context checked between fixpoint rounds.
func RunContext(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		runID:  scenario.Name,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.passGen == nil {
		h.passGen = defaultPassIDGenerator(scenario)
	}
	if h.store == nil {
		st, err := store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer st.Close()
		h.store = st
	}

	cfg, err := config.LoadString(scenario.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	b, inl, sites := build(scenario)
	result := NewResult()
	result.RunID = h.runID
	result.Sites = sites

	if err := h.runPasses(ctx, scenario, cfg, b.G, inl, result); err != nil {
		return nil, err
	}
	result.Inlined = append(result.Inlined, inl.Inlined...)

	if err := h.store.VerifyRun(ctx, h.runID); err != nil {
		return nil, fmt.Errorf("journal verification failed: %w", err)
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// defaultPassIDGenerator pins the pass id for single-pass scenarios and
// numbers the passes of multi-pass scenarios.
func defaultPassIDGenerator(s *Scenario) heuristic.PassIDGenerator {
	fixed := testutil.NewFixedPassIDGenerator(s.PassID)
	if s.Passes <= 1 {
		return fixed
	}
	return heuristic.NewSequentialGenerator(fixed.Generate())
}

// build creates the scenario's graph and inliner. Sites are built in
// declaration order; validation has already resolved every name.
func build(s *Scenario) (*testutil.GraphBuilder, *testutil.FakeInliner, map[string]ir.NodeID) {
	fns := make(map[string]*ir.Function, len(s.Functions))
	for _, spec := range s.Functions {
		fns[spec.Name] = testutil.NewFunction(testutil.FnSpec{
			Name:        spec.Name,
			Size:        spec.Size,
			NoBytecode:  spec.NoBytecode,
			Builtin:     ir.BuiltinID(spec.Builtin),
			NonUser:     spec.NonUser,
			ForceInline: spec.ForceInline,
		})
	}

	b := testutil.NewGraphBuilder()
	inl := testutil.NewFakeInliner(b.G)
	for _, name := range s.Decline {
		inl.Decline[name] = true
	}
	for _, spec := range s.Functions {
		for _, callee := range spec.Calls {
			inl.Bodies[spec.Name] = append(inl.Bodies[spec.Name], fns[callee])
		}
	}

	sites := make(map[string]ir.NodeID, len(s.Sites))
	for _, site := range s.Sites {
		spec := testutil.CallSiteSpec{
			Opaque:          site.Opaque,
			Construct:       site.Construct,
			Frequency:       ir.UnknownFrequency(),
			Depth:           site.Depth,
			Args:            site.Args,
			Checkpoint:      site.Checkpoint,
			StateUses:       site.StateUses,
			SharedLocals:    site.SharedLocals,
			ExtraUse:        site.ExtraUse,
			SeparateControl: site.SeparateControl,
			Exceptional:     site.Exceptional,
		}
		for _, name := range site.Callees {
			spec.Callees = append(spec.Callees, fns[name])
		}
		if site.Closure != "" {
			spec.Closure = fns[site.Closure].Shared
		}
		if site.Frequency != "" {
			spec.Frequency, _ = ir.ParseFrequency(site.Frequency)
		}
		sites[site.Label] = b.CallSite(spec).Call
	}
	return b, inl, sites
}

// runPasses runs each heuristic instance to a fixpoint and journals it.
func (h *Harness) runPasses(ctx context.Context, s *Scenario, cfg heuristic.Config, g *ir.Graph, inl heuristic.Inliner, result *Result) error {
	passes := max(s.Passes, 1)
	maxIterations := s.MaxIterations
	if maxIterations == 0 {
		maxIterations = DefaultMaxIterations
	}
	cfgText, err := config.Format(cfg)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}

	clock := heuristic.NewClock()
	cumulative := 0
	for ordinal := 0; ordinal < passes; ordinal++ {
		before, err := ir.GraphDigest(g)
		if err != nil {
			return fmt.Errorf("pass %d: %w", ordinal, err)
		}

		inliner := heuristic.New(g, inl,
			heuristic.WithConfig(cfg),
			heuristic.WithLogger(h.logger),
			heuristic.WithClock(clock),
			heuristic.WithPassIDGenerator(h.passGen),
			heuristic.WithStartingBudget(cumulative),
		)
		fp, err := RunFixpoint(ctx, g, inliner, maxIterations, h.logger)
		if err != nil {
			return fmt.Errorf("pass %d: %w", ordinal, err)
		}
		cumulative = inliner.Cumulative()

		after, err := ir.GraphDigest(g)
		if err != nil {
			return fmt.Errorf("pass %d: %w", ordinal, err)
		}
		decisions := inliner.Decisions()
		digest, err := ir.DecisionsDigest(decisions)
		if err != nil {
			return fmt.Errorf("pass %d: %w", ordinal, err)
		}

		pr := PassResult{
			ID:              inliner.PassID(),
			Ordinal:         ordinal,
			Iterations:      fp.Iterations,
			Converged:       fp.Converged,
			Changed:         fp.Changed,
			Cumulative:      cumulative,
			GraphBefore:     before,
			GraphAfter:      after,
			DecisionsDigest: digest,
		}
		if err := h.journal(ctx, s, string(cfgText), pr, decisions); err != nil {
			return fmt.Errorf("pass %d: %w", ordinal, err)
		}

		h.logger.Info("pass completed",
			"pass", pr.ID,
			"ordinal", ordinal,
			"rounds", fp.Iterations,
			"converged", fp.Converged,
			"cumulative", cumulative,
			"decisions", len(decisions),
		)
		result.Passes = append(result.Passes, pr)
		result.Decisions = append(result.Decisions, decisions...)
	}
	result.Cumulative = cumulative
	return nil
}

func (h *Harness) journal(ctx context.Context, s *Scenario, cfgText string, pr PassResult, decisions []ir.Decision) error {
	err := h.store.WritePass(ctx, store.Pass{
		ID:               pr.ID,
		RunID:            h.runID,
		Ordinal:          pr.Ordinal,
		Scenario:         s.Name,
		Config:           cfgText,
		GraphBefore:      pr.GraphBefore,
		GraphAfter:       pr.GraphAfter,
		DecisionsDigest:  pr.DecisionsDigest,
		Changed:          pr.Changed,
		Cumulative:       pr.Cumulative,
		HeuristicVersion: ir.HeuristicVersion,
	})
	if err != nil {
		return err
	}
	return h.store.WriteDecisions(ctx, decisions)
}
