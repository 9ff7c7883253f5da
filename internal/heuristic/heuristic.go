package heuristic

import (
	"context"
	"log/slog"

	"github.com/roach88/polyinline/internal/ir"
)

// Inliner substitutes a callee's body for a call node. It is the
// downstream collaborator of the heuristic: the heuristic only observes
// whether the graph changed.
type Inliner interface {
	ReduceCall(node ir.NodeID) ir.Reduction
}

// Heuristic decides which call sites of a graph are inlined, in what order,
// and how polymorphic call sites are split before inlining.
//
// One Heuristic is one pass instance. The fixpoint driver calls Reduce on
// every node and Finalize after each full traversal, repeating until
// nothing changes. Candidates left queued when the instance is dropped are
// dropped with it.
//
// Heuristic is not safe for concurrent use.
type Heuristic struct {
	graph   *ir.Graph
	inliner Inliner
	cfg     Config
	logger  *slog.Logger
	clock   *Clock
	passGen PassIDGenerator
	passID  string

	seen       *seenSet
	candidates *CandidateQueue
	budget     *Budget
	journal    []ir.Decision
}

// Option configures a Heuristic.
type Option func(*Heuristic)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(h *Heuristic) {
		h.cfg = cfg
	}
}

// WithMode overrides the configured inlining mode.
func WithMode(m Mode) Option {
	return func(h *Heuristic) {
		h.cfg.Mode = m
	}
}

// WithLogger sets the logger used for trace output.
// Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *Heuristic) {
		h.logger = l
	}
}

// WithPassIDGenerator sets the generator naming this instance in the
// journal. Default: UUIDv7Generator.
func WithPassIDGenerator(gen PassIDGenerator) Option {
	return func(h *Heuristic) {
		h.passGen = gen
	}
}

// WithClock sets the logical clock that stamps journal entries. Sharing a
// clock across the instances of one fixpoint run keeps sequence numbers
// unique within the run.
func WithClock(c *Clock) Option {
	return func(h *Heuristic) {
		h.clock = c
	}
}

// WithStartingBudget seeds the cumulative budget, e.g. with what earlier
// iterations of the same compilation already inlined.
func WithStartingBudget(size int) Option {
	return func(h *Heuristic) {
		h.budget = NewBudget(size)
	}
}

// New creates a heuristic over g that delegates body substitution to
// inliner.
//
// Panics with an *ir.InvariantError if the configuration is invalid.
func New(g *ir.Graph, inliner Inliner, opts ...Option) *Heuristic {
	h := &Heuristic{
		graph:      g,
		inliner:    inliner,
		cfg:        DefaultConfig(),
		logger:     slog.Default(),
		clock:      NewClock(),
		passGen:    UUIDv7Generator{},
		seen:       newSeenSet(),
		candidates: NewCandidateQueue(),
		budget:     NewBudget(0),
	}
	for _, opt := range opts {
		opt(h)
	}
	if err := h.cfg.Validate(); err != nil {
		ir.Fatalf(ir.InvalidNode, "invalid heuristic config: %v", err)
	}
	h.passID = h.passGen.Generate()
	return h
}

// PassID returns the id this instance stamps on its journal entries.
func (h *Heuristic) PassID() string { return h.passID }

// Config returns the effective configuration.
func (h *Heuristic) Config() Config { return h.cfg }

// Cumulative returns the total size inlined by this instance so far,
// including any starting budget.
func (h *Heuristic) Cumulative() int { return h.budget.Cumulative() }

// Pending returns the number of queued candidates.
func (h *Heuristic) Pending() int { return h.candidates.Len() }

// Decisions returns a copy of the decision journal in clock order.
func (h *Heuristic) Decisions() []ir.Decision {
	out := make([]ir.Decision, len(h.journal))
	copy(out, h.journal)
	return out
}

// Reduce considers node for inlining. Nodes other than calls and
// constructs, and nodes seen before by this instance, are left alone.
//
// Reduce either commits the candidate right away (force-inline hints,
// small callees, stress mode) or queues it for Finalize; a queued
// candidate is reported as no change.
func (h *Heuristic) Reduce(node ir.NodeID) ir.Reduction {
	g := h.graph
	if g.IsDead(node) || !ir.IsInlineeOpcode(g.Opcode(node)) {
		return ir.NoChange()
	}
	if h.seen.Visit(node) {
		return ir.NoChange()
	}

	c := &Candidate{Node: node, Frequency: callFrequency(g, node)}
	c.NumFunctions = collectFunctions(g, g.ValueInput(node, 0), h.cfg.MaxPolymorphism, c)
	if c.NumFunctions == 0 {
		return ir.NoChange()
	}
	if c.NumFunctions > 1 && !h.cfg.PolymorphicInlining {
		h.trace("not considering call site: polymorphic inlining is disabled", c)
		h.record(c, ir.OutcomeRejected, ir.ReasonPolymorphismDisabled)
		return ir.NoChange()
	}

	e := evaluate(h.cfg, c)
	if e.force {
		return h.commit(c, true, ir.ReasonForceInline)
	}
	if !e.canInline {
		h.record(c, ir.OutcomeRejected, ir.ReasonNotInlinable)
		return ir.NoChange()
	}

	// Stop once the maximum inlining depth is reached.
	if level, exceeded := h.inliningLevel(node); exceeded {
		h.trace("not considering call site: inlining depth exceeds maximum", c,
			"level", level, "max", h.cfg.MaxInliningLevels)
		h.record(c, ir.OutcomeRejected, ir.ReasonDepthExceeded)
		return ir.NoChange()
	}

	switch h.cfg.Mode {
	case ModeRestricted:
		h.record(c, ir.OutcomeRejected, ir.ReasonRestrictedMode)
		return ir.NoChange()
	case ModeStress:
		return h.commit(c, false, ir.ReasonStressMode)
	}

	// Too cold to bother.
	if c.Frequency.IsKnown() && c.Frequency.Value() < h.cfg.MinInliningFrequency {
		h.record(c, ir.OutcomeRejected, ir.ReasonColdCallSite)
		return ir.NoChange()
	}

	// For a polymorphic site, small means every callee is small.
	if e.small && h.budget.Cumulative() <= h.cfg.MaxInlinedSizeAbsolute {
		h.trace("inlining small function(s) at call site", c)
		return h.commit(c, true, ir.ReasonSmallFunction)
	}

	h.candidates.Push(c)
	h.record(c, ir.OutcomeDeferred, ir.ReasonQueued)
	return ir.NoChange()
}

// inliningLevel walks the chain of enclosing frame states and counts
// function activations. It stops as soon as the configured maximum is
// exceeded.
func (h *Heuristic) inliningLevel(node ir.NodeID) (int, bool) {
	g := h.graph
	level := 0
	for fs := g.FrameStateInput(node); g.Opcode(fs) == ir.OpFrameState; fs = g.FrameStateInput(fs) {
		if ir.FrameStateInfoOf(g.Op(fs)).Type.IsJSFunctionType() {
			level++
			if level > h.cfg.MaxInliningLevels {
				return level, true
			}
		}
	}
	return level, false
}

// Finalize drains the queue after a full traversal. At most one candidate
// is committed per call; the rest wait for the next iteration.
//
// Candidates whose reserved estimate does not fit under the cumulative
// ceiling are skipped; candidates whose node died are discarded. Finalize
// reports whether a commit changed the graph.
func (h *Heuristic) Finalize() bool {
	if h.candidates.Len() == 0 {
		return false
	}
	if h.cfg.TraceInlining && h.logger.Enabled(context.Background(), slog.LevelDebug) {
		h.logger.Debug("pending inlining candidates", "dump", h.CandidatesString())
	}

	for c := h.candidates.Pop(); c != nil; c = h.candidates.Pop() {
		// Keep headroom for small functions exposed by this one.
		reserved := h.budget.Reserve(c.TotalSize, h.cfg.ReserveInlineBudgetScaleFactor)
		if !h.budget.Fits(reserved, h.cfg.MaxInlinedSizeCumulative) {
			h.trace("skipping candidate: reserved size exceeds cumulative budget", c,
				"reserved", reserved, "cumulative", h.budget.Cumulative())
			h.record(c, ir.OutcomeSkipped, ir.ReasonOverBudget)
			continue
		}
		if h.graph.IsDead(c.Node) {
			h.record(c, ir.OutcomeDiscarded, ir.ReasonDeadNode)
			continue
		}
		if h.commit(c, false, ir.ReasonBudgetAvailable).Changed() {
			return true
		}
	}
	return false
}

// commit inlines c and journals the outcome.
func (h *Heuristic) commit(c *Candidate, force bool, reason ir.Reason) ir.Reduction {
	r, via := h.inlineCandidate(c, force)
	outcome := ir.OutcomeDeclined
	if r.Changed() {
		outcome = ir.OutcomeInlined
	}
	h.recordDispatch(c, outcome, reason, via)
	return r
}

func (h *Heuristic) record(c *Candidate, outcome ir.Outcome, reason ir.Reason) {
	h.recordDispatch(c, outcome, reason, ir.DispatchNone)
}

func (h *Heuristic) recordDispatch(c *Candidate, outcome ir.Outcome, reason ir.Reason, via ir.Dispatch) {
	h.journal = append(h.journal, ir.Decision{
		PassID:     h.passID,
		Seq:        h.clock.Next(),
		Node:       c.Node,
		Mnemonic:   h.graph.Mnemonic(c.Node),
		Outcome:    outcome,
		Reason:     reason,
		Frequency:  c.Frequency.String(),
		Callees:    c.callees(),
		TotalSize:  c.TotalSize,
		Cumulative: h.budget.Cumulative(),
		Dispatch:   via,
	})
}
