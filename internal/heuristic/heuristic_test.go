package heuristic

import (
	"bytes"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/polyinline/internal/ir"
	"github.com/roach88/polyinline/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func debugLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestHeuristic(b *testutil.GraphBuilder, opts ...Option) (*Heuristic, *testutil.FakeInliner) {
	inl := testutil.NewFakeInliner(b.G)
	base := []Option{
		WithPassIDGenerator(NewFixedGenerator("pass-1")),
		WithLogger(discardLogger()),
	}
	return New(b.G, inl, append(base, opts...)...), inl
}

func fns(list ...*ir.Function) []*ir.Function { return list }

func lastDecision(t *testing.T, h *Heuristic) ir.Decision {
	t.Helper()
	d := h.Decisions()
	require.NotEmpty(t, d)
	return d[len(d)-1]
}

func TestReduce_SmallMonomorphicCommitsImmediately(t *testing.T) {
	b := testutil.NewGraphBuilder()
	cs := b.CallSite(testutil.CallSiteSpec{Callees: fns(testutil.Fn("f", 12)), Frequency: ir.KnownFrequency(1)})
	h, inl := newTestHeuristic(b)

	r := h.Reduce(cs.Call)

	require.True(t, r.Changed())
	assert.Equal(t, ir.OpInlinedBody, b.G.Opcode(r.Replacement()))
	assert.Equal(t, 12, h.Cumulative())
	assert.Equal(t, []string{"f"}, inl.Inlined)
	assert.Equal(t, 0, h.Pending())

	d := lastDecision(t, h)
	assert.Equal(t, ir.OutcomeInlined, d.Outcome)
	assert.Equal(t, ir.ReasonSmallFunction, d.Reason)
	assert.Equal(t, "pass-1", d.PassID)
	assert.Equal(t, int64(1), d.Seq)
	assert.Equal(t, 12, d.Cumulative)
	assert.Equal(t, ir.DispatchNone, d.Dispatch)
}

func TestReduce_IdempotentPerInstance(t *testing.T) {
	b := testutil.NewGraphBuilder()
	cs := b.CallSite(testutil.CallSiteSpec{Callees: fns(testutil.Fn("f", 100)), Frequency: ir.KnownFrequency(1)})
	h, _ := newTestHeuristic(b)

	assert.False(t, h.Reduce(cs.Call).Changed())
	assert.Equal(t, 1, h.Pending())

	assert.False(t, h.Reduce(cs.Call).Changed())
	assert.Equal(t, 1, h.Pending(), "a seen node is never queued twice")
	assert.Len(t, h.Decisions(), 1)
}

func TestReduce_IgnoresNonCallNodes(t *testing.T) {
	b := testutil.NewGraphBuilder()
	cs := b.CallSite(testutil.CallSiteSpec{Callees: fns(testutil.Fn("f", 12))})
	h, inl := newTestHeuristic(b)

	for _, id := range []ir.NodeID{b.G.Start(), cs.Target, cs.FrameState, cs.Return} {
		assert.False(t, h.Reduce(id).Changed())
	}
	assert.Empty(t, inl.Calls)
	assert.Empty(t, h.Decisions())
}

func TestReduce_UnresolvedTargetIsNotACandidate(t *testing.T) {
	b := testutil.NewGraphBuilder()
	cs := b.CallSite(testutil.CallSiteSpec{Opaque: true})
	h, _ := newTestHeuristic(b)

	assert.False(t, h.Reduce(cs.Call).Changed())
	assert.Empty(t, h.Decisions(), "unresolved call sites are not journaled")
}

func TestReduce_TooManyCalleesIsNotACandidate(t *testing.T) {
	b := testutil.NewGraphBuilder()
	cs := b.CallSite(testutil.CallSiteSpec{Callees: fns(
		testutil.Fn("a", 1), testutil.Fn("b", 1), testutil.Fn("c", 1),
		testutil.Fn("d", 1), testutil.Fn("e", 1),
	)})
	h, _ := newTestHeuristic(b)

	assert.False(t, h.Reduce(cs.Call).Changed())
	assert.Empty(t, h.Decisions())
}

func TestReduce_BuiltinCalleeRejected(t *testing.T) {
	b := testutil.NewGraphBuilder()
	builtin := testutil.NewFunction(testutil.FnSpec{Name: "Math.max", Size: 5, Builtin: 7})
	cs := b.CallSite(testutil.CallSiteSpec{Callees: fns(builtin), Frequency: ir.KnownFrequency(1)})
	h, inl := newTestHeuristic(b)

	assert.False(t, h.Reduce(cs.Call).Changed())
	assert.Empty(t, inl.Calls)
	assert.Equal(t, 0, h.Cumulative())

	d := lastDecision(t, h)
	assert.Equal(t, ir.OutcomeRejected, d.Outcome)
	assert.Equal(t, ir.ReasonNotInlinable, d.Reason)
	assert.Equal(t, []ir.CalleeRecord{{Name: "Math.max", Size: 5, Inlinable: false}}, d.Callees)
}

func TestReduce_PolymorphismDisabled(t *testing.T) {
	b := testutil.NewGraphBuilder()
	cs := b.CallSite(testutil.CallSiteSpec{Callees: fns(
		testutil.Fn("a", 10), testutil.Fn("b", 10), testutil.Fn("c", 10),
	), Frequency: ir.KnownFrequency(1)})

	cfg := DefaultConfig()
	cfg.PolymorphicInlining = false
	h, inl := newTestHeuristic(b, WithConfig(cfg))

	assert.False(t, h.Reduce(cs.Call).Changed())
	assert.Equal(t, 0, h.Pending(), "never enqueued")
	assert.Empty(t, inl.Calls)

	d := lastDecision(t, h)
	assert.Equal(t, ir.OutcomeRejected, d.Outcome)
	assert.Equal(t, ir.ReasonPolymorphismDisabled, d.Reason)
	assert.Len(t, d.Callees, 3)
}

func TestReduce_PolymorphismDisabledIsTraced(t *testing.T) {
	b := testutil.NewGraphBuilder()
	cs := b.CallSite(testutil.CallSiteSpec{Callees: fns(testutil.Fn("a", 10), testutil.Fn("b", 10))})

	var buf bytes.Buffer
	logger := debugLogger(&buf)
	cfg := DefaultConfig()
	cfg.PolymorphicInlining = false
	cfg.TraceInlining = true
	h, _ := newTestHeuristic(b, WithConfig(cfg), WithLogger(logger))

	h.Reduce(cs.Call)

	assert.Contains(t, buf.String(), "polymorphic inlining is disabled")
	assert.Contains(t, buf.String(), "op=Call")
}

func TestReduce_DepthLimit(t *testing.T) {
	tests := []struct {
		name     string
		depth    int
		inlined  bool
		expected ir.Reason
	}{
		{"at limit", 5, true, ir.ReasonSmallFunction},
		{"over limit", 6, false, ir.ReasonDepthExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testutil.NewGraphBuilder()
			cs := b.CallSite(testutil.CallSiteSpec{
				Callees:   fns(testutil.Fn("f", 10)),
				Frequency: ir.KnownFrequency(1),
				Depth:     tt.depth,
			})
			h, _ := newTestHeuristic(b)

			assert.Equal(t, tt.inlined, h.Reduce(cs.Call).Changed())
			assert.Equal(t, tt.expected, lastDecision(t, h).Reason)
		})
	}
}

func TestReduce_ColdCallSiteRejected(t *testing.T) {
	b := testutil.NewGraphBuilder()
	cs := b.CallSite(testutil.CallSiteSpec{Callees: fns(testutil.Fn("f", 10)), Frequency: ir.KnownFrequency(0.1)})
	h, _ := newTestHeuristic(b)

	assert.False(t, h.Reduce(cs.Call).Changed())
	assert.Equal(t, ir.ReasonColdCallSite, lastDecision(t, h).Reason)
}

func TestReduce_ConstructReadsItsOwnFrequency(t *testing.T) {
	b := testutil.NewGraphBuilder()
	cold := b.CallSite(testutil.CallSiteSpec{Callees: fns(testutil.Fn("f", 10)), Construct: true, Frequency: ir.KnownFrequency(0.1)})
	hot := b.CallSite(testutil.CallSiteSpec{Callees: fns(testutil.Fn("g", 10)), Construct: true, Frequency: ir.KnownFrequency(0.9)})
	h, _ := newTestHeuristic(b)

	assert.False(t, h.Reduce(cold.Call).Changed())
	assert.True(t, h.Reduce(hot.Call).Changed())

	d := h.Decisions()
	require.Len(t, d, 2)
	assert.Equal(t, "Construct", d[0].Mnemonic)
	assert.Equal(t, "0.1", d[0].Frequency)
	assert.Equal(t, ir.ReasonColdCallSite, d[0].Reason)
}

func TestReduce_UnknownFrequencyIsNotCold(t *testing.T) {
	b := testutil.NewGraphBuilder()
	cs := b.CallSite(testutil.CallSiteSpec{Callees: fns(testutil.Fn("f", 10))})
	h, _ := newTestHeuristic(b)

	assert.True(t, h.Reduce(cs.Call).Changed())
	assert.Equal(t, "unknown", lastDecision(t, h).Frequency)
}

func TestReduce_LargeCalleeIsDeferred(t *testing.T) {
	b := testutil.NewGraphBuilder()
	cs := b.CallSite(testutil.CallSiteSpec{Callees: fns(testutil.Fn("f", 100)), Frequency: ir.KnownFrequency(1)})
	h, inl := newTestHeuristic(b)

	assert.False(t, h.Reduce(cs.Call).Changed())
	assert.Equal(t, 1, h.Pending())
	assert.Empty(t, inl.Calls)

	d := lastDecision(t, h)
	assert.Equal(t, ir.OutcomeDeferred, d.Outcome)
	assert.Equal(t, ir.ReasonQueued, d.Reason)
	assert.Equal(t, 100, d.TotalSize)
}

func TestReduce_SmallCalleeDeferredOnceAbsoluteBudgetIsSpent(t *testing.T) {
	b := testutil.NewGraphBuilder()
	cs := b.CallSite(testutil.CallSiteSpec{Callees: fns(testutil.Fn("f", 10)), Frequency: ir.KnownFrequency(1)})
	h, _ := newTestHeuristic(b, WithStartingBudget(5001))

	assert.False(t, h.Reduce(cs.Call).Changed())
	assert.Equal(t, ir.OutcomeDeferred, lastDecision(t, h).Outcome)
}

func TestReduce_SmallCalleeAtAbsoluteBudgetStillCommits(t *testing.T) {
	b := testutil.NewGraphBuilder()
	cs := b.CallSite(testutil.CallSiteSpec{Callees: fns(testutil.Fn("f", 10)), Frequency: ir.KnownFrequency(1)})
	h, _ := newTestHeuristic(b, WithStartingBudget(5000))

	assert.True(t, h.Reduce(cs.Call).Changed())
	assert.Equal(t, 5010, h.Cumulative())
}

func TestReduce_ForceInlineIgnoresAdmissibility(t *testing.T) {
	b := testutil.NewGraphBuilder()
	forced := testutil.NewFunction(testutil.FnSpec{Name: "f", NoBytecode: true, ForceInline: true})
	cs := b.CallSite(testutil.CallSiteSpec{Callees: fns(forced), Frequency: ir.KnownFrequency(0.01), Depth: 9})
	h, inl := newTestHeuristic(b, WithMode(ModeRestricted))

	assert.True(t, h.Reduce(cs.Call).Changed())
	assert.Equal(t, []string{"f"}, inl.Inlined)
	assert.Equal(t, 0, h.Cumulative(), "a callee without bytecode adds nothing")
	assert.Equal(t, ir.ReasonForceInline, lastDecision(t, h).Reason)
}

func TestReduce_ForceInlineRequiresEveryCallee(t *testing.T) {
	b := testutil.NewGraphBuilder()
	forced := testutil.NewFunction(testutil.FnSpec{Name: "a", Size: 100, ForceInline: true})
	cs := b.CallSite(testutil.CallSiteSpec{Callees: fns(forced, testutil.Fn("b", 100)), Frequency: ir.KnownFrequency(1)})
	h, _ := newTestHeuristic(b)

	assert.False(t, h.Reduce(cs.Call).Changed())
	assert.Equal(t, ir.OutcomeDeferred, lastDecision(t, h).Outcome)
}

func TestReduce_Modes(t *testing.T) {
	tests := []struct {
		mode    Mode
		changed bool
		reason  ir.Reason
	}{
		{ModeRestricted, false, ir.ReasonRestrictedMode},
		{ModeStress, true, ir.ReasonStressMode},
		{ModeGeneral, false, ir.ReasonQueued},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			b := testutil.NewGraphBuilder()
			cs := b.CallSite(testutil.CallSiteSpec{Callees: fns(testutil.Fn("f", 400)), Frequency: ir.KnownFrequency(0.01)})
			h, _ := newTestHeuristic(b, WithMode(tt.mode))

			// Stress and restricted are decided before the frequency cut.
			if tt.mode == ModeGeneral {
				cs = b.CallSite(testutil.CallSiteSpec{Callees: fns(testutil.Fn("g", 400)), Frequency: ir.KnownFrequency(1)})
			}
			assert.Equal(t, tt.changed, h.Reduce(cs.Call).Changed())
			assert.Equal(t, tt.reason, lastDecision(t, h).Reason)
		})
	}
}

func TestReduce_ClosureCandidateUsesSharedMetadata(t *testing.T) {
	b := testutil.NewGraphBuilder()
	cs := b.CallSite(testutil.CallSiteSpec{Closure: testutil.Fn("lazy", 8).Shared, Frequency: ir.KnownFrequency(1)})
	h, inl := newTestHeuristic(b)

	assert.True(t, h.Reduce(cs.Call).Changed())
	assert.Equal(t, []string{"lazy"}, inl.Inlined)
	assert.Equal(t, 8, h.Cumulative())
}

func TestReduce_DeclinedCommitReportsNoChange(t *testing.T) {
	b := testutil.NewGraphBuilder()
	cs := b.CallSite(testutil.CallSiteSpec{Callees: fns(testutil.Fn("f", 10)), Frequency: ir.KnownFrequency(1)})
	h, inl := newTestHeuristic(b)
	inl.Decline["f"] = true

	assert.False(t, h.Reduce(cs.Call).Changed())
	assert.Equal(t, 0, h.Cumulative())
	assert.Equal(t, ir.OutcomeDeclined, lastDecision(t, h).Outcome)
}

func TestNew_InvalidConfigPanics(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPolymorphism = 9
	b := testutil.NewGraphBuilder()

	assert.Panics(t, func() { newTestHeuristic(b, WithConfig(cfg)) })
}

func TestNew_DefaultPassIDIsUUID(t *testing.T) {
	b := testutil.NewGraphBuilder()
	h := New(b.G, testutil.NewFakeInliner(b.G), WithLogger(discardLogger()))

	assert.Len(t, h.PassID(), 36)
	assert.Equal(t, DefaultConfig(), h.Config())
}

func TestDecisions_SharedClockAcrossInstances(t *testing.T) {
	b := testutil.NewGraphBuilder()
	first := b.CallSite(testutil.CallSiteSpec{Callees: fns(testutil.Fn("f", 10)), Frequency: ir.KnownFrequency(1)})
	second := b.CallSite(testutil.CallSiteSpec{Callees: fns(testutil.Fn("g", 10)), Frequency: ir.KnownFrequency(1)})
	clock := NewClock()

	h1, _ := newTestHeuristic(b, WithClock(clock))
	h1.Reduce(first.Call)
	h2, _ := newTestHeuristic(b, WithClock(clock))
	h2.Reduce(second.Call)

	assert.Equal(t, int64(1), h1.Decisions()[0].Seq)
	assert.Equal(t, int64(2), h2.Decisions()[0].Seq)
}
