package heuristic

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/polyinline/internal/ir"
	"github.com/roach88/polyinline/internal/testutil"
)

func TestPrintCandidates_Golden(t *testing.T) {
	b := testutil.NewGraphBuilder()
	mono := b.CallSite(testutil.CallSiteSpec{Callees: fns(testutil.Fn("f", 100)), Frequency: ir.KnownFrequency(0.5)})
	poly := b.CallSite(testutil.CallSiteSpec{Callees: fns(testutil.Fn("g", 200), testutil.Fn("h", 50))})
	require.Equal(t, ir.NodeID(7), mono.Call)
	require.Equal(t, ir.NodeID(20), poly.Call)

	h, _ := newTestHeuristic(b)
	h.Reduce(poly.Call)
	h.Reduce(mono.Call)
	require.Equal(t, 2, h.Pending())

	var buf bytes.Buffer
	require.NoError(t, h.PrintCandidates(&buf))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "print_candidates", buf.Bytes())
	assert.Equal(t, buf.String(), h.CandidatesString())
}

func TestPrintCandidates_Empty(t *testing.T) {
	h, _ := newTestHeuristic(testutil.NewGraphBuilder())
	assert.Equal(t, "Candidates for inlining (size=0):\n", h.CandidatesString())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestPrintCandidates_PropagatesWriteError(t *testing.T) {
	h, _ := newTestHeuristic(testutil.NewGraphBuilder())
	assert.EqualError(t, h.PrintCandidates(failingWriter{}), "disk full")
}

func TestTrace_LogsOnlyWhenEnabled(t *testing.T) {
	b := testutil.NewGraphBuilder()
	cs := b.CallSite(testutil.CallSiteSpec{Callees: fns(testutil.Fn("f", 12)), Frequency: ir.KnownFrequency(1)})

	var quiet bytes.Buffer
	h, _ := newTestHeuristic(b, WithLogger(debugLogger(&quiet)))
	h.Reduce(cs.Call)
	assert.Empty(t, quiet.String())

	b = testutil.NewGraphBuilder()
	cs = b.CallSite(testutil.CallSiteSpec{Callees: fns(testutil.Fn("f", 12)), Frequency: ir.KnownFrequency(1)})
	cfg := DefaultConfig()
	cfg.TraceInlining = true
	var loud bytes.Buffer
	h, _ = newTestHeuristic(b, WithConfig(cfg), WithLogger(debugLogger(&loud)))
	h.Reduce(cs.Call)

	out := loud.String()
	assert.Contains(t, out, "inlining small function(s) at call site")
	assert.Contains(t, out, "pass=pass-1")
	assert.Contains(t, out, "node=7")
	assert.Contains(t, out, "op=Call")
}
