package harness

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/polyinline/internal/heuristic"
	"github.com/roach88/polyinline/internal/ir"
	"github.com/roach88/polyinline/internal/store"
)

func mustParse(t *testing.T, src string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(src))
	require.NoError(t, err)
	return s
}

func TestRun_MinimalScenario(t *testing.T) {
	result, err := Run(mustParse(t, minimalScenario))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
	assert.Equal(t, "minimal", result.RunID)
	assert.Equal(t, []string{"f"}, result.Inlined)
	assert.Equal(t, 10, result.Cumulative)

	require.Len(t, result.Passes, 1)
	p := result.Passes[0]
	assert.Equal(t, "test-pass-default", p.ID)
	assert.Equal(t, 2, p.Iterations)
	assert.True(t, p.Converged)
	assert.True(t, p.Changed)
	assert.NotEqual(t, p.GraphBefore, p.GraphAfter)

	require.Len(t, result.Decisions, 1)
	d := result.Decisions[0]
	assert.Equal(t, result.Sites["site0"], d.Node)
	assert.Equal(t, ir.OutcomeInlined, d.Outcome)
	assert.Equal(t, ir.ReasonSmallFunction, d.Reason)
	assert.Equal(t, "test-pass-default", d.PassID)
}

func TestRun_FailedAssertionsMarkResult(t *testing.T) {
	s := mustParse(t, minimalScenario)
	s.Assertions = []Assertion{
		{Type: AssertInlined, Names: []string{"g"}},
		{Type: AssertCumulative, Value: 10},
	}

	result, err := Run(s)
	require.NoError(t, err, "assertion failures are not run errors")

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "assertion 0:")
}

func TestRun_Deterministic(t *testing.T) {
	path := filepath.Join("..", "..", "testdata", "scenarios", "monomorphic_budget.yaml")
	s, err := LoadScenario(path)
	require.NoError(t, err)

	r1, err := Run(s)
	require.NoError(t, err)
	r2, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, r1.Decisions, r2.Decisions)
	assert.Equal(t, r1.Passes, r2.Passes)
}

func TestRun_Decline(t *testing.T) {
	s := mustParse(t, `
name: decline
description: the inliner refuses f
decline: [f]
functions:
  - name: f
    size: 10
sites:
  - label: call
    callees: [f]
    frequency: "1"
assertions:
  - type: outcome
    site: call
    outcome: declined
    reason: small_function
  - type: inlined
    names: []
  - type: cumulative
    value: 0
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, 1, result.Passes[0].Iterations)
	assert.False(t, result.Passes[0].Changed)
}

func TestRun_SynthesizedDispatch(t *testing.T) {
	s := mustParse(t, `
name: synthesized
description: the callee phi has another consumer, so the dispatch is rebuilt
functions:
  - name: f
    size: 10
  - name: g
    size: 12
sites:
  - label: poly
    callees: [f, g]
    frequency: "1"
    extra_use: true
assertions:
  - type: dispatch
    site: poly
    dispatch: synthesized
  - type: inlined
    names: [f, g]
  - type: cumulative
    value: 22
  - type: converged
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_StressModeFromConfig(t *testing.T) {
	s := mustParse(t, `
name: stress
description: stress mode commits a large callee without queueing
config: 'inlining: mode: "stress"'
functions:
  - name: big
    size: 400
sites:
  - label: call
    callees: [big]
    frequency: "0.2"
assertions:
  - type: outcome
    site: call
    outcome: inlined
    reason: stress_mode
  - type: decision_count
    outcome: deferred
    count: 0
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_PolymorphismDisabled(t *testing.T) {
	s := mustParse(t, `
name: monomorphic_only
description: polymorphic sites are left alone
config: 'inlining: polymorphic_inlining: false'
functions:
  - name: f
    size: 10
  - name: g
    size: 10
sites:
  - label: poly
    callees: [f, g]
assertions:
  - type: outcome
    site: poly
    outcome: rejected
    reason: polymorphism_disabled
  - type: inlined
    names: []
`)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_InvalidConfig(t *testing.T) {
	s := mustParse(t, minimalScenario)
	s.Config = `inlining: mode: "fast"`

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}

func TestRun_MultiplePassesGetSequentialIDs(t *testing.T) {
	s, err := LoadScenario(filepath.Join("..", "..", "testdata", "scenarios", "two_pass_budget.yaml"))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Passes, 2)
	assert.Equal(t, "scenario-two-pass-1", result.Passes[0].ID)
	assert.Equal(t, "scenario-two-pass-2", result.Passes[1].ID)
	assert.Equal(t, 0, result.Passes[0].Ordinal)
	assert.Equal(t, 1, result.Passes[1].Ordinal)
	assert.True(t, result.Passes[0].Changed)
	assert.False(t, result.Passes[1].Changed)
	assert.Equal(t, result.Passes[0].GraphAfter, result.Passes[1].GraphBefore)
	assert.Equal(t, result.Passes[1].GraphBefore, result.Passes[1].GraphAfter)
	assert.Equal(t, 600, result.Passes[0].Cumulative)
	assert.Equal(t, 600, result.Passes[1].Cumulative)
}

func TestRun_JournalsToStore(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer st.Close()

	s := mustParse(t, minimalScenario)
	result, err := Run(s,
		WithStore(st),
		WithRunID("run-1"),
		WithPassIDGenerator(heuristic.NewFixedGenerator("pass-a")),
	)
	require.NoError(t, err)
	require.True(t, result.Pass, "errors: %v", result.Errors)

	passes, err := st.ListPasses(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, passes, 1)
	p := passes[0]
	assert.Equal(t, "pass-a", p.ID)
	assert.Equal(t, "minimal", p.Scenario)
	assert.Equal(t, 10, p.Cumulative)
	assert.Equal(t, ir.HeuristicVersion, p.HeuristicVersion)
	assert.Equal(t, result.Passes[0].DecisionsDigest, p.DecisionsDigest)
	assert.Contains(t, p.Config, "max_inlined_size_cumulative")
	assert.Contains(t, p.Config, "920")

	decisions, err := st.ReadDecisions(ctx, "pass-a")
	require.NoError(t, err)
	assert.Equal(t, result.Decisions, decisions)

	assert.NoError(t, st.VerifyRun(ctx, "run-1"))
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunContext(ctx, mustParse(t, minimalScenario))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
