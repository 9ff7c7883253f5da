package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/polyinline/internal/ir"
)

func TestTraceSnapshot_LabelsSitesAndExposedCalls(t *testing.T) {
	result := NewResult()
	result.Sites = map[string]ir.NodeID{"x": 7}
	result.Decisions = []ir.Decision{
		{PassID: "ignored", Seq: 1, Node: 7, Mnemonic: "Call", Outcome: ir.OutcomeInlined,
			Reason: ir.ReasonSmallFunction, Frequency: "1",
			Callees:   []ir.CalleeRecord{{Name: "f", Size: 10, Inlinable: true}},
			TotalSize: 10, Cumulative: 10},
		{PassID: "ignored", Seq: 2, Node: 12, Mnemonic: "Construct", Outcome: ir.OutcomeDeclined,
			Reason: ir.ReasonForceInline, Frequency: "unknown",
			Callees: []ir.CalleeRecord{}, Cumulative: 10, Dispatch: ir.DispatchReused},
	}
	result.Inlined = []string{"f"}
	result.Cumulative = 10

	snapshot := NewTraceSnapshot("snap", result)
	got, err := snapshot.MarshalTrace()
	require.NoError(t, err)

	want := `{"cumulative":10,"decisions":[` +
		`{"callees":[{"inlinable":true,"name":"f","size":10}],"cumulative":10,"frequency":"1","mnemonic":"Call","outcome":"inlined","reason":"small_function","seq":1,"site":"x","total_size":10},` +
		`{"callees":[],"cumulative":10,"dispatch":"reused","frequency":"unknown","mnemonic":"Construct","outcome":"declined","reason":"force_inline","seq":2,"site":"#12","total_size":0}` +
		`],"inlined":["f"],"scenario_name":"snap"}`
	assert.Equal(t, want, string(got))
}

func TestTraceSnapshot_IgnoresPassIDs(t *testing.T) {
	s := mustParse(t, minimalScenario)

	r1, err := Run(s, WithPassIDGenerator(fixedIDs("pass-1")))
	require.NoError(t, err)
	r2, err := Run(s, WithPassIDGenerator(fixedIDs("pass-2")))
	require.NoError(t, err)
	require.NotEqual(t, r1.Decisions[0].PassID, r2.Decisions[0].PassID)

	snap1 := NewTraceSnapshot(s.Name, r1)
	snap2 := NewTraceSnapshot(s.Name, r2)
	j1, err := snap1.MarshalTrace()
	require.NoError(t, err)
	j2, err := snap2.MarshalTrace()
	require.NoError(t, err)
	assert.Equal(t, string(j1), string(j2))
}

func TestRunWithGolden_PolymorphicReuse(t *testing.T) {
	s, err := LoadScenario(filepath.Join("..", "..", "testdata", "scenarios", "polymorphic_reuse.yaml"))
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestAssertGolden_FromResult(t *testing.T) {
	s, err := LoadScenario(filepath.Join("..", "..", "testdata", "scenarios", "eligibility_rejections.yaml"))
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	require.NoError(t, AssertGolden(t, s.Name, result))
}

// fixedIDs is a generator that always returns id.
type fixedIDs string

func (f fixedIDs) Generate() string { return string(f) }
