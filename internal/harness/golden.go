package harness

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/polyinline/internal/ir"
)

// TraceSnapshot captures the decision journal of a scenario execution.
// Pass ids are excluded so that snapshots are stable across generators.
type TraceSnapshot struct {
	ScenarioName string
	Decisions    []ir.Decision
	Inlined      []string
	Cumulative   int
	// labels names scenario sites; other nodes are rendered as "#id".
	labels func(ir.NodeID) string
}

// NewTraceSnapshot builds the snapshot of a result.
func NewTraceSnapshot(name string, result *Result) TraceSnapshot {
	return TraceSnapshot{
		ScenarioName: name,
		Decisions:    result.Decisions,
		Inlined:      result.Inlined,
		Cumulative:   result.Cumulative,
		labels:       result.siteLabel,
	}
}

// toCanonicalMap converts the snapshot to the shape accepted by
// ir.MarshalCanonical.
func (s *TraceSnapshot) toCanonicalMap() map[string]any {
	decisions := make([]any, len(s.Decisions))
	for i, d := range s.Decisions {
		m := d.CanonicalMap()
		delete(m, "node")
		site := ""
		if s.labels != nil {
			site = s.labels(d.Node)
		}
		if site == "" {
			site = fmt.Sprintf("#%d", d.Node)
		}
		m["site"] = site
		if d.Dispatch == ir.DispatchNone {
			delete(m, "dispatch")
		}
		decisions[i] = m
	}

	inlined := make([]any, len(s.Inlined))
	for i, name := range s.Inlined {
		inlined[i] = name
	}

	return map[string]any{
		"scenario_name": s.ScenarioName,
		"decisions":     decisions,
		"inlined":       inlined,
		"cumulative":    s.Cumulative,
	}
}

// MarshalTrace renders the snapshot as canonical JSON.
func (s *TraceSnapshot) MarshalTrace() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the decision trace
// against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Test failure (via goldie)
// occurs if the trace doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result's trace against a golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := NewTraceSnapshot(scenarioName, result)
	traceJSON, err := snapshot.MarshalTrace()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, traceJSON)

	return nil
}
