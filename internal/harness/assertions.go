package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/polyinline/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes the decision journal to help debug the failure.
type AssertionError struct {
	Type      string        // Assertion type for categorization
	Expected  string        // Human-readable expected outcome
	Actual    string        // Human-readable actual outcome
	Decisions []ir.Decision // Full journal for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Decisions) > 0 {
		fmt.Fprintf(&buf, "\nDecisions:\n")
		for _, d := range e.Decisions {
			fmt.Fprintf(&buf, "  [%d] #%d:%s %s/%s %s\n",
				d.Seq, d.Node, d.Mnemonic, d.Outcome, d.Reason, calleeNames(d.Callees))
		}
	}

	return buf.String()
}

func calleeNames(callees []ir.CalleeRecord) string {
	names := make([]string, len(callees))
	for i, c := range callees {
		names[i] = c.Name
	}
	return "[" + strings.Join(names, " ") + "]"
}

// EvaluateAssertions checks every assertion and returns the failure
// messages, in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %v", i, err))
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertInlined:
		return assertInlined(result, a)
	case AssertOutcome:
		return assertOutcome(result, a)
	case AssertDispatch:
		return assertDispatch(result, a)
	case AssertCumulative:
		return assertCumulative(result, a)
	case AssertDecisionCount:
		return assertDecisionCount(result, a)
	case AssertConverged:
		return assertConverged(result)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

// assertInlined checks that the inliner substituted exactly the named
// callees, in order.
func assertInlined(result *Result, a Assertion) error {
	want := a.Names
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(result.Inlined, want) {
		return &AssertionError{
			Type:      AssertInlined,
			Expected:  fmt.Sprintf("%v", want),
			Actual:    fmt.Sprintf("%v", result.Inlined),
			Decisions: result.Decisions,
		}
	}
	return nil
}

// assertOutcome checks that some decision for the site has the outcome,
// and the reason when one is given.
func assertOutcome(result *Result, a Assertion) error {
	node := result.Sites[a.Site]
	var seen []string
	for _, d := range result.Decisions {
		if d.Node != node {
			continue
		}
		if string(d.Outcome) == a.Outcome && (a.Reason == "" || string(d.Reason) == a.Reason) {
			return nil
		}
		seen = append(seen, fmt.Sprintf("%s/%s", d.Outcome, d.Reason))
	}

	expected := a.Outcome
	if a.Reason != "" {
		expected += "/" + a.Reason
	}
	actual := "no decisions"
	if len(seen) > 0 {
		actual = strings.Join(seen, ", ")
	}
	return &AssertionError{
		Type:      AssertOutcome,
		Expected:  fmt.Sprintf("site %s: %s", a.Site, expected),
		Actual:    actual,
		Decisions: result.Decisions,
	}
}

// assertDispatch checks how the site was split.
func assertDispatch(result *Result, a Assertion) error {
	node := result.Sites[a.Site]
	for _, d := range result.Decisions {
		if d.Node == node && d.Dispatch != ir.DispatchNone {
			if string(d.Dispatch) == a.Dispatch {
				return nil
			}
			return &AssertionError{
				Type:      AssertDispatch,
				Expected:  fmt.Sprintf("site %s: %s dispatch", a.Site, a.Dispatch),
				Actual:    fmt.Sprintf("%s dispatch", d.Dispatch),
				Decisions: result.Decisions,
			}
		}
	}
	return &AssertionError{
		Type:      AssertDispatch,
		Expected:  fmt.Sprintf("site %s: %s dispatch", a.Site, a.Dispatch),
		Actual:    "site was never split",
		Decisions: result.Decisions,
	}
}

func assertCumulative(result *Result, a Assertion) error {
	if result.Cumulative != a.Value {
		return &AssertionError{
			Type:     AssertCumulative,
			Expected: fmt.Sprintf("cumulative size %d", a.Value),
			Actual:   fmt.Sprintf("cumulative size %d", result.Cumulative),
		}
	}
	return nil
}

func assertDecisionCount(result *Result, a Assertion) error {
	count := 0
	for _, d := range result.Decisions {
		if string(d.Outcome) == a.Outcome {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:      AssertDecisionCount,
			Expected:  fmt.Sprintf("%d %s decisions", a.Count, a.Outcome),
			Actual:    fmt.Sprintf("%d %s decisions", count, a.Outcome),
			Decisions: result.Decisions,
		}
	}
	return nil
}

func assertConverged(result *Result) error {
	for _, p := range result.Passes {
		if !p.Converged {
			return &AssertionError{
				Type:     AssertConverged,
				Expected: "every pass reaches a fixpoint",
				Actual:   fmt.Sprintf("pass %s stopped after %d rounds", p.ID, p.Iterations),
			}
		}
	}
	return nil
}
