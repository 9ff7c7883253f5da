package harness

import "github.com/roach88/polyinline/internal/ir"

// PassResult summarizes one heuristic instance of a run.
type PassResult struct {
	ID      string `json:"id"`
	Ordinal int    `json:"ordinal"`
	// Iterations counts Reduce/Finalize rounds, including the final
	// round that changed nothing.
	Iterations int  `json:"iterations"`
	Converged  bool `json:"converged"`
	Changed    bool `json:"changed"`
	Cumulative int  `json:"cumulative"`

	GraphBefore     string `json:"graph_before"`
	GraphAfter      string `json:"graph_after"`
	DecisionsDigest string `json:"decisions_digest"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all assertions hold.
	Pass bool `json:"pass"`

	// RunID groups the passes in the journal.
	RunID string `json:"run_id"`

	// Decisions is the concatenated journal of every pass, in clock order.
	Decisions []ir.Decision `json:"decisions"`

	// Passes summarizes each heuristic instance in order.
	Passes []PassResult `json:"passes"`

	// Inlined lists substituted callee names in inlining order.
	Inlined []string `json:"inlined"`

	// Cumulative is the cumulative inlined size after the last pass.
	Cumulative int `json:"cumulative"`

	// Sites maps site labels to their call nodes.
	Sites map[string]ir.NodeID `json:"sites"`

	// Errors contains assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Decisions: []ir.Decision{},
		Passes:    []PassResult{},
		Inlined:   []string{},
		Sites:     make(map[string]ir.NodeID),
		Errors:    []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Converged reports whether every pass reached a fixpoint.
func (r *Result) Converged() bool {
	for _, p := range r.Passes {
		if !p.Converged {
			return false
		}
	}
	return true
}

// siteLabel returns the label of the site whose call is node, or "" when
// node is not a scenario site (e.g. a call exposed by inlining).
func (r *Result) siteLabel(node ir.NodeID) string {
	for label, id := range r.Sites {
		if id == node {
			return label
		}
	}
	return ""
}
