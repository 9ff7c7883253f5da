package ir

// Outcome is the fate of a call-site candidate within one pass instance.
type Outcome string

const (
	OutcomeInlined   Outcome = "inlined"   // committed and the inliner changed the graph
	OutcomeDeclined  Outcome = "declined"  // committed but the inliner reported no change
	OutcomeRejected  Outcome = "rejected"  // not a candidate worth keeping
	OutcomeDeferred  Outcome = "deferred"  // enqueued for Finalize
	OutcomeSkipped   Outcome = "skipped"   // reserved estimate over the cumulative ceiling
	OutcomeDiscarded Outcome = "discarded" // node died before Finalize reached it
)

// Reason explains an Outcome.
type Reason string

const (
	ReasonForceInline          Reason = "force_inline"
	ReasonSmallFunction        Reason = "small_function"
	ReasonStressMode           Reason = "stress_mode"
	ReasonBudgetAvailable      Reason = "budget_available"
	ReasonPolymorphismDisabled Reason = "polymorphism_disabled"
	ReasonNotInlinable         Reason = "not_inlinable"
	ReasonDepthExceeded        Reason = "depth_exceeded"
	ReasonRestrictedMode       Reason = "restricted_mode"
	ReasonColdCallSite         Reason = "cold_call_site"
	ReasonQueued               Reason = "queued"
	ReasonOverBudget           Reason = "over_budget"
	ReasonDeadNode             Reason = "dead_node"
)

// Dispatch names how a polymorphic call site was split.
type Dispatch string

const (
	DispatchNone        Dispatch = ""            // monomorphic, or not committed
	DispatchReused      Dispatch = "reused"      // specialized along the existing branches
	DispatchSynthesized Dispatch = "synthesized" // new identity-test branch chain
)

// CalleeRecord describes one resolved callee of a candidate.
type CalleeRecord struct {
	Name      string `json:"name"`
	Size      int    `json:"size"`
	Inlinable bool   `json:"inlinable"`
}

// Decision is one journal entry written by the heuristic. It is a side
// channel: nothing in the heuristic reads decisions back.
type Decision struct {
	PassID     string         `json:"pass_id"`
	Seq        int64          `json:"seq"` // logical clock, never wall time
	Node       NodeID         `json:"node"`
	Mnemonic   string         `json:"mnemonic"`
	Outcome    Outcome        `json:"outcome"`
	Reason     Reason         `json:"reason"`
	Frequency  string         `json:"frequency"`
	Callees    []CalleeRecord `json:"callees"`
	TotalSize  int            `json:"total_size"`
	Cumulative int            `json:"cumulative"`
	Dispatch   Dispatch       `json:"dispatch,omitempty"`
}

// CanonicalMap converts the decision to the shape accepted by MarshalCanonical.
// The pass id is omitted so that traces compare equal across pass instances.
func (d Decision) CanonicalMap() map[string]any {
	callees := make([]any, len(d.Callees))
	for i, c := range d.Callees {
		callees[i] = map[string]any{
			"name":      c.Name,
			"size":      c.Size,
			"inlinable": c.Inlinable,
		}
	}
	return map[string]any{
		"seq":        d.Seq,
		"node":       int64(d.Node),
		"mnemonic":   d.Mnemonic,
		"outcome":    string(d.Outcome),
		"reason":     string(d.Reason),
		"frequency":  d.Frequency,
		"callees":    callees,
		"total_size": d.TotalSize,
		"cumulative": d.Cumulative,
		"dispatch":   string(d.Dispatch),
	}
}
