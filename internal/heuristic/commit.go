package heuristic

import "github.com/roach88/polyinline/internal/ir"

// inlineCandidate hands c to the inliner. A polymorphic candidate is first
// split into one specialized call per callee, joined back together, and
// each specialized call is then inlined on its own.
func (h *Heuristic) inlineCandidate(c *Candidate, force bool) (ir.Reduction, ir.Dispatch) {
	g := h.graph
	n := c.NumFunctions
	node := c.Node
	if n == 1 {
		r := h.inliner.ReduceCall(node)
		if r.Changed() {
			h.budget.Charge(c.SharedAt(0).BytecodeLength())
		}
		return r, ir.DispatchNone
	}

	callee := g.ValueInput(node, 0)
	inputs := g.Inputs(node)
	d := h.createOrReuseDispatch(node, callee, c, inputs)
	calls := d.calls[:n]
	ifSuccesses := d.ifSuccesses[:n]

	// An exceptional call gets its exception projection rebuilt as a join
	// of one projection per specialized call.
	if ifException, ok := g.IsExceptionalCall(node); ok {
		ifExceptions := make([]ir.NodeID, n, n+1)
		for i, call := range calls {
			ifSuccesses[i] = g.NewNode(ir.IfSuccessOp(), call)
			ifExceptions[i] = g.NewNode(ir.IfExceptionOp(), call, call)
		}
		control := g.NewNode(ir.MergeOp(n), ifExceptions...)
		ifExceptions = append(ifExceptions, control)
		effect := g.NewNode(ir.EffectPhiOp(n), ifExceptions...)
		value := g.NewNode(ir.PhiOp(n), ifExceptions...)
		g.ReplaceWithValue(ifException, value, effect, control)
		g.Kill(ifException)
	}

	// Join the specialized calls where the original call was.
	control := g.NewNode(ir.MergeOp(n), ifSuccesses...)
	joined := append(append(make([]ir.NodeID, 0, n+1), calls...), control)
	effect := g.NewNode(ir.EffectPhiOp(n), joined...)
	value := g.NewNode(ir.PhiOp(n), joined...)
	g.ReplaceWithValue(node, value, effect, control)
	g.Kill(node)

	for i, call := range calls {
		if !force && !(c.CanInline[i] && h.budget.Cumulative() < h.cfg.MaxInlinedSizeCumulative) {
			continue
		}
		if h.inliner.ReduceCall(call).Changed() {
			// Make sure the specialized call is never resurrected.
			g.Kill(call)
			h.budget.Charge(c.SharedAt(i).BytecodeLength())
		}
	}
	if d.reused {
		return ir.Replace(value), ir.DispatchReused
	}
	return ir.Replace(value), ir.DispatchSynthesized
}
