package heuristic

import (
	"slices"

	"github.com/roach88/polyinline/internal/ir"
)

// dispatch is the result of specializing a polymorphic call site: one
// monomorphic call per callee, and the control edge that continues after it.
type dispatch struct {
	calls       [MaxCallPolymorphism]ir.NodeID
	ifSuccesses [MaxCallPolymorphism]ir.NodeID
	reused      bool
}

// createOrReuseDispatch splits node into c.NumFunctions specialized calls.
// inputs is a snapshot of node's inputs; it is used as scratch space.
func (h *Heuristic) createOrReuseDispatch(node, callee ir.NodeID, c *Candidate, inputs []ir.NodeID) dispatch {
	if d, ok := h.tryReuseDispatch(node, callee, c, inputs); ok {
		return d
	}

	g := h.graph
	var d dispatch
	n := c.NumFunctions
	controlIndex := g.ControlInputIndex(node, 0)
	fallthroughControl := g.ControlInput(node, 0)
	for i := 0; i < n; i++ {
		target := g.HeapConstant(c.Functions[i])
		if i != n-1 {
			check := g.NewNode(ir.ReferenceEqualOp(), callee, target)
			branch := g.NewNode(ir.BranchOp(), check, fallthroughControl)
			fallthroughControl = g.NewNode(ir.IfFalseOp(), branch)
			d.ifSuccesses[i] = g.NewNode(ir.IfTrueOp(), branch)
		} else {
			d.ifSuccesses[i] = fallthroughControl
		}

		// The target is specialized to the known callee; the control
		// dependency is this branch's edge.
		inputs[0] = target
		inputs[controlIndex] = d.ifSuccesses[i]
		d.calls[i] = g.NewNode(g.Op(node), inputs...)
		d.ifSuccesses[i] = d.calls[i]
	}
	return d
}

// tryReuseDispatch specializes node along the control flow that already
// selects its target, when callee is a phi at the call's own merge and
// nothing but state bookkeeping happens in between. It reports false,
// leaving the graph untouched, whenever that shape is not matched exactly.
func (h *Heuristic) tryReuseDispatch(node, callee ir.NodeID, c *Candidate, inputs []ir.NodeID) (dispatch, bool) {
	g := h.graph
	n := c.NumFunctions
	if g.Opcode(callee) != ir.OpPhi || g.Op(callee).ValueIn != n {
		ir.Fatalf(callee, "polymorphic callee must be a %d-input phi, got %s", n, g.Op(callee))
	}

	// No control node between the callee computation and the call.
	merge := g.ControlInput(callee, 0)
	if g.ControlInput(node, 0) != merge {
		return dispatch{}, false
	}

	// No effect between them either, except one checkpoint. The checkpoint
	// is dropped: the callee computation has its own to fall back to.
	checkpoint := ir.InvalidNode
	effect := g.EffectInput(node, 0)
	if g.Opcode(effect) == ir.OpCheckpoint {
		checkpoint = effect
		if g.ControlInput(checkpoint, 0) != merge {
			return dispatch{}, false
		}
		effect = g.EffectInput(checkpoint, 0)
	}
	if g.Opcode(effect) != ir.OpEffectPhi || g.ControlInput(effect, 0) != merge {
		return dispatch{}, false
	}
	effectPhi := effect

	// The merge, effect phi and checkpoint are killed below, so nothing
	// outside the dispatch may depend on them.
	if !onlyUsedBy(g, merge, callee, effectPhi, checkpoint, node) ||
		!onlyUsedBy(g, effectPhi, checkpoint, node) ||
		(checkpoint != ir.InvalidNode && !onlyUsedBy(g, checkpoint, node)) {
		return dispatch{}, false
	}

	// The callee may be used only as the call target, in the checkpoint's
	// frame state, and in the call's lazy frame state. Collect the state
	// occurrences first, then check that they account for every use.
	var uses []stateUse
	checkpointState := ir.InvalidNode
	if checkpoint != ir.InvalidNode {
		checkpointState = g.FrameStateInput(checkpoint)
		if !collectFrameStateUniqueUses(g, callee, checkpointState, &uses) {
			return dispatch{}, false
		}
	}
	frameState := g.FrameStateInput(node)
	if !collectFrameStateUniqueUses(g, callee, frameState, &uses) {
		return dispatch{}, false
	}
	for _, e := range g.Uses(callee) {
		if e.From == node && e.Index == 0 {
			continue
		}
		if !slices.Contains(uses, stateUse{node: e.From, index: e.Index}) {
			return dispatch{}, false
		}
	}

	var d dispatch
	d.reused = true
	stateIndex := g.FrameStateInputIndex(node)
	effectIndex := g.EffectInputIndex(node, 0)
	controlIndex := g.ControlInputIndex(node, 0)
	for i := 0; i < n; i++ {
		target := g.InputAt(callee, i)
		branchEffect := g.EffectInput(effectPhi, i)
		control := g.ControlInput(merge, i)

		// The last branch may consume the originals: nothing reads them
		// afterwards.
		mode := CloneState
		if i == n-1 {
			mode = ChangeInPlace
		}
		if checkpoint != ir.InvalidNode {
			state := duplicateFrameStateAndRename(g, checkpointState, callee, target, mode)
			branchEffect = g.NewNode(g.Op(checkpoint), state, branchEffect, control)
		}
		lazyState := duplicateFrameStateAndRename(g, frameState, callee, target, mode)

		inputs[0] = target
		inputs[stateIndex] = lazyState
		inputs[effectIndex] = branchEffect
		inputs[controlIndex] = control
		d.calls[i] = g.NewNode(g.Op(node), inputs...)
		d.ifSuccesses[i] = d.calls[i]
	}

	// Sever the control inputs so the merge can be killed, then kill the
	// dispatch nodes it fed.
	g.ReplaceInput(node, controlIndex, g.Dead())
	g.ReplaceInput(callee, n, g.Dead())
	g.ReplaceInput(effectPhi, n, g.Dead())
	if checkpoint != ir.InvalidNode {
		g.ReplaceInput(checkpoint, g.ControlInputIndex(checkpoint, 0), g.Dead())
	}
	g.Kill(merge)
	if checkpoint != ir.InvalidNode {
		g.Kill(checkpoint)
	}
	g.Kill(effectPhi)
	g.Kill(callee)
	return d, true
}

// onlyUsedBy reports whether every consumer of id is one of allowed.
// InvalidNode entries in allowed are ignored.
func onlyUsedBy(g *ir.Graph, id ir.NodeID, allowed ...ir.NodeID) bool {
	for _, e := range g.Uses(id) {
		if !slices.Contains(allowed, e.From) {
			return false
		}
	}
	return true
}
