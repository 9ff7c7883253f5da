package testutil

import "github.com/roach88/polyinline/internal/ir"

// FakeInliner stands in for body substitution. It replaces a call with an
// InlinedBody placeholder, optionally exposing nested call sites from the
// callee's body, and records what it was asked to do.
type FakeInliner struct {
	Graph *ir.Graph
	// Decline lists callee names the inliner refuses (reports no change).
	Decline map[string]bool
	// Bodies lists, per callee name, the functions its body calls. Inlining
	// the callee exposes one call site per entry, one frame deeper.
	Bodies map[string][]*ir.Function

	// Calls records every ReduceCall in order.
	Calls []ir.NodeID
	// Inlined records the names of substituted callees in order.
	Inlined []string
	// Exposed records the call sites created from callee bodies.
	Exposed []ir.NodeID
}

// NewFakeInliner creates an inliner over g that accepts every callee.
func NewFakeInliner(g *ir.Graph) *FakeInliner {
	return &FakeInliner{
		Graph:   g,
		Decline: make(map[string]bool),
		Bodies:  make(map[string][]*ir.Function),
	}
}

// ReduceCall implements heuristic.Inliner.
func (f *FakeInliner) ReduceCall(node ir.NodeID) ir.Reduction {
	g := f.Graph
	f.Calls = append(f.Calls, node)
	if g.IsDead(node) {
		return ir.NoChange()
	}
	shared := calleeShared(g, g.ValueInput(node, 0))
	if shared == nil || f.Decline[shared.DebugName()] {
		return ir.NoChange()
	}

	effect := g.EffectInput(node, 0)
	control := g.ControlInput(node, 0)
	outer := g.FrameStateInput(node)
	freq := frequencyOf(g, node)
	for _, nested := range f.Bodies[shared.DebugName()] {
		fs := g.NewNode(ir.FrameStateOp(ir.FrameStateInfo{Type: ir.FrameInterpreted, Shared: shared}),
			g.NewNode(ir.StateValuesOp(0)), g.NewNode(ir.StateValuesOp(0)), g.Start(), g.Start(), g.Start(), outer)
		call := g.NewNode(ir.CallOp(1, freq), g.HeapConstant(nested), fs, effect, control)
		effect, control = call, call
		f.Exposed = append(f.Exposed, call)
	}

	body := g.NewNode(ir.InlinedBodyOp(shared), effect, control)
	g.ReplaceWithValue(node, body, body, body)
	g.Kill(node)
	f.Inlined = append(f.Inlined, shared.DebugName())
	return ir.Replace(body)
}

func calleeShared(g *ir.Graph, target ir.NodeID) *ir.SharedInfo {
	switch g.Opcode(target) {
	case ir.OpHeapConstant:
		if fn, ok := ir.HeapConstantParamsOf(g.Op(target)).Value.(*ir.Function); ok {
			return fn.Shared
		}
	case ir.OpCreateClosure:
		return ir.CreateClosureParamsOf(g.Op(target)).Shared
	}
	return nil
}

func frequencyOf(g *ir.Graph, node ir.NodeID) ir.Frequency {
	if g.Opcode(node) == ir.OpConstruct {
		return ir.ConstructParamsOf(g.Op(node)).Frequency
	}
	return ir.CallParamsOf(g.Op(node)).Frequency
}
