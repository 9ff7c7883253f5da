package heuristic

import "github.com/roach88/polyinline/internal/ir"

// Candidate is a call site together with its resolved callees, pending an
// inline decision.
//
// Functions[i] is nil for a deferred callee (a closure that is not yet
// instantiated); Shared[i] always holds the callee's metadata.
type Candidate struct {
	Node         ir.NodeID
	Functions    [MaxCallPolymorphism]*ir.Function
	Shared       [MaxCallPolymorphism]*ir.SharedInfo
	NumFunctions int
	CanInline    [MaxCallPolymorphism]bool
	TotalSize    int
	Frequency    ir.Frequency
}

// SharedAt returns the metadata of callee i.
func (c *Candidate) SharedAt(i int) *ir.SharedInfo {
	if c.Functions[i] != nil {
		return c.Functions[i].Shared
	}
	return c.Shared[i]
}

// callees converts the resolved callees for the journal.
func (c *Candidate) callees() []ir.CalleeRecord {
	out := make([]ir.CalleeRecord, c.NumFunctions)
	for i := range out {
		s := c.SharedAt(i)
		out[i] = ir.CalleeRecord{
			Name:      s.DebugName(),
			Size:      s.BytecodeLength(),
			Inlinable: c.CanInline[i],
		}
	}
	return out
}

// collectFunctions resolves the callee-position value to at most limit
// statically-known callees. It returns 0 for any shape it does not
// recognize, including a phi with more than limit inputs.
func collectFunctions(g *ir.Graph, callee ir.NodeID, limit int, c *Candidate) int {
	if fn, ok := functionConstant(g, callee); ok {
		c.Functions[0] = fn
		return 1
	}
	switch g.Opcode(callee) {
	case ir.OpPhi:
		n := g.Op(callee).ValueIn
		if n > limit {
			return 0
		}
		for i := 0; i < n; i++ {
			fn, ok := functionConstant(g, g.ValueInput(callee, i))
			if !ok {
				return 0
			}
			c.Functions[i] = fn
		}
		return n
	case ir.OpCreateClosure:
		c.Functions[0] = nil
		c.Shared[0] = ir.CreateClosureParamsOf(g.Op(callee)).Shared
		return 1
	}
	return 0
}

func functionConstant(g *ir.Graph, id ir.NodeID) (*ir.Function, bool) {
	if g.Opcode(id) != ir.OpHeapConstant {
		return nil, false
	}
	fn, ok := ir.HeapConstantParamsOf(g.Op(id)).Value.(*ir.Function)
	return fn, ok && fn != nil
}

// callFrequency reads the frequency annotation; calls and constructs keep it
// in different parameter slots.
func callFrequency(g *ir.Graph, node ir.NodeID) ir.Frequency {
	if g.Opcode(node) == ir.OpCall {
		return ir.CallParamsOf(g.Op(node)).Frequency
	}
	return ir.ConstructParamsOf(g.Op(node)).Frequency
}
