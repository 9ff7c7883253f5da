package testutil

import "github.com/roach88/polyinline/internal/ir"

// FnSpec describes a callee's metadata.
type FnSpec struct {
	Name        string
	Size        int // bytecode length
	NoBytecode  bool
	Builtin     ir.BuiltinID
	NonUser     bool
	ForceInline bool
}

// NewFunction builds a function from spec.
func NewFunction(spec FnSpec) *ir.Function {
	shared := &ir.SharedInfo{
		Name:        spec.Name,
		BuiltinID:   spec.Builtin,
		UserCode:    !spec.NonUser,
		ForceInline: spec.ForceInline,
	}
	if !spec.NoBytecode {
		shared.Bytecode = &ir.BytecodeArray{Length: spec.Size}
	}
	return ir.NewFunction(shared)
}

// Fn is shorthand for a compiled user function of the given size.
func Fn(name string, size int) *ir.Function {
	return NewFunction(FnSpec{Name: name, Size: size})
}

// GraphBuilder assembles test graphs with the call-site shapes the
// heuristic recognizes.
type GraphBuilder struct {
	G      *ir.Graph
	params map[int]ir.NodeID
}

// NewGraphBuilder creates a builder over a fresh graph.
func NewGraphBuilder() *GraphBuilder {
	return &GraphBuilder{G: ir.New(), params: make(map[int]ir.NodeID)}
}

// Parameter returns the (cached) parameter node with the given index.
func (b *GraphBuilder) Parameter(i int) ir.NodeID {
	if id, ok := b.params[i]; ok {
		return id
	}
	id := b.G.NewNode(ir.ParameterOp(i), b.G.Start())
	b.params[i] = id
	return id
}

// StateValues allocates a state-values node over vals.
func (b *GraphBuilder) StateValues(vals ...ir.NodeID) ir.NodeID {
	return b.G.NewNode(ir.StateValuesOp(len(vals)), vals...)
}

// FrameState allocates a frame state with fresh empty parameters.
func (b *GraphBuilder) FrameState(info ir.FrameStateInfo, stack, locals, outer ir.NodeID) ir.NodeID {
	g := b.G
	return g.NewNode(ir.FrameStateOp(info), b.StateValues(), locals, stack, g.Start(), g.Start(), outer)
}

// FrameStateChain builds depth nested interpreted frames and returns the
// innermost one, which carries stack and locals. A depth below 1 yields a
// single builtin-continuation frame, which counts as no function level.
func (b *GraphBuilder) FrameStateChain(depth int, stack, locals ir.NodeID) ir.NodeID {
	if depth < 1 {
		return b.FrameState(ir.FrameStateInfo{Type: ir.FrameBuiltinContinuation}, stack, locals, b.G.Start())
	}
	outer := b.G.Start()
	for i := 0; i < depth-1; i++ {
		outer = b.FrameState(ir.FrameStateInfo{Type: ir.FrameInterpreted, BailoutID: i}, b.Parameter(0), b.StateValues(), outer)
	}
	return b.FrameState(ir.FrameStateInfo{Type: ir.FrameInterpreted, BailoutID: depth - 1}, stack, locals, outer)
}

// CallSiteSpec selects the shape of a call site.
type CallSiteSpec struct {
	// Callees: one yields a constant target, several a phi over constants
	// at a merge of an if-chain.
	Callees []*ir.Function
	// Closure makes the target a CreateClosure of this metadata.
	Closure *ir.SharedInfo
	// Opaque makes the target a parameter, so nothing is resolved.
	Opaque bool

	Construct bool
	Frequency ir.Frequency // zero value is unknown
	// Depth is the number of enclosing function frames; 0 means 1.
	Depth int
	// Args is the number of value arguments after the target; 0 means 1.
	Args int

	// Checkpoint puts a checkpoint between the effect phi and the call.
	Checkpoint bool
	// StateUses references the callee phi from the frame states.
	StateUses bool
	// SharedLocals makes the call's locals tree shared with another node.
	SharedLocals bool
	// ExtraUse adds a consumer of the callee phi outside the call.
	ExtraUse bool
	// SeparateControl puts a branch between the merge and the call.
	SeparateControl bool
	// Exceptional attaches IfSuccess and IfException projections.
	Exceptional bool
}

// CallSite holds the interesting nodes of a built call site. Optional nodes
// that were not requested are ir.InvalidNode.
type CallSite struct {
	Call            ir.NodeID
	Target          ir.NodeID
	Merge           ir.NodeID
	EffectPhi       ir.NodeID
	Checkpoint      ir.NodeID
	CheckpointState ir.NodeID
	FrameState      ir.NodeID
	Locals          ir.NodeID
	IfSuccess       ir.NodeID
	IfException     ir.NodeID
	Return          ir.NodeID
}

// CallSite builds a call site hanging off Start.
func (b *GraphBuilder) CallSite(spec CallSiteSpec) CallSite {
	g := b.G
	cs := CallSite{
		Merge:           ir.InvalidNode,
		EffectPhi:       ir.InvalidNode,
		Checkpoint:      ir.InvalidNode,
		CheckpointState: ir.InvalidNode,
		IfSuccess:       ir.InvalidNode,
		IfException:     ir.InvalidNode,
	}
	control, effect := g.Start(), g.Start()
	receiver := b.Parameter(0)

	switch {
	case spec.Opaque:
		cs.Target = b.Parameter(1)
	case spec.Closure != nil:
		cs.Target = g.NewNode(ir.CreateClosureOp(spec.Closure), effect, control)
	case len(spec.Callees) == 1:
		cs.Target = g.HeapConstant(spec.Callees[0])
	case len(spec.Callees) > 1:
		b.polymorphicTarget(&cs, spec.Callees)
		control, effect = cs.Merge, cs.EffectPhi
	default:
		ir.Fatalf(ir.InvalidNode, "call site needs callees, a closure or an opaque target")
	}
	poly := cs.Merge != ir.InvalidNode

	stack := receiver
	cs.Locals = b.StateValues(receiver)
	if poly && spec.StateUses {
		stack = cs.Target
		cs.Locals = b.StateValues(b.StateValues(cs.Target), receiver)
	}
	if spec.SharedLocals {
		b.StateValues(cs.Locals)
	}

	if spec.Checkpoint {
		cpStack := receiver
		if poly && spec.StateUses {
			cpStack = cs.Target
		}
		cs.CheckpointState = b.FrameState(ir.FrameStateInfo{Type: ir.FrameInterpreted}, cpStack, b.StateValues(), g.Start())
		cs.Checkpoint = g.NewNode(ir.CheckpointOp(), cs.CheckpointState, effect, control)
		effect = cs.Checkpoint
	}
	if poly && spec.ExtraUse {
		g.NewNode(ir.ReferenceEqualOp(), cs.Target, receiver)
	}
	if spec.SeparateControl {
		branch := g.NewNode(ir.BranchOp(), receiver, control)
		control = g.NewNode(ir.IfTrueOp(), branch)
	}

	depth := spec.Depth
	if depth == 0 {
		depth = 1
	}
	cs.FrameState = b.FrameStateChain(depth, stack, cs.Locals)

	args := spec.Args
	if args == 0 {
		args = 1
	}
	inputs := []ir.NodeID{cs.Target}
	for i := 0; i < args; i++ {
		inputs = append(inputs, receiver)
	}
	inputs = append(inputs, cs.FrameState, effect, control)
	op := ir.CallOp(1+args, spec.Frequency)
	if spec.Construct {
		op = ir.ConstructOp(1+args, spec.Frequency)
	}
	cs.Call = g.NewNode(op, inputs...)

	if spec.Exceptional {
		cs.IfSuccess = g.NewNode(ir.IfSuccessOp(), cs.Call)
		cs.IfException = g.NewNode(ir.IfExceptionOp(), cs.Call, cs.Call)
		cs.Return = g.NewNode(ir.ReturnOp(), cs.Call, cs.Call, cs.IfSuccess)
		g.NewNode(ir.ReturnOp(), cs.IfException, cs.IfException, cs.IfException)
	} else {
		cs.Return = g.NewNode(ir.ReturnOp(), cs.Call, cs.Call, cs.Call)
	}
	return cs
}

// polymorphicTarget builds an if-chain on the receiver whose n edges meet
// at a merge, with a phi selecting one constant per edge.
func (b *GraphBuilder) polymorphicTarget(cs *CallSite, callees []*ir.Function) {
	g := b.G
	n := len(callees)
	edges := make([]ir.NodeID, n)
	control := g.Start()
	for i := 0; i < n-1; i++ {
		branch := g.NewNode(ir.BranchOp(), b.Parameter(0), control)
		edges[i] = g.NewNode(ir.IfTrueOp(), branch)
		control = g.NewNode(ir.IfFalseOp(), branch)
	}
	edges[n-1] = control
	cs.Merge = g.NewNode(ir.MergeOp(n), edges...)

	values := make([]ir.NodeID, 0, n+1)
	effects := make([]ir.NodeID, 0, n+1)
	for _, fn := range callees {
		values = append(values, g.HeapConstant(fn))
		effects = append(effects, g.Start())
	}
	cs.Target = g.NewNode(ir.PhiOp(n), append(values, cs.Merge)...)
	cs.EffectPhi = g.NewNode(ir.EffectPhiOp(n), append(effects, cs.Merge)...)
}
