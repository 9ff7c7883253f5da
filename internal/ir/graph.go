package ir

import "slices"

// NodeID is a stable handle into a Graph's node arena.
type NodeID int32

// InvalidNode is the null handle. Killed nodes have every input set to it.
const InvalidNode NodeID = -1

// Edge is a use-edge: node From consumes the used node at input Index.
type Edge struct {
	From  NodeID
	Index int
}

type node struct {
	op     Operator
	inputs []NodeID
	uses   []Edge
	killed bool
}

// Graph is an arena of nodes addressed by NodeID.
//
// The graph owns every node; callers hold handles only. Node ids are dense
// and allocated in creation order, so a larger id means a younger node.
//
// Graph is not safe for concurrent use. The pipeline that owns it runs one
// pass at a time.
type Graph struct {
	nodes     []node
	start     NodeID
	dead      NodeID
	constants map[any]NodeID
}

// New creates a graph holding only the Start and Dead singletons.
func New() *Graph {
	g := &Graph{constants: make(map[any]NodeID)}
	g.start = g.NewNode(StartOp())
	g.dead = g.NewNode(DeadOp())
	return g
}

// Start returns the graph's start node.
func (g *Graph) Start() NodeID { return g.start }

// Dead returns the graph's Dead singleton, used to sever edges.
func (g *Graph) Dead() NodeID { return g.dead }

// NodeCount returns the number of nodes ever allocated, dead ones included.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// NewNode appends a node and records its use-edges.
// The number of inputs must match op.InputCount().
func (g *Graph) NewNode(op Operator, inputs ...NodeID) NodeID {
	if len(inputs) != op.InputCount() {
		Fatalf(InvalidNode, "%s expects %d inputs, got %d", op.Mnemonic(), op.InputCount(), len(inputs))
	}
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, node{op: op, inputs: slices.Clone(inputs)})
	for i, in := range inputs {
		g.check(in)
		g.addUse(in, Edge{From: id, Index: i})
	}
	return id
}

// CloneNode allocates a shallow copy of id: same operator, same inputs.
func (g *Graph) CloneNode(id NodeID) NodeID {
	n := g.get(id)
	if n.killed {
		Fatalf(id, "clone of killed node")
	}
	return g.NewNode(n.op, n.inputs...)
}

// HeapConstant returns the canonical HeapConstant node for v, creating it on
// first use. v must be comparable (typically a *Function).
func (g *Graph) HeapConstant(v any) NodeID {
	if id, ok := g.constants[v]; ok && !g.nodes[id].killed {
		return id
	}
	id := g.NewNode(HeapConstantOp(v))
	g.constants[v] = id
	return id
}

// Op returns the node's operator.
func (g *Graph) Op(id NodeID) Operator { return g.get(id).op }

// Opcode returns the node's opcode.
func (g *Graph) Opcode(id NodeID) Opcode { return g.get(id).op.Code }

// Mnemonic returns the node's opcode name.
func (g *Graph) Mnemonic(id NodeID) string { return g.get(id).op.Mnemonic() }

// InputCount returns the number of inputs of id.
func (g *Graph) InputCount(id NodeID) int { return len(g.get(id).inputs) }

// InputAt returns input i of id.
func (g *Graph) InputAt(id NodeID, i int) NodeID {
	n := g.get(id)
	if i < 0 || i >= len(n.inputs) {
		Fatalf(id, "input index %d out of range [0,%d)", i, len(n.inputs))
	}
	return n.inputs[i]
}

// Inputs returns a copy of id's inputs.
func (g *Graph) Inputs(id NodeID) []NodeID { return slices.Clone(g.get(id).inputs) }

// ReplaceInput rewires input i of id to replacement, moving the use-edge.
func (g *Graph) ReplaceInput(id NodeID, i int, replacement NodeID) {
	n := g.get(id)
	if i < 0 || i >= len(n.inputs) {
		Fatalf(id, "input index %d out of range [0,%d)", i, len(n.inputs))
	}
	g.check(replacement)
	old := n.inputs[i]
	if old == replacement {
		return
	}
	e := Edge{From: id, Index: i}
	if old != InvalidNode {
		g.removeUse(old, e)
	}
	n.inputs[i] = replacement
	g.addUse(replacement, e)
}

// Uses returns a copy of id's use-edges.
func (g *Graph) Uses(id NodeID) []Edge { return slices.Clone(g.get(id).uses) }

// UseCount returns the number of use-edges of id.
func (g *Graph) UseCount(id NodeID) int { return len(g.get(id).uses) }

// Kill nulls every input of id and marks it dead. Remaining consumers of id
// keep their (now dangling) edges until they are rewired or killed too.
func (g *Graph) Kill(id NodeID) {
	n := g.get(id)
	if n.killed {
		return
	}
	for i, in := range n.inputs {
		if in != InvalidNode {
			g.removeUse(in, Edge{From: id, Index: i})
		}
		n.inputs[i] = InvalidNode
	}
	n.killed = true
}

// IsDead reports whether id has been killed.
func (g *Graph) IsDead(id NodeID) bool { return g.get(id).killed }

// LiveNodes returns the ids of all nodes that were not killed, in id order.
func (g *Graph) LiveNodes() []NodeID {
	live := make([]NodeID, 0, len(g.nodes))
	for i := range g.nodes {
		if !g.nodes[i].killed {
			live = append(live, NodeID(i))
		}
	}
	return live
}

// ReplaceAllUses points every consumer of id at replacement.
func (g *Graph) ReplaceAllUses(id, replacement NodeID) {
	for _, e := range g.Uses(id) {
		g.ReplaceInput(e.From, e.Index, replacement)
	}
}

func (g *Graph) get(id NodeID) *node {
	if id < 0 || int(id) >= len(g.nodes) {
		Fatalf(id, "unknown node")
	}
	return &g.nodes[id]
}

func (g *Graph) check(id NodeID) {
	if id < 0 || int(id) >= len(g.nodes) {
		Fatalf(id, "unknown input node")
	}
}

func (g *Graph) addUse(id NodeID, e Edge) {
	n := &g.nodes[id]
	n.uses = append(n.uses, e)
}

func (g *Graph) removeUse(id NodeID, e Edge) {
	n := &g.nodes[id]
	for i, u := range n.uses {
		if u == e {
			n.uses = slices.Delete(n.uses, i, i+1)
			return
		}
	}
	Fatalf(id, "missing use-edge from #%d:%d", e.From, e.Index)
}
