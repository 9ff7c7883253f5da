package heuristic

import "github.com/roach88/polyinline/internal/ir"

// StateCloneMode selects how the state duplicator applies a rename.
type StateCloneMode int

const (
	// CloneState leaves the original subgraph intact and allocates copies
	// of every node on a changed path.
	CloneState StateCloneMode = iota
	// ChangeInPlace rewrites single-use nodes directly. Only valid when the
	// original subgraph is never referenced again.
	ChangeInPlace
)

func (m StateCloneMode) String() string {
	if m == ChangeInPlace {
		return "change_in_place"
	}
	return "clone_state"
}

// maxReplaceableUses caps the number of state-tree use sites the reuse
// dispatch is willing to rewrite.
const maxReplaceableUses = 8

// stateUse is one input slot of a state node that holds the renamed value.
type stateUse struct {
	node  ir.NodeID
	index int
}

// collectStateValuesOwnedUses appends every slot of the state-values tree sv
// that references value. Shared subtrees are boundaries and are skipped. It
// returns false when more than maxReplaceableUses sites would be collected.
func collectStateValuesOwnedUses(g *ir.Graph, value, sv ir.NodeID, uses *[]stateUse) bool {
	if g.UseCount(sv) > 1 {
		return true
	}
	for i := 0; i < g.InputCount(sv); i++ {
		input := g.InputAt(sv, i)
		switch {
		case g.Opcode(input) == ir.OpStateValues:
			if !collectStateValuesOwnedUses(g, value, input, uses) {
				return false
			}
		case input == value:
			if len(*uses) >= maxReplaceableUses {
				return false
			}
			*uses = append(*uses, stateUse{node: sv, index: i})
		}
	}
	return true
}

// collectFrameStateUniqueUses appends the slots of frame state fs that
// reference value: its stack slot and the owned part of its locals tree.
func collectFrameStateUniqueUses(g *ir.Graph, value, fs ir.NodeID, uses *[]stateUse) bool {
	if g.UseCount(fs) > 1 {
		return true
	}
	if g.InputAt(fs, ir.FrameStateStackInput) == value {
		if len(*uses) >= maxReplaceableUses {
			return false
		}
		*uses = append(*uses, stateUse{node: fs, index: ir.FrameStateStackInput})
	}
	return collectStateValuesOwnedUses(g, value, g.InputAt(fs, ir.FrameStateLocalsInput), uses)
}

// duplicateStateValuesAndRename returns sv with every owned reference to
// from replaced by to. Shared trees come back unchanged, and so do trees
// that never mention from.
//
// All children are processed before sv itself is cloned: a clone adds a use
// to every child, which would turn owned children into shared ones.
func duplicateStateValuesAndRename(g *ir.Graph, sv, from, to ir.NodeID, mode StateCloneMode) ir.NodeID {
	if g.UseCount(sv) > 1 {
		return sv
	}
	inputs := g.Inputs(sv)
	processed := make([]ir.NodeID, len(inputs))
	changed := false
	for i, input := range inputs {
		processed[i] = input
		switch {
		case g.Opcode(input) == ir.OpStateValues:
			processed[i] = duplicateStateValuesAndRename(g, input, from, to, mode)
		case input == from:
			processed[i] = to
		}
		changed = changed || processed[i] != input
	}
	if !changed {
		return sv
	}
	cp := sv
	if mode == CloneState {
		cp = g.CloneNode(sv)
	}
	for i, input := range inputs {
		if processed[i] != input {
			g.ReplaceInput(cp, i, processed[i])
		}
	}
	return cp
}

// duplicateFrameStateAndRename is duplicateStateValuesAndRename for a frame
// state: it renames the stack slot and recurses into the locals tree.
func duplicateFrameStateAndRename(g *ir.Graph, fs, from, to ir.NodeID, mode StateCloneMode) ir.NodeID {
	if g.UseCount(fs) > 1 {
		return fs
	}
	locals := g.InputAt(fs, ir.FrameStateLocalsInput)
	newLocals := duplicateStateValuesAndRename(g, locals, from, to, mode)
	stackChanged := g.InputAt(fs, ir.FrameStateStackInput) == from
	if newLocals == locals && !stackChanged {
		return fs
	}
	cp := fs
	if mode == CloneState {
		cp = g.CloneNode(fs)
	}
	if stackChanged {
		g.ReplaceInput(cp, ir.FrameStateStackInput, to)
	}
	if newLocals != locals {
		g.ReplaceInput(cp, ir.FrameStateLocalsInput, newLocals)
	}
	return cp
}
