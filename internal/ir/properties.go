package ir

// Input classification helpers. They index by the Operator's input counts, so
// they work for every opcode.

func (g *Graph) firstFrameStateIndex(id NodeID) int { return g.Op(id).ValueIn }

func (g *Graph) firstEffectIndex(id NodeID) int {
	op := g.Op(id)
	return op.ValueIn + op.FrameStateIn
}

func (g *Graph) firstControlIndex(id NodeID) int {
	op := g.Op(id)
	return op.ValueIn + op.FrameStateIn + op.EffectIn
}

// ValueInput returns value input i of id.
func (g *Graph) ValueInput(id NodeID, i int) NodeID {
	if i >= g.Op(id).ValueIn {
		Fatalf(id, "value input %d out of range", i)
	}
	return g.InputAt(id, i)
}

// FrameStateInput returns the frame state input of id.
func (g *Graph) FrameStateInput(id NodeID) NodeID {
	if g.Op(id).FrameStateIn == 0 {
		Fatalf(id, "%s has no frame state input", g.Mnemonic(id))
	}
	return g.InputAt(id, g.firstFrameStateIndex(id))
}

// FrameStateInputIndex returns the input position of id's frame state.
func (g *Graph) FrameStateInputIndex(id NodeID) int {
	if g.Op(id).FrameStateIn == 0 {
		Fatalf(id, "%s has no frame state input", g.Mnemonic(id))
	}
	return g.firstFrameStateIndex(id)
}

// EffectInput returns effect input i of id.
func (g *Graph) EffectInput(id NodeID, i int) NodeID {
	if i >= g.Op(id).EffectIn {
		Fatalf(id, "effect input %d out of range", i)
	}
	return g.InputAt(id, g.firstEffectIndex(id)+i)
}

// EffectInputIndex returns the input position of effect input i.
func (g *Graph) EffectInputIndex(id NodeID, i int) int {
	if i >= g.Op(id).EffectIn {
		Fatalf(id, "effect input %d out of range", i)
	}
	return g.firstEffectIndex(id) + i
}

// ControlInput returns control input i of id.
func (g *Graph) ControlInput(id NodeID, i int) NodeID {
	if i >= g.Op(id).ControlIn {
		Fatalf(id, "control input %d out of range", i)
	}
	return g.InputAt(id, g.firstControlIndex(id)+i)
}

// ControlInputIndex returns the input position of control input i.
func (g *Graph) ControlInputIndex(id NodeID, i int) int {
	if i >= g.Op(id).ControlIn {
		Fatalf(id, "control input %d out of range", i)
	}
	return g.firstControlIndex(id) + i
}

// IsValueEdge reports whether e lands in a value input slot.
func (g *Graph) IsValueEdge(e Edge) bool {
	return e.Index < g.Op(e.From).ValueIn
}

// IsFrameStateEdge reports whether e lands in the frame state slot.
func (g *Graph) IsFrameStateEdge(e Edge) bool {
	first := g.firstFrameStateIndex(e.From)
	return e.Index >= first && e.Index < first+g.Op(e.From).FrameStateIn
}

// IsEffectEdge reports whether e lands in an effect input slot.
func (g *Graph) IsEffectEdge(e Edge) bool {
	first := g.firstEffectIndex(e.From)
	return e.Index >= first && e.Index < first+g.Op(e.From).EffectIn
}

// IsControlEdge reports whether e lands in a control input slot.
func (g *Graph) IsControlEdge(e Edge) bool {
	return e.Index >= g.firstControlIndex(e.From)
}

// IsExceptionalCall reports whether id has an IfException consumer and
// returns it.
func (g *Graph) IsExceptionalCall(id NodeID) (NodeID, bool) {
	for _, e := range g.get(id).uses {
		if g.Opcode(e.From) == OpIfException {
			return e.From, true
		}
	}
	return InvalidNode, false
}

// ReplaceWithValue redirects every consumer of id: value and frame-state uses
// to value, effect uses to effect, control uses to control. An IfSuccess
// consumer is itself replaced by control and killed; IfException edges are
// severed to Dead since the replacement cannot throw through id anymore.
func (g *Graph) ReplaceWithValue(id, value, effect, control NodeID) {
	for _, e := range g.Uses(id) {
		user := e.From
		if g.IsDead(user) {
			continue
		}
		switch {
		case g.Opcode(user) == OpIfException:
			g.ReplaceInput(user, e.Index, g.dead)
		case g.IsControlEdge(e):
			if g.Opcode(user) == OpIfSuccess {
				g.ReplaceAllUses(user, control)
				g.Kill(user)
				continue
			}
			g.ReplaceInput(user, e.Index, control)
		case g.IsEffectEdge(e):
			g.ReplaceInput(user, e.Index, effect)
		case g.IsValueEdge(e), g.IsFrameStateEdge(e):
			g.ReplaceInput(user, e.Index, value)
		default:
			Fatalf(user, "input %d of %s has no class", e.Index, g.Mnemonic(user))
		}
	}
}
