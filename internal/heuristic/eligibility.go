package heuristic

import "github.com/roach88/polyinline/internal/ir"

// canInlineFunction reports whether a callee is admissible at all.
func canInlineFunction(cfg Config, shared *ir.SharedInfo) bool {
	// Built-ins are handled by a dedicated reducer.
	if shared.HasBuiltinID() {
		return false
	}
	if !shared.IsUserCode() {
		return false
	}
	// No bytecode: never compiled, or compiled for another pipeline.
	if !shared.HasBytecode() {
		return false
	}
	return shared.BytecodeLength() <= cfg.MaxInlinedSize
}

// isSmallInlineFunction reports whether a callee is small enough to inline
// without queueing. Functions that were never compiled are never small.
func isSmallInlineFunction(cfg Config, shared *ir.SharedInfo) bool {
	return shared.HasBytecode() && shared.BytecodeLength() <= cfg.MaxInlinedSizeSmall
}

// eligibility is the aggregate verdict over all callees of a candidate.
type eligibility struct {
	force     bool // every callee carries the force-inline hint
	small     bool // every callee is small
	canInline bool // at least one callee is admissible
}

// evaluate fills c.CanInline and c.TotalSize and aggregates the per-callee
// predicates.
func evaluate(cfg Config, c *Candidate) eligibility {
	e := eligibility{force: true, small: true}
	c.TotalSize = 0
	for i := 0; i < c.NumFunctions; i++ {
		shared := c.SharedAt(i)
		if !shared.ForceInline {
			e.force = false
		}
		c.CanInline[i] = canInlineFunction(cfg, shared)
		if c.CanInline[i] {
			e.canInline = true
			c.TotalSize += shared.BytecodeLength()
		}
		if !isSmallInlineFunction(cfg, shared) {
			e.small = false
		}
	}
	return e
}
