package ir

// Reduction is the result of reducing one node: either no change, or a change
// with a replacement node (which may be the node itself when it was updated
// in place). The zero Reduction is NoChange.
type Reduction struct {
	changed     bool
	replacement NodeID
}

// NoChange reports that the node was left alone.
func NoChange() Reduction { return Reduction{replacement: InvalidNode} }

// Changed reports that node was updated in place.
func Changed(node NodeID) Reduction { return Reduction{changed: true, replacement: node} }

// Replace reports that the reduced node should be replaced by replacement.
func Replace(replacement NodeID) Reduction { return Reduction{changed: true, replacement: replacement} }

// Changed reports whether the reduction changed the graph.
func (r Reduction) Changed() bool { return r.changed }

// Replacement returns the replacement node, or InvalidNode for NoChange.
func (r Reduction) Replacement() NodeID {
	if !r.changed {
		return InvalidNode
	}
	return r.replacement
}
