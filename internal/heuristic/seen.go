package heuristic

import "github.com/roach88/polyinline/internal/ir"

// seenSet records the call nodes a heuristic instance has already
// processed, so repeated traversal visits are no-ops.
//
// Unlike dead-node tracking in the graph, this is per instance: a fresh
// instance in the next fixpoint iteration considers the node again.
type seenSet struct {
	ids map[ir.NodeID]struct{}
}

func newSeenSet() *seenSet {
	return &seenSet{ids: make(map[ir.NodeID]struct{})}
}

// Visit marks id as seen and reports whether it was seen before.
func (s *seenSet) Visit(id ir.NodeID) (already bool) {
	if _, ok := s.ids[id]; ok {
		return true
	}
	s.ids[id] = struct{}{}
	return false
}
