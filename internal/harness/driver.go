package harness

import (
	"context"
	"log/slog"

	"github.com/roach88/polyinline/internal/heuristic"
	"github.com/roach88/polyinline/internal/ir"
)

// DefaultMaxIterations bounds the rounds of one pass when the scenario
// does not say otherwise.
const DefaultMaxIterations = 64

// Reducer is the part of the heuristic the fixpoint driver needs.
type Reducer interface {
	Reduce(node ir.NodeID) ir.Reduction
	Finalize() bool
}

var _ Reducer = (*heuristic.Heuristic)(nil)

// Fixpoint is the outcome of driving one reducer to a fixpoint.
type Fixpoint struct {
	Iterations int
	Converged  bool
	// Changed reports whether any round changed the graph.
	Changed bool
}

// RunFixpoint drives r over g until a full round changes nothing.
//
// A round calls Reduce on every node live at the start of the round, then
// Finalize once. Nodes created during a round are visited in the next
// one. RunFixpoint stops after maxIterations rounds even if the graph is
// still changing, and reports Converged false.
func RunFixpoint(ctx context.Context, g *ir.Graph, r Reducer, maxIterations int, logger *slog.Logger) (Fixpoint, error) {
	var fp Fixpoint
	for fp.Iterations < maxIterations {
		if err := ctx.Err(); err != nil {
			return fp, err
		}
		fp.Iterations++

		changed := false
		for _, id := range g.LiveNodes() {
			if r.Reduce(id).Changed() {
				changed = true
			}
		}
		if r.Finalize() {
			changed = true
		}
		logger.Debug("fixpoint round", "round", fp.Iterations, "changed", changed, "live", len(g.LiveNodes()))

		if !changed {
			fp.Converged = true
			return fp, nil
		}
		fp.Changed = true
	}
	logger.Warn("fixpoint not reached", "rounds", fp.Iterations)
	return fp, nil
}
