package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/polyinline/internal/config"
	"github.com/roach88/polyinline/internal/heuristic"
	"github.com/roach88/polyinline/internal/testutil"
)

// Inspect builds the scenario and runs a single Reduce sweep over it
// without finalizing, then prints the candidates left in the queue to w.
// Sites committed during the sweep (small or force-inlined callees) do not
// appear. It returns the number of queued candidates.
func Inspect(s *Scenario, w io.Writer) (int, error) {
	cfg, err := config.LoadString(s.Config)
	if err != nil {
		return 0, fmt.Errorf("failed to load config: %w", err)
	}

	b, inl, _ := build(s)
	h := heuristic.New(b.G, inl,
		heuristic.WithConfig(cfg),
		heuristic.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		heuristic.WithPassIDGenerator(testutil.NewFixedPassIDGenerator(s.PassID)),
	)
	for _, id := range b.G.LiveNodes() {
		h.Reduce(id)
	}
	if err := h.PrintCandidates(w); err != nil {
		return 0, fmt.Errorf("failed to print candidates: %w", err)
	}
	return h.Pending(), nil
}
