package ir

// Version constants for the graph snapshot format and the heuristic.
const (
	// SnapshotVersion is the canonical graph snapshot schema version.
	SnapshotVersion = "1"

	// HeuristicVersion is the polyinline heuristic version recorded in the journal.
	HeuristicVersion = "0.1.0"
)
