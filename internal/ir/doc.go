// Package ir provides the graph intermediate representation consumed by the
// inlining heuristic.
//
// Nodes live in an arena owned by a Graph and are addressed by stable integer
// handles (NodeID). Every reference between nodes is a non-owning handle;
// the graph records the reverse use-edges so that consumers can be found and
// rewired. Dead nodes are marked, never reused, and left for the surrounding
// dead-code elimination to reclaim.
//
// Input layout follows a fixed convention for every operator:
//
//	[value inputs...] [frame state input?] [effect inputs...] [control inputs...]
//
// The counts come from the node's Operator, so positions can be classified
// without opcode-specific knowledge.
//
// Key design constraints:
//   - ir imports nothing internal; every other package builds on it
//   - Malformed shapes are invariant violations and panic with *InvariantError
//   - Canonical JSON (MarshalCanonical) is the only serialization used for digests
package ir
