// Package harness runs inlining scenarios end to end.
//
// A scenario declares callees, builds a graph of call sites over them,
// drives the inlining heuristic to a fixpoint with a fake inliner, journals
// every decision, and checks assertions against the result.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: polymorphic_small
//	description: "Small polymorphic callees are inlined right away"
//	config: |
//	  inlining: { max_polymorphism: 4 }
//	functions:
//	  - { name: f, size: 12 }
//	  - { name: g, size: 14, calls: [h] }
//	  - { name: h, size: 200 }
//	sites:
//	  - label: poly
//	    callees: [f, g]
//	    frequency: "1"
//	    state_uses: true
//	assertions:
//	  - type: dispatch
//	    site: poly
//	    dispatch: reused
//	  - type: inlined
//	    names: [f, g]
//
// # Assertion Types
//
//   - inlined: the inliner substituted exactly the named callees, in order
//   - outcome: a site has a decision with the given outcome (and reason)
//   - dispatch: a polymorphic site was split the given way
//   - cumulative: the final cumulative inlined size
//   - decision_count: the number of decisions with an outcome
//   - converged: every pass reached a fixpoint
//
// # Deterministic Testing
//
// Sites are built in declaration order on a fresh graph, the journal is
// stamped by a logical clock shared by the passes of a run, and pass ids
// come from a fixed generator unless overridden. Golden traces replace node
// ids of scenario sites with their labels and omit pass ids.
//
// Every run is journaled into SQLite (in memory unless a store is given)
// and the journal digests are verified before assertions run.
package harness
