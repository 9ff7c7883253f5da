// Package store provides SQLite-backed durable storage for inlining
// decision journals.
//
// A run of the fixpoint driver writes one pass row per heuristic instance
// and one decision row per journal entry:
//   - Passes: digests of the graph before and after, the digest of the
//     decisions, the effective configuration as CUE text
//   - Decisions: one row per candidate outcome, keyed by (pass_id, seq)
//
// # Ordering
//
// All ordering uses the logical clock (seq) or the pass ordinal, never
// timestamps. Queries end in ORDER BY seq ASC or ordinal ASC so reads are
// identical across replays.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Writes are idempotent: rewriting a pass or a decision with the same key
// is a no-op.
package store
