// Package heuristic decides which call sites of an ir.Graph get inlined.
//
// The driver hands every node to Reduce. Call and construct nodes whose
// target resolves to at most MaxCallPolymorphism known functions become
// candidates. Force-inline callees, small callees and everything in stress
// mode are committed on the spot; the rest wait in a priority queue,
// hottest first. After each traversal Finalize commits at most one queued
// candidate whose reserved size still fits the cumulative budget.
//
// Committing a polymorphic candidate first splits the call into one
// specialized call per callee. When the callee is a phi at the call's own
// merge, the existing branches are reused and the deoptimization state is
// duplicated per branch; otherwise an identity-test branch chain is built.
//
// Body substitution itself is delegated to an Inliner. Every decision is
// journaled as an ir.Decision for tracing; nothing reads the journal back.
package heuristic
