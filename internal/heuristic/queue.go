package heuristic

import (
	"container/heap"
	"slices"
)

// candidateLess orders candidates for the budget controller.
//
// Known frequencies come first, hottest first. Unknown frequencies come
// after every known one. Ties, including two unknowns, go to the higher
// node id. The id tie-break is pinned for reproducible traces; it does not
// encode a profitability judgement.
func candidateLess(left, right *Candidate) bool {
	if right.Frequency.IsUnknown() {
		if left.Frequency.IsUnknown() {
			return left.Node > right.Node
		}
		return true
	}
	if left.Frequency.IsUnknown() {
		return false
	}
	if left.Frequency.Value() > right.Frequency.Value() {
		return true
	}
	if left.Frequency.Value() < right.Frequency.Value() {
		return false
	}
	return left.Node > right.Node
}

// candidateHeap implements heap.Interface over candidateLess.
type candidateHeap []*Candidate

func (h candidateHeap) Len() int           { return len(h) }
func (h candidateHeap) Less(i, j int) bool { return candidateLess(h[i], h[j]) }
func (h candidateHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) { *h = append(*h, x.(*Candidate)) }

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return c
}

// CandidateQueue is the per-instance priority queue of deferred candidates.
// It is never shared across heuristic instances; whatever is left when an
// instance is dropped is dropped with it.
type CandidateQueue struct {
	h candidateHeap
}

// NewCandidateQueue creates an empty queue.
func NewCandidateQueue() *CandidateQueue {
	return &CandidateQueue{}
}

// Len returns the number of queued candidates.
func (q *CandidateQueue) Len() int { return q.h.Len() }

// Push enqueues c.
func (q *CandidateQueue) Push(c *Candidate) { heap.Push(&q.h, c) }

// Pop removes and returns the head candidate, or nil when empty.
func (q *CandidateQueue) Pop() *Candidate {
	if q.h.Len() == 0 {
		return nil
	}
	return heap.Pop(&q.h).(*Candidate)
}

// Sorted returns the queued candidates in drain order without consuming
// them.
func (q *CandidateQueue) Sorted() []*Candidate {
	out := slices.Clone([]*Candidate(q.h))
	slices.SortFunc(out, func(a, b *Candidate) int {
		switch {
		case candidateLess(a, b):
			return -1
		case candidateLess(b, a):
			return 1
		}
		return 0
	})
	return out
}
