package heuristic

import "github.com/roach88/polyinline/internal/ir"

// Budget tracks the cumulative size of everything inlined by one heuristic
// instance.
//
// The counter only grows. Exceeding a ceiling is not an error: the
// heuristic simply stops committing. Work already committed is never
// rolled back.
type Budget struct {
	cumulative int
}

// NewBudget creates a budget starting at start.
func NewBudget(start int) *Budget {
	if start < 0 {
		ir.Fatalf(ir.InvalidNode, "negative starting budget %d", start)
	}
	return &Budget{cumulative: start}
}

// Charge adds size to the cumulative counter.
func (b *Budget) Charge(size int) {
	if size < 0 {
		ir.Fatalf(ir.InvalidNode, "negative budget charge %d", size)
	}
	b.cumulative += size
}

// Cumulative returns the running total.
func (b *Budget) Cumulative() int {
	return b.cumulative
}

// Reserve returns the headroom estimate for a candidate of the given size.
// Scaling keeps room for small callees exposed by inlining it.
func (b *Budget) Reserve(size int, scale float64) int {
	return int(float64(size) * scale)
}

// Fits reports whether committing reserved more units stays within ceiling.
func (b *Budget) Fits(reserved, ceiling int) bool {
	return b.cumulative+reserved <= ceiling
}
