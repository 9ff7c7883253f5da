package ir

import (
	"fmt"
	"math"
	"strconv"
)

// Frequency estimates how often a call site executes per invocation of the
// enclosing function. It is either a known non-negative value or unknown.
type Frequency struct {
	value float64
	known bool
}

// KnownFrequency returns a known frequency. v must be finite and
// non-negative.
func KnownFrequency(v float64) Frequency {
	if !validFrequency(v) {
		Fatalf(InvalidNode, "frequency %v is not a finite non-negative number", v)
	}
	return Frequency{value: v, known: true}
}

// UnknownFrequency returns the unknown frequency.
func UnknownFrequency() Frequency {
	return Frequency{}
}

// IsKnown reports whether the frequency carries a value.
func (f Frequency) IsKnown() bool { return f.known }

// IsUnknown reports whether the frequency is unknown.
func (f Frequency) IsUnknown() bool { return !f.known }

// Value returns the frequency value. Calling Value on an unknown frequency is
// an invariant violation.
func (f Frequency) Value() float64 {
	if !f.known {
		panic(&InvariantError{Node: InvalidNode, Message: "value of unknown frequency"})
	}
	return f.value
}

// String formats the frequency the way trace output prints it.
func (f Frequency) String() string {
	if !f.known {
		return "unknown"
	}
	return strconv.FormatFloat(f.value, 'g', -1, 64)
}

// ParseFrequency parses the String form back into a Frequency.
func ParseFrequency(s string) (Frequency, error) {
	if s == "" || s == "unknown" {
		return UnknownFrequency(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Frequency{}, err
	}
	if !validFrequency(v) {
		return Frequency{}, fmt.Errorf("invalid frequency %q: must be a finite non-negative number", s)
	}
	return KnownFrequency(v), nil
}

func validFrequency(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
