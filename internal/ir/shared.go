package ir

// BuiltinID identifies a function recognized by a dedicated builtin reducer.
// NoBuiltinID marks ordinary functions.
type BuiltinID int

// NoBuiltinID is the zero BuiltinID.
const NoBuiltinID BuiltinID = 0

// BytecodeArray is the translatable body of a function. Only its size matters
// to the heuristic.
type BytecodeArray struct {
	Length int `json:"length" yaml:"length"`
}

// SharedInfo is the per-function static metadata shared by every closure of
// the same function literal. It is read-only to the heuristic.
type SharedInfo struct {
	Name        string         `json:"name"`
	BuiltinID   BuiltinID      `json:"builtin_id,omitempty"`
	UserCode    bool           `json:"user_code"`
	Bytecode    *BytecodeArray `json:"bytecode,omitempty"` // nil when never compiled
	ForceInline bool           `json:"force_inline,omitempty"`
}

// HasBuiltinID reports whether the function is handled by a builtin reducer.
func (s *SharedInfo) HasBuiltinID() bool { return s.BuiltinID != NoBuiltinID }

// IsUserCode reports whether the function was authored by the user.
func (s *SharedInfo) IsUserCode() bool { return s.UserCode }

// HasBytecode reports whether a translatable body exists.
func (s *SharedInfo) HasBytecode() bool { return s.Bytecode != nil }

// BytecodeLength returns the size of the translatable body, or 0 if none.
func (s *SharedInfo) BytecodeLength() int {
	if s.Bytecode == nil {
		return 0
	}
	return s.Bytecode.Length
}

// DebugName returns a printable name.
func (s *SharedInfo) DebugName() string {
	if s.Name == "" {
		return "<anonymous>"
	}
	return s.Name
}

// Function is a concrete, already-instantiated function value. HeapConstant
// nodes holding a *Function are the statically-known callees.
type Function struct {
	Shared *SharedInfo
}

// NewFunction returns a function value for shared.
func NewFunction(shared *SharedInfo) *Function {
	return &Function{Shared: shared}
}
