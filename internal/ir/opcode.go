package ir

// Opcode identifies the operation a node performs.
//
// The set is closed: the heuristic only ever inspects or creates these
// operations, so dispatch is a switch over the enum rather than open-ended
// polymorphism.
type Opcode uint8

const (
	OpInvalid Opcode = iota
	OpStart
	OpEnd
	OpDead
	OpHeapConstant
	OpParameter
	OpCall
	OpConstruct
	OpCreateClosure
	OpPhi
	OpEffectPhi
	OpMerge
	OpBranch
	OpIfTrue
	OpIfFalse
	OpIfSuccess
	OpIfException
	OpReferenceEqual
	OpCheckpoint
	OpFrameState
	OpStateValues
	OpReturn
	OpInlinedBody
)

var mnemonics = [...]string{
	OpInvalid:        "Invalid",
	OpStart:          "Start",
	OpEnd:            "End",
	OpDead:           "Dead",
	OpHeapConstant:   "HeapConstant",
	OpParameter:      "Parameter",
	OpCall:           "Call",
	OpConstruct:      "Construct",
	OpCreateClosure:  "CreateClosure",
	OpPhi:            "Phi",
	OpEffectPhi:      "EffectPhi",
	OpMerge:          "Merge",
	OpBranch:         "Branch",
	OpIfTrue:         "IfTrue",
	OpIfFalse:        "IfFalse",
	OpIfSuccess:      "IfSuccess",
	OpIfException:    "IfException",
	OpReferenceEqual: "ReferenceEqual",
	OpCheckpoint:     "Checkpoint",
	OpFrameState:     "FrameState",
	OpStateValues:    "StateValues",
	OpReturn:         "Return",
	OpInlinedBody:    "InlinedBody",
}

// String returns the opcode mnemonic.
func (o Opcode) String() string {
	if int(o) < len(mnemonics) {
		return mnemonics[o]
	}
	return "Invalid"
}

// IsInlineeOpcode reports whether nodes with this opcode are call sites the
// heuristic may inline.
func IsInlineeOpcode(o Opcode) bool {
	return o == OpCall || o == OpConstruct
}
