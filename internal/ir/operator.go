package ir

import (
	"fmt"
	"strings"
)

// Operator describes what a node does and how its inputs are classified.
//
// Inputs are laid out as ValueIn values, then FrameStateIn frame states, then
// EffectIn effects, then ControlIn controls.
type Operator struct {
	Code         Opcode
	ValueIn      int
	FrameStateIn int
	EffectIn     int
	ControlIn    int
	Params       any
}

// InputCount returns the total number of inputs a node with this operator has.
func (o Operator) InputCount() int {
	return o.ValueIn + o.FrameStateIn + o.EffectIn + o.ControlIn
}

// Mnemonic returns the opcode name.
func (o Operator) Mnemonic() string { return o.Code.String() }

// String renders the operator with its parameters, e.g. "Call[arity=3, freq=0.5]".
func (o Operator) String() string {
	var params string
	switch p := o.Params.(type) {
	case nil:
		return o.Mnemonic()
	case CallParams:
		params = fmt.Sprintf("arity=%d, freq=%s", p.Arity, p.Frequency)
	case ConstructParams:
		params = fmt.Sprintf("arity=%d, freq=%s", p.Arity, p.Frequency)
	case HeapConstantParams:
		params = describeHeapValue(p.Value)
	case CreateClosureParams:
		params = p.Shared.DebugName()
	case FrameStateInfo:
		params = fmt.Sprintf("%s, bailout=%d, %s", p.Type, p.BailoutID, p.sharedName())
	case ParameterParams:
		params = fmt.Sprintf("%d", p.Index)
	case InlinedBodyParams:
		params = p.Shared.DebugName()
	default:
		params = fmt.Sprintf("%v", p)
	}
	return o.Mnemonic() + "[" + params + "]"
}

func describeHeapValue(v any) string {
	switch val := v.(type) {
	case *Function:
		return "fn:" + val.Shared.DebugName()
	case fmt.Stringer:
		return val.String()
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", val))
	}
}

// CallParams are the parameters of OpCall.
type CallParams struct {
	Arity     int // value inputs, target included
	Frequency Frequency
}

// ConstructParams are the parameters of OpConstruct. The frequency lives in a
// different parameter slot than for calls.
type ConstructParams struct {
	Arity     int
	Frequency Frequency
}

// HeapConstantParams hold the constant value.
type HeapConstantParams struct {
	Value any
}

// CreateClosureParams reference the metadata of the closure being created.
type CreateClosureParams struct {
	Shared *SharedInfo
}

// ParameterParams hold the parameter index.
type ParameterParams struct {
	Index int
}

// InlinedBodyParams mark the placeholder left by the inliner collaborator.
type InlinedBodyParams struct {
	Shared *SharedInfo
}

// FrameStateType classifies a deoptimization frame.
type FrameStateType int

const (
	FrameInterpreted FrameStateType = iota
	FrameArgumentsAdaptor
	FrameConstructStub
	FrameBuiltinContinuation
	FrameJSBuiltinContinuation
)

var frameStateTypeNames = [...]string{
	FrameInterpreted:           "interpreted",
	FrameArgumentsAdaptor:      "arguments_adaptor",
	FrameConstructStub:         "construct_stub",
	FrameBuiltinContinuation:   "builtin_continuation",
	FrameJSBuiltinContinuation: "js_builtin_continuation",
}

func (t FrameStateType) String() string {
	if int(t) < len(frameStateTypeNames) {
		return frameStateTypeNames[t]
	}
	return fmt.Sprintf("frame_type(%d)", int(t))
}

// IsJSFunctionType reports whether a frame of this type is a function
// activation. The heuristic counts these to bound the inlining depth.
func (t FrameStateType) IsJSFunctionType() bool {
	return t == FrameInterpreted || t == FrameJSBuiltinContinuation
}

// FrameStateInfo is the parameter of OpFrameState.
type FrameStateInfo struct {
	Type      FrameStateType
	BailoutID int
	Shared    *SharedInfo // function owning the frame, may be nil
}

func (i FrameStateInfo) sharedName() string {
	if i.Shared == nil {
		return "-"
	}
	return i.Shared.DebugName()
}

// FrameState input slots. The outer frame state is the single frame-state
// input that follows these value inputs.
const (
	FrameStateParametersInput = 0
	FrameStateLocalsInput     = 1
	FrameStateStackInput      = 2
	FrameStateContextInput    = 3
	FrameStateFunctionInput   = 4
	FrameStateOuterStateInput = 5
)

// Operator constructors.

func StartOp() Operator { return Operator{Code: OpStart} }
func DeadOp() Operator  { return Operator{Code: OpDead} }

func EndOp(n int) Operator { return Operator{Code: OpEnd, ControlIn: n} }

func HeapConstantOp(v any) Operator {
	return Operator{Code: OpHeapConstant, Params: HeapConstantParams{Value: v}}
}

func ParameterOp(index int) Operator {
	return Operator{Code: OpParameter, ControlIn: 1, Params: ParameterParams{Index: index}}
}

// CallOp returns a call operator with arity value inputs (target first).
func CallOp(arity int, freq Frequency) Operator {
	return Operator{
		Code: OpCall, ValueIn: arity, FrameStateIn: 1, EffectIn: 1, ControlIn: 1,
		Params: CallParams{Arity: arity, Frequency: freq},
	}
}

// ConstructOp returns a construct operator with arity value inputs (target first).
func ConstructOp(arity int, freq Frequency) Operator {
	return Operator{
		Code: OpConstruct, ValueIn: arity, FrameStateIn: 1, EffectIn: 1, ControlIn: 1,
		Params: ConstructParams{Arity: arity, Frequency: freq},
	}
}

func CreateClosureOp(shared *SharedInfo) Operator {
	return Operator{Code: OpCreateClosure, EffectIn: 1, ControlIn: 1, Params: CreateClosureParams{Shared: shared}}
}

func PhiOp(n int) Operator       { return Operator{Code: OpPhi, ValueIn: n, ControlIn: 1} }
func EffectPhiOp(n int) Operator { return Operator{Code: OpEffectPhi, EffectIn: n, ControlIn: 1} }
func MergeOp(n int) Operator     { return Operator{Code: OpMerge, ControlIn: n} }
func BranchOp() Operator         { return Operator{Code: OpBranch, ValueIn: 1, ControlIn: 1} }
func IfTrueOp() Operator         { return Operator{Code: OpIfTrue, ControlIn: 1} }
func IfFalseOp() Operator        { return Operator{Code: OpIfFalse, ControlIn: 1} }
func IfSuccessOp() Operator      { return Operator{Code: OpIfSuccess, ControlIn: 1} }
func IfExceptionOp() Operator    { return Operator{Code: OpIfException, EffectIn: 1, ControlIn: 1} }
func ReferenceEqualOp() Operator { return Operator{Code: OpReferenceEqual, ValueIn: 2} }

// CheckpointOp inputs: frame state, effect, control.
func CheckpointOp() Operator {
	return Operator{Code: OpCheckpoint, FrameStateIn: 1, EffectIn: 1, ControlIn: 1}
}

// FrameStateOp inputs: parameters, locals, stack, context, function, outer state.
func FrameStateOp(info FrameStateInfo) Operator {
	return Operator{Code: OpFrameState, ValueIn: 5, FrameStateIn: 1, Params: info}
}

func StateValuesOp(n int) Operator { return Operator{Code: OpStateValues, ValueIn: n} }

func ReturnOp() Operator {
	return Operator{Code: OpReturn, ValueIn: 1, EffectIn: 1, ControlIn: 1}
}

func InlinedBodyOp(shared *SharedInfo) Operator {
	return Operator{Code: OpInlinedBody, EffectIn: 1, ControlIn: 1, Params: InlinedBodyParams{Shared: shared}}
}

// Parameter accessors. A mismatch between the requested parameters and the
// node's opcode is an invariant violation.

func CallParamsOf(op Operator) CallParams {
	p, ok := op.Params.(CallParams)
	if !ok || op.Code != OpCall {
		panic(&InvariantError{Node: InvalidNode, Message: "CallParamsOf " + op.Mnemonic()})
	}
	return p
}

func ConstructParamsOf(op Operator) ConstructParams {
	p, ok := op.Params.(ConstructParams)
	if !ok || op.Code != OpConstruct {
		panic(&InvariantError{Node: InvalidNode, Message: "ConstructParamsOf " + op.Mnemonic()})
	}
	return p
}

func FrameStateInfoOf(op Operator) FrameStateInfo {
	p, ok := op.Params.(FrameStateInfo)
	if !ok || op.Code != OpFrameState {
		panic(&InvariantError{Node: InvalidNode, Message: "FrameStateInfoOf " + op.Mnemonic()})
	}
	return p
}

func CreateClosureParamsOf(op Operator) CreateClosureParams {
	p, ok := op.Params.(CreateClosureParams)
	if !ok || op.Code != OpCreateClosure {
		panic(&InvariantError{Node: InvalidNode, Message: "CreateClosureParamsOf " + op.Mnemonic()})
	}
	return p
}

func HeapConstantParamsOf(op Operator) HeapConstantParams {
	p, ok := op.Params.(HeapConstantParams)
	if !ok || op.Code != OpHeapConstant {
		panic(&InvariantError{Node: InvalidNode, Message: "HeapConstantParamsOf " + op.Mnemonic()})
	}
	return p
}
