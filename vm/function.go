package vm

import (
	"slices"
	"strconv"
)

// Instruction is one operation code plus an optional payload. Data is nil
// when the opcode takes no payload; otherwise its type must match the
// opcode's OperandKind. New rejects any instruction that breaks this rule.
type Instruction struct {
	Code Opcode
	Data Value
}

// Op returns an instruction without a payload.
func Op(code Opcode) Instruction {
	return Instruction{Code: code}
}

// OpInt returns an instruction carrying an Integer payload (a literal,
// branch target, variable slot or function index depending on code).
func OpInt(code Opcode, n int64) Instruction {
	return Instruction{Code: code, Data: Integer(n)}
}

// OpBool returns an instruction carrying a Boolean payload.
func OpBool(code Opcode, b bool) Instruction {
	return Instruction{Code: code, Data: Boolean(b)}
}

// String renders the instruction as a single listing line without offset.
func (in Instruction) String() string {
	if in.Data == nil {
		return in.Code.String()
	}
	return in.Code.String() + " " + in.Data.String()
}

// FunctionDefinition is the unit of compiled code: an instruction sequence
// with its calling convention. Functions are addressed by their position in
// the slice handed to New.
type FunctionDefinition struct {
	// Name is optional and only used in diagnostics and listings.
	Name string

	Code      []Instruction
	InParams  []Type // Types of the values moved from the caller's stack, bottom first
	OutParams []Type // Types of the values left on the stack at exit, bottom first

	// VariableCount is the number of local variable slots per invocation.
	VariableCount int
}

// Emit appends instructions to the code and returns the offset of the first.
func (f *FunctionDefinition) Emit(ins ...Instruction) int {
	offset := len(f.Code)
	f.Code = append(f.Code, ins...)
	return offset
}

// CurrentOffset returns the offset the next emitted instruction will get.
func (f *FunctionDefinition) CurrentOffset() int {
	return len(f.Code)
}

// PatchTarget rewrites the payload of the branch at offset to target.
func (f *FunctionDefinition) PatchTarget(offset, target int) {
	f.Code[offset].Data = Integer(target)
}

// clone returns a deep copy so the machine never observes host mutation.
func (f FunctionDefinition) clone() FunctionDefinition {
	return FunctionDefinition{
		Name:          f.Name,
		Code:          slices.Clone(f.Code),
		InParams:      slices.Clone(f.InParams),
		OutParams:     slices.Clone(f.OutParams),
		VariableCount: f.VariableCount,
	}
}

// label returns the name used for this function in diagnostics.
func (f *FunctionDefinition) label(index int) string {
	if f.Name != "" {
		return f.Name
	}
	return "#" + strconv.Itoa(index)
}
