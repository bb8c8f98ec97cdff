package vm

import "fmt"

// Opcode identifies an instruction.
// Opcodes are organized into ranges by category for easy identification.
type Opcode byte

const (
	// ========================================================================
	// Boolean (0x10-0x1F)
	// ========================================================================

	OpBooleanConstantToStack Opcode = 0x10 // Push literal: <Boolean>
	OpBooleanEqual           Opcode = 0x11 // Pop two Booleans, push a == b
	OpBooleanNotEqual        Opcode = 0x12 // Pop two Booleans, push a != b
	OpBooleanAnd             Opcode = 0x13 // Pop two Booleans, push a && b
	OpBooleanOr              Opcode = 0x14 // Pop two Booleans, push a || b
	OpBooleanNot             Opcode = 0x15 // Pop one Boolean, push !a

	// ========================================================================
	// Integer (0x20-0x2F)
	// ========================================================================

	OpIntegerConstantToStack Opcode = 0x20 // Push literal: <Integer>
	OpIntegerEqual           Opcode = 0x21 // Pop two Integers, push a == b
	OpIntegerNotEqual        Opcode = 0x22 // Pop two Integers, push a != b
	OpIntegerAdd             Opcode = 0x23 // Pop two, push a + b
	OpIntegerSubtract        Opcode = 0x24 // Pop two, push a - b (b is TOS)
	OpIntegerMultiply        Opcode = 0x25 // Pop two, push a * b
	OpIntegerDivide          Opcode = 0x26 // Pop two, push a / b (truncated)
	OpIntegerModulus         Opcode = 0x27 // Pop two, push a % b (truncated)

	// ========================================================================
	// Control flow (0x30-0x3F)
	// ========================================================================

	OpBranch      Opcode = 0x30 // Jump: <target:Integer>
	OpBranchTrue  Opcode = 0x31 // Pop Boolean, jump if true: <target:Integer>
	OpBranchFalse Opcode = 0x32 // Pop Boolean, jump if false: <target:Integer>

	// ========================================================================
	// Local variables (0x40-0x4F)
	// ========================================================================

	OpStackToVariable Opcode = 0x40 // Pop and store to slot: <slot:Integer>
	OpVariableToStack Opcode = 0x41 // Push copy of slot: <slot:Integer>

	// ========================================================================
	// Calls (0x50-0x5F)
	// ========================================================================

	OpCallFunction Opcode = 0x50 // Call function by index: <function:Integer>
)

// OperandKind describes the payload an opcode requires.
type OperandKind uint8

const (
	// OperandNone means the instruction must not carry a payload.
	OperandNone OperandKind = iota

	// OperandBoolean is a boolean literal.
	OperandBoolean

	// OperandInteger is a 64-bit integer literal.
	OperandInteger

	// OperandTarget is an absolute instruction index in the same function.
	OperandTarget

	// OperandSlot is a local variable slot index.
	OperandSlot

	// OperandFunction is an index into the machine's function collection.
	OperandFunction
)

// Type returns the value type a payload of this kind must have.
// The second result is false for OperandNone.
func (k OperandKind) Type() (Type, bool) {
	switch k {
	case OperandNone:
		return 0, false
	case OperandBoolean:
		return TypeBoolean, true
	case OperandInteger, OperandTarget, OperandSlot, OperandFunction:
		return TypeInteger, true
	default:
		return 0, false
	}
}

// String returns a short name for the operand kind.
func (k OperandKind) String() string {
	switch k {
	case OperandNone:
		return "none"
	case OperandBoolean:
		return "boolean"
	case OperandInteger:
		return "integer"
	case OperandTarget:
		return "target"
	case OperandSlot:
		return "slot"
	case OperandFunction:
		return "function"
	default:
		return fmt.Sprintf("OperandKind(%d)", uint8(k))
	}
}

// OpcodeInfo provides metadata about each opcode for verification,
// disassembly and assembly.
type OpcodeInfo struct {
	Name    string      // Mnemonic
	Operand OperandKind // Required payload
}

// opcodeInfoTable maps opcodes to their metadata. The verifier treats any
// opcode missing from this table as invalid.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Boolean
	OpBooleanConstantToStack: {"BooleanConstantToStack", OperandBoolean},
	OpBooleanEqual:           {"BooleanEqual", OperandNone},
	OpBooleanNotEqual:        {"BooleanNotEqual", OperandNone},
	OpBooleanAnd:             {"BooleanAnd", OperandNone},
	OpBooleanOr:              {"BooleanOr", OperandNone},
	OpBooleanNot:             {"BooleanNot", OperandNone},

	// Integer
	OpIntegerConstantToStack: {"IntegerConstantToStack", OperandInteger},
	OpIntegerEqual:           {"IntegerEqual", OperandNone},
	OpIntegerNotEqual:        {"IntegerNotEqual", OperandNone},
	OpIntegerAdd:             {"IntegerAdd", OperandNone},
	OpIntegerSubtract:        {"IntegerSubtract", OperandNone},
	OpIntegerMultiply:        {"IntegerMultiply", OperandNone},
	OpIntegerDivide:          {"IntegerDivide", OperandNone},
	OpIntegerModulus:         {"IntegerModulus", OperandNone},

	// Control flow
	OpBranch:      {"Branch", OperandTarget},
	OpBranchTrue:  {"BranchTrue", OperandTarget},
	OpBranchFalse: {"BranchFalse", OperandTarget},

	// Variables
	OpStackToVariable: {"StackToVariable", OperandSlot},
	OpVariableToStack: {"VariableToStack", OperandSlot},

	// Calls
	OpCallFunction: {"CallFunction", OperandFunction},
}

// opcodesByName is the reverse of opcodeInfoTable, keyed by mnemonic.
var opcodesByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeInfoTable))
	for op, info := range opcodeInfoTable {
		m[info.Name] = op
	}
	return m
}()

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// LookupOpcode returns the opcode with the given mnemonic.
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opcodesByName[name]
	return op, ok
}

// Valid reports whether op is a defined opcode.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// String returns the mnemonic of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// Operand returns the payload kind this opcode requires.
func (op Opcode) Operand() OperandKind {
	return GetOpcodeInfo(op).Operand
}

// IsBranch returns true if this opcode may transfer control within a function.
func (op Opcode) IsBranch() bool {
	return op >= OpBranch && op <= OpBranchFalse
}

// AllOpcodes returns every defined opcode in ascending order.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := Opcode(0); ; op++ {
		if op.Valid() {
			opcodes = append(opcodes, op)
		}
		if op == 0xFF {
			break
		}
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
