package vm

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of every function.
func (m *Machine) Disassemble() string {
	var sb strings.Builder
	for i := range m.functions {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(m.functions[i].disassemble(i, m.functions))
	}
	return sb.String()
}

// Disassemble returns a human-readable listing of a single function.
// The function does not need to be verified; malformed instructions are
// listed as they are.
func (f FunctionDefinition) Disassemble() string {
	return f.disassemble(-1, nil)
}

func (f *FunctionDefinition) disassemble(index int, functions []FunctionDefinition) string {
	var sb strings.Builder

	// Header
	switch {
	case index >= 0 && f.Name != "":
		sb.WriteString(fmt.Sprintf("; === function %d (%s) ===\n", index, f.Name))
	case index >= 0:
		sb.WriteString(fmt.Sprintf("; === function %d ===\n", index))
	case f.Name != "":
		sb.WriteString(fmt.Sprintf("; === %s ===\n", f.Name))
	}
	sb.WriteString(fmt.Sprintf("; In: %s\n", typeList(f.InParams)))
	sb.WriteString(fmt.Sprintf("; Out: %s\n", typeList(f.OutParams)))
	if f.VariableCount > 0 {
		sb.WriteString(fmt.Sprintf("; Variables: %d slots\n", f.VariableCount))
	}

	// Code section
	sb.WriteString("; Code:\n")
	for offset, in := range f.Code {
		sb.WriteString(disassembleInstruction(offset, in, functions))
		sb.WriteString("\n")
	}
	return sb.String()
}

// DisassembleInstruction formats a single instruction with its offset.
func DisassembleInstruction(offset int, in Instruction) string {
	return disassembleInstruction(offset, in, nil)
}

func disassembleInstruction(offset int, in Instruction, functions []FunctionDefinition) string {
	info := GetOpcodeInfo(in.Code)
	if in.Data == nil {
		return fmt.Sprintf("%04d  %s", offset, info.Name)
	}

	line := fmt.Sprintf("%04d  %-24s %s", offset, info.Name, in.Data)
	n, isInt := in.Data.(Integer)
	if !isInt {
		return line
	}
	switch info.Operand {
	case OperandTarget:
		line += fmt.Sprintf("    ; -> %04d", int64(n))
	case OperandFunction:
		if n >= 0 && int64(n) < int64(len(functions)) && functions[n].Name != "" {
			line += "    ; " + functions[n].Name
		}
	}
	return line
}

func typeList(types []Type) string {
	if len(types) == 0 {
		return "-"
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return strings.Join(names, ", ")
}
