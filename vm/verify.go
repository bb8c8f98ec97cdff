package vm

// verify checks every function of a machine before any of them can run.
// The first violation found aborts construction.
func verify(functions []FunctionDefinition) error {
	if len(functions) == 0 {
		return newError(NoFunctions, "a machine needs at least one function")
	}
	for i := range functions {
		if err := verifyFunction(functions, i); err != nil {
			return err
		}
	}
	return nil
}

func verifyFunction(functions []FunctionDefinition, index int) error {
	def := &functions[index]

	for offset, in := range def.Code {
		if err := verifyInstruction(functions, def, in); err != nil {
			return err.at(index, def, offset)
		}
	}

	if def.VariableCount < 0 {
		return newError(InvalidVariableCount, "variable count %d is negative", def.VariableCount).at(index, def, -1)
	}
	for _, t := range def.InParams {
		if !t.Valid() {
			return newError(InvalidParameterType, "unknown parameter type %s", t).at(index, def, -1)
		}
	}
	for _, t := range def.OutParams {
		if !t.Valid() {
			return newError(InvalidParameterType, "unknown return type %s", t).at(index, def, -1)
		}
	}
	if len(def.OutParams) == 0 {
		return newError(FunctionDefinitionMissingReturnValue, "function declares no return values").at(index, def, -1)
	}
	return nil
}

// verifyInstruction checks payload shape first, then payload range.
func verifyInstruction(functions []FunctionDefinition, def *FunctionDefinition, in Instruction) *Error {
	info, ok := opcodeInfoTable[in.Code]
	if !ok {
		return newError(InvalidInstruction, "unknown opcode 0x%02X", byte(in.Code))
	}

	want, needsData := info.Operand.Type()
	if !needsData {
		if in.Data != nil {
			return newError(InstructionCodeDoesNotUseData, "%s takes no payload, got %s %s", info.Name, in.Data.Type(), in.Data)
		}
		return nil
	}
	if in.Data == nil {
		return newError(MissingInstructionData, "%s requires a %s payload", info.Name, want)
	}
	if in.Data.Type() != want {
		return newError(InvalidInstructionData, "%s requires a %s payload, got %s", info.Name, want, in.Data.Type())
	}

	switch info.Operand {
	case OperandNone, OperandBoolean, OperandInteger:
		// no range to check
	case OperandTarget:
		target := int64(in.Data.(Integer))
		if target < 0 || target > int64(len(def.Code)) {
			return newError(InvalidBranchTarget, "branch target %d outside [0, %d]", target, len(def.Code))
		}
	case OperandSlot:
		slot := int64(in.Data.(Integer))
		if slot < 0 || slot >= int64(def.VariableCount) {
			return newError(InvalidVariableIndex, "variable slot %d outside [0, %d)", slot, def.VariableCount)
		}
	case OperandFunction:
		target := int64(in.Data.(Integer))
		if target < 0 || target >= int64(len(functions)) {
			return newError(InvalidFunctionIndex, "function index %d outside [0, %d)", target, len(functions))
		}
	}
	return nil
}
