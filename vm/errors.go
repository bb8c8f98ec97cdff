package vm

import (
	"errors"
	"fmt"
	"strings"
)

// Detail identifies why a construction or an execution failed.
// Detail implements error so callers can match with errors.Is:
//
//	if errors.Is(err, vm.TooFewElementsOnStack) { ... }
type Detail int

const (
	// Construction
	InvalidInstruction Detail = iota + 1
	MissingInstructionData
	InvalidInstructionData
	InstructionCodeDoesNotUseData
	FunctionDefinitionMissingReturnValue
	InvalidFunctionIndex
	InvalidBranchTarget
	InvalidVariableIndex
	InvalidVariableCount
	InvalidParameterType
	NoFunctions

	// Execution
	TooFewElementsOnStack
	IncorrectElementTypeOnStack
	IncorrectCallArgumentType
	IncorrectReturnArgumentCount
	IncorrectReturnArgumentType
	DivideByZero
	UninitializedVariable
	CallDepthExceeded
	ExecutionCancelled
)

var detailNames = map[Detail]string{
	InvalidInstruction:                   "InvalidInstruction",
	MissingInstructionData:               "MissingInstructionData",
	InvalidInstructionData:               "InvalidInstructionData",
	InstructionCodeDoesNotUseData:        "InstructionCodeDoesNotUseData",
	FunctionDefinitionMissingReturnValue: "FunctionDefinitionMissingReturnValue",
	InvalidFunctionIndex:                 "InvalidFunctionIndex",
	InvalidBranchTarget:                  "InvalidBranchTarget",
	InvalidVariableIndex:                 "InvalidVariableIndex",
	InvalidVariableCount:                 "InvalidVariableCount",
	InvalidParameterType:                 "InvalidParameterType",
	NoFunctions:                          "NoFunctions",
	TooFewElementsOnStack:                "TooFewElementsOnStack",
	IncorrectElementTypeOnStack:          "IncorrectElementTypeOnStack",
	IncorrectCallArgumentType:            "IncorrectCallArgumentType",
	IncorrectReturnArgumentCount:         "IncorrectReturnArgumentCount",
	IncorrectReturnArgumentType:          "IncorrectReturnArgumentType",
	DivideByZero:                         "DivideByZero",
	UninitializedVariable:                "UninitializedVariable",
	CallDepthExceeded:                    "CallDepthExceeded",
	ExecutionCancelled:                   "ExecutionCancelled",
}

// String returns the detail name.
func (d Detail) String() string {
	if name, ok := detailNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Detail(%d)", int(d))
}

// Error implements error.
func (d Detail) Error() string {
	return d.String()
}

// Error is the single error type returned by New and the Execute methods.
type Error struct {
	Detail   Detail
	Function int    // Index of the function involved, -1 if none
	Offset   int    // Instruction offset, len(Code) for exit checks, -1 if none
	Message  string // Optional diagnostic
	Err      error  // Underlying cause (context errors for ExecutionCancelled)

	name string // Function label for messages
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Detail.String())
	if e.Function >= 0 {
		fmt.Fprintf(&sb, " in function %s", e.name)
		if e.Offset >= 0 {
			fmt.Fprintf(&sb, " at %04d", e.Offset)
		}
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches a bare Detail or another *Error with the same detail.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case Detail:
		return e.Detail == t
	case *Error:
		return e.Detail == t.Detail
	}
	return false
}

// newError builds an Error not tied to any function.
func newError(detail Detail, format string, args ...any) *Error {
	return &Error{
		Detail:   detail,
		Function: -1,
		Offset:   -1,
		Message:  fmt.Sprintf(format, args...),
	}
}

// at attaches a function and offset to the error.
func (e *Error) at(index int, def *FunctionDefinition, offset int) *Error {
	e.Function = index
	e.Offset = offset
	e.name = def.label(index)
	return e
}

// DetailOf returns the Detail carried by err, or 0 if err is not (and does
// not wrap) a VM error.
func DetailOf(err error) Detail {
	var e *Error
	if errors.As(err, &e) {
		return e.Detail
	}
	var d Detail
	if errors.As(err, &d) {
		return d
	}
	return 0
}

// IsDetail reports whether err carries the given detail.
func IsDetail(err error, d Detail) bool {
	return err != nil && DetailOf(err) == d
}
