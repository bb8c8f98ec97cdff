package asm

import "fmt"

// SyntaxError reports a malformed line. Err is set when the failure maps
// to a vm Detail, so errors.Is(err, vm.InvalidInstruction) works for
// unknown mnemonics.
type SyntaxError struct {
	Line int // 1-based; 0 when parsing a single instruction
	Msg  string
	Err  error
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

func syntaxErrorf(format string, args ...any) *SyntaxError {
	return &SyntaxError{Msg: fmt.Sprintf(format, args...)}
}
