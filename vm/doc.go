// Package vm implements the arborate virtual machine: a small, statically
// verified stack machine over two value types, Integer and Boolean.
//
// A program is a slice of FunctionDefinitions. New copies and verifies the
// slice once; a verified Machine is immutable and may run any number of
// executions concurrently.
//
// This package contains:
//   - The tagged value representation (Value, Integer, Boolean)
//   - The opcode table shared by the verifier, interpreter and disassembler
//   - The construction-time verifier
//   - The frame-based interpreter and its calling convention
//   - A disassembler and a content fingerprint over canonical CBOR
//
// Every failure is reported as an *Error whose Detail can be matched with
// errors.Is.
package vm
