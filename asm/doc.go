// Package asm reads the text form of arborate bytecode.
//
// The syntax is the one the vm disassembler prints: one instruction per
// line, written as the opcode mnemonic followed by at most one operand
// (true, false or a base-10 integer). A leading instruction offset is
// accepted and ignored, and ';' starts a comment. ParseListing also reads
// the function headers of a full machine listing, so
//
//	asm.ParseListing(m.Disassemble())
//
// rebuilds the definitions a machine was created from.
package asm
