package asm

import (
	"strconv"
	"strings"

	"github.com/chazu/arborate/vm"
)

// typeAliases are the short spellings accepted besides the full names.
var typeAliases = map[string]vm.Type{
	"int":  vm.TypeInteger,
	"bool": vm.TypeBoolean,
}

// ParseType parses a type name as printed by vm.Type.String. Case is
// ignored and "int" and "bool" are accepted.
func ParseType(s string) (vm.Type, error) {
	for _, t := range vm.AllTypes() {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	if t, ok := typeAliases[strings.ToLower(s)]; ok {
		return t, nil
	}
	return 0, syntaxErrorf("unknown type %q", s)
}

// ParseTypes parses a comma separated type list. "-" and "" are empty.
func ParseTypes(s string) ([]vm.Type, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "-" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	types := make([]vm.Type, 0, len(parts))
	for _, part := range parts {
		t, err := ParseType(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

// ParseInstruction parses a single instruction line.
func ParseInstruction(line string) (vm.Instruction, error) {
	fields := strings.Fields(stripComment(line))
	if len(fields) == 0 {
		return vm.Instruction{}, syntaxErrorf("empty instruction")
	}
	if len(fields) > 1 && isOffset(fields[0]) {
		fields = fields[1:]
	}

	op, ok := vm.LookupOpcode(fields[0])
	if !ok {
		e := syntaxErrorf("unknown mnemonic %q", fields[0])
		e.Err = vm.InvalidInstruction
		return vm.Instruction{}, e
	}

	switch len(fields) {
	case 1:
		return vm.Op(op), nil
	case 2:
		data, err := parseOperand(fields[1])
		if err != nil {
			return vm.Instruction{}, err
		}
		return vm.Instruction{Code: op, Data: data}, nil
	default:
		return vm.Instruction{}, syntaxErrorf("%s: too many operands", fields[0])
	}
}

// Parse parses one instruction per line. Blank and comment-only lines are
// skipped.
func Parse(text string) ([]vm.Instruction, error) {
	var code []vm.Instruction
	for i, line := range strings.Split(text, "\n") {
		if isBlank(line) {
			continue
		}
		in, err := ParseInstruction(line)
		if err != nil {
			return nil, atLine(err, i+1)
		}
		code = append(code, in)
	}
	return code, nil
}

// ParseListing parses the output of (*vm.Machine).Disassemble back into
// function definitions. Instructions before the first function header
// belong to an unnamed first function.
func ParseListing(text string) ([]vm.FunctionDefinition, error) {
	var defs []vm.FunctionDefinition
	current := func() *vm.FunctionDefinition {
		if len(defs) == 0 {
			return nil
		}
		return &defs[len(defs)-1]
	}
	begin := func(name string) {
		defs = append(defs, vm.FunctionDefinition{Name: name})
	}

	for i, line := range strings.Split(text, "\n") {
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, ";") {
			header := strings.TrimSpace(strings.TrimPrefix(trimmed, ";"))
			if name, ok := functionHeader(header); ok {
				begin(name)
				continue
			}
			def := current()
			if def == nil {
				if !isSignature(header) {
					continue
				}
				// A single unnamed function is listed without a header.
				begin("")
				def = current()
			}
			if err := applyHeader(def, header); err != nil {
				return nil, atLine(err, lineNo)
			}
			continue
		}
		if trimmed == "" {
			continue
		}

		in, err := ParseInstruction(line)
		if err != nil {
			return nil, atLine(err, lineNo)
		}
		if current() == nil {
			begin("")
		}
		current().Emit(in)
	}
	return defs, nil
}

// functionHeader recognizes "=== function N (name) ===",
// "=== function N ===" and "=== name ===".
func functionHeader(header string) (string, bool) {
	if !strings.HasPrefix(header, "===") || !strings.HasSuffix(header, "===") || len(header) < 6 {
		return "", false
	}
	body := strings.TrimSpace(header[3 : len(header)-3])
	if rest, ok := strings.CutPrefix(body, "function "); ok {
		if open := strings.IndexByte(rest, '('); open >= 0 && strings.HasSuffix(rest, ")") {
			return rest[open+1 : len(rest)-1], true
		}
		if _, err := strconv.Atoi(strings.TrimSpace(rest)); err == nil {
			return "", true
		}
	}
	return body, true
}

// isSignature reports whether header is an In, Out or Variables line.
func isSignature(header string) bool {
	key, _, ok := strings.Cut(header, ":")
	if !ok {
		return false
	}
	switch strings.TrimSpace(key) {
	case "In", "Out", "Variables":
		return true
	}
	return false
}

func applyHeader(def *vm.FunctionDefinition, header string) error {
	key, value, ok := strings.Cut(header, ":")
	if !ok {
		return nil
	}
	value = strings.TrimSpace(value)

	switch strings.TrimSpace(key) {
	case "In":
		types, err := ParseTypes(value)
		if err != nil {
			return err
		}
		def.InParams = types
	case "Out":
		types, err := ParseTypes(value)
		if err != nil {
			return err
		}
		def.OutParams = types
	case "Variables":
		count, err := strconv.Atoi(strings.TrimSuffix(value, " slots"))
		if err != nil {
			return syntaxErrorf("bad variable count %q", value)
		}
		def.VariableCount = count
	}
	return nil
}

func parseOperand(s string) (vm.Value, error) {
	switch s {
	case "true":
		return vm.Boolean(true), nil
	case "false":
		return vm.Boolean(false), nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, syntaxErrorf("bad operand %q", s)
	}
	return vm.Integer(n), nil
}

func stripComment(line string) string {
	if i := strings.IndexByte(line, ';'); i >= 0 {
		return line[:i]
	}
	return line
}

func isBlank(line string) bool {
	return strings.TrimSpace(stripComment(line)) == ""
}

func isOffset(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func atLine(err error, line int) error {
	if se, ok := err.(*SyntaxError); ok {
		se.Line = line
		return se
	}
	return err
}
