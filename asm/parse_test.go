package asm

import (
	"errors"
	"strings"
	"testing"

	"github.com/chazu/arborate/vm"
)

func TestParseInstruction(t *testing.T) {
	tests := []struct {
		line string
		want vm.Instruction
	}{
		{"IntegerAdd", vm.Op(vm.OpIntegerAdd)},
		{"  IntegerConstantToStack -42  ", vm.OpInt(vm.OpIntegerConstantToStack, -42)},
		{"BooleanConstantToStack true", vm.OpBool(vm.OpBooleanConstantToStack, true)},
		{"BooleanConstantToStack false ; comment", vm.OpBool(vm.OpBooleanConstantToStack, false)},
		{"0005  BranchTrue               14    ; -> 0014", vm.OpInt(vm.OpBranchTrue, 14)},
		{"0002  CallFunction             1    ; pow", vm.OpInt(vm.OpCallFunction, 1)},
		// The verifier, not the assembler, rejects payloads an opcode does not take.
		{"IntegerAdd 3", vm.OpInt(vm.OpIntegerAdd, 3)},
	}

	for _, tt := range tests {
		got, err := ParseInstruction(tt.line)
		if err != nil {
			t.Errorf("ParseInstruction(%q): %v", tt.line, err)
			continue
		}
		if got.Code != tt.want.Code || !vm.Equal(got.Data, tt.want.Data) {
			t.Errorf("ParseInstruction(%q) = %v, want %v", tt.line, got, tt.want)
		}
	}
}

func TestParseInstructionErrors(t *testing.T) {
	tests := []string{
		"",
		"; only a comment",
		"Nop",
		"IntegerConstantToStack 1 2",
		"IntegerConstantToStack one",
		"IntegerConstantToStack 99999999999999999999",
		"0003",
	}
	for _, line := range tests {
		if _, err := ParseInstruction(line); err == nil {
			t.Errorf("ParseInstruction(%q) should fail", line)
		}
	}
}

func TestUnknownMnemonicWrapsDetail(t *testing.T) {
	_, err := ParseInstruction("Frobnicate 1")
	if !errors.Is(err, vm.InvalidInstruction) {
		t.Errorf("expected vm.InvalidInstruction, got %v", err)
	}
}

func TestParseReportsLine(t *testing.T) {
	_, err := Parse("IntegerConstantToStack 1\n\n; note\nIntegerAdd true false\n")
	var se *SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SyntaxError, got %v", err)
	}
	if se.Line != 4 {
		t.Errorf("Line = %d, want 4", se.Line)
	}
	if !strings.HasPrefix(err.Error(), "line 4: ") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestParseProgramRuns(t *testing.T) {
	code, err := Parse(`
		IntegerConstantToStack 6
		IntegerConstantToStack 7
		IntegerMultiply         ; 42
	`)
	if err != nil {
		t.Fatal(err)
	}
	m, err := vm.New([]vm.FunctionDefinition{{OutParams: []vm.Type{vm.TypeInteger}, Code: code}})
	if err != nil {
		t.Fatal(err)
	}
	got, err := m.Execute()
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != vm.Integer(42) {
		t.Errorf("got %v, want 42", got[0])
	}
}

func TestParseTypes(t *testing.T) {
	tests := []struct {
		in   string
		want []vm.Type
	}{
		{"", nil},
		{"-", nil},
		{"Integer", []vm.Type{vm.TypeInteger}},
		{"Integer, Boolean", []vm.Type{vm.TypeInteger, vm.TypeBoolean}},
		{"int,bool", []vm.Type{vm.TypeInteger, vm.TypeBoolean}},
		{"BOOLEAN", []vm.Type{vm.TypeBoolean}},
	}
	for _, tt := range tests {
		got, err := ParseTypes(tt.in)
		if err != nil {
			t.Errorf("ParseTypes(%q): %v", tt.in, err)
			continue
		}
		if len(got) != len(tt.want) {
			t.Errorf("ParseTypes(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseTypes(%q)[%d] = %s, want %s", tt.in, i, got[i], tt.want[i])
			}
		}
	}

	if _, err := ParseType("String"); err == nil {
		t.Error("ParseType(String) should fail")
	}
}

func powFunctions() []vm.FunctionDefinition {
	return []vm.FunctionDefinition{
		{
			Name:      "main",
			OutParams: []vm.Type{vm.TypeInteger},
			Code: []vm.Instruction{
				vm.OpInt(vm.OpIntegerConstantToStack, 2),
				vm.OpInt(vm.OpIntegerConstantToStack, 10),
				vm.OpInt(vm.OpCallFunction, 1),
			},
		},
		{
			Name:          "pow",
			InParams:      []vm.Type{vm.TypeInteger, vm.TypeInteger},
			OutParams:     []vm.Type{vm.TypeInteger},
			VariableCount: 2,
			Code: []vm.Instruction{
				vm.OpInt(vm.OpStackToVariable, 1),
				vm.OpInt(vm.OpStackToVariable, 0),
				vm.OpInt(vm.OpVariableToStack, 1),
				vm.OpInt(vm.OpIntegerConstantToStack, 0),
				vm.Op(vm.OpIntegerEqual),
				vm.OpInt(vm.OpBranchTrue, 14),
				vm.OpInt(vm.OpVariableToStack, 0),
				vm.OpInt(vm.OpVariableToStack, 1),
				vm.OpInt(vm.OpIntegerConstantToStack, 1),
				vm.Op(vm.OpIntegerSubtract),
				vm.OpInt(vm.OpCallFunction, 1),
				vm.OpInt(vm.OpVariableToStack, 0),
				vm.Op(vm.OpIntegerMultiply),
				vm.OpInt(vm.OpBranch, 15),
				vm.OpInt(vm.OpIntegerConstantToStack, 1),
				vm.OpInt(vm.OpIntegerConstantToStack, 1),
				vm.Op(vm.OpIntegerMultiply),
			},
		},
		{
			OutParams: []vm.Type{vm.TypeBoolean, vm.TypeBoolean},
			Code: []vm.Instruction{
				vm.OpBool(vm.OpBooleanConstantToStack, true),
				vm.OpBool(vm.OpBooleanConstantToStack, false),
			},
		},
	}
}

func TestUnnamedFunctionListingRoundTrip(t *testing.T) {
	def := vm.FunctionDefinition{
		InParams:      []vm.Type{vm.TypeInteger},
		OutParams:     []vm.Type{vm.TypeInteger},
		VariableCount: 1,
		Code: []vm.Instruction{
			vm.OpInt(vm.OpStackToVariable, 0),
			vm.OpInt(vm.OpVariableToStack, 0),
			vm.OpInt(vm.OpVariableToStack, 0),
			vm.Op(vm.OpIntegerMultiply),
		},
	}
	listing := def.Disassemble()

	defs, err := ParseListing(listing)
	if err != nil {
		t.Fatalf("ParseListing: %v\n%s", err, listing)
	}
	if len(defs) != 1 {
		t.Fatalf("parsed %d functions, want 1", len(defs))
	}
	got := defs[0]
	if len(got.InParams) != 1 || got.InParams[0] != vm.TypeInteger {
		t.Errorf("InParams = %v", got.InParams)
	}
	if len(got.OutParams) != 1 || got.OutParams[0] != vm.TypeInteger {
		t.Errorf("OutParams = %v", got.OutParams)
	}
	if got.VariableCount != 1 {
		t.Errorf("VariableCount = %d, want 1", got.VariableCount)
	}
	if got.Disassemble() != listing {
		t.Errorf("listing changed after round trip:\n%s", got.Disassemble())
	}

	caller := vm.FunctionDefinition{
		OutParams: []vm.Type{vm.TypeInteger},
		Code: []vm.Instruction{
			vm.OpInt(vm.OpIntegerConstantToStack, 7),
			vm.OpInt(vm.OpCallFunction, 1),
		},
	}
	m, err := vm.New([]vm.FunctionDefinition{caller, got})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	results, err := m.Execute()
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0] != vm.Integer(49) {
		t.Errorf("got %v, want [49]", results)
	}
}

func TestListingRoundTrip(t *testing.T) {
	source, err := vm.New(powFunctions())
	if err != nil {
		t.Fatal(err)
	}
	listing := source.Disassemble()

	defs, err := ParseListing(listing)
	if err != nil {
		t.Fatalf("ParseListing: %v\n%s", err, listing)
	}
	if len(defs) != 3 {
		t.Fatalf("parsed %d functions, want 3", len(defs))
	}
	if defs[0].Name != "main" || defs[1].Name != "pow" || defs[2].Name != "" {
		t.Errorf("names = %q, %q, %q", defs[0].Name, defs[1].Name, defs[2].Name)
	}

	rebuilt, err := vm.New(defs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want, _ := source.Fingerprint()
	got, _ := rebuilt.Fingerprint()
	if got != want {
		t.Errorf("fingerprint changed after round trip:\n%s", rebuilt.Disassemble())
	}
	if rebuilt.Disassemble() != listing {
		t.Errorf("listing changed after round trip")
	}

	results, err := rebuilt.Execute()
	if err != nil {
		t.Fatal(err)
	}
	if results[0] != vm.Integer(1024) {
		t.Errorf("got %v, want 1024", results[0])
	}
}

func TestParseListingWithoutHeaders(t *testing.T) {
	defs, err := ParseListing("IntegerConstantToStack 1\nIntegerConstantToStack 2\nIntegerAdd\n")
	if err != nil {
		t.Fatal(err)
	}
	if len(defs) != 1 || len(defs[0].Code) != 3 {
		t.Fatalf("got %+v", defs)
	}
}

func TestParseListingBadHeader(t *testing.T) {
	_, err := ParseListing("; === f ===\n; In: Integer\n; Out: Float\n")
	var se *SyntaxError
	if !errors.As(err, &se) || se.Line != 3 {
		t.Errorf("expected syntax error on line 3, got %v", err)
	}
}
