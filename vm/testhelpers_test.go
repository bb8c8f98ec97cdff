package vm

import (
	"errors"
	"testing"
)

var (
	intT  = TypeInteger
	boolT = TypeBoolean
)

func types(ts ...Type) []Type { return ts }

// fn builds a function with no variables.
func fn(in, out []Type, code ...Instruction) FunctionDefinition {
	return FunctionDefinition{InParams: in, OutParams: out, Code: code}
}

func mustNew(t *testing.T, defs ...FunctionDefinition) *Machine {
	t.Helper()
	m, err := New(defs)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func mustExecute(t *testing.T, m *Machine) []Value {
	t.Helper()
	got, err := m.Execute()
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return got
}

func expectValues(t *testing.T, got []Value, want ...Value) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d values %v, want %d values %v", len(got), got, len(want), want)
	}
	for i := range want {
		if !Equal(got[i], want[i]) {
			t.Errorf("value %d = %v (%s), want %v (%s)", i, got[i], got[i].Type(), want[i], want[i].Type())
		}
	}
}

func expectDetail(t *testing.T, err error, want Detail) *Error {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got no error", want)
	}
	if !errors.Is(err, want) {
		t.Fatalf("expected %s, got %v", want, err)
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %T", err)
	}
	return e
}

// constOf pushes an arbitrary constant of type t.
func constOf(t Type) Instruction {
	if t == TypeBoolean {
		return OpBool(OpBooleanConstantToStack, true)
	}
	return OpInt(OpIntegerConstantToStack, 100)
}
