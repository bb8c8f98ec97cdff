package vm

import (
	"context"
	"sync"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("arborate.vm")

// DefaultMaxCallDepth bounds nested CallFunction invocations unless
// overridden with WithLimits.
const DefaultMaxCallDepth = 1 << 16

// Limits bounds the resources one execution may use.
type Limits struct {
	// MaxCallDepth is the maximum number of live frames, the entry frame
	// included. Zero means frames are bounded by memory only.
	MaxCallDepth int
}

// DefaultLimits are used when New is called without WithLimits.
var DefaultLimits = Limits{MaxCallDepth: DefaultMaxCallDepth}

// Option configures a Machine.
type Option func(*Machine)

// WithLimits overrides DefaultLimits.
func WithLimits(limits Limits) Option {
	return func(m *Machine) {
		m.limits = limits
	}
}

// WithTrace logs every dispatched instruction at Debug level.
func WithTrace(trace bool) Option {
	return func(m *Machine) {
		m.trace = trace
	}
}

// WithLogger replaces the package logger.
func WithLogger(logger commonlog.Logger) Option {
	return func(m *Machine) {
		if logger != nil {
			m.log = logger
		}
	}
}

// Machine is a verified, immutable collection of functions. A Machine is
// safe for concurrent use: every execution owns its frames and nothing
// mutable is shared between executions.
type Machine struct {
	functions []FunctionDefinition
	limits    Limits
	trace     bool
	log       commonlog.Logger

	fingerprintOnce sync.Once
	fingerprint     string
	fingerprintErr  error
}

// New copies and verifies the given functions. On any verification
// failure it returns a nil Machine and an *Error describing the first
// violation.
func New(functions []FunctionDefinition, opts ...Option) (*Machine, error) {
	m := &Machine{
		functions: make([]FunctionDefinition, len(functions)),
		limits:    DefaultLimits,
		log:       log,
	}
	for i := range functions {
		m.functions[i] = functions[i].clone()
	}
	for _, opt := range opts {
		opt(m)
	}

	if err := verify(m.functions); err != nil {
		m.log.Debugf("verification failed: %v", err)
		return nil, err
	}
	m.log.Debugf("verified %d functions", len(m.functions))
	return m, nil
}

// FunctionCount returns the number of functions in the machine.
func (m *Machine) FunctionCount() int {
	return len(m.functions)
}

// Function returns a copy of the function at index.
func (m *Machine) Function(index int) (FunctionDefinition, bool) {
	if index < 0 || index >= len(m.functions) {
		return FunctionDefinition{}, false
	}
	return m.functions[index].clone(), true
}

// Lookup returns the index of the first function with the given name.
func (m *Machine) Lookup(name string) (int, bool) {
	for i := range m.functions {
		if m.functions[i].Name == name {
			return i, true
		}
	}
	return -1, false
}

// Limits returns the limits in effect for executions.
func (m *Machine) Limits() Limits {
	return m.limits
}

// Execute runs the first function and returns its results in stack order.
func (m *Machine) Execute() ([]Value, error) {
	return m.ExecuteFunction(context.Background(), 0)
}

// ExecuteFunction runs the function at index and returns its results in
// stack order. A failure aborts only this execution; the machine stays
// usable. Cancelling ctx stops the execution with ExecutionCancelled.
func (m *Machine) ExecuteFunction(ctx context.Context, index int) ([]Value, error) {
	if index < 0 || index >= len(m.functions) {
		return nil, newError(InvalidFunctionIndex, "function index %d outside [0, %d)", index, len(m.functions))
	}
	return m.run(ctx, index)
}
