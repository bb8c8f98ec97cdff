package vm

import (
	"context"

	"github.com/tliron/commonlog"
)

// cancelCheckInterval is how many instructions run between context checks.
const cancelCheckInterval = 1024

// ---------------------------------------------------------------------------
// frame: execution state for one function invocation
// ---------------------------------------------------------------------------

// frame is the transient state of one invocation. Frames live on the
// execution's frame slice rather than the Go call stack, so call depth is
// bounded by memory (and Limits) instead of goroutine stack size.
type frame struct {
	index int                 // function index
	def   *FunctionDefinition // function being executed
	ip    int                 // next instruction
	pc    int                 // instruction being executed
	stack []Value             // operand stack, owned by this frame
	vars  []Value             // local slots; nil means never written
}

func (f *frame) fail(detail Detail, format string, args ...any) *Error {
	return newError(detail, format, args...).at(f.index, f.def, f.pc)
}

func (f *frame) push(v Value) {
	f.stack = append(f.stack, v)
}

// pop removes the top value, which must have type want.
func (f *frame) pop(want Type) (Value, *Error) {
	n := len(f.stack)
	if n == 0 {
		return nil, f.fail(TooFewElementsOnStack, "%s needs a %s operand, stack is empty", f.def.Code[f.pc].Code, want)
	}
	v := f.stack[n-1]
	if v.Type() != want {
		return nil, f.fail(IncorrectElementTypeOnStack, "%s needs a %s operand, got %s", f.def.Code[f.pc].Code, want, v.Type())
	}
	f.stack = f.stack[:n-1]
	return v, nil
}

func (f *frame) popInteger() (Integer, *Error) {
	v, err := f.pop(TypeInteger)
	if err != nil {
		return 0, err
	}
	return v.(Integer), nil
}

func (f *frame) popBoolean() (Boolean, *Error) {
	v, err := f.pop(TypeBoolean)
	if err != nil {
		return false, err
	}
	return v.(Boolean), nil
}

// popIntegers pops the right operand (TOS) and then the left one.
func (f *frame) popIntegers() (a, b Integer, err *Error) {
	if b, err = f.popInteger(); err != nil {
		return
	}
	a, err = f.popInteger()
	return
}

// popBooleans pops the right operand (TOS) and then the left one.
func (f *frame) popBooleans() (a, b Boolean, err *Error) {
	if b, err = f.popBoolean(); err != nil {
		return
	}
	a, err = f.popBoolean()
	return
}

// checkExit enforces the return contract: exactly len(OutParams) values
// whose types match OutParams bottom to top.
func (f *frame) checkExit() *Error {
	f.pc = len(f.def.Code)
	out := f.def.OutParams
	if len(f.stack) != len(out) {
		return f.fail(IncorrectReturnArgumentCount,
			"incorrect number of elements on stack at function exit (expected %d, actual %d)", len(out), len(f.stack))
	}
	for i, t := range out {
		if got := f.stack[i].Type(); got != t {
			return f.fail(IncorrectReturnArgumentType,
				"incorrect element type on stack at function exit, position %d (expected %s, actual %s)", i, t, got)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// execution: one run of the dispatch loop
// ---------------------------------------------------------------------------

type execution struct {
	m      *Machine
	ctx    context.Context
	frames []*frame
	steps  int
}

// run executes the function at entry until its frame exits.
func (m *Machine) run(ctx context.Context, entry int) ([]Value, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ex := &execution{m: m, ctx: ctx}
	if err := ex.checkContext(nil); err != nil {
		return nil, err
	}
	ex.frames = append(ex.frames, ex.newFrame(entry, nil))

	results, err := ex.loop()
	if err != nil {
		m.log.Debugf("execution of function %d failed: %v", entry, err)
		return nil, err
	}
	return results, nil
}

func (ex *execution) newFrame(index int, args []Value) *frame {
	def := &ex.m.functions[index]
	f := &frame{
		index: index,
		def:   def,
		stack: make([]Value, len(args), len(args)+len(def.OutParams)+4),
	}
	copy(f.stack, args)
	if def.VariableCount > 0 {
		f.vars = make([]Value, def.VariableCount)
	}
	return f
}

func (ex *execution) checkContext(f *frame) *Error {
	err := ex.ctx.Err()
	if err == nil {
		return nil
	}
	if f == nil {
		e := newError(ExecutionCancelled, "")
		e.Err = err
		return e
	}
	e := f.fail(ExecutionCancelled, "")
	e.Err = err
	return e
}

// loop is the fetch-execute cycle. Returning from a frame pops it and
// appends its results to the caller's stack; returning from the entry
// frame ends the execution.
func (ex *execution) loop() ([]Value, error) {
	tracing := ex.m.trace && ex.m.log.AllowLevel(commonlog.Debug)

	for {
		f := ex.frames[len(ex.frames)-1]

		if f.ip >= len(f.def.Code) {
			if err := f.checkExit(); err != nil {
				return nil, err
			}
			ex.frames = ex.frames[:len(ex.frames)-1]
			if len(ex.frames) == 0 {
				return f.stack, nil
			}
			caller := ex.frames[len(ex.frames)-1]
			caller.stack = append(caller.stack, f.stack...)
			continue
		}

		f.pc = f.ip
		f.ip++
		in := f.def.Code[f.pc]

		ex.steps++
		if ex.steps%cancelCheckInterval == 0 {
			if err := ex.checkContext(f); err != nil {
				return nil, err
			}
		}

		if tracing {
			ex.m.log.Debugf("[%s %04d] %-28s depth=%d sp=%d",
				f.def.label(f.index), f.pc, in.String(), len(ex.frames), len(f.stack))
		}

		if err := ex.dispatch(f, in); err != nil {
			return nil, err
		}
	}
}

// dispatch executes one instruction. The switch is exhaustive over the
// opcode table; TestEveryOpcodeDispatches guards against drift.
func (ex *execution) dispatch(f *frame, in Instruction) *Error {
	switch in.Code {
	// ============ Boolean ============
	case OpBooleanConstantToStack:
		f.push(in.Data.(Boolean))

	case OpBooleanEqual:
		a, b, err := f.popBooleans()
		if err != nil {
			return err
		}
		f.push(Boolean(a == b))

	case OpBooleanNotEqual:
		a, b, err := f.popBooleans()
		if err != nil {
			return err
		}
		f.push(Boolean(a != b))

	case OpBooleanAnd:
		a, b, err := f.popBooleans()
		if err != nil {
			return err
		}
		f.push(a && b)

	case OpBooleanOr:
		a, b, err := f.popBooleans()
		if err != nil {
			return err
		}
		f.push(a || b)

	case OpBooleanNot:
		a, err := f.popBoolean()
		if err != nil {
			return err
		}
		f.push(!a)

	// ============ Integer ============
	case OpIntegerConstantToStack:
		f.push(in.Data.(Integer))

	case OpIntegerEqual:
		a, b, err := f.popIntegers()
		if err != nil {
			return err
		}
		f.push(Boolean(a == b))

	case OpIntegerNotEqual:
		a, b, err := f.popIntegers()
		if err != nil {
			return err
		}
		f.push(Boolean(a != b))

	case OpIntegerAdd:
		a, b, err := f.popIntegers()
		if err != nil {
			return err
		}
		f.push(a + b)

	case OpIntegerSubtract:
		a, b, err := f.popIntegers()
		if err != nil {
			return err
		}
		f.push(a - b)

	case OpIntegerMultiply:
		a, b, err := f.popIntegers()
		if err != nil {
			return err
		}
		f.push(a * b)

	case OpIntegerDivide:
		a, b, err := f.popIntegers()
		if err != nil {
			return err
		}
		if b == 0 {
			return f.fail(DivideByZero, "%d / 0", a)
		}
		f.push(a / b)

	case OpIntegerModulus:
		a, b, err := f.popIntegers()
		if err != nil {
			return err
		}
		if b == 0 {
			return f.fail(DivideByZero, "%d %% 0", a)
		}
		f.push(a % b)

	// ============ Control Flow ============
	case OpBranch:
		f.ip = int(in.Data.(Integer))

	case OpBranchTrue:
		cond, err := f.popBoolean()
		if err != nil {
			return err
		}
		if cond {
			f.ip = int(in.Data.(Integer))
		}

	case OpBranchFalse:
		cond, err := f.popBoolean()
		if err != nil {
			return err
		}
		if !cond {
			f.ip = int(in.Data.(Integer))
		}

	// ============ Variables ============
	case OpStackToVariable:
		slot := int(in.Data.(Integer))
		n := len(f.stack)
		if n == 0 {
			return f.fail(TooFewElementsOnStack, "StackToVariable %d on an empty stack", slot)
		}
		f.vars[slot] = f.stack[n-1]
		f.stack = f.stack[:n-1]

	case OpVariableToStack:
		slot := int(in.Data.(Integer))
		v := f.vars[slot]
		if v == nil {
			return f.fail(UninitializedVariable, "variable %d read before it was written", slot)
		}
		f.push(v)

	// ============ Calls ============
	case OpCallFunction:
		return ex.call(f, int(in.Data.(Integer)))

	default:
		return f.fail(InvalidInstruction, "no handler for opcode 0x%02X", byte(in.Code))
	}
	return nil
}

// call moves the callee's arguments off the caller's stack into a new frame.
// The callee's results are appended to the caller's stack when its frame
// exits (see loop).
func (ex *execution) call(f *frame, target int) *Error {
	callee := &ex.m.functions[target]
	n := len(callee.InParams)
	if len(f.stack) < n {
		return f.fail(TooFewElementsOnStack, "call to %s needs %d arguments, stack has %d",
			callee.label(target), n, len(f.stack))
	}

	args := f.stack[len(f.stack)-n:]
	for i, want := range callee.InParams {
		if got := args[i].Type(); got != want {
			return f.fail(IncorrectCallArgumentType, "argument %d of %s: expected %s, got %s",
				i, callee.label(target), want, got)
		}
	}

	if limit := ex.m.limits.MaxCallDepth; limit > 0 && len(ex.frames) >= limit {
		return f.fail(CallDepthExceeded, "call to %s would exceed %d frames", callee.label(target), limit)
	}
	if err := ex.checkContext(f); err != nil {
		return err
	}

	next := ex.newFrame(target, args)
	f.stack = f.stack[:len(f.stack)-n]
	ex.frames = append(ex.frames, next)
	return nil
}
