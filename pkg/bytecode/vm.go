package bytecode

import (
	"fmt"
)

// Value is one operand-stack slot. Integers of both widths and booleans
// (as 0/1) are promoted to 64-bit storage on push; the executing opcode
// alone determines how the bits are interpreted, mirroring the static
// typing already checked upstream.
type Value int64

// BoolValue promotes a boolean to its storage representation.
func BoolValue(b bool) Value {
	if b {
		return 1
	}
	return 0
}

// Bool interprets the value as a boolean.
func (v Value) Bool() bool { return v != 0 }

// I32 interprets the value as a 32-bit integer.
func (v Value) I32() int32 { return int32(v) }

// Default capacity limits. A guest program that exhausts either limit
// faults structurally; nothing at this layer retries or recovers.
const (
	DefaultMaxStackDepth = 1 << 16
	DefaultMaxCallDepth  = 1024
)

// Frame is one active, unreturned call: where to resume in the caller,
// where this call's parameter slots begin on the operand stack, and which
// function is executing. Frames are created exactly once per executed call
// instruction and destroyed exactly once by the matching return; the VM
// owns them exclusively.
type Frame struct {
	ReturnIP int
	Base     int
	Fn       FunctionEntry
}

// VM executes a Program image to a single terminal value. It owns two
// growable regions, the operand stack and the call-frame stack, plus one
// instruction pointer, and runs a single flat fetch-decode-execute loop.
// Guest calls never consume host stack, so guest recursion depth is
// bounded only by the explicit frame cap.
//
// A VM instance is single-threaded and not reusable across Programs; the
// Program itself is read-only and may be shared by many VMs.
type VM struct {
	prog   *Program
	stack  []Value
	frames []Frame
	ip     int

	// Current-frame registers. For the entry function's outermost scope
	// the frame stack is empty and these describe the implicit entry
	// frame at base 0.
	base int
	fn   FunctionEntry

	maxStack  int
	maxFrames int

	// Trace prints each instruction before executing it.
	Trace bool
}

// Option configures a VM.
type Option func(*VM)

// WithMaxStackDepth caps the operand stack (in value slots).
func WithMaxStackDepth(n int) Option {
	return func(vm *VM) { vm.maxStack = n }
}

// WithMaxCallDepth caps guest call nesting.
func WithMaxCallDepth(n int) Option {
	return func(vm *VM) { vm.maxFrames = n }
}

// WithTrace enables instruction tracing.
func WithTrace() Option {
	return func(vm *VM) { vm.Trace = true }
}

// NewVM creates a VM for one run of the given program.
func NewVM(prog *Program, opts ...Option) *VM {
	vm := &VM{
		prog:      prog,
		stack:     make([]Value, 0, 64),
		frames:    make([]Frame, 0, 16),
		maxStack:  DefaultMaxStackDepth,
		maxFrames: DefaultMaxCallDepth,
	}
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// Run executes a program with default limits.
func Run(prog *Program) (Value, error) {
	return NewVM(prog).Run()
}

// Run executes the program from its entry function until the outermost
// return or an explicit halt. On success it returns the terminal value
// (0 for a void entry function). On failure the error is always a *Fault;
// the run is dead and the VM must not be reused.
func (vm *VM) Run() (Value, error) {
	entry := vm.prog.EntryFunction()

	// The entry function gets its frame region directly: parameter slots
	// (zeroed, since nothing external supplies arguments) plus local slots.
	for i := 0; i < entry.FrameSize(); i++ {
		vm.stack = append(vm.stack, 0)
	}
	vm.base = 0
	vm.fn = entry
	vm.ip = int(entry.CodeOffset)

	return vm.run()
}

// run is the fetch-decode-execute loop. Every effect of an instruction is
// validated before any of it commits, so a faulting instruction never
// partially applies.
func (vm *VM) run() (Value, error) {
	code := vm.prog.Code
	for {
		opOffset := vm.ip
		in, next, err := Decode(code, opOffset)
		if err != nil {
			return 0, structuralFault(opOffset, "%v", err)
		}
		vm.ip = next

		if vm.Trace {
			fmt.Printf("[%04X] %-12s depth=%d frames=%d\n", opOffset, in.Op, len(vm.stack), len(vm.frames))
		}

		switch in.Op {
		case OpNop:
			// Do nothing

		case OpPop:
			if _, err := vm.pop(opOffset); err != nil {
				return 0, err
			}

		case OpHalt:
			if len(vm.stack) > 0 {
				return vm.stack[len(vm.stack)-1], nil
			}
			return 0, nil

		// ============ Constants ============
		case OpPushI32:
			if err := vm.push(opOffset, Value(in.ImmI32())); err != nil {
				return 0, err
			}

		case OpPushI64:
			if err := vm.push(opOffset, Value(in.ImmI64())); err != nil {
				return 0, err
			}

		case OpPushBool:
			if err := vm.push(opOffset, BoolValue(in.ImmBool())); err != nil {
				return 0, err
			}

		// ============ Parameters and locals ============
		case OpLoadParam:
			slot := int(in.Slot())
			if slot >= int(vm.fn.ParamCount) {
				return 0, structuralFault(opOffset, "parameter index %d out of range (%s has %d parameters)",
					slot, vm.fn.Name, vm.fn.ParamCount)
			}
			if err := vm.push(opOffset, vm.stack[vm.base+slot]); err != nil {
				return 0, err
			}

		case OpLoadLocal:
			slot := int(in.Slot())
			if slot >= int(vm.fn.LocalCount) {
				return 0, structuralFault(opOffset, "local slot %d out of range (%s has %d locals)",
					slot, vm.fn.Name, vm.fn.LocalCount)
			}
			if err := vm.push(opOffset, vm.stack[vm.base+int(vm.fn.ParamCount)+slot]); err != nil {
				return 0, err
			}

		case OpStoreLocal:
			slot := int(in.Slot())
			if slot >= int(vm.fn.LocalCount) {
				return 0, structuralFault(opOffset, "local slot %d out of range (%s has %d locals)",
					slot, vm.fn.Name, vm.fn.LocalCount)
			}
			v, err := vm.pop(opOffset)
			if err != nil {
				return 0, err
			}
			vm.stack[vm.base+int(vm.fn.ParamCount)+slot] = v

		// ============ 32-bit arithmetic ============
		// Results are computed at 32 bits with two's-complement wrap-around,
		// then sign-extended back to storage width.
		case OpAddI32, OpSubI32, OpMulI32, OpDivI32, OpRemI32:
			b, a, err := vm.pop2(opOffset)
			if err != nil {
				return 0, err
			}
			r, fault := arith32(in.Op, a.I32(), b.I32(), opOffset)
			if fault != nil {
				return 0, fault
			}
			vm.stack = append(vm.stack, Value(r))

		case OpNegI32:
			v, err := vm.pop(opOffset)
			if err != nil {
				return 0, err
			}
			vm.stack = append(vm.stack, Value(-v.I32()))

		// ============ 64-bit arithmetic ============
		case OpAddI64, OpSubI64, OpMulI64, OpDivI64, OpRemI64:
			b, a, err := vm.pop2(opOffset)
			if err != nil {
				return 0, err
			}
			r, fault := arith64(in.Op, int64(a), int64(b), opOffset)
			if fault != nil {
				return 0, fault
			}
			vm.stack = append(vm.stack, Value(r))

		case OpNegI64:
			v, err := vm.pop(opOffset)
			if err != nil {
				return 0, err
			}
			vm.stack = append(vm.stack, -v)

		// ============ Calls and returns ============
		case OpCall:
			fnIndex, argc := in.CallTarget()
			callee, err := vm.prog.Function(fnIndex)
			if err != nil {
				return 0, structuralFault(opOffset, "%v", err)
			}
			if argc != callee.ParamCount {
				return 0, structuralFault(opOffset, "call %s: argument count %d does not match %d declared parameters",
					callee.Name, argc, callee.ParamCount)
			}
			if len(vm.frames) >= vm.maxFrames {
				return 0, structuralFault(opOffset, "call depth exceeds %d frames", vm.maxFrames)
			}
			// The argc already-pushed arguments become the callee's
			// parameter slots in place, without copying.
			if len(vm.stack)-vm.frameFloor() < int(argc) {
				return 0, structuralFault(opOffset, "call %s: stack underflow: need %d arguments, have %d working values",
					callee.Name, argc, len(vm.stack)-vm.frameFloor())
			}
			if len(vm.stack)+int(callee.LocalCount) > vm.maxStack {
				return 0, structuralFault(opOffset, "operand stack overflow (limit %d)", vm.maxStack)
			}
			frame := Frame{
				ReturnIP: vm.ip,
				Base:     len(vm.stack) - int(argc),
				Fn:       callee,
			}
			vm.frames = append(vm.frames, frame)
			vm.base = frame.Base
			vm.fn = callee
			for i := 0; i < int(callee.LocalCount); i++ {
				vm.stack = append(vm.stack, 0)
			}
			vm.ip = int(callee.CodeOffset)

		case OpRet:
			result, err := vm.pop(opOffset)
			if err != nil {
				return 0, err
			}
			if done := vm.unwind(&result); done {
				return result, nil
			}

		case OpRetVoid:
			if done := vm.unwind(nil); done {
				return 0, nil
			}

		default:
			// Decode already rejected unknown tags; reaching here means an
			// opcode was added to the table without an executor.
			return 0, structuralFault(opOffset, "opcode %s has no executor", in.Op)
		}
	}
}

// unwind performs the return sequence: discard everything from the
// current frame's base upward (parameters, locals, and leftover working
// values collapse in one step), pop the call-frame stack, restore the
// caller's instruction pointer, and re-push the result value, if any.
// Returns true when the outermost function returned and execution is done.
func (vm *VM) unwind(result *Value) bool {
	if len(vm.frames) == 0 {
		return true
	}
	frame := vm.frames[len(vm.frames)-1]
	vm.frames = vm.frames[:len(vm.frames)-1]
	vm.stack = vm.stack[:frame.Base]
	vm.ip = frame.ReturnIP

	if len(vm.frames) > 0 {
		caller := vm.frames[len(vm.frames)-1]
		vm.base = caller.Base
		vm.fn = caller.Fn
	} else {
		vm.base = 0
		vm.fn = vm.prog.EntryFunction()
	}

	if result != nil {
		vm.stack = append(vm.stack, *result)
	}
	return false
}

// frameFloor is the lowest operand-stack index the current instruction may
// pop: working values live above the frame's parameter and local slots.
func (vm *VM) frameFloor() int {
	return vm.base + vm.fn.FrameSize()
}

func (vm *VM) push(offset int, v Value) error {
	if len(vm.stack) >= vm.maxStack {
		return structuralFault(offset, "operand stack overflow (limit %d)", vm.maxStack)
	}
	vm.stack = append(vm.stack, v)
	return nil
}

func (vm *VM) pop(offset int) (Value, error) {
	if len(vm.stack) <= vm.frameFloor() {
		return 0, structuralFault(offset, "stack underflow in %s", vm.fn.Name)
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

// pop2 pops the right then the left operand of a binary instruction.
func (vm *VM) pop2(offset int) (b, a Value, err error) {
	if b, err = vm.pop(offset); err != nil {
		return
	}
	a, err = vm.pop(offset)
	return
}

// arith32 evaluates a 32-bit binary operation. Division and remainder are
// checked for a zero divisor; quotients are computed at 64 bits so that
// MinInt32 / -1 wraps instead of trapping.
func arith32(op Opcode, a, b int32, offset int) (int32, *Fault) {
	switch op {
	case OpAddI32:
		return a + b, nil
	case OpSubI32:
		return a - b, nil
	case OpMulI32:
		return a * b, nil
	case OpDivI32:
		if b == 0 {
			return 0, arithmeticFault(offset, "division by zero")
		}
		return int32(int64(a) / int64(b)), nil
	case OpRemI32:
		if b == 0 {
			return 0, arithmeticFault(offset, "remainder by zero")
		}
		return int32(int64(a) % int64(b)), nil
	}
	return 0, structuralFault(offset, "opcode %s is not 32-bit arithmetic", op)
}

// arith64 evaluates a 64-bit binary operation. MinInt64 / -1 is
// special-cased because Go's integer division traps on that pair.
func arith64(op Opcode, a, b int64, offset int) (int64, *Fault) {
	switch op {
	case OpAddI64:
		return a + b, nil
	case OpSubI64:
		return a - b, nil
	case OpMulI64:
		return a * b, nil
	case OpDivI64:
		if b == 0 {
			return 0, arithmeticFault(offset, "division by zero")
		}
		if b == -1 {
			return -a, nil
		}
		return a / b, nil
	case OpRemI64:
		if b == 0 {
			return 0, arithmeticFault(offset, "remainder by zero")
		}
		if b == -1 {
			return 0, nil
		}
		return a % b, nil
	}
	return 0, structuralFault(offset, "opcode %s is not 64-bit arithmetic", op)
}
