package bytecode

import (
	"errors"
	"fmt"

	"github.com/chazu/minivm/pkg/air"
)

// EntryFunctionName is the function a program starts executing from.
const EntryFunctionName = "main"

var (
	// ErrUnresolvedCall indicates an AIR call referencing a function with
	// no table entry. The front end guarantees resolution, so this is an
	// upstream contract violation, not a user-facing error.
	ErrUnresolvedCall = errors.New("unresolved call target")

	// ErrNoEntry indicates the program has no entry function.
	ErrNoEntry = errors.New("no entry function")
)

// Generator translates an AIR program into a Program image. It runs in
// exactly two passes: pass one assigns every function a stable table index
// in declaration order without emitting a byte, so pass two can emit calls
// to functions whose bodies do not exist yet. Forward references and
// mutual recursion need no fixups.
//
// A Generator holds no state across Generate calls; use the package-level
// Generate for one-shot translation.
type Generator struct {
	funcIndex map[string]uint16
	entries   []FunctionEntry
	code      []byte

	// Per-function state, reset at the start of every body. Local names
	// never leak between functions.
	fn         *air.Function
	localSlots map[string]uint8
	lastOp     Opcode
	emitted    bool
}

// Generate translates an AIR program into an immutable Program image.
func Generate(prog *air.Program) (*Program, error) {
	g := &Generator{
		funcIndex: make(map[string]uint16, len(prog.Functions)),
		entries:   make([]FunctionEntry, 0, len(prog.Functions)),
		code:      make([]byte, 0, 256),
	}

	// Pass one: table indices by declaration order.
	for i, fn := range prog.Functions {
		if i > 0xFFFF {
			return nil, fmt.Errorf("bytecode: too many functions (%d, max %d)", len(prog.Functions), 0x10000)
		}
		g.funcIndex[fn.Name] = uint16(i)
	}

	// Pass two: emit bodies and fix each entry's offset in the single
	// shared code region. Offsets are monotonic and never overlap.
	for _, fn := range prog.Functions {
		if err := g.generateFunction(fn); err != nil {
			return nil, err
		}
	}

	entry, ok := g.funcIndex[EntryFunctionName]
	if !ok {
		return nil, fmt.Errorf("bytecode: %w: program defines no %q", ErrNoEntry, EntryFunctionName)
	}

	return &Program{
		Functions: g.entries,
		Code:      g.code,
		Entry:     entry,
	}, nil
}

// generateFunction emits one function body and appends its table entry.
func (g *Generator) generateFunction(fn *air.Function) error {
	if len(fn.Params) > 0xFF {
		return fmt.Errorf("bytecode: %s: too many parameters (%d, max 255)", fn.Name, len(fn.Params))
	}

	g.fn = fn
	g.localSlots = make(map[string]uint8)
	g.emitted = false
	start := len(g.code)

	for i, in := range fn.Body {
		if err := g.generateInst(in); err != nil {
			return fmt.Errorf("bytecode: %s: instruction %d (%s): %w", fn.Name, i, in, err)
		}
	}

	// Every control path of a well-typed function ends in a return, but a
	// void function may simply fall off the end of its body.
	if !g.emitted || !g.lastOp.IsReturn() {
		g.emit(OpRetVoid)
	}

	g.entries = append(g.entries, FunctionEntry{
		Name:       fn.Name,
		ParamCount: uint8(len(fn.Params)),
		LocalCount: uint8(len(g.localSlots)),
		CodeOffset: uint32(start),
		CodeLen:    uint32(len(g.code) - start),
	})
	return nil
}

// generateInst emits the opcode group for one AIR instruction. In a stack
// machine the instruction's operands are implicitly whatever earlier
// instructions left on top of the stack, so arithmetic emits a bare
// opcode and only constants, slot accesses, and calls carry operands.
func (g *Generator) generateInst(in air.Inst) error {
	switch in.Kind {
	case air.KindIntConst:
		if in.Width == air.W32 {
			g.emitWithOperands(OpPushI32, I32Operands(int32(in.Int))...)
		} else {
			g.emitWithOperands(OpPushI64, I64Operands(in.Int)...)
		}

	case air.KindBoolConst:
		g.emitWithOperands(OpPushBool, BoolOperands(in.Bool)...)

	case air.KindBin:
		op, err := binOpcode(in.Op, in.Width)
		if err != nil {
			return err
		}
		g.emit(op)

	case air.KindNeg:
		if in.Width == air.W32 {
			g.emit(OpNegI32)
		} else {
			g.emit(OpNegI64)
		}

	case air.KindParamRef:
		if in.Index < 0 || in.Index >= len(g.fn.Params) {
			return fmt.Errorf("parameter index %d out of range (function has %d)", in.Index, len(g.fn.Params))
		}
		g.emitWithOperands(OpLoadParam, uint8(in.Index))

	case air.KindDeclareLocal:
		// Slots are handed out first-declared-first-allocated. The front
		// end rejects duplicate declarations, so an existing mapping is
		// an upstream bug.
		if _, exists := g.localSlots[in.Name]; exists {
			return fmt.Errorf("duplicate local declaration %q", in.Name)
		}
		if len(g.localSlots) >= 0xFF {
			return fmt.Errorf("too many locals (max 255)")
		}
		g.localSlots[in.Name] = uint8(len(g.localSlots))

	case air.KindLoadLocal:
		slot, err := g.localSlot(in.Name)
		if err != nil {
			return err
		}
		g.emitWithOperands(OpLoadLocal, slot)

	case air.KindStoreLocal:
		slot, err := g.localSlot(in.Name)
		if err != nil {
			return err
		}
		g.emitWithOperands(OpStoreLocal, slot)

	case air.KindCall:
		index, ok := g.funcIndex[in.Name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnresolvedCall, in.Name)
		}
		if in.ArgCount > 0xFF {
			return fmt.Errorf("call %q: too many arguments (%d, max 255)", in.Name, in.ArgCount)
		}
		g.emitWithOperands(OpCall, CallOperands(index, uint8(in.ArgCount))...)

	case air.KindRet:
		g.emit(OpRet)

	case air.KindRetVoid:
		g.emit(OpRetVoid)

	default:
		return fmt.Errorf("unsupported AIR instruction kind %d", in.Kind)
	}
	return nil
}

// localSlot resolves a local name to its slot within the current function.
func (g *Generator) localSlot(name string) (uint8, error) {
	slot, ok := g.localSlots[name]
	if !ok {
		return 0, fmt.Errorf("undeclared local %q", name)
	}
	return slot, nil
}

func (g *Generator) emit(op Opcode) {
	g.code = append(g.code, byte(op))
	g.lastOp = op
	g.emitted = true
}

func (g *Generator) emitWithOperands(op Opcode, operands ...byte) {
	g.code = append(g.code, byte(op))
	g.code = append(g.code, operands...)
	g.lastOp = op
	g.emitted = true
}

// binOpcode maps an AIR binary operation and width to its opcode.
func binOpcode(op air.BinOp, w air.Width) (Opcode, error) {
	if w == air.W32 {
		switch op {
		case air.Add:
			return OpAddI32, nil
		case air.Sub:
			return OpSubI32, nil
		case air.Mul:
			return OpMulI32, nil
		case air.Div:
			return OpDivI32, nil
		case air.Rem:
			return OpRemI32, nil
		}
	} else {
		switch op {
		case air.Add:
			return OpAddI64, nil
		case air.Sub:
			return OpSubI64, nil
		case air.Mul:
			return OpMulI64, nil
		case air.Div:
			return OpDivI64, nil
		case air.Rem:
			return OpRemI64, nil
		}
	}
	return 0, fmt.Errorf("no opcode for %s_%s", op, w)
}
