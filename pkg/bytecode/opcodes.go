package bytecode

import "fmt"

// Opcode represents a bytecode instruction tag.
// Opcodes are organized into ranges by category for easy identification.
// The set is closed; there is no dynamic registration.
type Opcode byte

const (
	// ========================================================================
	// Stack manipulation (0x00-0x0F)
	// ========================================================================

	OpNop  Opcode = 0x00 // No operation
	OpPop  Opcode = 0x01 // Discard top of stack
	OpHalt Opcode = 0x02 // Stop execution immediately

	// ========================================================================
	// Constants (0x10-0x1F)
	// ========================================================================

	OpPushI32  Opcode = 0x10 // Push 32-bit constant: OpPushI32 <imm:i32>
	OpPushI64  Opcode = 0x11 // Push 64-bit constant: OpPushI64 <imm:i64>
	OpPushBool Opcode = 0x12 // Push boolean constant: OpPushBool <imm:u8>

	// ========================================================================
	// Parameters and locals (0x20-0x2F)
	// ========================================================================

	OpLoadParam  Opcode = 0x20 // Push parameter: OpLoadParam <slot:u8>
	OpLoadLocal  Opcode = 0x21 // Push local variable: OpLoadLocal <slot:u8>
	OpStoreLocal Opcode = 0x22 // Pop and store to local: OpStoreLocal <slot:u8>

	// ========================================================================
	// 32-bit arithmetic (0x30-0x3F)
	// ========================================================================

	OpAddI32 Opcode = 0x30 // Pop two, push sum
	OpSubI32 Opcode = 0x31 // Pop two, push difference (a - b where b is TOS)
	OpMulI32 Opcode = 0x32 // Pop two, push product
	OpDivI32 Opcode = 0x33 // Pop two, push quotient
	OpRemI32 Opcode = 0x34 // Pop two, push remainder
	OpNegI32 Opcode = 0x35 // Negate top of stack

	// ========================================================================
	// 64-bit arithmetic (0x40-0x4F)
	// ========================================================================

	OpAddI64 Opcode = 0x40
	OpSubI64 Opcode = 0x41
	OpMulI64 Opcode = 0x42
	OpDivI64 Opcode = 0x43
	OpRemI64 Opcode = 0x44
	OpNegI64 Opcode = 0x45

	// ========================================================================
	// Calls and returns (0xF0-0xFF)
	// ========================================================================

	OpCall    Opcode = 0xF0 // Call by table index: OpCall <func:u16> <argc:u8>
	OpRet     Opcode = 0xF1 // Return top of stack to the caller
	OpRetVoid Opcode = 0xF2 // Return without a value
)

// OpcodeInfo provides metadata about each opcode for validation,
// disassembly, and stack-depth bookkeeping.
type OpcodeInfo struct {
	Name       string // Human-readable mnemonic
	StackPop   int    // Values popped from the stack (-1 = variable)
	StackPush  int    // Values pushed onto the stack
	OperandLen int    // Operand bytes following the tag
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Stack manipulation
	OpNop:  {"NOP", 0, 0, 0},
	OpPop:  {"POP", 1, 0, 0},
	OpHalt: {"HALT", 0, 0, 0},

	// Constants
	OpPushI32:  {"PUSH_I32", 0, 1, 4},
	OpPushI64:  {"PUSH_I64", 0, 1, 8},
	OpPushBool: {"PUSH_BOOL", 0, 1, 1},

	// Parameters and locals
	OpLoadParam:  {"LOAD_PARAM", 0, 1, 1},
	OpLoadLocal:  {"LOAD_LOCAL", 0, 1, 1},
	OpStoreLocal: {"STORE_LOCAL", 1, 0, 1},

	// 32-bit arithmetic
	OpAddI32: {"ADD_I32", 2, 1, 0},
	OpSubI32: {"SUB_I32", 2, 1, 0},
	OpMulI32: {"MUL_I32", 2, 1, 0},
	OpDivI32: {"DIV_I32", 2, 1, 0},
	OpRemI32: {"REM_I32", 2, 1, 0},
	OpNegI32: {"NEG_I32", 1, 1, 0},

	// 64-bit arithmetic
	OpAddI64: {"ADD_I64", 2, 1, 0},
	OpSubI64: {"SUB_I64", 2, 1, 0},
	OpMulI64: {"MUL_I64", 2, 1, 0},
	OpDivI64: {"DIV_I64", 2, 1, 0},
	OpRemI64: {"REM_I64", 2, 1, 0},
	OpNegI64: {"NEG_I64", 1, 1, 0},

	// Calls and returns
	OpCall:    {"CALL", -1, 1, 3}, // Pops argc arguments; argc is an operand
	OpRet:     {"RET", 1, 0, 0},
	OpRetVoid: {"RET_VOID", 0, 0, 0},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// Valid reports whether the opcode is part of the instruction set.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// String returns the human-readable mnemonic of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// OperandLen returns the number of operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	return GetOpcodeInfo(op).OperandLen
}

// InstructionLen returns the total length of an instruction (1 + operand bytes).
func (op Opcode) InstructionLen() int {
	return 1 + op.OperandLen()
}

// StackEffect returns the net change in operand-stack depth for this
// opcode. For OpCall the effect depends on the encoded argument count:
// the callee consumes argc values and yields exactly one.
func (op Opcode) StackEffect(argc int) int {
	if op == OpCall {
		return 1 - argc
	}
	info := GetOpcodeInfo(op)
	return info.StackPush - info.StackPop
}

// IsReturn returns true if this opcode terminates the current frame.
func (op Opcode) IsReturn() bool {
	return op == OpRet || op == OpRetVoid
}

// IsArithmetic returns true for binary and unary arithmetic opcodes.
func (op Opcode) IsArithmetic() bool {
	return (op >= OpAddI32 && op <= OpNegI32) || (op >= OpAddI64 && op <= OpNegI64)
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that every opcode has metadata and round-trips.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
