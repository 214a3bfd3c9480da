package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// All multi-byte operands are fixed-width little-endian integers.
// Instructions are not self-describing beyond their leading tag byte, so
// correct decoding always proceeds sequentially from a known instruction
// boundary.

var (
	// ErrUnknownOpcode indicates a tag byte outside the instruction set.
	ErrUnknownOpcode = errors.New("unknown opcode")

	// ErrTruncated indicates an instruction whose operand bytes run past
	// the end of the code region.
	ErrTruncated = errors.New("truncated instruction")

	// ErrBadOperands indicates an encode call with the wrong operand length.
	ErrBadOperands = errors.New("operand length mismatch")
)

// Instruction is one decoded instruction: the tag plus its raw operand
// bytes. Operands holds exactly Op.OperandLen() bytes.
type Instruction struct {
	Op       Opcode
	Operands []byte
}

// Encode serializes an opcode with its operand bytes. The output length is
// exactly 1 + the opcode's declared operand length; any other operand
// length is rejected.
func Encode(op Opcode, operands []byte) ([]byte, error) {
	if !op.Valid() {
		return nil, fmt.Errorf("bytecode: encode 0x%02X: %w", byte(op), ErrUnknownOpcode)
	}
	if len(operands) != op.OperandLen() {
		return nil, fmt.Errorf("bytecode: encode %s: %w: want %d bytes, got %d",
			op, ErrBadOperands, op.OperandLen(), len(operands))
	}
	buf := make([]byte, 0, 1+len(operands))
	buf = append(buf, byte(op))
	buf = append(buf, operands...)
	return buf, nil
}

// Decode reads one instruction starting at offset and returns it together
// with the offset of the next instruction. Decode is the exact left
// inverse of Encode: it fails rather than misinterpret bytes when offset
// does not point at a valid tag or the operands are cut short.
func Decode(code []byte, offset int) (Instruction, int, error) {
	if offset < 0 || offset >= len(code) {
		return Instruction{}, 0, fmt.Errorf("bytecode: decode at %d: %w: offset outside code region", offset, ErrTruncated)
	}
	op := Opcode(code[offset])
	if !op.Valid() {
		return Instruction{}, 0, fmt.Errorf("bytecode: decode at %d: %w: 0x%02X", offset, ErrUnknownOpcode, byte(op))
	}
	next := offset + op.InstructionLen()
	if next > len(code) {
		return Instruction{}, 0, fmt.Errorf("bytecode: decode %s at %d: %w: need %d operand bytes, have %d",
			op, offset, ErrTruncated, op.OperandLen(), len(code)-offset-1)
	}
	return Instruction{Op: op, Operands: code[offset+1 : next]}, next, nil
}

// Typed operand accessors. Each assumes the instruction was produced by
// Decode (or Encode) for the matching opcode, so the operand slice has the
// declared length.

// ImmI32 returns the immediate of a PUSH_I32.
func (in Instruction) ImmI32() int32 {
	return int32(binary.LittleEndian.Uint32(in.Operands))
}

// ImmI64 returns the immediate of a PUSH_I64.
func (in Instruction) ImmI64() int64 {
	return int64(binary.LittleEndian.Uint64(in.Operands))
}

// ImmBool returns the immediate of a PUSH_BOOL. Any non-zero byte is true.
func (in Instruction) ImmBool() bool {
	return in.Operands[0] != 0
}

// Slot returns the slot index of a LOAD_PARAM, LOAD_LOCAL, or STORE_LOCAL.
func (in Instruction) Slot() uint8 {
	return in.Operands[0]
}

// CallTarget returns the function-table index and argument count of a CALL.
func (in Instruction) CallTarget() (fn uint16, argc uint8) {
	return binary.LittleEndian.Uint16(in.Operands[0:2]), in.Operands[2]
}

// Operand construction helpers, used by the generator and by tests.

// I32Operands encodes a 32-bit immediate.
func I32Operands(v int32) []byte {
	return binary.LittleEndian.AppendUint32(nil, uint32(v))
}

// I64Operands encodes a 64-bit immediate.
func I64Operands(v int64) []byte {
	return binary.LittleEndian.AppendUint64(nil, uint64(v))
}

// BoolOperands encodes a boolean immediate as a single 0/1 byte.
func BoolOperands(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

// SlotOperands encodes a 1-byte slot index.
func SlotOperands(slot uint8) []byte {
	return []byte{slot}
}

// CallOperands encodes a 2-byte function-table index and a 1-byte
// argument count.
func CallOperands(fn uint16, argc uint8) []byte {
	buf := binary.LittleEndian.AppendUint16(nil, fn)
	return append(buf, argc)
}
