package bytecode

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

// sampleOperands returns representative operand byte sequences for an
// opcode, covering boundary values of each operand width.
func sampleOperands(op Opcode) [][]byte {
	switch op.OperandLen() {
	case 0:
		return [][]byte{{}}
	case 1:
		if op == OpPushBool {
			return [][]byte{BoolOperands(false), BoolOperands(true)}
		}
		return [][]byte{SlotOperands(0), SlotOperands(7), SlotOperands(255)}
	case 3:
		return [][]byte{
			CallOperands(0, 0),
			CallOperands(1, 2),
			CallOperands(0xFFFF, 255),
		}
	case 4:
		return [][]byte{
			I32Operands(0),
			I32Operands(1),
			I32Operands(-1),
			I32Operands(math.MaxInt32),
			I32Operands(math.MinInt32),
		}
	case 8:
		return [][]byte{
			I64Operands(0),
			I64Operands(-1),
			I64Operands(math.MaxInt64),
			I64Operands(math.MinInt64),
		}
	}
	return nil
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, op := range AllOpcodes() {
		for _, operands := range sampleOperands(op) {
			encoded, err := Encode(op, operands)
			if err != nil {
				t.Fatalf("Encode(%s, %v) failed: %v", op, operands, err)
			}
			if len(encoded) != 1+op.OperandLen() {
				t.Errorf("Encode(%s) length = %d, want %d", op, len(encoded), 1+op.OperandLen())
			}

			in, next, err := Decode(encoded, 0)
			if err != nil {
				t.Fatalf("Decode(Encode(%s, %v)) failed: %v", op, operands, err)
			}
			if in.Op != op {
				t.Errorf("round trip changed opcode: got %s, want %s", in.Op, op)
			}
			if !bytes.Equal(in.Operands, operands) {
				t.Errorf("round trip changed operands of %s: got %v, want %v", op, in.Operands, operands)
			}
			if next != len(encoded) {
				t.Errorf("Decode(%s) next = %d, want %d", op, next, len(encoded))
			}
		}
	}
}

func TestEncodeRejectsWrongOperandLength(t *testing.T) {
	if _, err := Encode(OpPushI32, []byte{1, 2}); !errors.Is(err, ErrBadOperands) {
		t.Errorf("short operands: got %v, want ErrBadOperands", err)
	}
	if _, err := Encode(OpAddI32, []byte{1}); !errors.Is(err, ErrBadOperands) {
		t.Errorf("extra operands: got %v, want ErrBadOperands", err)
	}
	if _, err := Encode(Opcode(0xEE), nil); !errors.Is(err, ErrUnknownOpcode) {
		t.Errorf("unknown opcode: got %v, want ErrUnknownOpcode", err)
	}
}

func TestDecodeRejectsUnknownTag(t *testing.T) {
	_, _, err := Decode([]byte{0xEE}, 0)
	if !errors.Is(err, ErrUnknownOpcode) {
		t.Errorf("got %v, want ErrUnknownOpcode", err)
	}
}

func TestDecodeRejectsTruncatedOperands(t *testing.T) {
	// PUSH_I64 declares 8 operand bytes; give it 3.
	code := []byte{byte(OpPushI64), 1, 2, 3}
	_, _, err := Decode(code, 0)
	if !errors.Is(err, ErrTruncated) {
		t.Errorf("got %v, want ErrTruncated", err)
	}
}

func TestDecodeRejectsOffsetsOutsideCode(t *testing.T) {
	code := []byte{byte(OpNop)}
	for _, offset := range []int{-1, 1, 100} {
		if _, _, err := Decode(code, offset); !errors.Is(err, ErrTruncated) {
			t.Errorf("offset %d: got %v, want ErrTruncated", offset, err)
		}
	}
}

func TestSequentialDecode(t *testing.T) {
	// A stream is only decodable by walking from a valid boundary; check
	// that walking a hand-assembled stream visits every instruction.
	var code []byte
	emit := func(op Opcode, operands []byte) {
		b, err := Encode(op, operands)
		if err != nil {
			t.Fatalf("Encode(%s): %v", op, err)
		}
		code = append(code, b...)
	}
	emit(OpPushI32, I32Operands(3))
	emit(OpPushI32, I32Operands(5))
	emit(OpAddI32, nil)
	emit(OpCall, CallOperands(2, 1))
	emit(OpRet, nil)

	want := []Opcode{OpPushI32, OpPushI32, OpAddI32, OpCall, OpRet}
	offset := 0
	for i, wantOp := range want {
		in, next, err := Decode(code, offset)
		if err != nil {
			t.Fatalf("instruction %d at offset %d: %v", i, offset, err)
		}
		if in.Op != wantOp {
			t.Errorf("instruction %d = %s, want %s", i, in.Op, wantOp)
		}
		offset = next
	}
	if offset != len(code) {
		t.Errorf("walk ended at %d, want %d", offset, len(code))
	}
}

func TestOperandAccessors(t *testing.T) {
	in, _, err := Decode(append([]byte{byte(OpPushI32)}, I32Operands(-20260)...), 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := in.ImmI32(); got != -20260 {
		t.Errorf("ImmI32() = %d, want -20260", got)
	}

	in, _, err = Decode(append([]byte{byte(OpPushI64)}, I64Operands(math.MinInt64)...), 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := in.ImmI64(); got != math.MinInt64 {
		t.Errorf("ImmI64() = %d, want MinInt64", got)
	}

	in, _, err = Decode(append([]byte{byte(OpCall)}, CallOperands(0x0102, 3)...), 0)
	if err != nil {
		t.Fatal(err)
	}
	fn, argc := in.CallTarget()
	if fn != 0x0102 || argc != 3 {
		t.Errorf("CallTarget() = (%d, %d), want (0x0102, 3)", fn, argc)
	}

	in, _, err = Decode([]byte{byte(OpLoadLocal), 9}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got := in.Slot(); got != 9 {
		t.Errorf("Slot() = %d, want 9", got)
	}
}

func TestLittleEndianOperandLayout(t *testing.T) {
	// The wire layout is fixed: low byte first.
	if got := I32Operands(0x01020304); !bytes.Equal(got, []byte{4, 3, 2, 1}) {
		t.Errorf("I32Operands layout = %v", got)
	}
	if got := CallOperands(0x0102, 7); !bytes.Equal(got, []byte{2, 1, 7}) {
		t.Errorf("CallOperands layout = %v", got)
	}
}
