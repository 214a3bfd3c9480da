package bytecode

import (
	"strings"
	"testing"
)

func TestAllOpcodesHaveMetadata(t *testing.T) {
	for _, op := range AllOpcodes() {
		info := GetOpcodeInfo(op)
		if info.Name == "" || strings.HasPrefix(info.Name, "UNKNOWN") {
			t.Errorf("Opcode 0x%02X has no metadata", op)
		}
	}
}

func TestOpcodeString(t *testing.T) {
	tests := []struct {
		op   Opcode
		want string
	}{
		{OpNop, "NOP"},
		{OpPop, "POP"},
		{OpHalt, "HALT"},
		{OpPushI32, "PUSH_I32"},
		{OpPushI64, "PUSH_I64"},
		{OpPushBool, "PUSH_BOOL"},
		{OpLoadParam, "LOAD_PARAM"},
		{OpStoreLocal, "STORE_LOCAL"},
		{OpAddI32, "ADD_I32"},
		{OpDivI64, "DIV_I64"},
		{OpNegI32, "NEG_I32"},
		{OpCall, "CALL"},
		{OpRet, "RET"},
		{OpRetVoid, "RET_VOID"},
	}

	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("Opcode(0x%02X).String() = %q, want %q", tt.op, got, tt.want)
		}
	}
}

func TestUnknownOpcodeString(t *testing.T) {
	op := Opcode(0xEE) // Not defined
	if got := op.String(); !strings.HasPrefix(got, "UNKNOWN") {
		t.Errorf("Unknown opcode should return UNKNOWN, got %q", got)
	}
	if op.Valid() {
		t.Errorf("Opcode 0xEE should not be valid")
	}
}

func TestOpcodeOperandLen(t *testing.T) {
	tests := []struct {
		op   Opcode
		want int
	}{
		{OpPushI32, 4},
		{OpPushI64, 8},
		{OpPushBool, 1},
		{OpLoadParam, 1},
		{OpLoadLocal, 1},
		{OpStoreLocal, 1},
		{OpCall, 3},
		{OpAddI32, 0},
		{OpRet, 0},
	}

	for _, tt := range tests {
		if got := tt.op.OperandLen(); got != tt.want {
			t.Errorf("%s.OperandLen() = %d, want %d", tt.op, got, tt.want)
		}
		if got := tt.op.InstructionLen(); got != tt.want+1 {
			t.Errorf("%s.InstructionLen() = %d, want %d", tt.op, got, tt.want+1)
		}
	}
}

func TestStackEffect(t *testing.T) {
	tests := []struct {
		op   Opcode
		argc int
		want int
	}{
		{OpPushI32, 0, 1},
		{OpPushI64, 0, 1},
		{OpPushBool, 0, 1},
		{OpLoadParam, 0, 1},
		{OpLoadLocal, 0, 1},
		{OpStoreLocal, 0, -1},
		{OpAddI32, 0, -1},
		{OpSubI64, 0, -1},
		{OpNegI32, 0, 0},
		{OpNegI64, 0, 0},
		{OpPop, 0, -1},
		{OpNop, 0, 0},
		{OpCall, 0, 1},
		{OpCall, 1, 0},
		{OpCall, 2, -1},
		{OpCall, 5, -4},
	}

	for _, tt := range tests {
		if got := tt.op.StackEffect(tt.argc); got != tt.want {
			t.Errorf("%s.StackEffect(%d) = %d, want %d", tt.op, tt.argc, got, tt.want)
		}
	}
}

func TestOpcodePredicates(t *testing.T) {
	if !OpRet.IsReturn() || !OpRetVoid.IsReturn() {
		t.Error("RET and RET_VOID should report IsReturn")
	}
	if OpCall.IsReturn() || OpHalt.IsReturn() {
		t.Error("CALL and HALT should not report IsReturn")
	}
	for _, op := range []Opcode{OpAddI32, OpRemI32, OpNegI32, OpAddI64, OpRemI64, OpNegI64} {
		if !op.IsArithmetic() {
			t.Errorf("%s should report IsArithmetic", op)
		}
	}
	for _, op := range []Opcode{OpPushI32, OpCall, OpPop, OpLoadLocal} {
		if op.IsArithmetic() {
			t.Errorf("%s should not report IsArithmetic", op)
		}
	}
}

func TestOpcodeRangesAreDisjoint(t *testing.T) {
	// The constant definitions must not assign the same tag twice; the
	// table would silently keep only one entry.
	if OpcodeCount() != 24 {
		t.Errorf("OpcodeCount() = %d, want 24", OpcodeCount())
	}
}
