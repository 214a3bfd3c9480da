package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of the whole program:
// a header, the function table, and each function's body with per
// instruction offsets, mnemonics, and decoded operands.
func (p *Program) Disassemble() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("; minivm program: %d functions, %d code bytes\n", len(p.Functions), len(p.Code)))
	sb.WriteString(fmt.Sprintf("; entry: [%d] %s\n\n", p.Entry, p.EntryFunction().Name))

	sb.WriteString("; Function table:\n")
	for i, f := range p.Functions {
		sb.WriteString(fmt.Sprintf(";   [%3d] %-20s params=%d locals=%d offset=0x%04X len=%d\n",
			i, f.Name, f.ParamCount, f.LocalCount, f.CodeOffset, f.CodeLen))
	}
	sb.WriteString("\n")

	for i, f := range p.Functions {
		sb.WriteString(fmt.Sprintf("; === [%d] %s ===\n", i, f.Name))
		sb.WriteString(p.disassembleBody(f))
		sb.WriteString("\n")
	}

	return sb.String()
}

// DisassembleFunction returns the listing for a single function body.
func (p *Program) DisassembleFunction(index uint16) (string, error) {
	f, err := p.Function(index)
	if err != nil {
		return "", err
	}
	return p.disassembleBody(f), nil
}

func (p *Program) disassembleBody(f FunctionEntry) string {
	var sb strings.Builder
	offset := int(f.CodeOffset)
	end := int(f.CodeOffset + f.CodeLen)

	for offset < end {
		in, next, err := Decode(p.Code, offset)
		if err != nil {
			sb.WriteString(fmt.Sprintf("%04X  <%v>\n", offset, err))
			break
		}
		sb.WriteString(fmt.Sprintf("%04X  %s\n", offset, p.formatInstruction(in)))
		offset = next
	}
	return sb.String()
}

// formatInstruction renders one decoded instruction with its operands.
func (p *Program) formatInstruction(in Instruction) string {
	switch in.Op {
	case OpPushI32:
		return fmt.Sprintf("PUSH_I32 %d", in.ImmI32())
	case OpPushI64:
		return fmt.Sprintf("PUSH_I64 %d", in.ImmI64())
	case OpPushBool:
		return fmt.Sprintf("PUSH_BOOL %t", in.ImmBool())
	case OpLoadParam, OpLoadLocal, OpStoreLocal:
		return fmt.Sprintf("%s %d", in.Op, in.Slot())
	case OpCall:
		fn, argc := in.CallTarget()
		name := ""
		if int(fn) < len(p.Functions) {
			name = " ; " + p.Functions[fn].Name
		}
		return fmt.Sprintf("CALL %d, %d%s", fn, argc, name)
	default:
		return in.Op.String()
	}
}
