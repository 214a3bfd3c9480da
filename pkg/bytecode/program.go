package bytecode

import "fmt"

// FunctionEntry describes one function in a program's function table.
// Param and local counts together fix the function's frame size; the VM
// never resizes a frame after the call that created it.
type FunctionEntry struct {
	Name       string
	ParamCount uint8
	LocalCount uint8
	CodeOffset uint32 // Start of the body within Program.Code
	CodeLen    uint32 // Length of the body in bytes
}

// FrameSize returns the number of contiguous operand-stack slots the
// function's parameters and locals occupy.
func (f FunctionEntry) FrameSize() int {
	return int(f.ParamCount) + int(f.LocalCount)
}

// Program is the finished artifact handed from the generator to the VM:
// an ordered function table, one concatenated code region, and the index
// of the entry function. A Program is never mutated after generation, so
// it may be shared read-only across VM instances.
type Program struct {
	Functions []FunctionEntry
	Code      []byte
	Entry     uint16
}

// EntryFunction returns the table entry for the program's entry point.
func (p *Program) EntryFunction() FunctionEntry {
	return p.Functions[p.Entry]
}

// Function returns the table entry at the given index, or an error if the
// index is out of range.
func (p *Program) Function(index uint16) (FunctionEntry, error) {
	if int(index) >= len(p.Functions) {
		return FunctionEntry{}, fmt.Errorf("bytecode: no function at table index %d (table has %d entries)",
			index, len(p.Functions))
	}
	return p.Functions[index], nil
}

// FunctionNamed returns the table index of the named function.
func (p *Program) FunctionNamed(name string) (uint16, bool) {
	for i, f := range p.Functions {
		if f.Name == name {
			return uint16(i), true
		}
	}
	return 0, false
}

// CodeLen returns the size of the concatenated code region in bytes.
func (p *Program) CodeLen() int {
	return len(p.Code)
}
