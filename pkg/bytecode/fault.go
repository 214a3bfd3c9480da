package bytecode

import (
	"errors"
	"fmt"
)

// FaultCategory classifies fatal VM errors so a caller can tell a
// malformed program apart from bad runtime data.
type FaultCategory int

const (
	// FaultStructural covers stack underflow/overflow, unknown or
	// truncated instructions, out-of-range slot and table indices,
	// call-frame underflow, argument-count mismatches, and call-depth
	// exhaustion.
	FaultStructural FaultCategory = iota

	// FaultArithmetic covers division and remainder by zero.
	FaultArithmetic
)

// String returns the category name.
func (c FaultCategory) String() string {
	switch c {
	case FaultStructural:
		return "structural"
	case FaultArithmetic:
		return "arithmetic"
	default:
		return fmt.Sprintf("FaultCategory(%d)", int(c))
	}
}

// Fault is a fatal, non-recoverable error terminating a VM run. It records
// the category, the code offset of the faulting instruction, and a
// description. A fault is never coerced into a guest-visible result.
type Fault struct {
	Category FaultCategory
	Offset   int
	Message  string
}

// Error implements the error interface.
func (f *Fault) Error() string {
	return fmt.Sprintf("%s fault at 0x%04X: %s", f.Category, f.Offset, f.Message)
}

// AsFault unwraps err to a *Fault if one is in its chain.
func AsFault(err error) (*Fault, bool) {
	var f *Fault
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

func structuralFault(offset int, format string, args ...any) *Fault {
	return &Fault{Category: FaultStructural, Offset: offset, Message: fmt.Sprintf(format, args...)}
}

func arithmeticFault(offset int, format string, args ...any) *Fault {
	return &Fault{Category: FaultArithmetic, Offset: offset, Message: fmt.Sprintf(format, args...)}
}
