// Package air defines the typed, SSA-numbered intermediate representation
// consumed by the bytecode backend. AIR arrives from the front end already
// resolved and type-checked: no undeclared names, no type mismatches, no
// duplicate declarations. The backend trusts those guarantees and never
// re-verifies them.
package air

import "fmt"

// Width is the storage width of an integer value.
type Width uint8

const (
	W32 Width = iota // 32-bit signed integer
	W64              // 64-bit signed integer
)

// String returns the type name for a width.
func (w Width) String() string {
	switch w {
	case W32:
		return "i32"
	case W64:
		return "i64"
	default:
		return fmt.Sprintf("Width(%d)", uint8(w))
	}
}

// BinOp identifies a binary arithmetic operation.
type BinOp uint8

const (
	Add BinOp = iota
	Sub
	Mul
	Div
	Rem
)

// String returns the operator name.
func (op BinOp) String() string {
	switch op {
	case Add:
		return "add"
	case Sub:
		return "sub"
	case Mul:
		return "mul"
	case Div:
		return "div"
	case Rem:
		return "rem"
	default:
		return fmt.Sprintf("BinOp(%d)", uint8(op))
	}
}

// Kind discriminates AIR instructions. The set is closed: the front end
// emits nothing outside it.
type Kind uint8

const (
	KindIntConst     Kind = iota // push integer constant (Width, Int)
	KindBoolConst                // push boolean constant (Bool)
	KindBin                      // binary arithmetic (Op, Width); operands are the two prior results
	KindNeg                      // unary negate (Width)
	KindParamRef                 // push parameter by position (Index)
	KindDeclareLocal             // allocate a local slot (Name); emits no code by itself
	KindLoadLocal                // push a local by name (Name)
	KindStoreLocal               // pop into a local by name (Name)
	KindCall                     // call by function name (Name, ArgCount); arguments are the ArgCount prior results
	KindRet                      // return the prior result
	KindRetVoid                  // return nothing
)

// Inst is one AIR instruction. The front end flattens and orders each
// function body so that every instruction's operands are exactly the
// results of earlier instructions, in stack discipline. Only the fields
// relevant to Kind are meaningful.
type Inst struct {
	Kind     Kind
	Width    Width  // IntConst, Bin, Neg
	Op       BinOp  // Bin
	Int      int64  // IntConst
	Bool     bool   // BoolConst
	Name     string // DeclareLocal, LoadLocal, StoreLocal, Call (callee)
	Index    int    // ParamRef
	ArgCount int    // Call
}

// Param is a declared function parameter.
type Param struct {
	Name  string
	Width Width
}

// Function is one AIR function: a name, ordered parameters, a return
// width (meaningless when Void is set), and the flat ordered body.
type Function struct {
	Name   string
	Params []Param
	Return Width
	Void   bool
	Body   []Inst
}

// Program is an ordered list of functions. Declaration order is
// significant: it determines function-table indices downstream.
type Program struct {
	Functions []*Function
}

// Constructor helpers. These keep test and front-end code readable; they
// allocate nothing beyond the Inst value itself.

func IntConst(w Width, v int64) Inst { return Inst{Kind: KindIntConst, Width: w, Int: v} }
func BoolConst(v bool) Inst          { return Inst{Kind: KindBoolConst, Bool: v} }
func Bin(op BinOp, w Width) Inst     { return Inst{Kind: KindBin, Op: op, Width: w} }
func Neg(w Width) Inst               { return Inst{Kind: KindNeg, Width: w} }
func ParamRef(i int) Inst            { return Inst{Kind: KindParamRef, Index: i} }
func DeclareLocal(name string) Inst  { return Inst{Kind: KindDeclareLocal, Name: name} }
func LoadLocal(name string) Inst     { return Inst{Kind: KindLoadLocal, Name: name} }
func StoreLocal(name string) Inst    { return Inst{Kind: KindStoreLocal, Name: name} }
func Call(name string, argc int) Inst {
	return Inst{Kind: KindCall, Name: name, ArgCount: argc}
}
func Ret() Inst     { return Inst{Kind: KindRet} }
func RetVoid() Inst { return Inst{Kind: KindRetVoid} }

// String renders an instruction in a compact mnemonic form, mainly for
// test failure messages.
func (in Inst) String() string {
	switch in.Kind {
	case KindIntConst:
		return fmt.Sprintf("const_%s %d", in.Width, in.Int)
	case KindBoolConst:
		return fmt.Sprintf("const_bool %t", in.Bool)
	case KindBin:
		return fmt.Sprintf("%s_%s", in.Op, in.Width)
	case KindNeg:
		return fmt.Sprintf("neg_%s", in.Width)
	case KindParamRef:
		return fmt.Sprintf("param %d", in.Index)
	case KindDeclareLocal:
		return fmt.Sprintf("declare %s", in.Name)
	case KindLoadLocal:
		return fmt.Sprintf("load %s", in.Name)
	case KindStoreLocal:
		return fmt.Sprintf("store %s", in.Name)
	case KindCall:
		return fmt.Sprintf("call %s/%d", in.Name, in.ArgCount)
	case KindRet:
		return "ret"
	case KindRetVoid:
		return "ret_void"
	default:
		return fmt.Sprintf("Inst(kind=%d)", in.Kind)
	}
}
