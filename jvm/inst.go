package jvm

import (
	"fmt"
	"strings"
)

// Op tags the instruction variants the interpreter models. The set is
// intentionally partial; decoding rejects anything outside it so the
// interpreter only ever sees ops it has semantics for.
type Op uint8

const (
	// ========================================================================
	// Stack and locals
	// ========================================================================

	OpPush  Op = iota // push Inst.Value
	OpPop             // discard top of stack
	OpDup             // duplicate top of stack
	OpLoad            // push local slot Inst.Index
	OpStore           // pop into local slot Inst.Index
	OpIncr            // add Inst.Amount to local slot Inst.Index

	// ========================================================================
	// Arithmetic
	// ========================================================================

	OpBinary // pop two ints, apply Inst.BinOp, push result

	// ========================================================================
	// Control flow
	// ========================================================================

	OpIfz    // pop one, compare against zero with Inst.Cond, jump to Inst.Target
	OpIf     // pop two, compare with Inst.Cond, jump to Inst.Target
	OpGoto   // jump to Inst.Target
	OpReturn // pop return value if Inst.Type != TypeVoid, pop frame
	OpThrow  // pop exception, terminate the run

	// ========================================================================
	// Objects and calls
	// ========================================================================

	OpGet    // push static field value (assertion-status reads)
	OpNew    // allocate Inst.Class
	OpInvoke // call Inst.Method with Inst.Invoke dispatch

	// ========================================================================
	// Arrays
	// ========================================================================

	OpNewArray    // pop length, push fresh array of Inst.Type
	OpArrayLoad   // pop index and array, push element
	OpArrayStore  // pop value, index and array, write element
	OpArrayLength // pop array, push its length

	// ========================================================================
	// Conversions
	// ========================================================================

	OpCast // pop, convert between int and char, push
)

// opNames is indexed by Op and doubles as the decode table for the "opr"
// field of suite files.
var opNames = [...]string{
	OpPush:        "push",
	OpPop:         "pop",
	OpDup:         "dup",
	OpLoad:        "load",
	OpStore:       "store",
	OpIncr:        "incr",
	OpBinary:      "binary",
	OpIfz:         "ifz",
	OpIf:          "if",
	OpGoto:        "goto",
	OpReturn:      "return",
	OpThrow:       "throw",
	OpGet:         "get",
	OpNew:         "new",
	OpInvoke:      "invoke",
	OpNewArray:    "newarray",
	OpArrayLoad:   "array_load",
	OpArrayStore:  "array_store",
	OpArrayLength: "arraylength",
	OpCast:        "cast",
}

// String returns the suite-file name of the op.
func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}

// parseOp maps the "opr" field to an Op.
func parseOp(name string) (Op, bool) {
	for op, n := range opNames {
		if n == name {
			return Op(op), true
		}
	}
	return 0, false
}

// Cmp is a branch comparator. Unknown comparator text is rejected at decode
// time, so evaluation never meets one.
type Cmp uint8

const (
	CmpEq Cmp = iota
	CmpNe
	CmpGt
	CmpGe
	CmpLt
	CmpLe
	CmpIs // reference identity
)

var cmpNames = [...]string{"eq", "ne", "gt", "ge", "lt", "le", "is"}

// String returns the comparator text.
func (c Cmp) String() string {
	if int(c) < len(cmpNames) {
		return cmpNames[c]
	}
	return fmt.Sprintf("cmp(%d)", uint8(c))
}

// ParseCmp decodes comparator text. "z" and "nz" are accepted as aliases of
// eq and ne, which older suite encodings emit for zero tests.
func ParseCmp(s string) (Cmp, error) {
	switch s {
	case "eq", "z":
		return CmpEq, nil
	case "ne", "nz":
		return CmpNe, nil
	case "gt":
		return CmpGt, nil
	case "ge":
		return CmpGe, nil
	case "lt":
		return CmpLt, nil
	case "le":
		return CmpLe, nil
	case "is":
		return CmpIs, nil
	}
	return 0, fmt.Errorf("unknown comparator %q", s)
}

// BinOp is an integer arithmetic operator.
type BinOp uint8

const (
	BinAdd BinOp = iota
	BinSub
	BinMul
	BinDiv
)

var binOpNames = [...]string{"add", "sub", "mul", "div"}

// String returns the operator text.
func (b BinOp) String() string {
	if int(b) < len(binOpNames) {
		return binOpNames[b]
	}
	return fmt.Sprintf("binop(%d)", uint8(b))
}

// ParseBinOp decodes the "operant" field of a binary instruction.
func ParseBinOp(s string) (BinOp, error) {
	switch s {
	case "add":
		return BinAdd, nil
	case "sub":
		return BinSub, nil
	case "mul":
		return BinMul, nil
	case "div":
		return BinDiv, nil
	}
	return 0, fmt.Errorf("unknown binary operator %q", s)
}

// InvokeKind distinguishes the dispatch of an invoke instruction.
type InvokeKind uint8

const (
	InvokeVirtual InvokeKind = iota
	InvokeSpecial
	InvokeStatic
)

var invokeNames = [...]string{"virtual", "special", "static"}

// String returns the "access" field text.
func (k InvokeKind) String() string {
	if int(k) < len(invokeNames) {
		return invokeNames[k]
	}
	return fmt.Sprintf("invoke(%d)", uint8(k))
}

// ParseInvokeKind decodes the "access" field of an invoke instruction.
func ParseInvokeKind(s string) (InvokeKind, error) {
	switch s {
	case "virtual":
		return InvokeVirtual, nil
	case "special":
		return InvokeSpecial, nil
	case "static":
		return InvokeStatic, nil
	}
	return 0, fmt.Errorf("unknown invoke access %q", s)
}

// MethodRef names the callee of an invoke instruction. Args holds the
// declared parameter descriptors as raw text, since callees outside the
// modeled type subset (constructors of arbitrary exception classes) still
// need their arity known for stack bookkeeping. Returns is the return
// descriptor, empty for void.
type MethodRef struct {
	ClassName string
	Name      string
	Args      []string
	Returns   string
}

// String renders "class.name:descriptor" in slash form.
func (r MethodRef) String() string {
	return r.ClassName + "." + r.Name + ":" + r.Descriptor()
}

// Descriptor reassembles the JVM descriptor of the callee.
func (r MethodRef) Descriptor() string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, a := range r.Args {
		sb.WriteString(a)
	}
	sb.WriteByte(')')
	if r.Returns == "" {
		sb.WriteByte('V')
	} else {
		sb.WriteString(r.Returns)
	}
	return sb.String()
}

// Arity returns the number of declared parameters.
func (r MethodRef) Arity() int { return len(r.Args) }

// ReturnsValue reports whether the callee leaves a value on the caller's
// stack.
func (r MethodRef) ReturnsValue() bool { return r.Returns != "" }

// Inst is one decoded instruction: a closed tagged variant dispatched by a
// single exhaustive switch in the interpreter. Only the fields relevant to
// the Op are populated.
type Inst struct {
	Op     Op
	Type   Type      // load/store/binary/return/newarray/array_load/array_store element or cast target
	Index  int       // load/store/incr local slot
	Amount int32     // incr delta
	Value  Value     // push operand
	Cond   Cmp       // ifz/if comparator
	Target int       // ifz/if/goto jump offset
	BinOp  BinOp     // binary operator
	Invoke InvokeKind
	Method MethodRef // invoke callee
	Class  string    // new: class being allocated, slash form
}

// String renders a compact disassembly form for traces.
func (in Inst) String() string {
	switch in.Op {
	case OpPush:
		return fmt.Sprintf("push %s", in.Value)
	case OpLoad:
		return fmt.Sprintf("load %d", in.Index)
	case OpStore:
		return fmt.Sprintf("store %d", in.Index)
	case OpIncr:
		return fmt.Sprintf("incr %d %+d", in.Index, in.Amount)
	case OpBinary:
		return fmt.Sprintf("binary %s", in.BinOp)
	case OpIfz:
		return fmt.Sprintf("ifz %s ->%d", in.Cond, in.Target)
	case OpIf:
		return fmt.Sprintf("if %s ->%d", in.Cond, in.Target)
	case OpGoto:
		return fmt.Sprintf("goto ->%d", in.Target)
	case OpReturn:
		if in.Type == TypeVoid {
			return "return"
		}
		return fmt.Sprintf("return %s", in.Type)
	case OpNew:
		return fmt.Sprintf("new %s", in.Class)
	case OpInvoke:
		return fmt.Sprintf("invoke %s %s", in.Invoke, in.Method)
	case OpNewArray:
		return fmt.Sprintf("newarray %s", in.Type)
	case OpCast:
		return fmt.Sprintf("cast %s", in.Type)
	}
	return in.Op.String()
}

// Method is a decoded method: its identity plus the stable instruction
// sequence whose indices are the valid program-counter offsets.
type Method struct {
	ID   MethodID
	Code []Inst
}
