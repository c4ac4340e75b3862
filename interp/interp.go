package interp

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tliron/commonlog"

	"github.com/Anygaardranloev/jpamb-group26/jvm"
)

var log = commonlog.GetLogger("jpamb.interp")

// DefaultMaxSteps is the step budget of a run when none is configured.
const DefaultMaxSteps = 1000

// Feedback receives execution events for coverage-guided callers. All
// methods are called synchronously from Run; implementations need not be
// concurrency safe.
type Feedback interface {
	// Hit is called once per executed instruction.
	Hit(pc jvm.PC)
	// LogIntCmp is called with the operands of integer equality tests.
	LogIntCmp(pc jvm.PC, a, b int32)
	// LogStrCmp is called with the operands of string equality tests.
	// fold marks case-insensitive comparisons.
	LogStrCmp(pc jvm.PC, a, b string, fold bool)
}

// Options configure an Interpreter.
type Options struct {
	// MaxSteps is the per-run step budget. Zero selects DefaultMaxSteps.
	MaxSteps int
	// Feedback, when non-nil, observes every step and comparison.
	Feedback Feedback
	// Trace logs each instruction as it executes, at debug level.
	Trace bool
}

// Interpreter executes suite methods one instruction at a time under a step
// budget. It is not safe for concurrent use; every goroutine should own one.
type Interpreter struct {
	src      jvm.Source
	maxSteps int
	feedback Feedback
	trace    bool
}

// New creates an interpreter reading methods from src.
func New(src jvm.Source, opts Options) *Interpreter {
	maxSteps := opts.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	return &Interpreter{
		src:      src,
		maxSteps: maxSteps,
		feedback: opts.Feedback,
		trace:    opts.Trace,
	}
}

// Result describes one finished run.
type Result struct {
	// Outcome is how the run ended.
	Outcome Outcome
	// Returned is the value the entry method returned, when HasReturn is
	// set. Only OutcomeOK runs return values.
	Returned  jvm.Value
	HasReturn bool
	// Steps is the number of instructions executed.
	Steps int
}

// Run executes the method named by id on the given arguments until it
// terminates or the step budget runs out. The arguments are checked against
// the method descriptor and copied, so a run never mutates caller-owned
// values. Everything the benchmark semantics classify comes back as an
// Outcome; bugs of the interpreter itself escape as Fault panics.
func (in *Interpreter) Run(id jvm.MethodID, args []jvm.Value) (Result, error) {
	method, err := in.src.Lookup(id)
	if err != nil {
		return Result{}, err
	}
	params := id.Params()
	if len(args) != len(params) {
		return Result{}, fmt.Errorf("run %s: got %d arguments, want %d", id, len(args), len(params))
	}
	for i, p := range params {
		if err := checkArg(p, args[i]); err != nil {
			return Result{}, fmt.Errorf("run %s: argument %d: %w", id, i, err)
		}
	}

	st := newState(method, args)
	for step := 0; step < in.maxSteps; step++ {
		outcome, done := in.step(st)
		if done {
			return Result{
				Outcome:   outcome,
				Returned:  st.returned,
				HasReturn: st.hasReturn,
				Steps:     step + 1,
			}, nil
		}
	}
	return Result{Outcome: OutcomeExhausted, Steps: in.maxSteps}, nil
}

func checkArg(t jvm.Type, v jvm.Value) error {
	ok := false
	switch t {
	case jvm.TypeInt:
		ok = v.IsInt()
	case jvm.TypeBool:
		ok = v.IsBool()
	case jvm.TypeChar:
		ok = v.IsChar()
	case jvm.TypeString:
		ok = v.IsStr() || v.IsNull()
	case jvm.TypeIntArray:
		ok = v.IsNull() || (v.IsArray() && v.Array().Elem == jvm.KindInt)
	case jvm.TypeCharArray:
		ok = v.IsNull() || (v.IsArray() && v.Array().Elem == jvm.KindChar)
	}
	if !ok {
		return fmt.Errorf("%s does not fit parameter type %s", v, t)
	}
	return nil
}

// ---------------------------------------------------------------------------
// The step function
// ---------------------------------------------------------------------------

// step executes one instruction of the topmost frame. It returns the final
// outcome and true when the run has terminated.
func (in *Interpreter) step(st *State) (Outcome, bool) {
	f := st.frame()
	pc := f.loc()
	if f.pc < 0 || f.pc >= len(f.method.Code) {
		in.fault(pc, "program counter outside the method body")
	}
	inst := &f.method.Code[f.pc]
	if in.feedback != nil {
		in.feedback.Hit(pc)
	}
	if in.trace {
		log.Debugf("%s: %s", pc, inst)
	}

	switch inst.Op {
	case jvm.OpPush:
		v := inst.Value
		if v.IsStr() {
			// literals share one heap object per text
			v = jvm.Ref(st.intern(v.Str()))
		}
		f.push(v)
		f.pc++

	case jvm.OpPop:
		f.pop()
		f.pc++

	case jvm.OpDup:
		f.push(f.top())
		f.pc++

	case jvm.OpLoad:
		f.push(f.local(inst.Index))
		f.pc++

	case jvm.OpStore:
		f.locals[inst.Index] = f.pop()
		f.pc++

	case jvm.OpIncr:
		f.locals[inst.Index] = jvm.Int(f.local(inst.Index).Int() + inst.Amount)
		f.pc++

	case jvm.OpBinary:
		b := in.toInt(pc, f.pop())
		a := in.toInt(pc, f.pop())
		switch inst.BinOp {
		case jvm.BinAdd:
			f.push(jvm.Int(a + b))
		case jvm.BinSub:
			f.push(jvm.Int(a - b))
		case jvm.BinMul:
			f.push(jvm.Int(a * b))
		case jvm.BinDiv:
			if b == 0 {
				return OutcomeDivideByZero, true
			}
			f.push(jvm.Int(a / b))
		}
		f.pc++

	case jvm.OpIfz:
		if in.comparez(pc, inst.Cond, f.pop()) {
			f.pc = inst.Target
		} else {
			f.pc++
		}

	case jvm.OpIf:
		b := f.pop()
		a := f.pop()
		var taken bool
		if inst.Cond == jvm.CmpIs {
			taken = a.Identical(b)
		} else {
			x := in.toInt(pc, a)
			y := in.toInt(pc, b)
			if in.feedback != nil && (inst.Cond == jvm.CmpEq || inst.Cond == jvm.CmpNe) {
				in.feedback.LogIntCmp(pc, x, y)
			}
			taken = in.compareInt(pc, inst.Cond, x, y)
		}
		if taken {
			f.pc = inst.Target
		} else {
			f.pc++
		}

	case jvm.OpGoto:
		f.pc = inst.Target

	case jvm.OpReturn:
		var ret jvm.Value
		hasRet := inst.Type != jvm.TypeVoid
		if hasRet {
			ret = f.pop()
		}
		st.popFrame()
		if st.depth() == 0 {
			st.returned, st.hasReturn = ret, hasRet
			return OutcomeOK, true
		}
		caller := st.frame()
		if hasRet {
			caller.push(ret)
		}
		caller.pc++

	case jvm.OpThrow:
		if f.pop().IsNull() {
			return OutcomeNullPointer, true
		}
		return OutcomeAssertionError, true

	case jvm.OpGet:
		// the only static reads in the suites are assertion-status flags,
		// and assertions are always enabled
		f.push(jvm.Int(0))
		f.pc++

	case jvm.OpNew:
		if inst.Class == "java/lang/String" {
			f.push(jvm.Ref(st.alloc("")))
		} else {
			// exception objects never outlive the throw that follows
			f.push(jvm.Int(0))
		}
		f.pc++

	case jvm.OpInvoke:
		switch inst.Invoke {
		case jvm.InvokeVirtual:
			return in.invokeVirtual(st, f, pc, inst.Method)
		case jvm.InvokeSpecial:
			return in.invokeSpecial(st, f, pc, inst.Method)
		default:
			in.invokeStatic(st, f, pc, inst.Method)
		}

	case jvm.OpNewArray:
		n := in.toInt(pc, f.pop())
		if n < 0 {
			return OutcomeOutOfBounds, true
		}
		elem, zero := jvm.KindInt, jvm.Int(0)
		if inst.Type == jvm.TypeChar {
			elem, zero = jvm.KindChar, jvm.Char(0)
		}
		elems := make([]jvm.Value, n)
		for i := range elems {
			elems[i] = zero
		}
		f.push(jvm.ArrayOf(elem, elems))
		f.pc++

	case jvm.OpArrayLoad:
		idx := in.toInt(pc, f.pop())
		av := f.pop()
		if av.IsNull() {
			return OutcomeNullPointer, true
		}
		arr := av.Array()
		if idx < 0 || int(idx) >= len(arr.Elems) {
			return OutcomeOutOfBounds, true
		}
		f.push(arr.Elems[idx])
		f.pc++

	case jvm.OpArrayStore:
		v := f.pop()
		idx := in.toInt(pc, f.pop())
		av := f.pop()
		if av.IsNull() {
			return OutcomeNullPointer, true
		}
		arr := av.Array()
		if idx < 0 || int(idx) >= len(arr.Elems) {
			return OutcomeOutOfBounds, true
		}
		if arr.Elem == jvm.KindChar {
			arr.Elems[idx] = jvm.Char(rune(in.toInt(pc, v)))
		} else {
			arr.Elems[idx] = jvm.Int(in.toInt(pc, v))
		}
		f.pc++

	case jvm.OpArrayLength:
		av := f.pop()
		if av.IsNull() {
			return OutcomeNullPointer, true
		}
		f.push(jvm.Int(int32(len(av.Array().Elems))))
		f.pc++

	case jvm.OpCast:
		v := in.toInt(pc, f.pop())
		if inst.Type == jvm.TypeChar {
			// i2c truncates to an unsigned 16-bit code unit
			f.push(jvm.Char(rune(uint16(v))))
		} else {
			f.push(jvm.Int(v))
		}
		f.pc++

	default:
		in.fault(pc, "no semantics for %s", inst.Op)
	}
	return 0, false
}

// ---------------------------------------------------------------------------
// Calls
// ---------------------------------------------------------------------------

func (in *Interpreter) invokeVirtual(st *State, f *Frame, pc jvm.PC, ref jvm.MethodRef) (Outcome, bool) {
	if ref.ClassName != "java/lang/String" {
		in.fault(pc, "invokevirtual on unmodeled class %s", ref.ClassName)
	}
	switch ref.Name {
	case "length":
		s, null := in.asString(st, pc, f.pop())
		if null {
			return OutcomeNullPointer, true
		}
		f.push(jvm.Int(int32(utf8.RuneCountInString(s))))

	case "concat":
		arg := f.pop()
		recv := f.pop()
		s, nullRecv := in.asString(st, pc, recv)
		t, nullArg := in.asString(st, pc, arg)
		if nullRecv || nullArg {
			return OutcomeNullPointer, true
		}
		// concatenation constructs a new object every time
		f.push(jvm.Ref(st.alloc(s + t)))

	case "equals", "equalsIgnoreCase":
		fold := ref.Name == "equalsIgnoreCase"
		arg := f.pop()
		recv := f.pop()
		s, null := in.asString(st, pc, recv)
		if null {
			return OutcomeNullPointer, true
		}
		t, argNull := in.asString(st, pc, arg)
		if argNull {
			f.push(jvm.Bool(false))
			break
		}
		if in.feedback != nil {
			in.feedback.LogStrCmp(pc, s, t, fold)
		}
		if fold {
			f.push(jvm.Bool(equalFold(s, t)))
		} else {
			f.push(jvm.Bool(s == t))
		}

	case "charAt":
		idx := in.toInt(pc, f.pop())
		s, null := in.asString(st, pc, f.pop())
		if null {
			return OutcomeOutOfBounds, true
		}
		runes := []rune(s)
		if len(runes) == 0 {
			return OutcomeAssertionError, true
		}
		if idx < 0 || int(idx) >= len(runes) {
			return OutcomeOutOfBounds, true
		}
		f.push(jvm.Char(runes[idx]))

	case "substring":
		j := in.toInt(pc, f.pop())
		i := in.toInt(pc, f.pop())
		s, null := in.asString(st, pc, f.pop())
		if null {
			return OutcomeOutOfBounds, true
		}
		runes := []rune(s)
		if i < 0 || j < i || int(j) > len(runes) {
			return OutcomeOutOfBounds, true
		}
		f.push(jvm.Ref(st.alloc(string(runes[i:j]))))

	default:
		in.fault(pc, "unmodeled String method %s", ref.Name)
	}
	f.pc++
	return 0, false
}

func (in *Interpreter) invokeSpecial(st *State, f *Frame, pc jvm.PC, ref jvm.MethodRef) (Outcome, bool) {
	if ref.ClassName == "java/lang/String" && ref.Name == "<init>" {
		switch ref.Descriptor() {
		case "()V":
			f.pop()
		case "(Ljava/lang/String;)V":
			arg := f.pop()
			recv := f.pop()
			s, null := in.asString(st, pc, arg)
			if null {
				return OutcomeNullPointer, true
			}
			st.heap[in.refID(pc, recv)] = s
		case "([C)V":
			arg := f.pop()
			recv := f.pop()
			if arg.IsNull() {
				return OutcomeNullPointer, true
			}
			var sb strings.Builder
			for _, e := range arg.Array().Elems {
				sb.WriteRune(e.Char())
			}
			st.heap[in.refID(pc, recv)] = sb.String()
		default:
			in.fault(pc, "unmodeled String constructor %s", ref.Descriptor())
		}
	} else {
		// Exception constructors and the like: the object is a placeholder,
		// so the call just consumes its operands.
		f.popN(ref.Arity() + 1)
	}
	f.pc++
	return 0, false
}

func (in *Interpreter) invokeStatic(st *State, f *Frame, pc jvm.PC, ref jvm.MethodRef) {
	callee := jvm.MethodID{ClassName: ref.ClassName, Name: ref.Name, Descriptor: ref.Descriptor()}
	method, err := in.src.Lookup(callee)
	if err != nil {
		in.fault(pc, "invokestatic %s: %s", callee, err)
	}
	args := f.popN(ref.Arity())
	st.pushFrame(newFrame(method, args))
	// the caller's pc advances when the callee returns
}

// ---------------------------------------------------------------------------
// Coercions and comparisons
// ---------------------------------------------------------------------------

// comparez evaluates a one-operand zero test. References admit only the
// equality forms, which are null checks; numeric values coerce to int.
func (in *Interpreter) comparez(pc jvm.PC, cond jvm.Cmp, v jvm.Value) bool {
	if v.IsNull() || v.IsRef() || v.IsStr() || v.IsArray() {
		switch cond {
		case jvm.CmpEq:
			return v.IsNull()
		case jvm.CmpNe:
			return !v.IsNull()
		}
		in.fault(pc, "ifz %s on %s", cond, v)
	}
	return in.compareInt(pc, cond, in.toInt(pc, v), 0)
}

func (in *Interpreter) compareInt(pc jvm.PC, cond jvm.Cmp, a, b int32) bool {
	switch cond {
	case jvm.CmpEq:
		return a == b
	case jvm.CmpNe:
		return a != b
	case jvm.CmpGt:
		return a > b
	case jvm.CmpGe:
		return a >= b
	case jvm.CmpLt:
		return a < b
	case jvm.CmpLe:
		return a <= b
	}
	in.fault(pc, "comparator %s on integers", cond)
	return false
}

// toInt coerces the numeric value kinds to int: chars by code point,
// booleans as 0 and 1.
func (in *Interpreter) toInt(pc jvm.PC, v jvm.Value) int32 {
	switch v.Kind() {
	case jvm.KindInt:
		return v.Int()
	case jvm.KindChar:
		return int32(v.Char())
	case jvm.KindBool:
		if v.Bool() {
			return 1
		}
		return 0
	}
	in.fault(pc, "%s does not coerce to an integer", v)
	return 0
}

// asString resolves a string-typed operand to its text. The second result
// reports a null reference, which each caller maps to its own outcome.
func (in *Interpreter) asString(st *State, pc jvm.PC, v jvm.Value) (string, bool) {
	switch v.Kind() {
	case jvm.KindNull:
		return "", true
	case jvm.KindStr:
		return v.Str(), false
	case jvm.KindRef:
		return st.str(pc, v.Ref()), false
	}
	in.fault(pc, "%s is not a string value", v)
	return "", false
}

func (in *Interpreter) refID(pc jvm.PC, v jvm.Value) int32 {
	if !v.IsRef() {
		in.fault(pc, "constructor receiver %s is not a reference", v)
	}
	return v.Ref()
}

func (in *Interpreter) fault(pc jvm.PC, format string, args ...any) {
	panic(&Fault{PC: pc, Msg: fmt.Sprintf(format, args...)})
}

// equalFold compares ASCII letters case-insensitively, the way
// equalsIgnoreCase does.
func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if foldCase(a[i]) != foldCase(b[i]) {
			return false
		}
	}
	return true
}

func foldCase(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}
