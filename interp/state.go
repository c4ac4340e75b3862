package interp

import (
	"fmt"

	"github.com/Anygaardranloev/jpamb-group26/jvm"
)

// Fault is the panic payload for conditions that are bugs in the interpreter
// or its inputs rather than behaviors of the program under test: unmodeled
// constructs, malformed operand stacks, dangling references. Programs cannot
// produce a Fault; encountering one means the modeled instruction subset has
// been outgrown.
type Fault struct {
	PC  jvm.PC
	Msg string
}

func (f *Fault) Error() string {
	return fmt.Sprintf("fault at %s: %s", f.PC, f.Msg)
}

// ---------------------------------------------------------------------------
// Frames
// ---------------------------------------------------------------------------

// Frame is one method activation: its code, local slots, operand stack and
// program counter offset.
type Frame struct {
	method *jvm.Method
	locals map[int]jvm.Value
	stack  []jvm.Value
	pc     int
}

func newFrame(method *jvm.Method, args []jvm.Value) *Frame {
	f := &Frame{
		method: method,
		locals: make(map[int]jvm.Value, len(args)),
		stack:  make([]jvm.Value, 0, 8),
	}
	for i, a := range args {
		f.locals[i] = a
	}
	return f
}

// loc returns the frame's current program counter.
func (f *Frame) loc() jvm.PC {
	return jvm.PC{Method: f.method.ID, Offset: f.pc}
}

func (f *Frame) push(v jvm.Value) {
	f.stack = append(f.stack, v)
}

func (f *Frame) pop() jvm.Value {
	if len(f.stack) == 0 {
		panic(&Fault{PC: f.loc(), Msg: "pop from an empty operand stack"})
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v
}

func (f *Frame) top() jvm.Value {
	if len(f.stack) == 0 {
		panic(&Fault{PC: f.loc(), Msg: "peek at an empty operand stack"})
	}
	return f.stack[len(f.stack)-1]
}

// popN removes the top n values and returns them in push order, which is
// the declaration order of call arguments.
func (f *Frame) popN(n int) []jvm.Value {
	if len(f.stack) < n {
		panic(&Fault{PC: f.loc(), Msg: fmt.Sprintf("pop of %d from a stack of %d", n, len(f.stack))})
	}
	args := make([]jvm.Value, n)
	copy(args, f.stack[len(f.stack)-n:])
	f.stack = f.stack[:len(f.stack)-n]
	return args
}

func (f *Frame) local(index int) jvm.Value {
	v, ok := f.locals[index]
	if !ok {
		panic(&Fault{PC: f.loc(), Msg: fmt.Sprintf("load of unset local %d", index)})
	}
	return v
}

// ---------------------------------------------------------------------------
// Machine state
// ---------------------------------------------------------------------------

// State is the whole machine for one run: a frame stack plus the string heap
// and intern table shared by every frame.
type State struct {
	frames  []*Frame
	heap    map[int32]string
	interns map[string]int32
	nextRef int32

	returned  jvm.Value
	hasReturn bool
}

func newState(method *jvm.Method, args []jvm.Value) *State {
	copied := make([]jvm.Value, len(args))
	for i, a := range args {
		copied[i] = a.DeepCopy()
	}
	return &State{
		frames:  []*Frame{newFrame(method, copied)},
		heap:    make(map[int32]string),
		interns: make(map[string]int32),
		nextRef: 1,
	}
}

func (st *State) frame() *Frame {
	return st.frames[len(st.frames)-1]
}

func (st *State) pushFrame(f *Frame) {
	st.frames = append(st.frames, f)
}

func (st *State) popFrame() {
	st.frames = st.frames[:len(st.frames)-1]
}

func (st *State) depth() int { return len(st.frames) }

// alloc places a fresh string on the heap. Every call yields a new
// reference, which is what gives constructed strings their own identity.
func (st *State) alloc(s string) int32 {
	ref := st.nextRef
	st.nextRef++
	st.heap[ref] = s
	return ref
}

// intern returns the shared reference for a literal, allocating it on first
// use. Two pushes of the same literal text are identical; a constructed
// string with the same text is not.
func (st *State) intern(s string) int32 {
	if ref, ok := st.interns[s]; ok {
		return ref
	}
	ref := st.alloc(s)
	st.interns[s] = ref
	return ref
}

func (st *State) str(pc jvm.PC, ref int32) string {
	s, ok := st.heap[ref]
	if !ok {
		panic(&Fault{PC: pc, Msg: fmt.Sprintf("dangling reference ref#%d", ref)})
	}
	return s
}
