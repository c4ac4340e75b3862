package jvm

import (
	"fmt"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota // absent reference
	KindInt              // 32-bit signed integer
	KindBool             // boolean
	KindChar             // UTF-16 code unit, kept as a rune
	KindRef              // heap reference id
	KindStr              // string literal not yet interned into a heap
	KindArray            // array of scalar values
)

// kindNames is indexed by Kind.
var kindNames = [...]string{"null", "int", "boolean", "char", "ref", "string", "array"}

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value is the tagged union flowing through locals, operand stacks and the
// heap-adjacent paths of the interpreter. The zero Value is null.
//
// A KindRef payload is an id into a run's heap; the referenced content lives
// there, never in the Value. A KindStr payload is literal text that has not
// been interned yet: pushing it interns it, but it may also travel directly
// (an argument string sits in a local as a literal until first used).
// A KindArray payload aliases its backing store when the Value is copied,
// which is exactly the reference semantics arrays need.
type Value struct {
	kind Kind
	n    int32  // int value, char code point, bool 0/1, or heap ref id
	s    string // literal text for KindStr
	arr  *Array // backing store for KindArray
}

// Array is the mutable backing store of a KindArray value.
type Array struct {
	Elem  Kind // element kind, KindInt or KindChar
	Elems []Value
}

// Null is the absent reference. It is also the zero Value.
var Null Value

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// Int creates an integer value.
func Int(n int32) Value { return Value{kind: KindInt, n: n} }

// Bool creates a boolean value.
func Bool(b bool) Value {
	if b {
		return Value{kind: KindBool, n: 1}
	}
	return Value{kind: KindBool}
}

// Char creates a character value.
func Char(r rune) Value { return Value{kind: KindChar, n: int32(r)} }

// Ref creates a heap reference value.
func Ref(id int32) Value { return Value{kind: KindRef, n: id} }

// Str creates an uninterned string literal value.
func Str(s string) Value { return Value{kind: KindStr, s: s} }

// ArrayOf creates an array value over the given backing store. The store is
// shared, not copied.
func ArrayOf(elem Kind, elems []Value) Value {
	return Value{kind: KindArray, arr: &Array{Elem: elem, Elems: elems}}
}

// ---------------------------------------------------------------------------
// Type checking
// ---------------------------------------------------------------------------

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the absent reference.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsInt reports whether v is an integer.
func (v Value) IsInt() bool { return v.kind == KindInt }

// IsBool reports whether v is a boolean.
func (v Value) IsBool() bool { return v.kind == KindBool }

// IsChar reports whether v is a character.
func (v Value) IsChar() bool { return v.kind == KindChar }

// IsRef reports whether v is a heap reference.
func (v Value) IsRef() bool { return v.kind == KindRef }

// IsStr reports whether v is an uninterned string literal.
func (v Value) IsStr() bool { return v.kind == KindStr }

// IsArray reports whether v is an array.
func (v Value) IsArray() bool { return v.kind == KindArray }

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

// Int returns the integer payload.
// Panics if v is not an integer.
func (v Value) Int() int32 {
	if v.kind != KindInt {
		panic("Value.Int: not an int: " + v.String())
	}
	return v.n
}

// Bool returns the boolean payload.
// Panics if v is not a boolean.
func (v Value) Bool() bool {
	if v.kind != KindBool {
		panic("Value.Bool: not a boolean: " + v.String())
	}
	return v.n != 0
}

// Char returns the character payload.
// Panics if v is not a character.
func (v Value) Char() rune {
	if v.kind != KindChar {
		panic("Value.Char: not a char: " + v.String())
	}
	return rune(v.n)
}

// Ref returns the heap reference id.
// Panics if v is not a reference.
func (v Value) Ref() int32 {
	if v.kind != KindRef {
		panic("Value.Ref: not a reference: " + v.String())
	}
	return v.n
}

// Str returns the literal text payload.
// Panics if v is not a string literal.
func (v Value) Str() string {
	if v.kind != KindStr {
		panic("Value.Str: not a string literal: " + v.String())
	}
	return v.s
}

// Array returns the backing store.
// Panics if v is not an array.
func (v Value) Array() *Array {
	if v.kind != KindArray {
		panic("Value.Array: not an array: " + v.String())
	}
	return v.arr
}

// ---------------------------------------------------------------------------
// Identity and copying
// ---------------------------------------------------------------------------

// Identical implements the reference-identity comparison ("is"). Two values
// are identical when they carry the same tag and the same payload: equal ints,
// equal ref ids, the same array store, both null. Two uninterned literals with
// equal text are identical, mirroring how argument literals compare before
// they ever reach a heap.
func (v Value) Identical(w Value) bool {
	if v.kind != w.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindStr:
		return v.s == w.s
	case KindArray:
		return v.arr == w.arr
	default:
		return v.n == w.n
	}
}

// DeepCopy returns a value whose mutation cannot be observed through v.
// Scalars copy trivially; arrays get a fresh backing store.
func (v Value) DeepCopy() Value {
	if v.kind != KindArray {
		return v
	}
	elems := make([]Value, len(v.arr.Elems))
	copy(elems, v.arr.Elems)
	return ArrayOf(v.arr.Elem, elems)
}

// ---------------------------------------------------------------------------
// Rendering
// ---------------------------------------------------------------------------

// String renders the value in the input-vector literal syntax where one
// exists (ints, booleans, chars, strings, arrays, null); heap references
// render as ref#N since they are meaningless outside their run.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindInt:
		return fmt.Sprintf("%d", v.n)
	case KindBool:
		if v.n != 0 {
			return "true"
		}
		return "false"
	case KindChar:
		return "'" + escapeChar(rune(v.n)) + "'"
	case KindRef:
		return fmt.Sprintf("ref#%d", v.n)
	case KindStr:
		return `"` + escapeString(v.s) + `"`
	case KindArray:
		var sb strings.Builder
		sb.WriteByte('[')
		switch v.arr.Elem {
		case KindChar:
			sb.WriteString("C:")
		default:
			sb.WriteString("I:")
		}
		for i, e := range v.arr.Elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(e.String())
		}
		sb.WriteByte(']')
		return sb.String()
	}
	return fmt.Sprintf("value(%d)", v.kind)
}

func escapeChar(r rune) string {
	switch r {
	case '\'':
		return `\'`
	case '\\':
		return `\\`
	case '\n':
		return `\n`
	case '\t':
		return `\t`
	}
	return string(r)
}

func escapeString(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
