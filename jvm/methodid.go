package jvm

import (
	"fmt"
	"strings"
)

// Type is a JVM type descriptor restricted to the subset the interpreter
// models.
type Type uint8

const (
	TypeVoid Type = iota
	TypeInt
	TypeBool
	TypeChar
	TypeString
	TypeIntArray
	TypeCharArray
)

// Descriptor returns the JVM descriptor text for the type.
func (t Type) Descriptor() string {
	switch t {
	case TypeVoid:
		return "V"
	case TypeInt:
		return "I"
	case TypeBool:
		return "Z"
	case TypeChar:
		return "C"
	case TypeString:
		return "Ljava/lang/String;"
	case TypeIntArray:
		return "[I"
	case TypeCharArray:
		return "[C"
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// String returns the descriptor text.
func (t Type) String() string { return t.Descriptor() }

// MethodID names one method of the benchmark suite. It is comparable, so it
// serves directly as a cache and coverage key. ClassName uses the slash form
// ("jpamb/cases/Simple"); Descriptor is the raw JVM descriptor ("(I)V"),
// validated at parse time.
type MethodID struct {
	ClassName  string
	Name       string
	Descriptor string
}

// String renders the canonical text form,
// "jpamb.cases.Simple.assertInteger:(I)V".
func (id MethodID) String() string {
	return strings.ReplaceAll(id.ClassName, "/", ".") + "." + id.Name + ":" + id.Descriptor
}

// Params returns the declared parameter types.
// Panics if the descriptor is malformed; ids produced by ParseMethodID are
// always well formed.
func (id MethodID) Params() []Type {
	params, _, err := ParseDescriptor(id.Descriptor)
	if err != nil {
		panic("MethodID.Params: " + err.Error())
	}
	return params
}

// Returns reports the declared return type.
// Panics if the descriptor is malformed.
func (id MethodID) Returns() Type {
	_, ret, err := ParseDescriptor(id.Descriptor)
	if err != nil {
		panic("MethodID.Returns: " + err.Error())
	}
	return ret
}

// ParseMethodID decodes the canonical text form. The part before the colon
// is a dotted path whose last element is the method name; the part after is
// the JVM descriptor. Errors identify what was malformed so the caller can
// report them before any run starts.
func ParseMethodID(s string) (MethodID, error) {
	head, desc, ok := strings.Cut(s, ":")
	if !ok {
		return MethodID{}, fmt.Errorf("method id %q: missing \":descriptor\" part", s)
	}
	dot := strings.LastIndexByte(head, '.')
	if dot <= 0 || dot == len(head)-1 {
		return MethodID{}, fmt.Errorf("method id %q: missing class or method name", s)
	}
	id := MethodID{
		ClassName:  strings.ReplaceAll(head[:dot], ".", "/"),
		Name:       head[dot+1:],
		Descriptor: desc,
	}
	if _, _, err := ParseDescriptor(desc); err != nil {
		return MethodID{}, fmt.Errorf("method id %q: %w", s, err)
	}
	return id, nil
}

// ParseDescriptor decodes a JVM method descriptor over the modeled type
// subset: I, Z, C, Ljava/lang/String;, [I and [C, with V allowed as the
// return type.
func ParseDescriptor(desc string) (params []Type, ret Type, err error) {
	if len(desc) < 3 || desc[0] != '(' {
		return nil, TypeVoid, fmt.Errorf("descriptor %q: expected \"(...)ret\"", desc)
	}
	rparen := strings.IndexByte(desc, ')')
	if rparen < 0 {
		return nil, TypeVoid, fmt.Errorf("descriptor %q: missing \")\"", desc)
	}
	rest := desc[1:rparen]
	for len(rest) > 0 {
		t, n, terr := parseType(rest)
		if terr != nil {
			return nil, TypeVoid, fmt.Errorf("descriptor %q: %w", desc, terr)
		}
		params = append(params, t)
		rest = rest[n:]
	}
	retText := desc[rparen+1:]
	if retText == "V" {
		return params, TypeVoid, nil
	}
	t, n, terr := parseType(retText)
	if terr != nil || n != len(retText) {
		return nil, TypeVoid, fmt.Errorf("descriptor %q: bad return type %q", desc, retText)
	}
	return params, t, nil
}

// parseType consumes one type descriptor from the front of s, returning the
// type and the number of bytes consumed.
func parseType(s string) (Type, int, error) {
	if s == "" {
		return TypeVoid, 0, fmt.Errorf("missing type")
	}
	switch s[0] {
	case 'I':
		return TypeInt, 1, nil
	case 'Z':
		return TypeBool, 1, nil
	case 'C':
		return TypeChar, 1, nil
	case 'L':
		const str = "Ljava/lang/String;"
		if strings.HasPrefix(s, str) {
			return TypeString, len(str), nil
		}
		semi := strings.IndexByte(s, ';')
		if semi < 0 {
			return TypeVoid, 0, fmt.Errorf("unterminated class type %q", s)
		}
		return TypeVoid, 0, fmt.Errorf("unsupported class type %q", s[:semi+1])
	case '[':
		if len(s) < 2 {
			return TypeVoid, 0, fmt.Errorf("truncated array type %q", s)
		}
		switch s[1] {
		case 'I':
			return TypeIntArray, 2, nil
		case 'C':
			return TypeCharArray, 2, nil
		}
		return TypeVoid, 0, fmt.Errorf("unsupported array type %q", s[:2])
	}
	return TypeVoid, 0, fmt.Errorf("unsupported type %q", s[:1])
}

// PC is a program counter: a method plus an instruction offset into its
// decoded sequence.
type PC struct {
	Method MethodID
	Offset int
}

// String renders "method:offset" for traces and diagnostics.
func (pc PC) String() string {
	return fmt.Sprintf("%s:%d", pc.Method, pc.Offset)
}
