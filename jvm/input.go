package jvm

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ParseInputs decodes an argument vector in the benchmark literal syntax:
// a parenthesized, comma-separated list of ints, booleans (true/false),
// chars ('a'), strings ("..."), null, and arrays ([I:1,2,3] or [C:'a','b']).
// Malformed input is a user-facing error reported before any run starts.
func ParseInputs(s string) ([]Value, error) {
	p := &inputParser{src: s}
	p.skipSpace()
	if !p.eat('(') {
		return nil, p.errf("expected \"(\"")
	}
	vals := []Value{}
	p.skipSpace()
	if p.eat(')') {
		p.skipSpace()
		if p.pos != len(p.src) {
			return nil, p.errf("trailing input after \")\"")
		}
		return vals, nil
	}
	for {
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
		p.skipSpace()
		if p.eat(',') {
			p.skipSpace()
			continue
		}
		if p.eat(')') {
			break
		}
		return nil, p.errf("expected \",\" or \")\"")
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errf("trailing input after \")\"")
	}
	return vals, nil
}

// FormatInputs renders an argument vector back into the literal syntax that
// ParseInputs accepts.
func FormatInputs(vals []Value) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for i, v := range vals {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(v.String())
	}
	sb.WriteByte(')')
	return sb.String()
}

type inputParser struct {
	src string
	pos int
}

func (p *inputParser) errf(format string, args ...any) error {
	return fmt.Errorf("input %q at offset %d: %s", p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *inputParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *inputParser) eat(c byte) bool {
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *inputParser) value() (Value, error) {
	if p.pos >= len(p.src) {
		return Null, p.errf("unexpected end of input")
	}
	switch c := p.src[p.pos]; {
	case c == '-' || (c >= '0' && c <= '9'):
		return p.intValue()
	case c == '\'':
		return p.charValue()
	case c == '"':
		return p.stringValue()
	case c == '[':
		return p.arrayValue()
	case strings.HasPrefix(p.src[p.pos:], "true"):
		p.pos += len("true")
		return Bool(true), nil
	case strings.HasPrefix(p.src[p.pos:], "false"):
		p.pos += len("false")
		return Bool(false), nil
	case strings.HasPrefix(p.src[p.pos:], "null"):
		p.pos += len("null")
		return Null, nil
	}
	return Null, p.errf("unexpected character %q", p.src[p.pos])
}

func (p *inputParser) intValue() (Value, error) {
	start := p.pos
	p.eat('-')
	digits := 0
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
		digits++
	}
	if digits == 0 {
		p.pos = start
		return Null, p.errf("expected digits")
	}
	text := p.src[start:p.pos]
	n, err := strconv.ParseInt(text, 10, 32)
	if err != nil {
		return Null, p.errf("integer %s out of 32-bit range", text)
	}
	return Int(int32(n)), nil
}

func (p *inputParser) charValue() (Value, error) {
	if !p.eat('\'') {
		return Null, p.errf("expected \"'\"")
	}
	r, err := p.escapedRune('\'')
	if err != nil {
		return Null, err
	}
	if !p.eat('\'') {
		return Null, p.errf("unterminated char literal")
	}
	return Char(r), nil
}

func (p *inputParser) stringValue() (Value, error) {
	if !p.eat('"') {
		return Null, p.errf("expected '\"'")
	}
	var sb strings.Builder
	for {
		if p.pos >= len(p.src) {
			return Null, p.errf("unterminated string literal")
		}
		if p.eat('"') {
			return Str(sb.String()), nil
		}
		r, err := p.escapedRune('"')
		if err != nil {
			return Null, err
		}
		sb.WriteRune(r)
	}
}

// escapedRune reads one character, resolving backslash escapes. quote is the
// enclosing quote character, which must be escaped to appear literally.
func (p *inputParser) escapedRune(quote byte) (rune, error) {
	if p.pos >= len(p.src) {
		return 0, p.errf("unexpected end of input")
	}
	c := p.src[p.pos]
	if c != '\\' {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		p.pos += size
		return r, nil
	}
	p.pos++
	if p.pos >= len(p.src) {
		return 0, p.errf("dangling escape")
	}
	e := p.src[p.pos]
	p.pos++
	switch e {
	case 'n':
		return '\n', nil
	case 't':
		return '\t', nil
	case '\\':
		return '\\', nil
	case quote:
		return rune(quote), nil
	case '\'', '"':
		return rune(e), nil
	}
	return 0, p.errf("unknown escape \\%c", e)
}

func (p *inputParser) arrayValue() (Value, error) {
	if !p.eat('[') {
		return Null, p.errf("expected \"[\"")
	}
	if p.pos >= len(p.src) {
		return Null, p.errf("truncated array literal")
	}
	var elem Kind
	switch p.src[p.pos] {
	case 'I':
		elem = KindInt
	case 'C':
		elem = KindChar
	default:
		return Null, p.errf("unknown array element type %q", p.src[p.pos])
	}
	p.pos++
	if !p.eat(':') {
		// An empty array may be written without the colon: [I] or [C].
		if p.eat(']') {
			return ArrayOf(elem, nil), nil
		}
		return Null, p.errf("expected \":\" after array element type")
	}
	var elems []Value
	p.skipSpace()
	if p.eat(']') {
		return ArrayOf(elem, elems), nil
	}
	for {
		v, err := p.value()
		if err != nil {
			return Null, err
		}
		switch {
		case elem == KindInt && !v.IsInt():
			return Null, p.errf("array element %s is not an int", v)
		case elem == KindChar && !v.IsChar():
			return Null, p.errf("array element %s is not a char", v)
		}
		elems = append(elems, v)
		p.skipSpace()
		if p.eat(',') {
			p.skipSpace()
			continue
		}
		if p.eat(']') {
			return ArrayOf(elem, elems), nil
		}
		return Null, p.errf("expected \",\" or \"]\"")
	}
}
