package fuzz

import (
	"fmt"
	"math/rand"
	"slices"

	"github.com/Anygaardranloev/jpamb-group26/jvm"
)

// ---------------------------------------------------------------------------
// Generation and mutation parameters
// ---------------------------------------------------------------------------

const (
	printableMin = 32  // ' '
	printableMax = 126 // '~'

	genIntRange  = 100 // fresh ints are uniform in [-100, 100]
	maxGenString = 20  // fresh strings have 0..20 characters
	maxGenArray  = 8   // fresh arrays have 0..8 elements

	maxMutations = 8 // a child differs from its parent by 1..8 mutations

	pGenDict = 0.25 // chance a fresh int or string comes from the dictionary
	pMutInt  = 0.20 // chance an int mutation is a dictionary replacement
	pMutStr  = 0.15 // chance a string mutation is a dictionary replacement

	maxDict = 256 // harvested dictionary entries kept per type
)

// intDeltas are the small nudges applied to integers; the pair of 42s makes
// answers near magic constants reachable in one hop once the dictionary has
// planted a neighbor.
var intDeltas = [...]int32{1, -1, 10, -10, 42, -42}

// mutator owns all randomized input synthesis for one campaign. It combines
// a static literal pool with a dictionary of comparison operands harvested
// from completed runs. Not safe for concurrent use.
type mutator struct {
	r    *rand.Rand
	pool *Pool

	ints []int32 // harvested from integer comparisons
	strs []string
}

func newMutator(r *rand.Rand, pool *Pool) *mutator {
	if pool == nil {
		pool = &Pool{}
	}
	return &mutator{r: r, pool: pool}
}

// refresh folds one run's comparison operands into the dictionary. The
// slices are borrowed from the coverage map, so entries are copied out.
func (m *mutator) refresh(ints []int32, strs []string) {
	for _, n := range ints {
		if !slices.Contains(m.ints, n) {
			m.ints = append(m.ints, n)
		}
	}
	if len(m.ints) > maxDict {
		m.ints = m.ints[len(m.ints)-maxDict:]
	}
	for _, s := range strs {
		if !slices.Contains(m.strs, s) {
			m.strs = append(m.strs, s)
		}
	}
	if len(m.strs) > maxDict {
		m.strs = m.strs[len(m.strs)-maxDict:]
	}
}

func (m *mutator) pickInt() (int32, bool) {
	total := len(m.pool.Ints) + len(m.ints)
	if total == 0 {
		return 0, false
	}
	i := m.r.Intn(total)
	if i < len(m.pool.Ints) {
		return m.pool.Ints[i], true
	}
	return m.ints[i-len(m.pool.Ints)], true
}

func (m *mutator) pickStr() (string, bool) {
	total := len(m.pool.Strs) + len(m.strs)
	if total == 0 {
		return "", false
	}
	i := m.r.Intn(total)
	if i < len(m.pool.Strs) {
		return m.pool.Strs[i], true
	}
	return m.strs[i-len(m.pool.Strs)], true
}

// ---------------------------------------------------------------------------
// Generation
// ---------------------------------------------------------------------------

// generate synthesizes one fresh argument vector for the parameter list.
func (m *mutator) generate(params []jvm.Type) []jvm.Value {
	out := make([]jvm.Value, len(params))
	for i, p := range params {
		out[i] = m.genValue(p)
	}
	return out
}

func (m *mutator) genValue(t jvm.Type) jvm.Value {
	switch t {
	case jvm.TypeInt:
		return jvm.Int(m.genInt())
	case jvm.TypeBool:
		return jvm.Bool(m.r.Intn(2) == 0)
	case jvm.TypeChar:
		return jvm.Char(m.genChar())
	case jvm.TypeString:
		return jvm.Str(m.genString())
	case jvm.TypeIntArray:
		return m.genArray(jvm.KindInt)
	case jvm.TypeCharArray:
		return m.genArray(jvm.KindChar)
	}
	panic(fmt.Sprintf("fuzz: no generator for parameter type %s", t))
}

func (m *mutator) genInt() int32 {
	if m.r.Float64() < pGenDict {
		if n, ok := m.pickInt(); ok {
			return n
		}
	}
	return int32(m.r.Intn(2*genIntRange+1) - genIntRange)
}

func (m *mutator) genChar() rune {
	if len(m.pool.Chars) > 0 && m.r.Float64() < pGenDict {
		return m.pool.Chars[m.r.Intn(len(m.pool.Chars))]
	}
	return rune(printableMin + m.r.Intn(printableMax-printableMin+1))
}

func (m *mutator) genString() string {
	if m.r.Float64() < pGenDict {
		if s, ok := m.pickStr(); ok {
			return s
		}
	}
	n := m.r.Intn(maxGenString + 1)
	buf := make([]rune, n)
	for i := range buf {
		buf[i] = rune(printableMin + m.r.Intn(printableMax-printableMin+1))
	}
	return string(buf)
}

func (m *mutator) genArray(elem jvm.Kind) jvm.Value {
	n := m.r.Intn(maxGenArray + 1)
	elems := make([]jvm.Value, n)
	for i := range elems {
		elems[i] = m.genElem(elem)
	}
	return jvm.ArrayOf(elem, elems)
}

func (m *mutator) genElem(elem jvm.Kind) jvm.Value {
	if elem == jvm.KindChar {
		return jvm.Char(m.genChar())
	}
	return jvm.Int(m.genInt())
}

// ---------------------------------------------------------------------------
// Mutation
// ---------------------------------------------------------------------------

// mutate applies 1..8 type-directed mutations to the vector in place. The
// caller owns the slice; parents are cloned before they get here.
func (m *mutator) mutate(inputs []jvm.Value) {
	if len(inputs) == 0 {
		return
	}
	rounds := 1 + m.r.Intn(maxMutations)
	for i := 0; i < rounds; i++ {
		k := m.r.Intn(len(inputs))
		inputs[k] = m.mutValue(inputs[k])
	}
}

func (m *mutator) mutValue(v jvm.Value) jvm.Value {
	switch {
	case v.IsInt():
		return jvm.Int(m.mutInt(v.Int()))
	case v.IsBool():
		return jvm.Bool(!v.Bool())
	case v.IsChar():
		return jvm.Char(m.mutChar(v.Char()))
	case v.IsStr():
		return jvm.Str(m.mutString(v.Str()))
	case v.IsArray():
		m.mutArray(v.Array())
		return v
	}
	return v
}

func (m *mutator) mutInt(n int32) int32 {
	if m.r.Float64() < pMutInt {
		if d, ok := m.pickInt(); ok {
			return d
		}
	}
	switch p := m.r.Float64(); {
	case p < 0.60:
		return n + intDeltas[m.r.Intn(len(intDeltas))]
	case p < 0.85:
		shift := uint(m.r.Intn(4)) * 8
		return n ^ int32(uint32(0xFF)<<shift)
	default:
		return -n
	}
}

func (m *mutator) mutChar(c rune) rune {
	d := rune(1 + m.r.Intn(5))
	if m.r.Intn(2) == 0 {
		d = -d
	}
	c += d
	if c < printableMin {
		c = printableMin
	}
	if c > printableMax {
		c = printableMax
	}
	return c
}

func (m *mutator) mutString(s string) string {
	if m.r.Float64() < pMutStr {
		if d, ok := m.pickStr(); ok {
			return d
		}
	}
	runes := []rune(s)
	p := m.r.Float64()
	switch {
	case len(runes) == 0 || p < 0.4: // insert
		at := m.r.Intn(len(runes) + 1)
		runes = slices.Insert(runes, at, m.genChar())
	case p < 0.8: // overwrite
		runes[m.r.Intn(len(runes))] = m.genChar()
	default: // delete
		at := m.r.Intn(len(runes))
		runes = slices.Delete(runes, at, at+1)
	}
	return string(runes)
}

func (m *mutator) mutArray(arr *jvm.Array) {
	if len(arr.Elems) == 0 || m.r.Intn(2) == 0 {
		at := m.r.Intn(len(arr.Elems) + 1)
		arr.Elems = slices.Insert(arr.Elems, at, m.genElem(arr.Elem))
		return
	}
	arr.Elems[m.r.Intn(len(arr.Elems))] = m.genElem(arr.Elem)
}
