// Package coverage tracks which instructions a run executed and how hard its
// comparisons were trying to match. The fuzzer keeps two maps per campaign:
// a per-run map that is Reset before every execution, and a global map that
// accumulates the per-run maps via MergeInteresting and decides which inputs
// earn a place in the corpus.
package coverage

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/Anygaardranloev/jpamb-group26/jvm"
)

// DefaultSize is the default number of count cells.
const DefaultSize = 1 << 10

// Auxiliary location tags. A plain instruction hit, the partial progress of
// an int comparison and the per-position progress of a string comparison all
// land in the same map but under disjoint tags.
const (
	auxLoc     = 0
	auxIntSign = 1
	auxIntByte = 2 // three cells, MSB first
	auxStrPos  = 8 // one cell per agreeing leading position
)

// maxStrCmpLen bounds how many leading positions of a string comparison are
// credited individually.
const maxStrCmpLen = 64

// Harvest caps. Comparison operands feed the mutation dictionary; a handful
// per run is plenty.
const (
	maxCmpInts = 64
	maxCmpStrs = 32
)

// Map is a fixed-size table of saturating hit counts indexed by hashed
// program location. The size is a power of two so that indexing is a mask.
// A Map is not safe for concurrent use; each fuzzing loop owns its maps.
type Map struct {
	counts  []byte
	methods map[jvm.MethodID]uint64
	intCmps []int32
	strCmps []string
}

// New creates a map with at least size cells, rounded up to a power of two.
// Sizes of zero or less select DefaultSize.
func New(size int) *Map {
	if size <= 0 {
		size = DefaultSize
	}
	p := 1
	for p < size {
		p <<= 1
	}
	return &Map{
		counts:  make([]byte, p),
		methods: make(map[jvm.MethodID]uint64),
	}
}

// Size returns the number of count cells.
func (m *Map) Size() int { return len(m.counts) }

// Hit records one execution of the instruction at pc. Counts saturate at 255.
func (m *Map) Hit(pc jvm.PC) { m.hit(pc, auxLoc) }

// LogIntCmp records partial progress of an integer comparison: one hit when
// the signs agree, then one per agreeing byte from the most significant
// down, stopping at the first mismatch. Close misses thereby score higher
// than distant ones, which is what steers mutation toward the comparison
// constants. Both operands are harvested for the dictionary.
func (m *Map) LogIntCmp(pc jvm.PC, a, b int32) {
	if len(m.intCmps) < maxCmpInts {
		m.intCmps = append(m.intCmps, a)
	}
	if len(m.intCmps) < maxCmpInts {
		m.intCmps = append(m.intCmps, b)
	}
	if (a < 0) != (b < 0) {
		return
	}
	m.hit(pc, auxIntSign)
	ua, ub := uint32(a), uint32(b)
	for k := 0; k < 3; k++ {
		shift := uint(24 - 8*k)
		if byte(ua>>shift) != byte(ub>>shift) {
			return
		}
		m.hit(pc, auxIntByte+uint64(k))
	}
}

// LogStrCmp records one hit per agreeing leading position of a string
// comparison, stopping at the first mismatch. fold compares ASCII letters
// case-insensitively, matching equalsIgnoreCase. Non-empty operands are
// harvested for the dictionary.
func (m *Map) LogStrCmp(pc jvm.PC, a, b string, fold bool) {
	m.harvestStr(a)
	m.harvestStr(b)
	n := min(len(a), len(b), maxStrCmpLen)
	for i := 0; i < n; i++ {
		ca, cb := a[i], b[i]
		if fold {
			ca, cb = foldCase(ca), foldCase(cb)
		}
		if ca != cb {
			return
		}
		m.hit(pc, auxStrPos+uint64(i))
	}
}

func (m *Map) harvestStr(s string) {
	if s != "" && len(m.strCmps) < maxCmpStrs {
		m.strCmps = append(m.strCmps, s)
	}
}

func foldCase(b byte) byte {
	if 'A' <= b && b <= 'Z' {
		return b + 'a' - 'A'
	}
	return b
}

func (m *Map) hit(pc jvm.PC, aux uint64) {
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:8], m.methodHash(pc.Method))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(pc.Offset))
	binary.LittleEndian.PutUint64(buf[16:24], aux)
	i := xxhash.Sum64(buf[:]) & uint64(len(m.counts)-1)
	if m.counts[i] < 0xff {
		m.counts[i]++
	}
}

func (m *Map) methodHash(id jvm.MethodID) uint64 {
	if h, ok := m.methods[id]; ok {
		return h
	}
	h := xxhash.Sum64String(id.String())
	m.methods[id] = h
	return h
}

// Reset clears the counts and the harvested operands, readying the map for
// the next run. The global map a campaign accumulates is never Reset.
func (m *Map) Reset() {
	clear(m.counts)
	m.intCmps = m.intCmps[:0]
	m.strCmps = m.strCmps[:0]
}

// Score returns the number of distinct cells hit.
func (m *Map) Score() int {
	score := 0
	for _, c := range m.counts {
		if c != 0 {
			score++
		}
	}
	return score
}

// Hash fingerprints the map contents. Two runs through the same locations
// the same number of times hash equal, which makes the hash usable for
// deduplicating crashes by path.
func (m *Map) Hash() uint64 { return xxhash.Sum64(m.counts) }

// CmpInts returns the integer comparison operands harvested since the last
// Reset. The slice is borrowed; it is invalidated by the next Reset.
func (m *Map) CmpInts() []int32 { return m.intCmps }

// CmpStrs returns the string comparison operands harvested since the last
// Reset. The slice is borrowed; it is invalidated by the next Reset.
func (m *Map) CmpStrs() []string { return m.strCmps }

// MergeInteresting folds this run's counts into the accumulated global map
// and reports whether the run reached anything new: a cell never hit before,
// or a cell whose count climbed into a higher bucket than any earlier run
// managed. Both maps must be the same size.
func (m *Map) MergeInteresting(global *Map) bool {
	if len(global.counts) != len(m.counts) {
		panic("coverage: merging maps of different sizes")
	}
	interesting := false
	for i, c := range m.counts {
		if c == 0 {
			continue
		}
		g := global.counts[i]
		if g == 0 || Bucket(c) > Bucket(g) {
			interesting = true
		}
		if c > g {
			global.counts[i] = c
		}
	}
	return interesting
}

// Bucket classifies a hit count into one of nine coarse buckets. Loop
// iteration counts register as progress only when they cross a bucket
// boundary, not on every extra pass.
func Bucket(c byte) int {
	switch {
	case c == 0:
		return 0
	case c == 1:
		return 1
	case c == 2:
		return 2
	case c <= 4:
		return 3
	case c <= 8:
		return 4
	case c <= 16:
		return 5
	case c <= 32:
		return 6
	case c <= 128:
		return 7
	default:
		return 8
	}
}
