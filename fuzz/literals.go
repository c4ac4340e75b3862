package fuzz

import (
	"fmt"
	"os"
	"strconv"
	"unicode/utf8"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Pool holds literal constants mined from the target program's sources. The
// generator and the mutators draw from it with a small probability, biasing
// the search toward values the target actually compares against.
type Pool struct {
	Ints  []int32
	Strs  []string
	Chars []rune
}

// poolJSON is the file format the literal analyzer emits. Integer literals
// arrive as source tokens, so they are strings here and parsed below.
type poolJSON struct {
	Ints  []string `json:"int_literals"`
	Strs  []string `json:"string_literals"`
	Chars []string `json:"char_literals"`
}

// LoadLiterals reads a literal pool from the analyzer's JSON output.
func LoadLiterals(path string) (*Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := ParseLiterals(data)
	if err != nil {
		return nil, fmt.Errorf("literals %s: %w", path, err)
	}
	return p, nil
}

// ParseLiterals decodes a literal pool. Integer tokens that do not fit a
// 32-bit value and empty char tokens are skipped rather than rejected, since
// the pool is advisory.
func ParseLiterals(data []byte) (*Pool, error) {
	var raw poolJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	p := &Pool{Strs: raw.Strs}
	for _, tok := range raw.Ints {
		n, err := strconv.ParseInt(tok, 10, 32)
		if err != nil {
			continue
		}
		p.Ints = append(p.Ints, int32(n))
	}
	for _, tok := range raw.Chars {
		r, size := utf8.DecodeRuneInString(tok)
		if size == 0 || r == utf8.RuneError {
			continue
		}
		p.Chars = append(p.Chars, r)
	}
	return p, nil
}
