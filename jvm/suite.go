package jvm

import (
	"fmt"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds how many decoded methods a Suite keeps resident.
const DefaultCacheSize = 256

// Source supplies decoded methods to the interpreter. Lookups happen on the
// entry method before a run and again whenever an invoke crosses into
// another suite method.
type Source interface {
	Lookup(id MethodID) (*Method, error)
}

// Suite is a directory-backed Source. A suite root holds one JSON file per
// class under decompiled/, mirroring the class path:
//
//	<root>/decompiled/jpamb/cases/Simple.json
//
// Decoded methods are kept in an LRU cache so that fuzzing loops which
// re-enter the same handful of methods never touch the disk twice.
type Suite struct {
	root  string
	cache *lru.Cache[MethodID, *Method]
}

// OpenSuite opens the benchmark suite rooted at dir. cacheSize bounds the
// decoded-method cache; zero or negative selects DefaultCacheSize.
func OpenSuite(dir string, cacheSize int) (*Suite, error) {
	info, err := os.Stat(filepath.Join(dir, "decompiled"))
	if err != nil {
		return nil, fmt.Errorf("open suite %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open suite %s: decompiled is not a directory", dir)
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[MethodID, *Method](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("open suite %s: %w", dir, err)
	}
	return &Suite{root: dir, cache: cache}, nil
}

// Lookup finds the method in the suite and decodes its body. The decode is
// per method, so classes may contain methods outside the modeled
// instruction subset as long as nobody asks for them.
func (s *Suite) Lookup(id MethodID) (*Method, error) {
	if m, ok := s.cache.Get(id); ok {
		return m, nil
	}
	path := s.classPath(id.ClassName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", id, err)
	}
	cf, err := parseClassFile(data, path)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", id, err)
	}
	if cf.Name != id.ClassName {
		return nil, fmt.Errorf("lookup %s: %s declares class %s", id, path, cf.Name)
	}
	for i := range cf.Methods {
		mj := &cf.Methods[i]
		if mj.Name != id.Name || mj.Descriptor != id.Descriptor {
			continue
		}
		code, err := decodeCode(mj.Code.Bytecode, id)
		if err != nil {
			return nil, err
		}
		m := &Method{ID: id, Code: code}
		s.cache.Add(id, m)
		return m, nil
	}
	return nil, fmt.Errorf("lookup %s: no such method in %s", id, path)
}

func (s *Suite) classPath(className string) string {
	return filepath.Join(s.root, "decompiled", filepath.FromSlash(className)+".json")
}

// MapSource serves methods straight from memory. Tests assemble programs
// with it instead of shipping suite directories around.
type MapSource map[MethodID]*Method

func (m MapSource) Lookup(id MethodID) (*Method, error) {
	if meth, ok := m[id]; ok {
		return meth, nil
	}
	return nil, fmt.Errorf("lookup %s: no such method", id)
}
