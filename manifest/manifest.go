// Package manifest handles jpamb.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a jpamb.toml project configuration. It pins the suite
// location and the default interpreter and fuzzer knobs for a benchmark
// checkout, so command lines stay short; flags still override every field.
type Manifest struct {
	Project Project `toml:"project"`
	Suite   Suite   `toml:"suite"`
	Interp  Interp  `toml:"interp"`
	Fuzz    Fuzz    `toml:"fuzz"`

	// Dir is the directory containing the jpamb.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name string `toml:"name"`
}

// Suite locates the benchmark codebase.
type Suite struct {
	// Codebase is the directory holding decompiled/, relative to Dir.
	Codebase string `toml:"codebase"`
	// CacheSize caps the decoded-method cache.
	CacheSize int `toml:"cache-size"`
}

// Interp carries interpreter defaults.
type Interp struct {
	MaxSteps int  `toml:"max-steps"`
	Trace    bool `toml:"trace"`
}

// Fuzz carries fuzzing campaign defaults. Zero values defer to the engine's
// own defaults.
type Fuzz struct {
	MaxIters       int   `toml:"max-iters"`
	Seed           int64 `toml:"seed"`
	MaxCorpus      int   `toml:"max-corpus"`
	CoverageSize   int   `toml:"coverage-size"`
	ExploreAfter   int   `toml:"explore-after"`
	StaleLimit     int   `toml:"stale-limit"`
	StagnationStop int   `toml:"stagnation-stop"`
	StopOnCrash    bool  `toml:"stop-on-crash"`
	// Literals names the literal analyzer's JSON output, relative to Dir.
	Literals string `toml:"literals"`
}

// Load parses a jpamb.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "jpamb.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Suite.Codebase == "" {
		m.Suite.Codebase = "."
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a jpamb.toml file, then loads
// and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "jpamb.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// CodebasePath returns the absolute path of the suite codebase.
func (m *Manifest) CodebasePath() string {
	return filepath.Join(m.Dir, m.Suite.Codebase)
}

// LiteralsPath returns the absolute path of the literal pool file, or ""
// when none is configured.
func (m *Manifest) LiteralsPath() string {
	if m.Fuzz.Literals == "" {
		return ""
	}
	return filepath.Join(m.Dir, m.Fuzz.Literals)
}
