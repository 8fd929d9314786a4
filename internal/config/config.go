// Package config reads weld.toml, the project file that records a merge so
// it can be repeated without a long command line.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the name looked up by Find.
const FileName = "weld.toml"

// ErrMergeSectionMissing is returned when weld.toml has no [merge] table.
var ErrMergeSectionMissing = errors.New("missing [merge]")

// Config mirrors weld.toml.
type Config struct {
	Merge      MergeConfig     `toml:"merge"`
	Attributes AttributeConfig `toml:"attributes"`
	Signing    SigningConfig   `toml:"signing"`
	Trace      TraceConfig     `toml:"trace"`
}

type MergeConfig struct {
	Inputs          []string `toml:"inputs"`
	Output          string   `toml:"output"`
	Search          []string `toml:"search"`
	Name            string   `toml:"name"`
	Version         string   `toml:"version"`
	Target          string   `toml:"target"`
	Union           bool     `toml:"union"`
	Internalize     bool     `toml:"internalize"`
	ExcludeFile     string   `toml:"exclude_file"`
	AllowDuplicates []string `toml:"allow_duplicates"`
	AllowAll        bool     `toml:"allow_all_duplicates"`
	AllowZeroPEKind bool     `toml:"allow_zero_pekind"`
	Closure         bool     `toml:"closure"`
	Jobs            int      `toml:"jobs"`
}

type AttributeConfig struct {
	Copy          bool   `toml:"copy"`
	AllowMultiple bool   `toml:"allow_multiple"`
	KeepFirst     bool   `toml:"keep_first"`
	Policy        string `toml:"policy"`
	File          string `toml:"file"`
}

type SigningConfig struct {
	KeyFile      string `toml:"key_file"`
	KeyContainer string `toml:"key_container"`
	DelaySign    bool   `toml:"delay_sign"`
}

type TraceConfig struct {
	Output string `toml:"output"`
	Level  string `toml:"level"`
}

// File is a loaded weld.toml. Relative paths in Config are already
// resolved against Root.
type File struct {
	Path   string
	Root   string
	Config Config
	meta   toml.MetaData
}

// Defined reports whether a key was present in the file, so that callers
// can tell an explicit false from an absent setting.
func (f *File) Defined(key ...string) bool {
	if f == nil {
		return false
	}
	return f.meta.IsDefined(key...)
}

// Find walks up from startDir looking for weld.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load parses and validates a weld.toml.
func Load(path string) (*File, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if !meta.IsDefined("merge") {
		return nil, fmt.Errorf("%s: %w", path, ErrMergeSectionMissing)
	}
	if cfg.Merge.Jobs < 0 {
		return nil, fmt.Errorf("%s: [merge].jobs must not be negative", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	f := &File{Path: abs, Root: filepath.Dir(abs), Config: cfg, meta: meta}
	f.resolvePaths()
	return f, nil
}

func (f *File) resolvePaths() {
	m := &f.Config.Merge
	for i := range m.Inputs {
		m.Inputs[i] = f.resolve(m.Inputs[i])
	}
	for i := range m.Search {
		m.Search[i] = f.resolve(m.Search[i])
	}
	m.Output = f.resolve(m.Output)
	m.ExcludeFile = f.resolve(m.ExcludeFile)
	f.Config.Attributes.File = f.resolve(f.Config.Attributes.File)
	f.Config.Signing.KeyFile = f.resolve(f.Config.Signing.KeyFile)
	if f.Config.Trace.Output != "-" {
		f.Config.Trace.Output = f.resolve(f.Config.Trace.Output)
	}
}

func (f *File) resolve(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(f.Root, filepath.FromSlash(p))
}
