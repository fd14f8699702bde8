// Package manifest handles sgm.toml project configuration.
package manifest

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/BurntSushi/toml"
)

// FileName is the manifest file looked up in project directories.
const FileName = "sgm.toml"

// Defaults applied to fields left empty.
const (
	DefaultEntry    = "main.sgm"
	DefaultAddr     = ":4567"
	DefaultGRPCAddr = ":4568"
)

//go:embed schema.cue
var schemaSource string

// Manifest represents an sgm.toml project configuration.
type Manifest struct {
	Project Project `toml:"project" json:"project"`
	Source  Source  `toml:"source" json:"source"`
	Build   Build   `toml:"build" json:"build"`
	Run     Run     `toml:"run" json:"run"`
	Server  Server  `toml:"server" json:"server"`

	// Dir is the directory containing the sgm.toml file (set at load time).
	Dir string `toml:"-" json:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name" json:"name"`
	Version string `toml:"version" json:"version"`
}

// Source configures the program entry point.
type Source struct {
	Entry string `toml:"entry" json:"entry"`
}

// Build configures compile-only output.
type Build struct {
	Output      string `toml:"output" json:"output"`
	Disassemble bool   `toml:"disassemble" json:"disassemble"`
}

// Run configures program execution.
type Run struct {
	Trace bool   `toml:"trace" json:"trace"`
	Cache string `toml:"cache" json:"cache"`
}

// Server configures the evaluation service listeners.
type Server struct {
	Addr     string `toml:"addr" json:"addr"`
	GRPCAddr string `toml:"grpc-addr" json:"grpc-addr"`
}

// Default returns the manifest used when a directory has no sgm.toml.
func Default(dir string) *Manifest {
	m := &Manifest{Dir: dir}
	m.Project.Name = filepath.Base(dir)
	m.applyDefaults()
	return m
}

// Load parses and validates an sgm.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.applyDefaults()
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find an sgm.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
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

func (m *Manifest) applyDefaults() {
	if m.Source.Entry == "" {
		m.Source.Entry = DefaultEntry
	}
	if m.Server.Addr == "" {
		m.Server.Addr = DefaultAddr
	}
	if m.Server.GRPCAddr == "" {
		m.Server.GRPCAddr = DefaultGRPCAddr
	}
}

// Validate checks the manifest against the embedded CUE schema.
func (m *Manifest) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("manifest schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Manifest"))

	v := def.Unify(ctx.Encode(m))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return errors.New(strings.TrimSpace(cueerrors.Details(err, nil)))
	}
	if m.Server.Addr == m.Server.GRPCAddr {
		return fmt.Errorf("server.addr and server.grpc-addr are both %s", m.Server.Addr)
	}
	return nil
}

// EntryPath returns the absolute path of the entry source file.
func (m *Manifest) EntryPath() string {
	return m.resolve(m.Source.Entry)
}

// OutputPath returns where compiled images go. Without build.output it is
// the entry path with an .sgmc extension.
func (m *Manifest) OutputPath() string {
	if m.Build.Output != "" {
		return m.resolve(m.Build.Output)
	}
	entry := m.EntryPath()
	return strings.TrimSuffix(entry, filepath.Ext(entry)) + ".sgmc"
}

// CachePath returns the program cache database path, or "" when caching
// is disabled.
func (m *Manifest) CachePath() string {
	if m.Run.Cache == "" {
		return ""
	}
	return m.resolve(m.Run.Cache)
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
