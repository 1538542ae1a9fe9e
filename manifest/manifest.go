// Package manifest handles luiggi.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the project manifest.
const FileName = "luiggi.toml"

// Manifest represents a luiggi.toml project configuration.
type Manifest struct {
	Project Project     `toml:"project"`
	Source  Source      `toml:"source"`
	Build   BuildConfig `toml:"build"`
	Run     RunConfig   `toml:"run"`
	Log     LogConfig   `toml:"log"`

	// Dir is the directory containing the luiggi.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures the script to run.
type Source struct {
	Entry string `toml:"entry"`
}

// BuildConfig configures compilation output.
type BuildConfig struct {
	Output string `toml:"output"`
	Cache  string `toml:"cache"`
	Disasm bool   `toml:"disasm"`
}

// RunConfig bounds execution.
type RunConfig struct {
	MaxSteps int `toml:"max-steps"`
	MaxDepth int `toml:"max-depth"`
}

// LogConfig configures logging.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Load parses a luiggi.toml file from the given directory.
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
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Project.Name == "" {
		m.Project.Name = filepath.Base(m.Dir)
	}
	if m.Source.Entry == "" {
		m.Source.Entry = "main.lg"
	}
	if m.Build.Output == "" {
		m.Build.Output = filepath.Join("build", m.Project.Name+".lgc")
	}
	if m.Run.MaxSteps < 0 || m.Run.MaxDepth < 0 {
		return nil, fmt.Errorf("%s: run limits must not be negative", path)
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a luiggi.toml file,
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

// EntryPath returns the absolute path of the entry script.
func (m *Manifest) EntryPath() string {
	return m.resolve(m.Source.Entry)
}

// OutputPath returns the absolute path of the compiled program.
func (m *Manifest) OutputPath() string {
	return m.resolve(m.Build.Output)
}

// CachePath returns the absolute path of the compile cache database, or ""
// when caching is off.
func (m *Manifest) CachePath() string {
	if m.Build.Cache == "" {
		return ""
	}
	return m.resolve(m.Build.Cache)
}

// LogPath returns the absolute path of the log file, or "" for stderr.
func (m *Manifest) LogPath() string {
	if m.Log.File == "" {
		return ""
	}
	return m.resolve(m.Log.File)
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
