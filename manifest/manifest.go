// Package manifest handles mini.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a mini.toml project configuration.
type Manifest struct {
	Project Project     `toml:"project"`
	Image   ImageConfig `toml:"image"`
	VM      VMConfig    `toml:"vm"`

	// Dir is the directory containing the mini.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// ImageConfig configures image output and storage.
type ImageConfig struct {
	Output string `toml:"output"`
	Store  string `toml:"store"`
}

// VMConfig configures execution limits.
type VMConfig struct {
	MaxStackDepth int  `toml:"max-stack-depth"`
	MaxCallDepth  int  `toml:"max-call-depth"`
	Trace         bool `toml:"trace"`
}

// Load parses a mini.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "mini.toml")
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
	if m.Image.Output == "" {
		m.Image.Output = m.Project.Name + ".mini"
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a mini.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "mini.toml")
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

// OutputPath returns the absolute path of the configured image output.
func (m *Manifest) OutputPath() string {
	if filepath.IsAbs(m.Image.Output) {
		return m.Image.Output
	}
	return filepath.Join(m.Dir, m.Image.Output)
}

// StorePath returns the absolute path of the configured image store,
// or empty when no store is configured.
func (m *Manifest) StorePath() string {
	if m.Image.Store == "" {
		return ""
	}
	if filepath.IsAbs(m.Image.Store) {
		return m.Image.Store
	}
	return filepath.Join(m.Dir, m.Image.Store)
}
