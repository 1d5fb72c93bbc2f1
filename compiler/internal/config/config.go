// Package config handles jmm.toml compiler configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

const FileName = "jmm.toml"

type Config struct {
	// InputFormat is the encoding of the tree the parser hands over: json or cbor.
	InputFormat string `toml:"input_format"`
	// Analyzer selects the registered semantic analyzer.
	Analyzer  string `toml:"analyzer"`
	OutputDir string `toml:"output_dir"`
	// StackLimit is the operand stack size every jasmin method declares.
	StackLimit    int   `toml:"stack_limit"`
	StrictSymbols bool  `toml:"strict_symbols"`
	VerifyLabels  bool  `toml:"verify_labels"`
	Log           Log   `toml:"log"`
	Cache         Cache `toml:"cache"`

	// Dir is the directory containing the jmm.toml file, empty for the defaults.
	Dir string `toml:"-"`
}

type Log struct {
	Verbosity int    `toml:"verbosity"`
	Path      string `toml:"path"`
}

type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Default returns the configuration used without a jmm.toml file.
func Default() *Config {
	c := &Config{VerifyLabels: true, Log: Log{Verbosity: 1}}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.InputFormat == "" {
		c.InputFormat = "json"
	}
	if c.Analyzer == "" {
		c.Analyzer = "jmm"
	}
	if c.OutputDir == "" {
		c.OutputDir = "out"
	}
	if c.StackLimit <= 0 {
		c.StackLimit = 99
	}
	if c.Cache.Path == "" {
		c.Cache.Path = filepath.Join(".jmm", "cache.db")
	}
}

// Load parses the jmm.toml file in dir.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return Parse(data, dir)
}

// Parse decodes a configuration file body. Keys missing from data keep their default value.
func Parse(data []byte, dir string) (*Config, error) {
	c := Default()
	if _, err := toml.Decode(string(data), c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", filepath.Join(dir, FileName), err)
	}
	c.applyDefaults()
	if c.InputFormat != "json" && c.InputFormat != "cbor" {
		return nil, fmt.Errorf("unknown input_format %q, expected json or cbor", c.InputFormat)
	}
	if dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
		}
		c.Dir = abs
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a jmm.toml file and loads it. Without one it returns the
// defaults.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// Resolve makes a configured path absolute, relative to the configuration directory.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.Dir == "" {
		return path
	}
	return filepath.Join(c.Dir, path)
}

// Fingerprint identifies the settings that change compiler output.
func (c *Config) Fingerprint() string {
	return "analyzer=" + c.Analyzer + ";stack=" + strconv.Itoa(c.StackLimit) +
		";strict=" + strconv.FormatBool(c.StrictSymbols) + ";labels=" + strconv.FormatBool(c.VerifyLabels)
}
