// Package config loads flowgraph.yaml, the .env file and FLOWGRAPH_*
// environment overrides.
package config

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the manifest looked up by Discover.
const FileName = "flowgraph.yaml"

// Environment overrides.
const (
	EnvTraces   = "FLOWGRAPH_TRACES"
	EnvListen   = "FLOWGRAPH_LISTEN"
	EnvNodeDump = "FLOWGRAPH_NODE_DUMP"
	EnvLogLevel = "FLOWGRAPH_LOG_LEVEL"
)

// Config is the runtime configuration shared by the CLI, the server and the
// watch view.
type Config struct {
	Traces   string   `yaml:"traces,omitempty"`   // directory of trace files
	Listen   string   `yaml:"listen,omitempty"`   // HTTP listen address
	Poll     Duration `yaml:"poll,omitempty"`     // watch refresh interval
	Dump     bool     `yaml:"dump,omitempty"`     // log every scan event
	LogLevel string   `yaml:"logLevel,omitempty"` // debug, info, warn, error

	// Root is the directory holding the manifest; set after loading.
	Root string `yaml:"-"`
}

// Duration decodes "2s" style YAML values.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: invalid duration %q", node.Line, node.Value)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Default returns the configuration used when no manifest exists.
func Default() *Config {
	return &Config{
		Traces:   ".",
		Listen:   ":3000",
		Poll:     Duration(2 * time.Second),
		LogLevel: "info",
	}
}

// Load decodes a manifest strictly on top of the defaults.
func Load(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Poll <= 0 {
		return nil, fmt.Errorf("parse config: poll must be positive")
	}
	return cfg, nil
}

// LoadFile reads a manifest. Relative trace directories resolve against the
// manifest's directory.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Root = filepath.Dir(path)
	if !filepath.IsAbs(cfg.Traces) {
		cfg.Traces = filepath.Join(cfg.Root, cfg.Traces)
	}
	return cfg, nil
}

// Discover walks up from dir to the nearest flowgraph.yaml. Without one it
// returns the defaults rooted at dir.
func Discover(dir string) (*Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	for cur := abs; ; {
		candidate := filepath.Join(cur, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return LoadFile(candidate)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}
	cfg := Default()
	cfg.Root = abs
	cfg.Traces = abs
	return cfg, nil
}

// ApplyEnv overlays FLOWGRAPH_* variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvTraces); v != "" {
		c.Traces = v
	}
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvNodeDump); v != "" {
		if on, err := strconv.ParseBool(v); err == nil {
			c.Dump = on
		}
	}
}

// LoadDotEnv reads KEY=VALUE lines from path and sets the variables that
// are not already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		val = strings.Trim(strings.TrimSpace(val), `"'`)
		// existing variables win
		if _, set := os.LookupEnv(key); !set {
			os.Setenv(key, val)
		}
	}
	return scanner.Err()
}
