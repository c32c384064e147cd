// Package config loads the YAML file describing the engines chessuci can
// drive and how to analyse with them.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"chessuci/process"
	"chessuci/uci"
)

const (
	DefaultDepth   = 18
	DefaultMaxTime = 30 * time.Second
	DefaultMultiPV = 1
)

type Config struct {
	LogLevel string   `yaml:"log_level"`
	Engines  []Engine `yaml:"engines"`
	Analysis Analysis `yaml:"analysis"`
}

type Engine struct {
	Name             string        `yaml:"name"`
	Path             string        `yaml:"path"`
	Args             []string      `yaml:"args,omitempty"`
	Dir              string        `yaml:"dir,omitempty"`
	TerminateTimeout time.Duration `yaml:"terminate_timeout,omitempty"`
	Options          []Option      `yaml:"options,omitempty"`
}

// Option is sent as "setoption" after the handshake. A nil Value sends the
// command without a value part, which is how buttons are pressed.
type Option struct {
	Name  string  `yaml:"name"`
	Value *string `yaml:"value,omitempty"`
}

type Analysis struct {
	Depth   int           `yaml:"depth"`
	MaxTime time.Duration `yaml:"max_time"`
	MultiPV int           `yaml:"multipv"`
}

// Load reads, defaults and validates the file at filename.
func Load(filename string) (*Config, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("'%s': %w", filename, err)
	}

	cfg, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("'%s': %w", filename, err)
	}
	return cfg, nil
}

func Parse(b []byte) (*Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = logrus.InfoLevel.String()
	}
	if c.Analysis.Depth == 0 {
		c.Analysis.Depth = DefaultDepth
	}
	if c.Analysis.MaxTime == 0 {
		c.Analysis.MaxTime = DefaultMaxTime
	}
	if c.Analysis.MultiPV == 0 {
		c.Analysis.MultiPV = DefaultMultiPV
	}
	for i := range c.Engines {
		if c.Engines[i].TerminateTimeout == 0 {
			c.Engines[i].TerminateTimeout = process.DefaultTerminateTimeout
		}
	}
}

func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.Analysis.Depth < 0 {
		return fmt.Errorf("analysis.depth: must be positive, got %d", c.Analysis.Depth)
	}
	if c.Analysis.MaxTime < 0 {
		return fmt.Errorf("analysis.max_time: must be positive, got %v", c.Analysis.MaxTime)
	}
	if c.Analysis.MultiPV < 1 {
		return fmt.Errorf("analysis.multipv: must be at least 1, got %d", c.Analysis.MultiPV)
	}

	seen := make(map[string]struct{})
	for i, e := range c.Engines {
		if e.Name == "" {
			return fmt.Errorf("engines[%d]: missing name", i)
		}
		if _, found := seen[e.Name]; found {
			return fmt.Errorf("engines[%d]: duplicate name '%s'", i, e.Name)
		}
		seen[e.Name] = struct{}{}

		if e.Path == "" {
			return fmt.Errorf("engine '%s': missing path", e.Name)
		}
		if e.TerminateTimeout < 0 {
			return fmt.Errorf("engine '%s': terminate_timeout must be positive", e.Name)
		}
		for j, opt := range e.Options {
			if opt.Name == "" {
				return fmt.Errorf("engine '%s': options[%d]: missing name", e.Name, j)
			}
		}
	}

	return nil
}

// Engine returns the engine called name, or the first one when name is
// empty.
func (c *Config) Engine(name string) (Engine, error) {
	if len(c.Engines) == 0 {
		return Engine{}, errors.New("no engines configured")
	}
	if name == "" {
		return c.Engines[0], nil
	}
	for _, e := range c.Engines {
		if e.Name == name {
			return e, nil
		}
	}
	return Engine{}, fmt.Errorf("engine '%s' not configured", name)
}

func (e Engine) Params() process.Params {
	return process.Params{
		Executable: e.Path,
		Args:       e.Args,
		Dir:        e.Dir,
	}
}

func (e Engine) SetOptions() []uci.SetOption {
	cmds := make([]uci.SetOption, 0, len(e.Options))
	for _, opt := range e.Options {
		cmds = append(cmds, uci.SetOption{Name: opt.Name, Value: opt.Value})
	}
	return cmds
}
