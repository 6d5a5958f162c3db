// Package config holds the settings of a disassembly session.
package config

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/sarchlab/x86dis/fetch"
	"github.com/sarchlab/x86dis/insts"
)

// Config holds the settings of a disassembly session.
type Config struct {
	// Platform is the addressing capability of the target: 16, 32 or 64.
	// Default: 64.
	Platform int `json:"platform"`

	// MaxInstructions stops a session after this many instructions.
	// Zero means no limit.
	MaxInstructions int `json:"max_instructions"`

	// StopOnUnimplemented ends a session at the first opcode without a
	// handler instead of skipping a byte.
	StopOnUnimplemented bool `json:"stop_on_unimplemented"`

	// CrossCheck compares every instruction length with x86asm.
	CrossCheck bool `json:"cross_check"`

	// Verbosity is the logr verbosity; 1 enables decoder state dumps.
	Verbosity int `json:"verbosity"`

	// Fetch configures the code fetch cache.
	Fetch FetchConfig `json:"fetch"`
}

// FetchConfig enables and sizes the code fetch cache.
type FetchConfig struct {
	Enabled bool `json:"enabled"`
	fetch.Config
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() *Config {
	return &Config{
		Platform: int(insts.Bits64),
		Fetch: FetchConfig{
			Enabled: true,
			Config:  fetch.DefaultConfig(),
		},
	}
}

// LoadConfig loads a Config from a YAML or JSON file. Missing fields keep
// their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.UnmarshalStrict(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a Config to a YAML file.
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that all values are in range.
func (c *Config) Validate() error {
	switch c.Platform {
	case 16, 32, 64:
	default:
		return fmt.Errorf("platform must be 16, 32 or 64, got %d", c.Platform)
	}
	if c.MaxInstructions < 0 {
		return fmt.Errorf("max_instructions must be >= 0")
	}
	if c.Verbosity < 0 {
		return fmt.Errorf("verbosity must be >= 0")
	}
	if c.Fetch.Enabled {
		if err := c.Fetch.Validate(); err != nil {
			return fmt.Errorf("fetch: %w", err)
		}
	}
	return nil
}

// Bits returns the platform as a decoder platform width.
func (c *Config) Bits() insts.Bits {
	return insts.Bits(c.Platform)
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
