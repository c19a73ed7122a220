// Package config provides the simulator configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sarchlab/akita/v4/sim"
)

// ErrConfiguration is returned for configurations or run requests that
// cannot be simulated.
var ErrConfiguration = errors.New("invalid configuration")

// Config holds the knobs of a pipeline simulation.
type Config struct {
	// Forwarding enables the EX/MEM and MEM/WB bypass paths. When false,
	// every read-after-write dependency stalls until the producer has
	// written back. Default: true.
	Forwarding bool `json:"forwarding"`

	// PermissiveMemory turns out-of-range loads into zero reads and
	// out-of-range stores into dropped writes instead of halting.
	// Default: false.
	PermissiveMemory bool `json:"permissive_memory"`

	// MemorySize is the data address-space limit in bytes. 0 allows the
	// full 32-bit space. Default: 0.
	MemorySize uint64 `json:"memory_size"`

	// HaltAddress is the return sentinel. A jump whose target equals it
	// (with bit 0 cleared) stops fetching and drains the pipeline.
	// Default: 0xFFFFFFFF.
	HaltAddress uint32 `json:"halt_address"`

	// ABIRegisters initializes ra, sp and gp before the run. Default: false.
	ABIRegisters bool `json:"abi_registers"`

	// StackPointer is the initial sp when ABIRegisters is set.
	// Default: 0x7ffffff0.
	StackPointer uint32 `json:"stack_pointer"`

	// GlobalPointer is the initial gp when ABIRegisters is set.
	// Default: 0x10000000.
	GlobalPointer uint32 `json:"global_pointer"`

	// ClockFrequency converts cycles into simulated time. Default: 1 GHz.
	ClockFrequency sim.Freq `json:"clock_frequency"`

	// MaxCycles is the cycle budget used when the caller gives none.
	// Default: 100000.
	MaxCycles int `json:"max_cycles"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Forwarding:     true,
		HaltAddress:    0xFFFFFFFF,
		StackPointer:   0x7ffffff0,
		GlobalPointer:  0x10000000,
		ClockFrequency: 1 * sim.GHz,
		MaxCycles:      100000,
	}
}

// Load loads a Config from a JSON file. Fields absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	c := Default()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Save writes the Config to a JSON file.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks that the configuration can be simulated.
func (c *Config) Validate() error {
	if c.ClockFrequency <= 0 {
		return fmt.Errorf("%w: clock_frequency must be > 0", ErrConfiguration)
	}
	if c.MaxCycles < 0 {
		return fmt.Errorf("%w: max_cycles must be >= 0", ErrConfiguration)
	}
	if c.MemorySize != 0 && c.MemorySize%4 != 0 {
		return fmt.Errorf("%w: memory_size must be a multiple of 4", ErrConfiguration)
	}
	if c.MemorySize > 1<<32 {
		return fmt.Errorf("%w: memory_size exceeds the 32-bit address space", ErrConfiguration)
	}
	return nil
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// Seconds converts a cycle count into simulated seconds at the configured
// clock frequency.
func (c *Config) Seconds(cycles uint64) float64 {
	return float64(cycles) / float64(c.ClockFrequency)
}
