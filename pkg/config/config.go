package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	DefaultConfigFileName = "CONFIG"
	CurrentConfigVersion  = 1
)

var (
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrConfigNotFound    = errors.New("config file not found")
	ErrInvalidConfigFile = errors.New("invalid config file")
)

type Config struct {
	Version int `json:"version"`

	// MemTable configuration
	MemTableSize   int64 `json:"memtable_size"`
	MaxMemTables   int   `json:"max_memtables"`
	MaxMemTableAge int64 `json:"max_memtable_age"`

	// Block configuration
	BlockSize            int `json:"block_size"`
	BlockRestartInterval int `json:"block_restart_interval"`

	// Filter configuration
	BloomBitsPerKey int `json:"bloom_bits_per_key"`

	mu sync.RWMutex
}

// NewDefaultConfig creates a Config with recommended default values
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,

		// MemTable defaults
		MemTableSize:   32 * 1024 * 1024, // 32MB
		MaxMemTables:   4,
		MaxMemTableAge: 600, // 10 minutes

		// Block defaults
		BlockSize:            16 * 1024, // 16KB
		BlockRestartInterval: 16,        // Restart points every 16 keys

		// Filter defaults
		BloomBitsPerKey: 10, // Roughly 1% false positives
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.Version <= 0 {
		return fmt.Errorf("%w: invalid version %d", ErrInvalidConfig, c.Version)
	}

	if c.MemTableSize <= 0 {
		return fmt.Errorf("%w: MemTable size must be positive", ErrInvalidConfig)
	}

	if c.MaxMemTables <= 0 {
		return fmt.Errorf("%w: Max MemTables must be positive", ErrInvalidConfig)
	}

	if c.MaxMemTableAge < 0 {
		return fmt.Errorf("%w: Max MemTable age cannot be negative", ErrInvalidConfig)
	}

	if c.BlockSize <= 0 {
		return fmt.Errorf("%w: Block size must be positive", ErrInvalidConfig)
	}

	if c.BlockRestartInterval < 1 {
		return fmt.Errorf("%w: Block restart interval must be at least 1", ErrInvalidConfig)
	}

	if c.BloomBitsPerKey <= 0 {
		return fmt.Errorf("%w: Bloom bits per key must be positive", ErrInvalidConfig)
	}

	return nil
}

// LoadConfig loads the configuration from the config file in dir
func LoadConfig(dir string) (*Config, error) {
	configPath := filepath.Join(dir, DefaultConfigFileName)
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfigFile, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the config file in dir. The write
// goes through a temporary file and a rename so a crash never leaves
// a partial config behind.
func (c *Config) Save(dir string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	configPath := filepath.Join(dir, DefaultConfigFileName)
	tempPath := configPath + ".tmp"

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		return fmt.Errorf("failed to rename config file: %w", err)
	}

	return nil
}

// Update applies the given function to modify the configuration
func (c *Config) Update(fn func(*Config)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c)
}
