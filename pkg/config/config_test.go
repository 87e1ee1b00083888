package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Version != CurrentConfigVersion {
		t.Errorf("expected version %d, got %d", CurrentConfigVersion, cfg.Version)
	}

	// Test default values
	if cfg.MemTableSize != 32*1024*1024 {
		t.Errorf("expected memtable size %d, got %d", 32*1024*1024, cfg.MemTableSize)
	}

	if cfg.BlockSize != 16*1024 {
		t.Errorf("expected block size %d, got %d", 16*1024, cfg.BlockSize)
	}

	if cfg.BlockRestartInterval != 16 {
		t.Errorf("expected restart interval 16, got %d", cfg.BlockRestartInterval)
	}

	if cfg.BloomBitsPerKey != 10 {
		t.Errorf("expected bloom bits per key 10, got %d", cfg.BloomBitsPerKey)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := NewDefaultConfig()

	// Valid config
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}

	// Test invalid configs
	testCases := []struct {
		name     string
		mutate   func(*Config)
		expected string
	}{
		{
			name: "invalid version",
			mutate: func(c *Config) {
				c.Version = 0
			},
			expected: "invalid configuration: invalid version 0",
		},
		{
			name: "zero memtable size",
			mutate: func(c *Config) {
				c.MemTableSize = 0
			},
			expected: "invalid configuration: MemTable size must be positive",
		},
		{
			name: "negative max memtables",
			mutate: func(c *Config) {
				c.MaxMemTables = -1
			},
			expected: "invalid configuration: Max MemTables must be positive",
		},
		{
			name: "negative memtable age",
			mutate: func(c *Config) {
				c.MaxMemTableAge = -1
			},
			expected: "invalid configuration: Max MemTable age cannot be negative",
		},
		{
			name: "zero block size",
			mutate: func(c *Config) {
				c.BlockSize = 0
			},
			expected: "invalid configuration: Block size must be positive",
		},
		{
			name: "zero restart interval",
			mutate: func(c *Config) {
				c.BlockRestartInterval = 0
			},
			expected: "invalid configuration: Block restart interval must be at least 1",
		},
		{
			name: "zero bloom bits",
			mutate: func(c *Config) {
				c.BloomBitsPerKey = 0
			},
			expected: "invalid configuration: Bloom bits per key must be positive",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error, got nil")
			}

			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected error to wrap ErrInvalidConfig, got %v", err)
			}

			if err.Error() != tc.expected {
				t.Errorf("expected error %q, got %q", tc.expected, err.Error())
			}
		})
	}
}

func TestConfigSaveLoad(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	// Create a config and save it
	cfg := NewDefaultConfig()
	cfg.MemTableSize = 16 * 1024 * 1024 // 16MB
	cfg.BlockRestartInterval = 8

	if err := cfg.Save(tempDir); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	// Load the config
	loadedCfg, err := LoadConfig(tempDir)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// Verify loaded config
	if loadedCfg.MemTableSize != cfg.MemTableSize {
		t.Errorf("expected memtable size %d, got %d", cfg.MemTableSize, loadedCfg.MemTableSize)
	}

	if loadedCfg.BlockRestartInterval != cfg.BlockRestartInterval {
		t.Errorf("expected restart interval %d, got %d", cfg.BlockRestartInterval, loadedCfg.BlockRestartInterval)
	}

	// Test loading from a directory with no config file
	nonExistentDir := filepath.Join(tempDir, "nonexistent")
	_, err = LoadConfig(nonExistentDir)
	if err != ErrConfigNotFound {
		t.Errorf("expected ErrConfigNotFound, got %v", err)
	}
}

func TestConfigLoadRejectsInvalid(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	// Not JSON at all
	configPath := filepath.Join(tempDir, DefaultConfigFileName)
	if err := os.WriteFile(configPath, []byte("not json"), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err = LoadConfig(tempDir)
	if !errors.Is(err, ErrInvalidConfigFile) {
		t.Errorf("expected ErrInvalidConfigFile for malformed JSON, got %v", err)
	}

	// Valid JSON, invalid values
	if err := os.WriteFile(configPath, []byte(`{"version": 1, "memtable_size": -5}`), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	_, err = LoadConfig(tempDir)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for bad values, got %v", err)
	}
}

func TestConfigSaveRejectsInvalid(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	cfg := NewDefaultConfig()
	cfg.BlockRestartInterval = 0

	if err := cfg.Save(tempDir); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}

	// Nothing should have been written
	if _, err := os.Stat(filepath.Join(tempDir, DefaultConfigFileName)); !os.IsNotExist(err) {
		t.Errorf("expected no config file after failed save, got stat err %v", err)
	}
}

func TestConfigUpdate(t *testing.T) {
	cfg := NewDefaultConfig()

	// Update config
	cfg.Update(func(c *Config) {
		c.MemTableSize = 64 * 1024 * 1024 // 64MB
		c.MaxMemTables = 8
	})

	// Verify update
	if cfg.MemTableSize != 64*1024*1024 {
		t.Errorf("expected memtable size %d, got %d", 64*1024*1024, cfg.MemTableSize)
	}

	if cfg.MaxMemTables != 8 {
		t.Errorf("expected max memtables %d, got %d", 8, cfg.MaxMemTables)
	}
}
