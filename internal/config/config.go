// Package config loads and saves node configuration, following the
// teacher's DefaultConfig/LoadConfig/SaveConfig shape.
package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// Config holds everything the operator binary needs besides the
// mining/wire-contract constants, which are pinned in the ledger package
// rather than configurable.
type Config struct {
	ListenAddr      string   `json:"listen_addr"`
	Peers           []string `json:"peers"`
	MempoolCapacity int      `json:"mempool_capacity"`
	LogPath         string   `json:"log_path"`
	DashboardAddr   string   `json:"dashboard_addr"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:      "0.0.0.0:9000",
		Peers:           nil,
		MempoolCapacity: 10000,
		LogPath:         "byc-node.log",
		DashboardAddr:   "127.0.0.1:8090",
	}
}

// LoadConfig reads path as JSON, writing out the default configuration
// first if the file does not yet exist.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := SaveConfig(cfg, path); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes cfg to path as indented JSON, creating the parent
// directory if necessary.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks that cfg's fields are usable.
func Validate(cfg *Config) error {
	if cfg.ListenAddr == "" {
		return errors.New("config: listen_addr must not be empty")
	}
	if cfg.MempoolCapacity <= 0 {
		return errors.New("config: mempool_capacity must be positive")
	}
	return nil
}
