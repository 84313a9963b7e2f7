package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "0.0.0.0:9000", cfg.ListenAddr)
	assert.Empty(t, cfg.Peers)
	assert.Equal(t, 10000, cfg.MempoolCapacity)
	assert.Equal(t, "byc-node.log", cfg.LogPath)
	assert.Equal(t, "127.0.0.1:8090", cfg.DashboardAddr)
	require.NoError(t, Validate(cfg))
}

func TestLoadConfigWritesDefaultWhenAbsent(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "byc-node.json")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestSaveAndLoadConfigRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "byc-node.json")

	cfg := DefaultConfig()
	cfg.ListenAddr = "0.0.0.0:9100"
	cfg.Peers = []string{"127.0.0.1:9101", "127.0.0.1:9102"}
	cfg.MempoolCapacity = 500

	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenAddr = ""
	assert.Error(t, Validate(cfg))

	cfg = DefaultConfig()
	cfg.MempoolCapacity = 0
	assert.Error(t, Validate(cfg))
}
