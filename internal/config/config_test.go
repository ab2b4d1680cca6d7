package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManagerCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	m, err := NewManager(path)
	require.NoError(t, err)

	cfg := m.Get()
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 1, cfg.ScaleFactor)
	assert.Equal(t, 8080, cfg.PreviewPort)

	// The default config was persisted.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestManagerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	m, err := NewManager(path)
	require.NoError(t, err)

	m.SetLogLevel("debug")
	m.SetScaleFactor(2)
	m.SetWorkers(4)
	m.SetPreviewPort(9090)
	require.NoError(t, m.Save())

	reloaded, err := NewManager(path)
	require.NoError(t, err)

	cfg := reloaded.Get()
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 2, cfg.ScaleFactor)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 9090, cfg.PreviewPort)
}

func TestLoadClampsScaleFactor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scale_factor: -2\n"), 0644))

	m, err := NewManager(path)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Get().ScaleFactor)
}
