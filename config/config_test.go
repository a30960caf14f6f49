package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFileOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("printer_name: \"Office Printer\"\nlisten_addr: \":8631\"\n"), 0o644))

	cfg := Default()
	require.NoError(t, LoadFile(&cfg, path))

	assert.Equal(t, "Office Printer", cfg.PrinterName)
	assert.Equal(t, ":8631", cfg.ListenAddr)
	assert.Equal(t, "spool", cfg.JobDir) // untouched default survives
}

func TestLoadFileMissingIsNotError(t *testing.T) {
	cfg := Default()
	err := LoadFile(&cfg, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.NoError(t, err)
}

func TestDefaultConfig(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":631", cfg.ListenAddr)
	assert.True(t, cfg.MDNSEnabled)
}
