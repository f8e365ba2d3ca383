package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	t.Parallel()
	require.NoError(t, Default().Validate())
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "modwire.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
environment: production
logLevel: warn
roots: [api, lib]
workers: 8
`), 0o644))

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, []string{"api", "lib"}, cfg.Roots)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, ".modwire", cfg.ArtifactDir, "unset keys keep their default")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MODWIRE_LOG_LEVEL", "debug")
	t.Setenv("MODWIRE_ROOTS", " a , b ,")
	t.Setenv("MODWIRE_WORKERS", "2")
	t.Setenv("MODWIRE_ARTIFACT_CACHE", "not-a-number")

	_, err := Load(filepath.Join("testdata", "missing.yaml"))
	require.Error(t, err, "an explicit file must exist")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []string{"a", "b"}, cfg.Roots)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 128, cfg.ArtifactCache)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(p, []byte("logLevel: loud\nworkers: 0\n"), 0o644))

	_, err := Load(p)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalid))
	assert.Contains(t, err.Error(), "LogLevel failed oneof")
	assert.Contains(t, err.Error(), "Workers failed gte")

	require.NoError(t, os.WriteFile(p, []byte("roots: [\n"), 0o644))
	_, err = Load(p)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalid))
}
