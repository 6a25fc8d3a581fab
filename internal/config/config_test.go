package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("GERT_CONFIG", path)
	t.Setenv("GERT_HOST", "")
	t.Setenv("GERT_USERNAME", "")
	t.Setenv("GERT_PASSWORD", "")
	t.Setenv("GERT_AI_TOOL", "")

	creds := &Credentials{
		Host:     "gerrit.example.com/",
		Username: "dev",
		Password: "hunter2",
		AITool:   "claude",
	}
	require.NoError(t, Save(creds))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Require()
	require.NoError(t, err)
	assert.Equal(t, "https://gerrit.example.com", loaded.Host)
	assert.Equal(t, "dev", loaded.Username)
	assert.Equal(t, "hunter2", loaded.Password)
	assert.Equal(t, "claude", loaded.AITool)
}

func TestEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("GERT_CONFIG", path)
	require.NoError(t, Save(&Credentials{Host: "a.example.com", Username: "u", Password: "p"}))

	t.Setenv("GERT_PASSWORD", "override")
	t.Setenv("GERT_HOST", "b.example.com")

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "https://b.example.com", loaded.Host)
	assert.Equal(t, "override", loaded.Password)
}

func TestRequireFailsWhenIncomplete(t *testing.T) {
	t.Setenv("GERT_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("GERT_HOST", "")
	t.Setenv("GERT_USERNAME", "")
	t.Setenv("GERT_PASSWORD", "")

	_, err := Require()
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSaveRejectsIncomplete(t *testing.T) {
	t.Setenv("GERT_CONFIG", filepath.Join(t.TempDir(), "config.yaml"))
	err := Save(&Credentials{Host: "h.example.com"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
