// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points ConfigDir at a temp directory and clears overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("RAGDESK_HOME", dir)
	for _, k := range []string{
		"RAGDESK_BACKEND_URL", "RAGDESK_BACKEND_TIMEOUT", "RAGDESK_BACKEND_RETRIES",
		"RAGDESK_RATE_LIMIT", "RAGDESK_STORAGE", "RAGDESK_STORAGE_PATH",
		"RAGDESK_TOKEN_INTERVAL_MS", "RAGDESK_STYLE", "RAGDESK_DOCUMENTS_DIR",
		"RAGDESK_LOG_LEVEL", "RAGDESK_LOG_FILE", "RAGDESK_DEBUG",
	} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return dir
}

// =============================================================================
// DEFAULTS
// =============================================================================

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 20*time.Millisecond, cfg.TokenInterval())
	assert.Equal(t, 2*time.Minute, cfg.BackendTimeout())
	assert.Equal(t, "sqlite", cfg.Storage.Driver)
}

func TestLoad_NoFilesUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

// =============================================================================
// FILE FORMATS
// =============================================================================

func TestLoad_TOML(t *testing.T) {
	dir := isolate(t)
	data := `
[backend]
url = "http://rag.local:9000"
max_retries = 1

[stream]
token_interval_ms = 0
style = "plain"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(data), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://rag.local:9000", cfg.Backend.URL)
	assert.Equal(t, 1, cfg.Backend.MaxRetries)
	assert.Zero(t, cfg.TokenInterval())
	assert.Equal(t, "plain", cfg.Stream.Style)
	assert.Equal(t, "sqlite", cfg.Storage.Driver, "missing sections are filled")
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_JSONFallback(t *testing.T) {
	dir := isolate(t)
	data := `{"storage": {"driver": "json", "path": "/tmp/chats"}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(data), 0o600))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Storage.Driver)
	path, err := cfg.StoragePath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/chats", path)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[backend\n"), 0o600))

	_, err := Load()
	assert.Error(t, err)
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg := Default()
	cfg.Backend.URL = "https://rag.example.com"
	cfg.Documents.Dir = "/srv/docs"
	cfg.Documents.Include = []string{"*.pdf"}
	require.NoError(t, SaveTOML(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	if os.PathSeparator == '/' {
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSaveJSON_RoundTrip(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := Default()
	cfg.Log.Level = "debug"
	require.NoError(t, SaveJSON(cfg, path))

	loaded, err := LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", loaded.Log.Level)
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("RAGDESK_BACKEND_URL", "http://10.0.0.5:8000")
	t.Setenv("RAGDESK_STORAGE", "json")
	t.Setenv("RAGDESK_TOKEN_INTERVAL_MS", "0")
	t.Setenv("RAGDESK_RATE_LIMIT", "2.5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:8000", cfg.Backend.URL)
	assert.Equal(t, "json", cfg.Storage.Driver)
	assert.Zero(t, cfg.Stream.TokenIntervalMs)
	assert.Equal(t, 2.5, cfg.Backend.RateLimit)
}

func TestApplyEnvOverrides_Debug(t *testing.T) {
	isolate(t)
	t.Setenv("RAGDESK_DEBUG", "true")

	cfg := Default()
	require.NoError(t, cfg.ApplyEnvOverrides())
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Development)
}

func TestApplyEnvOverrides_BadValue(t *testing.T) {
	isolate(t)
	t.Setenv("RAGDESK_BACKEND_RETRIES", "many")

	assert.Error(t, Default().ApplyEnvOverrides())
}

// =============================================================================
// VALIDATION
// =============================================================================

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Backend.URL = "ftp://host"
	cfg.Storage.Driver = "postgres"
	cfg.Stream.Style = "neon"
	cfg.Documents.Include = []string{"[bad"}
	cfg.Log.Level = "loud"

	err := cfg.Validate()
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	fields := make([]string, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, e.Field)
	}
	assert.ElementsMatch(t, []string{
		"backend.url", "storage.driver", "stream.style", "documents.include", "log.level",
	}, fields)
}

func TestValidate_Ranges(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"negative timeout", func(c *Config) { c.Backend.TimeoutSecs = -1 }, "backend.timeout_secs"},
		{"too many retries", func(c *Config) { c.Backend.MaxRetries = 50 }, "backend.max_retries"},
		{"slow tokens", func(c *Config) { c.Stream.TokenIntervalMs = 5000 }, "stream.token_interval_ms"},
		{"missing host", func(c *Config) { c.Backend.URL = "http://" }, "backend.url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs))
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestValidate_OfflineNeedsLoopback(t *testing.T) {
	cfg := Default()
	cfg.Backend.Offline = true
	require.NoError(t, cfg.Validate())

	cfg.Backend.URL = "https://rag.example.com"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend.url")
	assert.Contains(t, err.Error(), "offline mode")
}

func TestEnvOverrides_Offline(t *testing.T) {
	t.Setenv("RAGDESK_OFFLINE", "true")
	cfg := Default()
	require.NoError(t, cfg.ApplyEnvOverrides())
	assert.True(t, cfg.Backend.Offline)
}

// =============================================================================
// GET / SET
// =============================================================================

func TestGetSet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("backend.url", "http://x:1"))
	require.NoError(t, cfg.Set("stream.token_interval_ms", "5"))
	require.NoError(t, cfg.Set("log.development", "yes"))
	require.NoError(t, cfg.Set("documents.include", "*.pdf, *.md"))

	v, err := cfg.Get("backend.url")
	require.NoError(t, err)
	assert.Equal(t, "http://x:1", v)
	assert.Equal(t, 5, cfg.Stream.TokenIntervalMs)
	assert.True(t, cfg.Log.Development)
	assert.Equal(t, []string{"*.pdf", "*.md"}, cfg.Documents.Include)

	_, err = cfg.Get("backend.nope")
	assert.Error(t, err)
	assert.Error(t, cfg.Set("backend.url.deeper", "x"))
	assert.Error(t, cfg.Set("stream.word_wrap", "wide"))
}

func TestKeys_AllResolvable(t *testing.T) {
	cfg := Default()
	keys := Keys()
	assert.Contains(t, keys, "backend.url")
	assert.Contains(t, keys, "documents.debounce_ms")
	for _, k := range keys {
		_, err := cfg.Get(k)
		assert.NoError(t, err, k)
	}
}

func TestClone_Independent(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.Documents.Include[0] = "changed"
	assert.NotEqual(t, "changed", cfg.Documents.Include[0])
}
