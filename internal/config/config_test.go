// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allEnvKeys = []string{
	EnvServerURL, EnvAPIToken, EnvDisplayName, EnvDefaultAgentID, EnvShowReasoning,
	EnvVibePrompt, EnvVibeInterval, EnvVibeControlFile, EnvVibeLogFile,
}

// isolateEnv points HOME at a temp dir and unsets every variable the loader
// reads. The originals are restored when the test ends.
func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	for _, k := range allEnvKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	return home
}

func validConfig() *Config {
	cfg := Default()
	cfg.Server.URL = "https://letta.example.com:8283"
	cfg.Server.Token = "sk-test-token"
	return cfg
}

func TestDefault(t *testing.T) {
	home := isolateEnv(t)
	cfg := Default()

	assert.Equal(t, PlaceholderServerURL, cfg.Server.URL)
	assert.Equal(t, DefaultDisplayName, cfg.User.DisplayName)
	assert.False(t, cfg.Display.ShowReasoning)
	assert.Equal(t, DefaultVibeInterval, cfg.Vibe.IntervalSeconds)
	assert.Equal(t, filepath.Join(home, ".animus", DefaultLogFile), cfg.Logging.File)
	assert.Equal(t, filepath.Join(home, ".animus", "vibe_control.json"), cfg.Vibe.ControlFile)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{"valid", func(*Config) {}, ""},
		{"placeholder url", func(c *Config) { c.Server.URL = PlaceholderServerURL }, "server.url"},
		{"empty url", func(c *Config) { c.Server.URL = "" }, "server.url"},
		{"not http", func(c *Config) { c.Server.URL = "ftp://host" }, "server.url"},
		{"no host", func(c *Config) { c.Server.URL = "localhost" }, "server.url"},
		{"missing token", func(c *Config) { c.Server.Token = "  " }, "server.token"},
		{"bad theme", func(c *Config) { c.Display.Theme = "neon" }, "display.theme"},
		{"short vibe interval", func(c *Config) { c.Vibe.IntervalSeconds = 5 }, "vibe.interval_seconds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var errs ValidateErrors
			require.True(t, errors.As(err, &errs), "want ValidateErrors, got %v", err)
			require.Len(t, errs, 1)
			assert.Equal(t, tt.wantField, errs[0].Field)
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.url")
	assert.Contains(t, err.Error(), "server.token")
}

func TestLoad_Precedence(t *testing.T) {
	home := isolateEnv(t)
	dir := t.TempDir()

	tomlPath := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(`
[server]
url = "https://from-toml:8283"
token = "toml-token"

[user]
display_name = "Toml User"

[display]
show_reasoning = true

[vibe]
interval_seconds = 3
`), 0o600))

	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte(
		"LETTA_API_TOKEN=env-file-token\nDEFAULT_AGENT_ID=agent-from-file\n"), 0o600))

	t.Setenv(EnvDisplayName, "Env User")

	cfg, err := Load(LoadOptions{ConfigPath: tomlPath, EnvFiles: []string{envPath, filepath.Join(dir, "missing.env")}})
	require.NoError(t, err)

	assert.Equal(t, "https://from-toml:8283", cfg.Server.URL)
	assert.Equal(t, "env-file-token", cfg.Server.Token)
	assert.Equal(t, "Env User", cfg.User.DisplayName)
	assert.Equal(t, "agent-from-file", cfg.Agent.DefaultID)
	assert.True(t, cfg.Display.ShowReasoning)
	assert.Equal(t, MinVibeInterval, cfg.Vibe.IntervalSeconds, "interval is clamped to the minimum")
	assert.Equal(t, filepath.Join(home, ".animus", DefaultLogFile), cfg.Logging.File)
}

func TestLoad_EnvFileDoesNotOverrideEnvironment(t *testing.T) {
	isolateEnv(t)
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("LETTA_SERVER_URL=https://file:8283\n"), 0o600))

	t.Setenv(EnvServerURL, "https://process:8283")

	cfg, err := Load(LoadOptions{EnvFiles: []string{envPath}})
	require.NoError(t, err)
	assert.Equal(t, "https://process:8283", cfg.Server.URL)
}

func TestLoad_MissingExplicitConfig(t *testing.T) {
	isolateEnv(t)
	_, err := Load(LoadOptions{ConfigPath: filepath.Join(t.TempDir(), "nope.toml"), EnvFiles: []string{}})
	assert.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	isolateEnv(t)
	cfg, err := Load(LoadOptions{EnvFiles: []string{}})
	require.NoError(t, err)
	assert.Equal(t, PlaceholderServerURL, cfg.Server.URL)
	assert.Error(t, cfg.Validate())
}

func TestApplyEnvOverrides(t *testing.T) {
	isolateEnv(t)
	t.Setenv(EnvShowReasoning, "yes")
	t.Setenv(EnvVibeInterval, "45")
	t.Setenv(EnvVibePrompt, "keep going")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	assert.True(t, cfg.Display.ShowReasoning)
	assert.Equal(t, 45, cfg.Vibe.IntervalSeconds)
	assert.Equal(t, "keep going", cfg.Vibe.Prompt)
}

func TestSaveTOML_RoundTrip(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := validConfig()
	cfg.User.DisplayName = "Sam"
	cfg.Display.ShowReasoning = true
	require.NoError(t, SaveTOML(cfg, path))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	loaded := Default()
	require.NoError(t, LoadTOML(loaded, path))
	assert.Equal(t, cfg.Server, loaded.Server)
	assert.Equal(t, "Sam", loaded.User.DisplayName)
	assert.True(t, loaded.Display.ShowReasoning)
}

func TestSaveEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("KEEP_ME=1\nDEFAULT_AGENT_ID=old\n"), 0o644))

	err := SaveEnv(path, map[string]string{
		EnvServerURL:      "https://letta.example.com:8283",
		EnvAPIToken:       `tok"en`,
		EnvDisplayName:    "Sam Smith",
		EnvDefaultAgentID: "",
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "# Letta chat client configuration"))

	values, err := godotenv.Read(path)
	require.NoError(t, err)
	assert.Equal(t, "1", values["KEEP_ME"])
	assert.Equal(t, "https://letta.example.com:8283", values[EnvServerURL])
	assert.Equal(t, `tok"en`, values[EnvAPIToken])
	assert.Equal(t, "Sam Smith", values[EnvDisplayName])
	_, hasAgent := values[EnvDefaultAgentID]
	assert.False(t, hasAgent)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestEnvValues(t *testing.T) {
	cfg := validConfig()
	values := cfg.EnvValues()
	assert.Equal(t, cfg.Server.URL, values[EnvServerURL])
	assert.NotContains(t, values, EnvDefaultAgentID)

	cfg.Agent.DefaultID = "agent-1"
	assert.Equal(t, "agent-1", cfg.EnvValues()[EnvDefaultAgentID])
}

func TestMaskedToken(t *testing.T) {
	cfg := validConfig()
	assert.Equal(t, "********oken", cfg.MaskedToken())
	assert.NotContains(t, cfg.String(), "sk-test-token")

	cfg.Server.Token = ""
	assert.Equal(t, "(not set)", cfg.MaskedToken())
}
