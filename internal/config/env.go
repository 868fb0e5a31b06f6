// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"github.com/animusuno/animus-chat/internal/util"
)

// Environment variable names.
const (
	EnvServerURL       = "LETTA_SERVER_URL"
	EnvAPIToken        = "LETTA_API_TOKEN"
	EnvDisplayName     = "DISPLAY_NAME"
	EnvDefaultAgentID  = "DEFAULT_AGENT_ID"
	EnvShowReasoning   = "ANIMUS_SHOW_REASONING"
	EnvVibePrompt      = "VIBE_MODE_PROMPT"
	EnvVibeInterval    = "VIBE_INTERVAL_SECONDS"
	EnvVibeControlFile = "VIBE_CONTROL_FILE"
	EnvVibeLogFile     = "VIBE_LOG_FILE"
)

// DefaultEnvFiles returns the .env files searched by Load, highest priority
// first.
func DefaultEnvFiles() []string {
	files := []string{".env"}
	if dir, err := ConfigDir(); err == nil {
		files = append(files, filepath.Join(dir, ".env"))
	}
	return files
}

// LoadEnv loads the existing files among paths into the process environment.
// Variables that are already set win, and so do earlier files.
func LoadEnv(paths ...string) error {
	var existing []string
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// EnvValues returns the settings that setup persists to .env.
func (c *Config) EnvValues() map[string]string {
	values := map[string]string{
		EnvServerURL:   c.Server.URL,
		EnvAPIToken:    c.Server.Token,
		EnvDisplayName: c.User.DisplayName,
	}
	if c.Agent.DefaultID != "" {
		values[EnvDefaultAgentID] = c.Agent.DefaultID
	}
	return values
}

// SaveEnv merges values into the .env file at path and writes it with 0600
// permissions. Keys already in the file that are not in values are kept;
// empty values remove a key.
func SaveEnv(path string, values map[string]string) error {
	merged, err := godotenv.Read(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		merged = make(map[string]string)
	}

	for k, v := range values {
		if strings.TrimSpace(v) == "" {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}

	body, err := godotenv.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to encode .env: %w", err)
	}

	content := "# Letta chat client configuration\n" +
		"# Written by animus setup\n\n" +
		body + "\n"
	if err := util.AtomicWriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
