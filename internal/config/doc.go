// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and persistence for the chat
// client.
//
// # Configuration Precedence
//
// Later sources override earlier ones:
//   - Built-in defaults
//   - ~/.animus/config.toml (or the --config path)
//   - .env in the working directory, then ~/.animus/.env
//   - Environment variables (LETTA_*, DISPLAY_NAME, DEFAULT_AGENT_ID, VIBE_*)
//   - Command-line flags, applied by the caller
//
// Values from .env files never override variables already set in the
// process environment.
//
// # Usage
//
//	cfg, err := config.Load(config.LoadOptions{})
//	if err != nil {
//	    return err
//	}
//	if err := cfg.Validate(); err != nil {
//	    // offer the setup wizard
//	}
//
// There is no process-wide instance; the loaded *Config is passed to the
// components that need it.
package config
