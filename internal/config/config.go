// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/animusuno/animus-chat/internal/util"
)

const (
	// PlaceholderServerURL is the example URL shipped in templates. It is
	// never a valid server.
	PlaceholderServerURL = "https://your-letta-server.com:8283"

	// DefaultDisplayName is used when the user has not set a name.
	DefaultDisplayName = "User"

	// DefaultVibePrompt is sent to the agent on every vibe run.
	DefaultVibePrompt = "Vibe check: continue with whatever you find most worthwhile right now, then briefly report what you did."

	// DefaultVibeInterval is the default number of seconds between vibe runs.
	DefaultVibeInterval = 300

	// MinVibeInterval is the shortest allowed vibe interval in seconds.
	MinVibeInterval = 10

	// DefaultLogFile is the log file name inside the config directory.
	DefaultLogFile = "animus_chat.log"
)

// =============================================================================
// CONFIG TYPES
// =============================================================================

// Config holds all client settings.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	User    UserConfig    `toml:"user"`
	Agent   AgentConfig   `toml:"agent"`
	Display DisplayConfig `toml:"display"`
	Logging LoggingConfig `toml:"logging"`
	History HistoryConfig `toml:"history"`
	Vibe    VibeConfig    `toml:"vibe"`
}

// ServerConfig locates the Letta server.
type ServerConfig struct {
	URL   string `toml:"url"`
	Token string `toml:"token,omitempty"`

	// TimeoutSeconds bounds non-streaming requests.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// UserConfig describes the local user.
type UserConfig struct {
	DisplayName string `toml:"display_name"`
}

// AgentConfig selects the agent to talk to.
type AgentConfig struct {
	DefaultID string `toml:"default_id"`
}

// DisplayConfig controls rendering.
type DisplayConfig struct {
	ShowReasoning bool `toml:"show_reasoning"`

	// Markdown renders agent replies as markdown in the full-screen UI.
	Markdown bool `toml:"markdown"`

	// Theme is "auto", "dark" or "light".
	Theme string `toml:"theme"`
}

// LoggingConfig controls the log file and console logging.
type LoggingConfig struct {
	Verbose bool   `toml:"verbose"`
	Debug   bool   `toml:"debug"`
	File    string `toml:"file"`
}

// HistoryConfig controls input and conversation history.
type HistoryConfig struct {
	// File stores line-editor input history. Empty disables it.
	File string `toml:"file"`

	// MaxMessages bounds the in-memory conversation.
	MaxMessages int `toml:"max_messages"`
}

// VibeConfig controls autonomous vibe runs.
type VibeConfig struct {
	Prompt          string `toml:"prompt"`
	IntervalSeconds int    `toml:"interval_seconds"`
	ControlFile     string `toml:"control_file"`
	LogFile         string `toml:"log_file"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			URL:            PlaceholderServerURL,
			TimeoutSeconds: 60,
		},
		User: UserConfig{
			DisplayName: DefaultDisplayName,
		},
		Display: DisplayConfig{
			Markdown: true,
			Theme:    "auto",
		},
		History: HistoryConfig{
			MaxMessages: 1000,
		},
		Vibe: VibeConfig{
			Prompt:          DefaultVibePrompt,
			IntervalSeconds: DefaultVibeInterval,
		},
	}
	if dir, err := ConfigDir(); err == nil {
		cfg.Logging.File = filepath.Join(dir, DefaultLogFile)
		cfg.History.File = filepath.Join(dir, "history")
		cfg.Vibe.ControlFile = filepath.Join(dir, "vibe_control.json")
		cfg.Vibe.LogFile = filepath.Join(dir, "vibe_mode.log")
	}
	return cfg
}

// =============================================================================
// PATHS
// =============================================================================

// ConfigDir returns ~/.animus.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".animus"), nil
}

// ConfigPathTOML returns the default config file path.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir creates the config directory with 0700.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o700)
}

// ensureSecurePermissions narrows a credentials file to 0600.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		if err := os.Chmod(path, 0o600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOADING
// =============================================================================

// LoadOptions overrides the default file locations.
type LoadOptions struct {
	// ConfigPath replaces ~/.animus/config.toml.
	ConfigPath string

	// EnvFiles replaces the default .env search list.
	EnvFiles []string
}

// Load builds the configuration from defaults, the TOML file, .env files and
// the environment. It does not validate; callers decide whether an invalid
// configuration is fatal or a reason to run setup.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	path := opts.ConfigPath
	if path == "" {
		p, err := ConfigPathTOML()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := LoadTOML(cfg, path); err != nil {
				return nil, err
			}
		} else if opts.ConfigPath != "" {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	envFiles := opts.EnvFiles
	if envFiles == nil {
		envFiles = DefaultEnvFiles()
	}
	if err := LoadEnv(envFiles...); err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()
	fillDefaults(cfg)
	return cfg, nil
}

// LoadTOML decodes path into cfg.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// fillDefaults restores required values a partial file left empty.
func fillDefaults(cfg *Config) {
	def := Default()

	cfg.Server.URL = strings.TrimSpace(cfg.Server.URL)
	cfg.Server.Token = strings.TrimSpace(cfg.Server.Token)
	if cfg.Server.URL == "" {
		cfg.Server.URL = def.Server.URL
	}
	if cfg.Server.TimeoutSeconds <= 0 {
		cfg.Server.TimeoutSeconds = def.Server.TimeoutSeconds
	}
	if strings.TrimSpace(cfg.User.DisplayName) == "" {
		cfg.User.DisplayName = def.User.DisplayName
	}
	if cfg.Display.Theme == "" {
		cfg.Display.Theme = def.Display.Theme
	}
	if cfg.Logging.File == "" {
		cfg.Logging.File = def.Logging.File
	}
	if cfg.History.MaxMessages <= 0 {
		cfg.History.MaxMessages = def.History.MaxMessages
	}
	if strings.TrimSpace(cfg.Vibe.Prompt) == "" {
		cfg.Vibe.Prompt = def.Vibe.Prompt
	}
	if cfg.Vibe.IntervalSeconds <= 0 {
		cfg.Vibe.IntervalSeconds = def.Vibe.IntervalSeconds
	}
	if cfg.Vibe.IntervalSeconds < MinVibeInterval {
		cfg.Vibe.IntervalSeconds = MinVibeInterval
	}
	if cfg.Vibe.ControlFile == "" {
		cfg.Vibe.ControlFile = def.Vibe.ControlFile
	}
	if cfg.Vibe.LogFile == "" {
		cfg.Vibe.LogFile = def.Vibe.LogFile
	}
}

// ApplyEnvOverrides applies environment variables on top of cfg.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv(EnvServerURL); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv(EnvAPIToken); v != "" {
		c.Server.Token = v
	}
	if v := os.Getenv(EnvDisplayName); v != "" {
		c.User.DisplayName = v
	}
	if v := os.Getenv(EnvDefaultAgentID); v != "" {
		c.Agent.DefaultID = v
	}
	if v := os.Getenv(EnvShowReasoning); v != "" {
		c.Display.ShowReasoning = parseBool(v)
	}
	if v := os.Getenv(EnvVibePrompt); v != "" {
		c.Vibe.Prompt = v
	}
	if v := os.Getenv(EnvVibeInterval); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			c.Vibe.IntervalSeconds = n
		}
	}
	if v := os.Getenv(EnvVibeControlFile); v != "" {
		c.Vibe.ControlFile = v
	}
	if v := os.Getenv(EnvVibeLogFile); v != "" {
		c.Vibe.LogFile = v
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// =============================================================================
// SAVING
// =============================================================================

// Save writes cfg to the default TOML path.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg to path with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# animus-chat configuration file\n")
	buf.WriteString("# Credentials may also live in .env (LETTA_SERVER_URL, LETTA_API_TOKEN)\n")
	buf.WriteString("\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError is a single invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors collects every invalid setting.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate reports whether the client can connect with this configuration.
func (c *Config) Validate() error {
	var errs ValidateErrors

	switch u := strings.TrimSpace(c.Server.URL); {
	case u == "":
		errs = append(errs, ValidationError{"server.url", "is required (set " + EnvServerURL + ")"})
	case u == PlaceholderServerURL:
		errs = append(errs, ValidationError{"server.url", "is still the placeholder; set " + EnvServerURL})
	default:
		parsed, err := url.Parse(u)
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			errs = append(errs, ValidationError{"server.url", fmt.Sprintf("%q is not an http(s) URL", u)})
		}
	}

	if strings.TrimSpace(c.Server.Token) == "" {
		errs = append(errs, ValidationError{"server.token", "is required (set " + EnvAPIToken + ")"})
	}

	switch c.Display.Theme {
	case "auto", "dark", "light":
	default:
		errs = append(errs, ValidationError{"display.theme", fmt.Sprintf("unknown theme %q", c.Display.Theme)})
	}

	if c.Vibe.IntervalSeconds < MinVibeInterval {
		errs = append(errs, ValidationError{"vibe.interval_seconds", fmt.Sprintf("must be at least %d", MinVibeInterval)})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// MaskedToken returns the token with all but its last four characters hidden.
func (c *Config) MaskedToken() string {
	t := c.Server.Token
	if t == "" {
		return "(not set)"
	}
	if len(t) <= 4 {
		return strings.Repeat("*", len(t))
	}
	return strings.Repeat("*", 8) + t[len(t)-4:]
}

// String renders the configuration with the token masked.
func (c *Config) String() string {
	masked := *c
	masked.Server.Token = c.MaskedToken()

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(masked); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return buf.String()
}
