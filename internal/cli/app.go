// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/animusuno/animus-chat/internal/config"
	"github.com/animusuno/animus-chat/internal/letta"
	"github.com/animusuno/animus-chat/internal/logging"
)

// app is the per-command runtime: configuration plus logger.
type app struct {
	opts     *globalOptions
	cfg      *config.Config
	logger   *slog.Logger
	closeLog func()
}

// loadConfig loads the configuration and applies the global flags.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{
		ConfigPath: o.configPath,
		EnvFiles:   o.envFiles,
	})
	if err != nil {
		return nil, &CommandError{Command: "config", Reason: "failed to load", Code: ExitConfigError, Err: err}
	}
	if o.verbose {
		cfg.Logging.Verbose = true
	}
	if o.debug {
		cfg.Logging.Debug = true
	}
	if o.reasoning {
		cfg.Display.ShowReasoning = true
	}
	if o.agent != "" {
		cfg.Agent.DefaultID = o.agent
	}
	return cfg, nil
}

// newApp loads configuration and opens the log. logFile overrides the
// configured log file when non-empty.
func (o *globalOptions) newApp(logFile string) (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	if logFile == "" {
		logFile = cfg.Logging.File
	}

	logger, closeLog, err := logging.New(logging.Options{
		Verbose: cfg.Logging.Verbose,
		Debug:   cfg.Logging.Debug,
		File:    logFile,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning:"), err)
	}
	logger.Debug("configuration loaded", "server", cfg.Server.URL, "agent", cfg.Agent.DefaultID)

	return &app{opts: o, cfg: cfg, logger: logger, closeLog: closeLog}, nil
}

func (a *app) close() {
	if a.closeLog != nil {
		a.closeLog()
	}
}

// newClient creates a Letta client from the configuration.
func (a *app) newClient() *letta.Client {
	return newClient(a.cfg, a.logger)
}

func newClient(cfg *config.Config, logger *slog.Logger) *letta.Client {
	c := letta.NewClient(cfg.Server.URL, cfg.Server.Token).
		WithLogger(logger).
		WithAgent(cfg.Agent.DefaultID)
	if cfg.Server.TimeoutSeconds > 0 {
		c = c.WithTimeout(time.Duration(cfg.Server.TimeoutSeconds) * time.Second)
	}
	return c
}

// requireValid fails command when the configuration cannot connect.
func (a *app) requireValid(command string) error {
	if err := a.cfg.Validate(); err != nil {
		return configError(command, err)
	}
	return nil
}
