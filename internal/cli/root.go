// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/dropin-tui/internal/agent"
	"github.com/jeranaias/dropin-tui/internal/config"
	"github.com/jeranaias/dropin-tui/internal/logging"
)

// =============================================================================
// APP STATE
// =============================================================================

// app holds the global flags and what they resolve to.
type app struct {
	configPath string
	baseURL    string
	logLevel   string

	cfg    *config.Config
	logger *zap.Logger
}

// load resolves configuration and the logger. Flags override the config
// file and environment.
func (a *app) load() error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFromPath(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return &ConfigError{Path: a.configPath, Err: err}
	}

	if a.baseURL != "" {
		cfg.Agent.BaseURL = strings.TrimRight(a.baseURL, "/")
	}
	if a.logLevel != "" {
		cfg.Log.Level = strings.ToLower(a.logLevel)
	}
	if err := cfg.Validate(); err != nil {
		return &ConfigError{Path: a.configPath, Err: err}
	}
	a.cfg = cfg

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return &ConfigError{Err: err}
	}
	a.logger = logger
	return nil
}

// watchPath returns the config file to watch for live reloads, if any.
func (a *app) watchPath() (string, bool) {
	path := a.configPath
	if path == "" {
		p, err := config.ConfigPathTOML()
		if err != nil {
			return "", false
		}
		path = p
	}
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// client builds an agent client from the loaded config.
func (a *app) client() *agent.Client {
	return agent.NewClient(&agent.ClientConfig{
		BaseURL:        a.cfg.Agent.BaseURL,
		ConnectTimeout: a.cfg.Agent.ConnectTimeout(),
		HealthTimeout:  a.cfg.Agent.HealthTimeout(),
		Logger:         a.logger,
	})
}

func (a *app) sync() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// =============================================================================
// COMMAND TREE
// =============================================================================

// NewRootCommand builds the dropin command tree.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&app{})
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "dropin",
		Short: "Streaming chat client for a remote agent",
		Long: `dropin is a terminal chat client for an HTTP streaming agent.

Replies are streamed as they arrive and revealed at a steady, adaptive pace.
Run without arguments to start the interactive chat interface.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipLoad] == "true" {
				return nil
			}
			return a.load()
		},
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), a)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ~/.dropin/config.toml)")
	flags.StringVar(&a.baseURL, "base-url", "", "agent base URL")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error, off")

	root.AddCommand(
		newAskCommand(a),
		newHealthCommand(a),
		newServeCommand(a),
		newConfigCommand(a),
		newVersionCommand(),
	)
	return root
}

// skipLoad marks commands that run without loading the config.
const skipLoad = "dropin.skip-load"

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	err := execute(ctx, newRootCommand(a), a)
	if err == nil {
		return ExitSuccess
	}
	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}
	DisplayError(os.Stderr, err)
	return ExitCode(err)
}

// execute runs the command tree and flushes the logger whether or not the
// command succeeded.
func execute(ctx context.Context, root *cobra.Command, a *app) error {
	defer a.sync()
	return root.ExecuteContext(ctx)
}

// usageErrorf builds a UsageError.
func usageErrorf(format string, args ...interface{}) error {
	return &UsageError{Reason: fmt.Sprintf(format, args...)}
}
