// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/dropin-tui/internal/server"
)

// shutdownGrace bounds how long serve waits for open streams on exit.
const shutdownGrace = 5 * time.Second

func newServeCommand(a *app) *cobra.Command {
	cfg := server.DefaultConfig()
	var script string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the loopback demo agent",
		Long: `Runs a local agent that implements the streaming protocol.

Without --script it echoes the last user message back as markdown.
With --script it cycles through replies read from a file, separated by
lines containing only "---".`,
		Example: `  dropin serve
  dropin serve --addr 127.0.0.1:9000 --cps 10
  dropin serve --script replies.md`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := server.New(cfg, a.logger)
			if script != "" {
				replier, err := server.LoadScript(script)
				if err != nil {
					return usageErrorf("load script: %v", err)
				}
				srv.WithReplier(replier)
			}

			ln, err := net.Listen("tcp", cfg.Addr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", cfg.Addr, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s http://%s\n",
				successStyle.Render("loopback agent listening on"), ln.Addr())

			return serveUntilDone(cmd.Context(), srv, ln, a.logger)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	flags.Float64Var(&cfg.ChunksPerSecond, "cps", cfg.ChunksPerSecond, "chunks written per second")
	flags.IntVar(&cfg.RequestsPerMinute, "rpm", cfg.RequestsPerMinute, "requests per minute per client")
	flags.StringVar(&script, "script", "", "file of scripted replies")
	return cmd
}

// serveUntilDone serves on ln until ctx is cancelled, then shuts down.
func serveUntilDone(ctx context.Context, srv *server.Server, ln net.Listener, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
	// Serve may not have registered its http.Server yet
	_ = ln.Close()
	if err := <-errCh; err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
