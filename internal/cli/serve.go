// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// serve.go - Runs the local stand-in answering service.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/KISEHA-sound/kiseha-korean-legal-ai/internal/server"
)

// shutdownTimeout bounds a graceful stop.
const shutdownTimeout = 5 * time.Second

func newServeStubCmd(a *app) *cobra.Command {
	cfg := server.DefaultConfig()
	var rps float64

	cmd := &cobra.Command{
		Use:   "serve-stub",
		Short: "Run a local stand-in answering service",
		Long: `Run a local stand-in for the answering service.

It speaks the same /query contract, validates the law code, answers
deterministically and keeps a shared history of the last turns. Use it for
development and demos when the real service is not available.`,
		Example: `  kiseha serve-stub
  kiseha serve-stub --addr :9000 --latency 2s
  kiseha --url http://127.0.0.1:9000 repl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.RateLimit = rate.Limit(rps)
			cfg.Logger = slog.Default()
			srv := server.NewServer(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			fmt.Fprintf(cmd.OutOrStdout(), "%s listening on http://%s\n", TitleStyle.Render("kiseha stub"), cfg.Addr)

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			stats := srv.Stats()
			slog.Info("stub stopped", "requests", stats.Requests, "answers", stats.Answers, "rejected", stats.Rejected)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Addr, "addr", cfg.Addr, "listen address")
	flags.DurationVar(&cfg.Latency, "latency", 0, "delay every answer by this long")
	flags.Float64Var(&rps, "rate", float64(cfg.RateLimit), "requests per second per client IP, 0 disables")
	flags.IntVar(&cfg.Burst, "burst", cfg.Burst, "per-IP burst size")
	return cmd
}
