// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/it-at-m/mucgpt-sub002/internal/server"
)

func (a *App) replayCommand() *cobra.Command {
	var cfg server.Config

	cmd := &cobra.Command{
		Use:   "replay <script>",
		Short: "Serve a scripted chat backend for local testing",
		Long: `Serve recorded or hand-written chat streams on the backend's chat
endpoint, so the client can be exercised without a real backend.

A .yaml script lists responses that are served in order; the last one
repeats. Any other file is replayed verbatim as a single stream. Use
--chunk and --delay to split the stream into slow, partial writes.`,
		Example: `  mucgpt replay testdata/mindmap.yaml
  mucgpt replay recorded.sse --chunk 16 --delay 50ms
  mucgpt --config local.toml ask "Hallo"   # with backend.base_url = "http://127.0.0.1:8080"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			script, err := server.LoadScript(args[0])
			if err != nil {
				return err
			}

			ctx, stop := interruptible(cmd.Context())
			defer stop()

			srv := server.New(cfg, script).WithLogger(a.log)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return errors.Join(srv.Shutdown(shutdownCtx), <-errCh)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&cfg.Addr, "addr", server.DefaultAddr, "listen address")
	fl.StringVar(&cfg.ChatPath, "chat-path", "", "chat endpoint path (default the client's chat path)")
	fl.IntVar(&cfg.ChunkSize, "chunk", 0, "write streams in chunks of this many bytes")
	fl.DurationVar(&cfg.Delay, "delay", 0, "pause after each chunk")
	fl.StringVar(&cfg.AuthToken, "token", "", "require this bearer token")
	return cmd
}
