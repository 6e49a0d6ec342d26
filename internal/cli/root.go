// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

// skipConfig marks commands that run without loading the configuration.
const skipConfig = "skip-config"

// Execute runs the command line and returns the process exit code.
func Execute() int {
	app := NewApp(os.Stdout, os.Stderr)
	defer app.Close()

	return app.Run(context.Background(), os.Args[1:])
}

// Run executes args and returns the exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	root := a.Command()
	root.SetArgs(args)

	cmd, err := root.ExecuteContextC(ctx)
	if err != nil {
		name := root.Name()
		if cmd != nil {
			name = cmd.Name()
		}
		a.reportError(name, err)
		return 1
	}
	return 0
}

// Command builds the command tree.
func (a *App) Command() *cobra.Command {
	root := &cobra.Command{
		Use:   "mucgpt",
		Short: "Streaming chat client for the MUCGPT backend",
		Long: `mucgpt talks to a MUCGPT backend over its streaming chat endpoint.

Answers are streamed as they arrive, tool output (mind maps, simplified
text, ...) is assembled alongside the answer, and every conversation is
stored locally so it can be continued, rolled back or exported later.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipConfig] == "true" {
				return nil
			}
			if err := a.loadConfig(); err != nil {
				return err
			}
			return a.startMetrics()
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.err)

	flags := root.PersistentFlags()
	flags.StringVar(&a.opts.ConfigPath, "config", "", "config file (default ~/.mucgpt/config.toml)")
	flags.StringVar(&a.opts.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&a.opts.LogFormat, "log-format", "", "log format (console, json)")
	flags.BoolVar(&a.opts.JSON, "json", false, "machine-readable JSON output")

	root.AddCommand(
		a.askCommand(),
		a.chatCommand(),
		a.retryCommand(),
		a.regenerateCommand(),
		a.rollbackCommand(),
		a.listCommand(),
		a.showCommand(),
		a.renameCommand(),
		a.favoriteCommand(),
		a.deleteCommand(),
		a.exportCommand(),
		a.importCommand(),
		a.configCommand(),
		a.replayCommand(),
		a.versionCommand(),
	)
	return root
}

func (a *App) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			info := map[string]string{
				"version":    Version,
				"git_commit": GitCommit,
				"build_date": BuildDate,
				"go_version": runtime.Version(),
				"platform":   runtime.GOOS + "/" + runtime.GOARCH,
			}
			if a.opts.JSON {
				return a.printJSON("version", info)
			}
			fmt.Fprintf(a.out, "mucgpt %s (%s, built %s, %s %s)\n",
				Version, GitCommit, BuildDate, info["go_version"], info["platform"])
			return nil
		},
	}
}
