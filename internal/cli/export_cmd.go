// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/it-at-m/mucgpt-sub002/internal/export"
	"github.com/it-at-m/mucgpt-sub002/internal/storage"
)

func (a *App) exportCommand() *cobra.Command {
	var (
		format     string
		output     string
		open       bool
		reasoning  bool
		noMetadata bool
	)

	cmd := &cobra.Command{
		Use:   "export <conversation>",
		Short: "Export a conversation to Markdown or JSON",
		Long: `Export a stored conversation.

Markdown exports carry a YAML front matter header with the conversation's
settings. JSON exports contain the complete conversation and can be read
back with "mucgpt import". Use -o - to write to stdout.`,
		Example: `  mucgpt export conv_1234
  mucgpt export conv_1234 --format json -o ./exports
  mucgpt export conv_1234 -o - | less`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.Store()
			if err != nil {
				return err
			}
			conv, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			opts := export.DefaultOptions()
			opts.IncludeReasoning = reasoning
			opts.IncludeMetadata = !noMetadata
			opts.OpenAfterExport = open

			if output == "-" {
				exporter, err := export.ForFormat(format, opts)
				if err != nil {
					return err
				}
				return export.Write(a.out, conv, exporter)
			}

			if output != "" {
				opts.OutputDir = output
			}
			path, err := export.ExportConversation(conv, format, opts)
			if err != nil {
				return err
			}
			return a.done("export", map[string]string{"id": conv.ID, "path": path}, "Exported to "+path)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&format, "format", "f", "md", "export format (md, json)")
	fl.StringVarP(&output, "output", "o", "", "output directory, or - for stdout")
	fl.BoolVar(&open, "open", false, "open the file after exporting")
	fl.BoolVar(&reasoning, "reasoning", false, "include the reasoning channel")
	fl.BoolVar(&noMetadata, "no-metadata", false, "omit front matter and session information")
	return cmd
}

func (a *App) importCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a conversation from a JSON export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read export: %w", err)
			}
			conv, err := export.ParseJSON(data)
			if err != nil {
				return err
			}
			if len(conv.Turns) == 0 {
				return errors.New("export contains no turns")
			}

			store, err := a.Store()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if conv.ID != "" && !force {
				existing, err := store.Get(ctx, conv.ID)
				if err != nil && !errors.Is(err, storage.ErrNotFound) {
					return err
				}
				if existing != nil {
					return fmt.Errorf("conversation %s already exists (use --force to overwrite)", conv.ID)
				}
			}

			id, err := store.Create(ctx, conv.Turns, conv.Config, conv.ID, conv.Name, conv.Favorite)
			if err != nil {
				return err
			}
			return a.done("import", map[string]any{"id": id, "turns": len(conv.Turns)},
				fmt.Sprintf("Imported %s (%d turns)", id, len(conv.Turns)))
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing conversation with the same id")
	return cmd
}
