// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/it-at-m/mucgpt-sub002/internal/model"
	"github.com/it-at-m/mucgpt-sub002/internal/util"
)

// =============================================================================
// RETRY / REGENERATE / ROLLBACK
// =============================================================================

func (a *App) retryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "retry <conversation>",
		Short: "Ask the failed last question of a conversation again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := interruptible(cmd.Context())
			defer stop()

			sess, printer, unsubscribe, err := a.streamingSession(nil)
			if err != nil {
				return err
			}
			defer unsubscribe()

			if err := sess.Load(ctx, args[0]); err != nil {
				return err
			}
			turn, err := streamTurn(sess, printer, len(sess.State().Turns), func() error {
				return sess.Retry(ctx)
			})
			return a.finishTurn("retry", sess, turn, err)
		},
	}
}

func (a *App) regenerateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate <conversation>",
		Short: "Replace the last answer of a conversation with a new one",
		Long: `Remove the last turn of a conversation and ask its question again,
using the settings the conversation was created with.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := interruptible(cmd.Context())
			defer stop()

			sess, printer, unsubscribe, err := a.streamingSession(nil)
			if err != nil {
				return err
			}
			defer unsubscribe()

			if err := sess.Load(ctx, args[0]); err != nil {
				return err
			}
			turn, err := streamTurn(sess, printer, len(sess.State().Turns), func() error {
				return <-sess.Regenerate(ctx)
			})
			return a.finishTurn("regenerate", sess, turn, err)
		},
	}
}

// rollbackResult is the --json output of rollback.
type rollbackResult struct {
	ConversationID string `json:"conversation_id"`
	Deleted        bool   `json:"deleted"`
	Turns          int    `json:"turns"`
	Question       string `json:"question"`
}

func (a *App) rollbackCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <conversation> <index>",
		Short: "Remove a turn and everything after it",
		Long: `Keep only the turns before index (0-based, as shown by "show").
The removed question is printed so it can be edited and asked again.
Rolling back to index 0 deletes the conversation.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid index %q: %w", args[1], err)
			}

			sess, err := a.NewSession(nil)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := sess.Load(ctx, args[0]); err != nil {
				return err
			}
			if err := sess.Rollback(ctx, index); err != nil {
				return err
			}

			state := sess.State()
			res := rollbackResult{
				ConversationID: args[0],
				Deleted:        len(state.Turns) == 0,
				Turns:          len(state.Turns),
				Question:       sess.PendingQuestion(),
			}
			if a.opts.JSON {
				return a.printJSON("rollback", res)
			}

			if res.Deleted {
				fmt.Fprintf(a.out, "%s Conversation %s deleted\n", RenderConditional(SuccessStyle, "[OK]"), args[0])
			} else {
				fmt.Fprintf(a.out, "%s Kept %d turn(s) of %s\n", RenderConditional(SuccessStyle, "[OK]"), res.Turns, args[0])
			}
			fmt.Fprintf(a.out, "%s %s\n", RenderLabel("Removed:"), res.Question)
			return nil
		},
	}
}

// =============================================================================
// LIST / SHOW
// =============================================================================

func (a *App) listCommand() *cobra.Command {
	var favorites bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List stored conversations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.Store()
			if err != nil {
				return err
			}
			sums, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if favorites {
				kept := sums[:0]
				for _, s := range sums {
					if s.Favorite {
						kept = append(kept, s)
					}
				}
				sums = kept
			}

			if a.opts.JSON {
				if sums == nil {
					sums = []model.ConversationSummary{}
				}
				return a.printJSON("list", sums)
			}
			printSummaries(a.out, sums)
			return nil
		},
	}
	cmd.Flags().BoolVar(&favorites, "favorites", false, "only list favorites")
	return cmd
}

// printSummaries writes the conversation table.
func printSummaries(w io.Writer, sums []model.ConversationSummary) {
	if len(sums) == 0 {
		fmt.Fprintln(w, RenderConditional(DimStyle, "No conversations yet."))
		return
	}
	for _, s := range sums {
		star := " "
		if s.Favorite {
			star = "*"
		}
		fmt.Fprintf(w, "%s %-40s %s %3d turns  %s\n",
			star,
			RenderConditional(DimStyle, s.ID),
			util.TruncateWidth(s.Name, model.MaxNameWidth),
			s.TurnCount,
			RenderConditional(DimStyle, s.UpdatedAt.Local().Format(time.DateTime)),
		)
	}
}

func (a *App) showCommand() *cobra.Command {
	var reasoning bool

	cmd := &cobra.Command{
		Use:   "show <conversation>",
		Short: "Print a stored conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.Store()
			if err != nil {
				return err
			}
			conv, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.opts.JSON {
				return a.printJSON("show", conv)
			}

			fmt.Fprintln(a.out, RenderConditional(TitleStyle, conv.Name))
			fmt.Fprintf(a.out, "%s %s\n", RenderLabel("ID:"), conv.ID)
			fmt.Fprintf(a.out, "%s %s\n", RenderLabel("Model:"), conv.Config.Model)
			fmt.Fprintf(a.out, "%s %s\n", RenderLabel("Created:"), conv.CreatedAt.Local().Format(time.DateTime))
			for i, turn := range conv.Turns {
				fmt.Fprintln(a.out, RenderSeparator())
				printTurn(a.out, i, turn, reasoning)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&reasoning, "reasoning", false, "include the reasoning channel")
	return cmd
}

// =============================================================================
// RENAME / FAVORITE / DELETE
// =============================================================================

func (a *App) renameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <conversation> <name>",
		Short: "Rename a stored conversation",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.Store()
			if err != nil {
				return err
			}
			name := model.DisplayName(strings.Join(args[1:], " "))
			if err := store.Rename(cmd.Context(), args[0], name); err != nil {
				return err
			}
			return a.done("rename", map[string]string{"id": args[0], "name": name},
				fmt.Sprintf("Renamed %s to %q", args[0], name))
		},
	}
}

func (a *App) favoriteCommand() *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "favorite <conversation>",
		Short: "Mark a conversation as favorite",
		Long:  "Favorites are never pruned when the conversation limit is reached.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.Store()
			if err != nil {
				return err
			}
			if err := store.SetFavorite(cmd.Context(), args[0], !remove); err != nil {
				return err
			}
			msg := "Marked " + args[0] + " as favorite"
			if remove {
				msg = "Removed " + args[0] + " from favorites"
			}
			return a.done("favorite", map[string]any{"id": args[0], "favorite": !remove}, msg)
		},
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "remove the favorite mark")
	return cmd
}

func (a *App) deleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <conversation>...",
		Aliases: []string{"rm"},
		Short:   "Delete stored conversations",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := a.NewSession(nil)
			if err != nil {
				return err
			}
			for _, id := range args {
				if err := sess.Delete(cmd.Context(), id); err != nil {
					return err
				}
			}
			return a.done("delete", map[string]any{"deleted": args},
				fmt.Sprintf("Deleted %d conversation(s)", len(args)))
		},
	}
}

// done reports a successful command without other output.
func (a *App) done(command string, data any, msg string) error {
	if a.opts.JSON {
		return a.printJSON(command, data)
	}
	fmt.Fprintf(a.out, "%s %s\n", RenderConditional(SuccessStyle, "[OK]"), msg)
	return nil
}
