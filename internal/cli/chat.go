// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"

	"github.com/it-at-m/mucgpt-sub002/internal/config"
	"github.com/it-at-m/mucgpt-sub002/internal/export"
	"github.com/it-at-m/mucgpt-sub002/internal/model"
	"github.com/it-at-m/mucgpt-sub002/internal/session"
	"github.com/it-at-m/mucgpt-sub002/internal/storage"
)

// chatPrompt is shown before every question.
const chatPrompt = "mucgpt> "

// errQuit ends the REPL loop without an error.
var errQuit = errors.New("quit")

// =============================================================================
// LINE INPUT
// =============================================================================

// lineReader is the part of liner.State the REPL uses.
type lineReader interface {
	Prompt(prompt string) (string, error)
	PromptWithSuggestion(prompt, text string, pos int) (string, error)
	AppendHistory(item string)
}

// lineEditor wraps liner with a persistent input history.
type lineEditor struct {
	*liner.State
	historyFile string
}

func newLineEditor() *lineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	e := &lineEditor{State: line, historyFile: filepath.Join(dir, "chat_history")}
	if f, err := os.Open(e.historyFile); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	return e
}

// Close saves the history with owner-only permissions and restores the terminal.
func (e *lineEditor) Close() error {
	if err := os.MkdirAll(filepath.Dir(e.historyFile), 0700); err == nil {
		// SECURITY: questions may contain sensitive text.
		if f, err := os.OpenFile(e.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			_, _ = e.WriteHistory(f)
			f.Close()
		}
	}
	return e.State.Close()
}

// =============================================================================
// CHAT COMMAND
// =============================================================================

func (a *App) chatCommand() *cobra.Command {
	var (
		flags          chatFlags
		conversationID string
	)

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat",
		Long: `Start an interactive chat with line editing and input history.

Answers stream as they arrive. Ctrl+C cancels the running answer and keeps
what was received so far; Ctrl+D or /quit leaves the chat. Type /help for
the list of commands.`,
		Example: `  mucgpt chat
  mucgpt chat --tool Brainstorming
  mucgpt chat --conversation conv_1234`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := RequiresTTY("chat"); err != nil {
				return err
			}
			chatCfg, err := flags.apply(cmd, a.Config().Chat)
			if err != nil {
				return err
			}

			sess, printer, unsubscribe, err := a.streamingSession(chatCfg)
			if err != nil {
				return err
			}
			defer unsubscribe()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			if conversationID != "" {
				if err := sess.Load(ctx, conversationID); err != nil {
					return err
				}
			}
			if err := sess.Refresh(ctx); err != nil {
				a.log.Warn().Err(err).Msg("Failed to list conversations")
			}
			a.watchStore(ctx, sess)

			editor := newLineEditor()
			defer editor.Close()

			r := newREPL(a, sess, printer, editor)
			return r.Run(ctx)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "resume a stored conversation")
	return cmd
}

// watchStore refreshes the conversation list when another process
// changes the file store.
func (a *App) watchStore(ctx context.Context, sess *session.Session) {
	store, err := a.Store()
	if err != nil {
		return
	}
	fs, ok := store.Engine().(*storage.FileStore)
	if !ok {
		return
	}
	go func() {
		err := fs.Watch(ctx, storage.DefaultWatchDebounce, func() {
			if err := sess.Refresh(ctx); err != nil && ctx.Err() == nil {
				a.log.Debug().Err(err).Msg("Refresh after store change failed")
			}
		})
		if err != nil {
			a.log.Warn().Err(err).Msg("Conversation watcher stopped")
		}
	}()
}

// =============================================================================
// REPL
// =============================================================================

// repl reads questions and slash commands until the input ends.
type repl struct {
	app     *App
	sess    *session.Session
	printer *answerPrinter
	input   lineReader
	out     io.Writer
	errOut  io.Writer

	// interrupts is nil when Ctrl+C should not be trapped.
	interrupts func() (<-chan os.Signal, func())

	mu     sync.Mutex
	cancel context.CancelFunc
}

func newREPL(a *App, sess *session.Session, printer *answerPrinter, input lineReader) *repl {
	return &repl{
		app:        a,
		sess:       sess,
		printer:    printer,
		input:      input,
		out:        a.out,
		errOut:     a.err,
		interrupts: notifyInterrupt,
	}
}

func notifyInterrupt() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	return ch, func() { signal.Stop(ch) }
}

// Run is the main loop. It returns nil when the user quits.
func (r *repl) Run(ctx context.Context) error {
	r.printWelcome()

	for {
		if ctx.Err() != nil {
			return nil
		}
		line, err := r.readLine()
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D, or a closed terminal.
			fmt.Fprintln(r.out)
			return nil
		}

		err = r.handle(ctx, line)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(r.errOut, "%s %v\n", RenderConditional(ErrorStyle, "[Error]"), err)
		}
	}
}

// readLine prompts for input, offering the pending question for editing.
func (r *repl) readLine() (string, error) {
	var (
		line string
		err  error
	)
	if pending := r.sess.PendingQuestion(); pending != "" {
		line, err = r.input.PromptWithSuggestion(chatPrompt, pending, -1)
		r.sess.SetPendingQuestion("")
	} else {
		line, err = r.input.Prompt(chatPrompt)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(line) != "" {
		r.input.AppendHistory(line)
	}
	return line, nil
}

// handle processes one line of input.
func (r *repl) handle(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return nil
	case strings.HasPrefix(line, "/"):
		return r.command(ctx, line)
	case strings.EqualFold(line, "exit"), strings.EqualFold(line, "quit"):
		return errQuit
	}

	expect := len(r.sess.State().Turns) + 1
	return r.stream(ctx, expect, func(ctx context.Context) error {
		return r.sess.Send(ctx, line)
	})
}

// stream runs op with a context the first Ctrl+C cancels.
func (r *repl) stream(ctx context.Context, expect int, op func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if r.interrupts != nil {
		sig, stop := r.interrupts()
		defer stop()
		go func() {
			select {
			case <-sig:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.cancel = nil
		r.mu.Unlock()
	}()

	turn, err := streamTurn(r.sess, r.printer, expect, func() error { return op(ctx) })
	if err != nil && ctx.Err() != nil {
		fmt.Fprintln(r.errOut, RenderConditional(WarningStyle, "[Cancelled]"))
		return nil
	}
	if err != nil {
		return err
	}
	printUsage(r.errOut, turn.Answer)
	return nil
}

// Interrupt cancels the running answer, if any.
func (r *repl) Interrupt() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// command handles a slash command.
func (r *repl) command(ctx context.Context, line string) error {
	parts := strings.Fields(line)
	name := strings.ToLower(parts[0])
	args := parts[1:]

	switch name {
	case "/help", "/h", "/?", "/":
		r.printHelp()
		return nil

	case "/quit", "/q", "/exit":
		return errQuit

	case "/retry":
		return r.stream(ctx, len(r.sess.State().Turns), r.sess.Retry)

	case "/regenerate", "/regen":
		return r.stream(ctx, len(r.sess.State().Turns), func(ctx context.Context) error {
			return <-r.sess.Regenerate(ctx)
		})

	case "/rollback":
		if len(args) != 1 {
			return errors.New("usage: /rollback <index>")
		}
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid index %q", args[0])
		}
		if err := r.sess.Rollback(ctx, index); err != nil {
			return err
		}
		r.info(fmt.Sprintf("Kept %d turn(s); edit the question below", len(r.sess.State().Turns)))
		return nil

	case "/clear", "/new", "/c":
		if err := r.sess.Clear(); err != nil {
			return err
		}
		r.info("Started a new conversation")
		return nil

	case "/open":
		if len(args) != 1 {
			return errors.New("usage: /open <conversation>")
		}
		if err := r.sess.Load(ctx, args[0]); err != nil {
			return err
		}
		r.printHistory()
		return nil

	case "/history":
		r.printHistory()
		return nil

	case "/list", "/ls":
		printSummaries(r.out, r.sess.State().AllConversations)
		return nil

	case "/delete":
		id := r.activeOr(args)
		if id == "" {
			return errors.New("usage: /delete <conversation>")
		}
		if err := r.sess.Delete(ctx, id); err != nil {
			return err
		}
		r.info("Deleted " + id)
		return nil

	case "/rename":
		id := r.sess.State().ActiveConversationID
		if id == "" || len(args) == 0 {
			return errors.New("usage: /rename <name> (in a stored conversation)")
		}
		store, err := r.app.Store()
		if err != nil {
			return err
		}
		name := model.DisplayName(strings.Join(args, " "))
		if err := store.Rename(ctx, id, name); err != nil {
			return err
		}
		if err := r.sess.Refresh(ctx); err != nil {
			return err
		}
		r.info(fmt.Sprintf("Renamed to %q", name))
		return nil

	case "/favorite", "/fav":
		id := r.sess.State().ActiveConversationID
		if id == "" {
			return errors.New("no stored conversation is open")
		}
		favorite := !(len(args) == 1 && args[0] == "off")
		store, err := r.app.Store()
		if err != nil {
			return err
		}
		if err := store.SetFavorite(ctx, id, favorite); err != nil {
			return err
		}
		if err := r.sess.Refresh(ctx); err != nil {
			return err
		}
		r.info(fmt.Sprintf("Favorite: %t", favorite))
		return nil

	case "/export":
		return r.export(ctx, args)

	default:
		return fmt.Errorf("unknown command: %s (type /help for commands)", name)
	}
}

// activeOr returns args[0], or the open conversation.
func (r *repl) activeOr(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return r.sess.State().ActiveConversationID
}

func (r *repl) export(ctx context.Context, args []string) error {
	id := r.sess.State().ActiveConversationID
	if id == "" {
		return errors.New("no stored conversation is open")
	}
	format := "md"
	if len(args) > 0 {
		format = args[0]
	}

	store, err := r.app.Store()
	if err != nil {
		return err
	}
	conv, err := store.Load(ctx, id)
	if err != nil {
		return err
	}
	path, err := export.ExportConversation(conv, format, export.DefaultOptions())
	if err != nil {
		return err
	}
	r.info("Exported to " + path)
	return nil
}

// =============================================================================
// OUTPUT
// =============================================================================

func (r *repl) info(msg string) {
	fmt.Fprintf(r.out, "%s %s\n", RenderConditional(SuccessStyle, "[OK]"), msg)
}

func (r *repl) printWelcome() {
	cfg := r.sess.Config()
	fmt.Fprintln(r.out, RenderConditional(TitleStyle, "MUCGPT chat"))
	fmt.Fprintf(r.out, "%s %s\n", RenderLabel("Model:"), cfg.Model)
	if len(cfg.EnabledTools) > 0 {
		fmt.Fprintf(r.out, "%s %s\n", RenderLabel("Tools:"), strings.Join(cfg.EnabledTools, ", "))
	}
	if id := r.sess.State().ActiveConversationID; id != "" {
		fmt.Fprintf(r.out, "%s %s\n", RenderLabel("Conversation:"), id)
		r.printHistory()
	}
	fmt.Fprintln(r.out, RenderConditional(DimStyle, "Type /help for commands, Ctrl+D to exit."))
}

func (r *repl) printHistory() {
	state := r.sess.State()
	if len(state.Turns) == 0 {
		fmt.Fprintln(r.out, RenderConditional(DimStyle, "No turns yet."))
		return
	}
	for i, turn := range state.Turns {
		fmt.Fprintln(r.out, RenderSeparator())
		printTurn(r.out, i, turn, false)
	}
	fmt.Fprintln(r.out, RenderSeparator())
}

func (r *repl) printHelp() {
	commands := []struct{ cmd, desc string }{
		{"/help, /h", "Show this help"},
		{"/retry", "Ask the failed last question again"},
		{"/regenerate", "Replace the last answer"},
		{"/rollback N", "Remove turn N and later; edit its question"},
		{"/clear, /new", "Start a new conversation"},
		{"/open ID", "Open a stored conversation"},
		{"/history", "Show the open conversation"},
		{"/list", "List stored conversations"},
		{"/delete [ID]", "Delete a conversation (default: the open one)"},
		{"/rename NAME", "Rename the open conversation"},
		{"/favorite [off]", "Mark the open conversation as favorite"},
		{"/export [md|json]", "Export the open conversation"},
		{"/quit, /q", "Leave the chat"},
	}

	fmt.Fprintln(r.out, RenderConditional(TitleStyle, "Available Commands"))
	for _, c := range commands {
		fmt.Fprintf(r.out, "  %-20s %s\n", c.cmd, RenderConditional(DimStyle, c.desc))
	}
	fmt.Fprintln(r.out, RenderConditional(DimStyle, "Ctrl+C cancels the running answer, Ctrl+D exits."))
}
