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
	"strings"

	"github.com/spf13/cobra"

	"github.com/it-at-m/mucgpt-sub002/internal/config"
	"github.com/it-at-m/mucgpt-sub002/internal/model"
	"github.com/it-at-m/mucgpt-sub002/internal/session"
)

// errNoQuestion is returned by ask when neither args nor stdin carry a question.
var errNoQuestion = errors.New("no question given")

// =============================================================================
// CHAT CONFIG FLAGS
// =============================================================================

// chatFlags override the configured request defaults for new conversations.
type chatFlags struct {
	model       string
	language    string
	system      string
	temperature float64
	maxTokens   int
	tools       []string
}

func (f *chatFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.model, "model", "m", "", "model name")
	fl.StringVar(&f.language, "language", "", "answer language")
	fl.StringVar(&f.system, "system", "", "system message")
	fl.Float64VarP(&f.temperature, "temperature", "t", 0, "sampling temperature (0-2)")
	fl.IntVar(&f.maxTokens, "max-tokens", 0, "maximum output tokens")
	fl.StringSliceVar(&f.tools, "tool", nil, "enable a backend tool (repeatable)")
}

// apply returns base with every flag the user set.
func (f *chatFlags) apply(cmd *cobra.Command, base config.ChatConfig) (*config.ChatConfig, error) {
	fl := cmd.Flags()
	if fl.Changed("model") {
		base.Model = f.model
	}
	if fl.Changed("language") {
		base.Language = f.language
	}
	if fl.Changed("system") {
		base.SystemMessage = f.system
	}
	if fl.Changed("temperature") {
		if f.temperature < 0 || f.temperature > 2 {
			return nil, fmt.Errorf("temperature must be between 0 and 2, got %g", f.temperature)
		}
		base.Temperature = f.temperature
	}
	if fl.Changed("max-tokens") {
		if f.maxTokens <= 0 {
			return nil, fmt.Errorf("max-tokens must be positive, got %d", f.maxTokens)
		}
		base.MaxOutputTokens = f.maxTokens
	}
	if fl.Changed("tool") {
		base.EnabledTools = f.tools
	}
	return &base, nil
}

// =============================================================================
// STREAMING HELPERS
// =============================================================================

// streamingSession creates a session whose answers are printed as they stream.
func (a *App) streamingSession(chatCfg *config.ChatConfig) (*session.Session, *answerPrinter, func(), error) {
	out, status := a.out, a.err
	if a.opts.JSON {
		out, status = io.Discard, nil
	}
	printer := newAnswerPrinter(out, status)

	sess, err := a.NewSession(chatCfg, session.WithStatusListener(printer.OnStatus))
	if err != nil {
		return nil, nil, nil, err
	}
	unsubscribe := sess.Subscribe(printer.OnState)
	return sess, printer, unsubscribe, nil
}

// streamTurn runs op, which streams an answer into turn number expect,
// and returns the finished turn.
func streamTurn(sess *session.Session, printer *answerPrinter, expect int, op func() error) (model.ChatTurn, error) {
	printer.Begin(expect)
	err := op()
	last, _ := sess.State().LastTurn()
	printer.Finish(last)
	return last, err
}

// turnResult is the --json output of commands that stream an answer.
type turnResult struct {
	ConversationID string             `json:"conversation_id"`
	Index          int                `json:"index"`
	Question       string             `json:"question"`
	Answer         model.AnswerRecord `json:"answer"`
}

// finishTurn reports a streamed turn in the active output mode.
func (a *App) finishTurn(command string, sess *session.Session, turn model.ChatTurn, err error) error {
	if err != nil {
		return err
	}
	state := sess.State()
	if a.opts.JSON {
		return a.printJSON(command, turnResult{
			ConversationID: state.ActiveConversationID,
			Index:          len(state.Turns) - 1,
			Question:       turn.User,
			Answer:         turn.Answer,
		})
	}
	printUsage(a.err, turn.Answer)
	if state.ActiveConversationID != "" {
		fmt.Fprintln(a.err, RenderConditional(DimStyle, "conversation: "+state.ActiveConversationID))
	}
	return nil
}

// interruptible returns a context canceled on Ctrl+C.
func interruptible(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt)
}

// =============================================================================
// ASK
// =============================================================================

func (a *App) askCommand() *cobra.Command {
	var (
		flags          chatFlags
		conversationID string
	)

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a single question and stream the answer",
		Long: `Ask a question and stream the answer to stdout.

Without arguments the question is read from stdin. The answer is stored as
a new conversation unless --conversation continues an existing one; in that
case the conversation's own settings are used and model flags are ignored.`,
		Example: `  mucgpt ask "Erstelle eine Mindmap zu Go"
  mucgpt ask --tool Brainstorming "Ideen für ein Stadtfest"
  echo "Fasse zusammen: ..." | mucgpt ask
  mucgpt ask --conversation conv_1234 "Und weiter?"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			question, err := readQuestion(args, pipedStdin())
			if err != nil {
				return err
			}
			chatCfg, err := flags.apply(cmd, a.Config().Chat)
			if err != nil {
				return err
			}

			ctx, stop := interruptible(cmd.Context())
			defer stop()

			sess, printer, unsubscribe, err := a.streamingSession(chatCfg)
			if err != nil {
				return err
			}
			defer unsubscribe()

			if conversationID != "" {
				if err := sess.Load(ctx, conversationID); err != nil {
					return err
				}
			}

			expect := len(sess.State().Turns) + 1
			turn, err := streamTurn(sess, printer, expect, func() error {
				return sess.Send(ctx, question)
			})
			return a.finishTurn("ask", sess, turn, err)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "continue a stored conversation")
	return cmd
}

// readQuestion joins args, or reads stdin when there are none.
// stdin is nil when it is a terminal.
func readQuestion(args []string, stdin io.Reader) (string, error) {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" && stdin != nil {
		data, err := io.ReadAll(io.LimitReader(stdin, 1<<20))
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		question = strings.TrimSpace(string(data))
	}
	if question == "" {
		return "", errNoQuestion
	}
	return question, nil
}

// pipedStdin returns os.Stdin unless it is a terminal.
func pipedStdin() io.Reader {
	if IsTTY() {
		return nil
	}
	return os.Stdin
}
