// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/it-at-m/mucgpt-sub002/internal/chat"
	"github.com/it-at-m/mucgpt-sub002/internal/model"
)

// answerPrinter writes the growing answer text of the last turn as it
// streams. State notifications arrive from the notifier goroutine, so
// all writes are serialized.
type answerPrinter struct {
	out    io.Writer
	status io.Writer

	mu         sync.Mutex
	expect     int
	printed    int
	lastStatus string
}

func newAnswerPrinter(out, status io.Writer) *answerPrinter {
	return &answerPrinter{out: out, status: status}
}

// Begin arms the printer for an answer that streams into turn number
// turns (1-based). States with a different turn count are ignored.
func (p *answerPrinter) Begin(turns int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expect = turns
	p.printed = 0
	p.lastStatus = ""
}

// OnState is a chat.Listener.
func (p *answerPrinter) OnState(s chat.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.expect == 0 || len(s.Turns) != p.expect {
		return
	}
	last, _ := s.LastTurn()
	p.writeDelta(last.Answer.Text)
}

// OnStatus is a session.StatusListener.
func (p *answerPrinter) OnStatus(statuses []model.ToolStatus) {
	line := RenderToolStatus(statuses)
	if line == "" || p.status == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if line == p.lastStatus {
		return
	}
	p.lastStatus = line
	if p.printed > 0 {
		fmt.Fprintln(p.status)
	}
	fmt.Fprintln(p.status, line)
}

// Finish prints whatever the final state adds and the tool blocks.
// Errors are left to the caller, which gets them from the session.
func (p *answerPrinter) Finish(turn model.ChatTurn) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.writeDelta(turn.Answer.Text)
	if turn.Answer.Text != "" && !strings.HasSuffix(turn.Answer.Text, "\n") {
		fmt.Fprintln(p.out)
	}
	if turn.Answer.ToolOutput != "" {
		fmt.Fprintln(p.out)
		fmt.Fprintln(p.out, turn.Answer.ToolOutput)
	}
	p.expect = 0
	p.printed = 0
	p.lastStatus = ""
}

func (p *answerPrinter) writeDelta(text string) {
	if len(text) <= p.printed {
		return
	}
	io.WriteString(p.out, text[p.printed:])
	p.printed = len(text)
}

// printUsage writes the token counts of an answer.
func printUsage(w io.Writer, a model.AnswerRecord) {
	if a.TokensIn == 0 && a.TokensOut == 0 {
		return
	}
	fmt.Fprintln(w, RenderConditional(DimStyle, fmt.Sprintf("[%d tokens in | %d tokens out]", a.TokensIn, a.TokensOut)))
}

// printTurn writes one stored turn.
func printTurn(w io.Writer, index int, turn model.ChatTurn, reasoning bool) {
	fmt.Fprintf(w, "%s %s\n", RenderConditional(UserStyle, fmt.Sprintf("[%d] You:", index)), turn.User)

	fmt.Fprintln(w, RenderConditional(AssistantStyle, "Assistant:"))
	if reasoning && turn.Answer.ReasoningText != "" {
		fmt.Fprintln(w, RenderConditional(DimStyle, turn.Answer.ReasoningText))
		fmt.Fprintln(w)
	}
	if body := turn.Answer.Markdown(); body != "" {
		fmt.Fprintln(w, body)
	}
	if turn.Answer.IsFailed() {
		fmt.Fprintf(w, "%s %s\n", RenderConditional(ErrorStyle, "[Error]"), turn.Answer.Error)
	}
	printUsage(w, turn.Answer)
}
