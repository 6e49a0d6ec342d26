// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/it-at-m/mucgpt-sub002/internal/chat"
	"github.com/it-at-m/mucgpt-sub002/internal/config"
	"github.com/it-at-m/mucgpt-sub002/internal/logging"
	"github.com/it-at-m/mucgpt-sub002/internal/model"
	"github.com/it-at-m/mucgpt-sub002/internal/server"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const answerScript = `
responses:
  - frames:
      - choices: [{delta: {content: "Hallo "}}]
      - choices: [{delta: {tool_calls: [{name: Brainstorming, state: STARTED, content: "Sammle Ideen"}]}}]
      - choices: [{delta: {tool_calls: [{name: Brainstorming, state: APPEND, content: "# Ideen"}]}}]
      - choices: [{delta: {tool_calls: [{name: Brainstorming, state: ENDED}]}}]
      - choices: [{delta: {content: "Welt"}, finish_reason: stop}]
      - usage: {prompt_tokens: 3, completion_tokens: 4}
`

var envOverrides = []string{
	"MUCGPT_BASE_URL", "MUCGPT_API_KEY", "MUCGPT_MODEL", "MUCGPT_LANGUAGE",
	"MUCGPT_TEMPERATURE", "MUCGPT_STORAGE_ENGINE", "MUCGPT_STORAGE_DIR",
	"MUCGPT_LOG_LEVEL", "MUCGPT_LOG_FORMAT", "MUCGPT_METRICS_ADDR",
}

// testEnv is an isolated home directory with a config file pointing at a
// scripted backend.
type testEnv struct {
	t          *testing.T
	configPath string
	backend    *server.Server
}

func newTestEnv(t *testing.T, scriptYAML string) *testEnv {
	t.Helper()
	ForceColorsEnabled(false)

	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, name := range envOverrides {
		t.Setenv(name, "")
	}

	script, err := server.ParseScript([]byte(scriptYAML))
	require.NoError(t, err)
	backend := server.New(server.Config{}, script).WithLogger(logging.Nop())
	ts := httptest.NewServer(backend.Handler())
	t.Cleanup(ts.Close)

	cfg := config.Default()
	cfg.Backend.BaseURL = ts.URL
	cfg.Backend.TimeoutSecs = 10
	cfg.Stream.NotifyDebounceMs = 5
	cfg.Storage.Dir = filepath.Join(home, "conversations")
	cfg.Log.Level = "error"

	path := filepath.Join(home, "config.toml")
	require.NoError(t, config.SaveTOML(cfg, path))

	return &testEnv{t: t, configPath: path, backend: backend}
}

// run executes one command line in a fresh App, like a new process would.
func (e *testEnv) run(args ...string) (code int, stdout, stderr string) {
	e.t.Helper()
	var out, errOut bytes.Buffer
	app := NewApp(&out, &errOut)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	code = app.Run(ctx, append([]string{"--config", e.configPath}, args...))
	require.NoError(e.t, app.Close())
	return code, out.String(), errOut.String()
}

// mustRun runs args and fails the test on a non-zero exit code.
func (e *testEnv) mustRun(args ...string) string {
	e.t.Helper()
	code, stdout, stderr := e.run(args...)
	require.Equal(e.t, 0, code, "mucgpt %s failed: %s%s", strings.Join(args, " "), stdout, stderr)
	return stdout
}

// decodeData parses a --json response and returns its data field.
func decodeData[T any](t *testing.T, out string) T {
	t.Helper()
	var resp struct {
		Success bool    `json:"success"`
		Data    T       `json:"data"`
		Error   *string `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), "output: %s", out)
	require.True(t, resp.Success, "command failed: %v", resp.Error)
	return resp.Data
}

// conversations lists the stored conversations.
func (e *testEnv) conversations() []model.ConversationSummary {
	e.t.Helper()
	return decodeData[[]model.ConversationSummary](e.t, e.mustRun("--json", "list"))
}

// onlyConversation returns the ID of the single stored conversation.
func (e *testEnv) onlyConversation() string {
	e.t.Helper()
	sums := e.conversations()
	require.Len(e.t, sums, 1)
	return sums[0].ID
}

// =============================================================================
// ASK
// =============================================================================

func TestAsk_StreamsAnswerAndStoresConversation(t *testing.T) {
	env := newTestEnv(t, answerScript)

	code, stdout, stderr := env.run("ask", "Was", "ist", "Go?")
	require.Equal(t, 0, code, stderr)

	assert.Contains(t, stdout, "Hallo Welt")
	assert.Contains(t, stdout, "```MUCGPTBrainstorming")
	assert.Contains(t, stdout, "# Ideen")
	assert.Contains(t, stderr, "[Brainstorming] STARTED: Sammle Ideen")
	assert.Contains(t, stderr, "[Brainstorming] ENDED")
	assert.Contains(t, stderr, "[3 tokens in | 4 tokens out]")
	assert.Contains(t, stderr, "conversation: ")

	sums := env.conversations()
	require.Len(t, sums, 1)
	assert.Equal(t, "Was ist Go?", sums[0].Name)
	assert.Equal(t, 1, sums[0].TurnCount)

	req, ok := env.backend.LastRequest()
	require.True(t, ok)
	require.Len(t, req.History, 1)
	assert.Equal(t, "Was ist Go?", req.History[0].User)
}

func TestAsk_JSONOutput(t *testing.T) {
	env := newTestEnv(t, answerScript)

	res := decodeData[turnResult](t, env.mustRun("--json", "ask", "Hi"))
	assert.NotEmpty(t, res.ConversationID)
	assert.Equal(t, 0, res.Index)
	assert.Equal(t, "Hi", res.Question)
	assert.Equal(t, "Hallo Welt", res.Answer.Text)
	assert.Equal(t, 3, res.Answer.TokensIn)
	assert.Equal(t, 4, res.Answer.TokensOut)
	assert.Contains(t, res.Answer.ToolOutput, "# Ideen")
}

func TestAsk_ChatFlagsAreSent(t *testing.T) {
	env := newTestEnv(t, answerScript)

	env.mustRun("ask", "--model", "mucgpt-large", "--temperature", "0.2", "--tool", "Brainstorming", "Hi")

	req, ok := env.backend.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "mucgpt-large", req.Model)
	assert.InDelta(t, 0.2, req.Temperature, 1e-9)
	assert.Equal(t, []string{"Brainstorming"}, req.EnabledTools)
}

func TestAsk_InvalidTemperature(t *testing.T) {
	env := newTestEnv(t, answerScript)

	code, _, stderr := env.run("ask", "--temperature", "3", "Hi")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "temperature must be between 0 and 2")
}

func TestAsk_ContinuesConversation(t *testing.T) {
	env := newTestEnv(t, answerScript)

	env.mustRun("ask", "Erste Frage")
	id := env.onlyConversation()
	env.mustRun("ask", "--conversation", id, "Zweite Frage")

	req, ok := env.backend.LastRequest()
	require.True(t, ok)
	require.Len(t, req.History, 2)
	assert.Equal(t, "Erste Frage", req.History[0].User)
	assert.Equal(t, "```MUCGPTBrainstorming\n# Ideen\n```\n\nHallo Welt", req.History[0].Bot)

	sums := env.conversations()
	require.Len(t, sums, 1)
	assert.Equal(t, 2, sums[0].TurnCount)
}

func TestAsk_BackendErrorThenRetry(t *testing.T) {
	env := newTestEnv(t, `
responses:
  - status: 401
    error: Not authenticated
  - frames:
      - choices: [{delta: {content: "Jetzt klappt es"}}]
`)

	code, _, stderr := env.run("ask", "Hi")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Not authenticated")

	// The failed turn is kept so it can be retried.
	id := env.onlyConversation()
	stdout := env.mustRun("retry", id)
	assert.Contains(t, stdout, "Jetzt klappt es")

	conv := decodeData[model.Conversation](t, env.mustRun("--json", "show", id))
	require.Len(t, conv.Turns, 1)
	assert.Equal(t, "Jetzt klappt es", conv.Turns[0].Answer.Text)
	assert.False(t, conv.Turns[0].Answer.IsFailed())
}

func TestRetry_RequiresFailedTurn(t *testing.T) {
	env := newTestEnv(t, answerScript)
	env.mustRun("ask", "Hi")

	code, _, stderr := env.run("retry", env.onlyConversation())
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "last answer did not fail")
}

func TestReadQuestion(t *testing.T) {
	q, err := readQuestion([]string{"  Hallo", "Welt  "}, strings.NewReader("ignored"))
	require.NoError(t, err)
	assert.Equal(t, "Hallo Welt", q)

	q, err = readQuestion(nil, strings.NewReader("  aus der Pipe\n"))
	require.NoError(t, err)
	assert.Equal(t, "aus der Pipe", q)

	_, err = readQuestion(nil, nil)
	assert.True(t, errors.Is(err, errNoQuestion))

	_, err = readQuestion(nil, strings.NewReader("   \n"))
	assert.True(t, errors.Is(err, errNoQuestion))
}

// =============================================================================
// CONVERSATION COMMANDS
// =============================================================================

func TestRegenerate_ReplacesLastAnswer(t *testing.T) {
	env := newTestEnv(t, `
responses:
  - frames: [{choices: [{delta: {content: "Erste Antwort"}}]}]
  - frames: [{choices: [{delta: {content: "Zweite Antwort"}}]}]
`)

	env.mustRun("ask", "--temperature", "1.5", "Hi")
	id := env.onlyConversation()

	stdout := env.mustRun("regenerate", id)
	assert.Contains(t, stdout, "Zweite Antwort")

	req, ok := env.backend.LastRequest()
	require.True(t, ok)
	require.Len(t, req.History, 1)
	assert.InDelta(t, 1.5, req.Temperature, 1e-9, "regenerate reuses the conversation config")

	conv := decodeData[model.Conversation](t, env.mustRun("--json", "show", id))
	require.Len(t, conv.Turns, 1)
	assert.Equal(t, "Zweite Antwort", conv.Turns[0].Answer.Text)
}

func TestRollback(t *testing.T) {
	env := newTestEnv(t, answerScript)

	env.mustRun("ask", "Erste Frage")
	id := env.onlyConversation()
	env.mustRun("ask", "-c", id, "Zweite Frage")

	res := decodeData[rollbackResult](t, env.mustRun("--json", "rollback", id, "1"))
	assert.False(t, res.Deleted)
	assert.Equal(t, 1, res.Turns)
	assert.Equal(t, "Zweite Frage", res.Question)

	res = decodeData[rollbackResult](t, env.mustRun("--json", "rollback", id, "0"))
	assert.True(t, res.Deleted)
	assert.Equal(t, "Erste Frage", res.Question)
	assert.Empty(t, env.conversations())
}

func TestRollback_InvalidIndex(t *testing.T) {
	env := newTestEnv(t, answerScript)
	env.mustRun("ask", "Hi")
	id := env.onlyConversation()

	code, _, _ := env.run("rollback", id, "5")
	assert.Equal(t, 1, code)
	code, _, stderr := env.run("rollback", id, "x")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "invalid index")

	assert.Len(t, env.conversations(), 1)
}

func TestRenameFavoriteDelete(t *testing.T) {
	env := newTestEnv(t, answerScript)
	env.mustRun("ask", "Hi")
	env.mustRun("ask", "Servus")

	sums := env.conversations()
	require.Len(t, sums, 2)
	id := sums[0].ID

	env.mustRun("rename", id, "Mein", "Projekt")
	env.mustRun("favorite", id)

	favs := decodeData[[]model.ConversationSummary](t, env.mustRun("--json", "list", "--favorites"))
	require.Len(t, favs, 1)
	assert.Equal(t, id, favs[0].ID)
	assert.Equal(t, "Mein Projekt", favs[0].Name)

	env.mustRun("favorite", "--remove", id)
	favs = decodeData[[]model.ConversationSummary](t, env.mustRun("--json", "list", "--favorites"))
	assert.Empty(t, favs)

	env.mustRun("delete", id)
	sums = env.conversations()
	require.Len(t, sums, 1)
	assert.NotEqual(t, id, sums[0].ID)
}

func TestShow_NotFound(t *testing.T) {
	env := newTestEnv(t, answerScript)

	code, stdout, _ := env.run("--json", "show", "conv_missing")
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout, `"success": false`)
}

func TestList_Empty(t *testing.T) {
	env := newTestEnv(t, answerScript)

	assert.Contains(t, env.mustRun("list"), "No conversations yet.")
	assert.Empty(t, env.conversations())
}

// =============================================================================
// EXPORT / IMPORT
// =============================================================================

func TestExport_Stdout(t *testing.T) {
	env := newTestEnv(t, answerScript)
	env.mustRun("ask", "Was ist Go?")
	id := env.onlyConversation()

	out := env.mustRun("export", id, "-o", "-")
	assert.True(t, strings.HasPrefix(out, "---\n"), "markdown export starts with front matter")
	assert.Contains(t, out, "Was ist Go?")
	assert.Contains(t, out, "Hallo Welt")

	out = env.mustRun("export", id, "--format", "json", "-o", "-")
	var conv model.Conversation
	require.NoError(t, json.Unmarshal([]byte(out), &conv))
	assert.Equal(t, id, conv.ID)
}

func TestExportImport_RoundTrip(t *testing.T) {
	env := newTestEnv(t, answerScript)
	env.mustRun("ask", "Was ist Go?")
	id := env.onlyConversation()

	dir := t.TempDir()
	res := decodeData[map[string]string](t, env.mustRun("--json", "export", id, "-f", "json", "-o", dir))
	path := res["path"]
	require.FileExists(t, path)
	assert.Equal(t, dir, filepath.Dir(path))

	// The conversation still exists.
	code, _, stderr := env.run("import", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "already exists")

	env.mustRun("delete", id)
	env.mustRun("import", path)

	sums := env.conversations()
	require.Len(t, sums, 1)
	assert.Equal(t, id, sums[0].ID)
	assert.Equal(t, 1, sums[0].TurnCount)
}

func TestExport_UnknownFormat(t *testing.T) {
	env := newTestEnv(t, answerScript)
	env.mustRun("ask", "Hi")

	code, _, stderr := env.run("export", env.onlyConversation(), "-f", "pdf", "-o", "-")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unsupported export format")
}

// =============================================================================
// CONFIG / VERSION
// =============================================================================

func TestConfigSetGet(t *testing.T) {
	env := newTestEnv(t, answerScript)

	env.mustRun("config", "set", "chat.model", "mucgpt-small")
	assert.Equal(t, "mucgpt-small\n", env.mustRun("config", "get", "chat.model"))

	env.mustRun("config", "set", "chat.temperature", "1.2")
	assert.Equal(t, "1.2\n", env.mustRun("config", "get", "chat.temperature"))

	code, _, _ := env.run("config", "set", "chat.temperature", "9")
	assert.Equal(t, 1, code, "invalid values are rejected")
	assert.Equal(t, "1.2\n", env.mustRun("config", "get", "chat.temperature"))

	code, _, _ = env.run("config", "get", "chat.nope")
	assert.Equal(t, 1, code)
}

func TestConfigGet_RedactsAPIKey(t *testing.T) {
	env := newTestEnv(t, answerScript)
	env.mustRun("config", "set", "backend.api_key", "secret-token")

	assert.Equal(t, "[REDACTED]\n", env.mustRun("config", "get", "backend.api_key"))
	assert.NotContains(t, env.mustRun("config", "show"), "secret-token")
}

func TestConfigPathAndInit(t *testing.T) {
	env := newTestEnv(t, answerScript)
	assert.Equal(t, env.configPath+"\n", env.mustRun("config", "path"))

	code, _, stderr := env.run("config", "init")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "already exists")

	path := filepath.Join(t.TempDir(), "fresh.toml")
	var out, errOut bytes.Buffer
	app := NewApp(&out, &errOut)
	require.Equal(t, 0, app.Run(context.Background(), []string{"--config", path, "config", "init"}), errOut.String())
	require.FileExists(t, path)

	cfg, err := config.LoadFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default().Chat.Model, cfg.Chat.Model)
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t, answerScript)

	info := decodeData[map[string]string](t, env.mustRun("--json", "version"))
	assert.Equal(t, Version, info["version"])
	assert.Contains(t, env.mustRun("version"), "mucgpt "+Version)
}

func TestUnknownCommand(t *testing.T) {
	env := newTestEnv(t, answerScript)

	code, _, stderr := env.run("frobnicate")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "unknown command")
}

func TestBrokenConfigFile(t *testing.T) {
	env := newTestEnv(t, answerScript)
	require.NoError(t, os.WriteFile(env.configPath, []byte("[backend\n"), 0600))

	code, _, stderr := env.run("list")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "failed to load TOML config")
}

// =============================================================================
// PRINTER
// =============================================================================

func TestAnswerPrinter_PrintsOnlyExpectedTurn(t *testing.T) {
	ForceColorsEnabled(false)
	var out, status bytes.Buffer
	p := newAnswerPrinter(&out, &status)

	earlier := model.ChatTurn{User: "alt", Answer: model.AnswerRecord{Text: "alte Antwort"}}
	p.OnState(chat.State{Turns: []model.ChatTurn{earlier}})
	assert.Empty(t, out.String(), "nothing is printed before Begin")

	p.Begin(2)
	p.OnState(chat.State{Turns: []model.ChatTurn{earlier}})
	assert.Empty(t, out.String(), "states of other turns are ignored")

	turn := model.ChatTurn{User: "neu", Answer: model.AnswerRecord{Text: "Hal"}}
	p.OnState(chat.State{Turns: []model.ChatTurn{earlier, turn}})
	turn.Answer.Text = "Hallo"
	p.OnState(chat.State{Turns: []model.ChatTurn{earlier, turn}})
	assert.Equal(t, "Hallo", out.String())

	turn.Answer.Text = "Hallo Welt"
	turn.Answer.ToolOutput = "```MUCGPTSimplify\neinfach\n```"
	p.Finish(turn)
	assert.Equal(t, "Hallo Welt\n\n```MUCGPTSimplify\neinfach\n```\n", out.String())
}

func TestAnswerPrinter_StatusDeduplicated(t *testing.T) {
	ForceColorsEnabled(false)
	var out, status bytes.Buffer
	p := newAnswerPrinter(&out, &status)
	p.Begin(1)

	started := []model.ToolStatus{{Name: "Simplify", State: model.ToolStarted, Message: "Vereinfache"}}
	p.OnStatus(started)
	p.OnStatus(started)
	p.OnStatus([]model.ToolStatus{{Name: "Simplify", State: model.ToolEnded}})
	p.OnStatus([]model.ToolStatus{{Name: "Unset"}})

	assert.Equal(t, "[Simplify] STARTED: Vereinfache\n[Simplify] ENDED\n", status.String())
}

func TestAnswerPrinter_NilStatusWriter(t *testing.T) {
	p := newAnswerPrinter(io.Discard, nil)
	assert.NotPanics(t, func() {
		p.OnStatus([]model.ToolStatus{{Name: "Simplify", State: model.ToolStarted}})
	})
}

// =============================================================================
// REPL
// =============================================================================

// scriptedInput replays lines and records the suggestions it was offered.
type scriptedInput struct {
	lines       []string
	suggestions []string
	history     []string
}

func (s *scriptedInput) next() (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptedInput) Prompt(string) (string, error) { return s.next() }

func (s *scriptedInput) PromptWithSuggestion(_, text string, _ int) (string, error) {
	s.suggestions = append(s.suggestions, text)
	return s.next()
}

func (s *scriptedInput) AppendHistory(item string) { s.history = append(s.history, item) }

func newTestREPL(t *testing.T, env *testEnv, input *scriptedInput) (*repl, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := NewApp(&out, &errOut)
	app.opts.ConfigPath = env.configPath
	require.NoError(t, app.loadConfig())
	t.Cleanup(func() { app.Close() })

	sess, printer, unsubscribe, err := app.streamingSession(nil)
	require.NoError(t, err)
	t.Cleanup(unsubscribe)

	r := newREPL(app, sess, printer, input)
	r.interrupts = nil
	return r, &out, &errOut
}

func TestREPL_AskRollbackAndEdit(t *testing.T) {
	env := newTestEnv(t, answerScript)
	input := &scriptedInput{lines: []string{
		"Was ist Go?",
		"/list",
		"/rollback 0",
		"Was ist Rust?",
		"/quit",
	}}
	r, out, errOut := newTestREPL(t, env, input)

	require.NoError(t, r.Run(context.Background()))

	assert.Contains(t, out.String(), "Hallo Welt")
	assert.Contains(t, out.String(), "Was ist Go?", "/list shows the stored conversation")
	assert.Equal(t, []string{"Was ist Go?"}, input.suggestions, "the rolled back question is offered for editing")
	assert.Contains(t, input.history, "Was ist Rust?")
	assert.NotContains(t, errOut.String(), "[Error]")

	sums := env.conversations()
	require.Len(t, sums, 1)
	assert.Equal(t, "Was ist Rust?", sums[0].Name)
}

func TestREPL_Commands(t *testing.T) {
	env := newTestEnv(t, answerScript)
	input := &scriptedInput{lines: []string{
		"Hi",
		"/rename Begrüßung",
		"/favorite",
		"/regenerate",
		"/history",
		"/bogus",
		"/clear",
		"/help",
	}}
	r, out, errOut := newTestREPL(t, env, input)

	require.NoError(t, r.Run(context.Background()), "EOF ends the loop")

	assert.Contains(t, out.String(), `Renamed to "Begrüßung"`)
	assert.Contains(t, out.String(), "Favorite: true")
	assert.Contains(t, out.String(), "Started a new conversation")
	assert.Contains(t, out.String(), "Available Commands")
	assert.Contains(t, errOut.String(), "unknown command: /bogus")
	assert.Empty(t, r.sess.State().Turns)

	sums := env.conversations()
	require.Len(t, sums, 1)
	assert.Equal(t, "Begrüßung", sums[0].Name)
	assert.True(t, sums[0].Favorite)
	assert.Equal(t, 1, sums[0].TurnCount, "regenerate replaces the turn")
}

func TestREPL_OpenDeleteExport(t *testing.T) {
	env := newTestEnv(t, answerScript)
	env.mustRun("ask", "Gespeicherte Frage")
	id := env.onlyConversation()

	exportDir := t.TempDir()
	t.Chdir(exportDir)

	input := &scriptedInput{lines: []string{
		"/open " + id,
		"/export json",
		"/delete",
		"exit",
	}}
	r, out, errOut := newTestREPL(t, env, input)

	require.NoError(t, r.Run(context.Background()))
	assert.NotContains(t, errOut.String(), "[Error]")
	assert.Contains(t, out.String(), "Gespeicherte Frage")
	assert.Contains(t, out.String(), "Deleted "+id)

	matches, err := filepath.Glob(filepath.Join(exportDir, "conversation_*.json"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
	assert.Empty(t, env.conversations())
}

func TestREPL_InterruptWithoutStream(t *testing.T) {
	env := newTestEnv(t, answerScript)
	r, _, _ := newTestREPL(t, env, &scriptedInput{})
	assert.NotPanics(t, r.Interrupt)
}
