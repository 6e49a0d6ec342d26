// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/it-at-m/mucgpt-sub002/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports conversations to Markdown format.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// frontMatter is the YAML header of an exported document.
type frontMatter struct {
	Title       string    `yaml:"title"`
	ID          string    `yaml:"id"`
	Model       string    `yaml:"model,omitempty"`
	Language    string    `yaml:"language,omitempty"`
	Temperature float64   `yaml:"temperature"`
	Tools       []string  `yaml:"tools,omitempty"`
	Favorite    bool      `yaml:"favorite,omitempty"`
	Date        time.Time `yaml:"date"`
	Updated     time.Time `yaml:"updated"`
	Turns       int       `yaml:"turns"`
	TokensIn    int       `yaml:"tokens_in,omitempty"`
	TokensOut   int       `yaml:"tokens_out,omitempty"`
	Exported    time.Time `yaml:"exported"`
	Generator   string    `yaml:"generator"`
}

// Export converts a conversation to Markdown format.
func (e *MarkdownExporter) Export(conv *model.Conversation) ([]byte, error) {
	if conv == nil {
		return nil, ErrNilConversation
	}
	if len(conv.Turns) == 0 {
		return nil, fmt.Errorf("conversation has no turns")
	}
	if conv.CreatedAt.IsZero() {
		return nil, fmt.Errorf("conversation has invalid creation timestamp")
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		header, err := e.frontMatter(conv)
		if err != nil {
			return nil, err
		}
		sb.WriteString("---\n")
		sb.Write(header)
		sb.WriteString("---\n\n")
	}

	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(conv.Name)))

	if e.options.IncludeMetadata {
		sb.WriteString("## Session Information\n\n")
		if conv.Config.Model != "" {
			sb.WriteString(fmt.Sprintf("- **Model**: %s\n", conv.Config.Model))
		}
		sb.WriteString(fmt.Sprintf("- **Created**: %s\n", formatTimestamp(conv.CreatedAt)))
		sb.WriteString(fmt.Sprintf("- **Last Updated**: %s\n", formatTimestamp(conv.UpdatedAt)))
		sb.WriteString(fmt.Sprintf("- **Turns**: %d\n", len(conv.Turns)))
		if conv.Config.SystemMessage != "" {
			sb.WriteString(fmt.Sprintf("- **System Message**: %s\n", strings.ReplaceAll(conv.Config.SystemMessage, "\n", " ")))
		}
		sb.WriteString("\n---\n\n")
	}

	sb.WriteString("## Conversation\n\n")
	for i, turn := range conv.Turns {
		sb.WriteString("### [User]\n\n")
		sb.WriteString(strings.TrimSpace(turn.User))
		sb.WriteString("\n\n")

		sb.WriteString("### [Assistant]\n\n")
		sb.WriteString(e.formatAnswer(turn.Answer))
		sb.WriteString("\n\n")

		if i < len(conv.Turns)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("*Exported from mucgpt on %s*\n",
		e.options.now().Format("January 2, 2006 at 3:04 PM")))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

func (e *MarkdownExporter) frontMatter(conv *model.Conversation) ([]byte, error) {
	fm := frontMatter{
		Title:       conv.Name,
		ID:          conv.ID,
		Model:       conv.Config.Model,
		Language:    conv.Config.Language,
		Temperature: conv.Config.Temperature,
		Tools:       conv.Config.EnabledTools,
		Favorite:    conv.Favorite,
		Date:        conv.CreatedAt,
		Updated:     conv.UpdatedAt,
		Turns:       len(conv.Turns),
		Exported:    e.options.now(),
		Generator:   Generator,
	}
	for _, t := range conv.Turns {
		fm.TokensIn += t.Answer.TokensIn
		fm.TokensOut += t.Answer.TokensOut
	}

	data, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}
	return data, nil
}

// formatAnswer renders tool blocks, text, reasoning and errors of one answer.
func (e *MarkdownExporter) formatAnswer(a model.AnswerRecord) string {
	var parts []string

	if e.options.IncludeReasoning && a.ReasoningText != "" {
		parts = append(parts, "<details>\n<summary>Reasoning</summary>\n\n"+
			strings.TrimSpace(a.ReasoningText)+"\n\n</details>")
	}
	if body := strings.TrimSpace(a.Markdown()); body != "" {
		parts = append(parts, body)
	}
	if a.IsFailed() {
		parts = append(parts, fmt.Sprintf("> **Error**: %s", strings.ReplaceAll(a.Error, "\n", " ")))
	}
	if len(parts) == 0 {
		return "*No answer*"
	}

	if e.options.IncludeMetadata && (a.TokensIn > 0 || a.TokensOut > 0) {
		parts = append(parts, fmt.Sprintf("<sub>Tokens: %d in | %d out</sub>", a.TokensIn, a.TokensOut))
	}
	return strings.Join(parts, "\n\n")
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes special Markdown characters in plain text.
func escapeMarkdown(s string) string {
	// Only escape characters that would break formatting in titles/headings
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}
