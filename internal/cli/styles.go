// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/it-at-m/mucgpt-sub002/internal/model"
)

// init configures lipgloss color profile based on terminal capabilities.
func init() {
	lipgloss.SetColorProfile(GetColorProfile())
}

// =============================================================================
// SHARED STYLES
// =============================================================================

var (
	// TitleStyle is used for command titles and headers
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")) // Cyan

	// LabelStyle is used for field labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")). // Light gray
			Width(14)

	// ValueStyle is used for regular values and text
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")) // Off-white

	// SuccessStyle is used for success messages
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")). // Green
			Bold(true)

	// ErrorStyle is used for error messages and failures
	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")). // Red
			Bold(true)

	// WarningStyle is used for warnings
	WarningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // Yellow/Orange

	// DimStyle is used for secondary information and hints
	DimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")) // Dim gray

	// SeparatorStyle is used for visual separators
	SeparatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // Dark gray

	// UserStyle marks the user's side of a turn
	UserStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75")). // Blue
			Bold(true)

	// AssistantStyle marks the assistant's side of a turn
	AssistantStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")). // Bright green
			Bold(true)

	// ToolStyle is used for the tool status strip
	ToolStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("141")) // Purple

	// PromptStyle is used for the chat prompt
	PromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)
)

// =============================================================================
// HELPERS
// =============================================================================

// RenderSeparator renders a horizontal separator line.
// Default width is the terminal width capped at 70 characters.
func RenderSeparator(width ...int) string {
	w := min(GetTerminalWidth()-4, 70)
	if len(width) > 0 && width[0] > 0 {
		w = width[0]
	}
	return RenderConditional(SeparatorStyle, strings.Repeat("-", w))
}

// RenderLabel renders a label with consistent width.
func RenderLabel(label string) string {
	if !ColorsEnabled() {
		return label + strings.Repeat(" ", max(0, 14-len(label)))
	}
	return LabelStyle.Render(label)
}

// RenderConditional renders text with style if colors are enabled,
// otherwise returns the text unmodified.
func RenderConditional(style lipgloss.Style, text string) string {
	if !ColorsEnabled() {
		return text
	}
	return style.Render(text)
}

// RenderToolStatus renders the status strip for the tools of the current answer.
func RenderToolStatus(statuses []model.ToolStatus) string {
	parts := make([]string, 0, len(statuses))
	for _, s := range statuses {
		if !s.IsSet() {
			continue
		}
		part := "[" + s.Name + "] " + s.State.String()
		if s.Message != "" {
			part += ": " + s.Message
		}
		parts = append(parts, part)
	}
	if len(parts) == 0 {
		return ""
	}
	return RenderConditional(ToolStyle, strings.Join(parts, "  "))
}
