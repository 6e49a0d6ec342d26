// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/it-at-m/mucgpt-sub002/internal/model"
	"github.com/it-at-m/mucgpt-sub002/internal/util"
)

// Generator is written into exported documents.
const Generator = "mucgpt"

// ErrNilConversation is returned when there is nothing to export.
var ErrNilConversation = errors.New("conversation is nil")

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter defines the interface for conversation exporters.
type Exporter interface {
	// Export converts a conversation to the target format and returns the content.
	Export(conv *model.Conversation) ([]byte, error)

	// FileExtension returns the appropriate file extension (e.g., ".md").
	FileExtension() string

	// MimeType returns the MIME type for the exported format.
	MimeType() string
}

// =============================================================================
// EXPORT OPTIONS
// =============================================================================

// Options configures export behavior.
type Options struct {
	// OutputDir is the directory where files will be saved.
	// Default: current working directory
	OutputDir string

	// OpenAfterExport opens the file in the default application.
	OpenAfterExport bool

	// IncludeMetadata includes the front matter and session information.
	IncludeMetadata bool

	// IncludeReasoning includes the reasoning channel of each answer.
	IncludeReasoning bool

	// Now replaces time.Now for the export timestamp.
	Now func() time.Time
}

// DefaultOptions returns default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:       ".",
		IncludeMetadata: true,
	}
}

func (o *Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// ForFormat returns the exporter for a format name.
func ForFormat(format string, opts *Options) (Exporter, error) {
	switch strings.ToLower(format) {
	case "markdown", "md":
		return NewMarkdownExporter(opts), nil
	case "json":
		return NewJSONExporter(opts), nil
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

// =============================================================================
// EXPORT FUNCTIONS
// =============================================================================

// Write exports conv and writes the result to w.
func Write(w io.Writer, conv *model.Conversation, exporter Exporter) error {
	content, err := exporter.Export(conv)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	_, err = w.Write(content)
	return err
}

// ExportToFile exports a conversation to a file using the specified exporter.
// Returns the output file path or an error.
func ExportToFile(conv *model.Conversation, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(conv)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	filename := fmt.Sprintf("conversation_%s_%s%s",
		sanitizeFilename(conv.Name),
		opts.now().Format("20060102_150405"),
		exporter.FileExtension(),
	)

	// RELIABILITY: Atomic write with fsync prevents data loss on crash
	outputPath := filepath.Join(opts.OutputDir, filename)
	if err := util.AtomicWriteFileWithDir(outputPath, content, 0644, 0755); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}

	if opts.OpenAfterExport {
		if err := openFile(outputPath); err != nil {
			// Non-fatal - file was still created successfully
			fmt.Fprintf(os.Stderr, "Warning: Could not open file: %v\n", err)
		}
	}

	return outputPath, nil
}

// ExportConversation exports conv in the named format to a file.
func ExportConversation(conv *model.Conversation, format string, opts *Options) (string, error) {
	if conv == nil {
		return "", ErrNilConversation
	}
	exporter, err := ForFormat(format, opts)
	if err != nil {
		return "", err
	}
	return ExportToFile(conv, exporter, opts)
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// sanitizeFilename removes or replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	s = util.TruncateRunes(s, 50)

	// Replace problematic characters (Windows and Unix)
	replacer := map[rune]rune{
		'/':  '-',
		'\\': '-',
		':':  '-',
		'*':  '-',
		'?':  '-',
		'"':  '-',
		'<':  '-',
		'>':  '-',
		'|':  '-',
		' ':  '_',
		'\t': '_',
		'\n': '_',
		'\r': '_',
	}

	result := []rune{}
	for _, r := range s {
		if replacement, found := replacer[r]; found {
			result = append(result, replacement)
		} else if r < 32 || r == 127 {
			result = append(result, '-')
		} else {
			result = append(result, r)
		}
	}

	if len(result) == 0 {
		return "conversation"
	}
	return string(result)
}

// openFile opens a file in the default application for the OS.
func openFile(path string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", `""`, path)
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

// formatTimestamp formats a timestamp for display.
func formatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}
