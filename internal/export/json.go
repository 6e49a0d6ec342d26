// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/it-at-m/mucgpt-sub002/internal/model"
)

// FormatVersion identifies the layout of JSON exports.
const FormatVersion = 1

// =============================================================================
// JSON EXPORTER
// =============================================================================

// Document is the top-level JSON export.
type Document struct {
	FormatVersion int                 `json:"format_version"`
	Generator     string              `json:"generator"`
	ExportedAt    time.Time           `json:"exported_at"`
	Conversation  *model.Conversation `json:"conversation"`
}

// JSONExporter exports conversations to JSON format.
// NOTE: JSON exports always include the complete conversation so the result
// can be read back with ParseJSON.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export converts a conversation to JSON format.
func (e *JSONExporter) Export(conv *model.Conversation) ([]byte, error) {
	if conv == nil {
		return nil, ErrNilConversation
	}

	return json.MarshalIndent(Document{
		FormatVersion: FormatVersion,
		Generator:     Generator,
		ExportedAt:    e.options.now().UTC(),
		Conversation:  conv,
	}, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}

// ParseJSON reads a conversation back from a JSON export.
func ParseJSON(data []byte) (*model.Conversation, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	if doc.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("unsupported export format version %d", doc.FormatVersion)
	}
	if doc.Conversation == nil {
		return nil, ErrNilConversation
	}
	return doc.Conversation, nil
}
