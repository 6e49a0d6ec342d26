// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmptyScript is returned when a script has no responses.
var ErrEmptyScript = errors.New("script has no responses")

// ============================================================================
// RESPONSES
// ============================================================================

// Response is one scripted answer to a chat request.
//
// A non-2xx Status is answered with a JSON error body carrying Error.
// Otherwise Raw is sent verbatim when set, and Frames are encoded as
// "data:" lines followed by the [DONE] sentinel unless OmitDone is set.
type Response struct {
	Status   int              `yaml:"status,omitempty"`
	Error    string           `yaml:"error,omitempty"`
	Frames   []map[string]any `yaml:"frames,omitempty"`
	Raw      string           `yaml:"raw,omitempty"`
	OmitDone bool             `yaml:"omit_done,omitempty"`
}

// StatusCode returns the HTTP status to answer with.
func (r Response) StatusCode() int {
	if r.Status == 0 {
		return http.StatusOK
	}
	return r.Status
}

// IsError reports whether the response is an HTTP error instead of a stream.
func (r Response) IsError() bool {
	code := r.StatusCode()
	return code < 200 || code > 299
}

// Body encodes the response as an event stream.
func (r Response) Body() ([]byte, error) {
	if r.Raw != "" {
		return []byte(r.Raw), nil
	}

	var buf bytes.Buffer
	for i, frame := range r.Frames {
		data, err := json.Marshal(frame)
		if err != nil {
			return nil, fmt.Errorf("encode frame %d: %w", i, err)
		}
		fmt.Fprintf(&buf, "data: %s\n\n", data)
	}
	if !r.OmitDone {
		buf.WriteString("data: [DONE]\n\n")
	}
	return buf.Bytes(), nil
}

// ============================================================================
// SCRIPT
// ============================================================================

// Script is the ordered list of responses. Requests consume responses in
// order; once the list is exhausted the last response repeats.
type Script struct {
	Responses []Response `yaml:"responses"`
}

// At returns the response for the n-th request (0-based).
func (s *Script) At(n int) Response {
	if n >= len(s.Responses) {
		n = len(s.Responses) - 1
	}
	return s.Responses[n]
}

// Validate checks every response.
func (s *Script) Validate() error {
	if s == nil || len(s.Responses) == 0 {
		return ErrEmptyScript
	}
	for i, r := range s.Responses {
		if r.Status != 0 && (r.Status < 100 || r.Status > 599) {
			return fmt.Errorf("response %d: invalid status %d", i, r.Status)
		}
		if r.IsError() && (len(r.Frames) > 0 || r.Raw != "") {
			return fmt.Errorf("response %d: error responses cannot carry frames", i)
		}
	}
	return nil
}

// NewScript builds a script from responses.
func NewScript(responses ...Response) *Script {
	return &Script{Responses: responses}
}

// ParseScript decodes a YAML script. The document is either a mapping
// with a "responses" list or a single response.
func ParseScript(data []byte) (*Script, error) {
	var script Script
	if err := yaml.Unmarshal(data, &script); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(script.Responses) == 0 {
		var single Response
		if err := yaml.Unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("parse script: %w", err)
		}
		script.Responses = []Response{single}
	}
	if err := script.Validate(); err != nil {
		return nil, err
	}
	return &script, nil
}

// LoadScript reads a script from disk. Files ending in .yaml or .yml are
// parsed as scripts; anything else is served verbatim as one stream.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseScript(data)
	default:
		if len(bytes.TrimSpace(data)) == 0 {
			return nil, ErrEmptyScript
		}
		return NewScript(Response{Raw: string(data)}), nil
	}
}
