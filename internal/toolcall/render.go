// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package toolcall

import (
	"strings"
)

// FencePrefix is the info-string prefix that marks a tool block.
const FencePrefix = "MUCGPT"

// minFence is the shortest code fence.
const minFence = 3

// Block is one tool block found in rendered text.
type Block struct {
	Name    string
	Content string
}

// Format renders a single tool block. The fence is three backticks unless
// a content line itself starts with a fence, in which case it is one
// backtick longer than the longest such run.
func Format(name, content string) string {
	fence := strings.Repeat("`", fenceLength(content))
	return fence + FencePrefix + name + "\n" + content + "\n" + fence
}

// Render serializes every non-empty buffer of s, in insertion order, as a
// fenced block. Blocks are separated by a blank line.
func Render(s State) string {
	var blocks []string
	for _, b := range s.Buffers() {
		if b.Content == "" {
			continue
		}
		blocks = append(blocks, Format(b.Name, b.Content))
	}
	return strings.Join(blocks, "\n\n")
}

// Extract returns the tool blocks in text, in order of appearance.
// A block opens with a line of three or more backticks followed by
// FencePrefix and the tool name, and closes with a line holding exactly
// the same fence. Unterminated blocks are ignored.
func Extract(text string) []Block {
	lines := strings.Split(text, "\n")

	var blocks []Block
	for i := 0; i < len(lines); i++ {
		fence, name, ok := openingFence(lines[i])
		if !ok {
			continue
		}
		end := -1
		for j := i + 1; j < len(lines); j++ {
			if lines[j] == fence {
				end = j
				break
			}
		}
		if end < 0 {
			continue
		}
		blocks = append(blocks, Block{
			Name:    name,
			Content: strings.Join(lines[i+1:end], "\n"),
		})
		i = end
	}
	return blocks
}

// openingFence parses "```MUCGPT<name>".
func openingFence(line string) (fence, name string, ok bool) {
	n := backtickRun(line)
	if n < minFence {
		return "", "", false
	}
	rest, found := strings.CutPrefix(line[n:], FencePrefix)
	if !found || rest == "" || strings.Contains(rest, "`") {
		return "", "", false
	}
	return line[:n], rest, true
}

// fenceLength returns the fence needed so that no line of content closes
// the block early.
func fenceLength(content string) int {
	n := minFence
	for _, line := range strings.Split(content, "\n") {
		if run := backtickRun(line); run >= n {
			n = run + 1
		}
	}
	return n
}

func backtickRun(line string) int {
	n := 0
	for n < len(line) && line[n] == '`' {
		n++
	}
	return n
}
