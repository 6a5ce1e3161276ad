// Package transcript parses Claude Code JSONL transcripts into the
// pieces keepsake cares about: what the user asked for, what the
// assistant concluded, and which files changed hands.
package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// Entry represents a single line in a Claude Code JSONL transcript.
type Entry struct {
	Type    string          `json:"type"` // "user", "assistant", "system"
	Message json.RawMessage `json:"message"`
}

// Message is the parsed message content.
type Message struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"` // string or []ContentItem
}

// ContentItem represents a single content block (text, tool_use, tool_result).
type ContentItem struct {
	Type  string          `json:"type"` // "text", "tool_use", "tool_result"
	Text  string          `json:"text,omitempty"`
	Name  string          `json:"name,omitempty"`  // tool_use only
	Input json.RawMessage `json:"input,omitempty"` // tool_use only
}

// ParsedEntry holds a fully parsed transcript entry.
type ParsedEntry struct {
	Type  string // "user", "assistant", "system"
	Role  string
	Text  string   // extracted plain text
	Files []string // files written by tools in this entry
}

var systemReminderRe = regexp.MustCompile(`<system-reminder>[\s\S]*?</system-reminder>`)

// ParseFile reads a JSONL transcript file and returns parsed entries.
func ParseFile(path string) ([]ParsedEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	var entries []ParsedEntry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB line buffer

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		entry, err := parseLine(line)
		if err != nil {
			continue // skip malformed lines
		}
		if entry != nil {
			entries = append(entries, *entry)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan transcript: %w", err)
	}

	return entries, nil
}

// ParseLines parses transcript content from a string (for testing).
func ParseLines(content string) ([]ParsedEntry, error) {
	var entries []ParsedEntry
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		entry, err := parseLine([]byte(line))
		if err != nil {
			continue
		}
		if entry != nil {
			entries = append(entries, *entry)
		}
	}
	return entries, nil
}

func parseLine(line []byte) (*ParsedEntry, error) {
	var entry Entry
	if err := json.Unmarshal(line, &entry); err != nil {
		return nil, err
	}

	if entry.Type == "" || entry.Message == nil {
		return nil, nil
	}

	var msg Message
	if err := json.Unmarshal(entry.Message, &msg); err != nil {
		return nil, err
	}

	text, files := extractContent(msg.Content)
	text = systemReminderRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)

	// Tool-result echoes and fragments carry no narrative signal.
	if len(text) < 5 || strings.HasPrefix(text, "{") {
		text = ""
	}
	if text == "" && len(files) == 0 {
		return nil, nil
	}

	return &ParsedEntry{
		Type:  entry.Type,
		Role:  msg.Role,
		Text:  text,
		Files: files,
	}, nil
}

// extractContent handles the polymorphic content field. It may be a
// plain string or an array of ContentItem; file-writing tool calls are
// collected alongside the text.
func extractContent(raw json.RawMessage) (string, []string) {
	// Try as string first
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var items []ContentItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return "", nil
	}

	var texts []string
	var files []string
	for _, item := range items {
		switch item.Type {
		case "text":
			if item.Text != "" {
				texts = append(texts, item.Text)
			}
		case "tool_use":
			if path := toolFilePath(item); path != "" {
				files = append(files, path)
			}
		}
	}
	return strings.Join(texts, "\n"), files
}

// fileToolNames are the Claude Code tools that write files.
var fileToolNames = map[string]bool{
	"Write": true, "Edit": true, "MultiEdit": true, "NotebookEdit": true,
}

func toolFilePath(item ContentItem) string {
	if !fileToolNames[item.Name] || item.Input == nil {
		return ""
	}
	var input struct {
		FilePath     string `json:"file_path"`
		NotebookPath string `json:"notebook_path"`
	}
	if err := json.Unmarshal(item.Input, &input); err != nil {
		return ""
	}
	if input.FilePath != "" {
		return input.FilePath
	}
	return input.NotebookPath
}

// CountUserMessages returns the number of user messages in the entries.
func CountUserMessages(entries []ParsedEntry) int {
	count := 0
	for _, e := range entries {
		if e.Type == "user" && e.Text != "" {
			count++
		}
	}
	return count
}

// ChangedFiles returns every file written during the session, in first
// touch order, deduplicated.
func ChangedFiles(entries []ParsedEntry) []string {
	seen := make(map[string]bool)
	var files []string
	for _, e := range entries {
		for _, f := range e.Files {
			if !seen[f] {
				seen[f] = true
				files = append(files, f)
			}
		}
	}
	return files
}
