// Package transcript reads the JSONL conversation files Claude Code
// writes under ~/.claude/projects/<encoded-path>/<session-id>.jsonl and
// turns them into messages and session summaries.
package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Message is one conversational turn.
type Message struct {
	Role      string    `json:"type"`
	Content   string    `json:"content"`
	ToolUses  []ToolUse `json:"toolUse,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ToolUse is one tool invocation inside an assistant message.
type ToolUse struct {
	Tool  string          `json:"tool"`
	Input json.RawMessage `json:"input,omitempty"`
}

// SessionSummary describes one transcript file without its full content.
type SessionSummary struct {
	SessionID  string    `json:"sessionId"`
	ProjectDir string    `json:"projectDir"`
	Messages   int       `json:"messageCount"`
	Preview    string    `json:"preview"`
	FirstAt    time.Time `json:"firstActivityAt"`
	LastAt     time.Time `json:"lastActivityAt"`
}

// entry is one raw JSONL line.
type entry struct {
	Type              string `json:"type"`
	IsMeta            bool   `json:"isMeta"`
	IsAPIErrorMessage bool   `json:"isApiErrorMessage"`
	Timestamp         string `json:"timestamp"`
	Message           struct {
		Content json.RawMessage `json:"content"`
	} `json:"message"`
}

// include filters out snapshots, meta lines and API errors; only real
// user and assistant turns remain.
func (e *entry) include() bool {
	if e.Type == "file-history-snapshot" || e.IsMeta || e.IsAPIErrorMessage {
		return false
	}
	return e.Type == "user" || e.Type == "assistant"
}

// EncodeProjectPath converts an absolute project path into the directory
// name Claude Code uses under ~/.claude/projects.
func EncodeProjectPath(path string) string {
	return strings.ReplaceAll(path, "/", "-")
}

// ParseFile reads one transcript. A missing file yields no messages and
// no error; malformed lines are skipped.
func ParseFile(path string) ([]Message, error) {
	f, err := os.Open(path) //nolint:gosec // path assembled from validated session id
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening transcript: %w", err)
	}
	defer func() { _ = f.Close() }()

	var messages []Message
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			slog.Debug("malformed transcript line", "file", filepath.Base(path), "error", err)
			continue
		}
		if !e.include() {
			continue
		}

		msg := Message{Role: e.Type, Content: extractText(e.Message.Content)}
		if e.Type == "assistant" {
			msg.ToolUses = extractToolUses(e.Message.Content)
		}
		if t, err := time.Parse(time.RFC3339, e.Timestamp); err == nil {
			msg.Timestamp = t
		}
		messages = append(messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading transcript: %w", err)
	}
	return messages, nil
}

// Summarize builds a summary for one transcript file, or nil when the
// file holds no conversational turns.
func Summarize(path string) (*SessionSummary, error) {
	messages, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, nil
	}

	s := &SessionSummary{
		SessionID:  strings.TrimSuffix(filepath.Base(path), ".jsonl"),
		ProjectDir: filepath.Base(filepath.Dir(path)),
		Messages:   len(messages),
	}
	for _, m := range messages {
		if !m.Timestamp.IsZero() {
			if s.FirstAt.IsZero() {
				s.FirstAt = m.Timestamp
			}
			s.LastAt = m.Timestamp
		}
		if s.Preview == "" && m.Role == "user" && m.Content != "" {
			s.Preview = m.Content
			if len(s.Preview) > 100 {
				s.Preview = s.Preview[:100]
			}
		}
	}
	return s, nil
}

// ListSessions summarizes every transcript under root, newest activity
// first. projectPath, when non-empty, restricts the listing to that
// project's encoded directory.
func ListSessions(root, projectPath string) ([]SessionSummary, error) {
	dirs, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading sessions root: %w", err)
	}

	var encoded string
	if projectPath != "" {
		encoded = EncodeProjectPath(projectPath)
	}

	var sessions []SessionSummary
	for _, dir := range dirs {
		if !dir.IsDir() {
			continue
		}
		if encoded != "" && dir.Name() != encoded {
			continue
		}

		files, err := filepath.Glob(filepath.Join(root, dir.Name(), "*.jsonl"))
		if err != nil {
			continue
		}
		for _, file := range files {
			summary, err := Summarize(file)
			if err != nil {
				slog.Warn("skipping unreadable transcript", "file", file, "error", err)
				continue
			}
			if summary != nil {
				sessions = append(sessions, *summary)
			}
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastAt.After(sessions[j].LastAt)
	})
	return sessions, nil
}

// extractText handles both content shapes Claude Code writes: a plain
// string (user turns) and a block list (assistant turns).
func extractText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var blocks []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}

	var texts []string
	for _, b := range blocks {
		if b.Type == "text" && b.Text != "" {
			texts = append(texts, b.Text)
		}
	}
	return strings.Join(texts, "\n\n")
}

func extractToolUses(raw json.RawMessage) []ToolUse {
	var blocks []struct {
		Type  string          `json:"type"`
		Name  string          `json:"name"`
		Input json.RawMessage `json:"input"`
	}
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil
	}

	var uses []ToolUse
	for _, b := range blocks {
		if b.Type == "tool_use" {
			name := b.Name
			if name == "" {
				name = "unknown"
			}
			uses = append(uses, ToolUse{Tool: name, Input: b.Input})
		}
	}
	return uses
}
