package claude

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// StreamEvent is one line of the CLI's stream-json output. Only the
// fields this server consumes are modeled; unknown fields are ignored.
type StreamEvent struct {
	Type      string         `json:"type"`
	Subtype   string         `json:"subtype,omitempty"`
	SessionID string         `json:"session_id,omitempty"`
	Message   *StreamMessage `json:"message,omitempty"`
	CostUSD   float64        `json:"cost_usd,omitempty"`
	Duration  int64          `json:"duration_ms,omitempty"`
	NumTurns  int            `json:"num_turns,omitempty"`
}

// StreamMessage is the assistant message carried by a stream event.
type StreamMessage struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ContentBlock is one content element: text, or a tool invocation.
type ContentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

// ParseStreamLine decodes one output line. An empty line yields a nil
// event and no error; the agent sometimes emits blank separators.
func ParseStreamLine(line []byte) (*StreamEvent, error) {
	if len(line) == 0 {
		return nil, nil
	}

	var event StreamEvent
	if err := json.Unmarshal(line, &event); err != nil {
		if syntaxErr, ok := errors.AsType[*json.SyntaxError](err); ok {
			slog.Debug("malformed JSON in stream",
				"offset", syntaxErr.Offset,
				"line_preview", truncateBytes(line, 100))
		}
		return nil, fmt.Errorf("parsing stream event: %w", err)
	}

	return &event, nil
}

// ExtractProgress derives a short progress hint from an event: the start
// of a text block, or the name of the tool being invoked.
func ExtractProgress(event *StreamEvent) string {
	if event.Message == nil {
		return ""
	}

	for _, block := range event.Message.Content {
		switch block.Type {
		case "text":
			return truncateStr(block.Text, 200)
		case "tool_use":
			return fmt.Sprintf("Using tool: %s", block.Name)
		}
	}

	return ""
}

// ExtractOutput concatenates every text block in the event's message.
func ExtractOutput(event *StreamEvent) string {
	if event.Message == nil {
		return ""
	}

	var out strings.Builder
	for _, block := range event.Message.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	return out.String()
}

func truncateBytes(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return string(b[:max]) + "..."
}
