package notify

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// NtfyNotifier publishes events as push notifications to an ntfy topic.
// Delivery failures are logged and swallowed: a broken notification
// channel must never fail a job or a scheduler cycle.
type NtfyNotifier struct {
	Server string // e.g. "https://ntfy.sh"
	Topic  string
	Client *http.Client
}

// NewNtfyNotifier creates a notifier for the given server and topic.
func NewNtfyNotifier(server, topic string) *NtfyNotifier {
	return &NtfyNotifier{
		Server: strings.TrimRight(server, "/"),
		Topic:  topic,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify implements Notifier.
func (n *NtfyNotifier) Notify(e Event) {
	if n.Topic == "" {
		return
	}
	// Progress is too chatty for push notifications.
	if e.Type == JobProgress {
		return
	}

	title := e.Title
	if title == "" {
		title = defaultTitle(e)
	}

	req, err := http.NewRequest(http.MethodPost, n.Server+"/"+n.Topic, strings.NewReader(e.Message))
	if err != nil {
		slog.Warn("ntfy request build failed", "error", err)
		return
	}
	req.Header.Set("Title", title)
	req.Header.Set("Priority", priorityFor(e))
	req.Header.Set("Tags", tagsFor(e))

	resp, err := n.Client.Do(req)
	if err != nil {
		slog.Warn("ntfy publish failed", "type", e.Type, "project", e.Project, "error", err)
		return
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 300 {
		slog.Warn("ntfy publish rejected", "type", e.Type, "status", resp.StatusCode)
	}
}

func defaultTitle(e Event) string {
	switch e.Type {
	case JobCompleted, ScheduleSuccess:
		if e.Project != "" {
			return fmt.Sprintf("%s: run complete", e.Project)
		}
		return "Run complete"
	case JobFailed, ScheduleFailure:
		if e.Project != "" {
			return fmt.Sprintf("%s: run failed", e.Project)
		}
		return "Run failed"
	case JobStarted:
		return "Run started"
	}
	return "GoGoGadget"
}

func priorityFor(e Event) string {
	switch e.Type {
	case JobFailed, ScheduleFailure:
		return "high"
	default:
		return "default"
	}
}

func tagsFor(e Event) string {
	switch e.Type {
	case JobCompleted, ScheduleSuccess:
		return "white_check_mark"
	case JobFailed, ScheduleFailure:
		return "x"
	default:
		return "robot"
	}
}
