package notify

import (
	"sync"
	"time"
)

// SessionSender is the subset of the MCP server used for notifications.
type SessionSender interface {
	SendNotificationToSpecificClient(sessionID, method string, params map[string]any) error
	SendNotificationToAllClients(method string, params map[string]any)
}

// MCPNotifier pushes job events to connected MCP clients. Progress events
// are debounced per job so a chatty agent does not flood clients; terminal
// events always go through and clear the job's debounce entry.
type MCPNotifier struct {
	sender   SessionSender
	debounce time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewMCPNotifier creates a notifier with the given progress debounce window.
func NewMCPNotifier(sender SessionSender, debounce time.Duration) *MCPNotifier {
	return &MCPNotifier{
		sender:   sender,
		debounce: debounce,
		lastSent: make(map[string]time.Time),
	}
}

// Notify implements Notifier.
func (n *MCPNotifier) Notify(e Event) {
	if e.Type == JobProgress {
		if !n.shouldSendProgress(e.JobID) {
			return
		}
		n.send(e, "notifications/progress", map[string]any{
			"progressToken": e.JobID,
			"message":       e.Message,
		})
		return
	}

	if e.Terminal() {
		n.mu.Lock()
		delete(n.lastSent, e.JobID)
		n.mu.Unlock()
	}

	n.send(e, "notifications/message", map[string]any{
		"level": "info",
		"data": map[string]any{
			"type":    e.Type,
			"job_id":  e.JobID,
			"project": e.Project,
			"message": e.Message,
		},
	})
}

func (n *MCPNotifier) shouldSendProgress(jobID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if last, ok := n.lastSent[jobID]; ok && time.Since(last) < n.debounce {
		return false
	}
	n.lastSent[jobID] = time.Now()
	return true
}

func (n *MCPNotifier) send(e Event, method string, params map[string]any) {
	if e.MCPSessionID != "" {
		_ = n.sender.SendNotificationToSpecificClient(e.MCPSessionID, method, params)
		return
	}
	n.sender.SendNotificationToAllClients(method, params)
}
