// Package notify fans job and schedule events out to interested sinks:
// push notifications over ntfy and MCP client notifications. Delivery is
// best effort; a sink that fails logs and never blocks or fails the
// operation that produced the event.
package notify

import (
	"sync"
	"time"
)

// Event types.
const (
	JobStarted   = "job.started"
	JobProgress  = "job.progress"
	JobCompleted = "job.completed"
	JobFailed    = "job.failed"

	ScheduleSuccess = "schedule.success"
	ScheduleFailure = "schedule.failure"
)

// Event is one notification about a job or a scheduled run.
type Event struct {
	Type    string
	JobID   string
	Project string
	Title   string
	Message string

	// MCPSessionID targets the event at the MCP client that started the
	// job; empty means broadcast.
	MCPSessionID string

	Timestamp time.Time
}

// Terminal reports whether the event ends a job or scheduled run.
func (e Event) Terminal() bool {
	switch e.Type {
	case JobCompleted, JobFailed, ScheduleSuccess, ScheduleFailure:
		return true
	}
	return false
}

// Notifier delivers events to one sink.
type Notifier interface {
	Notify(e Event)
}

// Hub broadcasts each event to all registered notifiers. Dispatch is
// asynchronous so callers are never blocked by a slow sink.
type Hub struct {
	mu        sync.RWMutex
	notifiers []Notifier
}

// NewHub creates a hub over the given notifiers.
func NewHub(notifiers ...Notifier) *Hub {
	return &Hub{notifiers: notifiers}
}

// Add registers another sink. Sinks that depend on the hub's consumers,
// like the MCP notifier, are attached after construction.
func (h *Hub) Add(n Notifier) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notifiers = append(h.notifiers, n)
}

// Notify dispatches the event to every notifier in its own goroutine.
func (h *Hub) Notify(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, n := range h.notifiers {
		go n.Notify(e)
	}
}
