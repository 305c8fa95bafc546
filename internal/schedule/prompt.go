package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Recurrence identifies how often a scheduled prompt fires.
type Recurrence string

const (
	Daily   Recurrence = "daily"
	Weekly  Recurrence = "weekly"
	Monthly Recurrence = "monthly"
	Yearly  Recurrence = "yearly"
)

// Execution statuses recorded after each attempt.
const (
	StatusSuccess       = "success"
	StatusFailed        = "failed"
	StatusMisconfigured = "misconfigured"
)

// LastExecution is the record of the most recent attempt, success or not.
type LastExecution struct {
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
	SessionID string    `json:"sessionId,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Prompt is a stored natural-language automation prompt with its recurrence.
// NextRunAt is always UTC and is recomputed after every execution attempt
// so a failing prompt cannot re-fire on every cycle.
type Prompt struct {
	ID          string     `json:"id"`
	Prompt      string     `json:"prompt"`
	ProjectName string     `json:"projectName"`
	RepoURL     string     `json:"gitRemoteUrl"`
	Enabled     bool       `json:"enabled"`
	Schedule    Recurrence `json:"scheduleType"`
	TimeOfDay   string     `json:"timeOfDay"` // "HH:MM", local to Timezone
	Timezone    string     `json:"timezone"`
	DayOfWeek   int        `json:"dayOfWeek"`  // 0=Sunday..6=Saturday, weekly only
	DayOfMonth  int        `json:"dayOfMonth"` // monthly only

	LastExecution *LastExecution `json:"lastExecution,omitempty"`
	NextRunAt     *time.Time     `json:"nextRunAt,omitempty"`
}

// Misconfigured reports whether the prompt is missing fields required to
// execute it. Such prompts are surfaced as errors each cycle rather than
// silently skipped, and their NextRunAt is never advanced.
func (p *Prompt) Misconfigured() bool {
	return p.RepoURL == "" || p.ProjectName == ""
}

// Excerpt returns the prompt text flattened to one line and truncated,
// for commit messages and notifications.
func (p *Prompt) Excerpt(max int) string {
	s := strings.Join(strings.Fields(p.Prompt), " ")
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// parseTimeOfDay parses "HH:MM" (a bare "HH" is accepted as minute zero).
func parseTimeOfDay(s string) (hour, minute int, err error) {
	if s == "" {
		return 9, 0, nil
	}
	parts := strings.SplitN(s, ":", 2)
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid time of day %q", s)
	}
	if len(parts) == 2 {
		minute, err = strconv.Atoi(parts[1])
		if err != nil || minute < 0 || minute > 59 {
			return 0, 0, fmt.Errorf("invalid time of day %q", s)
		}
	}
	return hour, minute, nil
}
