package notify

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedPublish struct {
	path     string
	body     string
	title    string
	priority string
	tags     string
}

func newNtfyServer(t *testing.T) (*httptest.Server, func() []recordedPublish) {
	t.Helper()

	var mu sync.Mutex
	var published []recordedPublish

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		mu.Lock()
		published = append(published, recordedPublish{
			path:     r.URL.Path,
			body:     string(body),
			title:    r.Header.Get("Title"),
			priority: r.Header.Get("Priority"),
			tags:     r.Header.Get("Tags"),
		})
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	return srv, func() []recordedPublish {
		mu.Lock()
		defer mu.Unlock()
		cp := make([]recordedPublish, len(published))
		copy(cp, published)
		return cp
	}
}

func TestNtfyNotifier_PublishesToTopic(t *testing.T) {
	t.Parallel()

	srv, published := newNtfyServer(t)
	n := NewNtfyNotifier(srv.URL, "gogogadget-alerts")

	n.Notify(Event{
		Type:    ScheduleSuccess,
		Project: "blog",
		Message: "Scheduled prompt completed",
	})

	got := published()
	require.Len(t, got, 1)
	assert.Equal(t, "/gogogadget-alerts", got[0].path)
	assert.Equal(t, "Scheduled prompt completed", got[0].body)
	assert.Equal(t, "blog: run complete", got[0].title)
	assert.Equal(t, "default", got[0].priority)
	assert.Equal(t, "white_check_mark", got[0].tags)
}

func TestNtfyNotifier_FailureUsesHighPriority(t *testing.T) {
	t.Parallel()

	srv, published := newNtfyServer(t)
	n := NewNtfyNotifier(srv.URL, "alerts")

	n.Notify(Event{Type: ScheduleFailure, Project: "api", Message: "clone failed"})

	got := published()
	require.Len(t, got, 1)
	assert.Equal(t, "high", got[0].priority)
	assert.Equal(t, "x", got[0].tags)
	assert.Equal(t, "api: run failed", got[0].title)
}

func TestNtfyNotifier_ExplicitTitleWins(t *testing.T) {
	t.Parallel()

	srv, published := newNtfyServer(t)
	n := NewNtfyNotifier(srv.URL, "alerts")

	n.Notify(Event{Type: JobCompleted, Title: "Custom title", Message: "done"})

	got := published()
	require.Len(t, got, 1)
	assert.Equal(t, "Custom title", got[0].title)
}

func TestNtfyNotifier_SkipsProgressEvents(t *testing.T) {
	t.Parallel()

	srv, published := newNtfyServer(t)
	n := NewNtfyNotifier(srv.URL, "alerts")

	n.Notify(Event{Type: JobProgress, JobID: "j1", Message: "step"})

	assert.Empty(t, published())
}

func TestNtfyNotifier_WithoutTopic_DoesNothing(t *testing.T) {
	t.Parallel()

	srv, published := newNtfyServer(t)
	n := NewNtfyNotifier(srv.URL, "")

	n.Notify(Event{Type: JobCompleted, Message: "done"})

	assert.Empty(t, published())
}

func TestNtfyNotifier_ServerDown_DoesNotPanic(t *testing.T) {
	t.Parallel()

	n := NewNtfyNotifier("http://127.0.0.1:1", "alerts")
	assert.NotPanics(t, func() {
		n.Notify(Event{Type: JobFailed, Message: "boom"})
	})
}
