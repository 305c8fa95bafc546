// Package volume abstracts the durable storage the repository working
// copies and the prompt database live on. On a plain host this is a no-op
// local directory; on network-backed storage, Reload picks up writes made
// by other replicas and Commit flushes local writes so they become visible
// to them.
package volume

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Volume is a durable storage mount.
type Volume interface {
	// Reload refreshes the local view with writes committed elsewhere.
	Reload(ctx context.Context) error
	// Commit flushes local writes so other replicas can see them.
	Commit(ctx context.Context) error
}

// LocalDir is a Volume backed by an ordinary directory. Reload and Commit
// are no-ops beyond checking the directory still exists.
type LocalDir struct {
	Path string
}

// NewLocalDir creates the directory if needed and returns it as a Volume.
func NewLocalDir(path string) (*LocalDir, error) {
	if err := os.MkdirAll(path, 0750); err != nil {
		return nil, fmt.Errorf("creating volume directory: %w", err)
	}
	return &LocalDir{Path: path}, nil
}

func (v *LocalDir) Reload(_ context.Context) error {
	if _, err := os.Stat(v.Path); err != nil {
		return fmt.Errorf("volume directory unavailable: %w", err)
	}
	return nil
}

func (v *LocalDir) Commit(_ context.Context) error {
	if _, err := os.Stat(v.Path); err != nil {
		return fmt.Errorf("volume directory unavailable: %w", err)
	}
	return nil
}

// RateLimited wraps a Volume so that Reload is performed at most once per
// window; calls inside the window succeed without touching the underlying
// volume. Commit always passes through.
type RateLimited struct {
	inner  Volume
	window time.Duration

	mu         sync.Mutex
	lastReload time.Time
}

// NewRateLimited wraps inner with a minimum interval between reloads.
func NewRateLimited(inner Volume, window time.Duration) *RateLimited {
	if window <= 0 {
		window = 2 * time.Second
	}
	return &RateLimited{inner: inner, window: window}
}

func (v *RateLimited) Reload(ctx context.Context) error {
	v.mu.Lock()
	if since := time.Since(v.lastReload); !v.lastReload.IsZero() && since < v.window {
		v.mu.Unlock()
		slog.Debug("volume reload skipped", "since_last", since.Round(time.Millisecond))
		return nil
	}
	v.lastReload = time.Now()
	v.mu.Unlock()

	return v.inner.Reload(ctx)
}

func (v *RateLimited) Commit(ctx context.Context) error {
	return v.inner.Commit(ctx)
}
