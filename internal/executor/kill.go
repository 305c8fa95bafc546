package executor

import (
	"os"
	"syscall"
	"time"
)

// killGrace is how long a process group gets to exit after SIGTERM.
const killGrace = 10 * time.Second

// GracefulKill terminates the agent's process group: SIGTERM first so it
// can flush session state, SIGKILL if it is still alive after the grace
// period. The negative pid addresses the whole group, catching any
// subprocesses the agent spawned.
func GracefulKill(pid int) {
	_ = syscall.Kill(-pid, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		if proc, err := os.FindProcess(pid); err == nil {
			_, _ = proc.Wait()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(killGrace):
		_ = syscall.Kill(-pid, syscall.SIGKILL)
	}
}
