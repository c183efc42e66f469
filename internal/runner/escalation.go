package runner

import (
	"log/slog"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/haasonsaas/replay/internal/observability"
)

// escalation is the two-stage cancellable termination state machine armed
// per invocation: a graceful SIGTERM at the timeout, then SIGKILL if the
// process is still alive when the grace period elapses. Any exit path must
// call cancel so a stale kill never fires after completion.
type escalation struct {
	mu        sync.Mutex
	termTimer *time.Timer
	killTimer *time.Timer
	fired     bool
	done      bool
}

// armEscalation starts the timeout timer for the process. A limit of zero
// disables the timer entirely.
func armEscalation(proc *os.Process, limit, grace time.Duration, logger *slog.Logger, metrics *observability.Metrics) *escalation {
	e := &escalation{}
	if limit <= 0 {
		return e
	}
	e.termTimer = time.AfterFunc(limit, func() {
		e.mu.Lock()
		if e.done {
			e.mu.Unlock()
			return
		}
		e.fired = true
		e.killTimer = time.AfterFunc(grace, func() {
			e.mu.Lock()
			stale := e.done
			e.mu.Unlock()
			if stale {
				return
			}
			logger.Warn("process survived grace period, killing", "pid", proc.Pid)
			if metrics != nil {
				metrics.RecordEscalation("kill")
			}
			_ = proc.Kill()
		})
		e.mu.Unlock()

		logger.Warn("timeout reached, sending SIGTERM", "pid", proc.Pid, "limit", limit)
		if metrics != nil {
			metrics.RecordEscalation("term")
		}
		_ = proc.Signal(syscall.SIGTERM)
	})
	return e
}

// cancel stops both timers and reports whether the timeout had already
// fired. Safe to call more than once.
func (e *escalation) cancel() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.done = true
	if e.termTimer != nil {
		e.termTimer.Stop()
	}
	if e.killTimer != nil {
		e.killTimer.Stop()
	}
	return e.fired
}
