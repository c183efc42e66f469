package runner

import (
	"fmt"
	"strings"
	"time"
)

// SpawnError indicates the external process could not start.
type SpawnError struct {
	Command []string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", strings.Join(e.Command, " "), e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// ExitError indicates the process exited non-zero without a timeout in
// effect. Stderr carries the captured error-stream text or a placeholder
// when the process produced none.
type ExitError struct {
	Command []string
	Code    int
	Stderr  string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with code %d: %s", strings.Join(e.Command, " "), e.Code, e.Stderr)
}

// TimeoutError indicates the invocation hit its timeout and was escalated
// to termination. It is returned regardless of how the process eventually
// exited.
type TimeoutError struct {
	Command []string
	Limit   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", strings.Join(e.Command, " "), e.Limit)
}
