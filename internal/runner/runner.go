// Package runner spawns the external tool as a one-shot subprocess, feeds
// it the prompt payload over stdin, and enforces timeouts with graduated
// SIGTERM/SIGKILL escalation. One process per invocation; output is
// accumulated without backpressure, an accepted limitation.
package runner

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/haasonsaas/replay/internal/observability"
	"github.com/haasonsaas/replay/internal/tools/policy"
)

// Invocation flags the external tool understands.
const (
	flagPrint           = "--print"
	flagModel           = "--model"
	flagAllowedTools    = "--allowedTools"
	flagDisallowedTools = "--disallowedTools"
)

// DefaultGraceTimeout is how long a process gets between SIGTERM and
// SIGKILL.
const DefaultGraceTimeout = 5 * time.Second

// State of one invocation's lifecycle.
type State string

const (
	StateSpawning  State = "spawning"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateTimedOut  State = "timed_out"
	StateErrored   State = "errored"
)

// Config configures a Runner.
type Config struct {
	// Binary is the external tool executable.
	Binary string

	// Model selects the model passed on the command line.
	Model string

	// DefaultTimeout applies when neither the caller, an operation hint,
	// nor the prompt heuristics resolve a timeout.
	DefaultTimeout time.Duration

	// GraceTimeout is the SIGTERM-to-SIGKILL window.
	GraceTimeout time.Duration

	// OperationTimeouts overrides entries of the built-in duration table.
	OperationTimeouts map[Operation]time.Duration

	Logger *slog.Logger

	// Metrics, when set, records timeout escalations.
	Metrics *observability.Metrics
}

// Request is one invocation of the external tool.
type Request struct {
	// Payload is written to the process's stdin and then the stream is
	// closed to signal end-of-input.
	Payload string

	// Prompt is the new user input; it drives the keyword heuristics.
	Prompt string

	// Timeout, when set, overrides all other resolution. Exactly 0
	// disables the timer.
	Timeout *time.Duration

	// Operation is an optional operation-type hint.
	Operation Operation

	// Policy compiles into tool allow/deny flags.
	Policy *policy.Policy
}

// Result is the raw outcome of one invocation.
type Result struct {
	Output    string
	Stderr    string
	Command   []string
	State     State
	StartedAt time.Time
	EndedAt   time.Time
	Duration  time.Duration
	Model     string
}

// Runner executes the external tool.
type Runner struct {
	binary         string
	model          string
	defaultTimeout time.Duration
	graceTimeout   time.Duration
	timeouts       map[Operation]time.Duration
	resolver       *policy.Resolver
	logger         *slog.Logger
	metrics        *observability.Metrics
}

// NewRunner creates a runner from config, filling in defaults.
func NewRunner(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	grace := cfg.GraceTimeout
	if grace <= 0 {
		grace = DefaultGraceTimeout
	}
	timeouts := make(map[Operation]time.Duration, len(DefaultOperationTimeouts))
	for op, d := range DefaultOperationTimeouts {
		timeouts[op] = d
	}
	for op, d := range cfg.OperationTimeouts {
		timeouts[op] = d
	}
	return &Runner{
		binary:         cfg.Binary,
		model:          cfg.Model,
		defaultTimeout: cfg.DefaultTimeout,
		graceTimeout:   grace,
		timeouts:       timeouts,
		resolver:       policy.NewResolver(),
		logger:         logger.With("component", "runner"),
		metrics:        cfg.Metrics,
	}
}

// buildArgs assembles the non-interactive invocation: print flag, model
// selector, and the policy-derived tool flags.
func (r *Runner) buildArgs(pol *policy.Policy) []string {
	args := []string{flagPrint}
	if r.model != "" {
		args = append(args, flagModel, r.model)
	}
	flags := r.resolver.CompileFlags(pol)
	if len(flags.Denied) > 0 {
		args = append(args, flagDisallowedTools, strings.Join(flags.Denied, ","))
	}
	if len(flags.Allowed) > 0 {
		args = append(args, flagAllowedTools, strings.Join(flags.Allowed, ","))
	}
	return args
}

// Run executes one invocation, blocking until the process exits or the
// timeout escalation terminates it. Cancellation is exclusively
// timeout-driven; ctx is accepted for logging correlation only.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	limit := r.resolveTimeout(req)
	args := r.buildArgs(req.Policy)
	command := append([]string{r.binary}, args...)

	res := &Result{
		Command: command,
		State:   StateSpawning,
		Model:   r.model,
	}

	cmd := exec.Command(r.binary, args...)
	cmd.Env = os.Environ()
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		res.State = StateErrored
		return res, &SpawnError{Command: command, Err: err}
	}

	res.StartedAt = time.Now()
	if err := cmd.Start(); err != nil {
		res.State = StateErrored
		return res, &SpawnError{Command: command, Err: err}
	}
	res.State = StateRunning
	r.logger.Debug("process started", "pid", cmd.Process.Pid, "timeout", limit)

	go func() {
		_, _ = io.WriteString(stdin, req.Payload)
		_ = stdin.Close()
	}()

	esc := armEscalation(cmd.Process, limit, r.graceTimeout, r.logger, r.metrics)
	waitErr := cmd.Wait()
	timedOut := esc.cancel()

	res.EndedAt = time.Now()
	res.Duration = res.EndedAt.Sub(res.StartedAt)
	res.Output = stdout.String()
	res.Stderr = stderr.String()

	// A fired timeout always wins, even when output had already been
	// buffered or the process managed to exit zero during the grace window.
	if timedOut {
		res.State = StateTimedOut
		r.logger.Warn("invocation timed out", "limit", limit, "duration", res.Duration)
		return res, &TimeoutError{Command: command, Limit: limit}
	}

	if waitErr != nil {
		res.State = StateErrored
		errText := strings.TrimSpace(res.Stderr)
		if errText == "" {
			errText = "process exited with an error and no stderr output"
		}
		return res, &ExitError{Command: command, Code: exitCode(waitErr), Stderr: errText}
	}

	res.State = StateCompleted
	r.logger.Debug("process completed", "duration", res.Duration, "output_bytes", len(res.Output))
	return res, nil
}

// exitCode extracts the process exit code from a Wait error.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if exit, ok := err.(*exec.ExitError); ok {
		return exit.ExitCode()
	}
	return -1
}
