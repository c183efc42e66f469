package runner

import (
	"strings"
	"time"
)

// Operation is a hint about what kind of work the prompt asks for. Each
// operation maps to a fixed timeout; prompts without a hint are classified
// by keyword heuristics.
type Operation string

const (
	OpUnknown Operation = ""
	OpQuick   Operation = "quick"
	OpText    Operation = "text"
	OpCode    Operation = "code"
	OpFile    Operation = "file"
	OpSystem  Operation = "system"
)

// DefaultOperationTimeouts is the built-in duration table per operation.
var DefaultOperationTimeouts = map[Operation]time.Duration{
	OpQuick:  10 * time.Second,
	OpText:   60 * time.Second,
	OpCode:   120 * time.Second,
	OpFile:   90 * time.Second,
	OpSystem: 45 * time.Second,
}

// promptHeuristics maps prompt keywords to operations, checked in order.
// Quick wins first so that "yes or no, does this function work?" stays
// quick even though it mentions a function.
var promptHeuristics = []struct {
	op       Operation
	keywords []string
}{
	{OpQuick, []string{"yes or no", "true or false", "one word"}},
	{OpCode, []string{"implement", "function", "refactor", "write code", "fix the bug"}},
	{OpSystem, []string{"run ", "bash", "shell", "command"}},
	{OpFile, []string{"read file", "write file", "the file"}},
}

// ClassifyPrompt guesses the operation type from prompt text. Returns
// OpUnknown when no keyword matches, which defers to the session default.
func ClassifyPrompt(prompt string) Operation {
	lowered := strings.ToLower(prompt)
	for _, h := range promptHeuristics {
		for _, kw := range h.keywords {
			if strings.Contains(lowered, kw) {
				return h.op
			}
		}
	}
	return OpUnknown
}

// resolveTimeout applies the resolution order: explicit caller timeout,
// then operation-type hint, then keyword heuristics, then the configured
// session default. An explicit timeout of exactly 0 disables the timer.
func (r *Runner) resolveTimeout(req Request) time.Duration {
	if req.Timeout != nil {
		return *req.Timeout
	}
	if req.Operation != OpUnknown {
		if d, ok := r.timeouts[req.Operation]; ok {
			return d
		}
	}
	if op := ClassifyPrompt(req.Prompt); op != OpUnknown {
		if d, ok := r.timeouts[op]; ok {
			return d
		}
	}
	return r.defaultTimeout
}
