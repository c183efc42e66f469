package runner

import (
	"testing"
	"time"
)

func TestClassifyPrompt(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   Operation
	}{
		{"empty", "", OpUnknown},
		{"plain question", "What is the capital of France?", OpUnknown},
		{"yes or no", "Yes or no: is the sky blue?", OpQuick},
		{"true or false", "True or false, water boils at 100C", OpQuick},
		{"one word", "Answer in one word please", OpQuick},
		{"implement", "Implement a linked list in Go", OpCode},
		{"refactor", "Please refactor this module", OpCode},
		{"fix the bug", "Can you fix the bug in the parser?", OpCode},
		{"shell", "Open a shell and list processes", OpSystem},
		{"run command", "run ls in the current directory", OpSystem},
		{"read file", "read file config.yaml and summarize it", OpFile},
		{"the file", "What does the file contain?", OpFile},
		{"quick beats code", "Yes or no: does this function compile?", OpQuick},
		{"case insensitive", "IMPLEMENT the feature", OpCode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyPrompt(tt.prompt); got != tt.want {
				t.Errorf("ClassifyPrompt(%q) = %q, want %q", tt.prompt, got, tt.want)
			}
		})
	}
}

func TestRunner_ResolveTimeout(t *testing.T) {
	r := NewRunner(Config{
		Binary:         "tool",
		DefaultTimeout: 30 * time.Second,
		OperationTimeouts: map[Operation]time.Duration{
			OpQuick: 5 * time.Second,
		},
	})

	tests := []struct {
		name string
		req  Request
		want time.Duration
	}{
		{
			name: "explicit beats everything",
			req:  Request{Timeout: durationPtr(time.Second), Operation: OpCode, Prompt: "run ls"},
			want: time.Second,
		},
		{
			name: "explicit zero disables",
			req:  Request{Timeout: durationPtr(0), Operation: OpCode},
			want: 0,
		},
		{
			name: "operation hint beats heuristics",
			req:  Request{Operation: OpText, Prompt: "implement quicksort"},
			want: 60 * time.Second,
		},
		{
			name: "heuristics apply without hint",
			req:  Request{Prompt: "implement quicksort"},
			want: 120 * time.Second,
		},
		{
			name: "configured override applies",
			req:  Request{Operation: OpQuick},
			want: 5 * time.Second,
		},
		{
			name: "default when nothing matches",
			req:  Request{Prompt: "tell me a story"},
			want: 30 * time.Second,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.resolveTimeout(tt.req); got != tt.want {
				t.Errorf("resolveTimeout() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEscalation_CancelWithoutArming(t *testing.T) {
	e := armEscalation(nil, 0, time.Second, discardLogger(), nil)
	if e.cancel() {
		t.Error("unarmed escalation reported fired")
	}
	if e.cancel() {
		t.Error("second cancel reported fired")
	}
}
