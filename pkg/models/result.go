package models

import (
	"encoding/json"
	"time"
)

// ToolUse is a tool invocation extracted from raw process output.
type ToolUse struct {
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ExecutionTiming captures when an invocation ran and with which model.
type ExecutionTiming struct {
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
	Duration  time.Duration `json:"duration"`
	Model     string        `json:"model"`
}

// ExecutionResult is the structured outcome of one execute call.
type ExecutionResult struct {
	SessionID string          `json:"session_id"`
	Response  string          `json:"response"`
	ToolUses  []ToolUse       `json:"tool_uses,omitempty"`
	Timing    ExecutionTiming `json:"timing"`
	Cached    bool            `json:"cached,omitempty"`

	// Record ids committed to the store for this turn.
	UserMessageID      string `json:"user_message_id,omitempty"`
	AssistantMessageID string `json:"assistant_message_id,omitempty"`
}
