package models

import (
	"time"
)

// Role indicates the message author type.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// SessionStatus represents the lifecycle state of a session.
type SessionStatus string

const (
	SessionActive     SessionStatus = "active"
	SessionTerminated SessionStatus = "terminated"
	SessionError      SessionStatus = "error"
)

// Message is a single conversational turn. Messages are immutable once
// created; the store only ever hands out copies.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session represents a conversation thread. Sessions form a tree: forking
// creates a child session sharing a copied prefix of its parent's history.
type Session struct {
	ID        string        `json:"id"`
	ParentID  string        `json:"parent_id,omitempty"`
	ChildIDs  []string      `json:"child_ids,omitempty"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

// SessionContext carries per-session execution settings and a mirror of the
// message history in insertion order.
type SessionContext struct {
	SystemPrompt string         `json:"system_prompt,omitempty"`
	Model        string         `json:"model,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	History      []Message      `json:"history,omitempty"`
}
