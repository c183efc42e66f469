package models

import (
	"time"
)

// RecordMeta holds generation metadata for a stored message record.
type RecordMeta struct {
	GeneratedAt time.Time `json:"generated_at"`
	Cached      bool      `json:"cached,omitempty"`
	TokensUsed  int       `json:"tokens_used,omitempty"`
}

// MessageRecord is a message plus its position in the conversation tree.
// Record ids are unique per store and never reused. Within one session the
// records form a simple chain via ParentMessageID/ChildMessageIDs; forking
// copies a prefix into brand-new records, so record identity is never shared
// across sessions.
type MessageRecord struct {
	ID              string     `json:"id"`
	SessionID       string     `json:"session_id"`
	Message         Message    `json:"message"`
	ParentMessageID string     `json:"parent_message_id,omitempty"`
	ChildMessageIDs []string   `json:"child_message_ids,omitempty"`
	IsForkPoint     bool       `json:"is_fork_point,omitempty"`
	Meta            RecordMeta `json:"meta"`
}

// ForkPoint records that one or more sessions branched off at a message.
// Forking never mutates the source session's messages; it only appends a
// ForkPoint and flips IsForkPoint on the originating record.
type ForkPoint struct {
	MessageID         string    `json:"message_id"`
	OriginalSessionID string    `json:"original_session_id"`
	ForkedSessionIDs  []string  `json:"forked_session_ids"`
	Timestamp         time.Time `json:"timestamp"`
}

// CachedResponse is a previously generated assistant reply keyed by the
// exact prompt payload. An entry is valid iff now - Timestamp < TTL; the
// check happens lazily at read time.
type CachedResponse struct {
	Prompt    string        `json:"prompt"`
	Response  string        `json:"response"`
	MessageID string        `json:"message_id"`
	Timestamp time.Time     `json:"timestamp"`
	TTL       time.Duration `json:"ttl"`
}

// Expired reports whether the entry is past its TTL at the given instant.
func (c *CachedResponse) Expired(now time.Time) bool {
	return now.Sub(c.Timestamp) >= c.TTL
}

// Checkpoint is a named, immutable snapshot of a session's context and
// message list at a point in time. Restoring a checkpoint is read-only and
// does not mutate the live session.
type Checkpoint struct {
	ID        string           `json:"id"`
	Name      string           `json:"name,omitempty"`
	SessionID string           `json:"session_id"`
	Context   SessionContext   `json:"context"`
	Records   []*MessageRecord `json:"records"`
	CreatedAt time.Time        `json:"created_at"`
}
