// Package conversation owns the in-memory conversation state: message
// trees, session lineage, forks, checkpoints, and the response cache.
// All state is process-lifetime; durability across restarts is an explicit
// non-goal.
package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/haasonsaas/replay/pkg/models"
)

// Common store errors. Expected conditions are returned, never panicked.
var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExists      = errors.New("session already exists")
	ErrMessageNotFound    = errors.New("message not found")
	ErrCheckpointNotFound = errors.New("checkpoint not found")
)

// ForkResult describes a newly forked session.
type ForkResult struct {
	SessionID string
	Context   *models.SessionContext
}

// History is the full read view of one session.
type History struct {
	Session    *models.Session
	Context    *models.SessionContext
	Records    []*models.MessageRecord
	ForkPoints []*models.ForkPoint
}

// Messages returns the history's messages in insertion order.
func (h *History) Messages() []models.Message {
	msgs := make([]models.Message, 0, len(h.Records))
	for _, rec := range h.Records {
		msgs = append(msgs, rec.Message)
	}
	return msgs
}

// Store is the interface for conversation persistence.
type Store interface {
	// Session lifecycle
	SaveSession(ctx context.Context, id, parentID string, initial *models.SessionContext) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error
	ListSessions(ctx context.Context) ([]*models.Session, error)
	SetStatus(ctx context.Context, id string, status models.SessionStatus) error

	// Message tree
	AddMessage(ctx context.Context, sessionID string, msg models.Message, meta models.RecordMeta) (*models.MessageRecord, error)
	ForkSession(ctx context.Context, sessionID, atMessageID string) (*ForkResult, error)
	GetConversationHistory(ctx context.Context, sessionID string) (*History, error)

	// Response cache
	CacheResponse(ctx context.Context, sessionID, prompt, response, messageID string, ttl time.Duration) error
	GetCachedResponse(ctx context.Context, sessionID, prompt string) (*models.CachedResponse, error)
	PruneCache(ctx context.Context, sessionID string) int

	// Checkpoints
	CreateCheckpoint(ctx context.Context, sessionID, name string) (string, error)
	RestoreCheckpoint(ctx context.Context, checkpointID string) (*models.Checkpoint, error)
}
