package conversation

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/replay/pkg/models"
)

// CreateCheckpoint snapshots a session's context and message list. The
// snapshot is a deep copy taken under the store lock, so later mutations of
// the live session never leak into it.
func (m *MemoryStore) CreateCheckpoint(ctx context.Context, sessionID, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return "", ErrSessionNotFound
	}

	records := make([]*models.MessageRecord, 0, len(m.order[sessionID]))
	for _, recID := range m.order[sessionID] {
		records = append(records, cloneRecord(m.records[recID]))
	}

	cp := &models.Checkpoint{
		ID:        uuid.NewString(),
		Name:      name,
		SessionID: sessionID,
		Context:   *cloneContext(m.contexts[sessionID]),
		Records:   records,
		CreatedAt: time.Now(),
	}
	m.checkpoints[cp.ID] = cp

	m.logger.Debug("checkpoint created", "id", cp.ID, "session_id", sessionID, "name", name)
	return cp.ID, nil
}

// RestoreCheckpoint returns a deep copy of the snapshot. Restoring is
// read-only: the live session is left untouched, and mutating the returned
// checkpoint cannot corrupt the stored one.
func (m *MemoryStore) RestoreCheckpoint(ctx context.Context, checkpointID string) (*models.Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cp, ok := m.checkpoints[checkpointID]
	if !ok {
		return nil, ErrCheckpointNotFound
	}

	records := make([]*models.MessageRecord, 0, len(cp.Records))
	for _, rec := range cp.Records {
		records = append(records, cloneRecord(rec))
	}
	return &models.Checkpoint{
		ID:        cp.ID,
		Name:      cp.Name,
		SessionID: cp.SessionID,
		Context:   *cloneContext(&cp.Context),
		Records:   records,
		CreatedAt: cp.CreatedAt,
	}, nil
}
