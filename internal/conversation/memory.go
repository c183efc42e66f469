package conversation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/replay/pkg/models"
)

// MemoryStore is the in-memory Store implementation. Records live in a flat
// arena keyed by id plus per-session ordered id lists; forking copies ids
// into a new arena region, so no mutable record is ever shared between
// sessions. A single RWMutex makes session-scoped mutations atomic relative
// to each other.
type MemoryStore struct {
	mu          sync.RWMutex
	sessions    map[string]*models.Session
	contexts    map[string]*models.SessionContext
	records     map[string]*models.MessageRecord
	order       map[string][]string
	forks       map[string][]*models.ForkPoint
	cache       map[string]map[string]*models.CachedResponse
	checkpoints map[string]*models.Checkpoint
	logger      *slog.Logger
}

// NewMemoryStore creates a new in-memory conversation store.
func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{
		sessions:    map[string]*models.Session{},
		contexts:    map[string]*models.SessionContext{},
		records:     map[string]*models.MessageRecord{},
		order:       map[string][]string{},
		forks:       map[string][]*models.ForkPoint{},
		cache:       map[string]map[string]*models.CachedResponse{},
		checkpoints: map[string]*models.Checkpoint{},
		logger:      logger.With("component", "conversation_store"),
	}
}

func (m *MemoryStore) SaveSession(ctx context.Context, id, parentID string, initial *models.SessionContext) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}
	if _, ok := m.sessions[id]; ok {
		return nil, ErrSessionExists
	}

	var parent *models.Session
	if parentID != "" {
		var ok bool
		parent, ok = m.sessions[parentID]
		if !ok {
			return nil, ErrSessionNotFound
		}
	}

	session := &models.Session{
		ID:        id,
		ParentID:  parentID,
		Status:    models.SessionActive,
		CreatedAt: time.Now(),
	}
	m.sessions[id] = session
	m.contexts[id] = cloneContext(initial)
	if parent != nil {
		parent.ChildIDs = append(parent.ChildIDs, id)
	}

	m.logger.Debug("session saved", "id", id, "parent_id", parentID)
	return cloneSession(session), nil
}

func (m *MemoryStore) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	for _, recID := range m.order[id] {
		delete(m.records, recID)
	}
	delete(m.sessions, id)
	delete(m.contexts, id)
	delete(m.order, id)
	delete(m.forks, id)
	delete(m.cache, id)

	m.logger.Debug("session deleted", "id", id)
	return nil
}

func (m *MemoryStore) ListSessions(ctx context.Context) ([]*models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		out = append(out, cloneSession(session))
	}
	return out, nil
}

func (m *MemoryStore) SetStatus(ctx context.Context, id string, status models.SessionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	session.Status = status
	return nil
}

func (m *MemoryStore) AddMessage(ctx context.Context, sessionID string, msg models.Message, meta models.RecordMeta) (*models.MessageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return nil, ErrSessionNotFound
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = time.Now()
	}

	rec := &models.MessageRecord{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Message:   msg,
		Meta:      meta,
	}

	chain := m.order[sessionID]
	if len(chain) > 0 {
		tailID := chain[len(chain)-1]
		rec.ParentMessageID = tailID
		if tail, ok := m.records[tailID]; ok {
			tail.ChildMessageIDs = append(tail.ChildMessageIDs, rec.ID)
		}
	}

	m.records[rec.ID] = rec
	m.order[sessionID] = append(chain, rec.ID)

	// Context mirrors the history in insertion order.
	sessionCtx := m.contexts[sessionID]
	if sessionCtx == nil {
		sessionCtx = &models.SessionContext{}
		m.contexts[sessionID] = sessionCtx
	}
	sessionCtx.History = append(sessionCtx.History, msg)

	return cloneRecord(rec), nil
}

func (m *MemoryStore) ForkSession(ctx context.Context, sessionID, atMessageID string) (*ForkResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	source, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	chain := m.order[sessionID]

	// Resolve the fork index: latest message when unspecified, otherwise the
	// id must belong to this session's own chain.
	forkIdx := len(chain) - 1
	if atMessageID != "" {
		forkIdx = -1
		for i, recID := range chain {
			if recID == atMessageID {
				forkIdx = i
				break
			}
		}
		if forkIdx < 0 {
			return nil, ErrMessageNotFound
		}
	}

	newID := uuid.NewString()
	now := time.Now()

	// Copy the prefix up to and including the fork point into brand-new
	// records scoped to the new session.
	newChain := make([]string, 0, forkIdx+1)
	newHistory := make([]models.Message, 0, forkIdx+1)
	prevID := ""
	for i := 0; i <= forkIdx; i++ {
		src := m.records[chain[i]]
		copied := &models.MessageRecord{
			ID:              uuid.NewString(),
			SessionID:       newID,
			Message:         src.Message,
			ParentMessageID: prevID,
			Meta:            src.Meta,
		}
		if prevID != "" {
			m.records[prevID].ChildMessageIDs = append(m.records[prevID].ChildMessageIDs, copied.ID)
		}
		m.records[copied.ID] = copied
		newChain = append(newChain, copied.ID)
		newHistory = append(newHistory, src.Message)
		prevID = copied.ID
	}

	session := &models.Session{
		ID:        newID,
		ParentID:  sessionID,
		Status:    models.SessionActive,
		CreatedAt: now,
	}
	m.sessions[newID] = session
	source.ChildIDs = append(source.ChildIDs, newID)

	newCtx := cloneContext(m.contexts[sessionID])
	newCtx.History = newHistory
	m.contexts[newID] = newCtx
	m.order[newID] = newChain

	// Record the fork point on both lineages. The same point may be forked
	// repeatedly, so the source entry accumulates forked session ids.
	if forkIdx >= 0 {
		forkedAt := chain[forkIdx]
		m.records[forkedAt].IsForkPoint = true

		var fp *models.ForkPoint
		for _, existing := range m.forks[sessionID] {
			if existing.MessageID == forkedAt {
				fp = existing
				break
			}
		}
		if fp == nil {
			fp = &models.ForkPoint{
				MessageID:         forkedAt,
				OriginalSessionID: sessionID,
				Timestamp:         now,
			}
			m.forks[sessionID] = append(m.forks[sessionID], fp)
		}
		fp.ForkedSessionIDs = append(fp.ForkedSessionIDs, newID)

		m.forks[newID] = append(m.forks[newID], &models.ForkPoint{
			MessageID:         forkedAt,
			OriginalSessionID: sessionID,
			ForkedSessionIDs:  []string{newID},
			Timestamp:         now,
		})
	}

	m.logger.Debug("session forked",
		"source_id", sessionID,
		"new_id", newID,
		"messages_copied", len(newChain))

	return &ForkResult{SessionID: newID, Context: cloneContext(newCtx)}, nil
}

func (m *MemoryStore) GetConversationHistory(ctx context.Context, sessionID string) (*History, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	records := make([]*models.MessageRecord, 0, len(m.order[sessionID]))
	for _, recID := range m.order[sessionID] {
		records = append(records, cloneRecord(m.records[recID]))
	}
	points := make([]*models.ForkPoint, 0, len(m.forks[sessionID]))
	for _, fp := range m.forks[sessionID] {
		points = append(points, cloneForkPoint(fp))
	}

	return &History{
		Session:    cloneSession(session),
		Context:    cloneContext(m.contexts[sessionID]),
		Records:    records,
		ForkPoints: points,
	}, nil
}

// Clone helpers. The store never hands out pointers into its own maps.

func cloneSession(s *models.Session) *models.Session {
	if s == nil {
		return nil
	}
	clone := *s
	clone.ChildIDs = append([]string(nil), s.ChildIDs...)
	return &clone
}

func cloneContext(c *models.SessionContext) *models.SessionContext {
	if c == nil {
		return &models.SessionContext{}
	}
	clone := *c
	clone.Metadata = deepCloneMap(c.Metadata)
	clone.History = append([]models.Message(nil), c.History...)
	return &clone
}

func cloneRecord(r *models.MessageRecord) *models.MessageRecord {
	if r == nil {
		return nil
	}
	clone := *r
	clone.ChildMessageIDs = append([]string(nil), r.ChildMessageIDs...)
	return &clone
}

func cloneForkPoint(fp *models.ForkPoint) *models.ForkPoint {
	if fp == nil {
		return nil
	}
	clone := *fp
	clone.ForkedSessionIDs = append([]string(nil), fp.ForkedSessionIDs...)
	return &clone
}

// deepCloneMap creates a deep copy of a map[string]any to prevent shared
// references.
func deepCloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	clone := make(map[string]any, len(m))
	for k, v := range m {
		clone[k] = deepCloneValue(v)
	}
	return clone
}

// deepCloneValue recursively clones a value, handling nested maps and slices.
func deepCloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCloneMap(val)
	case []any:
		cloned := make([]any, len(val))
		for i, item := range val {
			cloned[i] = deepCloneValue(item)
		}
		return cloned
	case []string:
		cloned := make([]string, len(val))
		copy(cloned, val)
		return cloned
	default:
		// Primitives are safe to copy by value.
		return v
	}
}
