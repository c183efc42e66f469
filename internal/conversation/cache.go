package conversation

import (
	"context"
	"time"

	"github.com/haasonsaas/replay/pkg/models"
)

// Response cache: exact-string prompt keys scoped per session. Expiry is
// checked lazily on read; PruneCache sweeps eagerly.

func (m *MemoryStore) CacheResponse(ctx context.Context, sessionID, prompt, response, messageID string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	entries := m.cache[sessionID]
	if entries == nil {
		entries = map[string]*models.CachedResponse{}
		m.cache[sessionID] = entries
	}
	entries[prompt] = &models.CachedResponse{
		Prompt:    prompt,
		Response:  response,
		MessageID: messageID,
		Timestamp: time.Now(),
		TTL:       ttl,
	}
	return nil
}

// GetCachedResponse returns the cached entry for the exact prompt, or
// (nil, nil) on miss or expiry. Expired entries are dropped on the way out.
func (m *MemoryStore) GetCachedResponse(ctx context.Context, sessionID, prompt string) (*models.CachedResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[sessionID]; !ok {
		return nil, ErrSessionNotFound
	}
	entry, ok := m.cache[sessionID][prompt]
	if !ok {
		return nil, nil
	}
	if entry.Expired(time.Now()) {
		delete(m.cache[sessionID], prompt)
		return nil, nil
	}
	clone := *entry
	return &clone, nil
}

// PruneCache eagerly removes expired entries for one session, or sweeps all
// sessions when sessionID is empty. Returns the number of entries removed.
func (m *MemoryStore) PruneCache(ctx context.Context, sessionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if sessionID != "" {
		return pruneEntries(m.cache[sessionID], now)
	}
	removed := 0
	for _, entries := range m.cache {
		removed += pruneEntries(entries, now)
	}
	return removed
}

func pruneEntries(entries map[string]*models.CachedResponse, now time.Time) int {
	removed := 0
	for prompt, entry := range entries {
		if entry.Expired(now) {
			delete(entries, prompt)
			removed++
		}
	}
	return removed
}
