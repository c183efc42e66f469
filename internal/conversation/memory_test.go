package conversation

import (
	"context"
	"fmt"
	"testing"

	"github.com/haasonsaas/replay/pkg/models"
)

func newTestStore() *MemoryStore {
	return NewMemoryStore(nil)
}

func mustSession(t *testing.T, store *MemoryStore, id string) *models.Session {
	t.Helper()
	session, err := store.SaveSession(context.Background(), id, "", &models.SessionContext{SystemPrompt: "You are Bob"})
	if err != nil {
		t.Fatalf("SaveSession() error = %v", err)
	}
	return session
}

func mustAdd(t *testing.T, store *MemoryStore, sessionID string, role models.Role, content string) *models.MessageRecord {
	t.Helper()
	rec, err := store.AddMessage(context.Background(), sessionID, models.Message{Role: role, Content: content}, models.RecordMeta{})
	if err != nil {
		t.Fatalf("AddMessage(%q) error = %v", content, err)
	}
	return rec
}

func TestMemoryStore_SaveSessionLifecycle(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()

	session := mustSession(t, store, "s1")
	if session.Status != models.SessionActive {
		t.Errorf("Status = %q, want active", session.Status)
	}

	if _, err := store.SaveSession(ctx, "s1", "", nil); err != ErrSessionExists {
		t.Errorf("duplicate SaveSession() error = %v, want ErrSessionExists", err)
	}

	child, err := store.SaveSession(ctx, "s2", "s1", nil)
	if err != nil {
		t.Fatalf("SaveSession(child) error = %v", err)
	}
	if child.ParentID != "s1" {
		t.Errorf("ParentID = %q", child.ParentID)
	}

	history, err := store.GetConversationHistory(ctx, "s1")
	if err != nil {
		t.Fatalf("GetConversationHistory() error = %v", err)
	}
	if len(history.Session.ChildIDs) != 1 || history.Session.ChildIDs[0] != "s2" {
		t.Errorf("ChildIDs = %v", history.Session.ChildIDs)
	}

	if _, err := store.SaveSession(ctx, "s3", "missing", nil); err != ErrSessionNotFound {
		t.Errorf("missing parent error = %v, want ErrSessionNotFound", err)
	}

	if err := store.DeleteSession(ctx, "s2"); err != nil {
		t.Fatalf("DeleteSession() error = %v", err)
	}
	if err := store.DeleteSession(ctx, "s2"); err != ErrSessionNotFound {
		t.Errorf("double delete error = %v", err)
	}

	remaining, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != "s1" {
		t.Errorf("ListSessions() = %v, want just s1", remaining)
	}
}

func TestMemoryStore_SetStatus(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	mustSession(t, store, "s1")

	if err := store.SetStatus(ctx, "s1", models.SessionTerminated); err != nil {
		t.Fatalf("SetStatus() error = %v", err)
	}
	history, _ := store.GetConversationHistory(ctx, "s1")
	if history.Session.Status != models.SessionTerminated {
		t.Errorf("Status = %q", history.Session.Status)
	}

	if err := store.SetStatus(ctx, "missing", models.SessionError); err != ErrSessionNotFound {
		t.Errorf("SetStatus(missing) error = %v", err)
	}
}

func TestMemoryStore_AddMessageChains(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	mustSession(t, store, "s1")

	first := mustAdd(t, store, "s1", models.RoleUser, "hi")
	second := mustAdd(t, store, "s1", models.RoleAssistant, "hello")

	if first.ParentMessageID != "" {
		t.Errorf("first.ParentMessageID = %q", first.ParentMessageID)
	}
	if second.ParentMessageID != first.ID {
		t.Errorf("second.ParentMessageID = %q, want %q", second.ParentMessageID, first.ID)
	}

	history, err := store.GetConversationHistory(ctx, "s1")
	if err != nil {
		t.Fatalf("GetConversationHistory() error = %v", err)
	}
	if len(history.Records) != 2 {
		t.Fatalf("Records = %d, want 2", len(history.Records))
	}
	if len(history.Records[0].ChildMessageIDs) != 1 || history.Records[0].ChildMessageIDs[0] != second.ID {
		t.Errorf("first.ChildMessageIDs = %v", history.Records[0].ChildMessageIDs)
	}
	if len(history.Context.History) != 2 {
		t.Errorf("context history mirror = %d entries", len(history.Context.History))
	}

	if _, err := store.AddMessage(ctx, "missing", models.Message{Role: models.RoleUser, Content: "x"}, models.RecordMeta{}); err != ErrSessionNotFound {
		t.Errorf("AddMessage(missing) error = %v", err)
	}
}

func TestMemoryStore_ForkCopiesPrefix(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	mustSession(t, store, "src")

	var recs []*models.MessageRecord
	for i := 0; i < 6; i++ {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		recs = append(recs, mustAdd(t, store, "src", role, fmt.Sprintf("msg-%d", i)))
	}

	// Fork at index k: the new session holds exactly k+1 identical messages.
	for k := 0; k < len(recs); k++ {
		fork, err := store.ForkSession(ctx, "src", recs[k].ID)
		if err != nil {
			t.Fatalf("ForkSession(at %d) error = %v", k, err)
		}

		forked, err := store.GetConversationHistory(ctx, fork.SessionID)
		if err != nil {
			t.Fatalf("GetConversationHistory(fork) error = %v", err)
		}
		if len(forked.Records) != k+1 {
			t.Fatalf("fork at %d: %d records, want %d", k, len(forked.Records), k+1)
		}
		for i, rec := range forked.Records {
			if rec.Message.Role != recs[i].Message.Role || rec.Message.Content != recs[i].Message.Content {
				t.Errorf("fork at %d: record %d = %+v, want %+v", k, i, rec.Message, recs[i].Message)
			}
			if rec.ID == recs[i].ID {
				t.Errorf("fork at %d: record %d shares id with source", k, i)
			}
			if rec.SessionID != fork.SessionID {
				t.Errorf("fork at %d: record %d has session %q", k, i, rec.SessionID)
			}
		}
	}

	// Source stays intact: same six messages, fork points flagged.
	source, err := store.GetConversationHistory(ctx, "src")
	if err != nil {
		t.Fatalf("GetConversationHistory(src) error = %v", err)
	}
	if len(source.Records) != 6 {
		t.Fatalf("source records = %d", len(source.Records))
	}
	for i, rec := range source.Records {
		if rec.Message.Content != fmt.Sprintf("msg-%d", i) {
			t.Errorf("source record %d mutated: %q", i, rec.Message.Content)
		}
		if !rec.IsForkPoint {
			t.Errorf("source record %d not marked as fork point", i)
		}
	}
	if len(source.ForkPoints) != 6 {
		t.Errorf("source fork points = %d", len(source.ForkPoints))
	}
}

func TestMemoryStore_ForkAtLatestByDefault(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	mustSession(t, store, "src")
	mustAdd(t, store, "src", models.RoleUser, "a")
	last := mustAdd(t, store, "src", models.RoleAssistant, "b")

	fork, err := store.ForkSession(ctx, "src", "")
	if err != nil {
		t.Fatalf("ForkSession() error = %v", err)
	}
	forked, _ := store.GetConversationHistory(ctx, fork.SessionID)
	if len(forked.Records) != 2 {
		t.Fatalf("records = %d, want full copy", len(forked.Records))
	}

	source, _ := store.GetConversationHistory(ctx, "src")
	if !source.Records[1].IsForkPoint {
		t.Error("latest source message should be the fork point")
	}
	if source.ForkPoints[0].MessageID != last.ID {
		t.Errorf("ForkPoint.MessageID = %q, want %q", source.ForkPoints[0].MessageID, last.ID)
	}
}

func TestMemoryStore_SiblingForksShareOnlyPrefix(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	mustSession(t, store, "src")
	first := mustAdd(t, store, "src", models.RoleUser, "q1")
	mustAdd(t, store, "src", models.RoleAssistant, "a1")
	third := mustAdd(t, store, "src", models.RoleUser, "q2")

	forkA, err := store.ForkSession(ctx, "src", first.ID)
	if err != nil {
		t.Fatalf("ForkSession(A) error = %v", err)
	}
	forkB, err := store.ForkSession(ctx, "src", third.ID)
	if err != nil {
		t.Fatalf("ForkSession(B) error = %v", err)
	}

	mustAdd(t, store, forkA.SessionID, models.RoleAssistant, "divergent-a")
	mustAdd(t, store, forkB.SessionID, models.RoleAssistant, "divergent-b")

	histA, _ := store.GetConversationHistory(ctx, forkA.SessionID)
	histB, _ := store.GetConversationHistory(ctx, forkB.SessionID)

	if len(histA.Records) != 2 || len(histB.Records) != 4 {
		t.Fatalf("records = %d and %d, want 2 and 4", len(histA.Records), len(histB.Records))
	}
	// Common prefix is identical in role and content.
	if histA.Records[0].Message != histB.Records[0].Message {
		t.Errorf("common prefix differs: %+v vs %+v", histA.Records[0].Message, histB.Records[0].Message)
	}
	// Divergent suffixes are disjoint.
	if histA.Records[1].Message.Content != "divergent-a" {
		t.Errorf("fork A tail = %q", histA.Records[1].Message.Content)
	}
	if histB.Records[3].Message.Content != "divergent-b" {
		t.Errorf("fork B tail = %q", histB.Records[3].Message.Content)
	}
}

func TestMemoryStore_RepeatedForksAtSamePoint(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	mustSession(t, store, "src")
	rec := mustAdd(t, store, "src", models.RoleUser, "q")

	for i := 0; i < 3; i++ {
		if _, err := store.ForkSession(ctx, "src", rec.ID); err != nil {
			t.Fatalf("ForkSession(#%d) error = %v", i, err)
		}
	}

	source, _ := store.GetConversationHistory(ctx, "src")
	if len(source.ForkPoints) != 1 {
		t.Fatalf("fork points = %d, want 1 accumulated entry", len(source.ForkPoints))
	}
	if got := len(source.ForkPoints[0].ForkedSessionIDs); got != 3 {
		t.Errorf("ForkedSessionIDs = %d, want 3", got)
	}
	if len(source.Session.ChildIDs) != 3 {
		t.Errorf("ChildIDs = %d, want 3", len(source.Session.ChildIDs))
	}
}

func TestMemoryStore_ForkErrors(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	mustSession(t, store, "src")
	mustSession(t, store, "other")
	otherRec := mustAdd(t, store, "other", models.RoleUser, "x")

	if _, err := store.ForkSession(ctx, "missing", ""); err != ErrSessionNotFound {
		t.Errorf("fork missing session error = %v", err)
	}
	if _, err := store.ForkSession(ctx, "src", "nope"); err != ErrMessageNotFound {
		t.Errorf("fork unknown message error = %v", err)
	}
	// A message id from another session's chain is not found here.
	if _, err := store.ForkSession(ctx, "src", otherRec.ID); err != ErrMessageNotFound {
		t.Errorf("fork foreign message error = %v", err)
	}
}

func TestMemoryStore_HistoryIsolation(t *testing.T) {
	store := newTestStore()
	ctx := context.Background()
	mustSession(t, store, "s1")
	mustAdd(t, store, "s1", models.RoleUser, "original")

	history, _ := store.GetConversationHistory(ctx, "s1")
	history.Records[0].Message.Content = "mutated"
	history.Session.ChildIDs = append(history.Session.ChildIDs, "bogus")
	history.Context.History[0].Content = "mutated"

	fresh, _ := store.GetConversationHistory(ctx, "s1")
	if fresh.Records[0].Message.Content != "original" {
		t.Error("record mutation leaked into store")
	}
	if len(fresh.Session.ChildIDs) != 0 {
		t.Error("session mutation leaked into store")
	}
	if fresh.Context.History[0].Content != "original" {
		t.Error("context mutation leaked into store")
	}
}

func TestMemoryStore_ConcurrentSessions(t *testing.T) {
	t.Parallel()
	store := newTestStore()
	ctx := context.Background()
	mustSession(t, store, "a")
	mustSession(t, store, "b")

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_, _ = store.AddMessage(ctx, "a", models.Message{Role: models.RoleUser, Content: "x"}, models.RecordMeta{})
		}
	}()
	for i := 0; i < 100; i++ {
		_, _ = store.AddMessage(ctx, "b", models.Message{Role: models.RoleUser, Content: "y"}, models.RecordMeta{})
		_, _ = store.GetConversationHistory(ctx, "a")
	}
	<-done

	histA, _ := store.GetConversationHistory(ctx, "a")
	if len(histA.Records) != 100 {
		t.Errorf("session a records = %d, want 100", len(histA.Records))
	}
}
