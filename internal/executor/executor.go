// Package executor orchestrates one conversational turn: it loads session
// history, replays it as a prompt, runs the external tool, sanitizes the
// output, and commits the exchange back to the store.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/replay/internal/conversation"
	"github.com/haasonsaas/replay/internal/observability"
	"github.com/haasonsaas/replay/internal/prompt"
	"github.com/haasonsaas/replay/internal/runner"
	"github.com/haasonsaas/replay/internal/sanitize"
	"github.com/haasonsaas/replay/internal/tools/policy"
	"github.com/haasonsaas/replay/pkg/models"
)

// ProcessRunner runs one external tool invocation. Satisfied by
// *runner.Runner; tests substitute a stub.
type ProcessRunner interface {
	Run(ctx context.Context, req runner.Request) (*runner.Result, error)
}

// Config configures an Executor.
type Config struct {
	Store conversation.Store

	Runner ProcessRunner

	// Model labels results and metrics; it should match the model the
	// runner passes on the command line.
	Model string

	// SystemPrompt seeds new sessions created through the executor.
	SystemPrompt string

	// Policy applies to every invocation unless overridden per request.
	Policy *policy.Policy

	// CacheEnabled toggles the response cache.
	CacheEnabled bool

	// CacheTTL is the validity window for cached responses.
	CacheTTL time.Duration

	Logger  *slog.Logger
	Metrics *observability.Metrics
	Tracer  *observability.Tracer
}

// Request is one conversational turn.
type Request struct {
	SessionID string

	// Input is the new user message.
	Input string

	// Timeout, when set, overrides timeout resolution. Exactly 0
	// disables the timer.
	Timeout *time.Duration

	// Operation is an optional operation-type hint for timeout
	// resolution.
	Operation runner.Operation

	// Policy overrides the executor-level policy for this turn.
	Policy *policy.Policy
}

// Executor wires the store, prompt builder, process runner, and
// sanitizer into the per-turn pipeline.
type Executor struct {
	store        conversation.Store
	runner       ProcessRunner
	model        string
	systemPrompt string
	policy       *policy.Policy
	cacheEnabled bool
	cacheTTL     time.Duration
	logger       *slog.Logger
	metrics      *observability.Metrics
	tracer       *observability.Tracer
}

// New creates an executor from config.
func New(cfg Config) *Executor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tracer := cfg.Tracer
	if tracer == nil {
		tracer, _ = observability.NewTracer(observability.TraceConfig{ServiceName: "replay"})
	}
	return &Executor{
		store:        cfg.Store,
		runner:       cfg.Runner,
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		policy:       cfg.Policy,
		cacheEnabled: cfg.CacheEnabled,
		cacheTTL:     cfg.CacheTTL,
		logger:       logger.With("component", "executor"),
		metrics:      cfg.Metrics,
		tracer:       tracer,
	}
}

// CreateSession creates a session seeded with the executor's system
// prompt and model. An empty id gets a generated UUID.
func (e *Executor) CreateSession(ctx context.Context, id, parentID string) (*models.Session, error) {
	if id == "" {
		id = uuid.NewString()
	}
	sess, err := e.store.SaveSession(ctx, id, parentID, &models.SessionContext{
		SystemPrompt: e.systemPrompt,
		Model:        e.model,
	})
	if err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.SessionStarted()
	}
	e.logger.Info("session created", "session_id", sess.ID)
	return sess, nil
}

// EndSession marks a session terminated. The transcript stays readable.
func (e *Executor) EndSession(ctx context.Context, sessionID string) error {
	if err := e.store.SetStatus(ctx, sessionID, models.SessionTerminated); err != nil {
		return err
	}
	if e.metrics != nil {
		e.metrics.SessionEnded()
	}
	e.logger.Info("session ended", "session_id", sessionID)
	return nil
}

// Fork branches a session at a message, copying the shared prefix into a
// fresh session.
func (e *Executor) Fork(ctx context.Context, sessionID, atMessageID string) (*conversation.ForkResult, error) {
	res, err := e.store.ForkSession(ctx, sessionID, atMessageID)
	if err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.RecordFork()
		e.metrics.SessionStarted()
	}
	e.logger.Info("session forked", "session_id", sessionID, "fork_id", res.SessionID)
	return res, nil
}

// Checkpoint snapshots a session under a name.
func (e *Executor) Checkpoint(ctx context.Context, sessionID, name string) (string, error) {
	id, err := e.store.CreateCheckpoint(ctx, sessionID, name)
	if err != nil {
		return "", err
	}
	if e.metrics != nil {
		e.metrics.RecordCheckpoint("create")
	}
	return id, nil
}

// RestoreCheckpoint returns the snapshot taken under a checkpoint id.
func (e *Executor) RestoreCheckpoint(ctx context.Context, checkpointID string) (*models.Checkpoint, error) {
	cp, err := e.store.RestoreCheckpoint(ctx, checkpointID)
	if err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.RecordCheckpoint("restore")
	}
	return cp, nil
}

// Execute runs one conversational turn. Expected failure classes come
// back as typed errors (store sentinels, SpawnError, ExitError,
// TimeoutError); unexpected panics anywhere in the pipeline are
// converted to an error rather than crossing the API boundary.
func (e *Executor) Execute(ctx context.Context, req Request) (result *models.ExecutionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("execution panicked: %v", r)
			if e.metrics != nil {
				e.metrics.RecordError("executor", "panic")
			}
			e.logger.Error("execution panicked", "session_id", req.SessionID, "panic", r)
		}
	}()

	ctx = observability.AddSessionID(ctx, req.SessionID)
	ctx, span := e.tracer.TraceExecution(ctx, req.SessionID, e.model)
	defer span.End()

	hist, err := e.store.GetConversationHistory(ctx, req.SessionID)
	if err != nil {
		e.recordError("history_load", err)
		e.tracer.RecordError(span, err)
		return nil, err
	}

	builder := prompt.NewBuilder(hist.Context.SystemPrompt)
	payload := builder.Build(hist.Context.History, req.Input)

	if e.cacheEnabled {
		cached, err := e.store.GetCachedResponse(ctx, req.SessionID, payload)
		if err != nil {
			e.recordError("cache_lookup", err)
			e.tracer.RecordError(span, err)
			return nil, err
		}
		if cached != nil {
			if e.metrics != nil {
				e.metrics.RecordCacheLookup("hit")
			}
			return e.commitCached(ctx, req, cached)
		}
		if e.metrics != nil {
			e.metrics.RecordCacheLookup("miss")
		}
	}

	pol := req.Policy
	if pol == nil {
		pol = e.policy
	}

	runCtx, runSpan := e.tracer.TraceProcessRun(ctx, string(req.Operation))
	res, runErr := e.runner.Run(runCtx, runner.Request{
		Payload:   payload,
		Prompt:    req.Input,
		Timeout:   req.Timeout,
		Operation: req.Operation,
		Policy:    pol,
	})
	if res != nil && e.metrics != nil {
		e.metrics.RecordProcessRun(string(req.Operation), res.Duration.Seconds())
	}
	if runErr != nil {
		e.tracer.RecordError(runSpan, runErr)
		runSpan.End()
		outcome := "errored"
		if res != nil && res.State == runner.StateTimedOut {
			outcome = "timed_out"
		}
		if e.metrics != nil {
			e.metrics.RecordExecution(e.model, outcome, 0, 0)
		}
		e.logger.Warn("execution failed", "session_id", req.SessionID, "outcome", outcome, "error", runErr)
		return nil, runErr
	}
	runSpan.End()

	san := sanitize.Sanitize(res.Output)

	userRec, err := e.store.AddMessage(ctx, req.SessionID, models.Message{
		Role:    models.RoleUser,
		Content: req.Input,
	}, models.RecordMeta{GeneratedAt: res.StartedAt})
	if err != nil {
		e.recordError("commit_user", err)
		e.tracer.RecordError(span, err)
		return nil, err
	}

	asstRec, err := e.store.AddMessage(ctx, req.SessionID, models.Message{
		Role:    models.RoleAssistant,
		Content: san.Text,
	}, models.RecordMeta{
		GeneratedAt: res.EndedAt,
		TokensUsed:  prompt.EstimateTokens(san.Text),
	})
	if err != nil {
		e.recordError("commit_assistant", err)
		e.tracer.RecordError(span, err)
		return nil, err
	}

	if e.cacheEnabled && e.cacheTTL > 0 {
		if err := e.store.CacheResponse(ctx, req.SessionID, payload, san.Text, asstRec.ID, e.cacheTTL); err != nil {
			// The exchange is already committed; a cache write failure
			// only costs a future hit.
			e.logger.Warn("cache write failed", "session_id", req.SessionID, "error", err)
		}
	}

	if e.metrics != nil {
		e.metrics.RecordExecution(e.model, "completed",
			prompt.EstimateTokens(payload), prompt.EstimateTokens(san.Text))
	}
	e.logger.Debug("execution completed",
		"session_id", req.SessionID,
		"duration_ms", res.Duration.Milliseconds(),
		"tool_uses", len(san.ToolUses),
	)

	return &models.ExecutionResult{
		SessionID: req.SessionID,
		Response:  san.Text,
		ToolUses:  san.ToolUses,
		Timing: models.ExecutionTiming{
			StartedAt: res.StartedAt,
			EndedAt:   res.EndedAt,
			Duration:  res.Duration,
			Model:     res.Model,
		},
		Cached:             false,
		UserMessageID:      userRec.ID,
		AssistantMessageID: asstRec.ID,
	}, nil
}

// ExecuteWithTimeout runs one turn with an explicit timeout overriding
// all other resolution. Exactly 0 disables the timer.
func (e *Executor) ExecuteWithTimeout(ctx context.Context, sessionID, input string, timeout time.Duration) (*models.ExecutionResult, error) {
	return e.Execute(ctx, Request{
		SessionID: sessionID,
		Input:     input,
		Timeout:   &timeout,
	})
}

// commitCached appends the exchange for a cache hit. The assistant
// record is marked cached; no process is spawned.
func (e *Executor) commitCached(ctx context.Context, req Request, cached *models.CachedResponse) (*models.ExecutionResult, error) {
	now := time.Now()

	userRec, err := e.store.AddMessage(ctx, req.SessionID, models.Message{
		Role:    models.RoleUser,
		Content: req.Input,
	}, models.RecordMeta{GeneratedAt: now})
	if err != nil {
		e.recordError("commit_user", err)
		return nil, err
	}

	asstRec, err := e.store.AddMessage(ctx, req.SessionID, models.Message{
		Role:    models.RoleAssistant,
		Content: cached.Response,
	}, models.RecordMeta{
		GeneratedAt: now,
		Cached:      true,
		TokensUsed:  prompt.EstimateTokens(cached.Response),
	})
	if err != nil {
		e.recordError("commit_assistant", err)
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.RecordExecution(e.model, "cached", 0, 0)
	}
	e.logger.Debug("served from cache", "session_id", req.SessionID, "message_id", cached.MessageID)

	return &models.ExecutionResult{
		SessionID: req.SessionID,
		Response:  cached.Response,
		Timing: models.ExecutionTiming{
			StartedAt: now,
			EndedAt:   now,
			Model:     e.model,
		},
		Cached:             true,
		UserMessageID:      userRec.ID,
		AssistantMessageID: asstRec.ID,
	}, nil
}

func (e *Executor) recordError(errorType string, err error) {
	if e.metrics != nil {
		e.metrics.RecordError("executor", errorType)
	}
}
