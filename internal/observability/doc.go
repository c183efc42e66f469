// Package observability provides metrics, structured logging, and
// distributed tracing for the session emulation layer.
//
// # Metrics
//
// Metrics are implemented with Prometheus and track:
//   - Execution outcomes (completed, cached, timed out, errored) per model
//   - External process runtime per operation type
//   - Response cache hits, misses, and expirations
//   - Active session counts
//   - Timeout escalations by signal stage
//   - Fork and checkpoint activity
//
// Example usage:
//
//	metrics := observability.NewMetrics()
//	metrics.RecordExecution("claude-3", "completed", elapsed.Seconds())
//	metrics.RecordCacheLookup("hit")
//
// # Logging
//
// Logging is built on Go's slog package with automatic session/request ID
// correlation from context and redaction of sensitive data (API keys and
// tokens routinely appear in prompts headed for an AI tool).
//
// Example usage:
//
//	logger := observability.NewLogger(observability.LogConfig{
//	    Level:  "info",
//	    Format: "json",
//	})
//	ctx = observability.AddSessionID(ctx, sessionID)
//	logger.Info(ctx, "execution completed", "duration_ms", elapsedMS)
//
// # Tracing
//
// Distributed tracing uses OpenTelemetry. Spans cover the full execution
// pipeline: history load, prompt assembly, cache lookup, process run, and
// the final conversation commit. When no OTLP endpoint is configured the
// tracer is a no-op.
//
// Example usage:
//
//	tracer, shutdown := observability.NewTracer(observability.TraceConfig{
//	    ServiceName: "replay",
//	    Endpoint:    os.Getenv("OTEL_ENDPOINT"),
//	})
//	defer shutdown(context.Background())
//
//	ctx, span := tracer.TraceExecution(ctx, sessionID, model)
//	defer span.End()
package observability
