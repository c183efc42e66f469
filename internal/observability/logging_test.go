package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNewLoggerDefaults(t *testing.T) {
	logger := NewLogger(LogConfig{})
	if logger == nil {
		t.Fatal("NewLogger() returned nil")
	}
	if logger.logger == nil {
		t.Error("Logger.logger is nil")
	}
	if len(logger.redacts) == 0 {
		t.Error("default redaction patterns were not compiled")
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{
		Level:  "warn",
		Format: "json",
		Output: &buf,
	})

	ctx := context.Background()
	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message")
	logger.Warn(ctx, "warn message")

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("below-level records were written: %s", out)
	}
	if !strings.Contains(out, "warn message") {
		t.Errorf("warn record missing: %s", out)
	}
}

func TestLoggerContextCorrelation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "info", Format: "json", Output: &buf})

	ctx := AddSessionID(AddRequestID(context.Background(), "req-1"), "sess-2")
	logger.Info(ctx, "processing")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if record["request_id"] != "req-1" {
		t.Errorf("request_id = %v", record["request_id"])
	}
	if record["session_id"] != "sess-2" {
		t.Errorf("session_id = %v", record["session_id"])
	}
}

func TestLoggerRedaction(t *testing.T) {
	tests := []struct {
		name string
		msg  string
	}{
		{"api key assignment", `failed with api_key="abcdef1234567890abcdef"`},
		{"bearer token", "auth header was Bearer abcdefghij0123456789"},
		{"anthropic key", "sk-ant-" + strings.Repeat("a", 100)},
		{"jwt", "token eyJhbGciOiJIUzI1NiJ9.eyJzdWIiOiIxIn0.abc123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(LogConfig{Level: "info", Format: "json", Output: &buf})

			logger.Info(context.Background(), tt.msg)

			out := buf.String()
			if !strings.Contains(out, "[REDACTED]") {
				t.Errorf("output was not redacted: %s", out)
			}
		})
	}
}

func TestLoggerRedactsErrorValues(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "info", Format: "json", Output: &buf})

	err := errors.New(`request failed: api_key="secretsecret12345678"`)
	logger.Error(context.Background(), "request failed", "error", err)

	out := buf.String()
	if strings.Contains(out, "secretsecret12345678") {
		t.Errorf("error value leaked a secret: %s", out)
	}
}

func TestLoggerCustomRedactPattern(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{
		Level:          "info",
		Format:         "json",
		Output:         &buf,
		RedactPatterns: []string{`internal-ticket-\d+`},
	})

	logger.Info(context.Background(), "see internal-ticket-42 for details")

	if !strings.Contains(buf.String(), "[REDACTED]") {
		t.Errorf("custom pattern not applied: %s", buf.String())
	}
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LogConfig{Level: "info", Format: "json", Output: &buf})

	logger.WithFields("component", "executor").Info(context.Background(), "started")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if record["component"] != "executor" {
		t.Errorf("component = %v", record["component"])
	}
}

func TestGetSessionID(t *testing.T) {
	if got := GetSessionID(context.Background()); got != "" {
		t.Errorf("GetSessionID(empty ctx) = %q", got)
	}
	ctx := AddSessionID(context.Background(), "sess-9")
	if got := GetSessionID(ctx); got != "sess-9" {
		t.Errorf("GetSessionID() = %q", got)
	}
}
