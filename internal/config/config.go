package config

import (
	"fmt"
	"time"

	"github.com/haasonsaas/replay/internal/tools/policy"
)

// Config is the main configuration structure for the emulation layer.
// Durations are strings in time.ParseDuration syntax ("90s", "2m").
type Config struct {
	Tool    ToolConfig    `yaml:"tool"`
	Session SessionConfig `yaml:"session"`
	Cache   CacheConfig   `yaml:"cache"`
	Tools   PolicyConfig  `yaml:"tools"`
	Logging LoggingConfig `yaml:"logging"`
	Tracing TracingConfig `yaml:"tracing"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ToolConfig describes the external tool binary and its timeouts.
type ToolConfig struct {
	// Binary is the executable invoked for every turn.
	Binary string `yaml:"binary"`

	// Model is passed to the tool on the command line.
	Model string `yaml:"model"`

	// DefaultTimeout applies when no hint or heuristic resolves one.
	DefaultTimeout string `yaml:"default_timeout"`

	// GraceTimeout is the SIGTERM-to-SIGKILL window.
	GraceTimeout string `yaml:"grace_timeout"`

	// OperationTimeouts overrides the built-in per-operation table.
	// Keys: quick, text, code, file, system.
	OperationTimeouts map[string]string `yaml:"operation_timeouts"`
}

// SessionConfig holds per-session defaults.
type SessionConfig struct {
	// SystemPrompt is replayed at the top of every prompt.
	SystemPrompt string `yaml:"system_prompt"`
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	// Enabled toggles response caching.
	Enabled bool `yaml:"enabled"`

	// TTL is how long a cached response stays valid.
	TTL string `yaml:"ttl"`
}

// PolicyConfig restricts which tools the external tool may use.
type PolicyConfig struct {
	Declared []string `yaml:"declared"`
	Allow    []string `yaml:"allow"`
	Deny     []string `yaml:"deny"`
}

// Policy converts the config section into a runtime policy.
func (p PolicyConfig) Policy() *policy.Policy {
	if len(p.Declared) == 0 && len(p.Allow) == 0 && len(p.Deny) == 0 {
		return nil
	}
	return &policy.Policy{
		Tools: policy.NormalizeTools(p.Declared),
		Allow: policy.NormalizeTools(p.Allow),
		Deny:  policy.NormalizeTools(p.Deny),
	}
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TracingConfig struct {
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
	Insecure     bool    `yaml:"insecure"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Tool.Binary == "" {
		cfg.Tool.Binary = "claude"
	}
	if cfg.Tool.DefaultTimeout == "" {
		cfg.Tool.DefaultTimeout = "60s"
	}
	if cfg.Tool.GraceTimeout == "" {
		cfg.Tool.GraceTimeout = "5s"
	}
	if cfg.Cache.TTL == "" {
		cfg.Cache.TTL = "5m"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}

var validOperations = map[string]bool{
	"quick":  true,
	"text":   true,
	"code":   true,
	"file":   true,
	"system": true,
}

// Validate checks the configuration for inconsistencies. Validate must
// pass before the parsed duration accessors are used.
func Validate(cfg *Config) error {
	if cfg.Tool.Binary == "" {
		return fmt.Errorf("tool.binary is required")
	}
	if _, err := time.ParseDuration(cfg.Tool.DefaultTimeout); err != nil {
		return fmt.Errorf("tool.default_timeout: invalid duration %q: %w", cfg.Tool.DefaultTimeout, err)
	}
	if d, err := time.ParseDuration(cfg.Tool.GraceTimeout); err != nil {
		return fmt.Errorf("tool.grace_timeout: invalid duration %q: %w", cfg.Tool.GraceTimeout, err)
	} else if d <= 0 {
		return fmt.Errorf("tool.grace_timeout must be positive")
	}
	for op, raw := range cfg.Tool.OperationTimeouts {
		if !validOperations[op] {
			return fmt.Errorf("tool.operation_timeouts: unknown operation %q", op)
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("tool.operation_timeouts.%s: invalid duration %q: %w", op, raw, err)
		}
		if d <= 0 {
			return fmt.Errorf("tool.operation_timeouts.%s must be positive", op)
		}
	}
	if d, err := time.ParseDuration(cfg.Cache.TTL); err != nil {
		return fmt.Errorf("cache.ttl: invalid duration %q: %w", cfg.Cache.TTL, err)
	} else if d < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	if cfg.Tracing.SamplingRate < 0 || cfg.Tracing.SamplingRate > 1 {
		return fmt.Errorf("tracing.sampling_rate must be between 0 and 1")
	}
	switch cfg.Logging.Format {
	case "", "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", cfg.Logging.Format)
	}
	return nil
}

// DefaultTimeoutDuration returns the parsed default timeout.
func (c ToolConfig) DefaultTimeoutDuration() time.Duration {
	return mustDuration(c.DefaultTimeout)
}

// GraceTimeoutDuration returns the parsed grace timeout.
func (c ToolConfig) GraceTimeoutDuration() time.Duration {
	return mustDuration(c.GraceTimeout)
}

// OperationTimeoutDurations returns the parsed per-operation overrides.
func (c ToolConfig) OperationTimeoutDurations() map[string]time.Duration {
	if len(c.OperationTimeouts) == 0 {
		return nil
	}
	out := make(map[string]time.Duration, len(c.OperationTimeouts))
	for op, raw := range c.OperationTimeouts {
		out[op] = mustDuration(raw)
	}
	return out
}

// TTLDuration returns the parsed cache TTL.
func (c CacheConfig) TTLDuration() time.Duration {
	return mustDuration(c.TTL)
}

// mustDuration assumes the value already passed Validate; malformed
// values fall back to zero rather than panicking.
func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
