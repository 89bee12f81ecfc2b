// Package config loads the tunables of the execution layer from the
// environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"

	"github.com/ggoodman/mcp-toolguard/formatter"
	"github.com/ggoodman/mcp-toolguard/logging"
	"github.com/ggoodman/mcp-toolguard/poll"
)

// Config holds process-wide defaults. Every value can still be overridden
// per call.
type Config struct {
	// TimeoutMS bounds each backend operation. ENV: TOOLGUARD_TIMEOUT_MS
	TimeoutMS int `env:"TOOLGUARD_TIMEOUT_MS,default=30000"`
	// MaxResponseBytes is the serialized size budget. ENV: TOOLGUARD_MAX_RESPONSE_BYTES
	MaxResponseBytes int `env:"TOOLGUARD_MAX_RESPONSE_BYTES,default=25000"`
	// SummaryTokens is the summarizer token budget. ENV: TOOLGUARD_SUMMARY_TOKENS
	SummaryTokens int `env:"TOOLGUARD_SUMMARY_TOKENS,default=500"`
	// ElicitTimeoutMS bounds an elicitation round trip. ENV: TOOLGUARD_ELICIT_TIMEOUT_MS
	ElicitTimeoutMS int `env:"TOOLGUARD_ELICIT_TIMEOUT_MS,default=120000"`
	PollIntervalMS  int `env:"TOOLGUARD_POLL_INTERVAL_MS,default=2000"`
	PollTimeoutMS   int `env:"TOOLGUARD_POLL_TIMEOUT_MS,default=60000"`
	PageSize        int `env:"TOOLGUARD_PAGE_SIZE,default=50"`
	// LogLevel is an MCP level name. ENV: TOOLGUARD_LOG_LEVEL
	LogLevel string `env:"TOOLGUARD_LOG_LEVEL,default=info"`
	// LogFormat is text or json. ENV: TOOLGUARD_LOG_FORMAT
	LogFormat string `env:"TOOLGUARD_LOG_FORMAT,default=text"`
}

// Default returns the built-in defaults without reading the environment.
func Default() Config {
	return Config{
		TimeoutMS:        30000,
		MaxResponseBytes: formatter.DefaultMaxSize,
		SummaryTokens:    formatter.DefaultTokenBudget,
		ElicitTimeoutMS:  120000,
		PollIntervalMS:   int(poll.DefaultInterval / time.Millisecond),
		PollTimeoutMS:    int(poll.DefaultTimeout / time.Millisecond),
		PageSize:         50,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Load decodes the environment on top of the defaults and validates the
// result.
func Load() (Config, error) {
	var cfg Config
	// Strict so that unparseable values fail instead of falling back.
	if err := envdecode.StrictDecode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) withDefaults() Config {
	d := Default()
	if c.TimeoutMS == 0 {
		c.TimeoutMS = d.TimeoutMS
	}
	if c.MaxResponseBytes == 0 {
		c.MaxResponseBytes = d.MaxResponseBytes
	}
	if c.SummaryTokens == 0 {
		c.SummaryTokens = d.SummaryTokens
	}
	if c.ElicitTimeoutMS == 0 {
		c.ElicitTimeoutMS = d.ElicitTimeoutMS
	}
	if c.PollIntervalMS == 0 {
		c.PollIntervalMS = d.PollIntervalMS
	}
	if c.PollTimeoutMS == 0 {
		c.PollTimeoutMS = d.PollTimeoutMS
	}
	if c.PageSize == 0 {
		c.PageSize = d.PageSize
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = d.LogFormat
	}
	return c
}

// Validate rejects negative budgets and unknown log settings.
func (c Config) Validate() error {
	var errs []error
	for name, v := range map[string]int{
		"TOOLGUARD_TIMEOUT_MS":         c.TimeoutMS,
		"TOOLGUARD_MAX_RESPONSE_BYTES": c.MaxResponseBytes,
		"TOOLGUARD_SUMMARY_TOKENS":     c.SummaryTokens,
		"TOOLGUARD_ELICIT_TIMEOUT_MS":  c.ElicitTimeoutMS,
		"TOOLGUARD_POLL_INTERVAL_MS":   c.PollIntervalMS,
		"TOOLGUARD_POLL_TIMEOUT_MS":    c.PollTimeoutMS,
		"TOOLGUARD_PAGE_SIZE":          c.PageSize,
	} {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("TOOLGUARD_LOG_LEVEL: %w", err))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("TOOLGUARD_LOG_FORMAT must be text or json, got %q", c.LogFormat))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

// Timeout is the default backend operation budget.
func (c Config) Timeout() time.Duration { return ms(c.TimeoutMS) }

// ElicitTimeout is the elicitation round-trip budget.
func (c Config) ElicitTimeout() time.Duration { return ms(c.ElicitTimeoutMS) }

// FormatterOptions returns formatter options seeded from c.
func (c Config) FormatterOptions() formatter.Options {
	return formatter.Options{MaxSize: c.MaxResponseBytes, TokenBudget: c.SummaryTokens, SummaryTimeout: c.Timeout()}
}

// PollOptions returns poller options seeded from c.
func (c Config) PollOptions() poll.Options {
	return poll.Options{Interval: ms(c.PollIntervalMS), Timeout: ms(c.PollTimeoutMS)}
}

// LoggingOptions returns logging options seeded from c. The level has
// already been validated by Load.
func (c Config) LoggingOptions() logging.Options {
	level, _ := logging.ParseLevel(c.LogLevel)
	return logging.Options{Format: c.LogFormat, Level: level}
}
