package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/promptfit/promptfit/pkg/config"
	"github.com/promptfit/promptfit/pkg/logging"
)

// RetryConfig configures the retry middleware
type RetryConfig struct {
	Enabled        bool
	MaxRetries     int
	InitialBackoff time.Duration
}

// RetryMiddleware wraps a Gen implementation with exponential backoff.
// Summarizer calls run many files in a row; transient upstream errors
// should not fail the whole pack run.
type RetryMiddleware struct {
	underlying     Gen
	maxRetries     int
	initialBackoff time.Duration
	logger         logging.Logger
}

// NewRetryMiddleware creates a new RetryMiddleware
func NewRetryMiddleware(underlying Gen, config RetryConfig) *RetryMiddleware {
	return &RetryMiddleware{
		underlying:     underlying,
		maxRetries:     config.MaxRetries,
		initialBackoff: config.InitialBackoff,
		logger:         logging.NewComponentLogger("llm-retry"),
	}
}

var _ Gen = (*RetryMiddleware)(nil)

// GenerateContent implements the Gen interface with retry logic
func (r *RetryMiddleware) GenerateContent(ctx context.Context, p Prompt, debug bool, args ...string) (string, error) {
	return r.withRetries(ctx, func() (string, error) {
		return r.underlying.GenerateContent(ctx, p, debug, args...)
	})
}

// GenerateContentAttr implements the Gen interface with retry logic
func (r *RetryMiddleware) GenerateContentAttr(ctx context.Context, p Prompt, debug bool, attrs []Attr) (string, error) {
	return r.withRetries(ctx, func() (string, error) {
		return r.underlying.GenerateContentAttr(ctx, p, debug, attrs)
	})
}

// GetStatus delegates to the underlying client
func (r *RetryMiddleware) GetStatus() *Status {
	return r.underlying.GetStatus()
}

func (r *RetryMiddleware) withRetries(ctx context.Context, call func() (string, error)) (string, error) {
	var (
		response string
		err      error
	)

	backoff := r.initialBackoff
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		response, err = call()
		if err == nil {
			return response, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		r.logger.Warn("generation attempt failed", "attempt", attempt, "backoff", backoff.String(), "error", err)

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		backoff *= 2
	}

	return "", fmt.Errorf("failed to generate content after %d retries: %w", r.maxRetries, err)
}

// GetRetryConfigFromEnv creates retry config from environment variables
func GetRetryConfigFromEnv(configManager config.Manager) RetryConfig {
	return RetryConfig{
		Enabled:        configManager.GetBoolWithDefault("PROMPTFIT_RETRY_LLM_ENABLED", true),
		MaxRetries:     configManager.GetIntWithDefault("PROMPTFIT_RETRY_LLM_MAX_RETRIES", 3),
		InitialBackoff: configManager.GetDurationWithDefault("PROMPTFIT_RETRY_LLM_INITIAL_BACKOFF", 1*time.Second),
	}
}
