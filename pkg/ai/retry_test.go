package ai

import (
	"context"
	"testing"
	"time"

	"github.com/promptfit/promptfit/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryMiddleware_SucceedsAfterFailures(t *testing.T) {
	mock := NewMockGen()
	mock.QueueError("transient")
	mock.QueueError("still down")
	mock.QueueResponse("recovered")

	retry := NewRetryMiddleware(mock, RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
	})

	got, err := retry.GenerateContent(context.Background(), Prompt{Name: "p"}, false)
	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
	assert.Equal(t, 3, mock.TotalCalls())
}

func TestRetryMiddleware_ExhaustsRetries(t *testing.T) {
	mock := NewMockGen()
	mock.QueueError("down")
	mock.QueueError("down")

	retry := NewRetryMiddleware(mock, RetryConfig{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
	})

	_, err := retry.GenerateContent(context.Background(), Prompt{Name: "p"}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.Equal(t, 2, mock.TotalCalls())
}

func TestRetryMiddleware_StopsOnCancellation(t *testing.T) {
	mock := NewMockGen()
	mock.QueueError("down")
	mock.QueueError("down")
	mock.QueueError("down")

	retry := NewRetryMiddleware(mock, RetryConfig{
		MaxRetries:     3,
		InitialBackoff: time.Hour, // would hang without cancellation
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := retry.GenerateContent(ctx, Prompt{Name: "p"}, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetRetryConfigFromEnv_Defaults(t *testing.T) {
	cfg := GetRetryConfigFromEnv(config.NewConfigManager())

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.InitialBackoff)
}
