package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDoVal_SucceedsAfterFailures(t *testing.T) {
	attempts := 0
	val, err := DoVal(context.Background(), fastConfig(), func(context.Context) (string, error) {
		attempts++
		if attempts < 3 {
			return "", eris.New("transient")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", val)
	assert.Equal(t, 3, attempts)
}

func TestDoVal_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	_, err := DoVal(context.Background(), fastConfig(), func(context.Context) (int, error) {
		attempts++
		return 0, eris.New("always fails")
	})
	assert.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoVal_ShouldRetryStopsEarly(t *testing.T) {
	cfg := fastConfig()
	cfg.ShouldRetry = func(error) bool { return false }

	attempts := 0
	_, err := DoVal(context.Background(), cfg, func(context.Context) (int, error) {
		attempts++
		return 0, eris.New("permanent")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDoVal_ContextCancelStopsRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts := 0
	_, err := DoVal(ctx, fastConfig(), func(context.Context) (int, error) {
		attempts++
		cancel()
		return 0, eris.New("fails")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestDo_WrapsDoVal(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func(context.Context) error {
		calls++
		if calls < 2 {
			return eris.New("once more")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDoVal_OnRetryObservesAttempts(t *testing.T) {
	cfg := fastConfig()
	var notified []int
	cfg.OnRetry = func(attempt int, err error) {
		notified = append(notified, attempt)
		assert.Error(t, err)
	}

	_, err := DoVal(context.Background(), cfg, func(context.Context) (int, error) {
		return 0, eris.New("nope")
	})
	assert.Error(t, err)
	assert.Equal(t, []int{1, 2}, notified)
}
