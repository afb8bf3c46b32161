package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trigg3rX/cipherwork/pkg/logging"
)

func fastConfig(maxRetries int) *RetryConfig {
	return &RetryConfig{
		MaxRetries:    maxRetries,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
		JitterFactor:  0.1,
	}
}

func TestRetry(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name          string
		failures      int
		maxRetries    int
		expectErr     bool
		expectedCalls int
	}{
		{"succeeds first time", 0, 3, false, 1},
		{"succeeds after retries", 2, 3, false, 3},
		{"gives up", 5, 3, true, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			result, err := Retry(context.Background(), func() (string, error) {
				calls++
				if calls <= tt.failures {
					return "", errBoom
				}
				return "ok", nil
			}, fastConfig(tt.maxRetries), logging.NewNoOpLogger())

			assert.Equal(t, tt.expectedCalls, calls)
			if tt.expectErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, errBoom)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ok", result)
		})
	}
}

func TestRetry_ShouldRetryStopsEarly(t *testing.T) {
	errFatal := errors.New("fatal")
	cfg := fastConfig(5)
	cfg.ShouldRetry = func(err error, attempt int) bool { return !errors.Is(err, errFatal) }

	calls := 0
	err := RetryFunc(context.Background(), func() error {
		calls++
		return errFatal
	}, cfg, nil)

	assert.ErrorIs(t, err, errFatal)
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Retry(ctx, func() (int, error) { return 1, nil }, fastConfig(3), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultRetryConfig().Validate())

	bad := fastConfig(0)
	assert.Error(t, bad.Validate())

	bad = fastConfig(1)
	bad.BackoffFactor = 0.5
	assert.Error(t, bad.Validate())

	_, err := Retry(context.Background(), func() (int, error) { return 0, nil }, bad, nil)
	assert.ErrorContains(t, err, "invalid retry config")
}

func TestBackoff_GrowsAndCaps(t *testing.T) {
	b := newBackoff(&RetryConfig{InitialDelay: 2 * time.Second, MaxDelay: 10 * time.Second, BackoffFactor: 2})

	assert.Equal(t, 2*time.Second, b.next())
	assert.Equal(t, 4*time.Second, b.next())
	assert.Equal(t, 8*time.Second, b.next())
	assert.Equal(t, 10*time.Second, b.next())
	assert.Equal(t, 10*time.Second, b.next())
}

func TestBackoff_JitterStaysWithinFactor(t *testing.T) {
	b := newBackoff(&RetryConfig{InitialDelay: time.Second, MaxDelay: time.Second, BackoffFactor: 1, JitterFactor: 0.5})

	for i := 0; i < 20; i++ {
		d := b.next()
		assert.GreaterOrEqual(t, d, time.Second)
		assert.Less(t, d, 1500*time.Millisecond)
	}
}
