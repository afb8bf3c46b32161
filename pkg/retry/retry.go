package retry

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/trigg3rX/cipherwork/pkg/logging"
)

// RetryConfig controls how often and how patiently an operation is retried
type RetryConfig struct {
	MaxRetries      int           // total attempts, including the first
	InitialDelay    time.Duration
	MaxDelay        time.Duration
	BackoffFactor   float64
	JitterFactor    float64 // fraction of the delay added at random
	LogRetryAttempt bool
	// ShouldRetry stops retrying early when it returns false for (err, attempt)
	ShouldRetry func(error, int) bool
}

func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:      5,
		InitialDelay:    time.Second,
		MaxDelay:        30 * time.Second,
		BackoffFactor:   2.0,
		JitterFactor:    0.2,
		LogRetryAttempt: true,
	}
}

func (c *RetryConfig) Validate() error {
	switch {
	case c.MaxRetries < 1:
		return errors.New("MaxRetries must be >= 1")
	case c.InitialDelay <= 0 || c.MaxDelay <= 0:
		return errors.New("delays must be positive")
	case c.BackoffFactor < 1.0:
		return errors.New("BackoffFactor must be >= 1.0")
	case c.JitterFactor < 0 || c.JitterFactor > 1.0:
		return errors.New("JitterFactor must be between 0.0 and 1.0")
	}
	return nil
}

// backoff yields successive sleep durations for one Retry call
type backoff struct {
	cfg   *RetryConfig
	delay time.Duration
}

func newBackoff(cfg *RetryConfig) *backoff {
	return &backoff{cfg: cfg, delay: cfg.InitialDelay}
}

// next returns the jittered current delay and grows the base for the following call
func (b *backoff) next() time.Duration {
	sleep := b.delay
	if b.cfg.JitterFactor > 0 {
		sleep += time.Duration(b.cfg.JitterFactor * float64(b.delay) * randomFraction())
	}
	b.delay = time.Duration(float64(b.delay) * b.cfg.BackoffFactor)
	if b.delay > b.cfg.MaxDelay {
		b.delay = b.cfg.MaxDelay
	}
	return sleep
}

// randomFraction returns a value in [0, 1); jitter is best effort so a read failure yields 0
func randomFraction() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0
	}
	return float64(binary.BigEndian.Uint64(buf[:])>>11) / (1 << 53)
}

// Retry runs operation until it succeeds, ShouldRetry declines, attempts run out or ctx ends
func Retry[T any](ctx context.Context, operation func() (T, error), cfg *RetryConfig, logger logging.Logger) (T, error) {
	var zero T
	if cfg == nil {
		cfg = DefaultRetryConfig()
	} else if err := cfg.Validate(); err != nil {
		return zero, fmt.Errorf("invalid retry config: %w", err)
	}
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}

	b := newBackoff(cfg)
	var lastErr error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := operation()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if cfg.ShouldRetry != nil && !cfg.ShouldRetry(err, attempt) {
			return zero, err
		}
		if attempt == cfg.MaxRetries {
			break
		}

		wait := b.next()
		if cfg.LogRetryAttempt {
			logger.Warnf("Attempt %d/%d failed: %v. Retrying in %v...", attempt, cfg.MaxRetries, err, wait)
		}
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		}
	}
	return zero, fmt.Errorf("operation failed after %d attempts: %w", cfg.MaxRetries, lastErr)
}

// RetryFunc is Retry for operations without a result
func RetryFunc(ctx context.Context, operation func() error, cfg *RetryConfig, logger logging.Logger) error {
	_, err := Retry(ctx, func() (struct{}, error) {
		return struct{}{}, operation()
	}, cfg, logger)
	return err
}
