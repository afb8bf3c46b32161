package database

import (
	"context"
	"errors"
	"strings"

	"github.com/gocql/gocql"

	"github.com/trigg3rX/cipherwork/pkg/retry"
)

// NewQuery builds a query bound to ctx
func (c *Connection) NewQuery(ctx context.Context, stmt string, values ...interface{}) *gocql.Query {
	return c.session.Query(stmt, values...).WithContext(ctx)
}

// ExecuteBatch runs batch with retry on transient cluster errors.
// Batches must only contain idempotent statements.
func (c *Connection) ExecuteBatch(ctx context.Context, batch *gocql.Batch) error {
	cfg := c.config.retryConfig()
	cfg.ShouldRetry = ShouldRetry

	return retry.RetryFunc(ctx, func() error {
		return c.session.ExecuteBatch(batch.WithContext(ctx))
	}, cfg, c.logger)
}

// NewBatch returns an empty logged batch
func (c *Connection) NewBatch() *gocql.Batch {
	return c.session.NewBatch(gocql.LoggedBatch)
}

// ShouldRetry reports whether err is a transient cluster error
func ShouldRetry(err error, _ int) bool {
	if err == nil || errors.Is(err, gocql.ErrNotFound) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var (
		writeTimeout *gocql.RequestErrWriteTimeout
		readTimeout  *gocql.RequestErrReadTimeout
		unavailable  *gocql.RequestErrUnavailable
		writeFailure *gocql.RequestErrWriteFailure
		readFailure  *gocql.RequestErrReadFailure
	)
	if errors.As(err, &writeTimeout) || errors.As(err, &readTimeout) || errors.As(err, &unavailable) ||
		errors.As(err, &writeFailure) || errors.As(err, &readFailure) {
		return true
	}
	if errors.Is(err, gocql.ErrNoConnections) || errors.Is(err, gocql.ErrTimeoutNoResponse) {
		return true
	}

	msg := err.Error()
	for _, transient := range []string{"connection refused", "connection reset by peer", "i/o timeout", "no connections available"} {
		if strings.Contains(msg, transient) {
			return true
		}
	}
	return false
}
