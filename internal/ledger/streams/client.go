package streams

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/trigg3rX/cipherwork/pkg/logging"
	"github.com/trigg3rX/cipherwork/pkg/retry"
)

// NewClient parses a redis:// or rediss:// URL and waits until the server answers a ping
func NewClient(ctx context.Context, url string, logger logging.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opt)
	cfg := retry.DefaultRetryConfig()
	cfg.MaxRetries = 3
	if err := retry.RetryFunc(ctx, func() error {
		return client.Ping(ctx).Err()
	}, cfg, logger); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Infof("Connected to redis at %s", opt.Addr)
	return client, nil
}
