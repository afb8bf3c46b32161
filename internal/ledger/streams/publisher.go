// Package streams forwards committed ledger events to a Redis stream so
// processes outside the ledger can follow it in commit order.
package streams

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/trigg3rX/cipherwork/internal/ledger/metrics"
	"github.com/trigg3rX/cipherwork/pkg/eventbus"
	"github.com/trigg3rX/cipherwork/pkg/events"
	"github.com/trigg3rX/cipherwork/pkg/logging"
	"github.com/trigg3rX/cipherwork/pkg/retry"
)

const (
	DefaultStream = "cipherwork:ledger:events"
	DefaultMaxLen = 100000

	// GapEntryType marks a stream entry recording a range of events that were never forwarded
	GapEntryType = "EVENTS_MISSED"

	consumerName = "stream_publisher"
)

// StreamClient is the part of the redis client the publisher uses
type StreamClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
}

type Config struct {
	Stream      string
	MaxLen      int64
	RetryConfig *retry.RetryConfig
}

func DefaultConfig() Config {
	return Config{
		Stream: DefaultStream,
		MaxLen: DefaultMaxLen,
		RetryConfig: &retry.RetryConfig{
			MaxRetries:      5,
			InitialDelay:    100 * time.Millisecond,
			MaxDelay:        5 * time.Second,
			BackoffFactor:   2.0,
			JitterFactor:    0.2,
			LogRetryAttempt: true,
		},
	}
}

type RedisPublisher struct {
	client StreamClient
	cfg    Config
	logger logging.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRedisPublisher(client StreamClient, cfg Config, logger logging.Logger) *RedisPublisher {
	if cfg.Stream == "" {
		cfg.Stream = DefaultStream
	}
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &RedisPublisher{
		client: client,
		cfg:    cfg,
		logger: logger.With("component", "stream_publisher", "stream", cfg.Stream),
	}
}

// Start subscribes to source and forwards its events until Stop is called,
// ctx is cancelled or the source closes. A subscription dropped for falling
// behind is replaced and the skipped sequence range is recorded on the stream.
func (p *RedisPublisher) Start(ctx context.Context, source eventbus.Source) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != nil {
		return errors.New("publisher already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := source.Subscribe()
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		p.run(ctx, source, sub)
	}()

	p.logger.Info("Stream publisher started")
	return nil
}

func (p *RedisPublisher) run(ctx context.Context, source eventbus.Source, sub *eventbus.Subscription) {
	defer func() { source.Unsubscribe(sub) }()

	var cursor eventbus.Cursor
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C:
			if !ok {
				if !sub.Dropped() || ctx.Err() != nil {
					p.logger.Warn("Event subscription closed, stream publisher stopping")
					return
				}
				sub = source.Subscribe()
				metrics.ConsumerResubscribesTotal.WithLabelValues(consumerName).Inc()
				p.logger.Warn("Stream publisher fell behind, resubscribed", "last_seq", cursor.Last())
				continue
			}
			if gap, skipped := cursor.Advance(ev.Seq); skipped {
				p.recordGap(ctx, gap)
			}
			if err := p.Publish(ctx, ev); err != nil && ctx.Err() == nil {
				p.logger.Error("Failed to publish event", "seq", ev.Seq, "type", ev.Type, "error", err)
			}
		}
	}
}

// recordGap counts the missed events and appends a marker entry so stream
// readers know the range was never forwarded.
func (p *RedisPublisher) recordGap(ctx context.Context, gap eventbus.Gap) {
	metrics.EventsMissedTotal.WithLabelValues(consumerName).Add(float64(gap.Len()))
	p.logger.Warn("Events missed while resubscribing", "from", gap.From, "to", gap.To)

	values := map[string]interface{}{
		"type":      GapEntryType,
		"from":      strconv.FormatUint(gap.From, 10),
		"to":        strconv.FormatUint(gap.To, 10),
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	}
	if _, err := p.xadd(ctx, values); err != nil && ctx.Err() == nil {
		p.logger.Error("Failed to append gap marker", "from", gap.From, "to", gap.To, "error", err)
	}
}

// Stop ends forwarding and waits for the in-flight event to finish
func (p *RedisPublisher) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.logger.Info("Stream publisher stopped")
}

// Publish appends one event to the stream, retrying transient failures
func (p *RedisPublisher) Publish(ctx context.Context, ev events.Event) error {
	values, err := encodeEvent(ev)
	if err != nil {
		metrics.StreamPublishTotal.WithLabelValues("failure").Inc()
		return err
	}

	id, err := p.xadd(ctx, values)
	if err != nil {
		metrics.StreamPublishTotal.WithLabelValues("failure").Inc()
		return err
	}

	metrics.StreamPublishTotal.WithLabelValues("success").Inc()
	p.logger.Debug("Event forwarded", "seq", ev.Seq, "type", ev.Type, "id", id)
	return nil
}

func (p *RedisPublisher) xadd(ctx context.Context, values map[string]interface{}) (string, error) {
	args := &redis.XAddArgs{
		Stream: p.cfg.Stream,
		ID:     "*",
		Values: values,
	}
	if p.cfg.MaxLen > 0 {
		args.MaxLen = p.cfg.MaxLen
		args.Approx = true
	}

	id, err := retry.Retry(ctx, func() (string, error) {
		return p.client.XAdd(ctx, args).Result()
	}, p.cfg.RetryConfig, p.logger)
	if err != nil {
		return "", fmt.Errorf("xadd %s: %w", p.cfg.Stream, err)
	}
	return id, nil
}

func encodeEvent(ev events.Event) (map[string]interface{}, error) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", ev.Type, err)
	}
	return map[string]interface{}{
		"seq":       strconv.FormatUint(ev.Seq, 10),
		"type":      string(ev.Type),
		"task_key":  ev.TaskKey,
		"identity":  ev.Identity,
		"timestamp": ev.Timestamp.UTC().Format(time.RFC3339Nano),
		"payload":   string(payload),
	}, nil
}
