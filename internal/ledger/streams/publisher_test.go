package streams

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/trigg3rX/cipherwork/pkg/eventbus"
	"github.com/trigg3rX/cipherwork/pkg/events"
	"github.com/trigg3rX/cipherwork/pkg/logging"
	"github.com/trigg3rX/cipherwork/pkg/retry"
)

func testConfig() Config {
	return Config{
		Stream: "test:events",
		MaxLen: 10,
		RetryConfig: &retry.RetryConfig{
			MaxRetries:    3,
			InitialDelay:  time.Millisecond,
			MaxDelay:      5 * time.Millisecond,
			BackoffFactor: 2.0,
		},
	}
}

func TestPublish_EncodesEvent(t *testing.T) {
	client := new(MockStreamClient)
	var captured *redis.XAddArgs
	client.On("XAdd", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*redis.XAddArgs) }).
		Return(redis.NewStringResult("1-0", nil))

	p := NewRedisPublisher(client, testConfig(), logging.NewNoOpLogger())
	ev := events.Event{
		Seq:       7,
		Type:      events.TaskAssigned,
		TaskKey:   "t1",
		Identity:  "0xaa",
		Timestamp: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
		Payload:   events.TaskAssignedEvent{TaskKey: "t1", Worker: "0xaa"},
	}
	require.NoError(t, p.Publish(context.Background(), ev))

	require.NotNil(t, captured)
	assert.Equal(t, "test:events", captured.Stream)
	assert.Equal(t, int64(10), captured.MaxLen)
	assert.True(t, captured.Approx)

	values := captured.Values.(map[string]interface{})
	assert.Equal(t, "7", values["seq"])
	assert.Equal(t, "TASK_ASSIGNED", values["type"])
	assert.Equal(t, "t1", values["task_key"])
	assert.Equal(t, "2030-01-01T00:00:00Z", values["timestamp"])

	var payload events.TaskAssignedEvent
	require.NoError(t, json.Unmarshal([]byte(values["payload"].(string)), &payload))
	assert.Equal(t, "0xaa", payload.Worker)
}

func TestPublish_RetriesTransientFailures(t *testing.T) {
	client := new(MockStreamClient)
	client.On("XAdd", mock.Anything, mock.Anything).Return(redis.NewStringResult("", errors.New("connection reset"))).Twice()
	client.On("XAdd", mock.Anything, mock.Anything).Return(redis.NewStringResult("2-0", nil)).Once()

	p := NewRedisPublisher(client, testConfig(), nil)
	require.NoError(t, p.Publish(context.Background(), events.Event{Seq: 1, Type: events.WorkerRegistered}))
	client.AssertNumberOfCalls(t, "XAdd", 3)
}

func TestPublish_GivesUp(t *testing.T) {
	client := new(MockStreamClient)
	client.On("XAdd", mock.Anything, mock.Anything).Return(redis.NewStringResult("", errors.New("READONLY")))

	p := NewRedisPublisher(client, testConfig(), nil)
	err := p.Publish(context.Background(), events.Event{Seq: 1, Type: events.WorkerRegistered})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test:events")
	client.AssertNumberOfCalls(t, "XAdd", 3)
}

func TestPublisher_ForwardsInCommitOrder(t *testing.T) {
	bus := eventbus.New(nil, 16)
	client := new(MockStreamClient)

	var mu sync.Mutex
	var seqs []string
	client.On("XAdd", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			mu.Lock()
			defer mu.Unlock()
			seqs = append(seqs, args.Get(1).(*redis.XAddArgs).Values.(map[string]interface{})["seq"].(string))
		}).
		Return(redis.NewStringResult("1-0", nil))

	p := NewRedisPublisher(client, testConfig(), nil)
	require.NoError(t, p.Start(context.Background(), bus))
	assert.Error(t, p.Start(context.Background(), bus))

	for i := 0; i < 5; i++ {
		bus.Publish(events.Event{Type: events.WorkerRegistered})
	}

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seqs) == 5
	}, time.Second, 5*time.Millisecond)

	p.Stop()
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, seqs)
}

func TestPublisher_StopsWhenBusCloses(t *testing.T) {
	bus := eventbus.New(nil, 4)
	p := NewRedisPublisher(new(MockStreamClient), testConfig(), nil)
	require.NoError(t, p.Start(context.Background(), bus))

	bus.Close()
	select {
	case <-p.done:
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop after the bus closed")
	}
	p.Stop()
}

type signallingSource struct {
	*eventbus.EventBus
	subscribed chan struct{}
}

func (s *signallingSource) Subscribe(types ...events.EventType) *eventbus.Subscription {
	sub := s.EventBus.Subscribe(types...)
	s.subscribed <- struct{}{}
	return sub
}

func waitFor(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestPublisher_ResubscribesAfterFallingBehind(t *testing.T) {
	bus := eventbus.New(nil, 1)
	source := &signallingSource{EventBus: bus, subscribed: make(chan struct{}, 4)}
	client := new(MockStreamClient)

	var mu sync.Mutex
	var entries []map[string]interface{}
	entered := make(chan struct{})
	release := make(chan struct{})
	client.On("XAdd", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			mu.Lock()
			entries = append(entries, args.Get(1).(*redis.XAddArgs).Values.(map[string]interface{}))
			n := len(entries)
			mu.Unlock()
			if n == 1 {
				close(entered)
				<-release
			}
		}).
		Return(redis.NewStringResult("1-0", nil))

	p := NewRedisPublisher(client, testConfig(), nil)
	require.NoError(t, p.Start(context.Background(), source))
	defer p.Stop()
	waitFor(t, source.subscribed, "initial subscription")

	// Seq 1 holds the publisher inside XAdd, seq 2 fills the buffer and seq 3 drops it.
	bus.Publish(events.Event{Type: events.WorkerRegistered})
	waitFor(t, entered, "first XAdd")
	bus.Publish(events.Event{Type: events.WorkerRegistered})
	bus.Publish(events.Event{Type: events.WorkerRegistered})
	bus.Publish(events.Event{Type: events.WorkerRegistered})
	close(release)

	waitFor(t, source.subscribed, "resubscription")
	bus.Publish(events.Event{Type: events.TaskCreated, TaskKey: "t5"})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(entries) == 4
	}, time.Second, 5*time.Millisecond)

	select {
	case <-p.done:
		t.Fatal("publisher stopped after its subscription was dropped")
	default:
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "1", entries[0]["seq"])
	assert.Equal(t, "2", entries[1]["seq"])
	assert.Equal(t, GapEntryType, entries[2]["type"])
	assert.Equal(t, "3", entries[2]["from"])
	assert.Equal(t, "4", entries[2]["to"])
	assert.Equal(t, "5", entries[3]["seq"])
	assert.Equal(t, "t5", entries[3]["task_key"])
}
