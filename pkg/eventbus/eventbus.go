package eventbus

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/trigg3rX/cipherwork/pkg/events"
	"github.com/trigg3rX/cipherwork/pkg/logging"
)

const DefaultBufferSize = 256

// Subscription receives events in publish order until it is closed.
// C is closed when the subscriber unsubscribes, falls behind, or the bus closes.
type Subscription struct {
	ID      string
	C       <-chan events.Event
	ch      chan events.Event
	types   map[events.EventType]struct{}
	dropped atomic.Bool
}

// Dropped reports whether C was closed because the subscriber fell behind.
// A dropped consumer may subscribe again; anything else means the source is gone.
func (s *Subscription) Dropped() bool {
	return s.dropped.Load()
}

func (s *Subscription) wants(t events.EventType) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// Source hands out ordered subscriptions; implemented by EventBus and the ledger
type Source interface {
	Subscribe(types ...events.EventType) *Subscription
	Unsubscribe(sub *Subscription)
}

// EventBus delivers events to subscribers without ever blocking the publisher
type EventBus struct {
	mu          sync.Mutex
	seq         uint64
	subscribers map[string]*Subscription
	bufferSize  int
	closed      bool
	logger      logging.Logger
}

func New(logger logging.Logger, bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &EventBus{
		subscribers: make(map[string]*Subscription),
		bufferSize:  bufferSize,
		logger:      logger.With("component", "eventbus"),
	}
}

// Subscribe registers a subscriber for the given event types, or all types when none are given
func (eb *EventBus) Subscribe(types ...events.EventType) *Subscription {
	ch := make(chan events.Event, eb.bufferSize)
	sub := &Subscription{
		ID:    uuid.New().String(),
		C:     ch,
		ch:    ch,
		types: make(map[events.EventType]struct{}, len(types)),
	}
	for _, t := range types {
		sub.types[t] = struct{}{}
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed {
		close(ch)
		return sub
	}
	eb.subscribers[sub.ID] = sub
	eb.logger.Debugf("Subscriber %s added", sub.ID)
	return sub
}

func (eb *EventBus) Unsubscribe(sub *Subscription) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.remove(sub.ID)
}

// Publish stamps the next sequence number on event and hands it to every subscriber.
// A subscriber whose buffer is full is dropped.
func (eb *EventBus) Publish(event events.Event) events.Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.seq++
	event.Seq = eb.seq
	if eb.closed {
		return event
	}

	for id, sub := range eb.subscribers {
		if !sub.wants(event.Type) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			eb.logger.Warn("Dropping slow subscriber", "subscriber", id, "seq", event.Seq)
			sub.dropped.Store(true)
			eb.remove(id)
		}
	}
	return event
}

// Seq is the sequence number of the last published event
func (eb *EventBus) Seq() uint64 {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	return eb.seq
}

// Resume sets the sequence counter, used after state is reloaded from storage
func (eb *EventBus) Resume(seq uint64) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.seq = seq
}

func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.closed {
		return
	}
	eb.closed = true
	for id := range eb.subscribers {
		eb.remove(id)
	}
}

func (eb *EventBus) remove(id string) {
	if sub, ok := eb.subscribers[id]; ok {
		delete(eb.subscribers, id)
		close(sub.ch)
	}
}

// Gap is an inclusive range of sequence numbers a consumer never received
type Gap struct {
	From uint64
	To   uint64
}

func (g Gap) Len() uint64 {
	return g.To - g.From + 1
}

// Cursor remembers the last sequence number a consumer handled across resubscriptions
type Cursor struct {
	last uint64
}

// Advance records seq and returns the range skipped since the previous event, if any
func (c *Cursor) Advance(seq uint64) (Gap, bool) {
	prev := c.last
	if seq > c.last {
		c.last = seq
	}
	if prev == 0 || seq <= prev+1 {
		return Gap{}, false
	}
	return Gap{From: prev + 1, To: seq - 1}, true
}

func (c *Cursor) Last() uint64 {
	return c.last
}
