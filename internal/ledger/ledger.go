// Package ledger is the single source of truth for confidential tasks, their
// assignments and the workers who complete them.
//
// Every mutating operation follows the same commit protocol under the state
// write lock: validate, build the new records, persist them, apply them in
// memory, publish one event. A failure at any step leaves memory untouched.
// Slow calls to the cryptographic service run outside the state lock but
// inside the per-key lock of the task they concern.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/trigg3rX/cipherwork/internal/disclosure"
	"github.com/trigg3rX/cipherwork/internal/ledger/metrics"
	"github.com/trigg3rX/cipherwork/internal/ledger/store"
	"github.com/trigg3rX/cipherwork/internal/registry/handles"
	"github.com/trigg3rX/cipherwork/internal/registry/workers"
	"github.com/trigg3rX/cipherwork/pkg/eventbus"
	"github.com/trigg3rX/cipherwork/pkg/events"
	"github.com/trigg3rX/cipherwork/pkg/fhe"
	"github.com/trigg3rX/cipherwork/pkg/logging"
	"github.com/trigg3rX/cipherwork/pkg/types"
)

const DefaultReputationDelta uint64 = 10

type Config struct {
	// ReputationDelta is added to a worker's reputation per completed task
	ReputationDelta uint64
	// VerifyTimeout bounds each call to the cryptographic service during submission
	VerifyTimeout time.Duration
	// EventBufferSize is the per-subscriber event buffer
	EventBufferSize int
	// Clock overrides time.Now, for tests
	Clock func() time.Time
}

func DefaultConfig() Config {
	return Config{
		ReputationDelta: DefaultReputationDelta,
		VerifyTimeout:   disclosure.DefaultTimeout,
		EventBufferSize: eventbus.DefaultBufferSize,
	}
}

type Ledger struct {
	cfg      Config
	service  fhe.Service
	store    store.Store
	bus      *eventbus.EventBus
	protocol *disclosure.Protocol
	logger   logging.Logger

	keys *keyedLocks

	mu             sync.RWMutex
	tasks          map[string]types.Task
	taskOrder      []string
	workers        *workers.Registry
	handles        *handles.Registry
	activeTasks    int
	completedTasks int
	closed         bool
}

// New builds a ledger and restores its state from st.
// A missing cryptographic service or an unreadable or inconsistent store is fatal.
func New(ctx context.Context, cfg Config, service fhe.Service, st store.Store, logger logging.Logger) (*Ledger, error) {
	if service == nil {
		return nil, errors.New("cryptographic service is required")
	}
	if st == nil {
		return nil, errors.New("store is required")
	}
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	if cfg.VerifyTimeout <= 0 {
		cfg.VerifyTimeout = disclosure.DefaultTimeout
	}

	l := &Ledger{
		cfg:     cfg,
		service: service,
		store:   st,
		bus:     eventbus.New(logger, cfg.EventBufferSize),
		logger:  logger.With("component", "ledger"),
		keys:    newKeyedLocks(),
		tasks:   make(map[string]types.Task),
		workers: workers.New(),
		handles: handles.New(),
	}
	l.protocol = disclosure.New(service, authorizer{l}, cfg.VerifyTimeout, logger)

	snap, err := st.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to load state: %w", ErrStorage, err)
	}
	if err := l.restore(snap); err != nil {
		return nil, fmt.Errorf("%w: corrupt state: %w", ErrStorage, err)
	}
	l.bus.Resume(snap.Seq)

	l.logger.Infof("Ledger ready with %d tasks, %d workers at seq %d", len(l.taskOrder), l.workers.Len(), snap.Seq)
	return l, nil
}

// restore rebuilds memory from a snapshot, checking cross-record invariants
func (l *Ledger) restore(snap *store.Snapshot) error {
	for _, rec := range snap.Handles {
		if l.handles.Contains(rec.Handle) {
			return fmt.Errorf("duplicate handle %s", rec.Handle)
		}
		l.handles.Put(rec)
	}
	for _, w := range snap.Workers {
		if l.workers.Contains(w.Identity) {
			return fmt.Errorf("duplicate worker %s", w.Identity)
		}
		l.workers.Put(w)
	}
	for _, t := range snap.Tasks {
		if _, exists := l.tasks[t.Key]; exists {
			return fmt.Errorf("duplicate task %s", t.Key)
		}
		rec, ok := l.handles.Get(t.Handle)
		if !ok || rec.Owner != t.Key {
			return fmt.Errorf("task %s: handle %s not owned by task", t.Key, t.Handle)
		}
		if t.IsAssigned() && !l.workers.Contains(t.AssignedWorker) {
			return fmt.Errorf("task %s: assigned to unknown worker %s", t.Key, t.AssignedWorker)
		}
		switch t.Status {
		case types.TaskStatusActive:
		case types.TaskStatusCompleted:
			if t.DisclosedValue == nil || !t.IsAssigned() || !rec.Disclosed {
				return fmt.Errorf("task %s: completed without disclosure", t.Key)
			}
		default:
			return fmt.Errorf("task %s: unknown status %q", t.Key, t.Status)
		}
		l.applyTask(t, true)
	}
	l.updateGauges()
	return nil
}

// Subscribe returns a subscription to committed events, all types when none are given
func (l *Ledger) Subscribe(kinds ...events.EventType) *eventbus.Subscription {
	return l.bus.Subscribe(kinds...)
}

func (l *Ledger) Unsubscribe(sub *eventbus.Subscription) {
	l.bus.Unsubscribe(sub)
}

// Close stops event delivery and closes the store. Later operations fail with ErrClosed.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.bus.Close()
	return l.store.Close()
}

func (l *Ledger) now() time.Time {
	if l.cfg.Clock != nil {
		return normalizeTime(l.cfg.Clock())
	}
	return normalizeTime(time.Now())
}

// normalizeTime drops precision the store cannot keep
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// commit persists m, applies it and publishes ev. The caller holds l.mu for writing.
func (l *Ledger) commit(ctx context.Context, m store.Mutation, ev events.Event) (events.Event, error) {
	if l.closed {
		return ev, ErrClosed
	}

	m.Seq = l.bus.Seq() + 1
	if err := metrics.TrackCommit(func() error { return l.store.Commit(ctx, m) }); err != nil {
		l.logger.Error("Store commit failed", "seq", m.Seq, "error", err)
		return ev, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	if m.Task != nil {
		l.applyTask(*m.Task, m.NewTask)
	}
	if m.Worker != nil {
		l.workers.Put(*m.Worker)
	}
	if m.Handle != nil {
		l.handles.Put(*m.Handle)
	}
	l.updateGauges()

	ev.Timestamp = l.now()
	published := l.bus.Publish(ev)
	metrics.EventsPublishedTotal.WithLabelValues(string(ev.Type)).Inc()
	return published, nil
}

func (l *Ledger) applyTask(t types.Task, isNew bool) {
	prev, existed := l.tasks[t.Key]
	if isNew && !existed {
		l.taskOrder = append(l.taskOrder, t.Key)
	}
	if existed && prev.IsActive() {
		l.activeTasks--
	} else if existed {
		l.completedTasks--
	}
	if t.IsActive() {
		l.activeTasks++
	} else {
		l.completedTasks++
	}
	l.tasks[t.Key] = t.Clone()
}

func (l *Ledger) updateGauges() {
	metrics.TasksTotal.WithLabelValues(string(types.TaskStatusActive)).Set(float64(l.activeTasks))
	metrics.TasksTotal.WithLabelValues(string(types.TaskStatusCompleted)).Set(float64(l.completedTasks))
	metrics.WorkersTotal.Set(float64(l.workers.Len()))
}

// authorizer exposes the handle registry to the disclosure protocol under the read lock
type authorizer struct {
	l *Ledger
}

func (a authorizer) IsPubliclyDisclosable(h fhe.Handle) bool {
	a.l.mu.RLock()
	defer a.l.mu.RUnlock()
	return a.l.handles.IsPubliclyDisclosable(h)
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return ErrorCode(err)
}
