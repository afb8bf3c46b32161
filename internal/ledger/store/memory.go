package store

import (
	"context"
	"errors"
	"sync"

	"github.com/trigg3rX/cipherwork/pkg/fhe"
	"github.com/trigg3rX/cipherwork/pkg/types"
)

var ErrClosed = errors.New("store closed")

// MemoryStore keeps committed records in process memory.
// Nothing survives the process, but a second Ledger built on the same MemoryStore
// sees everything the first one committed.
type MemoryStore struct {
	mu          sync.RWMutex
	tasks       map[string]types.Task
	taskOrder   []string
	workers     map[string]types.Worker
	workerOrder []string
	handles     map[fhe.Handle]types.HandleRecord
	handleOrder []fhe.Handle
	seq         uint64
	closed      bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks:   make(map[string]types.Task),
		workers: make(map[string]types.Worker),
		handles: make(map[fhe.Handle]types.HandleRecord),
	}
}

func (s *MemoryStore) Load(ctx context.Context) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	snap := &Snapshot{
		Tasks:   make([]types.Task, 0, len(s.taskOrder)),
		Workers: make([]types.Worker, 0, len(s.workerOrder)),
		Handles: make([]types.HandleRecord, 0, len(s.handleOrder)),
		Seq:     s.seq,
	}
	for _, key := range s.taskOrder {
		snap.Tasks = append(snap.Tasks, s.tasks[key].Clone())
	}
	for _, id := range s.workerOrder {
		snap.Workers = append(snap.Workers, s.workers[id])
	}
	for _, h := range s.handleOrder {
		snap.Handles = append(snap.Handles, s.handles[h])
	}
	return snap, nil
}

func (s *MemoryStore) Commit(ctx context.Context, m Mutation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	if m.Task != nil {
		if _, exists := s.tasks[m.Task.Key]; !exists {
			s.taskOrder = append(s.taskOrder, m.Task.Key)
		}
		s.tasks[m.Task.Key] = m.Task.Clone()
	}
	if m.Worker != nil {
		if _, exists := s.workers[m.Worker.Identity]; !exists {
			s.workerOrder = append(s.workerOrder, m.Worker.Identity)
		}
		s.workers[m.Worker.Identity] = *m.Worker
	}
	if m.Handle != nil {
		if _, exists := s.handles[m.Handle.Handle]; !exists {
			s.handleOrder = append(s.handleOrder, m.Handle.Handle)
		}
		s.handles[m.Handle.Handle] = *m.Handle
	}
	if m.Seq > s.seq {
		s.seq = m.Seq
	}
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
