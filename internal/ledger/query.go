package ledger

import (
	"fmt"

	"github.com/trigg3rX/cipherwork/pkg/fhe"
	"github.com/trigg3rX/cipherwork/pkg/types"
)

// Read-only projections. Each call observes one consistent state.

func (l *Ledger) GetTask(key string) (types.Task, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	task, ok := l.tasks[key]
	if !ok {
		return types.Task{}, fmt.Errorf("%w: task %s", ErrNotFound, key)
	}
	return task.Clone(), nil
}

func (l *Ledger) GetWorker(identity string) (types.Worker, error) {
	identity = types.NormalizeIdentity(identity)

	l.mu.RLock()
	defer l.mu.RUnlock()

	w, ok := l.workers.Get(identity)
	if !ok {
		return types.Worker{}, fmt.Errorf("%w: worker %s", ErrNotFound, identity)
	}
	return w, nil
}

// ListTaskKeys returns task keys in creation order
func (l *Ledger) ListTaskKeys() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	keys := make([]string, len(l.taskOrder))
	copy(keys, l.taskOrder)
	return keys
}

// ListWorkerIdentities returns identities in registration order
func (l *Ledger) ListWorkerIdentities() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.workers.Identities()
}

func (l *Ledger) ListTasks() []types.Task {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]types.Task, 0, len(l.taskOrder))
	for _, key := range l.taskOrder {
		out = append(out, l.tasks[key].Clone())
	}
	return out
}

func (l *Ledger) ListWorkers() []types.Worker {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.workers.List()
}

// GetHandle returns the authorization state of a ciphertext handle
func (l *Ledger) GetHandle(h fhe.Handle) (types.HandleRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.handles.Get(h)
	if !ok {
		return types.HandleRecord{}, fmt.Errorf("%w: handle %s", ErrNotFound, h)
	}
	return rec, nil
}
