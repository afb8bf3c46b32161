// Package workers holds worker records in registration order.
//
// A Registry is not synchronised; its owner serialises access.
package workers

import (
	"errors"
	"fmt"
	"time"

	"github.com/trigg3rX/cipherwork/pkg/types"
)

var (
	ErrWorkerExists  = errors.New("worker already registered")
	ErrUnknownWorker = errors.New("worker not registered")
)

type Registry struct {
	workers map[string]types.Worker
	order   []string
}

func New() *Registry {
	return &Registry{workers: make(map[string]types.Worker)}
}

// Prepare builds the record for a new worker without storing it
func (r *Registry) Prepare(identity string, at time.Time) (types.Worker, error) {
	if _, exists := r.workers[identity]; exists {
		return types.Worker{}, fmt.Errorf("%w: %s", ErrWorkerExists, identity)
	}
	return types.Worker{Identity: identity, RegisteredAt: at}, nil
}

// Credit returns a copy of the worker with one more completed task and delta more reputation
func (r *Registry) Credit(identity string, delta uint64) (types.Worker, error) {
	w, ok := r.workers[identity]
	if !ok {
		return types.Worker{}, fmt.Errorf("%w: %s", ErrUnknownWorker, identity)
	}
	w.CompletedTasks++
	w.Reputation += delta
	return w, nil
}

// Put stores w. New identities are appended to the iteration order.
func (r *Registry) Put(w types.Worker) {
	if _, exists := r.workers[w.Identity]; !exists {
		r.order = append(r.order, w.Identity)
	}
	r.workers[w.Identity] = w
}

func (r *Registry) Get(identity string) (types.Worker, bool) {
	w, ok := r.workers[identity]
	return w, ok
}

func (r *Registry) Contains(identity string) bool {
	_, ok := r.workers[identity]
	return ok
}

// Identities returns a copy of the registration order
func (r *Registry) Identities() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func (r *Registry) List() []types.Worker {
	out := make([]types.Worker, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.workers[id])
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.order)
}
