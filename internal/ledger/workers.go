package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trigg3rX/cipherwork/internal/ledger/metrics"
	"github.com/trigg3rX/cipherwork/internal/ledger/store"
	"github.com/trigg3rX/cipherwork/internal/registry/workers"
	"github.com/trigg3rX/cipherwork/pkg/events"
	"github.com/trigg3rX/cipherwork/pkg/types"
)

// RegisterWorker adds a new worker with zero reputation
func (l *Ledger) RegisterWorker(ctx context.Context, identity string) (worker types.Worker, err error) {
	start := time.Now()
	defer func() { metrics.TrackOperation("register_worker", start, resultLabel(err)) }()

	identity = types.NormalizeIdentity(identity)
	if identity == "" {
		return worker, fmt.Errorf("%w: worker identity is empty", ErrInvalidInput)
	}

	unlock := l.keys.Lock(workerLockKey(identity))
	defer unlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	worker, err = l.workers.Prepare(identity, l.now())
	if errors.Is(err, workers.ErrWorkerExists) {
		return types.Worker{}, fmt.Errorf("%w: %s", ErrAlreadyRegistered, identity)
	}
	if err != nil {
		return types.Worker{}, err
	}

	ev, err := l.commit(ctx, store.Mutation{Worker: &worker, NewWorker: true}, events.Event{
		Type:     events.WorkerRegistered,
		Identity: identity,
		Payload:  events.WorkerRegisteredEvent{Identity: identity},
	})
	if err != nil {
		return types.Worker{}, err
	}

	l.logger.Info("Worker registered", "worker", identity, "seq", ev.Seq)
	return worker, nil
}
