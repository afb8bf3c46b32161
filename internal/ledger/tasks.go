package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/trigg3rX/cipherwork/internal/disclosure"
	"github.com/trigg3rX/cipherwork/internal/ledger/metrics"
	"github.com/trigg3rX/cipherwork/internal/ledger/store"
	"github.com/trigg3rX/cipherwork/pkg/events"
	"github.com/trigg3rX/cipherwork/pkg/fhe"
	"github.com/trigg3rX/cipherwork/pkg/types"
)

// CreateTaskRequest describes a new task. The ciphertext is ingested on behalf of Requester.
type CreateTaskRequest struct {
	Key          string
	Title        string
	Ciphertext   []byte
	InputProof   []byte
	RewardAmount *big.Int
	Deadline     time.Time
	Requester    string
}

// SubmitResultRequest claims that Cleartexts is the opening of the task's handle.
// Now is the time the deadline is checked against; the ledger clock is used when zero.
type SubmitResultRequest struct {
	Key        string
	Claimant   string
	Cleartexts []byte
	Proof      []byte
	Now        time.Time
}

// CreateTask ingests the ciphertext and stores a new active task whose handle is
// granted public disclosure.
func (l *Ledger) CreateTask(ctx context.Context, req CreateTaskRequest) (task types.Task, err error) {
	start := time.Now()
	defer func() { metrics.TrackOperation("create_task", start, resultLabel(err)) }()

	if req.Key == "" {
		return task, fmt.Errorf("%w: task key is empty", ErrInvalidInput)
	}

	unlock := l.keys.Lock(taskLockKey(req.Key))
	defer unlock()

	if l.hasTask(req.Key) {
		return task, fmt.Errorf("%w: %s", ErrDuplicateKey, req.Key)
	}

	requester := types.NormalizeIdentity(req.Requester)
	if requester == "" {
		return task, fmt.Errorf("%w: requester is empty", ErrInvalidInput)
	}
	reward := new(big.Int)
	if req.RewardAmount != nil {
		if req.RewardAmount.Sign() < 0 {
			return task, fmt.Errorf("%w: negative reward", ErrInvalidInput)
		}
		reward.Set(req.RewardAmount)
	}

	handle, err := l.service.Ingest(ctx, fhe.IngestRequest{
		Ciphertext: req.Ciphertext,
		InputProof: req.InputProof,
		Owner:      requester,
	})
	if err != nil {
		return task, fmt.Errorf("%w: %w", ErrInvalidCiphertext, err)
	}
	if handle.Type() != fhe.TypeUint32 {
		return task, fmt.Errorf("%w: handle %s is not a uint32 ciphertext", ErrInvalidCiphertext, handle)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	grant, err := l.handles.Grant(handle, req.Key, now)
	if err != nil {
		return task, fmt.Errorf("%w: %w", ErrInvalidCiphertext, err)
	}

	task = types.Task{
		Key:          req.Key,
		Title:        req.Title,
		Handle:       handle,
		RewardAmount: types.NewBigInt(reward),
		Deadline:     normalizeTime(req.Deadline),
		Requester:    requester,
		Status:       types.TaskStatusActive,
		CreatedAt:    now,
	}

	ev, err := l.commit(ctx, store.Mutation{Task: &task, NewTask: true, Handle: &grant}, events.Event{
		Type:     events.TaskCreated,
		TaskKey:  task.Key,
		Identity: requester,
		Payload: events.TaskCreatedEvent{
			TaskKey:   task.Key,
			Requester: requester,
			Handle:    handle,
			Deadline:  task.Deadline,
		},
	})
	if err != nil {
		return types.Task{}, err
	}

	l.logger.Info("Task created", "task", task.Key, "requester", requester, "handle", handle.Hex(), "seq", ev.Seq)
	return task.Clone(), nil
}

// AssignTask binds a registered worker to an active, unassigned task. Assignment is permanent.
func (l *Ledger) AssignTask(ctx context.Context, key string, worker string) (task types.Task, err error) {
	start := time.Now()
	defer func() { metrics.TrackOperation("assign_task", start, resultLabel(err)) }()

	unlock := l.keys.Lock(taskLockKey(key))
	defer unlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.tasks[key]
	if !ok {
		return task, fmt.Errorf("%w: task %s", ErrNotFound, key)
	}
	if !current.IsActive() {
		return task, fmt.Errorf("%w: %s", ErrNotActive, key)
	}
	if current.IsAssigned() {
		return task, fmt.Errorf("%w: %s", ErrAlreadyAssigned, key)
	}
	identity := types.NormalizeIdentity(worker)
	if !l.workers.Contains(identity) {
		return task, fmt.Errorf("%w: %s", ErrWorkerNotRegistered, identity)
	}

	task = current.Clone()
	task.AssignedWorker = identity

	ev, err := l.commit(ctx, store.Mutation{Task: &task}, events.Event{
		Type:     events.TaskAssigned,
		TaskKey:  key,
		Identity: identity,
		Payload:  events.TaskAssignedEvent{TaskKey: key, Worker: identity},
	})
	if err != nil {
		return types.Task{}, err
	}

	l.logger.Info("Task assigned", "task", key, "worker", identity, "seq", ev.Seq)
	return task.Clone(), nil
}

// SubmitResult completes a task once the assigned worker proves the claimed cleartext
// is the authorised opening of the task's handle.
func (l *Ledger) SubmitResult(ctx context.Context, req SubmitResultRequest) (task types.Task, err error) {
	start := time.Now()
	defer func() { metrics.TrackOperation("submit_result", start, resultLabel(err)) }()

	unlock := l.keys.Lock(taskLockKey(req.Key))
	defer unlock()

	claimant := types.NormalizeIdentity(req.Claimant)
	now := l.now()
	if !req.Now.IsZero() {
		now = req.Now
	}

	handle, err := l.checkSubmission(req.Key, claimant, now)
	if err != nil {
		return task, err
	}

	// Verification happens outside the state lock; the task key lock keeps the task stable.
	verifyStart := time.Now()
	values, err := l.protocol.Verify(ctx, []fhe.Handle{handle}, req.Cleartexts, req.Proof)
	metrics.VerificationDuration.Observe(time.Since(verifyStart).Seconds())
	if err != nil {
		var verr *disclosure.VerificationError
		if errors.As(err, &verr) {
			metrics.VerificationsTotal.WithLabelValues(string(verr.Reason)).Inc()
		}
		l.logger.Warn("Rejected result submission", "task", req.Key, "claimant", claimant, "error", err)
		return task, fmt.Errorf("%w: %w", ErrInvalidProof, err)
	}
	metrics.VerificationsTotal.WithLabelValues("accepted").Inc()

	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.tasks[req.Key]
	if !ok || !current.IsActive() {
		return task, fmt.Errorf("%w: %s changed during verification", ErrAlreadyCompleted, req.Key)
	}
	credited, err := l.workers.Credit(claimant, l.cfg.ReputationDelta)
	if err != nil {
		return task, fmt.Errorf("%w: %w", ErrWorkerNotRegistered, err)
	}
	disclosed, err := l.handles.Disclose(handle)
	if err != nil {
		return task, fmt.Errorf("%w: %w", ErrInvalidProof, err)
	}

	completedAt := l.now()
	value := values[0]
	task = current.Clone()
	task.Status = types.TaskStatusCompleted
	task.DisclosedValue = &value
	task.CompletedAt = &completedAt

	ev, err := l.commit(ctx, store.Mutation{Task: &task, Worker: &credited, Handle: &disclosed}, events.Event{
		Type:     events.TaskCompleted,
		TaskKey:  req.Key,
		Identity: claimant,
		Payload: events.TaskCompletedEvent{
			TaskKey:        req.Key,
			Worker:         claimant,
			DisclosedValue: value,
			Reputation:     credited.Reputation,
			CompletedTasks: credited.CompletedTasks,
		},
	})
	if err != nil {
		return types.Task{}, err
	}

	l.logger.Info("Task completed", "task", req.Key, "worker", claimant, "value", value, "seq", ev.Seq)
	return task.Clone(), nil
}

// checkSubmission applies the submission preconditions in order and returns the task's handle
func (l *Ledger) checkSubmission(key, claimant string, now time.Time) (fhe.Handle, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return fhe.Handle{}, ErrClosed
	}
	task, ok := l.tasks[key]
	if !ok {
		return fhe.Handle{}, fmt.Errorf("%w: task %s", ErrNotFound, key)
	}
	if !task.IsAssigned() || task.AssignedWorker != claimant {
		return fhe.Handle{}, fmt.Errorf("%w: %s is not assigned to %s", ErrNotAssignedWorker, claimant, key)
	}
	if task.IsCompleted() {
		return fhe.Handle{}, fmt.Errorf("%w: %s", ErrAlreadyCompleted, key)
	}
	if task.IsExpired(now) {
		return fhe.Handle{}, fmt.Errorf("%w: %s expired at %s", ErrDeadlineExceeded, key, task.Deadline.Format(time.RFC3339))
	}
	return task.Handle, nil
}

func (l *Ledger) hasTask(key string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.tasks[key]
	return ok
}
