package store

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/gocql/gocql"

	"github.com/trigg3rX/cipherwork/internal/ledger/store/queries"
	"github.com/trigg3rX/cipherwork/pkg/database"
	"github.com/trigg3rX/cipherwork/pkg/fhe"
	"github.com/trigg3rX/cipherwork/pkg/logging"
	"github.com/trigg3rX/cipherwork/pkg/types"
)

// CassandraStore writes each Mutation as one logged batch
type CassandraStore struct {
	db     *database.Connection
	logger logging.Logger
}

var _ Store = (*CassandraStore)(nil)

func NewCassandraStore(db *database.Connection, logger logging.Logger) *CassandraStore {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &CassandraStore{db: db, logger: logger.With("component", "cassandra_store")}
}

func (s *CassandraStore) Commit(ctx context.Context, m Mutation) error {
	batch := s.db.NewBatch()

	if t := m.Task; t != nil {
		batch.Query(queries.UpsertTaskQuery,
			t.Key, t.Title, t.Handle.Bytes(), rewardOrZero(t.RewardAmount), t.Deadline, t.Requester,
			string(t.Status), t.AssignedWorker, disclosedColumn(t.DisclosedValue), t.CreatedAt, t.CompletedAt,
		)
		if m.NewTask {
			batch.Query(queries.AppendOrderingQuery, queries.KindTask, int64(m.Seq), t.Key)
		}
	}
	if w := m.Worker; w != nil {
		batch.Query(queries.UpsertWorkerQuery, w.Identity, int64(w.Reputation), int64(w.CompletedTasks), w.RegisteredAt)
		if m.NewWorker {
			batch.Query(queries.AppendOrderingQuery, queries.KindWorker, int64(m.Seq), w.Identity)
		}
	}
	if h := m.Handle; h != nil {
		batch.Query(queries.UpsertHandleQuery, h.Handle.Bytes(), h.Owner, h.PubliclyDisclosable, h.Disclosed, h.RegisteredAt)
	}
	batch.Query(queries.UpdateSeqQuery, queries.MetaLedger, int64(m.Seq))

	if err := s.db.ExecuteBatch(ctx, batch); err != nil {
		return fmt.Errorf("failed to commit mutation %d: %w", m.Seq, err)
	}
	return nil
}

func (s *CassandraStore) Load(ctx context.Context) (*Snapshot, error) {
	start := time.Now()
	snap := &Snapshot{}

	tasks, err := s.loadTasks(ctx)
	if err != nil {
		return nil, err
	}
	snap.Tasks, err = orderRecords(ctx, s, queries.KindTask, tasks)
	if err != nil {
		return nil, err
	}

	workers, err := s.loadWorkers(ctx)
	if err != nil {
		return nil, err
	}
	snap.Workers, err = orderRecords(ctx, s, queries.KindWorker, workers)
	if err != nil {
		return nil, err
	}

	if snap.Handles, err = s.loadHandles(ctx); err != nil {
		return nil, err
	}

	var seq int64
	err = s.db.NewQuery(ctx, queries.SelectSeqQuery, queries.MetaLedger).Scan(&seq)
	if err != nil && !errors.Is(err, gocql.ErrNotFound) {
		return nil, fmt.Errorf("failed to load sequence: %w", err)
	}
	snap.Seq = uint64(seq)

	s.logger.Infof("Loaded %d tasks, %d workers, %d handles at seq %d in %s",
		len(snap.Tasks), len(snap.Workers), len(snap.Handles), snap.Seq, time.Since(start))
	return snap, nil
}

func (s *CassandraStore) Close() error {
	s.db.Close()
	return nil
}

func (s *CassandraStore) loadTasks(ctx context.Context) (map[string]types.Task, error) {
	iter := s.db.NewQuery(ctx, queries.SelectTasksQuery).Iter()
	tasks := make(map[string]types.Task)

	for {
		var (
			t           types.Task
			handle      []byte
			status      string
			disclosed   *int64
			completedAt time.Time
		)
		reward := new(big.Int)
		if !iter.Scan(&t.Key, &t.Title, &handle, reward, &t.Deadline, &t.Requester,
			&status, &t.AssignedWorker, &disclosed, &t.CreatedAt, &completedAt) {
			break
		}

		h, err := fhe.HandleFromBytes(handle)
		if err != nil {
			_ = iter.Close()
			return nil, fmt.Errorf("task %s: corrupt handle: %w", t.Key, err)
		}
		t.Handle = h
		t.RewardAmount = types.NewBigInt(reward)
		t.Status = types.TaskStatus(status)
		if disclosed != nil {
			v := uint32(*disclosed)
			t.DisclosedValue = &v
		}
		if !completedAt.IsZero() {
			at := completedAt.UTC()
			t.CompletedAt = &at
		}
		t.Deadline = t.Deadline.UTC()
		t.CreatedAt = t.CreatedAt.UTC()
		tasks[t.Key] = t
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	return tasks, nil
}

func (s *CassandraStore) loadWorkers(ctx context.Context) (map[string]types.Worker, error) {
	iter := s.db.NewQuery(ctx, queries.SelectWorkersQuery).Iter()
	workers := make(map[string]types.Worker)

	var (
		identity                   string
		reputation, completedTasks int64
		registeredAt               time.Time
	)
	for iter.Scan(&identity, &reputation, &completedTasks, &registeredAt) {
		workers[identity] = types.Worker{
			Identity:       identity,
			Reputation:     uint64(reputation),
			CompletedTasks: uint64(completedTasks),
			RegisteredAt:   registeredAt.UTC(),
		}
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to load workers: %w", err)
	}
	return workers, nil
}

func (s *CassandraStore) loadHandles(ctx context.Context) ([]types.HandleRecord, error) {
	iter := s.db.NewQuery(ctx, queries.SelectHandlesQuery).Iter()
	var records []types.HandleRecord

	var (
		raw                 []byte
		owner               string
		disclosable, opened bool
		registeredAt        time.Time
	)
	for iter.Scan(&raw, &owner, &disclosable, &opened, &registeredAt) {
		h, err := fhe.HandleFromBytes(raw)
		if err != nil {
			_ = iter.Close()
			return nil, fmt.Errorf("corrupt handle row: %w", err)
		}
		records = append(records, types.HandleRecord{
			Handle:              h,
			Owner:               owner,
			PubliclyDisclosable: disclosable,
			Disclosed:           opened,
			RegisteredAt:        registeredAt.UTC(),
		})
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to load handles: %w", err)
	}
	return records, nil
}

func (s *CassandraStore) loadOrdering(ctx context.Context, kind string) ([]string, error) {
	iter := s.db.NewQuery(ctx, queries.SelectOrderingQuery, kind).Iter()
	var ids []string
	var id string
	for iter.Scan(&id) {
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to load %s ordering: %w", kind, err)
	}
	return ids, nil
}

// orderRecords returns records in insertion order and fails if the ordering table
// and the record table disagree.
func orderRecords[T any](ctx context.Context, s *CassandraStore, kind string, records map[string]T) ([]T, error) {
	ids, err := s.loadOrdering(ctx, kind)
	if err != nil {
		return nil, err
	}
	if len(ids) != len(records) {
		return nil, fmt.Errorf("%s ordering has %d entries for %d records", kind, len(ids), len(records))
	}

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		rec, ok := records[id]
		if !ok {
			return nil, fmt.Errorf("%s ordering references missing record %s", kind, id)
		}
		out = append(out, rec)
	}
	return out, nil
}

func rewardOrZero(b *types.BigInt) *big.Int {
	if b == nil || b.Int == nil {
		return new(big.Int)
	}
	return b.Int
}

func disclosedColumn(v *uint32) *int64 {
	if v == nil {
		return nil
	}
	out := int64(*v)
	return &out
}
