package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/trigg3rX/cipherwork/internal/ledger/store/queries"
	"github.com/trigg3rX/cipherwork/pkg/database"
	"github.com/trigg3rX/cipherwork/pkg/fhe"
	"github.com/trigg3rX/cipherwork/pkg/retry"
	"github.com/trigg3rX/cipherwork/pkg/types"
)

func newTestCassandraStore(session *database.MockSession) *CassandraStore {
	cfg := database.NewConfig([]string{"localhost"}, "cipherwork").WithRetryConfig(&retry.RetryConfig{
		MaxRetries:    2,
		InitialDelay:  time.Millisecond,
		MaxDelay:      time.Millisecond,
		BackoffFactor: 1,
	})
	return NewCassandraStore(database.NewConnectionWithSession(session, cfg, nil), nil)
}

func TestCassandraStore_CommitCompletion(t *testing.T) {
	session := new(database.MockSession)
	var captured *gocql.Batch
	session.On("ExecuteBatch", mock.Anything).Run(func(args mock.Arguments) {
		captured = args.Get(0).(*gocql.Batch)
	}).Return(nil)

	s := newTestCassandraStore(session)
	value := uint32(42)
	completedAt := time.Now().UTC()
	task := types.Task{Key: "t1", Handle: fhe.Handle{7}, Status: types.TaskStatusCompleted, DisclosedValue: &value, CompletedAt: &completedAt}
	worker := types.Worker{Identity: "0xabc", Reputation: 10, CompletedTasks: 1}
	handle := types.HandleRecord{Handle: fhe.Handle{7}, Owner: "t1", PubliclyDisclosable: true, Disclosed: true}

	require.NoError(t, s.Commit(context.Background(), Mutation{Seq: 9, Task: &task, Worker: &worker, Handle: &handle}))
	require.NotNil(t, captured)

	stmts := make([]string, 0, len(captured.Entries))
	for _, e := range captured.Entries {
		stmts = append(stmts, e.Stmt)
	}
	assert.Equal(t, []string{
		queries.UpsertTaskQuery,
		queries.UpsertWorkerQuery,
		queries.UpsertHandleQuery,
		queries.UpdateSeqQuery,
	}, stmts, "updates of existing records do not touch the ordering table")

	taskArgs := captured.Entries[0].Args
	assert.Equal(t, "t1", taskArgs[0])
	assert.Equal(t, "completed", taskArgs[6])
	assert.Equal(t, int64(42), *(taskArgs[8].(*int64)))
	assert.Equal(t, int64(9), captured.Entries[3].Args[1])
	assert.Equal(t, gocql.LoggedBatch, captured.Type)
}

func TestCassandraStore_CommitNewRecordsAppendOrdering(t *testing.T) {
	session := new(database.MockSession)
	var captured *gocql.Batch
	session.On("ExecuteBatch", mock.Anything).Run(func(args mock.Arguments) {
		captured = args.Get(0).(*gocql.Batch)
	}).Return(nil)

	s := newTestCassandraStore(session)
	worker := types.Worker{Identity: "0xabc"}
	require.NoError(t, s.Commit(context.Background(), Mutation{Seq: 3, Worker: &worker, NewWorker: true}))

	require.Len(t, captured.Entries, 3)
	assert.Equal(t, queries.AppendOrderingQuery, captured.Entries[1].Stmt)
	assert.Equal(t, []interface{}{queries.KindWorker, int64(3), "0xabc"}, captured.Entries[1].Args)
}

func TestCassandraStore_CommitFailure(t *testing.T) {
	session := new(database.MockSession)
	session.On("ExecuteBatch", mock.Anything).Return(errors.New("unconfigured table tasks"))

	s := newTestCassandraStore(session)
	task := types.Task{Key: "t1"}
	err := s.Commit(context.Background(), Mutation{Seq: 1, Task: &task, NewTask: true})
	assert.ErrorContains(t, err, "failed to commit mutation 1")
}
