package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trigg3rX/cipherwork/pkg/fhe"
	"github.com/trigg3rX/cipherwork/pkg/types"
)

func TestMemoryStore_CommitAndLoad(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	now := time.Now().UTC()

	task := types.Task{Key: "b", Handle: fhe.Handle{1}, RewardAmount: types.MustParseBigInt("5"), Status: types.TaskStatusActive, CreatedAt: now}
	handle := types.HandleRecord{Handle: fhe.Handle{1}, Owner: "b", PubliclyDisclosable: true}
	require.NoError(t, s.Commit(ctx, Mutation{Seq: 1, Task: &task, NewTask: true, Handle: &handle}))

	second := types.Task{Key: "a", Handle: fhe.Handle{2}, Status: types.TaskStatusActive}
	require.NoError(t, s.Commit(ctx, Mutation{Seq: 2, Task: &second, NewTask: true}))

	worker := types.Worker{Identity: "0x1"}
	require.NoError(t, s.Commit(ctx, Mutation{Seq: 3, Worker: &worker, NewWorker: true}))

	task.RewardAmount.SetInt64(99)
	task.Status = types.TaskStatusCompleted
	require.NoError(t, s.Commit(ctx, Mutation{Seq: 4, Task: &task}))

	snap, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), snap.Seq)
	require.Len(t, snap.Tasks, 2)
	assert.Equal(t, "b", snap.Tasks[0].Key, "insertion order survives updates")
	assert.Equal(t, types.TaskStatusCompleted, snap.Tasks[0].Status)
	assert.Equal(t, "99", snap.Tasks[0].RewardAmount.String())
	assert.Len(t, snap.Workers, 1)
	assert.Len(t, snap.Handles, 1)

	snap.Tasks[0].RewardAmount.SetInt64(1)
	again, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "99", again.Tasks[0].RewardAmount.String(), "snapshots are copies")
}

func TestMemoryStore_Closed(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())

	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Commit(context.Background(), Mutation{}), ErrClosed)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewMemoryStore().Commit(ctx, Mutation{}), context.Canceled)
}
