// Package store persists ledger records so the state machine survives a restart.
package store

import (
	"context"

	"github.com/trigg3rX/cipherwork/pkg/types"
)

// Snapshot is the full persisted state. Tasks and Workers are in insertion order.
type Snapshot struct {
	Tasks   []types.Task
	Workers []types.Worker
	Handles []types.HandleRecord
	Seq     uint64
}

// Mutation is the set of records written by one committed ledger operation.
// Every field is the complete new version of its record.
type Mutation struct {
	Seq       uint64
	Task      *types.Task
	NewTask   bool
	Worker    *types.Worker
	NewWorker bool
	Handle    *types.HandleRecord
}

// Store must apply a Mutation atomically: either every record is written or none is.
type Store interface {
	Load(ctx context.Context) (*Snapshot, error)
	Commit(ctx context.Context, m Mutation) error
	Close() error
}
