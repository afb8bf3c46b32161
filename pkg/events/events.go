package events

import (
	"time"

	"github.com/trigg3rX/cipherwork/pkg/fhe"
)

type EventType string

const (
	TaskCreated      EventType = "TASK_CREATED"
	TaskAssigned     EventType = "TASK_ASSIGNED"
	TaskCompleted    EventType = "TASK_COMPLETED"
	WorkerRegistered EventType = "WORKER_REGISTERED"
)

type TaskCreatedEvent struct {
	TaskKey   string     `json:"task_key"`
	Requester string     `json:"requester"`
	Handle    fhe.Handle `json:"handle"`
	Deadline  time.Time  `json:"deadline"`
}

type TaskAssignedEvent struct {
	TaskKey string `json:"task_key"`
	Worker  string `json:"worker"`
}

type TaskCompletedEvent struct {
	TaskKey        string `json:"task_key"`
	Worker         string `json:"worker"`
	DisclosedValue uint32 `json:"disclosed_value"`
	Reputation     uint64 `json:"reputation"`
	CompletedTasks uint64 `json:"completed_tasks"`
}

type WorkerRegisteredEvent struct {
	Identity string `json:"identity"`
}

// Event is one committed ledger mutation. Seq increases by one per commit.
type Event struct {
	Seq       uint64      `json:"seq"`
	Type      EventType   `json:"type"`
	TaskKey   string      `json:"task_key,omitempty"`
	Identity  string      `json:"identity"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}
