package types

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/trigg3rX/cipherwork/pkg/fhe"
)

// TaskStatus is the lifecycle phase of a task. The only transition is active -> completed.
type TaskStatus string

const (
	TaskStatusActive    TaskStatus = "active"
	TaskStatusCompleted TaskStatus = "completed"
)

// Task is a unit of confidential work whose answer is bound to an encrypted handle
type Task struct {
	Key            string     `json:"key"`
	Title          string     `json:"title"`
	Handle         fhe.Handle `json:"handle"`
	RewardAmount   *BigInt    `json:"reward_amount"`
	Deadline       time.Time  `json:"deadline"`
	Requester      string     `json:"requester"`
	Status         TaskStatus `json:"status"`
	AssignedWorker string     `json:"assigned_worker,omitempty"`
	DisclosedValue *uint32    `json:"disclosed_value,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

func (t Task) IsActive() bool {
	return t.Status == TaskStatusActive
}

func (t Task) IsCompleted() bool {
	return t.Status == TaskStatusCompleted
}

func (t Task) IsAssigned() bool {
	return t.AssignedWorker != ""
}

// IsExpired reports whether now is past the deadline. Expired tasks stay active.
func (t Task) IsExpired(now time.Time) bool {
	return now.After(t.Deadline)
}

// Clone returns a copy sharing no pointers with t
func (t Task) Clone() Task {
	c := t
	c.RewardAmount = t.RewardAmount.Clone()
	if t.DisclosedValue != nil {
		v := *t.DisclosedValue
		c.DisclosedValue = &v
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return c
}

// MarshalJSON adds the is_active / is_completed flags derived from Status
func (t Task) MarshalJSON() ([]byte, error) {
	type task Task
	return json.Marshal(struct {
		task
		IsActive    bool `json:"is_active"`
		IsCompleted bool `json:"is_completed"`
	}{task(t), t.IsActive(), t.IsCompleted()})
}

// Worker is a registered identity that can be assigned tasks
type Worker struct {
	Identity       string    `json:"identity"`
	Reputation     uint64    `json:"reputation"`
	CompletedTasks uint64    `json:"completed_tasks"`
	RegisteredAt   time.Time `json:"registered_at"`
}

// HandleRecord is the authorization state of one ciphertext handle
type HandleRecord struct {
	Handle              fhe.Handle `json:"handle"`
	Owner               string     `json:"owner"`
	PubliclyDisclosable bool       `json:"publicly_disclosable"`
	Disclosed           bool       `json:"disclosed"`
	RegisteredAt        time.Time  `json:"registered_at"`
}

// NormalizeIdentity lower-cases and trims an address-like identity
func NormalizeIdentity(identity string) string {
	return strings.ToLower(strings.TrimSpace(identity))
}
