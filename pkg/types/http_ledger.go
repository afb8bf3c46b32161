package types

import "time"

type CreateTaskRequest struct {
	Key          string    `json:"key" binding:"required"`
	Title        string    `json:"title"`
	Ciphertext   string    `json:"ciphertext" binding:"required"`
	InputProof   string    `json:"input_proof" binding:"required"`
	RewardAmount *BigInt   `json:"reward_amount" binding:"required"`
	Deadline     time.Time `json:"deadline" binding:"required"`
	Requester    string    `json:"requester" binding:"required"`
}

type RegisterWorkerRequest struct {
	Identity string `json:"identity" binding:"required"`
}

type AssignTaskRequest struct {
	Worker string `json:"worker" binding:"required"`
}

// SubmitResultRequest carries hex encoded cleartexts and proof envelope.
// The deadline is always checked against the ledger clock.
type SubmitResultRequest struct {
	Claimant   string `json:"claimant" binding:"required"`
	Cleartexts string `json:"cleartexts" binding:"required"`
	Proof      string `json:"proof" binding:"required"`
}

type TaskKeysResponse struct {
	Keys []string `json:"keys"`
}

type WorkerIdentitiesResponse struct {
	Identities []string `json:"identities"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// HealthCheckResponse is served by /health
type HealthCheckResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
	Error     string    `json:"error,omitempty"`
}
