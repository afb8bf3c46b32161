package ledger

import (
	"errors"
)

var (
	ErrDuplicateKey        = errors.New("task key already exists")
	ErrAlreadyRegistered   = errors.New("worker already registered")
	ErrNotFound            = errors.New("not found")
	ErrNotActive           = errors.New("task is not active")
	ErrAlreadyAssigned     = errors.New("task already assigned")
	ErrWorkerNotRegistered = errors.New("worker not registered")
	ErrNotAssignedWorker   = errors.New("claimant is not the assigned worker")
	ErrAlreadyCompleted    = errors.New("task already completed")
	ErrDeadlineExceeded    = errors.New("task deadline exceeded")
	ErrInvalidCiphertext   = errors.New("invalid ciphertext")
	ErrInvalidProof        = errors.New("invalid decryption proof")
	ErrInvalidInput        = errors.New("invalid input")
	ErrStorage             = errors.New("storage failure")
	ErrClosed              = errors.New("ledger closed")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrDuplicateKey, "DUPLICATE_KEY"},
	{ErrAlreadyRegistered, "ALREADY_REGISTERED"},
	{ErrNotFound, "NOT_FOUND"},
	{ErrNotActive, "NOT_ACTIVE"},
	{ErrAlreadyAssigned, "ALREADY_ASSIGNED"},
	{ErrWorkerNotRegistered, "WORKER_NOT_REGISTERED"},
	{ErrNotAssignedWorker, "NOT_ASSIGNED_WORKER"},
	{ErrAlreadyCompleted, "ALREADY_COMPLETED"},
	{ErrDeadlineExceeded, "DEADLINE_EXCEEDED"},
	{ErrInvalidCiphertext, "INVALID_CIPHERTEXT"},
	{ErrInvalidProof, "INVALID_PROOF"},
	{ErrInvalidInput, "INVALID_INPUT"},
	{ErrStorage, "STORAGE_ERROR"},
	{ErrClosed, "LEDGER_CLOSED"},
}

// ErrorCode maps a ledger error to a stable upper snake case code.
// Unknown errors map to INTERNAL_ERROR.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return "INTERNAL_ERROR"
}
