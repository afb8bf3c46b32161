package fhe

import (
	"context"
	"fmt"
)

// Service is the narrow surface of the external cryptographic service the ledger consumes.
// Implementations must be safe for concurrent use.
type Service interface {
	// Ingest validates a ciphertext and its input proof and returns its handle.
	// Failures are *IngestError.
	Ingest(ctx context.Context, req IngestRequest) (Handle, error)

	// VerifyOpening checks that proof attests cleartexts as the decryption of handles,
	// slot by slot, and returns the committed values. Failures are *VerifyError.
	VerifyOpening(ctx context.Context, handles []Handle, cleartexts []byte, proof []byte) (map[Handle]uint32, error)
}

// IngestRequest carries the raw ciphertext material supplied by a requester
type IngestRequest struct {
	Ciphertext []byte
	InputProof []byte
	Owner      string
}

// IngestError reports a ciphertext the service refused
type IngestError struct {
	Reason string
	Err    error
}

func (e *IngestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ingest rejected: %s: %v", e.Reason, e.Err)
	}
	return "ingest rejected: " + e.Reason
}

func (e *IngestError) Unwrap() error { return e.Err }

// VerifyReason classifies an opening verification failure
type VerifyReason string

const (
	ReasonMalformed        VerifyReason = "malformed"
	ReasonSignatureInvalid VerifyReason = "signature_invalid"
	ReasonHandleMismatch   VerifyReason = "handle_mismatch"
)

// VerifyError reports a rejected opening
type VerifyError struct {
	Reason VerifyReason
	Err    error
}

func (e *VerifyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("opening rejected (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("opening rejected (%s)", e.Reason)
}

func (e *VerifyError) Unwrap() error { return e.Err }
