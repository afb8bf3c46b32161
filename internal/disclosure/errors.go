package disclosure

import "fmt"

// Reason classifies why an opening was refused
type Reason string

const (
	Malformed        Reason = "malformed"
	NotDisclosable   Reason = "not_disclosable"
	HandleMismatch   Reason = "handle_mismatch"
	SignatureInvalid Reason = "signature_invalid"
	Unavailable      Reason = "unavailable"
)

// VerificationError is returned by Verify for every refused opening
type VerificationError struct {
	Reason Reason
	Err    error
}

func (e *VerificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("verification failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("verification failed (%s)", e.Reason)
}

func (e *VerificationError) Unwrap() error { return e.Err }

func fail(reason Reason, err error) *VerificationError {
	return &VerificationError{Reason: reason, Err: err}
}
