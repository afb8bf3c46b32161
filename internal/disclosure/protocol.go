// Package disclosure decides whether a claimed cleartext is the authorised opening of a set of handles.
//
// A Protocol keeps no state of its own: verifying the same accepted triple twice
// succeeds twice.
package disclosure

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trigg3rX/cipherwork/pkg/fhe"
	"github.com/trigg3rX/cipherwork/pkg/logging"
)

const DefaultTimeout = 5 * time.Second

// Authorizer reports whether a handle was granted public disclosure
type Authorizer interface {
	IsPubliclyDisclosable(h fhe.Handle) bool
}

type Protocol struct {
	service fhe.Service
	auth    Authorizer
	timeout time.Duration
	logger  logging.Logger
}

func New(service fhe.Service, auth Authorizer, timeout time.Duration, logger logging.Logger) *Protocol {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Protocol{
		service: service,
		auth:    auth,
		timeout: timeout,
		logger:  logger.With("component", "disclosure"),
	}
}

// Verify checks that proof attests cleartexts as the decryption of handles, slot i to handle i,
// and returns the decoded values. Every failure is a *VerificationError.
func (p *Protocol) Verify(ctx context.Context, handles []fhe.Handle, cleartexts []byte, proof []byte) ([]uint32, error) {
	if len(handles) == 0 {
		return nil, fail(Malformed, errors.New("no handles"))
	}
	values, err := fhe.DecodeCleartexts(cleartexts, len(handles))
	if err != nil {
		return nil, fail(Malformed, err)
	}
	envelope, err := fhe.DecodeDecryptionProof(proof)
	if err != nil {
		return nil, fail(Malformed, err)
	}

	for _, h := range handles {
		if !p.auth.IsPubliclyDisclosable(h) {
			return nil, fail(NotDisclosable, fmt.Errorf("handle %s", h))
		}
	}

	if len(envelope.Handles) != len(handles) {
		return nil, fail(HandleMismatch, fmt.Errorf("proof covers %d handles, expected %d", len(envelope.Handles), len(handles)))
	}
	for i := range handles {
		if envelope.Handles[i] != handles[i] {
			return nil, fail(HandleMismatch, fmt.Errorf("slot %d attests %s", i, envelope.Handles[i]))
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	opened, err := p.service.VerifyOpening(callCtx, handles, cleartexts, proof)
	if err != nil {
		return nil, p.classify(callCtx, err)
	}
	p.logger.Debugf("Opening verified for %d handles in %s", len(handles), time.Since(start))

	for i, h := range handles {
		v, ok := opened[h]
		if !ok {
			return nil, fail(SignatureInvalid, fmt.Errorf("no opening for handle %s", h))
		}
		if v != values[i] {
			return nil, fail(SignatureInvalid, fmt.Errorf("slot %d: claimed %d, attested %d", i, values[i], v))
		}
	}
	return values, nil
}

func (p *Protocol) classify(callCtx context.Context, err error) *VerificationError {
	if callCtx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		p.logger.Warn("Cryptographic service unavailable", "error", err)
		return fail(Unavailable, err)
	}

	var verifyErr *fhe.VerifyError
	if errors.As(err, &verifyErr) {
		switch verifyErr.Reason {
		case fhe.ReasonMalformed:
			return fail(Malformed, err)
		case fhe.ReasonHandleMismatch:
			return fail(HandleMismatch, err)
		}
	}
	return fail(SignatureInvalid, err)
}
