package fhe

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/trigg3rX/cipherwork/pkg/cryptography"
	"github.com/trigg3rX/cipherwork/pkg/logging"
)

// minSealedLength is the ECIES overhead: ephemeral public key, IV and MAC
const minSealedLength = 65 + 16 + 32

// ThresholdService verifies coprocessor input proofs and threshold KMS decryption proofs.
// It holds only public key material and performs no homomorphic arithmetic.
type ThresholdService struct {
	domain      Domain
	coprocessor common.Address
	kmsSigners  map[common.Address]struct{}
	threshold   int
	logger      logging.Logger
}

var _ Service = (*ThresholdService)(nil)

func NewThresholdService(km KeyMaterial, logger logging.Logger) (*ThresholdService, error) {
	if err := km.Validate(); err != nil {
		return nil, fmt.Errorf("invalid key material: %w", err)
	}
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}

	signers := make(map[common.Address]struct{}, len(km.KMSSigners))
	for _, s := range km.KMSSigners {
		signers[common.HexToAddress(s)] = struct{}{}
	}

	return &ThresholdService{
		domain:      km.Domain,
		coprocessor: common.HexToAddress(km.CoprocessorSigner),
		kmsSigners:  signers,
		threshold:   km.Threshold,
		logger:      logger.With("component", "fhe"),
	}, nil
}

func (s *ThresholdService) Domain() Domain {
	return s.domain
}

func (s *ThresholdService) Ingest(ctx context.Context, req IngestRequest) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return Handle{}, &IngestError{Reason: "cancelled", Err: err}
	}
	if normalizeOwner(req.Owner) == "" {
		return Handle{}, &IngestError{Reason: "missing owner"}
	}
	if len(req.Ciphertext) < 1+minSealedLength {
		return Handle{}, &IngestError{Reason: fmt.Sprintf("ciphertext too short: %d bytes", len(req.Ciphertext))}
	}
	if FheType(req.Ciphertext[0]) != TypeUint32 {
		return Handle{}, &IngestError{Reason: fmt.Sprintf("unsupported ciphertext type %d", req.Ciphertext[0])}
	}

	signer, err := cryptography.RecoverSigner(InputDigest(s.domain, req.Ciphertext, req.Owner), req.InputProof)
	if err != nil {
		return Handle{}, &IngestError{Reason: "malformed input proof", Err: err}
	}
	if signer != s.coprocessor {
		return Handle{}, &IngestError{Reason: "input proof not signed by coprocessor"}
	}

	handle := DeriveHandle(s.domain, req.Ciphertext, req.Owner)
	s.logger.Debugf("Ingested ciphertext %s for %s", handle, normalizeOwner(req.Owner))
	return handle, nil
}

func (s *ThresholdService) VerifyOpening(ctx context.Context, handles []Handle, cleartexts []byte, proof []byte) (map[Handle]uint32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	envelope, err := DecodeDecryptionProof(proof)
	if err != nil {
		return nil, &VerifyError{Reason: ReasonMalformed, Err: err}
	}
	if !sameHandles(envelope.Handles, handles) {
		return nil, &VerifyError{Reason: ReasonHandleMismatch}
	}
	values, err := DecodeCleartexts(cleartexts, len(handles))
	if err != nil {
		return nil, &VerifyError{Reason: ReasonMalformed, Err: err}
	}

	digest := OpeningDigest(s.domain, handles, cleartexts, envelope.ExtraData)
	approvals := make(map[common.Address]struct{}, len(envelope.Signatures))
	for i, sig := range envelope.Signatures {
		signer, err := cryptography.RecoverSigner(digest, sig)
		if err != nil {
			s.logger.Debugf("Skipping unrecoverable signature %d: %v", i, err)
			continue
		}
		if _, ok := s.kmsSigners[signer]; ok {
			approvals[signer] = struct{}{}
		}
	}
	if len(approvals) < s.threshold {
		return nil, &VerifyError{
			Reason: ReasonSignatureInvalid,
			Err:    fmt.Errorf("%d of %d required kms signatures", len(approvals), s.threshold),
		}
	}

	opened := make(map[Handle]uint32, len(handles))
	for i, h := range handles {
		opened[h] = values[i]
	}
	return opened, nil
}

func sameHandles(a, b []Handle) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
