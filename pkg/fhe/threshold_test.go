package fhe

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trigg3rX/cipherwork/pkg/logging"
)

const testOwner = "0x1111111111111111111111111111111111111111"

func TestThresholdService_Ingest(t *testing.T) {
	d := newTestDeployment(t, 3, 2)
	svc, err := NewThresholdService(d.material, logging.NewNoOpLogger())
	require.NoError(t, err)

	t.Run("valid ciphertext", func(t *testing.T) {
		req := d.ingestRequest(t, 42, testOwner)

		handle, err := svc.Ingest(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, TypeUint32, handle.Type())
		assert.Equal(t, d.signer.Handle(req.Ciphertext, testOwner), handle)
	})

	t.Run("owner is case insensitive", func(t *testing.T) {
		req := d.ingestRequest(t, 7, testOwner)
		upper := req
		upper.Owner = "0X1111111111111111111111111111111111111111"

		h1, err := svc.Ingest(context.Background(), req)
		require.NoError(t, err)
		h2, err := svc.Ingest(context.Background(), upper)
		require.NoError(t, err)
		assert.Equal(t, h1, h2)
	})

	tests := []struct {
		name   string
		mutate func(req *IngestRequest)
	}{
		{"empty ciphertext", func(req *IngestRequest) { req.Ciphertext = nil }},
		{"wrong type tag", func(req *IngestRequest) { req.Ciphertext[0] = byte(TypeUint64) }},
		{"missing owner", func(req *IngestRequest) { req.Owner = "" }},
		{"short proof", func(req *IngestRequest) { req.InputProof = req.InputProof[:10] }},
		{"proof for another owner", func(req *IngestRequest) { req.Owner = "0x2222222222222222222222222222222222222222" }},
		{"tampered ciphertext", func(req *IngestRequest) { req.Ciphertext[len(req.Ciphertext)-1] ^= 0xff }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := d.ingestRequest(t, 1, testOwner)
			tt.mutate(&req)

			_, err := svc.Ingest(context.Background(), req)
			var ingestErr *IngestError
			assert.True(t, errors.As(err, &ingestErr), "got %v", err)
		})
	}

	t.Run("proof signed by a kms key", func(t *testing.T) {
		req := d.ingestRequest(t, 1, testOwner)
		forged, err := d.signer.InputProof(req.Ciphertext, testOwner, d.kms[0])
		require.NoError(t, err)
		req.InputProof = forged

		_, err = svc.Ingest(context.Background(), req)
		var ingestErr *IngestError
		assert.ErrorAs(t, err, &ingestErr)
	})
}

func TestThresholdService_VerifyOpening(t *testing.T) {
	d := newTestDeployment(t, 3, 2)
	svc, err := NewThresholdService(d.material, nil)
	require.NoError(t, err)

	handle, err := svc.Ingest(context.Background(), d.ingestRequest(t, 42, testOwner))
	require.NoError(t, err)
	handles := []Handle{handle}

	t.Run("threshold met", func(t *testing.T) {
		cleartexts, proof, err := d.signer.DecryptionProof(handles, []uint32{42}, nil, d.kms[0], d.kms[2])
		require.NoError(t, err)

		opened, err := svc.VerifyOpening(context.Background(), handles, cleartexts, proof)
		require.NoError(t, err)
		assert.Equal(t, map[Handle]uint32{handle: 42}, opened)

		again, err := svc.VerifyOpening(context.Background(), handles, cleartexts, proof)
		require.NoError(t, err)
		assert.Equal(t, opened, again)
	})

	t.Run("repeated signer counts once", func(t *testing.T) {
		cleartexts, proof, err := d.signer.DecryptionProof(handles, []uint32{42}, nil, d.kms[1], d.kms[1])
		require.NoError(t, err)

		_, err = svc.VerifyOpening(context.Background(), handles, cleartexts, proof)
		assertVerifyReason(t, err, ReasonSignatureInvalid)
	})

	t.Run("unknown signer ignored", func(t *testing.T) {
		other := newTestDeployment(t, 2, 1)
		cleartexts, proof, err := d.signer.DecryptionProof(handles, []uint32{42}, nil, d.kms[0], other.kms[0])
		require.NoError(t, err)

		_, err = svc.VerifyOpening(context.Background(), handles, cleartexts, proof)
		assertVerifyReason(t, err, ReasonSignatureInvalid)
	})

	t.Run("cleartext differs from signed value", func(t *testing.T) {
		_, proof, err := d.signer.DecryptionProof(handles, []uint32{42}, nil, d.kms[0], d.kms[1])
		require.NoError(t, err)

		_, err = svc.VerifyOpening(context.Background(), handles, EncodeCleartexts([]uint32{43}), proof)
		assertVerifyReason(t, err, ReasonSignatureInvalid)
	})

	t.Run("proof for another handle", func(t *testing.T) {
		otherHandle, err := svc.Ingest(context.Background(), d.ingestRequest(t, 42, testOwner))
		require.NoError(t, err)
		cleartexts, proof, err := d.signer.DecryptionProof([]Handle{otherHandle}, []uint32{42}, nil, d.kms[0], d.kms[1])
		require.NoError(t, err)

		_, err = svc.VerifyOpening(context.Background(), handles, cleartexts, proof)
		assertVerifyReason(t, err, ReasonHandleMismatch)
	})

	t.Run("garbage proof", func(t *testing.T) {
		_, err := svc.VerifyOpening(context.Background(), handles, EncodeCleartexts([]uint32{42}), []byte{0x02, 0x01})
		assertVerifyReason(t, err, ReasonMalformed)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cleartexts, proof, err := d.signer.DecryptionProof(handles, []uint32{42}, nil, d.kms[0], d.kms[1])
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err = svc.VerifyOpening(ctx, handles, cleartexts, proof)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestNewThresholdService_RejectsBadMaterial(t *testing.T) {
	d := newTestDeployment(t, 2, 2)

	tooHigh := d.material
	tooHigh.Threshold = 3
	_, err := NewThresholdService(tooHigh, nil)
	assert.Error(t, err)

	dup := d.material
	dup.KMSSigners = []string{d.material.KMSSigners[0], d.material.KMSSigners[0]}
	_, err = NewThresholdService(dup, nil)
	assert.Error(t, err)

	noSigners := d.material
	noSigners.KMSSigners = nil
	_, err = NewThresholdService(noSigners, nil)
	assert.Error(t, err)
}

func assertVerifyReason(t *testing.T, err error, reason VerifyReason) {
	t.Helper()
	var verifyErr *VerifyError
	require.ErrorAs(t, err, &verifyErr)
	assert.Equal(t, reason, verifyErr.Reason)
}
