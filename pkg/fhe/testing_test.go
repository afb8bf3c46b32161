package fhe

import (
	"crypto/ecdsa"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/trigg3rX/cipherwork/pkg/cryptography"
)

type testDeployment struct {
	material    KeyMaterial
	coprocessor *ecdsa.PrivateKey
	kms         []*ecdsa.PrivateKey
	network     *ecdsa.PrivateKey
	signer      *Signer
}

func newTestDeployment(t *testing.T, kmsCount, threshold int) *testDeployment {
	t.Helper()

	d := &testDeployment{}
	var err error
	d.coprocessor, err = crypto.GenerateKey()
	require.NoError(t, err)
	d.network, err = crypto.GenerateKey()
	require.NoError(t, err)

	signers := make([]string, 0, kmsCount)
	for i := 0; i < kmsCount; i++ {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)
		d.kms = append(d.kms, key)
		signers = append(signers, cryptography.AddressOf(key))
	}

	d.material = KeyMaterial{
		Domain: Domain{
			Name:     "cipherwork",
			Version:  "1",
			ChainID:  31337,
			Verifier: "0x00000000000000000000000000000000000000aa",
		},
		CoprocessorSigner: cryptography.AddressOf(d.coprocessor),
		KMSSigners:        signers,
		Threshold:         threshold,
	}
	d.signer = NewSigner(d.material.Domain)
	return d
}

func (d *testDeployment) ingestRequest(t *testing.T, value uint32, owner string) IngestRequest {
	t.Helper()

	ciphertext, err := d.signer.EncryptUint32(crypto.FromECDSAPub(&d.network.PublicKey), value)
	require.NoError(t, err)
	proof, err := d.signer.InputProof(ciphertext, owner, d.coprocessor)
	require.NoError(t, err)

	return IngestRequest{Ciphertext: ciphertext, InputProof: proof, Owner: owner}
}
