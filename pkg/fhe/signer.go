package fhe

import (
	"crypto/ecdsa"
	"encoding/binary"
	"fmt"

	"github.com/trigg3rX/cipherwork/pkg/cryptography"
)

// Signer produces the material a coprocessor and KMS nodes would emit.
// Used by the fhesigner dev tool and by tests.
type Signer struct {
	domain Domain
}

func NewSigner(domain Domain) *Signer {
	return &Signer{domain: domain}
}

// EncryptUint32 seals value for the holder of networkKey and prefixes the type tag
func (s *Signer) EncryptUint32(networkKey []byte, value uint32) ([]byte, error) {
	var plaintext [4]byte
	binary.BigEndian.PutUint32(plaintext[:], value)

	sealed, err := cryptography.EncryptTo(networkKey, plaintext[:])
	if err != nil {
		return nil, err
	}
	return append([]byte{byte(TypeUint32)}, sealed...), nil
}

// InputProof signs a ciphertext on behalf of the coprocessor
func (s *Signer) InputProof(ciphertext []byte, owner string, coprocessor *ecdsa.PrivateKey) ([]byte, error) {
	return cryptography.SignDigest(InputDigest(s.domain, ciphertext, owner), coprocessor)
}

// Handle returns the handle the service will assign to ciphertext
func (s *Signer) Handle(ciphertext []byte, owner string) Handle {
	return DeriveHandle(s.domain, ciphertext, owner)
}

// DecryptionProof encodes values and signs the opening with every kms key.
// It returns the encoded cleartexts and the proof envelope.
func (s *Signer) DecryptionProof(handles []Handle, values []uint32, extraData []byte, kmsKeys ...*ecdsa.PrivateKey) ([]byte, []byte, error) {
	if len(handles) != len(values) {
		return nil, nil, fmt.Errorf("%d handles but %d values", len(handles), len(values))
	}

	cleartexts := EncodeCleartexts(values)
	digest := OpeningDigest(s.domain, handles, cleartexts, extraData)

	proof := DecryptionProof{Handles: handles, ExtraData: extraData}
	for _, key := range kmsKeys {
		sig, err := cryptography.SignDigest(digest, key)
		if err != nil {
			return nil, nil, err
		}
		proof.Signatures = append(proof.Signatures, sig)
	}

	encoded, err := proof.Encode()
	if err != nil {
		return nil, nil, err
	}
	return cleartexts, encoded, nil
}
