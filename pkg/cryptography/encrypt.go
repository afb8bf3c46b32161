package cryptography

import (
	"crypto/rand"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/crypto/ecies"
)

// EncryptTo seals plaintext for the holder of the given uncompressed public key
func EncryptTo(publicKey []byte, plaintext []byte) ([]byte, error) {
	pubKey, err := crypto.UnmarshalPubkey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal public key: %w", err)
	}

	sealed, err := ecies.Encrypt(rand.Reader, ecies.ImportECDSAPublic(pubKey), plaintext, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("encryption failed: %w", err)
	}
	return sealed, nil
}

// DecryptWith opens a ciphertext produced by EncryptTo
func DecryptWith(privateKey string, sealed []byte) ([]byte, error) {
	key, err := ParsePrivateKey(privateKey)
	if err != nil {
		return nil, err
	}

	plaintext, err := ecies.ImportECDSA(key).Decrypt(sealed, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}
