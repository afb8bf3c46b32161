package cryptography

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Known key for consistent testing
const (
	testPrivateKey = "1234567890abcdef1234567890abcdef1234567890abcdef1234567890abcdef"
	testMessage    = "Hello, Ethereum!"
)

func TestSignMessage_ValidInput_ReturnsSignature(t *testing.T) {
	signature, err := SignMessage(testMessage, testPrivateKey)

	require.NoError(t, err)
	assert.Len(t, signature, 132) // 0x + 130 hex chars
}

func TestSignMessage_InvalidPrivateKey_ReturnsError(t *testing.T) {
	tests := []struct {
		name       string
		privateKey string
	}{
		{"empty private key", ""},
		{"invalid hex", "invalid-hex"},
		{"too short", "123456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SignMessage(testMessage, tt.privateKey)
			assert.ErrorContains(t, err, "invalid private key")
		})
	}
}

func TestVerifySignature_RoundTrip(t *testing.T) {
	key, err := ParsePrivateKey("0x" + testPrivateKey)
	require.NoError(t, err)
	address := AddressOf(key)

	signature, err := SignMessage(testMessage, testPrivateKey)
	require.NoError(t, err)

	ok, err := VerifySignature(testMessage, signature, address)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifySignature("tampered", signature, address)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecoverSigner(t *testing.T) {
	key, err := ParsePrivateKey(testPrivateKey)
	require.NoError(t, err)
	digest := crypto.Keccak256Hash([]byte("digest"))

	sig, err := SignDigest(digest, key)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, sig[64], byte(27))

	recovered, err := RecoverSigner(digest, sig)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), recovered)
	assert.GreaterOrEqual(t, sig[64], byte(27), "input signature must not be modified")

	_, err = RecoverSigner(digest, sig[:64])
	assert.ErrorContains(t, err, "invalid signature length")

	other, err := RecoverSigner(common.Hash{1}, sig)
	if err == nil {
		assert.NotEqual(t, crypto.PubkeyToAddress(key.PublicKey), other)
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key, err := ParsePrivateKey(testPrivateKey)
	require.NoError(t, err)

	sealed, err := EncryptTo(crypto.FromECDSAPub(&key.PublicKey), []byte{0, 0, 0, 42})
	require.NoError(t, err)

	plain, err := DecryptWith(testPrivateKey, sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0, 0, 42}, plain)

	_, err = EncryptTo([]byte{1, 2, 3}, []byte("x"))
	assert.Error(t, err)
}
