package cryptography

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is r || s || v
const SignatureLength = 65

// ParsePrivateKey accepts a hex encoded secp256k1 key with or without 0x prefix
func ParsePrivateKey(privateKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return key, nil
}

// AddressOf returns the lower case hex address for a private key
func AddressOf(privateKey *ecdsa.PrivateKey) string {
	return strings.ToLower(crypto.PubkeyToAddress(privateKey.PublicKey).Hex())
}

// HashEthereumMessage is the EIP-191 personal message digest
func HashEthereumMessage(message []byte) common.Hash {
	return crypto.Keccak256Hash([]byte(fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)))
}

// SignDigest signs a 32 byte digest and returns r || s || v with v in {27, 28}
func SignDigest(digest common.Hash, privateKey *ecdsa.PrivateKey) ([]byte, error) {
	signature, err := crypto.Sign(digest.Bytes(), privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign digest: %w", err)
	}
	signature[64] += 27
	return signature, nil
}

// SignMessage signs message with the EIP-191 prefix and returns the hex signature
func SignMessage(message string, privateKey string) (string, error) {
	key, err := ParsePrivateKey(privateKey)
	if err != nil {
		return "", err
	}
	signature, err := SignDigest(HashEthereumMessage([]byte(message)), key)
	if err != nil {
		return "", err
	}
	return hexutil.Encode(signature), nil
}

// RecoverSigner returns the address that produced signature over digest.
// The signature is not modified.
func RecoverSigner(digest common.Hash, signature []byte) (common.Address, error) {
	if len(signature) != SignatureLength {
		return common.Address{}, fmt.Errorf("invalid signature length: %d", len(signature))
	}

	sig := make([]byte, SignatureLength)
	copy(sig, signature)
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	pubKeyRaw, err := crypto.Ecrecover(digest.Bytes(), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}

	pubKey, err := crypto.UnmarshalPubkey(pubKeyRaw)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to unmarshal public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pubKey), nil
}

// VerifySignature checks an EIP-191 signature against the expected signer address
func VerifySignature(message string, signature string, signerAddress string) (bool, error) {
	signatureBytes, err := hexutil.Decode(signature)
	if err != nil {
		return false, fmt.Errorf("invalid signature: %w", err)
	}

	recovered, err := RecoverSigner(HashEthereumMessage([]byte(message)), signatureBytes)
	if err != nil {
		return false, err
	}

	return recovered == common.HexToAddress(signerAddress), nil
}
