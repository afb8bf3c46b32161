package fhe

import (
	"encoding/binary"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/trigg3rX/cipherwork/pkg/cryptography"
)

var (
	domainTypeHash  = crypto.Keccak256Hash([]byte("CipherworkDomain(string name,string version,uint64 chainId,address verifier)"))
	openingTypeHash = crypto.Keccak256Hash([]byte("PublicDecryptVerification(bytes32[] handles,bytes cleartexts,bytes extraData)"))
	handlePrefix    = []byte("cipherwork.handle")
)

// Domain scopes every proof to one deployment of the ledger
type Domain struct {
	Name     string `yaml:"name" validate:"required"`
	Version  string `yaml:"version" validate:"required"`
	ChainID  uint64 `yaml:"chain_id"`
	Verifier string `yaml:"verifier" validate:"eth_address"`
}

// Separator is the EIP-712 style domain separator
func (d Domain) Separator() common.Hash {
	var chainID [32]byte
	binary.BigEndian.PutUint64(chainID[24:], d.ChainID)
	verifier := common.HexToAddress(d.Verifier)

	return crypto.Keccak256Hash(
		domainTypeHash.Bytes(),
		crypto.Keccak256([]byte(d.Name)),
		crypto.Keccak256([]byte(d.Version)),
		chainID[:],
		common.LeftPadBytes(verifier.Bytes(), 32),
	)
}

// OpeningDigest is what KMS signers sign to attest handles[i] decrypts to cleartext slot i
func OpeningDigest(domain Domain, handles []Handle, cleartexts []byte, extraData []byte) common.Hash {
	packed := make([]byte, 0, len(handles)*HandleLength)
	for _, h := range handles {
		packed = append(packed, h[:]...)
	}

	structHash := crypto.Keccak256(
		openingTypeHash.Bytes(),
		crypto.Keccak256(packed),
		crypto.Keccak256(cleartexts),
		crypto.Keccak256(extraData),
	)
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, domain.Separator().Bytes(), structHash)
}

// InputDigest is what the coprocessor signs when it accepts a ciphertext from owner
func InputDigest(domain Domain, ciphertext []byte, owner string) common.Hash {
	message := crypto.Keccak256(
		crypto.Keccak256(ciphertext),
		[]byte(normalizeOwner(owner)),
		domain.Separator().Bytes(),
	)
	return cryptography.HashEthereumMessage(message)
}

// DeriveHandle computes the handle the service assigns to an accepted ciphertext.
// The last byte carries the ciphertext's type tag.
func DeriveHandle(domain Domain, ciphertext []byte, owner string) Handle {
	var h Handle
	digest := crypto.Keccak256(
		handlePrefix,
		crypto.Keccak256(ciphertext),
		[]byte(normalizeOwner(owner)),
		domain.Separator().Bytes(),
	)
	copy(h[:], digest)
	if len(ciphertext) > 0 {
		h[HandleLength-1] = ciphertext[0]
	}
	return h
}

func normalizeOwner(owner string) string {
	return strings.ToLower(strings.TrimSpace(owner))
}
