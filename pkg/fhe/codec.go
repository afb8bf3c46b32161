package fhe

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/trigg3rX/cipherwork/pkg/cryptography"
)

const (
	// wordSize is one ABI encoded uint256 slot; a uint32 occupies its last four bytes
	wordSize   = 32
	wordOffset = wordSize - 4

	// ProofVersion is the only decryption proof envelope version understood here
	ProofVersion byte = 0x01

	maxEnvelopeEntries = math.MaxUint8
)

var (
	ErrMalformedCleartexts = errors.New("malformed cleartext encoding")
	ErrMalformedProof      = errors.New("malformed decryption proof")
)

// EncodeCleartexts ABI encodes values as consecutive 32 byte big endian words
func EncodeCleartexts(values []uint32) []byte {
	out := make([]byte, wordSize*len(values))
	for i, v := range values {
		binary.BigEndian.PutUint32(out[i*wordSize+wordOffset:], v)
	}
	return out
}

// DecodeCleartexts parses exactly n words, each of which must fit in 32 bits
func DecodeCleartexts(encoded []byte, n int) ([]uint32, error) {
	if n <= 0 || len(encoded) != n*wordSize {
		return nil, fmt.Errorf("%w: expected %d words, got %d bytes", ErrMalformedCleartexts, n, len(encoded))
	}

	var padding [wordOffset]byte
	values := make([]uint32, n)
	for i := range values {
		word := encoded[i*wordSize : (i+1)*wordSize]
		if !bytes.Equal(word[:wordOffset], padding[:]) {
			return nil, fmt.Errorf("%w: slot %d exceeds 32 bits", ErrMalformedCleartexts, i)
		}
		values[i] = binary.BigEndian.Uint32(word[wordOffset:])
	}
	return values, nil
}

// DecryptionProof is the envelope a worker submits alongside claimed cleartexts:
//
//	version(1) | nHandles(1) | handles(32*n) | nSigs(1) | sigs(65*m) | extraData(rest)
type DecryptionProof struct {
	Handles    []Handle
	Signatures [][]byte
	ExtraData  []byte
}

// Encode serialises the proof envelope
func (p DecryptionProof) Encode() ([]byte, error) {
	if len(p.Handles) == 0 || len(p.Handles) > maxEnvelopeEntries {
		return nil, fmt.Errorf("%w: handle count %d out of range", ErrMalformedProof, len(p.Handles))
	}
	if len(p.Signatures) > maxEnvelopeEntries {
		return nil, fmt.Errorf("%w: too many signatures", ErrMalformedProof)
	}

	out := make([]byte, 0, 3+len(p.Handles)*HandleLength+len(p.Signatures)*cryptography.SignatureLength+len(p.ExtraData))
	out = append(out, ProofVersion, byte(len(p.Handles)))
	for _, h := range p.Handles {
		out = append(out, h[:]...)
	}
	out = append(out, byte(len(p.Signatures)))
	for i, sig := range p.Signatures {
		if len(sig) != cryptography.SignatureLength {
			return nil, fmt.Errorf("%w: signature %d has length %d", ErrMalformedProof, i, len(sig))
		}
		out = append(out, sig...)
	}
	return append(out, p.ExtraData...), nil
}

// DecodeDecryptionProof parses an envelope produced by Encode
func DecodeDecryptionProof(raw []byte) (DecryptionProof, error) {
	var p DecryptionProof
	if len(raw) < 3 {
		return p, fmt.Errorf("%w: too short", ErrMalformedProof)
	}
	if raw[0] != ProofVersion {
		return p, fmt.Errorf("%w: unsupported version %d", ErrMalformedProof, raw[0])
	}

	nHandles := int(raw[1])
	if nHandles == 0 {
		return p, fmt.Errorf("%w: no handles", ErrMalformedProof)
	}
	offset := 2
	if len(raw) < offset+nHandles*HandleLength+1 {
		return p, fmt.Errorf("%w: truncated handles", ErrMalformedProof)
	}
	p.Handles = make([]Handle, nHandles)
	for i := range p.Handles {
		copy(p.Handles[i][:], raw[offset:offset+HandleLength])
		offset += HandleLength
	}

	nSigs := int(raw[offset])
	offset++
	if len(raw) < offset+nSigs*cryptography.SignatureLength {
		return p, fmt.Errorf("%w: truncated signatures", ErrMalformedProof)
	}
	p.Signatures = make([][]byte, nSigs)
	for i := range p.Signatures {
		p.Signatures[i] = append([]byte(nil), raw[offset:offset+cryptography.SignatureLength]...)
		offset += cryptography.SignatureLength
	}

	if offset < len(raw) {
		p.ExtraData = append([]byte(nil), raw[offset:]...)
	}
	return p, nil
}
