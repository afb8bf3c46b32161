package fhe

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// HandleLength is the size of a ciphertext handle in bytes
const HandleLength = 32

// FheType tags the encrypted type in the last byte of a handle and the first byte of a ciphertext
type FheType byte

const (
	TypeBool   FheType = 0
	TypeUint8  FheType = 2
	TypeUint16 FheType = 3
	TypeUint32 FheType = 4
	TypeUint64 FheType = 5
)

// Handle is an opaque reference to a ciphertext held by the cryptographic service.
// Nothing in this module looks inside it beyond the type tag.
type Handle [HandleLength]byte

// Type returns the encrypted type tag carried by the handle
func (h Handle) Type() FheType {
	return FheType(h[HandleLength-1])
}

func (h Handle) IsZero() bool {
	return h == Handle{}
}

func (h Handle) Bytes() []byte {
	return h[:]
}

func (h Handle) Hex() string {
	return hexutil.Encode(h[:])
}

func (h Handle) String() string {
	return h.Hex()
}

// ParseHandle decodes a 0x prefixed 32 byte hex string
func ParseHandle(s string) (Handle, error) {
	var h Handle
	raw, err := hexutil.Decode(strings.TrimSpace(s))
	if err != nil {
		return h, fmt.Errorf("invalid handle hex: %w", err)
	}
	if len(raw) != HandleLength {
		return h, fmt.Errorf("invalid handle length: %d", len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

// HandleFromBytes copies exactly HandleLength bytes into a Handle
func HandleFromBytes(b []byte) (Handle, error) {
	var h Handle
	if len(b) != HandleLength {
		return h, fmt.Errorf("invalid handle length: %d", len(b))
	}
	copy(h[:], b)
	return h, nil
}

func (h Handle) MarshalJSON() ([]byte, error) {
	return json.Marshal(h.Hex())
}

func (h *Handle) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseHandle(s)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// MarshalText lets handles be used as JSON map keys
func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

func (h *Handle) UnmarshalText(text []byte) error {
	parsed, err := ParseHandle(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
