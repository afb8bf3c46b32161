package types

import (
	"encoding/json"
	"fmt"
	"math/big"
)

// BigInt is an arbitrary precision amount carried as a quoted decimal in JSON
type BigInt struct {
	*big.Int
}

func NewBigInt(i *big.Int) *BigInt {
	if i == nil {
		return nil
	}
	return &BigInt{Int: i}
}

func ParseBigInt(s string) (*BigInt, error) {
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal amount %q", s)
	}
	return &BigInt{Int: i}, nil
}

// MustParseBigInt is for constants and tests
func MustParseBigInt(s string) *BigInt {
	b, err := ParseBigInt(s)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *BigInt) MarshalJSON() ([]byte, error) {
	if b == nil || b.Int == nil {
		return []byte("null"), nil
	}
	return json.Marshal(b.Int.String())
}

// UnmarshalJSON rejects bare JSON numbers so large amounts never pass through float64
func (b *BigInt) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		b.Int = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("amount must be a quoted decimal string, got %s", data)
	}
	parsed, err := ParseBigInt(s)
	if err != nil {
		return err
	}
	b.Int = parsed.Int
	return nil
}

func (b *BigInt) String() string {
	if b == nil || b.Int == nil {
		return "<nil>"
	}
	return b.Int.String()
}

// Clone returns a copy that shares no memory with b
func (b *BigInt) Clone() *BigInt {
	if b == nil || b.Int == nil {
		return nil
	}
	return &BigInt{Int: new(big.Int).Set(b.Int)}
}
