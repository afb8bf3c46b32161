// Package handles tracks which ciphertext handles exist and whether they may be publicly opened.
//
// A Registry is not synchronised; its owner serialises access.
package handles

import (
	"errors"
	"fmt"
	"time"

	"github.com/trigg3rX/cipherwork/pkg/fhe"
	"github.com/trigg3rX/cipherwork/pkg/types"
)

var (
	ErrHandleExists  = errors.New("handle already registered")
	ErrUnknownHandle = errors.New("handle not registered")
)

type Registry struct {
	records map[fhe.Handle]types.HandleRecord
}

func New() *Registry {
	return &Registry{records: make(map[fhe.Handle]types.HandleRecord)}
}

// Grant builds the record for a freshly ingested handle owned by taskKey,
// already marked publicly disclosable. The registry is not modified.
func (r *Registry) Grant(h fhe.Handle, taskKey string, at time.Time) (types.HandleRecord, error) {
	if _, exists := r.records[h]; exists {
		return types.HandleRecord{}, fmt.Errorf("%w: %s", ErrHandleExists, h)
	}
	return types.HandleRecord{
		Handle:              h,
		Owner:               taskKey,
		PubliclyDisclosable: true,
		RegisteredAt:        at,
	}, nil
}

// Disclose returns a copy of the record with Disclosed set. The registry is not modified.
func (r *Registry) Disclose(h fhe.Handle) (types.HandleRecord, error) {
	rec, ok := r.records[h]
	if !ok {
		return types.HandleRecord{}, fmt.Errorf("%w: %s", ErrUnknownHandle, h)
	}
	rec.Disclosed = true
	return rec, nil
}

// Put stores rec, replacing any previous record for the same handle
func (r *Registry) Put(rec types.HandleRecord) {
	r.records[rec.Handle] = rec
}

func (r *Registry) Get(h fhe.Handle) (types.HandleRecord, bool) {
	rec, ok := r.records[h]
	return rec, ok
}

func (r *Registry) Contains(h fhe.Handle) bool {
	_, ok := r.records[h]
	return ok
}

// IsPubliclyDisclosable is false for unknown handles
func (r *Registry) IsPubliclyDisclosable(h fhe.Handle) bool {
	return r.records[h].PubliclyDisclosable
}

func (r *Registry) Len() int {
	return len(r.records)
}
