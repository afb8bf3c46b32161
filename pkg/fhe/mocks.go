package fhe

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockService is a testify mock of Service
type MockService struct {
	mock.Mock
}

var _ Service = (*MockService)(nil)

func (m *MockService) Ingest(ctx context.Context, req IngestRequest) (Handle, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(Handle), args.Error(1)
}

func (m *MockService) VerifyOpening(ctx context.Context, handles []Handle, cleartexts []byte, proof []byte) (map[Handle]uint32, error) {
	args := m.Called(ctx, handles, cleartexts, proof)
	if v := args.Get(0); v != nil {
		return v.(map[Handle]uint32), args.Error(1)
	}
	return nil, args.Error(1)
}
