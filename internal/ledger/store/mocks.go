package store

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockStore is a testify mock of Store
type MockStore struct {
	mock.Mock
}

var _ Store = (*MockStore)(nil)

func (m *MockStore) Load(ctx context.Context) (*Snapshot, error) {
	args := m.Called(ctx)
	if s := args.Get(0); s != nil {
		return s.(*Snapshot), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockStore) Commit(ctx context.Context, mut Mutation) error {
	return m.Called(ctx, mut).Error(0)
}

func (m *MockStore) Close() error {
	return m.Called().Error(0)
}
