package streams

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"
)

// MockStreamClient is a testify mock of StreamClient
type MockStreamClient struct {
	mock.Mock
}

var _ StreamClient = (*MockStreamClient)(nil)

func (m *MockStreamClient) XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd {
	return m.Called(ctx, args).Get(0).(*redis.StringCmd)
}
