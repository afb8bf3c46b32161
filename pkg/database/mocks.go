package database

import (
	"github.com/gocql/gocql"
	"github.com/stretchr/testify/mock"
)

// MockSession is a testify mock of Sessioner.
// NewBatch returns a detached batch so tests can inspect its entries.
type MockSession struct {
	mock.Mock
}

var _ Sessioner = (*MockSession)(nil)

func (m *MockSession) Query(stmt string, values ...interface{}) *gocql.Query {
	args := m.Called(stmt, values)
	if q := args.Get(0); q != nil {
		return q.(*gocql.Query)
	}
	return nil
}

func (m *MockSession) NewBatch(typ gocql.BatchType) *gocql.Batch {
	return &gocql.Batch{Type: typ}
}

func (m *MockSession) ExecuteBatch(batch *gocql.Batch) error {
	args := m.Called(batch)
	return args.Error(0)
}

func (m *MockSession) Close() {
	m.Called()
}
