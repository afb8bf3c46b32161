package database

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"

	"github.com/trigg3rX/cipherwork/pkg/logging"
	"github.com/trigg3rX/cipherwork/pkg/retry"
)

type Connection struct {
	session Sessioner
	config  *Config
	logger  logging.Logger
}

// NewConnection opens a session, retrying while the cluster is unreachable.
// The keyspace is created first so the session can bind to it.
func NewConnection(ctx context.Context, config *Config, logger logging.Logger) (*Connection, error) {
	if len(config.Hosts) == 0 {
		return nil, fmt.Errorf("no cassandra hosts configured")
	}
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}

	bootstrap, err := retry.Retry(ctx, func() (*gocql.Session, error) {
		return newCluster(config, "").CreateSession()
	}, config.retryConfig(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cassandra: %w", err)
	}
	err = CreateKeyspace(bootstrap, config.Keyspace, config.ReplicationFactor)
	bootstrap.Close()
	if err != nil {
		return nil, err
	}

	session, err := newCluster(config, config.Keyspace).CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to open keyspace %s: %w", config.Keyspace, err)
	}

	logger.Infof("Connected to cassandra at %v, keyspace %s", config.Hosts, config.Keyspace)
	return NewConnectionWithSession(session, config, logger), nil
}

// NewConnectionWithSession wraps an existing session, used by tests with a mock session
func NewConnectionWithSession(session Sessioner, config *Config, logger logging.Logger) *Connection {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Connection{session: session, config: config, logger: logger}
}

func newCluster(config *Config, keyspace string) *gocql.ClusterConfig {
	cluster := gocql.NewCluster(config.Hosts...)
	cluster.Keyspace = keyspace
	cluster.Timeout = config.Timeout
	cluster.RetryPolicy = &gocql.SimpleRetryPolicy{NumRetries: config.Retries}
	cluster.ConnectTimeout = config.ConnectWait
	cluster.Consistency = gocql.Quorum
	return cluster
}

func (c *Connection) Session() Sessioner {
	return c.session
}

func (c *Connection) Close() {
	if c.session != nil {
		c.session.Close()
	}
}
