package database

import (
	"time"

	"github.com/trigg3rX/cipherwork/pkg/retry"
)

type Config struct {
	Hosts             []string
	Keyspace          string
	ReplicationFactor int
	Timeout           time.Duration
	Retries           int
	ConnectWait       time.Duration
	RetryConfig       *retry.RetryConfig
}

func NewConfig(hosts []string, keyspace string) *Config {
	return &Config{
		Hosts:             hosts,
		Keyspace:          keyspace,
		ReplicationFactor: 1,
		Timeout:           time.Second * 30,
		Retries:           5,
		ConnectWait:       time.Second * 10,
	}
}

func (c *Config) WithRetryConfig(cfg *retry.RetryConfig) *Config {
	c.RetryConfig = cfg
	return c
}

func (c *Config) retryConfig() *retry.RetryConfig {
	if c.RetryConfig != nil {
		cfg := *c.RetryConfig
		return &cfg
	}
	return retry.DefaultRetryConfig()
}
