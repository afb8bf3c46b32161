package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/trigg3rX/cipherwork/pkg/env"
)

const (
	StoreMemory    = "memory"
	StoreCassandra = "cassandra"
)

type Config struct {
	devMode bool

	// Ledger API port
	apiPort string

	// Store backend and Cassandra contact points
	store             string
	cassandraHosts    []string
	cassandraKeyspace string

	// Redis event stream, disabled when the URL is empty
	redisURL          string
	redisEventStream  string
	redisStreamMaxLen int

	// FHE key material
	fheConfigPath string

	// Ledger settings
	verifyTimeout   time.Duration
	reputationDelta int
	eventBufferSize int

	// Timeout settings
	requestTimeout  time.Duration
	shutdownTimeout time.Duration
}

var cfg Config

// Init loads .env when present, then reads and validates the environment
func Init() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading .env file: %w", err)
	}
	cfg = Config{
		devMode:           env.GetEnvBool("DEV_MODE", false),
		apiPort:           env.GetEnvString("LEDGER_API_PORT", "9010"),
		store:             env.GetEnvString("LEDGER_STORE", StoreMemory),
		cassandraHosts:    env.GetEnvStringSlice("CASSANDRA_HOSTS", []string{"localhost:9042"}),
		cassandraKeyspace: env.GetEnvString("CASSANDRA_KEYSPACE", "cipherwork"),
		redisURL:          env.GetEnvString("REDIS_URL", ""),
		redisEventStream:  env.GetEnvString("REDIS_EVENT_STREAM", "cipherwork:ledger:events"),
		redisStreamMaxLen: env.GetEnvInt("REDIS_STREAM_MAX_LEN", 100000),
		fheConfigPath:     env.GetEnvString("FHE_CONFIG_PATH", "config/fhe.yaml"),
		verifyTimeout:     env.GetEnvDuration("VERIFY_TIMEOUT", 5*time.Second),
		reputationDelta:   env.GetEnvInt("REPUTATION_DELTA", 10),
		eventBufferSize:   env.GetEnvInt("EVENT_BUFFER_SIZE", 256),
		requestTimeout:    env.GetEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		shutdownTimeout:   env.GetEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if !cfg.devMode {
		gin.SetMode(gin.ReleaseMode)
	}
	return nil
}

func validateConfig(c Config) error {
	if !env.IsValidPort(c.apiPort) {
		return fmt.Errorf("invalid LEDGER_API_PORT: %s", c.apiPort)
	}
	switch c.store {
	case StoreMemory:
	case StoreCassandra:
		if len(c.cassandraHosts) == 0 {
			return errors.New("CASSANDRA_HOSTS is required for the cassandra store")
		}
		for _, host := range c.cassandraHosts {
			if !env.IsValidHostPort(host) {
				return fmt.Errorf("invalid CASSANDRA_HOSTS entry: %s", host)
			}
		}
		if env.IsEmpty(c.cassandraKeyspace) {
			return errors.New("CASSANDRA_KEYSPACE is required for the cassandra store")
		}
	default:
		return fmt.Errorf("invalid LEDGER_STORE: %q (want %s or %s)", c.store, StoreMemory, StoreCassandra)
	}
	if c.redisURL != "" && !env.IsValidRedisURL(c.redisURL) {
		return fmt.Errorf("invalid REDIS_URL: %s", c.redisURL)
	}
	if env.IsEmpty(c.fheConfigPath) {
		return errors.New("FHE_CONFIG_PATH is required")
	}
	if c.verifyTimeout <= 0 || c.requestTimeout <= 0 {
		return errors.New("VERIFY_TIMEOUT and REQUEST_TIMEOUT must be positive")
	}
	if c.reputationDelta < 0 {
		return fmt.Errorf("invalid REPUTATION_DELTA: %d", c.reputationDelta)
	}
	return nil
}

func IsDevMode() bool {
	return cfg.devMode
}

func GetAPIPort() string {
	return cfg.apiPort
}

func GetStore() string {
	return cfg.store
}

func GetCassandraHosts() []string {
	return append([]string(nil), cfg.cassandraHosts...)
}

func GetCassandraKeyspace() string {
	return cfg.cassandraKeyspace
}

func GetRedisURL() string {
	return cfg.redisURL
}

func GetRedisEventStream() string {
	return cfg.redisEventStream
}

func GetRedisStreamMaxLen() int64 {
	return int64(cfg.redisStreamMaxLen)
}

func GetFHEConfigPath() string {
	return cfg.fheConfigPath
}

func GetVerifyTimeout() time.Duration {
	return cfg.verifyTimeout
}

func GetReputationDelta() uint64 {
	return uint64(cfg.reputationDelta)
}

func GetEventBufferSize() int {
	return cfg.eventBufferSize
}

func GetRequestTimeout() time.Duration {
	return cfg.requestTimeout
}

func GetShutdownTimeout() time.Duration {
	return cfg.shutdownTimeout
}
