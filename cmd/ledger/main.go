package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/trigg3rX/cipherwork/internal/ledger"
	"github.com/trigg3rX/cipherwork/internal/ledger/api"
	"github.com/trigg3rX/cipherwork/internal/ledger/config"
	"github.com/trigg3rX/cipherwork/internal/ledger/metrics"
	"github.com/trigg3rX/cipherwork/internal/ledger/store"
	"github.com/trigg3rX/cipherwork/internal/ledger/streams"
	"github.com/trigg3rX/cipherwork/internal/ledger/websocket"
	"github.com/trigg3rX/cipherwork/pkg/database"
	"github.com/trigg3rX/cipherwork/pkg/fhe"
	"github.com/trigg3rX/cipherwork/pkg/logging"
)

const version = "0.1.0"

func main() {
	started := time.Now()

	if err := config.Init(); err != nil {
		panic(fmt.Sprintf("Failed to initialize config: %v", err))
	}

	logConfig := logging.NewDefaultConfig(logging.LedgerProcess)
	logConfig.IsDevelopment = config.IsDevMode()
	logger, err := logging.NewZapLogger(logConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting ledger service ...", "version", version, "store", config.GetStore())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	keyMaterial, err := fhe.LoadKeyMaterial(config.GetFHEConfigPath())
	if err != nil {
		logger.Fatal("Failed to load FHE key material", "path", config.GetFHEConfigPath(), "error", err)
	}
	service, err := fhe.NewThresholdService(keyMaterial, logger)
	if err != nil {
		logger.Fatal("Failed to initialize FHE service", "error", err)
	}
	logger.Info("[1/5] FHE service ready", "kms_signers", len(keyMaterial.KMSSigners), "threshold", keyMaterial.Threshold)

	st, err := openStore(ctx, logger)
	if err != nil {
		logger.Fatal("Failed to open store", "error", err)
	}
	logger.Info("[2/5] Store opened")

	ledgerCfg := ledger.DefaultConfig()
	ledgerCfg.ReputationDelta = config.GetReputationDelta()
	ledgerCfg.VerifyTimeout = config.GetVerifyTimeout()
	ledgerCfg.EventBufferSize = config.GetEventBufferSize()
	l, err := ledger.New(ctx, ledgerCfg, service, st, logger)
	if err != nil {
		logger.Fatal("Failed to restore ledger", "error", err)
	}
	logger.Info("[3/5] Ledger restored")

	prometheus.MustRegister(metrics.NewSystemCollector())

	var publisher *streams.RedisPublisher
	if url := config.GetRedisURL(); url != "" {
		client, err := streams.NewClient(ctx, url, logger)
		if err != nil {
			logger.Fatal("Failed to connect to redis", "error", err)
		}
		defer func() { _ = client.Close() }()

		streamCfg := streams.DefaultConfig()
		streamCfg.Stream = config.GetRedisEventStream()
		streamCfg.MaxLen = config.GetRedisStreamMaxLen()
		publisher = streams.NewRedisPublisher(client, streamCfg, logger)
		if err := publisher.Start(ctx, l); err != nil {
			logger.Fatal("Failed to start stream publisher", "error", err)
		}
		logger.Info("[4/5] Redis event stream enabled", "stream", streamCfg.Stream)
	} else {
		logger.Info("[4/5] Redis event stream disabled")
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	hub := websocket.NewHub(logger)
	go hub.Run(hubCtx, l)

	server := api.NewServer(api.ServerConfig{
		Port:           config.GetAPIPort(),
		RequestTimeout: config.GetRequestTimeout(),
		Version:        version,
	}, l, hub, logger)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	metrics.StartupDuration.Set(time.Since(started).Seconds())
	logger.Info("[5/5] Ledger service is running", "port", config.GetAPIPort())

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("Received shutdown signal", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server stopped unexpectedly", "error", err)
		}
	}

	performGracefulShutdown(server, publisher, stopHub, l, logger)
}

func openStore(ctx context.Context, logger logging.Logger) (store.Store, error) {
	if config.GetStore() != config.StoreCassandra {
		logger.Warn("Using in-memory store, state is lost on restart")
		return store.NewMemoryStore(), nil
	}

	conn, err := database.NewConnection(ctx, database.NewConfig(config.GetCassandraHosts(), config.GetCassandraKeyspace()), logger)
	if err != nil {
		return nil, err
	}
	if err := database.InitSchema(conn.Session()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store.NewCassandraStore(conn, logger), nil
}

func performGracefulShutdown(server *api.Server, publisher *streams.RedisPublisher, stopHub context.CancelFunc, l *ledger.Ledger, logger logging.Logger) {
	logger.Info("Initiating graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), config.GetShutdownTimeout())
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("Server shutdown did not complete cleanly", "error", err)
	}
	stopHub()
	if publisher != nil {
		publisher.Stop()
	}
	if err := l.Close(); err != nil {
		logger.Warn("Error closing ledger", "error", err)
	}

	logger.Info("Ledger service shutdown complete")
}
