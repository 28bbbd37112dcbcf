// Package main is the entry point for the event engine's Ingestion API
// server: wires every core component (SchemaValidator, TopicRegistry,
// EventStore, ConsumerRegistry, Dispatcher, ProjectionEngine, Bootstrap)
// and serves the HTTP façade over them.
//
// Import Path: github.com/eventstore/eventcore/cmd/server
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/eventstore/eventcore/internal/api"
	"github.com/eventstore/eventcore/internal/bootstrap"
	"github.com/eventstore/eventcore/internal/config"
	"github.com/eventstore/eventcore/internal/consumer"
	"github.com/eventstore/eventcore/internal/dispatcher"
	"github.com/eventstore/eventcore/internal/eventstore"
	"github.com/eventstore/eventcore/internal/pkg/logger"
	"github.com/eventstore/eventcore/internal/pkg/worker"
	"github.com/eventstore/eventcore/internal/projection"
	"github.com/eventstore/eventcore/internal/schema"
	"github.com/eventstore/eventcore/internal/topic"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting event engine",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("storage_backend", cfg.Storage.Backend),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pools, err := worker.NewPools(ctx, worker.PoolConfig{
		GeneralPoolSize:  cfg.Worker.GeneralPoolSize,
		DeliveryPoolSize: cfg.Worker.DeliveryPoolSize,
	})
	if err != nil {
		return fmt.Errorf("start worker pools: %w", err)
	}
	defer pools.Shutdown()

	validator := schema.New()

	topicStore, err := newTopicConfigStore(cfg)
	if err != nil {
		return fmt.Errorf("init topic config store: %w", err)
	}
	topics, err := topic.New(validator, topicStore)
	if err != nil {
		return fmt.Errorf("init topic registry: %w", err)
	}

	store, err := newEventStore(cfg)
	if err != nil {
		return fmt.Errorf("init event store: %w", err)
	}

	consumerStore, err := newConsumerStore(cfg)
	if err != nil {
		return fmt.Errorf("init consumer store: %w", err)
	}
	consumers, err := consumer.New(consumerStore, topics)
	if err != nil {
		return fmt.Errorf("init consumer registry: %w", err)
	}

	projections := projection.New(store)
	if err := projections.Rebuild(ctx); err != nil {
		return fmt.Errorf("rebuild projections: %w", err)
	}

	boot := bootstrap.New(topics, store, cfg.Bootstrap)
	if err := boot.Run(ctx); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if err := projections.Rebuild(ctx); err != nil {
		return fmt.Errorf("rebuild projections after bootstrap: %w", err)
	}

	disp := dispatcher.New(
		dispatcher.Config{
			TickInterval:    cfg.Dispatcher.TickInterval,
			BatchSize:       cfg.Dispatcher.BatchSize,
			DeliveryTimeout: cfg.Dispatcher.DeliveryTimeout,
			MaxAttempts:     cfg.Dispatcher.MaxAttempts,
			InitialBackoff:  cfg.Dispatcher.InitialBackoff,
			MaxBackoff:      cfg.Dispatcher.MaxBackoff,
		},
		topics, consumers, store, pools,
		dispatcher.NewHTTPDeliverer(cfg.Dispatcher.DeliveryTimeout),
	)
	go disp.Run(ctx) //nolint:naked-goroutine // bound to ctx cancellation at shutdown

	server := api.NewServer(api.ServerDeps{
		Topics:      topics,
		Validator:   validator,
		Store:       store,
		Consumers:   consumers,
		Projections: projections,
	})
	router := api.NewRouter(server)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() { //nolint:naked-goroutine // main server goroutine is exempt
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	logger.Info("server started", zap.String("addr", httpServer.Addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	logger.Info("shutting down server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}

func newTopicConfigStore(cfg *config.Config) (topic.ConfigStore, error) {
	if cfg.Storage.Backend == "memory" {
		return topic.NewMemoryConfigStore(), nil
	}
	return topic.NewFileConfigStore(cfg.Storage.ConfigDir)
}

func newEventStore(cfg *config.Config) (eventstore.Store, error) {
	loc := cfg.Storage.Location()
	if cfg.Storage.Backend == "memory" {
		return eventstore.NewMemoryStore(loc), nil
	}
	return eventstore.NewFileStore(cfg.Storage.DataDir, loc)
}

func newConsumerStore(cfg *config.Config) (consumer.Store, error) {
	if cfg.Storage.Backend == "memory" {
		return consumer.NewMemoryStore(), nil
	}
	return consumer.NewFileStore(cfg.Storage.ConfigDir)
}
