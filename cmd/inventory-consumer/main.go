package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	config "github.com/avatarctic/catalog-service/configs"
	"github.com/avatarctic/catalog-service/internal/application/lifecycle"
	"github.com/avatarctic/catalog-service/internal/application/services"
	"github.com/avatarctic/catalog-service/internal/infrastructure/logging"
	"github.com/avatarctic/catalog-service/internal/infrastructure/rabbitmq"
	"github.com/avatarctic/catalog-service/internal/infrastructure/redis"
	"github.com/avatarctic/catalog-service/internal/infrastructure/repositories"
)

const consumerPrefetch = 16

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := logging.NewLogger(cfg.Log)
	logger.Info("Starting inventory consumer...")

	// The ledger lives in Redis, so unlike the API the consumer cannot run without it.
	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to Redis:", err)
	}

	ledger := repositories.NewInventoryLedgerRedisRepository(redisClient)
	handler := services.NewInventoryLedgerService(ledger, cfg.Broker.DedupeTTL, logger)

	conn := rabbitmq.NewConnection(rabbitmq.ConnectionConfig{
		URL:            cfg.Broker.URL,
		ReconnectDelay: cfg.Broker.ReconnectDelay,
		Setup:          rabbitmq.DeclareQueueSetup(cfg.Broker.Queue, false, consumerPrefetch),
	}, logger)
	conn.Start()

	consumer := rabbitmq.NewConsumer(conn, cfg.Broker.Queue, "inventory-consumer", handler, cfg.Broker.ReconnectDelay, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.Run(ctx); err != nil {
			logger.WithError(err).Error("Consumer stopped")
		}
	}()

	<-ctx.Done()

	coordinator := lifecycle.NewCoordinator(cfg.Shutdown.Timeout, logger)
	coordinator.OnDrain("consumer", func(ctx context.Context) error {
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	coordinator.OnClose(lifecycle.CloserFunc{ResourceName: "broker", Fn: conn.Close})
	coordinator.OnClose(redis.ClientCloser{Client: redisClient})

	if err := coordinator.Shutdown(context.Background(), "signal"); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
		os.Exit(1)
	}
	logger.Info("Inventory consumer exited")
}
