package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	config "github.com/avatarctic/catalog-service/configs"
	"github.com/avatarctic/catalog-service/internal/application/lifecycle"
	"github.com/avatarctic/catalog-service/internal/application/services"
	"github.com/avatarctic/catalog-service/internal/core/ports"
	"github.com/avatarctic/catalog-service/internal/infrastructure/db"
	"github.com/avatarctic/catalog-service/internal/infrastructure/health"
	"github.com/avatarctic/catalog-service/internal/infrastructure/httpserver"
	"github.com/avatarctic/catalog-service/internal/infrastructure/logging"
	"github.com/avatarctic/catalog-service/internal/infrastructure/metrics"
	"github.com/avatarctic/catalog-service/internal/infrastructure/rabbitmq"
	"github.com/avatarctic/catalog-service/internal/infrastructure/redis"
	"github.com/avatarctic/catalog-service/internal/infrastructure/repositories"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := logging.NewLogger(cfg.Log)
	logger.Info("Starting catalog service...")

	database, err := db.NewDatabaseWithConfig(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database:", err)
	}
	logger.Info("Connected to database successfully")

	if err := database.Migrate(cfg.Database.MigrationsPath); err != nil {
		logger.Fatal("Failed to run migrations:", err)
	}

	// The cache is optional at runtime; an unreachable Redis only costs cache hits.
	redisClient, err := redis.NewRedisClient(&cfg.Redis)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable at startup, continuing with cache misses")
		redisClient = redis.NewLazyRedisClient(&cfg.Redis)
	} else {
		logger.Info("Connected to Redis successfully")
	}
	cache := redis.NewRedisCache(redisClient, cfg.Cache.KeyPrefix)

	brokerConn := rabbitmq.NewConnection(rabbitmq.ConnectionConfig{
		URL:            cfg.Broker.URL,
		ReconnectDelay: cfg.Broker.ReconnectDelay,
		Setup:          rabbitmq.DeclareQueueSetup(cfg.Broker.Queue, true, 0),
	}, logger)
	brokerConn.Start()
	publisher := rabbitmq.NewPublisher(brokerConn, cfg.Broker.Queue, logger)

	catalogMetrics := metrics.NewCatalogMetrics(prometheus.DefaultRegisterer)
	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)
	metrics.RegisterPoolStats(prometheus.DefaultRegisterer, database)

	tracker := lifecycle.NewTracker()
	productRepo := repositories.NewProductRepository(database, logger)
	catalog := services.NewCatalogService(productRepo, services.CatalogConfig{
		Cache:          cache,
		Publisher:      publisher,
		Tracker:        tracker,
		Observer:       catalogMetrics,
		TTL:            cfg.Cache.TTL,
		PublishTimeout: cfg.Broker.PublishTimeout,
		Logger:         logger,
	})

	hcSlice := []ports.HealthChecker{
		health.NewDBHealthChecker(database),
		health.NewRedisHealthChecker(redisClient),
		health.NewBrokerHealthChecker(brokerConn),
	}

	serverConfig := &httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	server := httpserver.NewServer(serverConfig, logger, httpserver.ServerDeps{
		ProductService: catalog,
		PoolStats:      database,
		HealthCheckers: hcSlice,
		Requests:       httpMetrics,
		Gatherer:       prometheus.DefaultGatherer,
	})

	coordinator := lifecycle.NewCoordinator(cfg.Shutdown.Timeout, logger)
	coordinator.OnDrain("http", server.Shutdown)
	coordinator.DrainTracker("catalog", tracker)
	coordinator.OnClose(database)
	coordinator.OnClose(redis.ClientCloser{Client: redisClient})
	coordinator.OnClose(publisher)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	logger.Infof("Server started on %s:%s", cfg.Server.Host, cfg.Server.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	os.Exit(awaitShutdown(coordinator, quit, serverErr, logger))
}

// awaitShutdown blocks until a signal arrives or the listener fails, then runs
// the coordinator and returns the process exit status.
func awaitShutdown(coordinator *lifecycle.Coordinator, quit <-chan os.Signal, serverErr <-chan error, logger *logrus.Logger) int {
	reason := ""
	status := 0
	select {
	case sig := <-quit:
		reason = sig.String()
	case err := <-serverErr:
		// The listener only returns on its own when something broke; a clean
		// shutdown afterwards must not hide that from the supervisor.
		logger.WithError(err).Error("HTTP server stopped unexpectedly")
		reason = "server stopped"
		status = 1
	}

	if err := coordinator.Shutdown(context.Background(), reason); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
		status = 1
	}
	logger.WithField("exit_code", status).Info("Server exited")
	return status
}
