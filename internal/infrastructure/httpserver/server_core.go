package httpserver

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/catalog-service/internal/core/ports"
	customMiddleware "github.com/avatarctic/catalog-service/internal/infrastructure/httpserver/middleware"
)

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type ServerDeps struct {
	ProductService ports.ProductService
	PoolStats      ports.PoolStatsProvider
	HealthCheckers []ports.HealthChecker
	// Requests and Gatherer are optional; without them /metrics serves the
	// default registry and requests are not observed.
	Requests customMiddleware.RequestObserver
	Gatherer prometheus.Gatherer
}

type Server struct {
	echo           *echo.Echo
	config         *ServerConfig
	logger         *logrus.Logger
	productService ports.ProductService
	poolStats      ports.PoolStatsProvider
	middleware     *customMiddleware.MiddlewareCollection
	healthCheckers []ports.HealthChecker
	gatherer       prometheus.Gatherer
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	if logger == nil {
		logger = logrus.New()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{}

	server := &Server{
		echo:           e,
		config:         serverConfig,
		logger:         logger,
		productService: deps.ProductService,
		poolStats:      deps.PoolStats,
		healthCheckers: deps.HealthCheckers,
		gatherer:       deps.Gatherer,
		middleware:     customMiddleware.NewMiddlewareCollection(logger, deps.Requests),
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}
