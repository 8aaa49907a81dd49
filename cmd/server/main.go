package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/aegisshield/entity-network/internal/cache"
	"github.com/aegisshield/entity-network/internal/config"
	"github.com/aegisshield/entity-network/internal/database"
	"github.com/aegisshield/entity-network/internal/engine"
	"github.com/aegisshield/entity-network/internal/handlers"
	"github.com/aegisshield/entity-network/internal/interceptors"
	"github.com/aegisshield/entity-network/internal/kafka"
	"github.com/aegisshield/entity-network/internal/metrics"
	"github.com/aegisshield/entity-network/internal/models"
	"github.com/aegisshield/entity-network/internal/neo4j"
	"github.com/aegisshield/entity-network/internal/resolver"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)

	logger.Info("Starting Entity Network Service",
		"environment", cfg.Environment,
		"grpc_port", cfg.Server.GRPCPort,
		"http_port", cfg.Server.HTTPPort,
		"database", cfg.Database.Enabled,
		"redis", cfg.Redis.Enabled,
		"kafka", cfg.Kafka.Enabled,
		"neo4j", cfg.Neo4j.Enabled)

	metricsCollector := metrics.NewCollector(prometheus.DefaultRegisterer)

	var deps engine.Dependencies
	checks := make(map[string]handlers.ReadinessCheck)

	if cfg.Database.Enabled {
		repository, err := database.NewRepository(cfg.Database, logger)
		if err != nil {
			logger.Error("Failed to initialize database repository", "error", err)
			os.Exit(1)
		}
		defer repository.Close()

		if err := repository.Migrate(); err != nil {
			logger.Error("Failed to run database migrations", "error", err)
			os.Exit(1)
		}
		deps.Store = repository
		checks["database"] = repository.Ping
	}

	if cfg.Redis.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		redisCache, err := cache.NewRedisCache(ctx, cfg.Redis, logger)
		cancel()
		if err != nil {
			logger.Error("Failed to initialize Redis cache", "error", err)
			os.Exit(1)
		}
		defer redisCache.Close()

		deps.Cache = redisCache
		checks["redis"] = redisCache.Ping
	}

	if cfg.Neo4j.Enabled {
		sink, err := neo4j.NewSink(cfg.Neo4j, logger)
		if err != nil {
			logger.Error("Failed to initialize Neo4j sink", "error", err)
			os.Exit(1)
		}
		defer sink.Close()

		deps.Sink = sink
		checks["neo4j"] = sink.VerifyConnectivity
	}

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer, err = kafka.NewProducer(cfg.Kafka, logger)
		if err != nil {
			logger.Error("Failed to initialize Kafka producer", "error", err)
			os.Exit(1)
		}
		defer producer.Close()

		deps.Publisher = producer
	}

	service := engine.NewService(engine.Options{
		Resolver:    cfg.ResolverConfig(),
		Network:     cfg.NetworkEngineConfig(),
		MaxHops:     cfg.Network.MaxHops,
		DecayFactor: cfg.Network.DecayFactor,
	}, deps, metricsCollector, logger)

	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()

	if cfg.Kafka.Enabled && cfg.Kafka.ConsumeRecords {
		consumer, err := kafka.NewConsumer(cfg.Kafka, resolveBatchHandler(service, logger), metricsCollector, logger)
		if err != nil {
			logger.Error("Failed to initialize Kafka consumer", "error", err)
			os.Exit(1)
		}
		defer consumer.Close()

		go func() {
			logger.Info("Starting Kafka consumer", "topic", cfg.Kafka.RecordsTopic)
			if err := consumer.Start(consumerCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Kafka consumer failed", "error", err)
			}
		}()
	}

	// Initialize gRPC server
	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			interceptors.RecoveryInterceptor(logger),
			interceptors.LoggingInterceptor(logger),
			interceptors.MetricsInterceptor(metricsCollector),
		),
	)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	reflection.Register(grpcServer)

	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Server.GRPCPort))
	if err != nil {
		logger.Error("Failed to listen on gRPC port", "port", cfg.Server.GRPCPort, "error", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("gRPC server starting", "address", grpcListener.Addr())
		if err := grpcServer.Serve(grpcListener); err != nil {
			logger.Error("gRPC server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Setup HTTP router
	httpHandler := handlers.NewHTTPHandler(service, checks, metricsCollector, cfg.Environment == "development", logger)
	if producer != nil {
		httpHandler.WithBatchSubmitter(producer)
	}

	router := mux.NewRouter()
	httpHandler.RegisterRoutes(router)
	router.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logger.Info("HTTP server starting", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logger.Info("Received shutdown signal", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	stopConsumer()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
	} else {
		logger.Info("HTTP server stopped")
	}

	done := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("gRPC server stopped")
	case <-ctx.Done():
		logger.Warn("gRPC server shutdown timeout, forcing stop")
		grpcServer.Stop()
	}

	logger.Info("Entity Network Service stopped")
}

// resolveBatchHandler resolves consumed batches. Batches the resolver
// rejects are dropped so they are not redelivered forever.
func resolveBatchHandler(service *engine.Service, logger *slog.Logger) kafka.BatchHandler {
	return func(ctx context.Context, batchID string, records []models.RawRecord) error {
		job, err := service.ResolveBatch(ctx, records)
		if err != nil {
			if errors.Is(err, resolver.ErrInvalidInput) {
				logger.Warn("Dropping invalid record batch", "batch_id", batchID, "error", err)
				return nil
			}
			return err
		}

		logger.Info("Record batch resolved",
			"batch_id", batchID,
			"job_id", job.ID,
			"entities", job.EntityCount)
		return nil
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
