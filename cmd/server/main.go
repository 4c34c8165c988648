package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/scoreboard-gateway/internal/config"
	"github.com/scoreboard-gateway/internal/domain"
	"github.com/scoreboard-gateway/internal/handler"
	"github.com/scoreboard-gateway/internal/kafka"
	"github.com/scoreboard-gateway/internal/postgres"
	"github.com/scoreboard-gateway/internal/redis"
	"github.com/scoreboard-gateway/internal/scoring"
	"github.com/scoreboard-gateway/internal/service"
	"github.com/scoreboard-gateway/internal/upstream"
	"github.com/scoreboard-gateway/internal/websocket"
	"github.com/scoreboard-gateway/internal/worker"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	configErr := err
	if err != nil {
		cfg = config.DefaultConfig()
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if configErr != nil {
		logger.Warn("failed to load config file, using defaults", "error", configErr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Core: upstream client, calculator, service
	client := upstream.NewClient(&cfg.Upstream, logger)
	values := domain.NewResourceValues(cfg.Scoring.ResourceValues)
	calculator := scoring.NewCalculator(values)
	scoreboardService := service.NewScoreboardService(
		client,
		calculator,
		domain.InventoryFormat(cfg.Upstream.InventoryFormat),
		logger,
	)
	logger.Info("scoreboard service configured",
		"upstream", client.BaseURL(),
		"inventory_format", cfg.Upstream.InventoryFormat,
		"resource_types", values.Len(),
	)

	// Optional side outputs
	var snapshotMeta handler.SnapshotMeta
	if cfg.Redis.Enabled {
		logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
		redisStore, err := redis.NewSnapshotStore(&cfg.Redis, logger)
		if err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisStore.Close()
		scoreboardService.AddSink(redisStore)
		snapshotMeta = redisStore
		logger.Info("connected to Redis")
	}

	var history handler.HistoryReader
	if cfg.Postgres.Enabled {
		logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		historyRepo, err := postgres.NewHistoryRepository(&cfg.Postgres, logger)
		if err != nil {
			logger.Error("failed to connect to PostgreSQL", "error", err)
			os.Exit(1)
		}
		defer historyRepo.Close()

		if err := historyRepo.RunMigrations(ctx); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		scoreboardService.AddSink(historyRepo)
		history = historyRepo
		logger.Info("connected to PostgreSQL")
	}

	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka producer", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
		producer, err := kafka.NewProducer(&cfg.Kafka, logger)
		if err != nil {
			logger.Warn("failed to create Kafka producer, continuing without Kafka", "error", err)
		} else {
			defer producer.Close()
			scoreboardService.AddSink(producer)
		}
	}

	var wsHub *websocket.Hub
	if cfg.WebSocket.Enabled {
		wsHub = websocket.NewHub(&cfg.WebSocket, logger)
		go wsHub.Run()
		defer wsHub.Stop()
		scoreboardService.AddSink(wsHub)
		logger.Info("WebSocket hub initialized")
	}

	// Background refresher
	refreshWorker := worker.NewRefreshWorker(scoreboardService, &cfg.Refresh, logger)
	if cfg.Refresh.Enabled {
		if err := refreshWorker.Start(ctx); err != nil {
			logger.Error("failed to start refresh worker", "error", err)
			os.Exit(1)
		}
	}

	httpHandler := handler.NewHandler(scoreboardService, history, wsHub, logger)
	if snapshotMeta != nil {
		httpHandler.SetSnapshotMeta(snapshotMeta)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := refreshWorker.Stop(); err != nil {
		logger.Error("failed to stop refresh worker", "error", err)
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	logger.Info("server stopped")
}
