package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/scoreboard-gateway/internal/config"
	"github.com/scoreboard-gateway/internal/domain"
	"github.com/scoreboard-gateway/internal/kafka"
	"github.com/scoreboard-gateway/internal/redis"
)

// printer writes a short summary of each scoreboard event to stdout
type printer struct {
	top int
}

func (p *printer) HandleEvent(_ context.Context, event domain.ScoreboardEvent) error {
	snapshot := event.Snapshot
	fmt.Printf("[%s] snapshot %s: %d players\n",
		snapshot.ComputedAt.Format("15:04:05"),
		snapshot.ID,
		len(snapshot.Entries),
	)
	for i, entry := range snapshot.Entries {
		if i >= p.top {
			break
		}
		fmt.Printf("  %2d. %-24s %d\n", i+1, entry.Name, entry.Score)
	}
	return nil
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	brokers := flag.String("brokers", "", "Kafka brokers (comma-separated), overrides config")
	topic := flag.String("topic", "", "Kafka topic, overrides config")
	top := flag.Int("top", 5, "Number of leading players to print per snapshot")
	fromRedis := flag.Bool("from-redis", false, "Print the latest snapshot published to Redis and exit")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}
	if *fromRedis {
		if err := printLatest(cfg, &printer{top: *top}, logger); err != nil {
			logger.Error("failed to read latest snapshot from Redis", "error", err)
			os.Exit(1)
		}
		return
	}

	if *brokers != "" {
		cfg.Kafka.Brokers = strings.Split(*brokers, ",")
	}
	if *topic != "" {
		cfg.Kafka.Topic = *topic
	}

	consumer, err := kafka.NewConsumer(&cfg.Kafka, &printer{top: *top}, logger)
	if err != nil {
		logger.Error("failed to create Kafka consumer", "error", err)
		os.Exit(1)
	}
	if err := consumer.Start(); err != nil {
		logger.Error("failed to start Kafka consumer", "error", err)
		consumer.Stop()
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	if err := consumer.Stop(); err != nil {
		logger.Error("failed to stop Kafka consumer", "error", err)
	}
}

// printLatest prints the snapshot currently held in Redis
func printLatest(cfg *config.Config, p *printer, logger *slog.Logger) error {
	store, err := redis.NewSnapshotStore(&cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Redis.ReadTimeout)
	defer cancel()

	snapshot, err := store.Latest(ctx)
	if err != nil {
		return err
	}
	return p.HandleEvent(ctx, domain.ScoreboardEvent{
		EventType: domain.EventTypeScoreboardComputed,
		Snapshot:  *snapshot,
	})
}
