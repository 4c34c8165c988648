package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/scoreboard-gateway/internal/config"
	"github.com/scoreboard-gateway/internal/domain"
)

// Producer publishes scoreboard events to Kafka
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

// NewProducer connects a synchronous producer to the configured brokers
func NewProducer(cfg *config.KafkaConfig, logger *slog.Logger) (*Producer, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewProducerConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}
	return NewProducerWithClient(producer, cfg.Topic, logger)
}

// NewProducerConfig returns the sarama settings used for scoreboard events
func NewProducerConfig(cfg *config.KafkaConfig) *sarama.Config {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_0_0_0
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Timeout = cfg.WriteTimeout
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	return saramaConfig
}

// NewProducerWithClient wraps an existing sarama producer
func NewProducerWithClient(producer sarama.SyncProducer, topic string, logger *slog.Logger) (*Producer, error) {
	if producer == nil {
		return nil, errors.New("kafka producer cannot be nil")
	}
	if topic == "" {
		return nil, errors.New("kafka topic cannot be empty")
	}
	return &Producer{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}, nil
}

// Name identifies the producer in logs
func (p *Producer) Name() string {
	return "kafka"
}

// Publish sends a scoreboard_computed event keyed by snapshot id
func (p *Producer) Publish(ctx context.Context, snapshot domain.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(domain.ScoreboardEvent{
		EventType: domain.EventTypeScoreboardComputed,
		Snapshot:  snapshot,
	})
	if err != nil {
		return fmt.Errorf("marshaling scoreboard event: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(snapshot.ID),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("sending scoreboard event: %w", err)
	}

	p.logger.Debug("published scoreboard event",
		"snapshot_id", snapshot.ID,
		"partition", partition,
		"offset", offset,
	)
	return nil
}

// Close flushes and closes the producer
func (p *Producer) Close() error {
	return p.producer.Close()
}
