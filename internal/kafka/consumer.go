package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/scoreboard-gateway/internal/config"
	"github.com/scoreboard-gateway/internal/domain"
)

// EventHandler processes scoreboard events
type EventHandler interface {
	HandleEvent(ctx context.Context, event domain.ScoreboardEvent) error
}

// Consumer consumes scoreboard events from Kafka
type Consumer struct {
	config        *config.KafkaConfig
	handler       EventHandler
	logger        *slog.Logger
	consumerGroup sarama.ConsumerGroup
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(cfg *config.KafkaConfig, handler EventHandler, logger *slog.Logger) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_0_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetNewest
	saramaConfig.Consumer.Return.Errors = true

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, err
	}

	return NewConsumerWithGroup(cfg, consumerGroup, handler, logger), nil
}

// NewConsumerWithGroup creates a consumer on top of an existing consumer group
func NewConsumerWithGroup(cfg *config.KafkaConfig, group sarama.ConsumerGroup, handler EventHandler, logger *slog.Logger) *Consumer {
	ctx, cancel := context.WithCancel(context.Background())

	return &Consumer{
		config:        cfg,
		handler:       handler,
		logger:        logger,
		consumerGroup: group,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start begins consuming messages and blocks until the first session is set up.
// An error from the group before that point is returned and consumption stops.
func (c *Consumer) Start() error {
	c.logger.Info("starting Kafka consumer",
		"brokers", c.config.Brokers,
		"topic", c.config.Topic,
		"group_id", c.config.GroupID,
	)

	ready := make(chan struct{})
	startErr := make(chan error, 1)
	var once sync.Once
	handler := &consumerGroupHandler{
		consumer: c,
		ready:    func() { once.Do(func() { close(ready) }) },
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			err := c.consumerGroup.Consume(c.ctx, []string{c.config.Topic}, handler)
			if errors.Is(err, sarama.ErrClosedConsumerGroup) || c.ctx.Err() != nil {
				return
			}
			if err != nil {
				select {
				case <-ready:
					c.logger.Error("error from consumer", "error", err)
				default:
					startErr <- err
					return
				}
			}

			// Session ended on rebalance or error; rejoin after a pause
			select {
			case <-c.ctx.Done():
				return
			case <-time.After(c.config.RetryDelay):
			}
		}
	}()

	select {
	case <-ready:
	case err := <-startErr:
		return fmt.Errorf("joining consumer group: %w", err)
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
	c.logger.Info("Kafka consumer ready")

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.ctx.Done():
				return
			case err, ok := <-c.consumerGroup.Errors():
				if !ok {
					return
				}
				c.logger.Error("consumer group error", "error", err)
			}
		}
	}()

	return nil
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() error {
	c.logger.Info("stopping Kafka consumer")
	c.cancel()
	c.wg.Wait()
	return c.consumerGroup.Close()
}

// consumerGroupHandler implements sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	consumer *Consumer
	ready    func()
}

// Setup is called at the beginning of a new session
func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.ready()
	return nil
}

// Cleanup is called at the end of a session
func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim processes messages from a topic partition
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-session.Context().Done():
			return nil

		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}

			event, err := DecodeEvent(message.Value)
			if err != nil {
				h.consumer.logger.Warn("skipping undecodable scoreboard event",
					"error", err,
					"offset", message.Offset,
					"partition", message.Partition,
				)
				session.MarkMessage(message, "")
				continue
			}

			if err := h.consumer.handler.HandleEvent(session.Context(), event); err != nil {
				h.consumer.logger.Error("failed to handle scoreboard event",
					"snapshot_id", event.Snapshot.ID,
					"error", err,
				)
			}
			session.MarkMessage(message, "")
		}
	}
}

// DecodeEvent parses a scoreboard event message value
func DecodeEvent(value []byte) (domain.ScoreboardEvent, error) {
	var event domain.ScoreboardEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return domain.ScoreboardEvent{}, fmt.Errorf("unmarshaling event: %w", err)
	}
	if event.EventType != domain.EventTypeScoreboardComputed {
		return domain.ScoreboardEvent{}, fmt.Errorf("unexpected event type %q", event.EventType)
	}
	if event.Snapshot.ID == "" {
		return domain.ScoreboardEvent{}, errors.New("event is missing snapshot id")
	}
	return event, nil
}
