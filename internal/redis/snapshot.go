package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/scoreboard-gateway/internal/config"
	"github.com/scoreboard-gateway/internal/domain"
)

// SnapshotStore publishes the latest scoreboard to Redis for external readers
type SnapshotStore struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewSnapshotStore connects to Redis and creates a snapshot store
func NewSnapshotStore(cfg *config.RedisConfig, logger *slog.Logger) (*SnapshotStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	store, err := NewSnapshotStoreWithClient(client, cfg.KeyPrefix, logger)
	if err != nil {
		client.Close()
		return nil, err
	}
	return store, nil
}

// NewSnapshotStoreWithClient creates a snapshot store over an existing client
func NewSnapshotStoreWithClient(client *redis.Client, prefix string, logger *slog.Logger) (*SnapshotStore, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if prefix == "" {
		prefix = "scoreboard"
	}

	// Test connection
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &SnapshotStore{
		client: client,
		prefix: prefix,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (s *SnapshotStore) Close() error {
	return s.client.Close()
}

// Name identifies the store in logs
func (s *SnapshotStore) Name() string {
	return "redis"
}

func (s *SnapshotStore) rankingKey() string {
	return s.prefix + ":latest"
}

func (s *SnapshotStore) snapshotKey() string {
	return s.prefix + ":latest:json"
}

func (s *SnapshotStore) metaKey() string {
	return s.prefix + ":latest:meta"
}

// Publish replaces the latest snapshot atomically
func (s *SnapshotStore) Publish(ctx context.Context, snapshot domain.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	members := make([]redis.Z, 0, len(snapshot.Entries))
	for _, entry := range snapshot.Entries {
		members = append(members, redis.Z{
			Score:  float64(entry.Score),
			Member: memberID(entry.PlayerID),
		})
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.rankingKey())
	if len(members) > 0 {
		pipe.ZAdd(ctx, s.rankingKey(), members...)
	}
	pipe.Set(ctx, s.snapshotKey(), data, 0)
	pipe.HSet(ctx, s.metaKey(),
		"id", snapshot.ID,
		"computed_at", snapshot.ComputedAt.Format(time.RFC3339Nano),
		"players", len(snapshot.Entries),
		"top_score", snapshot.TopScore(),
	)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publishing snapshot: %w", err)
	}

	s.logger.Debug("published scoreboard snapshot to redis",
		"snapshot_id", snapshot.ID,
		"players", len(snapshot.Entries),
	)
	return nil
}

// Latest returns the most recently published snapshot
func (s *SnapshotStore) Latest(ctx context.Context) (*domain.Snapshot, error) {
	data, err := s.client.Get(ctx, s.snapshotKey()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("getting latest snapshot: %w", err)
	}

	var snapshot domain.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("decoding latest snapshot: %w", err)
	}
	return &snapshot, nil
}

// LatestMeta returns the id and player count of the latest snapshot
func (s *SnapshotStore) LatestMeta(ctx context.Context) (id string, players int, err error) {
	result, err := s.client.HGetAll(ctx, s.metaKey()).Result()
	if err != nil {
		return "", 0, fmt.Errorf("getting snapshot meta: %w", err)
	}
	if len(result) == 0 {
		return "", 0, domain.ErrSnapshotNotFound
	}

	players, _ = strconv.Atoi(result["players"])
	return result["id"], players, nil
}

// memberID renders an opaque player id as a sorted set member,
// unquoting JSON strings and keeping other values verbatim.
func memberID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
