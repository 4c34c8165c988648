package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/scoreboard-gateway/internal/config"
	"github.com/scoreboard-gateway/internal/domain"
)

// DefaultHistoryLimit is used when no positive limit is requested
const DefaultHistoryLimit = 20

// MaxHistoryLimit caps a single history page
const MaxHistoryLimit = 500

// HistoryRepository records computed scoreboards in PostgreSQL
type HistoryRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewHistoryRepository creates a new PostgreSQL history repository
func NewHistoryRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*HistoryRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &HistoryRepository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *HistoryRepository) Close() {
	r.pool.Close()
}

// Name identifies the repository in logs
func (r *HistoryRepository) Name() string {
	return "postgres"
}

// RunMigrations executes database migrations
func (r *HistoryRepository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS scoreboard_snapshots (
			id UUID PRIMARY KEY,
			computed_at TIMESTAMPTZ NOT NULL,
			player_count INT NOT NULL,
			top_score BIGINT NOT NULL,
			entries JSONB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scoreboard_snapshots_computed_at ON scoreboard_snapshots(computed_at DESC)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// Publish records a snapshot
func (r *HistoryRepository) Publish(ctx context.Context, snapshot domain.Snapshot) error {
	return r.RecordSnapshot(ctx, snapshot)
}

// RecordSnapshot inserts a snapshot; re-recording the same id is a no-op
func (r *HistoryRepository) RecordSnapshot(ctx context.Context, snapshot domain.Snapshot) error {
	entries, err := encodeEntries(snapshot.Entries)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO scoreboard_snapshots (id, computed_at, player_count, top_score, entries)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = r.pool.Exec(ctx, query,
		snapshot.ID,
		snapshot.ComputedAt,
		len(snapshot.Entries),
		snapshot.TopScore(),
		entries,
	)
	if err != nil {
		return fmt.Errorf("recording snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns the most recent snapshots, newest first
func (r *HistoryRepository) ListSnapshots(ctx context.Context, limit int) ([]domain.Snapshot, error) {
	limit = ClampLimit(limit)

	query := `
		SELECT id::text, computed_at, entries
		FROM scoreboard_snapshots
		ORDER BY computed_at DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	snapshots := make([]domain.Snapshot, 0, limit)
	for rows.Next() {
		var snapshot domain.Snapshot
		var entries []byte
		if err := rows.Scan(&snapshot.ID, &snapshot.ComputedAt, &entries); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		if snapshot.Entries, err = decodeEntries(entries); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshots: %w", err)
	}
	return snapshots, nil
}

// GetSnapshot retrieves a single snapshot by id
func (r *HistoryRepository) GetSnapshot(ctx context.Context, id string) (*domain.Snapshot, error) {
	query := `
		SELECT id::text, computed_at, entries
		FROM scoreboard_snapshots
		WHERE id = $1
	`
	var snapshot domain.Snapshot
	var entries []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(&snapshot.ID, &snapshot.ComputedAt, &entries)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("getting snapshot: %w", err)
	}
	if snapshot.Entries, err = decodeEntries(entries); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// ClampLimit bounds a requested page size
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

func encodeEntries(entries []domain.ScoreboardEntry) ([]byte, error) {
	if entries == nil {
		entries = []domain.ScoreboardEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("marshaling entries: %w", err)
	}
	return data, nil
}

func decodeEntries(data []byte) ([]domain.ScoreboardEntry, error) {
	entries := []domain.ScoreboardEntry{}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("unmarshaling entries: %w", err)
	}
	return entries, nil
}
