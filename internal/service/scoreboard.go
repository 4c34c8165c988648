package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/scoreboard-gateway/internal/domain"
	"github.com/scoreboard-gateway/internal/scoring"
)

//go:generate mockgen -package=mocks -destination=mocks/mock_player_source.go github.com/scoreboard-gateway/internal/service PlayerSource

// PlayerSource fetches the raw player list from the game backend
type PlayerSource interface {
	FetchPlayers(ctx context.Context) ([]byte, error)
}

// SnapshotSink receives every computed scoreboard
type SnapshotSink interface {
	Name() string
	Publish(ctx context.Context, snapshot domain.Snapshot) error
}

// ScoreboardService provides the business logic behind the player and scoreboard endpoints
type ScoreboardService struct {
	source     PlayerSource
	calculator *scoring.Calculator
	format     domain.InventoryFormat
	sinks      []SnapshotSink
	logger     *slog.Logger

	newID func() string
	now   func() time.Time
}

// NewScoreboardService creates a new scoreboard service
func NewScoreboardService(
	source PlayerSource,
	calculator *scoring.Calculator,
	format domain.InventoryFormat,
	logger *slog.Logger,
) *ScoreboardService {
	if format == "" {
		format = domain.InventoryFormatMap
	}
	return &ScoreboardService{
		source:     source,
		calculator: calculator,
		format:     format,
		logger:     logger,
		newID:      uuid.NewString,
		now:        time.Now,
	}
}

// AddSink registers a side output for computed snapshots.
// Must be called before the service starts serving.
func (s *ScoreboardService) AddSink(sink SnapshotSink) {
	s.sinks = append(s.sinks, sink)
}

// InventoryFormat returns the inventory shape expected from the backend
func (s *ScoreboardService) InventoryFormat() domain.InventoryFormat {
	return s.format
}

// Players returns the backend's player list unmodified
func (s *ScoreboardService) Players(ctx context.Context) (json.RawMessage, error) {
	body, err := s.source.FetchPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching players: %w", err)
	}
	return json.RawMessage(body), nil
}

// Scoreboard fetches the players, ranks them and hands the result to every sink
func (s *ScoreboardService) Scoreboard(ctx context.Context) (*domain.Snapshot, error) {
	body, err := s.source.FetchPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching players: %w", err)
	}

	players, err := domain.DecodePlayers(body, s.format)
	if err != nil {
		return nil, fmt.Errorf("decoding players: %w", err)
	}

	entries, err := s.calculator.Calculate(players)
	if err != nil {
		return nil, fmt.Errorf("scoring players: %w", err)
	}

	snapshot := domain.Snapshot{
		ID:         s.newID(),
		ComputedAt: s.now().UTC(),
		Entries:    entries,
	}

	s.publish(ctx, snapshot)

	return &snapshot, nil
}

// Refresh computes a scoreboard purely for its side outputs
func (s *ScoreboardService) Refresh(ctx context.Context) error {
	_, err := s.Scoreboard(ctx)
	return err
}

// publish delivers the snapshot to each sink; a failing sink never fails the caller
func (s *ScoreboardService) publish(ctx context.Context, snapshot domain.Snapshot) {
	for _, sink := range s.sinks {
		if err := sink.Publish(ctx, snapshot); err != nil {
			s.logger.Warn("failed to publish scoreboard snapshot",
				"sink", sink.Name(),
				"snapshot_id", snapshot.ID,
				"error", err,
			)
		}
	}
}
