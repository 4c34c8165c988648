package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/scoreboard-gateway/internal/domain"
)

// ErrScoreOverflow is returned when an inventory is worth more than an int64 can hold
var ErrScoreOverflow = errors.New("score exceeds int64 range")

// Calculator ranks players by the weighted value of their inventories
type Calculator struct {
	values domain.ResourceValues
}

// NewCalculator creates a calculator over an immutable resource value table
func NewCalculator(values domain.ResourceValues) *Calculator {
	return &Calculator{values: values}
}

// Score returns the weighted sum of a player's inventory.
// Weights and amounts are non-negative, so only upward overflow is checked.
func (c *Calculator) Score(inventory domain.Inventory) (int64, error) {
	var score int64
	for _, h := range inventory {
		weight := c.values.Weight(h.ResourceType)
		if h.Amount != 0 && weight > math.MaxInt64/h.Amount {
			return 0, fmt.Errorf("%s x %d: %w", h.ResourceType, h.Amount, ErrScoreOverflow)
		}
		value := weight * h.Amount
		if score > math.MaxInt64-value {
			return 0, ErrScoreOverflow
		}
		score += value
	}
	return score, nil
}

// Calculate builds the scoreboard for players, highest score first.
// Players with equal scores keep their input order.
func (c *Calculator) Calculate(players []domain.Player) ([]domain.ScoreboardEntry, error) {
	entries := make([]domain.ScoreboardEntry, 0, len(players))
	for i, p := range players {
		score, err := c.Score(p.Inventory)
		if err != nil {
			return nil, &domain.DataError{Err: fmt.Errorf("player %d: %w", i, err)}
		}
		entries = append(entries, domain.ScoreboardEntry{
			PlayerID:        p.PlayerID,
			Name:            p.Name,
			Score:           score,
			CurrentPlanetID: p.CurrentPlanetID,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	return entries, nil
}

// Legacy converts entries to the {player, score} shape
func Legacy(entries []domain.ScoreboardEntry) []domain.LegacyEntry {
	legacy := make([]domain.LegacyEntry, len(entries))
	for i, e := range entries {
		legacy[i] = domain.LegacyEntry{Player: e.Name, Score: e.Score}
	}
	return legacy
}
