package domain

import (
	"encoding/json"
	"time"
)

// ScoreboardEntry is a player's ranked position on the scoreboard
type ScoreboardEntry struct {
	PlayerID        json.RawMessage `json:"playerId"`
	Name            string          `json:"name"`
	Score           int64           `json:"score"`
	CurrentPlanetID json.RawMessage `json:"currentPlanetId"`
}

// LegacyEntry is the scoreboard entry shape served for list-format inventories
type LegacyEntry struct {
	Player string `json:"player"`
	Score  int64  `json:"score"`
}

// Snapshot is one computed scoreboard
type Snapshot struct {
	ID         string            `json:"id"`
	ComputedAt time.Time         `json:"computedAt"`
	Entries    []ScoreboardEntry `json:"scoreboard"`
}

// TopScore returns the highest score in the snapshot, or 0 when it is empty
func (s Snapshot) TopScore() int64 {
	if len(s.Entries) == 0 {
		return 0
	}
	return s.Entries[0].Score
}

// ScoreboardEvent is the message published for every computed snapshot
type ScoreboardEvent struct {
	EventType string   `json:"event_type"`
	Snapshot  Snapshot `json:"snapshot"`
}

// EventTypeScoreboardComputed marks a freshly computed snapshot
const EventTypeScoreboardComputed = "scoreboard_computed"
