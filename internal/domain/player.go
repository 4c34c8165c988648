package domain

import "encoding/json"

// InventoryFormat selects which inventory shape the backend is expected to send
type InventoryFormat string

const (
	// InventoryFormatMap is the current shape: {"iron": 10, "gold": 2}
	InventoryFormatMap InventoryFormat = "map"
	// InventoryFormatList is the deprecated shape: [{"resource_type": "iron", "amount": 10}]
	InventoryFormatList InventoryFormat = "list"
)

// Holding is an amount of a single resource type
type Holding struct {
	ResourceType string `json:"resource_type"`
	Amount       int64  `json:"amount"`
}

// Inventory is the set of resources held by a player
type Inventory []Holding

// Player represents a player as reported by the game backend.
// PlayerID and CurrentPlanetID are opaque and re-emitted verbatim.
type Player struct {
	PlayerID        json.RawMessage `json:"playerId"`
	Name            string          `json:"name"`
	CurrentPlanetID json.RawMessage `json:"currentPlanetId"`
	Inventory       Inventory       `json:"inventory"`
}
