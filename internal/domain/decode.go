package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

type rawPlayer struct {
	PlayerID        json.RawMessage `json:"playerId"`
	Name            *string         `json:"name"`
	CurrentPlanetID json.RawMessage `json:"currentPlanetId"`
	Inventory       json.RawMessage `json:"inventory"`
}

type rawHolding struct {
	ResourceType *string         `json:"resource_type"`
	Amount       json.RawMessage `json:"amount"`
}

// DecodePlayers parses a backend /players body. Any record that does not
// match the expected shape fails the whole decode with a *DataError.
func DecodePlayers(body []byte, format InventoryFormat) ([]Player, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, &DataError{Err: fmt.Errorf("players: expected a list of player records: %w", err)}
	}
	if records == nil {
		return nil, &DataError{Err: errors.New("players: expected a list of player records, got null")}
	}

	players := make([]Player, 0, len(records))
	for i, record := range records {
		player, err := decodePlayer(record, format)
		if err != nil {
			return nil, &DataError{Err: fmt.Errorf("player %d: %w", i, err)}
		}
		players = append(players, player)
	}
	return players, nil
}

func decodePlayer(record json.RawMessage, format InventoryFormat) (Player, error) {
	var raw rawPlayer
	if err := json.Unmarshal(record, &raw); err != nil {
		return Player{}, err
	}
	if isNull(raw.PlayerID) {
		return Player{}, errors.New("missing playerId")
	}
	if raw.Name == nil {
		return Player{}, errors.New("missing name")
	}

	inventory, err := decodeInventory(raw.Inventory, format)
	if err != nil {
		return Player{}, fmt.Errorf("inventory: %w", err)
	}

	player := Player{
		PlayerID:  raw.PlayerID,
		Name:      *raw.Name,
		Inventory: inventory,
	}
	if !isNull(raw.CurrentPlanetID) {
		player.CurrentPlanetID = raw.CurrentPlanetID
	}
	return player, nil
}

func decodeInventory(raw json.RawMessage, format InventoryFormat) (Inventory, error) {
	if isNull(raw) {
		return Inventory{}, nil
	}

	switch format {
	case InventoryFormatList:
		return decodeInventoryList(raw)
	case InventoryFormatMap, "":
		return decodeInventoryMap(raw)
	default:
		return nil, fmt.Errorf("unsupported inventory format %q", format)
	}
}

func decodeInventoryMap(raw json.RawMessage) (Inventory, error) {
	var amounts map[string]json.RawMessage
	if err := json.Unmarshal(raw, &amounts); err != nil {
		return nil, fmt.Errorf("expected an object of resource amounts: %w", err)
	}

	resources := make([]string, 0, len(amounts))
	for resource := range amounts {
		resources = append(resources, resource)
	}
	sort.Strings(resources)

	inventory := make(Inventory, 0, len(resources))
	for _, resource := range resources {
		amount, err := parseAmount(amounts[resource])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", resource, err)
		}
		inventory = append(inventory, Holding{ResourceType: resource, Amount: amount})
	}
	return inventory, nil
}

func decodeInventoryList(raw json.RawMessage) (Inventory, error) {
	var holdings []rawHolding
	if err := json.Unmarshal(raw, &holdings); err != nil {
		return nil, fmt.Errorf("expected a list of resource records: %w", err)
	}

	inventory := make(Inventory, 0, len(holdings))
	for i, h := range holdings {
		if h.ResourceType == nil {
			return nil, fmt.Errorf("record %d: missing resource_type", i)
		}
		amount, err := parseAmount(h.Amount)
		if err != nil {
			return nil, fmt.Errorf("record %d (%s): %w", i, *h.ResourceType, err)
		}
		inventory = append(inventory, Holding{ResourceType: *h.ResourceType, Amount: amount})
	}
	return inventory, nil
}

// parseAmount accepts only non-negative JSON integers
func parseAmount(raw json.RawMessage) (int64, error) {
	if isNull(raw) {
		return 0, errors.New("missing amount")
	}
	amount, err := strconv.ParseInt(string(bytes.TrimSpace(raw)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("amount %s is not an integer", raw)
	}
	if amount < 0 {
		return 0, fmt.Errorf("amount %d is negative", amount)
	}
	return amount, nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
