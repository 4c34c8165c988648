package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePlayers_MapInventory(t *testing.T) {
	body := []byte(`[
		{"playerId": "p-1", "name": "Ada", "currentPlanetId": 42, "inventory": {"iron": 10, "gold": 2}},
		{"playerId": 7, "name": "Bo"}
	]`)

	players, err := DecodePlayers(body, InventoryFormatMap)
	require.NoError(t, err)
	require.Len(t, players, 2)

	assert.JSONEq(t, `"p-1"`, string(players[0].PlayerID))
	assert.Equal(t, "Ada", players[0].Name)
	assert.JSONEq(t, `42`, string(players[0].CurrentPlanetID))
	assert.Equal(t, Inventory{
		{ResourceType: "gold", Amount: 2},
		{ResourceType: "iron", Amount: 10},
	}, players[0].Inventory)

	assert.JSONEq(t, `7`, string(players[1].PlayerID))
	assert.Nil(t, players[1].CurrentPlanetID)
	assert.Empty(t, players[1].Inventory)
}

func TestDecodePlayers_ListInventory(t *testing.T) {
	body := []byte(`[{"playerId": "p-1", "name": "Ada", "inventory": [
		{"resource_type": "Iron", "amount": 3},
		{"resource_type": "platinum", "amount": 1}
	]}]`)

	players, err := DecodePlayers(body, InventoryFormatList)
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, Inventory{
		{ResourceType: "Iron", Amount: 3},
		{ResourceType: "platinum", Amount: 1},
	}, players[0].Inventory)
}

func TestDecodePlayers_NullPlanetIsAbsent(t *testing.T) {
	players, err := DecodePlayers([]byte(`[{"playerId": "a", "name": "A", "currentPlanetId": null, "inventory": null}]`), InventoryFormatMap)
	require.NoError(t, err)
	assert.Nil(t, players[0].CurrentPlanetID)
	assert.Empty(t, players[0].Inventory)
}

func TestDecodePlayers_EmptyList(t *testing.T) {
	players, err := DecodePlayers([]byte(`[]`), InventoryFormatMap)
	require.NoError(t, err)
	assert.NotNil(t, players)
	assert.Empty(t, players)
}

func TestDecodePlayers_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		format InventoryFormat
		want   string
	}{
		{name: "null body", body: `null`, format: InventoryFormatMap, want: "expected a list"},
		{name: "not a list", body: `{"players": []}`, format: InventoryFormatMap, want: "expected a list"},
		{name: "missing name", body: `[{"playerId": "a"}]`, format: InventoryFormatMap, want: "missing name"},
		{name: "missing id", body: `[{"name": "A"}]`, format: InventoryFormatMap, want: "missing playerId"},
		{name: "null record", body: `[null]`, format: InventoryFormatMap, want: "missing playerId"},
		{name: "numeric name", body: `[{"playerId": "a", "name": 5}]`, format: InventoryFormatMap, want: "player 0"},
		{name: "list given to map format", body: `[{"playerId": "a", "name": "A", "inventory": [{"resource_type": "iron", "amount": 1}]}]`, format: InventoryFormatMap, want: "expected an object"},
		{name: "map given to list format", body: `[{"playerId": "a", "name": "A", "inventory": {"iron": 1}}]`, format: InventoryFormatList, want: "expected a list of resource records"},
		{name: "negative amount", body: `[{"playerId": "a", "name": "A", "inventory": {"iron": -4}}]`, format: InventoryFormatMap, want: "negative"},
		{name: "fractional amount", body: `[{"playerId": "a", "name": "A", "inventory": {"iron": 1.5}}]`, format: InventoryFormatMap, want: "not an integer"},
		{name: "string amount", body: `[{"playerId": "a", "name": "A", "inventory": {"iron": "3"}}]`, format: InventoryFormatMap, want: "not an integer"},
		{name: "missing resource type", body: `[{"playerId": "a", "name": "A", "inventory": [{"amount": 3}]}]`, format: InventoryFormatList, want: "missing resource_type"},
		{name: "missing amount", body: `[{"playerId": "a", "name": "A", "inventory": [{"resource_type": "iron"}]}]`, format: InventoryFormatList, want: "missing amount"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePlayers([]byte(tt.body), tt.format)
			require.Error(t, err)

			var dataErr *DataError
			require.True(t, errors.As(err, &dataErr))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDetail(t *testing.T) {
	wrapped := errors.Join(errors.New("fetching players"), ErrUpstreamUnavailable)
	assert.Equal(t, UnavailableMessage, Detail(wrapped))

	transport := &TransportError{Err: errors.New("dial tcp: connection refused")}
	assert.Equal(t, "dial tcp: connection refused", Detail(transport))

	data := &DataError{Err: errors.New("player 3: missing name")}
	assert.Equal(t, "player 3: missing name", Detail(data))

	assert.True(t, IsUpstreamError(transport))
	assert.True(t, IsUpstreamError(data))
	assert.False(t, IsUpstreamError(ErrHistoryDisabled))
}

func TestResourceValues_Weight(t *testing.T) {
	values := NewResourceValues(map[string]int64{"Gold": 5, "iron": 1})

	assert.Equal(t, int64(5), values.Weight("gold"))
	assert.Equal(t, int64(5), values.Weight("GOLD"))
	assert.Equal(t, int64(1), values.Weight("Iron"))
	assert.Equal(t, int64(0), values.Weight("unobtainium"))
	assert.Equal(t, 2, values.Len())
}
