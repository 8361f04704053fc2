package valuation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockforge/internal/core/id"
	"stockforge/internal/core/types"
)

func layerAt(day int, qty, cost string) *Layer {
	date := time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC)
	return NewLayer("org-1", id.New(), id.New(), mustQty(qty), types.MustMoney(cost), date, "")
}

func mustQty(s string) types.Quantity {
	q, err := parseQuantity(s)
	if err != nil {
		panic(err)
	}
	return q
}

func parseQuantity(s string) (types.Quantity, error) {
	var q types.Quantity
	if err := q.UnmarshalJSON([]byte(s)); err != nil {
		return 0, err
	}
	return q, nil
}

func TestDrainLayers_TakesInOrder(t *testing.T) {
	layers := []*Layer{
		layerAt(1, "10", "5.00"),
		layerAt(2, "5", "7.00"),
	}

	res := drainLayers(layers, mustQty("12"))

	assert.Equal(t, mustQty("12"), res.consumed)
	assert.True(t, res.totalCost.Equal(types.MustMoney("64")),
		"total cost: got %s", res.totalCost)

	require.Len(t, res.entries, 2)
	assert.Equal(t, mustQty("10"), res.entries[0].Quantity)
	assert.Equal(t, mustQty("2"), res.entries[1].Quantity)

	assert.True(t, layers[0].IsConsumed)
	assert.Equal(t, mustQty("0"), layers[0].QuantityRemaining)
	assert.False(t, layers[1].IsConsumed)
	assert.Equal(t, mustQty("3"), layers[1].QuantityRemaining)
}

func TestDrainLayers_PartialWhenShort(t *testing.T) {
	layers := []*Layer{
		layerAt(1, "10", "5.00"),
		layerAt(2, "5", "7.00"),
	}

	res := drainLayers(layers, mustQty("20"))

	assert.Equal(t, mustQty("15"), res.consumed)
	assert.True(t, res.totalCost.Equal(types.MustMoney("85")),
		"total cost: got %s", res.totalCost)
	for _, l := range layers {
		assert.True(t, l.IsConsumed)
	}
}

func TestDrainLayers_SkipsConsumed(t *testing.T) {
	spent := layerAt(1, "10", "5.00")
	spent.QuantityRemaining = 0
	spent.IsConsumed = true

	layers := []*Layer{spent, layerAt(2, "5", "7.00")}

	res := drainLayers(layers, mustQty("4"))

	require.Len(t, res.entries, 1)
	assert.Equal(t, layers[1].ID, res.entries[0].LayerID)
	assert.True(t, res.totalCost.Equal(types.MustMoney("28")))
}

func TestDrainLayers_FractionalQuantities(t *testing.T) {
	layers := []*Layer{
		layerAt(1, "2.5", "4.00"),
		layerAt(2, "2.5", "6.00"),
	}

	res := drainLayers(layers, mustQty("3.75"))

	assert.Equal(t, mustQty("3.75"), res.consumed)
	// 2.5 x 4.00 + 1.25 x 6.00
	assert.True(t, res.totalCost.Equal(types.MustMoney("17.5")),
		"total cost: got %s", res.totalCost)
	assert.Equal(t, mustQty("1.25"), layers[1].QuantityRemaining)
}

func TestAverageUnitCost(t *testing.T) {
	avg := averageUnitCost(types.MustMoney("64"), mustQty("12"))
	assert.True(t, avg.Equal(types.MustMoney("5.333333")), "got %s", avg)

	assert.True(t, averageUnitCost(types.MustMoney("0"), mustQty("0")).IsZero())
}

func TestOpenQuantity(t *testing.T) {
	layers := []*Layer{
		layerAt(1, "10", "5.00"),
		layerAt(2, "5", "7.00"),
	}
	layers[0].QuantityRemaining = mustQty("4")

	assert.Equal(t, mustQty("9"), openQuantity(layers))
	assert.Equal(t, mustQty("0"), openQuantity(nil))
}
