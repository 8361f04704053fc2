package valuation

import (
	"stockforge/internal/core/types"
)

// drainResult is the outcome of one layer walk.
type drainResult struct {
	consumed  types.Quantity
	totalCost types.Money
	entries   []ConsumedLayer
	touched   []*Layer
}

// drainLayers walks layers in the order given and takes stock until the
// requested quantity is satisfied or layers run out. Layers are mutated in
// place (QuantityRemaining, IsConsumed); callers persist the touched ones.
//
// The walk never errors: running out of layers yields a partial result.
func drainLayers(layers []*Layer, requested types.Quantity) drainResult {
	res := drainResult{totalCost: types.ZeroMoney()}
	remaining := requested

	for _, layer := range layers {
		if remaining <= 0 {
			break
		}
		if layer.QuantityRemaining <= 0 {
			continue
		}

		take := types.Min(remaining, layer.QuantityRemaining)
		cost := take.Decimal().Mul(layer.UnitCost)

		layer.QuantityRemaining -= take
		layer.IsConsumed = layer.QuantityRemaining == 0

		res.consumed += take
		res.totalCost = res.totalCost.Add(cost)
		res.entries = append(res.entries, ConsumedLayer{
			LayerID:  layer.ID,
			Quantity: take,
			UnitCost: layer.UnitCost,
			Cost:     cost,
		})
		res.touched = append(res.touched, layer)

		remaining -= take
	}

	return res
}

// averageUnitCost computes the weighted unit cost, guarding the zero case.
func averageUnitCost(totalCost types.Money, consumed types.Quantity) types.Money {
	if consumed.IsZero() {
		return types.ZeroMoney()
	}
	return totalCost.DivRound(consumed.Decimal(), 6)
}

// openQuantity sums the remaining quantity over a layer slice.
func openQuantity(layers []*Layer) types.Quantity {
	var total types.Quantity
	for _, l := range layers {
		total += l.QuantityRemaining
	}
	return total
}
