// Package processor turns order book snapshots into conversion estimates.
package processor

import (
	"fmt"

	"github.com/shopspring/decimal"

	"gainstaker/internal/quantize"
	"gainstaker/models"
)

// Convert walks snap level by level until target is covered and returns what
// a market order of that size would yield.
//
// With side Buy the snapshot must be the asks and target is an amount of the
// pair's Base to spend; the result is the Quote quantity bought. With side
// Sell the snapshot must be the bids and target is a Quote quantity to
// dispose of; the result is the Base proceeds. The crossing level fills
// fractionally at its own price and the sum is quantized down to increment.
//
// The returned Asset is left empty; callers holding the pair fill it in.
func Convert(snap models.Snapshot, side models.Side, target, increment decimal.Decimal) (models.ConversionResult, error) {
	if !side.Valid() {
		return models.ConversionResult{}, fmt.Errorf("%w: %v", models.ErrInvalidSide, side)
	}
	if !target.IsPositive() {
		return models.ConversionResult{}, fmt.Errorf("%w: target %s", models.ErrInvalidQuantity, target)
	}

	var (
		consumed = decimal.Zero // in target units
		yielded  = decimal.Zero // in result units
	)
	for _, lvl := range snap.Levels {
		if !lvl.Price.IsPositive() || !lvl.Quantity.IsPositive() {
			continue
		}
		// levelSize is how much of the target this level can absorb.
		levelSize := lvl.Quantity
		if side == models.Buy {
			levelSize = lvl.Price.Mul(lvl.Quantity)
		}

		remaining := target.Sub(consumed)
		if levelSize.LessThan(remaining) {
			consumed = consumed.Add(levelSize)
			yielded = yielded.Add(levelYield(side, lvl, lvl.Quantity))
			continue
		}

		fill := remaining
		if side == models.Buy {
			fill = remaining.DivRound(lvl.Price, models.DivisionScale)
		}
		yielded = yielded.Add(levelYield(side, lvl, fill))
		return models.ConversionResult{
			Amount: quantize.Down(yielded, increment),
			Price:  lvl.Price,
		}, nil
	}

	return models.ConversionResult{}, fmt.Errorf("%w: %s %s needs %s, book covers %s over %d levels",
		models.ErrInsufficientLiquidity, snap.Symbol, side, target, consumed, len(snap.Levels))
}

// levelYield is what filling qty of Quote at lvl returns in result units.
func levelYield(side models.Side, lvl models.Level, qty decimal.Decimal) decimal.Decimal {
	if side == models.Buy {
		return qty
	}
	return qty.Mul(lvl.Price)
}

// Depth sums the target units a snapshot can absorb for side.
func Depth(snap models.Snapshot, side models.Side) decimal.Decimal {
	total := decimal.Zero
	for _, lvl := range snap.Levels {
		if !lvl.Price.IsPositive() || !lvl.Quantity.IsPositive() {
			continue
		}
		if side == models.Buy {
			total = total.Add(lvl.Price.Mul(lvl.Quantity))
		} else {
			total = total.Add(lvl.Quantity)
		}
	}
	return total
}
