package processor

import (
	"sort"

	"gainstaker/models"
)

// SortLevels returns a copy of snap with empty or non-positive levels
// dropped and the rest ordered best price first: bids high to low, asks low
// to high. Levels at the same price keep their order.
func SortLevels(snap models.Snapshot) models.Snapshot {
	levels := make([]models.Level, 0, len(snap.Levels))
	for _, lvl := range snap.Levels {
		if lvl.Price.IsPositive() && lvl.Quantity.IsPositive() {
			levels = append(levels, lvl)
		}
	}

	sort.SliceStable(levels, func(i, j int) bool {
		a, b := levels[i], levels[j]
		if snap.Side == models.Bids {
			return a.Price.GreaterThan(b.Price)
		}
		return a.Price.LessThan(b.Price)
	})

	snap.Levels = levels
	return snap
}
