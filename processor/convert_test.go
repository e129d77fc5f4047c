package processor

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"gainstaker/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func book(side models.BookSide, levels ...[2]string) models.Snapshot {
	snap := models.Snapshot{Symbol: "ETHUSDC", Side: side}
	for _, l := range levels {
		snap.Levels = append(snap.Levels, models.Level{Price: d(l[0]), Quantity: d(l[1])})
	}
	return snap
}

func TestConvertBuyCrossesLevels(t *testing.T) {
	asks := book(models.Asks, [2]string{"100", "1"}, [2]string{"200", "2"})

	// 100 spent on the first level, 150 more at 200 buys 0.75.
	res, err := Convert(asks, models.Buy, d("250"), d("0.001"))
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if !res.Amount.Equal(d("1.75")) {
		t.Fatalf("amount = %s want 1.75", res.Amount)
	}
	if !res.Price.Equal(d("200")) {
		t.Fatalf("price = %s want 200", res.Price)
	}
}

func TestConvertSellCrossesLevels(t *testing.T) {
	bids := book(models.Bids, [2]string{"99", "1"}, [2]string{"98", "5"})

	res, err := Convert(bids, models.Sell, d("2.5"), d("0.01"))
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	// 99 + 1.5*98 = 246
	if !res.Amount.Equal(d("246")) {
		t.Fatalf("amount = %s want 246", res.Amount)
	}
	if !res.Price.Equal(d("98")) {
		t.Fatalf("price = %s want 98", res.Price)
	}
}

func TestConvertQuantizesDown(t *testing.T) {
	asks := book(models.Asks, [2]string{"3", "10"})
	res, err := Convert(asks, models.Buy, d("10"), d("0.01"))
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if !res.Amount.Equal(d("3.33")) {
		t.Fatalf("amount = %s want 3.33", res.Amount)
	}
}

func TestConvertExactLevelBoundary(t *testing.T) {
	bids := book(models.Bids, [2]string{"10", "1"}, [2]string{"9", "1"})
	res, err := Convert(bids, models.Sell, d("1"), d("0.1"))
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	if !res.Amount.Equal(d("10")) || !res.Price.Equal(d("10")) {
		t.Fatalf("got %s @ %s want 10 @ 10", res.Amount, res.Price)
	}
}

func TestConvertInsufficientLiquidity(t *testing.T) {
	asks := book(models.Asks, [2]string{"100", "1"}, [2]string{"200", "2"})
	if _, err := Convert(asks, models.Buy, d("501"), d("0.001")); !errors.Is(err, models.ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
	if _, err := Convert(models.Snapshot{}, models.Sell, d("1"), d("1")); !errors.Is(err, models.ErrInsufficientLiquidity) {
		t.Fatalf("empty book: expected ErrInsufficientLiquidity, got %v", err)
	}
	// Exactly the full depth is still covered.
	if _, err := Convert(asks, models.Buy, d("500"), d("0.001")); err != nil {
		t.Fatalf("full depth should convert: %v", err)
	}
}

func TestConvertRejectsBadInput(t *testing.T) {
	asks := book(models.Asks, [2]string{"1", "1"})
	if _, err := Convert(asks, models.Buy, d("0"), d("1")); !errors.Is(err, models.ErrInvalidQuantity) {
		t.Fatalf("zero target: got %v", err)
	}
	if _, err := Convert(asks, models.Buy, d("-1"), d("1")); !errors.Is(err, models.ErrInvalidQuantity) {
		t.Fatalf("negative target: got %v", err)
	}
	if _, err := Convert(asks, models.Side(0), d("1"), d("1")); !errors.Is(err, models.ErrInvalidSide) {
		t.Fatalf("bad side: got %v", err)
	}
}

func TestConvertMonotonic(t *testing.T) {
	bids := book(models.Bids,
		[2]string{"101.5", "0.3"},
		[2]string{"100.25", "1.7"},
		[2]string{"99", "4"},
		[2]string{"90", "10"},
	)
	asks := book(models.Asks,
		[2]string{"102", "0.3"},
		[2]string{"103.5", "1.7"},
		[2]string{"110", "4"},
	)

	check := func(name string, snap models.Snapshot, side models.Side, step decimal.Decimal) {
		prev := decimal.Zero
		limit := Depth(snap, side)
		for target := step; target.LessThanOrEqual(limit); target = target.Add(step) {
			res, err := Convert(snap, side, target, d("0.0001"))
			if err != nil {
				t.Fatalf("%s: Convert(%s) error = %v", name, target, err)
			}
			if res.Amount.LessThan(prev) {
				t.Fatalf("%s: result decreased at %s: %s < %s", name, target, res.Amount, prev)
			}
			prev = res.Amount
		}
	}
	check("sell", bids, models.Sell, d("0.25"))
	check("buy", asks, models.Buy, d("25"))
}

func TestDepth(t *testing.T) {
	asks := book(models.Asks, [2]string{"100", "1"}, [2]string{"200", "2"})
	if got := Depth(asks, models.Buy); !got.Equal(d("500")) {
		t.Fatalf("buy depth = %s want 500", got)
	}
	if got := Depth(asks, models.Sell); !got.Equal(d("3")) {
		t.Fatalf("sell depth = %s want 3", got)
	}
}
