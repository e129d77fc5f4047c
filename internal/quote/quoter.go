// Package quote prices conversions against fresh order book snapshots.
package quote

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"gainstaker/internal/quantize"
	"gainstaker/internal/symbols"
	"gainstaker/logger"
	"gainstaker/models"
	"gainstaker/processor"
)

// DepthReader fetches a depth snapshot for a listed symbol.
type DepthReader interface {
	Depth(ctx context.Context, symbol string, limit int) (*models.Depth, error)
}

// PathPlanner plans the route from an asset to the reference asset.
type PathPlanner interface {
	PathToReference(asset models.Asset) (models.RoutePath, error)
}

// Quoter fetches a snapshot per request and converts against it. Nothing is
// cached between calls.
type Quoter struct {
	books    DepthReader
	universe *symbols.Universe
	planner  PathPlanner
	limit    int
	log      *logger.Log
}

// NewQuoter returns a Quoter reading depth at the given limit. planner may
// be nil when Value is not used.
func NewQuoter(books DepthReader, universe *symbols.Universe, planner PathPlanner, limit int) *Quoter {
	return &Quoter{
		books:    books,
		universe: universe,
		planner:  planner,
		limit:    limit,
		log:      logger.GetLogger(),
	}
}

// Snapshot fetches the side of pair's book a market order with side walks.
func (q *Quoter) Snapshot(ctx context.Context, pair models.Pair, side models.Side) (models.Snapshot, error) {
	depth, err := q.books.Depth(ctx, pair.Symbol(), q.limit)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("fetch %s depth: %w", pair, err)
	}
	return processor.SortLevels(depth.Side(models.BookFor(side))), nil
}

// Quote estimates what req yields. The result is quantized with the
// increment of the acquired asset.
func (q *Quoter) Quote(ctx context.Context, req models.ConversionRequest) (models.ConversionResult, error) {
	if err := validate(req); err != nil {
		return models.ConversionResult{}, err
	}
	if !q.universe.Listed(req.Pair.Symbol()) {
		return models.ConversionResult{}, fmt.Errorf("%w: %s is not listed", models.ErrInvalidPairing, req.Pair)
	}
	snap, err := q.Snapshot(ctx, req.Pair, req.Side)
	if err != nil {
		return models.ConversionResult{}, err
	}
	return q.convert(snap, req)
}

func (q *Quoter) convert(snap models.Snapshot, req models.ConversionRequest) (models.ConversionResult, error) {
	inc := q.universe.Increment(req.Pair, req.Side.Opposite())
	res, err := processor.Convert(snap, req.Side, req.Amount, inc)
	if err != nil {
		return models.ConversionResult{}, err
	}
	res.Asset = req.Side.Acquires(req.Pair)

	q.log.WithComponent("quoter").WithFields(logger.Fields{
		"pair":   req.Pair.Symbol(),
		"side":   req.Side.String(),
		"amount": req.Amount.String(),
		"result": res.Amount.String(),
		"asset":  res.Asset.String(),
		"price":  res.Price.String(),
		"levels": len(snap.Levels),
	}).Debug("quoted conversion")
	return res, nil
}

// Required estimates how much of hop.From() must be disposed of for hop to
// acquire want of hop.To(). The estimate walks the same book the hop will
// consume in the inverse mode and is rounded up to the disposed asset's
// increment so the hop does not fall short.
func (q *Quoter) Required(ctx context.Context, hop models.Hop, want decimal.Decimal) (decimal.Decimal, error) {
	if !want.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: want %s", models.ErrInvalidQuantity, want)
	}
	snap, err := q.Snapshot(ctx, hop.Pair, hop.Side)
	if err != nil {
		return decimal.Zero, err
	}
	return RequiredFrom(snap, q.universe, hop, want)
}

// RequiredFrom is Required against a snapshot already in hand. snap must be
// the side of the book hop.Side walks.
func RequiredFrom(snap models.Snapshot, u *symbols.Universe, hop models.Hop, want decimal.Decimal) (decimal.Decimal, error) {
	// On bids, Buy mode accumulates Base proceeds and yields Quote quantity;
	// on asks, Sell mode accumulates Quote quantity and yields Base cost.
	raw, err := processor.Convert(snap, hop.Side.Opposite(), want, decimal.Zero)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s %s for %s %s: %w", hop.Pair, hop.Side, want, hop.To(), err)
	}
	return quantize.Up(raw.Amount, u.Increment(hop.Pair, hop.Side)), nil
}

// Value converts qty of asset into the reference asset along the planned
// route, one fresh snapshot per hop.
func (q *Quoter) Value(ctx context.Context, asset models.Asset, qty decimal.Decimal) (models.ConversionResult, models.RoutePath, error) {
	if q.planner == nil {
		return models.ConversionResult{}, models.RoutePath{}, fmt.Errorf("%w: no route planner", models.ErrNoRouteFound)
	}
	if !qty.IsPositive() {
		return models.ConversionResult{}, models.RoutePath{}, fmt.Errorf("%w: %s", models.ErrInvalidQuantity, qty)
	}
	path, err := q.planner.PathToReference(asset)
	if err != nil {
		return models.ConversionResult{}, models.RoutePath{}, err
	}

	res := models.ConversionResult{Amount: qty, Asset: path.Source, Price: decimal.NewFromInt(1)}
	for _, hop := range path.Hops {
		// Sell amounts are Quote disposed, Buy amounts are Base spent: in
		// both cases the amount is what the previous hop delivered.
		res, err = q.Quote(ctx, models.ConversionRequest{Pair: hop.Pair, Side: hop.Side, Amount: res.Amount})
		if err != nil {
			return models.ConversionResult{}, path, err
		}
		if !res.Amount.IsPositive() {
			return res, path, nil
		}
	}
	return res, path, nil
}

func validate(req models.ConversionRequest) error {
	if !req.Side.Valid() {
		return fmt.Errorf("%w: %v", models.ErrInvalidSide, req.Side)
	}
	if req.Pair.Quote == "" || req.Pair.Base == "" {
		return fmt.Errorf("%w: empty pair", models.ErrInvalidPairing)
	}
	if !req.Amount.IsPositive() {
		return fmt.Errorf("%w: %s", models.ErrInvalidQuantity, req.Amount)
	}
	return nil
}
