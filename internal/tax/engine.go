// Package tax computes the liability on a realized gain and liquidates it
// into the reference asset.
package tax

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"gainstaker/config"
	"gainstaker/internal/quantize"
	"gainstaker/internal/quote"
	"gainstaker/internal/symbols"
	"gainstaker/logger"
	"gainstaker/models"
)

const component = "tax"

// Pricer fetches snapshots and forward quotes.
type Pricer interface {
	Snapshot(ctx context.Context, pair models.Pair, side models.Side) (models.Snapshot, error)
	Quote(ctx context.Context, req models.ConversionRequest) (models.ConversionResult, error)
}

// Executor settles one market conversion.
type Executor interface {
	ExecuteConversion(ctx context.Context, pair models.Pair, side models.Side, quantity decimal.Decimal) (models.TradeResult, error)
}

// Engine computes and liquidates tax liabilities.
type Engine struct {
	rates    config.TaxConfig
	planner  quote.PathPlanner
	pricer   Pricer
	executor Executor
	universe *symbols.Universe
	log      *logger.Log
}

// NewEngine wires an Engine. planner, pricer, executor and universe are only
// needed by Liquidate.
func NewEngine(rates config.TaxConfig, planner quote.PathPlanner, pricer Pricer, executor Executor, universe *symbols.Universe) *Engine {
	return &Engine{
		rates:    rates,
		planner:  planner,
		pricer:   pricer,
		executor: executor,
		universe: universe,
		log:      logger.GetLogger(),
	}
}

// ComputeLiability applies the term's rate to proceeds minus basis. A net
// loss gives a negative liability, which is not clamped.
func (e *Engine) ComputeLiability(proceeds, basis decimal.Decimal, term models.Term) (models.TaxLiability, error) {
	var rate decimal.Decimal
	switch term {
	case models.ShortTerm:
		rate = e.rates.ShortRate
	case models.LongTerm:
		rate = e.rates.LongRate
	default:
		return models.TaxLiability{}, fmt.Errorf("%w: %v", models.ErrInvalidTerm, term)
	}
	due := proceeds.Sub(basis).Mul(rate)
	return models.TaxLiability{
		DueUSD: quantize.Up(due, e.rates.RoundIncrement),
		Term:   term,
	}, nil
}

// Liquidate sells enough of held to raise the liability in the reference
// asset. Each hop's required input is estimated backward from the liability,
// then hops execute forward, each consuming what the previous one acquired.
// The returned result is the final hop's.
func (e *Engine) Liquidate(ctx context.Context, liability models.TaxLiability, held models.Asset) (models.TradeResult, error) {
	if !liability.Due() {
		return models.TradeResult{}, fmt.Errorf("%w: liability %s", models.ErrNoTaxDue, liability.DueUSD)
	}
	path, err := e.planner.PathToReference(held)
	if err != nil {
		return models.TradeResult{}, err
	}
	entry := e.log.WithComponent(component).WithFields(logger.Fields{
		"asset": held.String(),
		"due":   liability.DueUSD.String(),
		"term":  liability.Term.String(),
		"path":  path.String(),
	})
	if len(path.Hops) == 0 {
		entry.Info("liability already held in reference asset")
		return models.TradeResult{
			Quantity:      liability.DueUSD,
			Acquired:      liability.DueUSD,
			AcquiredAsset: path.Reference,
		}, nil
	}

	inputs, err := e.plan(ctx, path, liability.DueUSD)
	if err != nil {
		return models.TradeResult{}, err
	}
	entry.WithFields(logger.Fields{"required": inputs[0].String()}).Info("liquidation planned")

	var res models.TradeResult
	for i, hop := range path.Hops {
		qty, err := e.hopQuantity(ctx, i, hop, inputs, path, res, liability.DueUSD)
		if err != nil {
			return res, err
		}
		// On failure res still holds the last settled hop.
		next, err := e.executor.ExecuteConversion(ctx, hop.Pair, hop.Side, qty)
		if err != nil {
			return res, fmt.Errorf("hop %d %s %s: %w", i+1, hop.Pair, hop.Side, err)
		}
		res = next
	}
	entry.WithFields(logger.Fields{
		"acquired": res.Acquired.String(),
		"trade_id": res.ID,
	}).Info("liability liquidated")
	return res, nil
}

// plan returns, per hop, the amount of hop.From() that must go in so the
// last hop acquires due. Snapshots are fetched concurrently.
func (e *Engine) plan(ctx context.Context, path models.RoutePath, due decimal.Decimal) ([]decimal.Decimal, error) {
	snaps := make([]models.Snapshot, len(path.Hops))
	g, gctx := errgroup.WithContext(ctx)
	for i, hop := range path.Hops {
		i, hop := i, hop
		g.Go(func() error {
			snap, err := e.pricer.Snapshot(gctx, hop.Pair, hop.Side)
			if err != nil {
				return err
			}
			snaps[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	inputs := make([]decimal.Decimal, len(path.Hops))
	want := due
	for i := len(path.Hops) - 1; i >= 0; i-- {
		need, err := quote.RequiredFrom(snaps[i], e.universe, path.Hops[i], want)
		if err != nil {
			return nil, err
		}
		inputs[i] = need
		want = need
	}
	return inputs, nil
}

// hopQuantity is the order quantity, in the pair's Quote units, for hop i.
func (e *Engine) hopQuantity(ctx context.Context, i int, hop models.Hop, inputs []decimal.Decimal, path models.RoutePath, prev models.TradeResult, due decimal.Decimal) (decimal.Decimal, error) {
	if i == 0 {
		if hop.Side == models.Sell {
			return inputs[0], nil
		}
		// A Buy is sized by what it must acquire.
		if len(path.Hops) > 1 {
			return inputs[1], nil
		}
		return due, nil
	}
	if hop.Side == models.Sell {
		return prev.Acquired, nil
	}
	res, err := e.pricer.Quote(ctx, models.ConversionRequest{Pair: hop.Pair, Side: hop.Side, Amount: prev.Acquired})
	if err != nil {
		return decimal.Zero, fmt.Errorf("size hop %d %s: %w", i+1, hop.Pair, err)
	}
	return res.Amount, nil
}
