// Package settle submits market orders and settles them from balances.
package settle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"gainstaker/internal/metrics"
	"gainstaker/internal/quantize"
	"gainstaker/internal/symbols"
	"gainstaker/logger"
	"gainstaker/models"
)

const component = "settler"

// BalanceReader reads the free balance of one asset.
type BalanceReader interface {
	Balance(ctx context.Context, asset models.Asset) (models.Balance, error)
}

// OrderPlacer submits a signed MARKET order exactly once.
type OrderPlacer interface {
	PlaceMarketOrder(ctx context.Context, req models.OrderRequest) (models.OrderAck, error)
}

// Recorder receives every settled trade.
type Recorder interface {
	Record(res models.TradeResult) error
}

// Settler executes conversions one at a time. The acquired amount of a
// trade is the difference of the acquired asset's free balance before and
// after the order, never the order acknowledgment.
type Settler struct {
	balances  BalanceReader
	orders    OrderPlacer
	universe  *symbols.Universe
	recorder  Recorder
	reconcile time.Duration
	log       *logger.Log
	now       func() time.Time

	mu sync.Mutex
}

// Option customises a Settler.
type Option func(*Settler)

// WithRecorder appends every settled trade to r.
func WithRecorder(r Recorder) Option {
	return func(s *Settler) { s.recorder = r }
}

// WithReconcileTimeout bounds the balance read that follows a submission.
func WithReconcileTimeout(d time.Duration) Option {
	return func(s *Settler) {
		if d > 0 {
			s.reconcile = d
		}
	}
}

// NewSettler returns a Settler trading through orders and settling
// through balances.
func NewSettler(balances BalanceReader, orders OrderPlacer, universe *symbols.Universe, opts ...Option) *Settler {
	s := &Settler{
		balances:  balances,
		orders:    orders,
		universe:  universe,
		reconcile: 15 * time.Second,
		log:       logger.GetLogger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExecuteConversion trades quantity of pair's Quote asset with side and
// returns what the account acquired: Quote for a Buy, Base proceeds for a
// Sell.
//
// A rejected order or one that was never sent aborts without a second
// balance read. Any other submission failure is never retried: balances are reconciled and the
// trade is reported as settled only if the acquired balance moved.
func (s *Settler) ExecuteConversion(ctx context.Context, pair models.Pair, side models.Side, quantity decimal.Decimal) (models.TradeResult, error) {
	if !side.Valid() {
		return models.TradeResult{}, fmt.Errorf("%w: %v", models.ErrInvalidSide, side)
	}
	if !s.universe.Listed(pair.Symbol()) {
		return models.TradeResult{}, fmt.Errorf("%w: %s is not listed", models.ErrInvalidPairing, pair)
	}
	inc := s.universe.Increment(pair, side)
	qty := quantize.Down(quantity, inc)
	if !qty.IsPositive() {
		return models.TradeResult{}, fmt.Errorf("%w: %s quantizes to %s with increment %s",
			models.ErrInvalidQuantity, quantity, qty, inc)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acquired := side.Acquires(pair)
	entry := s.log.WithComponent(component).WithFields(logger.Fields{
		"pair":     pair.Symbol(),
		"side":     side.String(),
		"quantity": qty.String(),
		"asset":    acquired.String(),
	})
	start := s.now()

	before, err := s.balances.Balance(ctx, acquired)
	if err != nil {
		return models.TradeResult{}, fmt.Errorf("read %s balance before trade: %w", acquired, err)
	}

	if err := ctx.Err(); err != nil {
		entry.WithError(err).Info("order not sent")
		return models.TradeResult{}, fmt.Errorf("%w: %s: %w", models.ErrOrderNotSent, pair.Symbol(), err)
	}

	req := models.OrderRequest{Symbol: pair.Symbol(), Side: side, Quantity: qty}
	ack, submitErr := s.orders.PlaceMarketOrder(ctx, req)
	if submitErr != nil {
		if errors.Is(submitErr, models.ErrExchangeRejected) {
			var code int64
			var rej *models.RejectedError
			if errors.As(submitErr, &rej) {
				code = rej.Code
			}
			metrics.ReportTradeRejected(s.log, pair, side, code)
			entry.WithError(submitErr).Warn("order rejected")
			return models.TradeResult{}, submitErr
		}
		if errors.Is(submitErr, models.ErrOrderNotSent) {
			entry.WithError(submitErr).Info("order not sent")
			return models.TradeResult{}, submitErr
		}
		entry.WithError(submitErr).Warn("order submission failed, reconciling balances")
	}

	// The order may have filled even if the caller gave up; the after read
	// runs regardless of ctx cancellation.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.reconcile)
	defer cancel()
	after, err := s.balances.Balance(rctx, acquired)
	if err != nil {
		if submitErr != nil {
			metrics.ReportTradeUnreconciled(s.log, pair, side)
			return models.TradeResult{}, fmt.Errorf("%w: submit: %v; reconcile: %v", models.ErrTransport, submitErr, err)
		}
		return models.TradeResult{}, fmt.Errorf("read %s balance after order %d: %w", acquired, ack.OrderID, err)
	}

	delta := quantize.Down(after.Free.Sub(before.Free), s.universe.Increment(pair, side.Opposite()))
	if submitErr != nil && !delta.IsPositive() {
		metrics.ReportTradeUnreconciled(s.log, pair, side)
		entry.WithFields(logger.Fields{
			"before": before.Free.String(),
			"after":  after.Free.String(),
		}).Error("order outcome unknown, balance did not move")
		return models.TradeResult{}, fmt.Errorf("%w: %v", models.ErrTransport, submitErr)
	}

	res := models.TradeResult{
		ID:            uuid.NewString(),
		Pair:          pair,
		Side:          side,
		Quantity:      qty,
		Acquired:      delta,
		AcquiredAsset: acquired,
		OrderID:       ack.OrderID,
		Raw:           ack.Raw,
		ExecutedAt:    s.now().UTC(),
	}
	took := s.now().Sub(start)
	metrics.ReportTradeExecuted(s.log, res, took)
	entry.WithFields(logger.Fields{
		"trade_id": res.ID,
		"order_id": res.OrderID,
		"acquired": res.Acquired.String(),
		"status":   ack.Status,
	}).Info("trade settled")
	if submitErr != nil {
		entry.WithFields(logger.Fields{"trade_id": res.ID}).Warn("trade settled from balances after submission failure")
	}

	if s.recorder != nil {
		if err := s.recorder.Record(res); err != nil {
			entry.WithError(err).Error("failed to journal trade")
		}
	}
	return res, nil
}
