package settle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gainstaker/internal/symbols"
	"gainstaker/models"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeBalances struct {
	mu      sync.Mutex
	free    []decimal.Decimal
	calls   int
	ctxErrs []error
	err     error
	errAt   int
	onRead  func(call int)
}

func (f *fakeBalances) Balance(ctx context.Context, asset models.Asset) (models.Balance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	if f.onRead != nil {
		f.onRead(f.calls)
	}
	if f.err != nil && f.calls == f.errAt {
		return models.Balance{}, f.err
	}
	idx := f.calls - 1
	if idx >= len(f.free) {
		idx = len(f.free) - 1
	}
	return models.Balance{Asset: asset, Free: f.free[idx]}, nil
}

type fakeOrders struct {
	mu       sync.Mutex
	requests []models.OrderRequest
	ack      models.OrderAck
	err      error
	onSubmit func()
}

func (f *fakeOrders) PlaceMarketOrder(_ context.Context, req models.OrderRequest) (models.OrderAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.onSubmit != nil {
		f.onSubmit()
	}
	return f.ack, f.err
}

type memRecorder struct {
	trades []models.TradeResult
}

func (m *memRecorder) Record(res models.TradeResult) error {
	m.trades = append(m.trades, res)
	return nil
}

func universe() *symbols.Universe {
	return symbols.NewUniverse([]models.PairInfo{
		{Symbol: "ETHUSDC", Pair: models.Pair{Quote: "ETH", Base: "USDC"}, LotSize: d("0.0001")},
		{Symbol: "USDCBTC", Pair: models.Pair{Quote: "USDC", Base: "BTC"}, LotSize: d("0.01")},
	}, symbols.WithExcluded("USDCBTC"), symbols.WithPreferredBases("BTC", "USDC"))
}

var ethusdc = models.Pair{Quote: "ETH", Base: "USDC"}

func TestExecuteConversionSettlesFromBalances(t *testing.T) {
	balances := &fakeBalances{free: []decimal.Decimal{d("10"), d("12.5")}}
	orders := &fakeOrders{ack: models.OrderAck{OrderID: 42, Status: "FILLED", ExecutedQuantity: "2.4999", Raw: []byte(`{"orderId":42}`)}}
	rec := &memRecorder{}
	s := NewSettler(balances, orders, universe(), WithRecorder(rec))

	res, err := s.ExecuteConversion(context.Background(), ethusdc, models.Buy, d("2.505"))
	require.NoError(t, err)

	assert.True(t, res.Acquired.Equal(d("2.5")), res.Acquired.String())
	assert.Equal(t, models.Asset("ETH"), res.AcquiredAsset)
	assert.Equal(t, int64(42), res.OrderID)
	assert.JSONEq(t, `{"orderId":42}`, string(res.Raw))
	assert.NotEmpty(t, res.ID)

	require.Len(t, orders.requests, 1)
	// Buy quantity uses the coarser of the ETHUSDC and USDC steps.
	assert.True(t, orders.requests[0].Quantity.Equal(d("2.5")), orders.requests[0].Quantity.String())
	assert.Equal(t, "ETHUSDC", orders.requests[0].Symbol)
	assert.Equal(t, 2, balances.calls)
	require.Len(t, rec.trades, 1)
	assert.Equal(t, res.ID, rec.trades[0].ID)
}

func TestExecuteConversionCancelledBeforeSubmit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	balances := &fakeBalances{
		free:   []decimal.Decimal{d("10")},
		onRead: func(int) { cancel() },
	}
	orders := &fakeOrders{}
	rec := &memRecorder{}
	s := NewSettler(balances, orders, universe(), WithRecorder(rec))

	_, err := s.ExecuteConversion(ctx, ethusdc, models.Sell, d("1"))
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, err, models.ErrOrderNotSent)
	assert.False(t, errors.Is(err, models.ErrTransport), err.Error())
	assert.Empty(t, orders.requests)
	assert.Equal(t, 1, balances.calls)
	assert.Empty(t, rec.trades)
}

func TestExecuteConversionNotSentSkipsReconcile(t *testing.T) {
	balances := &fakeBalances{free: []decimal.Decimal{d("10"), d("12")}}
	orders := &fakeOrders{err: fmt.Errorf("%w: ETHUSDC: %w", models.ErrOrderNotSent, context.DeadlineExceeded)}
	s := NewSettler(balances, orders, universe())

	_, err := s.ExecuteConversion(context.Background(), ethusdc, models.Sell, d("1"))
	require.ErrorIs(t, err, models.ErrOrderNotSent)
	assert.False(t, errors.Is(err, models.ErrTransport), err.Error())
	require.Len(t, orders.requests, 1)
	assert.Equal(t, 1, balances.calls)
}

func TestExecuteConversionRejectedAborts(t *testing.T) {
	balances := &fakeBalances{free: []decimal.Decimal{d("10")}}
	orders := &fakeOrders{err: &models.RejectedError{Code: -2010, Message: "Account has insufficient balance"}}
	s := NewSettler(balances, orders, universe())

	_, err := s.ExecuteConversion(context.Background(), ethusdc, models.Sell, d("1"))
	require.ErrorIs(t, err, models.ErrExchangeRejected)
	var rej *models.RejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, int64(-2010), rej.Code)
	assert.Equal(t, 1, balances.calls, "no balance read after a rejection")
}

func TestExecuteConversionTransportReconciles(t *testing.T) {
	t.Run("balance moved", func(t *testing.T) {
		balances := &fakeBalances{free: []decimal.Decimal{d("100"), d("298.5")}}
		orders := &fakeOrders{err: models.ErrTransport}
		s := NewSettler(balances, orders, universe())

		res, err := s.ExecuteConversion(context.Background(), ethusdc, models.Sell, d("0.1"))
		require.NoError(t, err)
		assert.True(t, res.Acquired.Equal(d("198.5")), res.Acquired.String())
		assert.Equal(t, models.Asset("USDC"), res.AcquiredAsset)
		assert.Len(t, orders.requests, 1, "submission is never retried")
	})

	t.Run("balance unchanged", func(t *testing.T) {
		balances := &fakeBalances{free: []decimal.Decimal{d("100"), d("100")}}
		orders := &fakeOrders{err: errors.New("connection reset")}
		s := NewSettler(balances, orders, universe())

		_, err := s.ExecuteConversion(context.Background(), ethusdc, models.Sell, d("0.1"))
		require.ErrorIs(t, err, models.ErrTransport)
		assert.Len(t, orders.requests, 1)
		assert.Equal(t, 2, balances.calls)
	})

	t.Run("reconcile read fails", func(t *testing.T) {
		balances := &fakeBalances{free: []decimal.Decimal{d("100")}, err: errors.New("timeout"), errAt: 2}
		orders := &fakeOrders{err: models.ErrTransport}
		s := NewSettler(balances, orders, universe())

		_, err := s.ExecuteConversion(context.Background(), ethusdc, models.Sell, d("0.1"))
		require.ErrorIs(t, err, models.ErrTransport)
	})
}

func TestExecuteConversionInvalidInput(t *testing.T) {
	balances := &fakeBalances{free: []decimal.Decimal{d("0")}}
	orders := &fakeOrders{}
	s := NewSettler(balances, orders, universe())
	ctx := context.Background()

	_, err := s.ExecuteConversion(ctx, ethusdc, models.Sell, d("0.00001"))
	assert.ErrorIs(t, err, models.ErrInvalidQuantity)

	_, err = s.ExecuteConversion(ctx, ethusdc, models.Side(0), d("1"))
	assert.ErrorIs(t, err, models.ErrInvalidSide)

	_, err = s.ExecuteConversion(ctx, models.Pair{Quote: "USDC", Base: "BTC"}, models.Sell, d("1"))
	assert.ErrorIs(t, err, models.ErrInvalidPairing)

	assert.Zero(t, balances.calls)
	assert.Empty(t, orders.requests)
}

func TestExecuteConversionReadsAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	balances := &fakeBalances{free: []decimal.Decimal{d("1"), d("1.75")}}
	orders := &fakeOrders{ack: models.OrderAck{OrderID: 7}, onSubmit: cancel}
	s := NewSettler(balances, orders, universe(), WithReconcileTimeout(time.Second))

	res, err := s.ExecuteConversion(ctx, ethusdc, models.Buy, d("0.75"))
	require.NoError(t, err)
	assert.True(t, res.Acquired.Equal(d("0.75")), res.Acquired.String())
	require.Len(t, balances.ctxErrs, 2)
	assert.NoError(t, balances.ctxErrs[1], "after read must not see the caller's cancellation")
	require.Error(t, ctx.Err())
}

func TestExecuteConversionSerializes(t *testing.T) {
	balances := &fakeBalances{free: []decimal.Decimal{d("1")}}
	orders := &fakeOrders{err: &models.RejectedError{Code: -1013}}
	s := NewSettler(balances, orders, universe())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.ExecuteConversion(context.Background(), ethusdc, models.Sell, d("1"))
		}()
	}
	wg.Wait()
	assert.Len(t, orders.requests, 8)
	assert.Equal(t, 8, balances.calls)
}
