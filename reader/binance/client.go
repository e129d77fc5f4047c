// Package binance is the signed Binance spot client behind every exchange
// read and order submission.
package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	spot "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/jpillora/backoff"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"gainstaker/config"
	binancemetrics "gainstaker/internal/metrics/binance"
	ratemetrics "gainstaker/internal/metrics/rate"
	"gainstaker/logger"
	"gainstaker/models"
)

const component = "binance_client"

// Binance error codes that mean the request never reached the matching
// engine or the outcome is unknown. Everything else is a rejection.
const (
	codeUnknown        = -1000
	codeDisconnected   = -1001
	codeTooMany        = -1003
	codeTimeout        = -1007
	codeServerBusy     = -1008
	codeUnknownOutcome = -1006
)

// Client wraps the go-binance spot client with throttling, read retries and
// error classification.
type Client struct {
	api        *spot.Client
	limiter    *rate.Limiter
	retry      config.RetryConfig
	depthLimit int
	log        *logger.Log
}

// NewClient builds a client from the exchange, reader and credential
// sections of cfg. Without credentials only public endpoints work.
func NewClient(cfg *config.Config) *Client {
	log := logger.GetLogger()

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.Exchange.ConnectionPool.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.Exchange.ConnectionPool.MaxIdleConns,
		MaxConnsPerHost:     cfg.Exchange.ConnectionPool.MaxConnsPerHost,
		IdleConnTimeout:     cfg.Exchange.ConnectionPool.IdleConnTimeout,
	}

	var weight http.RoundTripper = transport
	if cfg.Metrics.UsedWeight {
		weight = &binancemetrics.Transport{Base: transport, Log: log}
	}

	api := spot.NewClient(cfg.Credentials.APIKey, cfg.Credentials.APISecret)
	api.BaseURL = strings.TrimSuffix(cfg.Exchange.BaseURL, "/")
	api.HTTPClient = &http.Client{Transport: weight, Timeout: cfg.Reader.Timeout}

	perMinute := cfg.Reader.RateLimit.WeightPerMinute
	burst := cfg.Reader.RateLimit.BurstSize
	if burst < ratemetrics.DepthWeight(cfg.Exchange.DepthLimit) {
		burst = ratemetrics.DepthWeight(cfg.Exchange.DepthLimit)
	}

	c := &Client{
		api:        api,
		limiter:    rate.NewLimiter(rate.Limit(float64(perMinute)/60), burst),
		retry:      cfg.Reader.Retry,
		depthLimit: cfg.Exchange.DepthLimit,
		log:        log,
	}

	log.WithComponent(component).WithFields(logger.Fields{
		"base_url":           api.BaseURL,
		"max_idle_conns":     cfg.Exchange.ConnectionPool.MaxIdleConns,
		"max_conns_per_host": cfg.Exchange.ConnectionPool.MaxConnsPerHost,
		"timeout":            cfg.Reader.Timeout,
		"weight_per_minute":  perMinute,
		"signed":             cfg.Credentials.Complete(),
	}).Debug("binance client initialized")

	return c
}

// ExchangeInfo returns every listing with its split and LOT_SIZE minQty.
func (c *Client) ExchangeInfo(ctx context.Context) ([]models.PairInfo, error) {
	var info *spot.ExchangeInfo
	err := c.read(ctx, "exchangeInfo", "", ratemetrics.ExchangeInfoWeight, func(ctx context.Context) error {
		var err error
		info, err = c.api.NewExchangeInfoService().Do(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	if limit := ratemetrics.WeightLimitPerMinute(info.RateLimits); limit > 0 {
		c.limiter.SetLimit(rate.Limit(float64(limit) / 60))
	}

	out := make([]models.PairInfo, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		pi := models.PairInfo{
			Symbol: s.Symbol,
			Pair:   models.Pair{Quote: models.Asset(s.BaseAsset), Base: models.Asset(s.QuoteAsset)},
			Status: s.Status,
		}
		if lot := s.LotSizeFilter(); lot != nil {
			if d, err := decimal.NewFromString(lot.MinQuantity); err == nil {
				pi.LotSize = d
			}
		}
		out = append(out, pi)
	}
	return out, nil
}

// Depth fetches a depth snapshot. A non-positive limit uses the configured
// depth.
func (c *Client) Depth(ctx context.Context, symbol string, limit int) (*models.Depth, error) {
	if limit <= 0 {
		limit = c.depthLimit
	}
	var resp *spot.DepthResponse
	err := c.read(ctx, "depth", symbol, ratemetrics.DepthWeight(limit), func(ctx context.Context) error {
		var err error
		resp, err = c.api.NewDepthService().Symbol(symbol).Limit(limit).Do(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	depth := &models.Depth{
		Symbol:       symbol,
		LastUpdateID: resp.LastUpdateID,
		FetchedAt:    time.Now().UTC(),
	}
	for _, b := range resp.Bids {
		lvl, err := parseLevel(b.Price, b.Quantity)
		if err != nil {
			return nil, fmt.Errorf("%w: depth %s: %v", models.ErrTransport, symbol, err)
		}
		depth.Bids = append(depth.Bids, lvl)
	}
	for _, a := range resp.Asks {
		lvl, err := parseLevel(a.Price, a.Quantity)
		if err != nil {
			return nil, fmt.Errorf("%w: depth %s: %v", models.ErrTransport, symbol, err)
		}
		depth.Asks = append(depth.Asks, lvl)
	}
	return depth, nil
}

func parseLevel(price, qty string) (models.Level, error) {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return models.Level{}, fmt.Errorf("price %q: %w", price, err)
	}
	q, err := decimal.NewFromString(qty)
	if err != nil {
		return models.Level{}, fmt.Errorf("quantity %q: %w", qty, err)
	}
	return models.Level{Price: p, Quantity: q}, nil
}

// Balances returns all account balances.
func (c *Client) Balances(ctx context.Context) ([]models.Balance, error) {
	var acct *spot.Account
	err := c.read(ctx, "account", "", ratemetrics.AccountWeight, func(ctx context.Context) error {
		var err error
		acct, err = c.api.NewGetAccountService().Do(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.Balance, 0, len(acct.Balances))
	for _, b := range acct.Balances {
		free, err := decimal.NewFromString(b.Free)
		if err != nil {
			return nil, fmt.Errorf("%w: balance %s free %q", models.ErrTransport, b.Asset, b.Free)
		}
		locked, err := decimal.NewFromString(b.Locked)
		if err != nil {
			return nil, fmt.Errorf("%w: balance %s locked %q", models.ErrTransport, b.Asset, b.Locked)
		}
		out = append(out, models.Balance{Asset: models.Asset(b.Asset), Free: free, Locked: locked})
	}
	return out, nil
}

// Balance returns the balance of one asset, zero when the account does not
// list it.
func (c *Client) Balance(ctx context.Context, asset models.Asset) (models.Balance, error) {
	all, err := c.Balances(ctx)
	if err != nil {
		return models.Balance{}, err
	}
	for _, b := range all {
		if b.Asset == asset {
			return b, nil
		}
	}
	return models.Balance{Asset: asset, Free: decimal.Zero, Locked: decimal.Zero}, nil
}

// PlaceMarketOrder submits a MARKET order exactly once. A rejection comes
// back as *models.RejectedError and a rate limit wait that gave up wraps
// models.ErrOrderNotSent. Any failure that leaves the outcome unknown wraps
// models.ErrTransport.
func (c *Client) PlaceMarketOrder(ctx context.Context, req models.OrderRequest) (models.OrderAck, error) {
	side := spot.SideTypeSell
	if req.Side == models.Buy {
		side = spot.SideTypeBuy
	}

	log := c.log.WithComponent(component).WithFields(logger.Fields{
		"symbol":   req.Symbol,
		"side":     req.Side.String(),
		"quantity": req.Quantity.String(),
	})

	if err := c.limiter.WaitN(ctx, ratemetrics.OrderWeight); err != nil {
		return models.OrderAck{}, fmt.Errorf("%w: %s: %w", models.ErrOrderNotSent, req.Symbol, err)
	}

	start := time.Now()
	resp, err := c.api.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(side).
		Type(spot.OrderTypeMarket).
		Quantity(req.Quantity.String()).
		NewOrderRespType(spot.NewOrderRespTypeRESULT).
		Do(ctx)
	logger.LogPerformanceEntry(log, component, "order", time.Since(start), nil)
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) {
			ratemetrics.ReportLimit(c.log, "order", req.Symbol, apiErr.Code, 0, apiErr.Message)
			if !transient(apiErr) {
				raw, _ := json.Marshal(apiErr)
				log.WithFields(logger.Fields{"code": apiErr.Code}).Warn(apiErr.Message)
				return models.OrderAck{}, &models.RejectedError{Code: apiErr.Code, Message: apiErr.Message, Raw: raw}
			}
		}
		log.WithError(err).Error("order submission failed")
		return models.OrderAck{}, fmt.Errorf("%w: order %s: %v", models.ErrTransport, req.Symbol, err)
	}

	raw, err := json.Marshal(resp)
	if err != nil {
		raw = nil
	}
	log.WithFields(logger.Fields{"order_id": resp.OrderID, "status": resp.Status}).Info("order accepted")
	return models.OrderAck{
		OrderID:          resp.OrderID,
		Status:           string(resp.Status),
		ExecutedQuantity: resp.ExecutedQuantity,
		Raw:              raw,
	}, nil
}

// read throttles and retries an idempotent call. Transient failures are
// retried with exponential backoff; rejections are returned at once.
func (c *Client) read(ctx context.Context, endpoint, symbol string, weight int, call func(context.Context) error) error {
	log := c.log.WithComponent(component).WithFields(logger.Fields{"endpoint": endpoint, "symbol": symbol})

	b := &backoff.Backoff{
		Min:    c.retry.BaseDelay,
		Max:    c.retry.MaxDelay,
		Factor: c.retry.BackoffMultiplier,
		Jitter: true,
	}
	attempts := c.retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	if weight > c.limiter.Burst() {
		weight = c.limiter.Burst()
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := c.limiter.WaitN(ctx, weight); err != nil {
			return fmt.Errorf("%w: %s: %v", models.ErrTransport, endpoint, err)
		}

		start := time.Now()
		err := call(ctx)
		if err == nil {
			logger.LogPerformanceEntry(log, component, endpoint, time.Since(start), logger.Fields{"attempt": attempt})
			return nil
		}

		var apiErr *common.APIError
		if errors.As(err, &apiErr) {
			ratemetrics.ReportLimit(c.log, endpoint, symbol, apiErr.Code, 0, apiErr.Message)
			if !transient(apiErr) {
				raw, _ := json.Marshal(apiErr)
				return &models.RejectedError{Code: apiErr.Code, Message: apiErr.Message, Raw: raw}
			}
		}
		lastErr = err
		if ctx.Err() != nil || attempt == attempts {
			break
		}

		wait := b.Duration()
		log.WithFields(logger.Fields{"attempt": attempt, "retry_in": wait.String()}).WithError(err).Warn("read failed, retrying")
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %v", models.ErrTransport, endpoint, ctx.Err())
		case <-time.After(wait):
		}
	}
	return fmt.Errorf("%w: %s: %v", models.ErrTransport, endpoint, lastErr)
}

// transient reports whether an API error leaves the request worth retrying
// (for reads) or its outcome unknown (for orders).
func transient(err *common.APIError) bool {
	switch err.Code {
	case 0, codeUnknown, codeDisconnected, codeTooMany, codeUnknownOutcome, codeTimeout, codeServerBusy:
		return true
	default:
		return false
	}
}
