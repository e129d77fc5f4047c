package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DivisionScale is the number of fractional digits kept when dividing
// amounts. Quantization afterwards trims to the lot size.
const DivisionScale int32 = 18

// Level is a single resting price tier.
type Level struct {
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
}

// BookSide selects bids or asks.
type BookSide string

const (
	Bids BookSide = "bids"
	Asks BookSide = "asks"
)

// BookFor returns the side of the book a market order with side s consumes.
func BookFor(s Side) BookSide {
	if s == Buy {
		return Asks
	}
	return Bids
}

// Snapshot is one side of one pair's depth, best price first. It is a point
// in time view and is fetched fresh for every conversion.
type Snapshot struct {
	Symbol    string    `json:"symbol"`
	Side      BookSide  `json:"side"`
	Levels    []Level   `json:"levels"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Depth holds both sides of a depth response.
type Depth struct {
	Symbol       string
	LastUpdateID int64
	Bids         []Level
	Asks         []Level
	FetchedAt    time.Time
}

// Side extracts one side of the depth as a Snapshot.
func (d *Depth) Side(side BookSide) Snapshot {
	levels := d.Asks
	if side == Bids {
		levels = d.Bids
	}
	return Snapshot{Symbol: d.Symbol, Side: side, Levels: levels, FetchedAt: d.FetchedAt}
}

// ConversionRequest asks how much a conversion of Amount yields. Buy
// amounts are Base units to spend, Sell amounts are Quote units to dispose.
type ConversionRequest struct {
	Pair   Pair
	Side   Side
	Amount decimal.Decimal
}

// ConversionResult is the estimated outcome of a conversion. Price is the
// price of the level the target was reached on.
type ConversionResult struct {
	Amount decimal.Decimal `json:"amount"`
	Asset  Asset           `json:"asset"`
	Price  decimal.Decimal `json:"price"`
}

// StatusTrading is the listing status of a pair that accepts orders.
const StatusTrading = "TRADING"

// PairInfo is the exchange metadata the core needs for one listing.
type PairInfo struct {
	Symbol  string
	Pair    Pair
	Status  string
	LotSize decimal.Decimal
}

// Tradable reports whether the listing accepts orders. An empty status is
// metadata that carries none and counts as tradable.
func (p PairInfo) Tradable() bool {
	return p.Status == "" || strings.EqualFold(p.Status, StatusTrading)
}
