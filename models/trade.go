package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Balance is a point in time holding of one asset.
type Balance struct {
	Asset  Asset
	Free   decimal.Decimal
	Locked decimal.Decimal
}

// OrderRequest is a signed MARKET order submission.
type OrderRequest struct {
	Symbol   string
	Side     Side
	Quantity decimal.Decimal
}

// OrderAck is the exchange acknowledgment. Its fill fields are informational
// only; acquired amounts come from balance differencing.
type OrderAck struct {
	OrderID          int64
	Status           string
	ExecutedQuantity string
	Raw              json.RawMessage
}

// TradeResult is the outcome of a settled conversion.
type TradeResult struct {
	ID            string          `json:"id"`
	Pair          Pair            `json:"pair"`
	Side          Side            `json:"side,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
	Acquired      decimal.Decimal `json:"acquired"`
	AcquiredAsset Asset           `json:"acquired_asset"`
	OrderID       int64           `json:"order_id"`
	Raw           json.RawMessage `json:"raw,omitempty"`
	ExecutedAt    time.Time       `json:"executed_at"`
}

// Term is the holding period of a realized gain.
type Term int

const (
	ShortTerm Term = iota + 1
	LongTerm
)

// ParseTerm accepts short/long in any case.
func ParseTerm(s string) (Term, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "short":
		return ShortTerm, nil
	case "long":
		return LongTerm, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidTerm, s)
	}
}

func (t Term) String() string {
	switch t {
	case ShortTerm:
		return "short"
	case LongTerm:
		return "long"
	default:
		return "unknown"
	}
}

func (t Term) MarshalText() ([]byte, error) {
	if t != ShortTerm && t != LongTerm {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTerm, int(t))
	}
	return []byte(t.String()), nil
}

// TaxLiability is the amount owed on a realized gain, in the reference
// asset. A negative amount is a net loss and means nothing is due.
type TaxLiability struct {
	DueUSD decimal.Decimal `json:"due_usd"`
	Term   Term            `json:"term"`
}

// Due reports whether any tax is owed.
func (l TaxLiability) Due() bool { return l.DueUSD.IsPositive() }
