package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrInvalidSymbol         = errors.New("invalid symbol")
	ErrInvalidPairing        = errors.New("invalid pairing")
	ErrInvalidSide           = errors.New("invalid side")
	ErrInvalidQuantity       = errors.New("invalid quantity")
	ErrInvalidTerm           = errors.New("invalid term")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrNoRouteFound          = errors.New("no route found")

	// ErrTransport marks HTTP or network failures. Reads may be retried;
	// an order submission that failed this way must not be.
	ErrTransport = errors.New("transport error")

	// ErrOrderNotSent marks an order that never left the process. Nothing
	// can have filled, so no reconciliation is needed.
	ErrOrderNotSent = errors.New("order not sent")

	// ErrExchangeRejected marks a non-2xx answer to an order submission.
	ErrExchangeRejected = errors.New("exchange rejected")

	// ErrNoTaxDue is returned when liquidating a zero or negative liability.
	ErrNoTaxDue = errors.New("no tax due")
)

// RejectedError carries the exchange's answer to a rejected order.
type RejectedError struct {
	Code    int64
	Message string
	Raw     json.RawMessage
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: code=%d msg=%s", ErrExchangeRejected, e.Code, e.Message)
}

func (e *RejectedError) Unwrap() error { return ErrExchangeRejected }
