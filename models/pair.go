package models

import (
	"fmt"
	"strings"
)

// Asset is an uppercase exchange ticker such as "BTC" or "USDC".
type Asset string

// NormalizeAsset trims and upper-cases a user supplied ticker.
func NormalizeAsset(s string) Asset {
	return Asset(strings.ToUpper(strings.TrimSpace(s)))
}

func (a Asset) String() string { return string(a) }

// Pair is a listed trading pair. Quote is the first symbol of the listing
// and Base the second, so Quote+Base is the exchange symbol. Binance names
// these the other way round (baseAsset/quoteAsset).
type Pair struct {
	Quote Asset `json:"quote"`
	Base  Asset `json:"base"`
}

// Symbol returns the concatenated exchange symbol, e.g. "ETHUSDC".
func (p Pair) Symbol() string {
	return string(p.Quote) + string(p.Base)
}

func (p Pair) String() string { return p.Symbol() }

// Side is relative to the pair's Quote asset: Buy acquires Quote and spends
// Base, Sell disposes of Quote and acquires Base.
type Side int

const (
	Buy Side = iota + 1
	Sell
)

// ParseSide accepts buy/sell in any case.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidSide, s)
	}
}

// Valid reports whether s is Buy or Sell.
func (s Side) Valid() bool { return s == Buy || s == Sell }

// Opposite flips Buy and Sell.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

func (s Side) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSide, int(s))
	}
	return []byte(s.String()), nil
}

func (s *Side) UnmarshalText(b []byte) error {
	v, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Acquires returns the asset a trade on p with side s receives.
func (s Side) Acquires(p Pair) Asset {
	if s == Buy {
		return p.Quote
	}
	return p.Base
}

// Disposes returns the asset a trade on p with side s gives up.
func (s Side) Disposes(p Pair) Asset {
	if s == Buy {
		return p.Base
	}
	return p.Quote
}

// Hop is one leg of a route.
type Hop struct {
	Pair Pair `json:"pair"`
	Side Side `json:"side"`
}

// From is the asset held before the hop.
func (h Hop) From() Asset { return h.Side.Disposes(h.Pair) }

// To is the asset held after the hop.
func (h Hop) To() Asset { return h.Side.Acquires(h.Pair) }

// RoutePath connects Source to Reference in zero, one or two hops.
type RoutePath struct {
	Source    Asset `json:"source"`
	Reference Asset `json:"reference"`
	Bridge    Asset `json:"bridge,omitempty"`
	Hops      []Hop `json:"hops"`
}

// Bridged reports whether the path passes through the bridge asset.
func (r RoutePath) Bridged() bool { return len(r.Hops) == 2 }

func (r RoutePath) String() string {
	if len(r.Hops) == 0 {
		return string(r.Source)
	}
	parts := make([]string, 0, len(r.Hops)+1)
	parts = append(parts, string(r.Source))
	for _, h := range r.Hops {
		parts = append(parts, fmt.Sprintf("%s(%s)->%s", h.Pair.Symbol(), h.Side, h.To()))
	}
	return strings.Join(parts, " ")
}
