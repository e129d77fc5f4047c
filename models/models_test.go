package models

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseSide(t *testing.T) {
	cases := []struct {
		in      string
		want    Side
		wantErr bool
	}{
		{"buy", Buy, false},
		{" SELL ", Sell, false},
		{"Buy", Buy, false},
		{"hold", 0, true},
		{"", 0, true},
	}
	for _, c := range cases {
		got, err := ParseSide(c.in)
		if c.wantErr {
			if !errors.Is(err, ErrInvalidSide) {
				t.Errorf("ParseSide(%q) err = %v, want ErrInvalidSide", c.in, err)
			}
			continue
		}
		if err != nil || got != c.want {
			t.Errorf("ParseSide(%q) = %v, %v want %v", c.in, got, err, c.want)
		}
	}
}

func TestSideAcquires(t *testing.T) {
	p := Pair{Quote: "ETH", Base: "USDC"}
	if Buy.Acquires(p) != "ETH" || Buy.Disposes(p) != "USDC" {
		t.Fatalf("buy should acquire quote and dispose base")
	}
	if Sell.Acquires(p) != "USDC" || Sell.Disposes(p) != "ETH" {
		t.Fatalf("sell should acquire base and dispose quote")
	}
	h := Hop{Pair: p, Side: Sell}
	if h.From() != "ETH" || h.To() != "USDC" {
		t.Fatalf("unexpected hop direction %s -> %s", h.From(), h.To())
	}
	if Buy.Opposite() != Sell || Sell.Opposite() != Buy {
		t.Fatalf("opposite sides mismatch")
	}
}

func TestBookFor(t *testing.T) {
	if BookFor(Buy) != Asks || BookFor(Sell) != Bids {
		t.Fatalf("buy must walk asks and sell must walk bids")
	}
}

func TestDepthSide(t *testing.T) {
	d := &Depth{
		Symbol: "ETHUSDC",
		Bids:   []Level{{Price: decimal.NewFromInt(99), Quantity: decimal.NewFromInt(1)}},
		Asks:   []Level{{Price: decimal.NewFromInt(101), Quantity: decimal.NewFromInt(2)}},
	}
	asks := d.Side(Asks)
	if asks.Symbol != "ETHUSDC" || len(asks.Levels) != 1 || !asks.Levels[0].Price.Equal(decimal.NewFromInt(101)) {
		t.Fatalf("unexpected asks snapshot: %+v", asks)
	}
	if bids := d.Side(Bids); !bids.Levels[0].Price.Equal(decimal.NewFromInt(99)) {
		t.Fatalf("unexpected bids snapshot: %+v", bids)
	}
}

func TestRejectedErrorUnwraps(t *testing.T) {
	var err error = &RejectedError{Code: -2010, Message: "Account has insufficient balance"}
	if !errors.Is(err, ErrExchangeRejected) {
		t.Fatalf("rejected error should unwrap to ErrExchangeRejected")
	}
	var rej *RejectedError
	if !errors.As(err, &rej) || rej.Code != -2010 {
		t.Fatalf("errors.As failed: %v", err)
	}
}

func TestRoutePathString(t *testing.T) {
	r := RoutePath{
		Source:    "ARDR",
		Reference: "USDC",
		Bridge:    "BTC",
		Hops: []Hop{
			{Pair: Pair{Quote: "ARDR", Base: "BTC"}, Side: Sell},
			{Pair: Pair{Quote: "BTC", Base: "USDC"}, Side: Sell},
		},
	}
	want := "ARDR ARDRBTC(SELL)->BTC BTCUSDC(SELL)->USDC"
	if got := r.String(); got != want {
		t.Fatalf("String() = %q want %q", got, want)
	}
	if !r.Bridged() {
		t.Fatalf("two hop path should be bridged")
	}
}

func TestParseTerm(t *testing.T) {
	if term, err := ParseTerm("LONG"); err != nil || term != LongTerm {
		t.Fatalf("ParseTerm(LONG) = %v, %v", term, err)
	}
	if _, err := ParseTerm("medium"); !errors.Is(err, ErrInvalidTerm) {
		t.Fatalf("expected ErrInvalidTerm, got %v", err)
	}
}

func TestSideAndTermJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Side Side `json:"side"`
		Term Term `json:"term"`
	}{Sell, LongTerm})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"side":"SELL","term":"long"}` {
		t.Fatalf("unexpected json %s", b)
	}
	var s Side
	if err := json.Unmarshal([]byte(`"buy"`), &s); err != nil || s != Buy {
		t.Fatalf("unmarshal side = %v, %v", s, err)
	}
	if _, err := json.Marshal(Side(0)); err == nil {
		t.Fatalf("invalid side should not marshal")
	}
}
