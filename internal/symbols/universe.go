package symbols

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"gainstaker/internal/quantize"
	"gainstaker/models"
)

// MetadataSource provides the exchange listing metadata.
type MetadataSource interface {
	ExchangeInfo(ctx context.Context) ([]models.PairInfo, error)
}

// Universe is a snapshot of the exchange's known assets and listed pairs.
// It is loaded once per command and never refreshed in place.
type Universe struct {
	assets    map[models.Asset]struct{}
	pairs     map[string]models.PairInfo
	byFirst   map[models.Asset][]string
	excluded  map[string]struct{}
	preferred []models.Asset
}

// Option customises a Universe.
type Option func(*Universe)

// WithExcluded treats the given pair strings as unlisted. Their lot sizes
// are still available for increment lookups.
func WithExcluded(symbols ...string) Option {
	return func(u *Universe) {
		for _, s := range symbols {
			s = strings.ToUpper(strings.TrimSpace(s))
			if s != "" {
				u.excluded[s] = struct{}{}
			}
		}
	}
}

// WithPreferredBases orders the second symbols tried when looking up an
// asset's own lot size, e.g. the bridge then the reference asset.
func WithPreferredBases(assets ...models.Asset) Option {
	return func(u *Universe) {
		u.preferred = append(u.preferred, assets...)
	}
}

// NewUniverse indexes the given listings. Listings without a known split
// only contribute their symbol string; their assets must be known from
// other listings for the resolver to split them.
func NewUniverse(infos []models.PairInfo, opts ...Option) *Universe {
	u := &Universe{
		assets:   make(map[models.Asset]struct{}),
		pairs:    make(map[string]models.PairInfo, len(infos)),
		byFirst:  make(map[models.Asset][]string),
		excluded: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(u)
	}
	for _, info := range infos {
		sym := strings.ToUpper(info.Symbol)
		if sym == "" {
			sym = info.Pair.Symbol()
		}
		if sym == "" {
			continue
		}
		info.Symbol = sym
		u.pairs[sym] = info
		if info.Pair.Quote != "" && info.Pair.Base != "" {
			u.assets[info.Pair.Quote] = struct{}{}
			u.assets[info.Pair.Base] = struct{}{}
			u.byFirst[info.Pair.Quote] = append(u.byFirst[info.Pair.Quote], sym)
		}
	}
	for a := range u.byFirst {
		sort.Strings(u.byFirst[a])
	}
	return u
}

// FromSymbols builds a Universe from bare asset and pair strings, the shape
// of the data the generic splitter works with.
func FromSymbols(assets []string, pairs []string, opts ...Option) *Universe {
	u := NewUniverse(nil, opts...)
	for _, a := range assets {
		u.assets[models.NormalizeAsset(a)] = struct{}{}
	}
	for _, p := range pairs {
		p = strings.ToUpper(p)
		u.pairs[p] = models.PairInfo{Symbol: p}
	}
	return u
}

// Load fetches exchange metadata and builds a Universe from it.
func Load(ctx context.Context, src MetadataSource, opts ...Option) (*Universe, error) {
	infos, err := src.ExchangeInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("load exchange info: %w", err)
	}
	return NewUniverse(infos, opts...), nil
}

// HasAsset reports whether a is a known asset.
func (u *Universe) HasAsset(a models.Asset) bool {
	_, ok := u.assets[a]
	return ok
}

// Listed reports whether symbol is a tradable pair string. Excluded pairs
// and listings whose status is not TRADING are not listed; their lot sizes
// still serve increment lookups.
func (u *Universe) Listed(symbol string) bool {
	symbol = strings.ToUpper(symbol)
	if _, excluded := u.excluded[symbol]; excluded {
		return false
	}
	info, ok := u.pairs[symbol]
	return ok && info.Tradable()
}

// Info returns the metadata for a listed symbol.
func (u *Universe) Info(symbol string) (models.PairInfo, bool) {
	if !u.Listed(symbol) {
		return models.PairInfo{}, false
	}
	info, ok := u.pairs[strings.ToUpper(symbol)]
	return info, ok
}

// Assets returns all known assets, sorted.
func (u *Universe) Assets() []models.Asset {
	out := make([]models.Asset, 0, len(u.assets))
	for a := range u.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Symbols returns all listed pair strings, sorted.
func (u *Universe) Symbols() []string {
	out := make([]string, 0, len(u.pairs))
	for s := range u.pairs {
		if u.Listed(s) {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// PairsWith returns the listed pair strings involving a, sorted.
func (u *Universe) PairsWith(a models.Asset) []string {
	var out []string
	for _, s := range u.Symbols() {
		info := u.pairs[s]
		if info.Pair.Quote == a || info.Pair.Base == a {
			out = append(out, s)
		}
	}
	return out
}

// LotSize returns the LOT_SIZE minQty of a pair, zero when unknown.
func (u *Universe) LotSize(p models.Pair) decimal.Decimal {
	return u.pairs[p.Symbol()].LotSize
}

// Increment returns the quantity step to use for a trade on p with side s.
// Sell uses the pair's own lot size. Buy uses the larger of that and the
// lot size of a listing where p.Base is the first symbol: the exchange
// applies the coarser step for assets with a very large supply.
func (u *Universe) Increment(p models.Pair, s models.Side) decimal.Decimal {
	own := u.LotSize(p)
	if s != models.Buy {
		return own
	}
	alt, ok := u.assetLot(p.Base)
	if !ok {
		return own
	}
	return quantize.Max(own, alt)
}

func (u *Universe) assetLot(a models.Asset) (decimal.Decimal, bool) {
	listings := u.byFirst[a]
	if len(listings) == 0 {
		return decimal.Zero, false
	}
	for _, pref := range u.preferred {
		if info, ok := u.pairs[string(a)+string(pref)]; ok {
			return info.LotSize, true
		}
	}
	return u.pairs[listings[0]].LotSize, true
}
