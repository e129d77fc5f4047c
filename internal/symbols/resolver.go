package symbols

import (
	"fmt"
	"strings"

	"gainstaker/models"
)

// Resolver splits pair strings and orients asset pairs against a Universe.
type Resolver struct {
	universe  *Universe
	overrides map[string]models.Pair
}

// NewResolver returns a Resolver using the built-in override table.
func NewResolver(u *Universe) *Resolver {
	return &Resolver{universe: u, overrides: overrides}
}

// Universe returns the snapshot the resolver works against.
func (r *Resolver) Universe() *Universe { return r.universe }

// ResolvePair splits a listed pair string into its quote and base assets.
//
// The override table wins, then the exchange's own listing split. Without
// either, every known asset that prefixes the string and leaves a known
// asset as remainder is a candidate and exactly one candidate must remain.
// Several candidates are ErrInvalidPairing rather than a guess.
func (r *Resolver) ResolvePair(concatenated string) (models.Pair, error) {
	symbol := strings.ToUpper(strings.TrimSpace(concatenated))
	if !r.universe.Listed(symbol) {
		return models.Pair{}, fmt.Errorf("%w: %q is not listed", models.ErrInvalidPairing, concatenated)
	}
	if p, ok := r.overrides[symbol]; ok {
		return p, nil
	}
	if info, ok := r.universe.Info(symbol); ok && info.Pair.Quote != "" && info.Pair.Base != "" {
		return info.Pair, nil
	}

	candidates := r.splitCandidates(symbol)
	switch len(candidates) {
	case 1:
		return candidates[0], nil
	case 0:
		return models.Pair{}, fmt.Errorf("%w: cannot split %q into known assets", models.ErrInvalidPairing, symbol)
	default:
		return models.Pair{}, fmt.Errorf("%w: %q splits %d ways", models.ErrInvalidPairing, symbol, len(candidates))
	}
}

func (r *Resolver) splitCandidates(symbol string) []models.Pair {
	var out []models.Pair
	for _, a := range r.universe.Assets() {
		prefix := string(a)
		if len(prefix) >= len(symbol) || !strings.HasPrefix(symbol, prefix) {
			continue
		}
		rest := models.Asset(symbol[len(prefix):])
		if r.universe.HasAsset(rest) {
			out = append(out, models.Pair{Quote: a, Base: rest})
		}
	}
	return out
}

// ResolveValidPairing finds the listed pair between want and have and the
// side that acquires want on it. want+have listed gives (want+have, Buy);
// have+want listed gives (have+want, Sell). The side is always relative to
// the returned pair, never to the argument order.
func (r *Resolver) ResolveValidPairing(want, have models.Asset) (models.Pair, models.Side, error) {
	want = models.NormalizeAsset(string(want))
	have = models.NormalizeAsset(string(have))
	for _, a := range []models.Asset{want, have} {
		if a == "" || !r.universe.HasAsset(a) {
			return models.Pair{}, 0, fmt.Errorf("%w: %q", models.ErrInvalidSymbol, a)
		}
	}
	if want == have {
		return models.Pair{}, 0, fmt.Errorf("%w: %s with itself", models.ErrInvalidPairing, want)
	}

	direct := models.Pair{Quote: want, Base: have}
	swapped := models.Pair{Quote: have, Base: want}
	directOK := r.universe.Listed(direct.Symbol())
	swappedOK := r.universe.Listed(swapped.Symbol())

	switch {
	case directOK && swappedOK:
		return models.Pair{}, 0, fmt.Errorf("%w: both %s and %s are listed", models.ErrInvalidPairing, direct, swapped)
	case directOK:
		return direct, models.Buy, nil
	case swappedOK:
		return swapped, models.Sell, nil
	default:
		return models.Pair{}, 0, fmt.Errorf("%w: no listing between %s and %s", models.ErrInvalidPairing, want, have)
	}
}

// ValidateAsset normalises a ticker and checks it against the universe.
func (r *Resolver) ValidateAsset(s string) (models.Asset, error) {
	a := models.NormalizeAsset(s)
	if a == "" || !r.universe.HasAsset(a) {
		return "", fmt.Errorf("%w: %q", models.ErrInvalidSymbol, s)
	}
	return a, nil
}
