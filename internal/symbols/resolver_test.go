package symbols

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gainstaker/models"
)

func TestResolvePairRoundTrip(t *testing.T) {
	u := fixture()
	r := NewResolver(u)
	for _, s := range u.Symbols() {
		p, err := r.ResolvePair(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, p.Symbol())
		assert.True(t, u.HasAsset(p.Quote), "quote %s unknown", p.Quote)
		assert.True(t, u.HasAsset(p.Base), "base %s unknown", p.Base)
	}
}

func TestResolvePairOverrides(t *testing.T) {
	// VIB+ETH and VIBE+TH are both valid splits without the override.
	u := FromSymbols(
		[]string{"VIB", "VIBE", "ETH", "TH", "BTC"},
		[]string{"VIBETH", "VIBEBTC", "ETHBTC"},
	)
	r := NewResolver(u)

	p, err := r.ResolvePair("VIBETH")
	require.NoError(t, err)
	assert.Equal(t, models.Pair{Quote: "VIB", Base: "ETH"}, p)

	p, err = r.ResolvePair("vibebtc")
	require.NoError(t, err)
	assert.Equal(t, models.Pair{Quote: "VIBE", Base: "BTC"}, p)
}

func TestResolvePairAmbiguous(t *testing.T) {
	u := FromSymbols([]string{"AB", "CD", "A", "BCD"}, []string{"ABCD"})
	_, err := NewResolver(u).ResolvePair("ABCD")
	assert.ErrorIs(t, err, models.ErrInvalidPairing)

	// Listing metadata breaks the tie.
	withMeta := NewUniverse([]models.PairInfo{
		{Symbol: "ABCD", Pair: models.Pair{Quote: "AB", Base: "CD"}},
		{Symbol: "ABCDX", Pair: models.Pair{Quote: "A", Base: "BCD"}},
	})
	p, err := NewResolver(withMeta).ResolvePair("ABCD")
	require.NoError(t, err)
	assert.Equal(t, models.Pair{Quote: "AB", Base: "CD"}, p)
}

func TestResolvePairUnlisted(t *testing.T) {
	r := NewResolver(fixture(WithExcluded("USDCBTC")))
	for _, s := range []string{"BTCETH", "USDCBTC", "", "XYZ"} {
		_, err := r.ResolvePair(s)
		assert.ErrorIs(t, err, models.ErrInvalidPairing, s)
	}
}

func TestResolveValidPairing(t *testing.T) {
	r := NewResolver(fixture(WithExcluded("USDCBTC")))

	cases := []struct {
		want, have models.Asset
		pair       string
		side       models.Side
	}{
		{"ETH", "USDC", "ETHUSDC", models.Buy},
		{"USDC", "ETH", "ETHUSDC", models.Sell},
		{"BTC", "ARDR", "ARDRBTC", models.Sell},
		{"ARDR", "BTC", "ARDRBTC", models.Buy},
		// USDCBTC is excluded so only BTCUSDC orients the pair.
		{"USDC", "BTC", "BTCUSDC", models.Sell},
		{"btc", " usdc", "BTCUSDC", models.Buy},
	}
	for _, c := range cases {
		p, side, err := r.ResolveValidPairing(c.want, c.have)
		require.NoError(t, err, "%s/%s", c.want, c.have)
		assert.Equal(t, c.pair, p.Symbol())
		assert.Equal(t, c.side, side)
		assert.Equal(t, models.NormalizeAsset(string(c.want)), side.Acquires(p))
	}
}

func TestResolveValidPairingErrors(t *testing.T) {
	r := NewResolver(fixture())

	_, _, err := r.ResolveValidPairing("DOGE", "BTC")
	assert.ErrorIs(t, err, models.ErrInvalidSymbol)

	_, _, err = r.ResolveValidPairing("BTC", "BTC")
	assert.ErrorIs(t, err, models.ErrInvalidPairing)

	_, _, err = r.ResolveValidPairing("ARDR", "USDC")
	assert.ErrorIs(t, err, models.ErrInvalidPairing)

	// Both orientations listed when nothing is excluded.
	_, _, err = r.ResolveValidPairing("USDC", "BTC")
	assert.True(t, errors.Is(err, models.ErrInvalidPairing))
}

func TestValidateAsset(t *testing.T) {
	r := NewResolver(fixture())
	a, err := r.ValidateAsset(" eth ")
	require.NoError(t, err)
	assert.Equal(t, models.Asset("ETH"), a)

	_, err = r.ValidateAsset("nope")
	assert.ErrorIs(t, err, models.ErrInvalidSymbol)
}

func TestResolveValidPairingIgnoresHaltedReverse(t *testing.T) {
	u := NewUniverse([]models.PairInfo{
		info("XYZ", "USDC", "0.01"),
		halted("USDC", "XYZ", "0.01"),
	})
	r := NewResolver(u)

	pair, side, err := r.ResolveValidPairing("USDC", "XYZ")
	require.NoError(t, err)
	assert.Equal(t, "XYZUSDC", pair.Symbol())
	assert.Equal(t, models.Sell, side)

	_, err = r.ResolvePair("USDCXYZ")
	assert.True(t, errors.Is(err, models.ErrInvalidPairing), "got %v", err)
}
