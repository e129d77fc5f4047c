package quantize

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestQuantize(t *testing.T) {
	cases := []struct {
		amount string
		inc    string
		dir    Direction
		want   string
	}{
		{"4.5137", "0.001", RoundDown, "4.513"},
		{"4.5137", "0.001", RoundUp, "4.514"},
		{"4.513", "0.001", RoundUp, "4.513"},
		{"180.0004", "0.001", RoundUp, "180.001"},
		{"12.5", "1", RoundDown, "12"},
		{"12.5", "1", RoundUp, "13"},
		{"0.0009", "0.001", RoundDown, "0"},
		{"-1.25", "0.1", RoundDown, "-1.2"},
		{"-1.25", "0.1", RoundUp, "-1.3"},
		{"7.77", "0", RoundDown, "7.77"},
		{"7.77", "-0.1", RoundUp, "7.77"},
		{"1234.5678", "0.05", RoundDown, "1234.55"},
	}
	for _, c := range cases {
		got := Quantize(d(c.amount), d(c.inc), c.dir)
		assert.Truef(t, got.Equal(d(c.want)), "Quantize(%s, %s, %s) = %s want %s", c.amount, c.inc, c.dir, got, c.want)
	}
}

func TestQuantizeIdempotent(t *testing.T) {
	amounts := []string{"0.123456789", "98765.4321", "-3.33333", "1", "0"}
	incs := []string{"0.00000001", "0.001", "0.05", "1", "10"}
	for _, a := range amounts {
		for _, inc := range incs {
			for _, dir := range []Direction{RoundDown, RoundUp} {
				once := Quantize(d(a), d(inc), dir)
				twice := Quantize(once, d(inc), dir)
				assert.Truef(t, once.Equal(twice), "not idempotent for %s/%s/%s: %s then %s", a, inc, dir, once, twice)
			}
		}
	}
}

func TestQuantizeBounds(t *testing.T) {
	inc := d("0.01")
	for _, a := range []string{"1.005", "2.999", "0.011"} {
		down := Down(d(a), inc)
		up := Up(d(a), inc)
		assert.True(t, down.LessThanOrEqual(d(a)))
		assert.True(t, up.GreaterThanOrEqual(d(a)))
		assert.True(t, up.Sub(down).LessThanOrEqual(inc))
	}
}

func TestMax(t *testing.T) {
	assert.True(t, Max(d("0.001"), d("1")).Equal(d("1")))
	assert.True(t, Max(d("0.1"), d("0.01")).Equal(d("0.1")))
}
