package rate

import (
	"strings"

	"github.com/adshao/go-binance/v2"
)

// DepthWeight is the request weight Binance charges for a spot depth
// snapshot of the given limit.
func DepthWeight(limit int) int {
	switch {
	case limit <= 100:
		return 5
	case limit <= 500:
		return 25
	case limit <= 1000:
		return 50
	default:
		return 250
	}
}

// Request weights of the other spot endpoints the client calls.
const (
	ExchangeInfoWeight = 20
	AccountWeight      = 20
	OrderWeight        = 1
)

// WeightLimitPerMinute returns the REQUEST_WEIGHT per minute limit from an
// exchangeInfo response, or 0 when none is advertised.
func WeightLimitPerMinute(limits []binance.RateLimit) int64 {
	for _, rl := range limits {
		if strings.EqualFold(rl.RateLimitType, "REQUEST_WEIGHT") && strings.EqualFold(rl.Interval, "MINUTE") {
			if rl.IntervalNum > 1 {
				return rl.Limit / rl.IntervalNum
			}
			return rl.Limit
		}
	}
	return 0
}
