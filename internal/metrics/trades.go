package metrics

import (
	"strconv"
	"time"

	"gainstaker/logger"
	"gainstaker/models"
)

const settlerComponent = "settler"

func tradeFields(pair models.Pair, side models.Side) logger.Fields {
	return logger.Fields{"pair": pair.Symbol(), "side": side.String()}
}

// ReportTradeExecuted records a settled trade and the amount it acquired.
func ReportTradeExecuted(log *logger.Log, res models.TradeResult, took time.Duration) {
	fields := tradeFields(res.Pair, res.Side)
	EmitMetric(log, settlerComponent, "trades_executed", int64(1), "counter", fields)

	amount := cloneFields(fields)
	amount["asset"] = res.AcquiredAsset.String()
	amount["unit"] = "none"
	EmitMetric(log, settlerComponent, "acquired_amount", res.Acquired.InexactFloat64(), "gauge", amount)

	latency := cloneFields(fields)
	latency["unit"] = "milliseconds"
	EmitMetric(log, settlerComponent, "trade_latency", float64(took.Milliseconds()), "gauge", latency)
}

// ReportTradeRejected records an order the exchange refused.
func ReportTradeRejected(log *logger.Log, pair models.Pair, side models.Side, code int64) {
	fields := tradeFields(pair, side)
	if code != 0 {
		fields["code"] = strconv.FormatInt(code, 10)
	}
	EmitMetric(log, settlerComponent, "trades_rejected", int64(1), "counter", fields)
}

// ReportTradeUnreconciled records a submission whose outcome could not be
// confirmed from balances.
func ReportTradeUnreconciled(log *logger.Log, pair models.Pair, side models.Side) {
	EmitMetric(log, settlerComponent, "trades_unreconciled", int64(1), "counter", tradeFields(pair, side))
}
