package rate

import (
	"strings"

	"gainstaker/internal/metrics"
	"gainstaker/logger"
)

const component = "binance_client"

// Binance error codes that signal throttling.
const (
	codeTooManyRequests = -1003
	codeTooManyOrders   = -1015
)

// ReportRateLimitExceeded records a throttled request.
func ReportRateLimitExceeded(log *logger.Log, endpoint, symbol string) {
	fields := logger.Fields{"exchange": "binance", "endpoint": endpoint, "symbol": symbol}
	metrics.EmitMetric(log, component, "rate_limit_exceeded", int64(1), "counter", fields)
	if log == nil {
		log = logger.GetLogger()
	}
	log.WithComponent(component).WithFields(fields).Warn("rate limit exceeded")
}

// ReportIPBan records an IP ban answer.
func ReportIPBan(log *logger.Log, endpoint, symbol string) {
	fields := logger.Fields{"exchange": "binance", "endpoint": endpoint, "symbol": symbol}
	metrics.EmitMetric(log, component, "ip_ban", int64(1), "counter", fields)
	if log == nil {
		log = logger.GetLogger()
	}
	log.WithComponent(component).WithFields(fields).Error("ip banned")
}

// DetectLimit classifies a Binance error code, HTTP status and message as
// throttling or an IP ban.
func DetectLimit(code int64, status int, msg string) (rateLimit bool, ipBan bool) {
	lower := strings.ToLower(msg)
	ipBan = status == 418 || (strings.Contains(lower, "ip") && strings.Contains(lower, "ban"))
	rateLimit = !ipBan && (status == 429 ||
		code == codeTooManyRequests || code == codeTooManyOrders ||
		strings.Contains(lower, "too many requests") ||
		strings.Contains(lower, "rate limit"))
	return
}

// ReportLimit records the matching metric when code, status or msg signal a
// limit. It reports whether anything matched.
func ReportLimit(log *logger.Log, endpoint, symbol string, code int64, status int, msg string) bool {
	rateLimit, ipBan := DetectLimit(code, status, msg)
	if rateLimit {
		ReportRateLimitExceeded(log, endpoint, symbol)
	}
	if ipBan {
		ReportIPBan(log, endpoint, symbol)
	}
	return rateLimit || ipBan
}
