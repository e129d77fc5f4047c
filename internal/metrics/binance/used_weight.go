package binancemetrics

import (
	"net/http"
	"strconv"
	"strings"

	"gainstaker/internal/metrics"
	"gainstaker/logger"
)

const component = "binance_client"

// ReportUsedWeight reads the used-weight headers of a Binance response and
// emits a used_weight gauge. It returns the parsed weight and whether a
// metric was recorded.
func ReportUsedWeight(log *logger.Log, header http.Header, endpoint string) (float64, bool) {
	if header == nil {
		return 0, false
	}
	if log == nil {
		log = logger.GetLogger()
	}

	headers := []struct {
		key    string
		window string
	}{
		{"X-MBX-USED-WEIGHT-1M", "1m"},
		{"X-MBX-USED-WEIGHT", "1m"},
	}

	for _, h := range headers {
		value := header.Get(h.key)
		if value == "" {
			continue
		}

		used, err := strconv.ParseFloat(value, 64)
		if err != nil {
			log.WithComponent(component).WithFields(logger.Fields{
				"endpoint": endpoint,
				"header":   h.key,
				"value":    value,
			}).WithError(err).Debug("failed to parse used weight header")
			continue
		}

		metrics.EmitMetric(log, component, "used_weight", used, "gauge", logger.Fields{
			"exchange": "binance",
			"endpoint": endpoint,
			"window":   h.window,
		})
		return used, true
	}
	return 0, false
}

// Transport reports the used weight of every response passing through it.
type Transport struct {
	Base http.RoundTripper
	Log  *logger.Log
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	ReportUsedWeight(t.Log, resp.Header, endpointName(req.URL.Path))
	return resp, nil
}

// endpointName turns "/api/v3/depth" into "depth".
func endpointName(path string) string {
	path = strings.TrimSuffix(path, "/")
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
