package metrics

import (
	"testing"
	"time"

	"gainstaker/config"
	"gainstaker/logger"
)

func resetMetricHandlers() {
	metricHandlersMu.Lock()
	metricHandlers = make(map[MetricHandlerID]MetricHandler)
	nextMetricHandlerID = 0
	metricHandlersMu.Unlock()
}

func TestRegisterMetricHandlerReturnsUniqueIDs(t *testing.T) {
	resetMetricHandlers()

	id := RegisterMetricHandler(func(Metric) {})
	if id == 0 {
		t.Fatalf("expected non-zero handler id")
	}

	second := RegisterMetricHandler(func(Metric) {})
	if second == 0 || second == id {
		t.Fatalf("expected unique handler id")
	}
}

func TestRegisterMetricHandlerNil(t *testing.T) {
	resetMetricHandlers()

	if id := RegisterMetricHandler(nil); id != 0 {
		t.Fatalf("expected zero id for nil handler, got %d", id)
	}
}

func TestEmitMetricDispatchesToHandlers(t *testing.T) {
	resetMetricHandlers()

	events := make(chan Metric, 1)
	id := RegisterMetricHandler(func(m Metric) { events <- m })
	t.Cleanup(func() { UnregisterMetricHandler(id) })

	fields := logger.Fields{"pair": "ETHUSDC", "unit": "count"}
	EmitMetric(logger.Logger(), "settler", "trades_executed", int64(1), "counter", fields)

	select {
	case event := <-events:
		if event.Component != "settler" || event.Name != "trades_executed" || event.Type != "counter" {
			t.Fatalf("unexpected event: %+v", event)
		}
		if _, ok := fields["metric"]; ok {
			t.Fatalf("original fields mutated: %v", fields)
		}
		if _, ok := event.Fields["metric"]; ok {
			t.Fatalf("event fields should not contain metric key: %v", event.Fields)
		}
	case <-time.After(50 * time.Millisecond):
		t.Fatal("metric handler not invoked")
	}
}

func TestEmitMetricDefaultType(t *testing.T) {
	resetMetricHandlers()

	events := make(chan Metric, 1)
	id := RegisterMetricHandler(func(m Metric) { events <- m })
	t.Cleanup(func() { UnregisterMetricHandler(id) })

	EmitMetric(nil, "journal", "records_written", 7, "", nil)

	select {
	case event := <-events:
		if event.Type != "counter" {
			t.Fatalf("expected default metric type to be counter, got %s", event.Type)
		}
	case <-time.After(50 * time.Millisecond):
		t.Fatal("metric handler not invoked for default type")
	}
}

func TestEmitMetricWithoutName(t *testing.T) {
	resetMetricHandlers()

	events := make(chan Metric, 1)
	id := RegisterMetricHandler(func(m Metric) { events <- m })
	t.Cleanup(func() { UnregisterMetricHandler(id) })

	EmitMetric(nil, "component", "", 1, "counter", nil)

	select {
	case <-events:
		t.Fatal("handler should not receive metrics without a name")
	case <-time.After(20 * time.Millisecond):
	}
}

func TestEmitMetricDisabledFeature(t *testing.T) {
	resetMetricHandlers()

	Configure(config.MetricsConfig{UsedWeight: false, Trades: false})
	t.Cleanup(func() { Configure(config.MetricsConfig{UsedWeight: true, Trades: true}) })

	events := make(chan Metric, 4)
	id := RegisterMetricHandler(func(m Metric) { events <- m })
	t.Cleanup(func() { UnregisterMetricHandler(id) })

	EmitMetric(nil, "binance_client", "used_weight", 1, "gauge", nil)
	EmitMetric(nil, "settler", "trades_executed", 1, "counter", nil)
	EmitMetric(nil, "settler", "acquired_amount", 1.5, "gauge", nil)

	select {
	case m := <-events:
		t.Fatalf("expected no metrics when features disabled, got %s", m.Name)
	case <-time.After(20 * time.Millisecond):
	}

	// families without a switch still pass
	EmitMetric(nil, "journal", "records_written", 1, "counter", nil)
	select {
	case <-events:
	case <-time.After(50 * time.Millisecond):
		t.Fatal("ungated metric was dropped")
	}
}
