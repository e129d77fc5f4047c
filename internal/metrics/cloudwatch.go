package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"gainstaker/config"
	"gainstaker/logger"
)

// cloudWatchAPI is the part of the CloudWatch client used here.
type cloudWatchAPI interface {
	PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
	PutDashboard(ctx context.Context, in *cloudwatch.PutDashboardInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutDashboardOutput, error)
}

type cloudWatchState struct {
	client        cloudWatchAPI
	namespace     string
	dashboardName string
	region        string
}

var (
	cwState atomic.Pointer[cloudWatchState]

	// Gauges are published at most once per interval per component and name.
	// Counters always go out.
	cloudWatchPublishInterval = 10 * time.Second
	publishTimesMu            sync.Mutex
	publishTimes              = map[string]time.Time{}

	timeNow = time.Now
)

func init() {
	cwState.Store(&cloudWatchState{namespace: "Gainstaker", dashboardName: "Gainstaker"})
}

// InitCloudWatch creates the CloudWatch client and the dashboard. When the
// AWS configuration cannot be loaded publishing stays disabled and metrics
// are only logged.
func InitCloudWatch(ctx context.Context, cfg config.CloudWatchConfig) {
	log := logger.GetLogger().WithComponent("cloudwatch")
	if !cfg.Enabled {
		return
	}

	region := cfg.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		log.WithError(err).Warn("failed to load AWS configuration; CloudWatch metrics disabled")
		return
	}
	if awsCfg.Region != "" {
		region = awsCfg.Region
	}

	useCloudWatch(cloudwatch.NewFromConfig(awsCfg), cfg.Namespace, cfg.Dashboard, region)
	log.WithFields(logger.Fields{"region": region, "namespace": cwState.Load().namespace}).Info("initialized CloudWatch client")

	if err := CreateDashboard(ctx); err != nil {
		log.WithError(err).Warn("failed to create CloudWatch dashboard")
	}
}

func useCloudWatch(client cloudWatchAPI, namespace, dashboard, region string) {
	state := *cwState.Load()
	state.client = client
	state.region = region
	if namespace != "" {
		state.namespace = namespace
	}
	if dashboard != "" {
		state.dashboardName = dashboard
	}
	cwState.Store(&state)
}

// EmitMetric logs the metric locally, hands it to registered handlers and
// publishes it to CloudWatch when configured.
func EmitMetric(log *logger.Log, component string, metric string, value interface{}, metricType string, fields logger.Fields) {
	event, ok := recordMetric(log, component, metric, value, metricType, fields)
	if !ok {
		return
	}

	numeric, ok := toFloat64(event.Value)
	if !ok {
		logger.GetLogger().WithComponent("cloudwatch").WithFields(logger.Fields{"metric": event.Name}).Debug("non-numeric metric value; skipping publish")
		return
	}
	publishMetricDatum(event, numeric)
}

func publishMetricDatum(metric Metric, value float64) {
	state := cwState.Load()
	if state == nil || state.client == nil {
		return
	}
	if metric.Type == "gauge" && !dueForPublish(metric.Component+"/"+metric.Name) {
		return
	}

	unit := cwtypes.StandardUnitCount
	if raw, ok := metric.Fields["unit"].(string); ok {
		if parsed, found := metricUnitFromString(raw); found {
			unit = parsed
		}
	}

	dims := []cwtypes.Dimension{{Name: aws.String("component"), Value: aws.String(metric.Component)}}
	for k, v := range metric.Fields {
		if k == "unit" {
			continue
		}
		if s, ok := v.(string); ok && s != "" {
			dims = append(dims, cwtypes.Dimension{Name: aws.String(k), Value: aws.String(s)})
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	publishMetrics(ctx, state, []cwtypes.MetricDatum{{
		MetricName: aws.String(metric.Name),
		Dimensions: dims,
		Unit:       unit,
		Timestamp:  aws.Time(metric.Timestamp),
		Value:      aws.Float64(value),
	}})
}

func dueForPublish(key string) bool {
	publishTimesMu.Lock()
	defer publishTimesMu.Unlock()
	now := timeNow()
	if last, ok := publishTimes[key]; ok && now.Sub(last) < cloudWatchPublishInterval {
		return false
	}
	publishTimes[key] = now
	return true
}

func resetMetricPublishTimes() {
	publishTimesMu.Lock()
	publishTimes = map[string]time.Time{}
	publishTimesMu.Unlock()
}

func publishMetrics(ctx context.Context, state *cloudWatchState, data []cwtypes.MetricDatum) {
	log := logger.GetLogger().WithComponent("cloudwatch")
	if _, err := state.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(state.namespace),
		MetricData: data,
	}); err != nil {
		log.WithError(err).Warn("failed to publish CloudWatch metrics")
		return
	}

	names := make([]string, 0, len(data))
	for _, datum := range data {
		names = append(names, aws.ToString(datum.MetricName))
	}
	log.WithFields(logger.Fields{"metrics": strings.Join(names, ",")}).Debug("published metrics to CloudWatch")
}

// CreateDashboard puts a dashboard graphing trade outcomes and request weight.
func CreateDashboard(ctx context.Context) error {
	state := cwState.Load()
	if state == nil || state.client == nil {
		return nil
	}

	body, err := dashboardBody(state.namespace, state.region)
	if err != nil {
		return err
	}
	_, err = state.client.PutDashboard(ctx, &cloudwatch.PutDashboardInput{
		DashboardName: aws.String(state.dashboardName),
		DashboardBody: aws.String(body),
	})
	return err
}

func dashboardBody(namespace, region string) (string, error) {
	widget := func(title, stat, component string, names ...string) map[string]interface{} {
		series := make([][]string, 0, len(names))
		for _, n := range names {
			series = append(series, []string{namespace, n, "component", component})
		}
		props := map[string]interface{}{
			"metrics": series,
			"period":  300,
			"stat":    stat,
			"title":   title,
			"view":    "timeSeries",
		}
		if region != "" {
			props["region"] = region
		}
		return map[string]interface{}{"type": "metric", "width": 12, "height": 6, "properties": props}
	}

	body, err := json.Marshal(map[string]interface{}{
		"widgets": []interface{}{
			widget("Trades", "Sum", "settler", "trades_executed", "trades_rejected", "trades_unreconciled"),
			widget("Request weight", "Maximum", "binance_client", "used_weight"),
			widget("Journal", "Sum", "journal", "records_written", "bytes_written", "errors_count"),
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode dashboard: %w", err)
	}
	return string(body), nil
}

func toFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case interface{ InexactFloat64() float64 }:
		return v.InexactFloat64(), true
	default:
		return 0, false
	}
}

func metricUnitFromString(unit string) (cwtypes.StandardUnit, bool) {
	switch strings.ToLower(unit) {
	case "count":
		return cwtypes.StandardUnitCount, true
	case "percent":
		return cwtypes.StandardUnitPercent, true
	case "milliseconds":
		return cwtypes.StandardUnitMilliseconds, true
	case "bytes":
		return cwtypes.StandardUnitBytes, true
	case "none":
		return cwtypes.StandardUnitNone, true
	default:
		return cwtypes.StandardUnitCount, false
	}
}
