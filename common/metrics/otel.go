package metrics

import (
	"context"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/servimatch/go-servi/common"
	"github.com/servimatch/go-servi/models"
)

const defaultExportInterval = 30 * time.Second

type OtlMetricService struct {
	provider   *sdkmetric.MeterProvider
	meter      metric.Meter
	logger     models.Logger
	counters   map[models.MetricName]metric.Int64Counter
	histograms map[models.MetricName]metric.Int64Histogram
	gauges     map[models.MetricName]metric.Int64ObservableGauge
	lock       sync.Mutex
}

// NewMetricService exports over OTLP HTTP when an endpoint is configured and falls
// back to the stdout exporter otherwise, so metrics stay visible in local runs.
func NewMetricService(ctx context.Context, logger models.Logger) (models.MetricService, error) {
	var exporter sdkmetric.Exporter
	var err error
	if endpoint := os.Getenv(common.Env_MetricsEndpoint); len(endpoint) > 0 {
		exporter, err = otlpmetrichttp.New(ctx)
	} else {
		exporter, err = stdoutmetric.New()
	}
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(defaultExportInterval))),
	)
	return &OtlMetricService{
		provider:   provider,
		meter:      provider.Meter(models.MetricsCallerName),
		logger:     logger,
		counters:   make(map[models.MetricName]metric.Int64Counter),
		histograms: make(map[models.MetricName]metric.Int64Histogram),
		gauges:     make(map[models.MetricName]metric.Int64ObservableGauge),
	}, nil
}

func (o *OtlMetricService) Count(ctx context.Context, name models.MetricName, val int) error {
	o.lock.Lock()
	counter, found := o.counters[name]
	if !found {
		var err error
		if counter, err = o.meter.Int64Counter(string(name)); err != nil {
			o.lock.Unlock()
			return err
		}
		o.counters[name] = counter
	}
	o.lock.Unlock()
	counter.Add(ctx, int64(val))
	return nil
}

func (o *OtlMetricService) Gauge(_ context.Context, name models.MetricName, monitor models.ResourceMonitor) error {
	o.lock.Lock()
	defer o.lock.Unlock()
	if _, found := o.gauges[name]; found {
		return nil
	}
	gauge, err := o.meter.Int64ObservableGauge(
		string(name),
		metric.WithInt64Callback(func(ctx context.Context, observer metric.Int64Observer) error {
			value, err := monitor.GetValue(ctx)
			if err != nil {
				o.logger.Errorf("metrics: error observing %s: %v", name, err)
				return err
			}
			observer.Observe(int64(value))
			return nil
		}),
	)
	if err != nil {
		return err
	}
	o.gauges[name] = gauge
	return nil
}

func (o *OtlMetricService) Distribution(ctx context.Context, name models.MetricName, val int) error {
	o.lock.Lock()
	histogram, found := o.histograms[name]
	if !found {
		var err error
		if histogram, err = o.meter.Int64Histogram(string(name)); err != nil {
			o.lock.Unlock()
			return err
		}
		o.histograms[name] = histogram
	}
	o.lock.Unlock()
	histogram.Record(ctx, int64(val))
	return nil
}

func (o *OtlMetricService) Shutdown(ctx context.Context) {
	if err := o.provider.Shutdown(ctx); err != nil {
		o.logger.Errorf("metrics: error shutting down provider: %v", err)
	}
}
