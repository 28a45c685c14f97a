package observability

import "go.opentelemetry.io/otel/metric"

// Metric instrument names. Stable; dashboards key off these.
const (
	MetricForecastRequests = "forecast.requests"
	MetricForecastFailed   = "forecast.failed_requests"
	MetricCacheHits        = "zones.cache.hits"
	MetricCacheMisses      = "zones.cache.misses"
	MetricForecastDuration = "forecast.request.duration"
)

// Instruments holds the service's metric instruments.
//
// ForecastRequests counts every forecast lookup started; ForecastFailed
// counts every lookup that returned an error (injected failures included).
// ForecastDuration records seconds on the success path only, tagged by zone.
type Instruments struct {
	ForecastRequests metric.Int64Counter
	ForecastFailed   metric.Int64Counter
	CacheHits        metric.Int64Counter
	CacheMisses      metric.Int64Counter
	ForecastDuration metric.Float64Histogram
}

// NewInstruments registers the instruments on the given meter.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	forecastRequests, err := meter.Int64Counter(
		MetricForecastRequests,
		metric.WithDescription("Total number of forecast requests started"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	forecastFailed, err := meter.Int64Counter(
		MetricForecastFailed,
		metric.WithDescription("Total number of failed forecast requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	cacheHits, err := meter.Int64Counter(
		MetricCacheHits,
		metric.WithDescription("Zone catalog lookups served from cache"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	cacheMisses, err := meter.Int64Counter(
		MetricCacheMisses,
		metric.WithDescription("Zone catalog lookups that repopulated the cache"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	forecastDuration, err := meter.Float64Histogram(
		MetricForecastDuration,
		metric.WithDescription("Forecast request latency in seconds, success path only"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Instruments{
		ForecastRequests: forecastRequests,
		ForecastFailed:   forecastFailed,
		CacheHits:        cacheHits,
		CacheMisses:      cacheMisses,
		ForecastDuration: forecastDuration,
	}, nil
}
