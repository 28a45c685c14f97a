package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"

	"github.com/kjstillabower/zone-forecast-service/internal/models"
)

type stubZoneProvider struct {
	zones []models.Zone
	hit   bool
}

func (s *stubZoneProvider) GetZones(ctx context.Context) ([]models.Zone, bool) {
	return s.zones, s.hit
}

type stubForecastProvider struct {
	forecasts []models.Forecast
	err       error
}

func (s *stubForecastProvider) GetForecastByZone(ctx context.Context, zoneID string) ([]models.Forecast, error) {
	return s.forecasts, s.err
}

// newTestTelemetry builds a Telemetry backed by a manual metric reader and an
// in-memory span recorder so tests can make assertions on both.
func newTestTelemetry(t *testing.T) (*Telemetry, *sdkmetric.ManualReader, *tracetest.SpanRecorder) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	meter := mp.Meter(ServiceName)
	instruments, err := NewInstruments(meter)
	if err != nil {
		t.Fatalf("NewInstruments: %v", err)
	}

	return &Telemetry{
		Tracer:         tp.Tracer(ServiceName),
		Meter:          meter,
		Instruments:    instruments,
		tracerProvider: tp,
		meterProvider:  mp,
	}, reader, recorder
}

func collectMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) (metricdata.Metrics, bool) {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect metrics: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == name {
				return m, true
			}
		}
	}
	return metricdata.Metrics{}, false
}

func counterValue(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	m, ok := collectMetric(t, reader, name)
	if !ok {
		return 0
	}
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %s is not an int64 sum", name)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestInstrumentedForecasterSuccess(t *testing.T) {
	telemetry, reader, recorder := newTestTelemetry(t)
	inner := &stubForecastProvider{forecasts: []models.Forecast{{Name: "Tonight"}}}
	forecaster := NewInstrumentedForecaster(inner, telemetry, zap.NewNop())

	result, err := forecaster.GetForecastByZone(context.Background(), "WAZ558")
	if err != nil {
		t.Fatalf("GetForecastByZone: %v", err)
	}
	if len(result) != 1 {
		t.Errorf("got %d forecasts, want 1", len(result))
	}

	if got := counterValue(t, reader, MetricForecastRequests); got != 1 {
		t.Errorf("requests counter = %d, want 1", got)
	}
	if got := counterValue(t, reader, MetricForecastFailed); got != 0 {
		t.Errorf("failed counter = %d, want 0", got)
	}

	m, ok := collectMetric(t, reader, MetricForecastDuration)
	if !ok {
		t.Fatal("duration histogram not recorded on success")
	}
	hist, ok := m.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatal("duration metric is not a float64 histogram")
	}
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 {
		t.Fatalf("expected exactly one duration sample, got %+v", hist.DataPoints)
	}
	if v, ok := hist.DataPoints[0].Attributes.Value("zone.id"); !ok || v.AsString() != "WAZ558" {
		t.Errorf("duration sample not tagged with zone id: %v", hist.DataPoints[0].Attributes)
	}

	spans := recorder.Ended()
	if len(spans) != 1 || spans[0].Name() != spanGetForecast {
		t.Fatalf("expected one %s span, got %v", spanGetForecast, spans)
	}
	if v, ok := spanAttr(spans[0], "zone.id"); !ok || v.AsString() != "WAZ558" {
		t.Error("span missing zone.id attribute")
	}
}

func TestInstrumentedForecasterFailure(t *testing.T) {
	telemetry, reader, recorder := newTestTelemetry(t)
	inner := &stubForecastProvider{err: errors.New("internal failure: request 5")}
	forecaster := NewInstrumentedForecaster(inner, telemetry, zap.NewNop())

	if _, err := forecaster.GetForecastByZone(context.Background(), "ORZ006"); err == nil {
		t.Fatal("expected error from wrapped provider")
	}

	if got := counterValue(t, reader, MetricForecastRequests); got != 1 {
		t.Errorf("requests counter = %d, want 1", got)
	}
	if got := counterValue(t, reader, MetricForecastFailed); got != 1 {
		t.Errorf("failed counter = %d, want 1", got)
	}
	if m, ok := collectMetric(t, reader, MetricForecastDuration); ok {
		if hist, isHist := m.Data.(metricdata.Histogram[float64]); isHist {
			for _, dp := range hist.DataPoints {
				if dp.Count != 0 {
					t.Error("duration sample recorded on failure")
				}
			}
		}
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("span status = %v, want Error", spans[0].Status())
	}
}

func TestInstrumentedCatalogHitMiss(t *testing.T) {
	telemetry, reader, recorder := newTestTelemetry(t)
	inner := &stubZoneProvider{zones: []models.Zone{{Key: "WAZ558"}}}
	catalog := NewInstrumentedCatalog(inner, telemetry, zap.NewNop())
	ctx := context.Background()

	inner.hit = false
	catalog.GetZones(ctx)
	inner.hit = true
	catalog.GetZones(ctx)

	if got := counterValue(t, reader, MetricCacheMisses); got != 1 {
		t.Errorf("miss counter = %d, want 1", got)
	}
	if got := counterValue(t, reader, MetricCacheHits); got != 1 {
		t.Errorf("hit counter = %d, want 1", got)
	}

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected two spans, got %d", len(spans))
	}
	for i, wantHit := range []bool{false, true} {
		if spans[i].Name() != spanGetZones {
			t.Errorf("span %d name = %s, want %s", i, spans[i].Name(), spanGetZones)
		}
		if v, ok := spanAttr(spans[i], "cache.hit"); !ok || v.AsBool() != wantHit {
			t.Errorf("span %d cache.hit = %v, want %v", i, v, wantHit)
		}
	}
}

// Repeated wrapped calls keep the counters monotonic; one sample per success.
func TestInstrumentedForecasterCorrelation(t *testing.T) {
	telemetry, reader, _ := newTestTelemetry(t)
	inner := &stubForecastProvider{forecasts: []models.Forecast{}}
	forecaster := NewInstrumentedForecaster(inner, telemetry, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := forecaster.GetForecastByZone(ctx, "WAZ558"); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	if got := counterValue(t, reader, MetricForecastRequests); got != 3 {
		t.Errorf("requests counter = %d, want 3", got)
	}
	m, _ := collectMetric(t, reader, MetricForecastDuration)
	hist := m.Data.(metricdata.Histogram[float64])
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 3 {
		t.Errorf("expected 3 duration samples for one zone, got %+v", hist.DataPoints)
	}
}
