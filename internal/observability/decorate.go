package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/kjstillabower/zone-forecast-service/internal/forecast"
	"github.com/kjstillabower/zone-forecast-service/internal/models"
	"github.com/kjstillabower/zone-forecast-service/internal/zones"
)

// Span names for the two core operations.
const (
	spanGetZones    = "zones.get"
	spanGetForecast = "forecast.get"
)

// InstrumentedCatalog wraps a zone provider with tracing, cache hit/miss
// counters, and structured logs. It narrows the provider contract to the
// endpoint-facing shape: a zone slice, never an error.
type InstrumentedCatalog struct {
	inner     zones.Provider
	telemetry *Telemetry
	logger    *zap.Logger
}

// NewInstrumentedCatalog wraps inner with the observability harness.
func NewInstrumentedCatalog(inner zones.Provider, t *Telemetry, logger *zap.Logger) *InstrumentedCatalog {
	return &InstrumentedCatalog{
		inner:     inner,
		telemetry: t,
		logger:    logger,
	}
}

// GetZones serves the zone catalog, recording a cache-hit or cache-miss
// signal and annotating the span with the outcome.
func (c *InstrumentedCatalog) GetZones(ctx context.Context) []models.Zone {
	ctx, span := c.telemetry.Tracer.Start(ctx, spanGetZones)
	defer span.End()

	c.logger.Debug("zone catalog requested")
	start := time.Now()

	result, hit := c.inner.GetZones(ctx)

	span.SetAttributes(attribute.Bool("cache.hit", hit))
	if hit {
		c.telemetry.Instruments.CacheHits.Add(ctx, 1)
	} else {
		c.telemetry.Instruments.CacheMisses.Add(ctx, 1)
	}

	c.logger.Info("zone catalog served",
		zap.Int("zones", len(result)),
		zap.Bool("cached", hit),
		zap.Duration("duration", time.Since(start)))
	return result
}

// InstrumentedForecaster wraps a forecast provider with tracing, request and
// failure counters, a success-only duration histogram tagged by zone, and
// structured logs. Errors pass through unchanged.
type InstrumentedForecaster struct {
	inner     forecast.Provider
	telemetry *Telemetry
	logger    *zap.Logger
}

// NewInstrumentedForecaster wraps inner with the observability harness.
func NewInstrumentedForecaster(inner forecast.Provider, t *Telemetry, logger *zap.Logger) *InstrumentedForecaster {
	return &InstrumentedForecaster{
		inner:     inner,
		telemetry: t,
		logger:    logger,
	}
}

// GetForecastByZone retrieves the forecast for zoneID through the wrapped
// provider, bracketed by a span tagged with the zone identifier.
func (f *InstrumentedForecaster) GetForecastByZone(ctx context.Context, zoneID string) ([]models.Forecast, error) {
	ctx, span := f.telemetry.Tracer.Start(ctx, spanGetForecast)
	defer span.End()
	span.SetAttributes(attribute.String("zone.id", zoneID))

	logger := f.logger.With(zap.String("zone", zoneID))
	logger.Debug("forecast lookup started")

	f.telemetry.Instruments.ForecastRequests.Add(ctx, 1)
	start := time.Now()

	result, err := f.inner.GetForecastByZone(ctx, zoneID)
	elapsed := time.Since(start)

	if err != nil {
		f.telemetry.Instruments.ForecastFailed.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("forecast lookup failed",
			zap.Error(err),
			zap.Duration("duration", elapsed))
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	f.telemetry.Instruments.ForecastDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.String("zone.id", zoneID)))
	logger.Info("forecast lookup completed",
		zap.Int("periods", len(result)),
		zap.Duration("duration", elapsed))
	return result, nil
}
