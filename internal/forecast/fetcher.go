package forecast

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kjstillabower/zone-forecast-service/internal/client"
	"github.com/kjstillabower/zone-forecast-service/internal/models"
)

// failureInterval makes every Nth forecast request fail. The counter is
// process-wide, not per-zone, so the cadence holds across any zone mix.
const failureInterval = 5

// ErrInternal marks synthetic and unexpected failures. The endpoint layer
// surfaces it as a server error. Callers must not retry it.
var ErrInternal = errors.New("internal failure")

// Provider retrieves the forecast period sequence for a zone.
type Provider interface {
	GetForecastByZone(ctx context.Context, zoneID string) ([]models.Forecast, error)
}

// Fetcher implements Provider over a ForecastClient, injecting a periodic
// synthetic failure to exercise caller resilience.
type Fetcher struct {
	client client.ForecastClient
	logger *zap.Logger
	count  atomic.Int64
}

// NewFetcher returns a Fetcher. The request counter starts at zero; the
// first injected failure is the fifth call since process start.
func NewFetcher(c client.ForecastClient, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client: c,
		logger: logger,
	}
}

// GetForecastByZone assigns the call its global request number, fails every
// fifth request before any network activity, and otherwise fetches and maps
// the zone's forecast periods.
func (f *Fetcher) GetForecastByZone(ctx context.Context, zoneID string) ([]models.Forecast, error) {
	n := f.count.Add(1)

	logger := f.logger.With(zap.String("zone", zoneID), zap.Int64("request_number", n))
	trace.SpanFromContext(ctx).SetAttributes(attribute.Int64("forecast.request_number", n))
	logger.Debug("forecast requested")

	if n%failureInterval == 0 {
		return nil, fmt.Errorf("%w: request %d", ErrInternal, n)
	}

	forecasts, err := f.client.GetForecast(ctx, zoneID)
	if err != nil {
		if errors.Is(err, client.ErrUpstreamFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}
	return forecasts, nil
}
