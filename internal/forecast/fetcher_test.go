package forecast

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/kjstillabower/zone-forecast-service/internal/client"
	"github.com/kjstillabower/zone-forecast-service/internal/models"
)

type mockForecastClient struct {
	forecasts []models.Forecast
	err       error
	calls     atomic.Int64
}

func (m *mockForecastClient) GetForecast(ctx context.Context, zoneID string) ([]models.Forecast, error) {
	m.calls.Add(1)
	return m.forecasts, m.err
}

func TestFailureInjectionCadence(t *testing.T) {
	mock := &mockForecastClient{forecasts: []models.Forecast{{Name: "Tonight"}}}
	fetcher := NewFetcher(mock, zap.NewNop())
	ctx := context.Background()

	for i := 1; i <= 12; i++ {
		_, err := fetcher.GetForecastByZone(ctx, fmt.Sprintf("Z%03d", i))
		if i%5 == 0 {
			if !errors.Is(err, ErrInternal) {
				t.Errorf("call %d: got %v, want ErrInternal", i, err)
			}
		} else if err != nil {
			t.Errorf("call %d: unexpected error %v", i, err)
		}
	}

	// Injected failures must not reach the network: 12 calls, 2 injected.
	if got := mock.calls.Load(); got != 10 {
		t.Errorf("client called %d times, want 10", got)
	}
}

func TestFailureCounterIsGlobalAcrossZones(t *testing.T) {
	mock := &mockForecastClient{}
	fetcher := NewFetcher(mock, zap.NewNop())
	ctx := context.Background()

	zones := []string{"WAZ558", "ORZ006", "WAZ558", "CAZ006", "ORZ006"}
	var lastErr error
	for _, z := range zones {
		_, lastErr = fetcher.GetForecastByZone(ctx, z)
	}
	if !errors.Is(lastErr, ErrInternal) {
		t.Errorf("5th call across mixed zones: got %v, want ErrInternal", lastErr)
	}
}

func TestUpstreamFailurePropagates(t *testing.T) {
	mock := &mockForecastClient{err: fmt.Errorf("%w: HTTP 503", client.ErrUpstreamFailure)}
	fetcher := NewFetcher(mock, zap.NewNop())

	_, err := fetcher.GetForecastByZone(context.Background(), "WAZ558")
	if !errors.Is(err, client.ErrUpstreamFailure) {
		t.Errorf("got %v, want ErrUpstreamFailure", err)
	}
	if errors.Is(err, ErrInternal) {
		t.Error("upstream failure must not be classified as internal")
	}
}

func TestUnexpectedFailureBecomesInternal(t *testing.T) {
	mock := &mockForecastClient{err: errors.New("parse forecast response: unexpected EOF")}
	fetcher := NewFetcher(mock, zap.NewNop())

	_, err := fetcher.GetForecastByZone(context.Background(), "WAZ558")
	if !errors.Is(err, ErrInternal) {
		t.Errorf("got %v, want ErrInternal", err)
	}
}

func TestForecastPassthrough(t *testing.T) {
	want := []models.Forecast{{Number: 1, Name: "Tonight"}, {Number: 2, Name: "Monday"}}
	mock := &mockForecastClient{forecasts: want}
	fetcher := NewFetcher(mock, zap.NewNop())

	got, err := fetcher.GetForecastByZone(context.Background(), "WAZ558")
	if err != nil {
		t.Fatalf("GetForecastByZone: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Tonight" || got[1].Name != "Monday" {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

// Counter assignment must not race or duplicate: across N concurrent calls,
// exactly floor(N/5) fail with ErrInternal.
func TestFailureInjectionUnderConcurrency(t *testing.T) {
	mock := &mockForecastClient{}
	fetcher := NewFetcher(mock, zap.NewNop())
	ctx := context.Background()

	const total = 60
	var wg sync.WaitGroup
	var failures atomic.Int64
	for i := 0; i < total; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := fetcher.GetForecastByZone(ctx, "WAZ558"); errors.Is(err, ErrInternal) {
				failures.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := failures.Load(); got != total/failureInterval {
		t.Errorf("got %d injected failures, want %d", got, total/failureInterval)
	}
	if got := mock.calls.Load(); got != total-total/failureInterval {
		t.Errorf("client called %d times, want %d", got, total-total/failureInterval)
	}
}
