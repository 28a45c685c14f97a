package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kjstillabower/zone-forecast-service/internal/models"
)

// ForecastClient fetches the forecast period list for a single zone from the
// remote forecast source.
type ForecastClient interface {
	GetForecast(ctx context.Context, zoneID string) ([]models.Forecast, error)
}

var (
	// ErrUpstreamFailure marks transport-level failures: the remote call
	// itself errored or returned a non-success status. The endpoint layer
	// maps this to a not-found response.
	ErrUpstreamFailure = errors.New("upstream request failed")
)

// HTTPForecastClient implements ForecastClient against an NWS-style API.
// No retries are performed here; retry policy, if any, belongs to the caller.
type HTTPForecastClient struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// NewHTTPForecastClient creates a forecast client bound to the given base URL.
func NewHTTPForecastClient(baseURL string, timeout time.Duration) (*HTTPForecastClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("forecast API URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid forecast API URL: %w", err)
	}
	return &HTTPForecastClient{
		baseURL: baseURL,
		timeout: timeout,
		client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// forecastResponse is the upstream response shape. Field matching is
// case-insensitive, so both "properties" and "Properties" decode.
type forecastResponse struct {
	Properties struct {
		Periods []periodRecord `json:"periods"`
	} `json:"properties"`
}

type periodRecord struct {
	Number           int       `json:"number"`
	Name             string    `json:"name"`
	StartTime        time.Time `json:"startTime"`
	EndTime          time.Time `json:"endTime"`
	IsDaytime        bool      `json:"isDaytime"`
	Temperature      int       `json:"temperature"`
	TemperatureUnit  string    `json:"temperatureUnit"`
	WindSpeed        string    `json:"windSpeed"`
	WindDirection    string    `json:"windDirection"`
	Icon             string    `json:"icon"`
	ShortForecast    string    `json:"shortForecast"`
	DetailedForecast string    `json:"detailedForecast"`
}

// GetForecast issues a single outbound request for the zone's forecast and
// maps the response periods, in order, to Forecast values. An absent or empty
// period list yields an empty slice, not an error.
func (c *HTTPForecastClient) GetForecast(ctx context.Context, zoneID string) ([]models.Forecast, error) {
	reqCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	reqURL := fmt.Sprintf("%s/zones/forecast/%s/forecast", c.baseURL, url.PathEscape(zoneID))
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response body: %v", ErrUpstreamFailure, err)
	}

	var apiResp forecastResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("parse forecast response: %w", err)
	}

	return mapPeriods(apiResp.Properties.Periods), nil
}

func mapPeriods(periods []periodRecord) []models.Forecast {
	forecasts := make([]models.Forecast, 0, len(periods))
	for _, p := range periods {
		forecasts = append(forecasts, models.Forecast{
			Number:           p.Number,
			Name:             p.Name,
			StartTime:        p.StartTime,
			EndTime:          p.EndTime,
			IsDaytime:        p.IsDaytime,
			Temperature:      p.Temperature,
			TemperatureUnit:  p.TemperatureUnit,
			WindSpeed:        p.WindSpeed,
			WindDirection:    p.WindDirection,
			Icon:             p.Icon,
			ShortForecast:    p.ShortForecast,
			DetailedForecast: p.DetailedForecast,
		})
	}
	return forecasts
}
