package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/zone-forecast-service/internal/client"
	"github.com/kjstillabower/zone-forecast-service/internal/models"
)

// ZoneSource serves the zone catalog. Never fails; degradations surface as an
// empty catalog.
type ZoneSource interface {
	GetZones(ctx context.Context) []models.Zone
}

// ForecastSource retrieves the forecast period sequence for a zone.
type ForecastSource interface {
	GetForecastByZone(ctx context.Context, zoneID string) ([]models.Forecast, error)
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	zones     ZoneSource
	forecasts ForecastSource
	logger    *zap.Logger
}

// NewHandler returns a new Handler.
func NewHandler(zones ZoneSource, forecasts ForecastSource, logger *zap.Logger) *Handler {
	return &Handler{
		zones:     zones,
		forecasts: forecasts,
		logger:    logger,
	}
}

// GetZones handles GET /zones.
func (h *Handler) GetZones(w http.ResponseWriter, r *http.Request) {
	zones := h.zones.GetZones(r.Context())
	writeJSON(w, http.StatusOK, zones)
}

// GetForecast handles GET /forecast/{zoneId}. Upstream failures map to 404,
// everything else to 500.
func (h *Handler) GetForecast(w http.ResponseWriter, r *http.Request) {
	zoneID := strings.TrimSpace(mux.Vars(r)["zoneId"])
	if zoneID == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_ZONE", "zone id is required")
		return
	}

	result, err := h.forecasts.GetForecastByZone(r.Context(), zoneID)
	if err != nil {
		if errors.Is(err, client.ErrUpstreamFailure) {
			writeError(w, r, http.StatusNotFound, "ZONE_NOT_FOUND", "no forecast available for zone")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "forecast lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetHealth handles GET /healthz.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "zone-forecast-service",
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v := r.Context().Value("correlation_id"); v != nil {
		if s, ok := v.(string); ok {
			corrID = s
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}
