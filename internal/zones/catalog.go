package zones

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/zone-forecast-service/internal/cache"
	"github.com/kjstillabower/zone-forecast-service/internal/models"
)

// CacheKey is the single cache key reserved for the zone catalog.
const CacheKey = "zones"

// Provider serves the zone catalog. The bool result reports whether the
// zones came from cache; consumed by the instrumentation layer.
type Provider interface {
	GetZones(ctx context.Context) ([]models.Zone, bool)
}

// zonesDocument is the transport shape of the static zone resource, a
// GeoJSON-like feature collection. Consumed only during cache population.
type zonesDocument struct {
	Features []zoneFeature `json:"features"`
}

type zoneFeature struct {
	Properties *zoneProperties `json:"properties"`
}

// zoneProperties carries nullable fields; the station list may be absent.
type zoneProperties struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	State               string   `json:"state"`
	ObservationStations []string `json:"observationStations"`
}

// Catalog implements Provider using the cache-aside pattern over a static
// zone dataset. All failure modes degrade to an empty result with a warning
// log entry; GetZones never fails.
type Catalog struct {
	cache  cache.Cache
	path   string
	ttl    time.Duration
	logger *zap.Logger
}

// NewCatalog creates a Catalog reading the zone dataset from path and caching
// the result under CacheKey with the given TTL.
func NewCatalog(c cache.Cache, path string, ttl time.Duration, logger *zap.Logger) *Catalog {
	return &Catalog{
		cache:  c,
		path:   path,
		ttl:    ttl,
		logger: logger,
	}
}

// GetZones returns the zone catalog, populating the cache on first access.
// Concurrent first-callers may each run the population; the cache backend
// guarantees a single consistent stored value (last write wins).
func (c *Catalog) GetZones(ctx context.Context) ([]models.Zone, bool) {
	cached, ok, err := c.cache.Get(ctx, CacheKey)
	if err != nil {
		c.logger.Warn("zone cache read failed", zap.Error(err))
	} else if ok {
		return cached, true
	}

	zones := c.load()
	if zones == nil {
		// Tolerated degradation: nothing stored, next call retries.
		return []models.Zone{}, false
	}

	if err := c.cache.Set(ctx, CacheKey, zones, c.ttl); err != nil {
		c.logger.Warn("zone cache write failed", zap.Error(err))
	}
	return zones, false
}

// load reads and transforms the static resource. Returns nil when the
// resource is missing or malformed; the caller treats that as empty.
func (c *Catalog) load() []models.Zone {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		c.logger.Warn("zones resource unavailable", zap.String("path", c.path), zap.Error(err))
		return nil
	}

	var doc zonesDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		c.logger.Warn("zones resource malformed", zap.String("path", c.path), zap.Error(err))
		return nil
	}
	if doc.Features == nil {
		c.logger.Warn("zones resource has no feature list", zap.String("path", c.path))
		return nil
	}

	return transform(doc.Features)
}

// transform keeps features with a non-empty observation-station list, maps
// them to zones, and deduplicates by value equality preserving first
// occurrence order.
func transform(features []zoneFeature) []models.Zone {
	zones := make([]models.Zone, 0, len(features))
	seen := make(map[string]struct{}, len(features))
	for _, f := range features {
		p := f.Properties
		if p == nil || len(p.ObservationStations) == 0 {
			continue
		}
		z := models.Zone{
			Key:                 p.ID,
			Name:                p.Name,
			State:               p.State,
			ObservationStations: p.ObservationStations,
		}
		k := z.DedupKey()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		zones = append(zones, z)
	}
	return zones
}
