package feeds

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/pulse-feed-service/internal/domain"
)

// Upstream defaults.
const (
	DefaultQuakeURL     = "https://earthquake.usgs.gov/earthquakes/feed/v1.0/summary/all_hour.geojson"
	DefaultQuakeTimeout = 10 * time.Second

	DefaultAlertURL     = "https://api.weather.gov/alerts/active"
	DefaultAlertTimeout = 10 * time.Second

	DefaultEventURL     = "https://eonet.gsfc.nasa.gov/api/v3/events/geojson?status=open&days=7"
	DefaultEventTimeout = 12 * time.Second
)

// GeoJSONFetcher fetches a GeoJSON FeatureCollection from a fixed URL.
type GeoJSONFetcher struct {
	c *client
}

// NewQuakeFetcher fetches the USGS earthquake summary feed.
func NewQuakeFetcher(cfg Config, logger *slog.Logger) *GeoJSONFetcher {
	return &GeoJSONFetcher{c: newClient(SourceUSGS, "application/geo+json", withDefaults(cfg, DefaultQuakeURL, DefaultQuakeTimeout), logger)}
}

// NewAlertFetcher fetches NWS active alerts.
func NewAlertFetcher(cfg Config, logger *slog.Logger) *GeoJSONFetcher {
	return &GeoJSONFetcher{c: newClient(SourceNWS, "application/geo+json", withDefaults(cfg, DefaultAlertURL, DefaultAlertTimeout), logger)}
}

// NewEventFetcher fetches open EONET events.
func NewEventFetcher(cfg Config, logger *slog.Logger) *GeoJSONFetcher {
	return &GeoJSONFetcher{c: newClient(SourceEONET, "application/json", withDefaults(cfg, DefaultEventURL, DefaultEventTimeout), logger)}
}

// Source returns the feed name.
func (f *GeoJSONFetcher) Source() string {
	return f.c.source
}

// Fetch returns the upstream collection. Errors are *FetchError.
func (f *GeoJSONFetcher) Fetch(ctx context.Context) (domain.FeatureCollection, error) {
	return f.c.getFeatureCollection(ctx)
}

func withDefaults(cfg Config, url string, timeout time.Duration) Config {
	if cfg.URL == "" {
		cfg.URL = url
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = timeout
	}
	return cfg
}
