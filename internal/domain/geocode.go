package domain

import (
	"context"
	"log/slog"
)

// Geocoding property keys added to report properties.
const (
	PropPlaceName        = "place_name"
	PropFormattedAddress = "formatted_address"
	PropGeoConfidence    = "geo_confidence"
	PropGeoSource        = "geo_source" // "reverse", "original", "failed"
)

// EnrichWithPlace attempts to add place details to report properties.
// If geocoder is nil the properties are returned untouched; if geocoding fails
// or finds nothing, only geo_source is recorded (graceful degradation).
func EnrichWithPlace(ctx context.Context, props Properties, lat, lon float64, geocoder ReverseGeocoder, logger *slog.Logger) Properties {
	if geocoder == nil {
		return props
	}
	if props == nil {
		props = Properties{}
	}

	result, err := geocoder.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"lat", lat,
			"lon", lon,
			"error", err,
		)
		props[PropGeoSource] = "failed"
		return props
	}
	if result.FormattedAddress == "" {
		props[PropGeoSource] = "original"
		return props
	}

	props[PropFormattedAddress] = result.FormattedAddress
	if result.PlaceName != "" {
		props[PropPlaceName] = result.PlaceName
	}
	props[PropGeoConfidence] = result.Confidence
	props[PropGeoSource] = "reverse"
	return props
}
