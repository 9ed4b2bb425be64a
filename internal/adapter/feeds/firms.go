package feeds

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/pulse-feed-service/internal/domain"
)

const (
	// DefaultHotspotURL is the FIRMS area API for VIIRS NOAA-20, world, last day.
	// {key} is replaced with the MAP_KEY.
	DefaultHotspotURL     = "https://firms.modaps.eosdis.nasa.gov/api/area/csv/{key}/VIIRS_NOAA20_NRT/world/1"
	DefaultHotspotTimeout = 20 * time.Second
	DefaultHotspotMaxRows = 1500

	// MissingKeyNote annotates the empty collection returned without a key.
	MissingKeyNote = "Set FIRMS_MAP_KEY to enable."
)

// hotspotColumns are copied into feature properties when present.
var hotspotColumns = []string{
	"acq_date", "acq_time", "instrument", "satellite", "confidence",
	"frp", "daynight", "bright_ti4", "bright_ti5", "version",
}

// HotspotFetcher fetches FIRMS detections as CSV and converts them to Points.
type HotspotFetcher struct {
	c       *client
	key     string
	maxRows int
}

// NewHotspotFetcher creates a FIRMS fetcher. An empty key disables fetching.
func NewHotspotFetcher(cfg Config, key string, maxRows int, logger *slog.Logger) *HotspotFetcher {
	if maxRows <= 0 {
		maxRows = DefaultHotspotMaxRows
	}
	return &HotspotFetcher{
		c:       newClient(SourceFIRMS, "text/csv", withDefaults(cfg, DefaultHotspotURL, DefaultHotspotTimeout), logger),
		key:     key,
		maxRows: maxRows,
	}
}

// Source returns the feed name.
func (f *HotspotFetcher) Source() string {
	return f.c.source
}

// Fetch returns at most maxRows detections. Without a key it returns an empty,
// annotated collection and no error.
func (f *HotspotFetcher) Fetch(ctx context.Context) (domain.FeatureCollection, error) {
	if f.key == "" {
		fc := domain.NewFeatureCollection(nil)
		fc.Note = MissingKeyNote
		return fc, nil
	}

	body, err := f.c.get(ctx, strings.ReplaceAll(f.c.url, "{key}", f.key))
	if err != nil {
		return domain.FeatureCollection{}, err
	}

	features, err := parseHotspotCSV(bytes.NewReader(body), f.maxRows)
	if err != nil {
		return domain.FeatureCollection{}, &FetchError{Source: f.c.source, Kind: Upstream, Err: err}
	}
	return domain.NewFeatureCollection(features), nil
}

// parseHotspotCSV converts rows to Point features. Rows whose latitude or
// longitude is missing or invalid are skipped; reading stops after maxRows rows.
func parseHotspotCSV(r io.Reader, maxRows int) ([]domain.Feature, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}

	column := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var features []domain.Feature
	for rows := 0; rows < maxRows; rows++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", rows+1, err)
		}

		lat, errLat := strconv.ParseFloat(column(row, "latitude"), 64)
		lon, errLon := strconv.ParseFloat(column(row, "longitude"), 64)
		if errLat != nil || errLon != nil || !domain.ValidCoordinate(lat, lon) {
			continue
		}

		props := domain.Properties{"source": "FIRMS"}
		for _, name := range hotspotColumns {
			if v := column(row, name); v != "" {
				props[name] = v
			}
		}
		if v := column(row, "bright_ti4"); v != "" {
			props["brightness"] = v
		} else if v := column(row, "brightness"); v != "" {
			props["brightness"] = v
		}
		features = append(features, domain.NewPointFeature(lat, lon, props))
	}
	return features, nil
}
