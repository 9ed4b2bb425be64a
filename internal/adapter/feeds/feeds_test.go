package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quakeBody = `{
	"type":"FeatureCollection",
	"metadata":{"count":2},
	"features":[
		{"type":"Feature","geometry":{"type":"Point","coordinates":[-122.4,37.8,8.1]},"properties":{"mag":4.5,"time":1700000000000,"place":"Oakland, CA"}},
		{"type":"Feature","geometry":{"type":"Point","coordinates":[-117.6,35.7,2.0]},"properties":{"mag":1.2,"time":1700000100000,"place":"Ridgecrest, CA"}}
	]}`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGeoJSONFetcher_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/geo+json", r.Header.Get("Accept"))
		assert.Equal(t, "pulse-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/geo+json")
		_, _ = w.Write([]byte(quakeBody))
	}))
	defer srv.Close()

	f := NewQuakeFetcher(Config{URL: srv.URL, Timeout: time.Second, UserAgent: "pulse-test"}, discardLogger())
	fc, err := f.Fetch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, SourceUSGS, f.Source())
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "Oakland, CA", fc.Features[0].Properties.String("place"))
	require.NotNil(t, fc.Features[0].Geometry.Point)
	assert.Equal(t, 37.8, fc.Features[0].Geometry.Point.Lat)
}

func TestGeoJSONFetcher_EmptyFeatures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"type":"FeatureCollection"}`))
	}))
	defer srv.Close()

	fc, err := NewEventFetcher(Config{URL: srv.URL}, discardLogger()).Fetch(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, fc.Features)
	assert.Empty(t, fc.Features)
}

func TestGeoJSONFetcher_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(strings.Repeat("x", 2000)))
	}))
	defer srv.Close()

	_, err := NewAlertFetcher(Config{URL: srv.URL, Timeout: time.Second}, discardLogger()).Fetch(context.Background())

	require.Error(t, err)
	var fe *FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, SourceNWS, fe.Source)
	assert.Equal(t, Upstream, fe.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, fe.StatusCode)
	assert.Len(t, fe.Body, maxErrorBody)
	assert.False(t, IsUnavailable(err))
}

func TestGeoJSONFetcher_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"features": [`))
	}))
	defer srv.Close()

	_, err := NewQuakeFetcher(Config{URL: srv.URL, Timeout: time.Second}, discardLogger()).Fetch(context.Background())

	require.Error(t, err)
	assert.Equal(t, Upstream, KindOf(err))
}

func TestGeoJSONFetcher_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewQuakeFetcher(Config{URL: srv.URL, Timeout: 50 * time.Millisecond}, discardLogger()).Fetch(context.Background())

	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.Contains(t, err.Error(), "usgs feed: unavailable")
}

func TestGeoJSONFetcher_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewEventFetcher(Config{URL: url, Timeout: time.Second}, discardLogger()).Fetch(context.Background())

	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
}

func TestGeoJSONFetcher_Defaults(t *testing.T) {
	f := NewEventFetcher(Config{}, discardLogger())
	assert.Equal(t, DefaultEventURL, f.c.url)
	assert.Equal(t, DefaultEventTimeout, f.c.httpClient.Timeout)
}

func TestHotspotFetcher_MissingKey(t *testing.T) {
	f := NewHotspotFetcher(Config{URL: "http://127.0.0.1:1/never"}, "", 0, discardLogger())

	fc, err := f.Fetch(context.Background())

	require.NoError(t, err)
	assert.Empty(t, fc.Features)
	assert.Equal(t, MissingKeyNote, fc.Note)

	data, err := json.Marshal(fc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[],"_note":"Set FIRMS_MAP_KEY to enable."}`, string(data))
}

func TestHotspotFetcher_ParsesCSV(t *testing.T) {
	csvBody := "latitude,longitude,bright_ti4,scan,track,acq_date,acq_time,satellite,instrument,confidence,version,bright_ti5,frp,daynight\n" +
		"-33.9,151.2,330.5,0.4,0.4,2024-04-26,0930,N20,VIIRS,h,2.0NRT,290.1,12.1,D\n" +
		",151.3,331.0,0.4,0.4,2024-04-26,0931,N20,VIIRS,n,2.0NRT,290.1,8.0,D\n" +
		"abc,151.4,331.0,0.4,0.4,2024-04-26,0932,N20,VIIRS,n,2.0NRT,290.1,8.0,D\n" +
		"-34.0,151.5,320.0,0.4,0.4,2024-04-26,1015,N20,VIIRS,l,2.0NRT,285.0,3.3,D\n"

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, "text/csv", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(csvBody))
	}))
	defer srv.Close()

	f := NewHotspotFetcher(Config{URL: srv.URL + "/api/area/csv/{key}/VIIRS_NOAA20_NRT/world/1", Timeout: time.Second}, "secret", 0, discardLogger())
	fc, err := f.Fetch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "/api/area/csv/secret/VIIRS_NOAA20_NRT/world/1", gotPath)
	require.Len(t, fc.Features, 2)

	first := fc.Features[0]
	assert.Equal(t, -33.9, first.Geometry.Point.Lat)
	assert.Equal(t, 151.2, first.Geometry.Point.Lon)
	assert.Equal(t, "FIRMS", first.Properties["source"])
	assert.Equal(t, "h", first.Properties["confidence"])
	assert.Equal(t, "330.5", first.Properties["brightness"])
	assert.Equal(t, "0930", first.Properties["acq_time"])
	assert.Equal(t, "12.1", first.Properties["frp"])
	assert.Equal(t, -34.0, fc.Features[1].Geometry.Point.Lat)
}

func TestHotspotFetcher_ErrorHidesKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	f := NewHotspotFetcher(Config{URL: base + "/api/area/csv/{key}/X/world/1", Timeout: time.Second}, "SECRETMAPKEY", 0, discardLogger())
	_, err := f.Fetch(context.Background())

	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.NotContains(t, err.Error(), "SECRETMAPKEY")
	assert.Contains(t, err.Error(), "{key}")
}

func TestParseHotspotCSV_RowCap(t *testing.T) {
	var b strings.Builder
	b.WriteString("latitude,longitude,confidence\n")
	for i := 0; i < 10; i++ {
		b.WriteString("10.5,20.5,n\n")
	}

	features, err := parseHotspotCSV(strings.NewReader(b.String()), 3)

	require.NoError(t, err)
	assert.Len(t, features, 3)
}

func TestParseHotspotCSV_EmptyBody(t *testing.T) {
	features, err := parseHotspotCSV(strings.NewReader(""), 10)

	require.NoError(t, err)
	assert.Empty(t, features)
}

func TestParseHotspotCSV_BrightnessFallback(t *testing.T) {
	features, err := parseHotspotCSV(strings.NewReader("latitude,longitude,brightness\n1,2,305.2\n"), 10)

	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.Equal(t, "305.2", features[0].Properties["brightness"])
}

func TestFetchError_Message(t *testing.T) {
	err := &FetchError{Source: SourceEONET, Kind: Unavailable, Err: context.DeadlineExceeded}
	assert.Equal(t, "eonet feed: unavailable: context deadline exceeded", err.Error())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, ErrorKind(0), KindOf(errors.New("plain")))
}
