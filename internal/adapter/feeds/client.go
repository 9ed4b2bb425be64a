package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/pulse-feed-service/internal/domain"
)

// Source names as used in logs, metrics and the passthrough routes.
const (
	SourceUSGS  = "usgs"
	SourceNWS   = "nws"
	SourceEONET = "eonet"
	SourceFIRMS = "firms"
)

// maxErrorBody bounds how much of a failed response is kept for the error.
const maxErrorBody = 512

// Config describes one upstream endpoint.
type Config struct {
	URL       string
	Timeout   time.Duration
	UserAgent string
}

// newHTTPClient builds a client with a bounded dialer; the overall request
// deadline is the per-source timeout.
func newHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// client is the GET helper shared by the fetchers.
type client struct {
	source     string
	url        string
	accept     string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

func newClient(source, accept string, cfg Config, logger *slog.Logger) *client {
	return &client{
		source:     source,
		url:        cfg.URL,
		accept:     accept,
		userAgent:  cfg.UserAgent,
		httpClient: newHTTPClient(cfg.Timeout),
		logger:     logger,
	}
}

// get performs the request and returns the body of a 2xx response.
func (c *client) get(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, &FetchError{Source: c.source, Kind: Upstream, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", c.accept)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Source: c.source, Kind: Unavailable, Err: c.redact(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{Source: c.source, Kind: Unavailable, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(body)
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &FetchError{Source: c.source, Kind: Upstream, StatusCode: resp.StatusCode, Body: snippet}
	}

	c.logger.Debug("feed fetched", "source", c.source, "bytes", len(body))
	return body, nil
}

// redact swaps the request URL in a transport error for the configured
// template, so a key substituted into the path never reaches logs or clients.
func (c *client) redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return &url.Error{Op: ue.Op, URL: c.url, Err: ue.Err}
	}
	return err
}

// getFeatureCollection fetches and decodes a GeoJSON FeatureCollection.
func (c *client) getFeatureCollection(ctx context.Context) (domain.FeatureCollection, error) {
	body, err := c.get(ctx, c.url)
	if err != nil {
		return domain.FeatureCollection{}, err
	}

	var fc domain.FeatureCollection
	if err := json.Unmarshal(body, &fc); err != nil {
		return domain.FeatureCollection{}, &FetchError{Source: c.source, Kind: Upstream, Err: fmt.Errorf("decode geojson: %w", err)}
	}
	if fc.Features == nil {
		fc.Features = []domain.Feature{}
	}
	if fc.Type == "" {
		fc.Type = "FeatureCollection"
	}
	return fc, nil
}
