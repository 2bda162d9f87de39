// Package geo resolves free-text place phrases to coordinates using a
// Nominatim-compatible search endpoint.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultBaseURL = "https://nominatim.openstreetmap.org"

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Location is a successful geocoding hit.
type Location struct {
	Lat         float64
	Lng         float64
	DisplayName string
}

// Config holds the geocoder client settings.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Client queries a Nominatim-compatible geocoding service.
type Client struct {
	httpClient HTTPClient
	log        *slog.Logger
	cfg        Config
}

// NewClient creates a geocoder client.
func NewClient(httpClient HTTPClient, cfg Config, log *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		httpClient: httpClient,
		log:        log.With("component", "geocoder"),
		cfg:        cfg,
	}
}

// Geocode resolves a place phrase to coordinates. A miss (no result, or a
// result without usable lat/lon) returns nil with no error; only transport
// failures are reported as errors.
func (c *Client) Geocode(ctx context.Context, place string) (*Location, error) {
	q := url.Values{}
	q.Set("q", place)
	q.Set("format", "json")
	q.Set("limit", "1")

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("geocode: create request: %w", err)
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("geocode: read response: %w", err)
	}

	var hits []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
	}
	if err := json.Unmarshal(body, &hits); err != nil {
		return nil, fmt.Errorf("geocode: decode response: %w", err)
	}
	if len(hits) == 0 {
		c.log.Debug("geocoder miss", "place", place)
		return nil, nil
	}

	lat, latErr := strconv.ParseFloat(hits[0].Lat, 64)
	lng, lngErr := strconv.ParseFloat(hits[0].Lon, 64)
	if latErr != nil || lngErr != nil {
		c.log.Debug("geocoder hit without usable coordinates", "place", place)
		return nil, nil
	}

	return &Location{Lat: lat, Lng: lng, DisplayName: hits[0].DisplayName}, nil
}
