// Package stadia implements domain.Geocoder against the Stadia Maps
// geocoding API, which serves Pelias GeoJSON.
package stadia

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/venue-locator-service/internal/domain"
	"github.com/couchcryptid/venue-locator-service/internal/observability"
)

const (
	// DefaultBaseURL is the Stadia Maps geocoding endpoint.
	DefaultBaseURL = "https://api.stadiamaps.com/geocoding"
	// DefaultTimeout bounds each provider request.
	DefaultTimeout = 5 * time.Second
	// DefaultRateLimit is requests per second.
	DefaultRateLimit = 10.0

	provider = "stadia"
)

// Client implements domain.Geocoder using the Stadia Maps Pelias API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRateLimit sets a client-side rate limit in requests per second. Zero or
// less disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithMetrics records provider latency and outcomes.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a Stadia Maps geocoding client.
func NewClient(apiKey string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: DefaultBaseURL,
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search calls /v1/search.
func (c *Client) Search(ctx context.Context, p domain.SearchParams) (domain.FeatureCollection, error) {
	params := url.Values{}
	params.Set("text", p.Text)
	if p.Language != "" {
		params.Set("lang", p.Language)
	}
	if p.Size > 0 {
		params.Set("size", strconv.Itoa(p.Size))
	}
	if len(p.Layers) > 0 {
		params.Set("layers", strings.Join(p.Layers, ","))
	}
	if p.Focus != nil {
		params.Set("focus.point.lat", formatCoord(p.Focus.Latitude))
		params.Set("focus.point.lon", formatCoord(p.Focus.Longitude))
	}

	return c.doRequest(ctx, "search", "/v1/search", params)
}

// Reverse calls /v1/reverse.
func (c *Client) Reverse(ctx context.Context, p domain.ReverseParams) (domain.FeatureCollection, error) {
	params := url.Values{}
	params.Set("point.lat", formatCoord(p.Latitude))
	params.Set("point.lon", formatCoord(p.Longitude))
	if p.Language != "" {
		params.Set("lang", p.Language)
	}
	size := p.Size
	if size <= 0 {
		size = 1
	}
	params.Set("size", strconv.Itoa(size))

	return c.doRequest(ctx, "reverse", "/v1/reverse", params)
}

func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values) (fc domain.FeatureCollection, err error) {
	start := time.Now()
	defer func() { c.observe(method, start, err) }()

	if err := c.limiter.Wait(ctx); err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("rate limiter: %w", err)
	}

	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	fullURL := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("%s request: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.FeatureCollection{}, fmt.Errorf("stadia API error: status %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("decode response: %w", err)
	}

	c.logger.Debug("stadia geocode", "method", method, "features", len(fc.Features))
	return fc, nil
}

func (c *Client) observe(method string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.metrics.GeocoderRequests.WithLabelValues(provider, method, outcome).Inc()
	c.metrics.GeocoderDuration.WithLabelValues(provider, method).Observe(time.Since(start).Seconds())
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
