package mapbox

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

// DefaultBaseURL is the Mapbox Geocoding v5 places endpoint.
const DefaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

const provider = "mapbox"

// Client implements domain.Geocoder using the Mapbox Geocoding API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a Mapbox geocoding client. A rateLimit of zero or less
// disables client-side limiting. metrics may be nil.
func NewClient(token, baseURL string, timeout time.Duration, rateLimit float64, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	limit := rate.Inf
	if rateLimit > 0 {
		limit = rate.Limit(rateLimit)
	}
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: rate.NewLimiter(limit, 1),
		logger:  logger,
		metrics: metrics,
	}
}

// Search runs a forward geocode. Venue and address layers map to the poi and
// address place types.
func (c *Client) Search(ctx context.Context, p domain.SearchParams) (domain.FeatureCollection, error) {
	u := fmt.Sprintf("%s/%s.json", c.baseURL, url.PathEscape(p.Text))
	params := url.Values{
		"access_token": {c.token},
	}
	if p.Size > 0 {
		params.Set("limit", strconv.Itoa(p.Size))
	}
	if p.Language != "" {
		params.Set("language", p.Language)
	}
	if types := placeTypes(p.Layers); types != "" {
		params.Set("types", types)
	}
	if p.Focus != nil {
		// Mapbox uses lon,lat order.
		params.Set("proximity", fmt.Sprintf("%.6f,%.6f", p.Focus.Longitude, p.Focus.Latitude))
	}

	return c.doRequest(ctx, u+"?"+params.Encode(), "search")
}

// Reverse converts coordinates to the places at them.
func (c *Client) Reverse(ctx context.Context, p domain.ReverseParams) (domain.FeatureCollection, error) {
	coord := fmt.Sprintf("%.6f,%.6f", p.Longitude, p.Latitude)
	u := fmt.Sprintf("%s/%s.json", c.baseURL, coord)
	size := p.Size
	if size <= 0 {
		size = 1
	}
	params := url.Values{
		"access_token": {c.token},
		"limit":        {strconv.Itoa(size)},
	}
	if p.Language != "" {
		params.Set("language", p.Language)
	}
	// Mapbox rejects limit > 1 on reverse queries unless a single type is set.
	if size > 1 {
		params.Set("types", "poi")
	}

	return c.doRequest(ctx, u+"?"+params.Encode(), "reverse")
}

func (c *Client) doRequest(ctx context.Context, fullURL, method string) (fc domain.FeatureCollection, err error) {
	start := time.Now()
	defer func() { c.observe(method, start, err) }()

	if err := c.limiter.Wait(ctx); err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("%s geocode request: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.FeatureCollection{}, fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}

	var mapboxResp response
	if err := json.NewDecoder(resp.Body).Decode(&mapboxResp); err != nil {
		return domain.FeatureCollection{}, fmt.Errorf("decode response: %w", err)
	}

	fc.Features = make([]domain.RawFeature, 0, len(mapboxResp.Features))
	for _, f := range mapboxResp.Features {
		fc.Features = append(fc.Features, f.toRaw())
	}
	c.logger.Debug("mapbox geocode", "method", method, "features", len(fc.Features))
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

func placeTypes(layers []string) string {
	types := make([]string, 0, len(layers))
	for _, l := range layers {
		switch l {
		case domain.LayerVenue:
			types = append(types, "poi")
		case domain.LayerAddress:
			types = append(types, "address")
		}
	}
	return strings.Join(types, ",")
}

// Mapbox API response types.

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	ID        string         `json:"id"`
	PlaceType []string       `json:"place_type"`
	Center    []float64      `json:"center"` // [lon, lat]
	PlaceName string         `json:"place_name"`
	Text      string         `json:"text"`
	Address   string         `json:"address"`
	Context   []contextEntry `json:"context"`
}

type contextEntry struct {
	ID   string `json:"id"` // "<type>.<n>", e.g. "place.123"
	Text string `json:"text"`
}

// toRaw maps a Mapbox feature into the Pelias layout.
func (f feature) toRaw() domain.RawFeature {
	props := &domain.RawProperties{
		GID:   f.ID,
		Layer: layerFor(f.PlaceType),
		Name:  f.Text,
		Label: f.PlaceName,
	}

	if props.Layer == domain.LayerAddress {
		props.Street = f.Text
		props.AddressComponents = &domain.RawAddressComponents{Number: f.Address, Street: f.Text}
	}

	wof := &domain.RawWhosOnFirst{}
	for _, ctx := range f.Context {
		kind, _, _ := strings.Cut(ctx.ID, ".")
		ref := &domain.RawPlaceRef{GID: ctx.ID, Name: ctx.Text}
		switch kind {
		case "place":
			wof.Locality = ref
		case "region":
			wof.Region = ref
		case "country":
			wof.Country = ref
		case "postcode":
			props.PostalCode = ctx.Text
		}
	}
	props.Context = &domain.RawContext{WhosOnFirst: wof}

	raw := domain.RawFeature{ID: f.ID, Properties: props}
	if len(f.Center) == 2 {
		raw.Geometry = &domain.RawGeometry{Type: "Point", Coordinates: f.Center}
	}
	return raw
}

func layerFor(placeTypes []string) string {
	if len(placeTypes) == 0 {
		return ""
	}
	switch placeTypes[0] {
	case "poi":
		return domain.LayerVenue
	case "address":
		return domain.LayerAddress
	default:
		return placeTypes[0]
	}
}
