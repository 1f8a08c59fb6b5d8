//go:build mapbox

package mapbox

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/venue-locator-service/internal/domain"
	"github.com/couchcryptid/venue-locator-service/internal/observability"
)

// These tests hit the real Mapbox API and require a valid MAPBOX_TOKEN env var.
// Run with: go test -tags=mapbox ./internal/adapter/mapbox/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	token := os.Getenv("MAPBOX_TOKEN")
	if token == "" {
		t.Fatal("MAPBOX_TOKEN must be set to run smoke tests")
	}
	return NewClient(token, DefaultBaseURL, 10*time.Second, 1,
		slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
}

func TestSmoke_Search(t *testing.T) {
	c := smokeClient(t)

	fc, err := c.Search(context.Background(), domain.SearchParams{
		Text:     "Axiata Arena",
		Language: "en",
		Size:     5,
		Layers:   domain.PlaceLayers,
		Focus:    &domain.DevicePosition{Latitude: 3.0567, Longitude: 101.6851},
	})
	require.NoError(t, err)

	coords, _ := domain.NormalizeFeatures(fc)
	require.NotEmpty(t, coords)
	assert.InDelta(t, 3.05, coords[0].Latitude, 0.2, "lat should be near Bukit Jalil")
	assert.InDelta(t, 101.69, coords[0].Longitude, 0.2, "lon should be near Bukit Jalil")
}

func TestSmoke_Reverse(t *testing.T) {
	c := smokeClient(t)

	// Kuala Lumpur city centre.
	fc, err := c.Reverse(context.Background(), domain.ReverseParams{Latitude: 3.1390, Longitude: 101.6869, Size: 1})
	require.NoError(t, err)

	coords, _ := domain.NormalizeFeatures(fc)
	require.Len(t, coords, 1)
	assert.NotEmpty(t, coords[0].Label)
	assert.Equal(t, "Malaysia", coords[0].Country)
}

func TestSmoke_NonsenseQuery(t *testing.T) {
	c := smokeClient(t)

	// Fuzzy matching may still return results; only the absence of an error matters.
	_, err := c.Search(context.Background(), domain.SearchParams{Text: "XYZNONEXISTENT99"})
	require.NoError(t, err)
}
