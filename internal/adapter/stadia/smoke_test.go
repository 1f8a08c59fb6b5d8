//go:build stadia

package stadia

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/venue-locator-service/internal/domain"
)

// These tests hit the real Stadia Maps API and require STADIA_API_KEY.
// Run with: go test -tags=stadia ./internal/adapter/stadia/ -v -count=1

func smokeClient(t *testing.T) *Client {
	t.Helper()
	key := os.Getenv("STADIA_API_KEY")
	if key == "" {
		t.Fatal("STADIA_API_KEY must be set to run smoke tests")
	}
	return NewClient(key, slog.New(slog.NewTextHandler(io.Discard, nil)), WithRateLimit(1))
}

func TestSmoke_Search(t *testing.T) {
	c := smokeClient(t)

	fc, err := c.Search(context.Background(), domain.SearchParams{
		Text:     "bukit jalil",
		Language: "en",
		Size:     5,
		Layers:   domain.PlaceLayers,
		Focus:    &domain.DevicePosition{Latitude: 3.0567, Longitude: 101.6851},
	})
	require.NoError(t, err)

	coords, _ := domain.NormalizeFeatures(fc)
	require.NotEmpty(t, coords)
	assert.LessOrEqual(t, len(coords), 5)
	for _, c := range coords {
		assert.Contains(t, domain.PlaceLayers, c.Layer)
	}
}

func TestSmoke_Reverse(t *testing.T) {
	c := smokeClient(t)

	fc, err := c.Reverse(context.Background(), domain.ReverseParams{Latitude: 3.1390, Longitude: 101.6869, Language: "en", Size: 1})
	require.NoError(t, err)

	coords, _ := domain.NormalizeFeatures(fc)
	require.Len(t, coords, 1)
	assert.NotEmpty(t, coords[0].Label)
}
