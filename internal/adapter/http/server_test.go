package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/venue-locator-service/internal/adapter/http"
	"github.com/couchcryptid/venue-locator-service/internal/adapter/position"
	"github.com/couchcryptid/venue-locator-service/internal/domain"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

type mockPlaces struct {
	results   []domain.Coordinate
	reverse   domain.Coordinate
	found     bool
	lastQuery string
	lastLimit int
	lastPos   *domain.DevicePosition
	lastLat   float64
	lastLon   float64
}

func (m *mockPlaces) Search(ctx context.Context, query string, limit int) []domain.Coordinate {
	m.lastQuery = query
	m.lastLimit = limit
	if pos, ok := position.FromContext(ctx); ok {
		m.lastPos = &pos
	}
	if m.results == nil {
		return []domain.Coordinate{}
	}
	return m.results
}

func (m *mockPlaces) ReverseLookup(_ context.Context, lat, lon float64) (domain.Coordinate, bool) {
	m.lastLat, m.lastLon = lat, lon
	return m.reverse, m.found
}

func (m *mockPlaces) ResolveDevicePosition(ctx context.Context) (domain.DevicePosition, bool) {
	return position.FromContext(ctx)
}

func newTestServer(places *mockPlaces, readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", places, &mockReadiness{err: readyErr}, slog.Default())
}

func get(t *testing.T, srv http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

// --- health ---

func TestHealthzReturns200(t *testing.T) {
	rec := get(t, newTestServer(&mockPlaces{}, nil), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"healthy"`, string(decode(t, rec)["status"]))
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(t, newTestServer(&mockPlaces{}, nil), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `"ready"`, string(decode(t, rec)["status"]))
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(t, newTestServer(&mockPlaces{}, fmt.Errorf("not ready yet")), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode(t, rec)
	assert.JSONEq(t, `"not ready"`, string(body["status"]))
	assert.JSONEq(t, `"not ready yet"`, string(body["error"]))
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(&mockPlaces{}, nil), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// --- places ---

func TestSearch_ReturnsResults(t *testing.T) {
	d := 0.8
	places := &mockPlaces{results: []domain.Coordinate{{ID: "v1", Name: "Hall", Latitude: 3.06, Longitude: 101.68, DistanceKm: &d}}}
	rec := get(t, newTestServer(places, nil), "/v1/places/search?q=bukit+jalil&limit=3&lat=3.0567&lon=101.6851")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bukit jalil", places.lastQuery)
	assert.Equal(t, 3, places.lastLimit)
	require.NotNil(t, places.lastPos)
	assert.Equal(t, 3.0567, places.lastPos.Latitude)

	var body struct {
		Results []domain.Coordinate `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, "Hall", body.Results[0].Name)
	require.NotNil(t, body.Results[0].DistanceKm)
	assert.Equal(t, 0.8, *body.Results[0].DistanceKm)
}

func TestSearch_EmptyRendersArray(t *testing.T) {
	places := &mockPlaces{}
	rec := get(t, newTestServer(places, nil), "/v1/places/search?q=a")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"results":[]}`, rec.Body.String())
	assert.Equal(t, 0, places.lastLimit, "service applies its default")
	assert.Nil(t, places.lastPos)
}

func TestSearch_OmitsDistanceWhenUnranked(t *testing.T) {
	places := &mockPlaces{results: []domain.Coordinate{{ID: "v1", Name: "Hall"}}}
	rec := get(t, newTestServer(places, nil), "/v1/places/search?q=hall")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "distance_km")
	assert.Contains(t, rec.Body.String(), `"city":""`)
}

func TestSearch_InvalidParameters(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		wantErr string
	}{
		{"limit not a number", "q=hall&limit=five", "limit"},
		{"limit zero", "q=hall&limit=0", "limit"},
		{"limit too large", "q=hall&limit=41", "limit"},
		{"lat without lon", "q=hall&lat=3.05", "together"},
		{"lat out of range", "q=hall&lat=95&lon=101", "lat"},
		{"lon out of range", "q=hall&lat=3&lon=-181", "lon"},
		{"lat not a number", "q=hall&lat=north&lon=101", "lat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			places := &mockPlaces{}
			rec := get(t, newTestServer(places, nil), "/v1/places/search?"+tt.query)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body["error"], tt.wantErr)
			assert.Empty(t, places.lastQuery, "service not called")
		})
	}
}

func TestReverse_Found(t *testing.T) {
	places := &mockPlaces{reverse: domain.Coordinate{Name: "Axiata Arena", Label: "Axiata Arena, Kuala Lumpur"}, found: true}
	rec := get(t, newTestServer(places, nil), "/v1/places/reverse?lat=3.0545&lon=101.6912")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3.0545, places.lastLat)
	assert.Equal(t, 101.6912, places.lastLon)

	var body struct {
		Result domain.Coordinate `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Axiata Arena", body.Result.Name)
}

func TestReverse_NoMatch(t *testing.T) {
	rec := get(t, newTestServer(&mockPlaces{}, nil), "/v1/places/reverse?lat=0&lon=0")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"no match"}`, rec.Body.String())
}

func TestReverse_RequiresPoint(t *testing.T) {
	rec := get(t, newTestServer(&mockPlaces{}, nil), "/v1/places/reverse")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "required")
}

func TestPosition(t *testing.T) {
	srv := newTestServer(&mockPlaces{}, nil)

	rec := get(t, srv, "/v1/position?lat=3.0567&lon=101.6851")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"position":{"latitude":3.0567,"longitude":101.6851}}`, rec.Body.String())

	rec = get(t, srv, "/v1/position")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// --- readiness composition ---

func TestAllReady(t *testing.T) {
	ctx := context.Background()

	require.NoError(t, httpadapter.AllReady().CheckReadiness(ctx))
	require.NoError(t, httpadapter.AllReady(nil, &mockReadiness{}).CheckReadiness(ctx))

	err := httpadapter.AllReady(&mockReadiness{}, &mockReadiness{err: fmt.Errorf("pipeline idle")}).CheckReadiness(ctx)
	require.Error(t, err)
	assert.Equal(t, "pipeline idle", err.Error())
}
