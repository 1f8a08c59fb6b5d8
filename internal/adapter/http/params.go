package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/venue-locator-service/internal/adapter/position"
	"github.com/couchcryptid/venue-locator-service/internal/domain"
)

// MaxLimit caps the number of search results a client may request.
const MaxLimit = 40

var errPartialPoint = errors.New("lat and lon must be given together")

type searchQuery struct {
	Text  string   `validate:"max=256"`
	Limit int      `validate:"min=0,max=40"`
	Lat   *float64 `validate:"omitempty,latitude"`
	Lon   *float64 `validate:"omitempty,longitude"`
}

type pointQuery struct {
	Lat *float64 `validate:"omitempty,latitude"`
	Lon *float64 `validate:"omitempty,longitude"`
}

type requiredPointQuery struct {
	Lat *float64 `validate:"required,latitude"`
	Lon *float64 `validate:"required,longitude"`
}

func parseSearchQuery(r *http.Request) (searchQuery, error) {
	v := r.URL.Query()
	q := searchQuery{Text: v.Get("q")}

	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return q, fmt.Errorf("invalid limit %q", s)
		}
		if n < 1 {
			return q, fmt.Errorf("limit must be between 1 and %d", MaxLimit)
		}
		q.Limit = n
	}

	var err error
	q.Lat, q.Lon, err = parsePoint(v.Get("lat"), v.Get("lon"))
	return q, err
}

func parsePoint(latStr, lonStr string) (lat, lon *float64, err error) {
	if (latStr == "") != (lonStr == "") {
		return nil, nil, errPartialPoint
	}
	if latStr == "" {
		return nil, nil, nil
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid lat %q", latStr)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid lon %q", lonStr)
	}
	return &la, &lo, nil
}

// withPosition attaches the client-supplied position, if any.
func withPosition(ctx context.Context, lat, lon *float64) context.Context {
	if lat == nil || lon == nil {
		return ctx
	}
	return position.NewContext(ctx, domain.DevicePosition{Latitude: *lat, Longitude: *lon})
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "latitude":
		return "lat must be between -90 and 90"
	case "longitude":
		return "lon must be between -180 and 180"
	case "max":
		if field == "limit" {
			return fmt.Sprintf("limit must be between 1 and %d", MaxLimit)
		}
		return field + " is too long"
	default:
		return fmt.Sprintf("invalid %s", field)
	}
}
