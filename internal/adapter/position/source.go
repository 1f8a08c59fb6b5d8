// Package position provides domain.PositionSource implementations for a
// server process, where the "device" is the client that sent the request.
package position

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/couchcryptid/venue-locator-service/internal/domain"
)

type ctxKey struct{}

// NewContext returns a copy of ctx carrying the caller's position.
func NewContext(ctx context.Context, pos domain.DevicePosition) context.Context {
	return context.WithValue(ctx, ctxKey{}, pos)
}

// FromContext returns the position stored by NewContext.
func FromContext(ctx context.Context) (domain.DevicePosition, bool) {
	pos, ok := ctx.Value(ctxKey{}).(domain.DevicePosition)
	return pos, ok
}

// RequestSource reads the position the client attached to the request.
// Sharing a location is the client's grant of permission.
type RequestSource struct{}

func (RequestSource) RequestPermission(ctx context.Context) (domain.Permission, error) {
	if _, ok := FromContext(ctx); ok {
		return domain.PermissionGranted, nil
	}
	return domain.PermissionDenied, nil
}

func (RequestSource) CurrentPosition(ctx context.Context) (domain.DevicePosition, error) {
	pos, ok := FromContext(ctx)
	if !ok {
		return domain.DevicePosition{}, domain.ErrPermissionDenied
	}
	return pos, nil
}

// StaticSource always reports a fixed position, typically a configured
// home area.
type StaticSource struct {
	Position domain.DevicePosition
}

func (s StaticSource) RequestPermission(context.Context) (domain.Permission, error) {
	return domain.PermissionGranted, nil
}

func (s StaticSource) CurrentPosition(context.Context) (domain.DevicePosition, error) {
	return s.Position, nil
}

// ParseStatic parses "lat,lon" into a StaticSource.
func ParseStatic(s string) (StaticSource, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return StaticSource{}, fmt.Errorf("invalid position %q: want lat,lon", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return StaticSource{}, fmt.Errorf("invalid latitude %q: %w", latStr, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return StaticSource{}, fmt.Errorf("invalid longitude %q: %w", lonStr, err)
	}
	pos := domain.DevicePosition{Latitude: lat, Longitude: lon}
	if !pos.Valid() {
		return StaticSource{}, fmt.Errorf("position %q out of range", s)
	}
	return StaticSource{Position: pos}, nil
}

// Chain consults sources in order. Permission is granted if any source
// grants it, and the position comes from the first granting source that
// produces one.
type Chain []domain.PositionSource

func (c Chain) RequestPermission(ctx context.Context) (domain.Permission, error) {
	var firstErr error
	for _, s := range c {
		perm, err := s.RequestPermission(ctx)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if perm == domain.PermissionGranted {
			return domain.PermissionGranted, nil
		}
	}
	if firstErr != nil {
		return domain.PermissionUndetermined, firstErr
	}
	return domain.PermissionDenied, nil
}

func (c Chain) CurrentPosition(ctx context.Context) (domain.DevicePosition, error) {
	for _, s := range c {
		perm, err := s.RequestPermission(ctx)
		if err != nil || perm != domain.PermissionGranted {
			continue
		}
		pos, err := s.CurrentPosition(ctx)
		if err != nil {
			continue
		}
		return pos, nil
	}
	return domain.DevicePosition{}, domain.ErrPositionUnavailable
}
