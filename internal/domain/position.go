package domain

import (
	"context"
	"errors"
)

// Permission is the state of the caller's location permission.
type Permission int

const (
	PermissionUndetermined Permission = iota
	PermissionGranted
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "undetermined"
	}
}

var (
	// ErrPermissionDenied is returned by a PositionSource read without permission.
	ErrPermissionDenied = errors.New("location permission denied")

	// ErrPositionUnavailable is returned when no fix can be obtained.
	ErrPositionUnavailable = errors.New("position unavailable")
)

// PositionSource reads the device location.
type PositionSource interface {
	// RequestPermission asks for permission to read the location, prompting
	// only if the platform has not already recorded an answer.
	RequestPermission(ctx context.Context) (Permission, error)

	// CurrentPosition reads a single fix.
	CurrentPosition(ctx context.Context) (DevicePosition, error)
}
