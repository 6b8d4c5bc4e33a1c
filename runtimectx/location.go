package runtimectx

import (
	"encoding/json"
	"strings"
)

// Location permission states reported by the browser.
const (
	PermissionGranted     = "granted"
	PermissionDenied      = "denied"
	PermissionUnavailable = "unavailable"
)

// UserLocation is the browser geolocation payload.
type UserLocation struct {
	Permission           string   `json:"permission"`
	Latitude             *float64 `json:"latitude,omitempty"`
	Longitude            *float64 `json:"longitude,omitempty"`
	AccuracyMeters       *float64 `json:"accuracyMeters,omitempty"`
	AltitudeMeters       *float64 `json:"altitudeMeters,omitempty"`
	HeadingDegrees       *float64 `json:"headingDegrees,omitempty"`
	SpeedMetersPerSecond *float64 `json:"speedMetersPerSecond,omitempty"`
	Timestamp            string   `json:"timestamp,omitempty"`
}

// HasCoordinates reports whether latitude and longitude are both present.
func (l UserLocation) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// SerializeUserLocation encodes a location for the string prompt parameter.
func SerializeUserLocation(l UserLocation) (string, error) {
	data, err := json.Marshal(l)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ParseUserLocation decodes a location payload. Invalid JSON, non-object
// JSON and unknown permission values yield nil.
func ParseUserLocation(raw string) *UserLocation {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw[0] != '{' {
		return nil
	}
	var l UserLocation
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		return nil
	}
	switch l.Permission {
	case PermissionGranted, PermissionDenied, PermissionUnavailable:
		return &l
	default:
		return nil
	}
}
