package pending

import (
	"context"
	"errors"
	"time"

	"github.com/richinex/agentbook/runtimectx"
)

// DefaultLocationTimeout bounds how long a tool waits for the browser.
const DefaultLocationTimeout = 60 * time.Second

// WaitOptions configures a location wait.
type WaitOptions struct {
	Timeout time.Duration // zero means DefaultLocationTimeout
}

func (o WaitOptions) timeout() time.Duration {
	if o.Timeout <= 0 {
		return DefaultLocationTimeout
	}
	return o.Timeout
}

// LocationRequests correlates get_user_location calls with the geolocation
// payload the browser posts back.
type LocationRequests struct {
	requests *Correlator[runtimectx.UserLocation]
}

// NewLocationRequests creates an empty location correlator.
func NewLocationRequests() *LocationRequests {
	return &LocationRequests{requests: New[runtimectx.UserLocation]()}
}

// Correlator exposes the underlying correlator for hooks and sweeping.
func (l *LocationRequests) Correlator() *Correlator[runtimectx.UserLocation] {
	return l.requests
}

// BeginUserLocation registers a pending location request without blocking.
func (l *LocationRequests) BeginUserLocation(callID string, opts WaitOptions) (*Request[runtimectx.UserLocation], error) {
	return l.requests.Begin(callID, opts.timeout())
}

// WaitForUserLocation registers callID and blocks until the browser answers,
// the request is rejected, or the timeout elapses.
func (l *LocationRequests) WaitForUserLocation(ctx context.Context, callID string, opts WaitOptions) (runtimectx.UserLocation, error) {
	req, err := l.BeginUserLocation(callID, opts)
	if err != nil {
		return runtimectx.UserLocation{}, err
	}
	return req.Wait(ctx)
}

// FulfillUserLocation delivers the browser payload. Returns false for
// unknown or already settled ids.
func (l *LocationRequests) FulfillUserLocation(callID string, loc runtimectx.UserLocation) bool {
	return l.requests.Fulfill(callID, loc)
}

// RejectUserLocationRequest ends a pending request with reason.
func (l *LocationRequests) RejectUserLocationRequest(callID, reason string) bool {
	return l.requests.Reject(callID, errors.New(reason))
}
