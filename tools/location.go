// User location tool.
//
// Information Hiding:
// - Browser round trip hidden behind pending.LocationRequests
// - Permission outcomes mapped to the closed status vocabulary

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/richinex/agentbook/pending"
	"github.com/richinex/agentbook/runtimectx"
)

// ToolGetUserLocation is the name of the location tool.
const ToolGetUserLocation = "get_user_location"

// LocationTool reports the user's position. A location already present in
// the runtime context is used directly; otherwise the call waits for the
// browser to post one back under the tool call id.
type LocationTool struct {
	BaseTool
	requests *pending.LocationRequests
	timeout  time.Duration
	logger   *slog.Logger
}

// NewLocationTool creates the location tool.
func NewLocationTool(deps Dependencies) *LocationTool {
	timeout := deps.LocationTimeout
	if timeout <= 0 {
		timeout = pending.DefaultLocationTimeout
	}
	return &LocationTool{requests: deps.Locations, timeout: timeout, logger: deps.logger()}
}

// Metadata returns the tool metadata.
func (t *LocationTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        ToolGetUserLocation,
		Title:       "User location",
		Description: "Get the current geographic location of the user. The user may be asked for permission",
		Parameters:  []ToolParameter{},
	}
}

// MaxDuration lets the invoker wait as long as the browser round trip.
func (t *LocationTool) MaxDuration() time.Duration {
	return t.timeout + time.Second
}

type locationOutput struct {
	Status   string                   `json:"status"`
	Message  string                   `json:"message,omitempty"`
	Location *runtimectx.UserLocation `json:"location,omitempty"`
}

// Execute resolves the location.
func (t *LocationTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	rc, err := decodeArgs(args, nil)
	if err != nil {
		return ToolResult{}, err
	}
	if rc != nil && rc.UserLocation != nil {
		return locationResult(*rc.UserLocation)
	}

	callID := CallIDFrom(ctx)
	if t.requests == nil || callID == "" {
		return JSONResult(locationOutput{Status: StatusUnavailable, Message: "location is not available in this conversation"})
	}

	loc, err := t.requests.WaitForUserLocation(ctx, callID, pending.WaitOptions{Timeout: t.timeout})
	switch {
	case err == nil:
		return locationResult(loc)
	case errors.Is(err, pending.ErrTimeout):
		return JSONResult(locationOutput{Status: StatusUnavailable, Message: "the browser did not share a location in time"})
	case errors.Is(err, pending.ErrRejected):
		return JSONResult(locationOutput{Status: StatusUnavailable, Message: err.Error()})
	case errors.Is(err, pending.ErrAlreadyPending):
		return ToolResult{}, err
	default:
		t.logger.Debug("location wait ended", "call_id", callID, "error", err)
		return JSONResult(locationOutput{Status: StatusUnavailable, Message: err.Error()})
	}
}

func locationResult(loc runtimectx.UserLocation) (ToolResult, error) {
	switch loc.Permission {
	case runtimectx.PermissionGranted:
		if !loc.HasCoordinates() {
			return JSONResult(locationOutput{Status: StatusUnavailable, Message: "the browser returned no coordinates"})
		}
		return JSONResult(locationOutput{Status: StatusOK, Location: &loc})
	case runtimectx.PermissionDenied:
		return JSONResult(locationOutput{Status: StatusPermissionDenied, Message: "the user denied access to location"})
	default:
		return JSONResult(locationOutput{Status: StatusUnavailable, Message: "location is unavailable on this device"})
	}
}
