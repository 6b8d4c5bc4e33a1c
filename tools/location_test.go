package tools

import (
	"context"
	"testing"
	"time"

	"github.com/richinex/agentbook/pending"
	"github.com/richinex/agentbook/runtimectx"
)

func float(v float64) *float64 { return &v }

func TestLocationFromRuntimeContext(t *testing.T) {
	tool := NewLocationTool(Dependencies{})
	tests := map[string]struct {
		loc  runtimectx.UserLocation
		want string
	}{
		"granted":     {runtimectx.UserLocation{Permission: runtimectx.PermissionGranted, Latitude: float(50.08), Longitude: float(14.42)}, StatusOK},
		"denied":      {runtimectx.UserLocation{Permission: runtimectx.PermissionDenied}, StatusPermissionDenied},
		"unavailable": {runtimectx.UserLocation{Permission: runtimectx.PermissionUnavailable}, StatusUnavailable},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			loc := tt.loc
			out := execute(t, tool, withContext(t, runtimectx.Context{UserLocation: &loc}, nil))
			if out["status"] != tt.want {
				t.Errorf("expected %s, got %v", tt.want, out["status"])
			}
		})
	}
}

func TestLocationWithoutCorrelator(t *testing.T) {
	out := execute(t, NewLocationTool(Dependencies{}), nil)
	if out["status"] != StatusUnavailable {
		t.Errorf("expected unavailable, got %v", out["status"])
	}
}

func TestLocationWaitsForBrowser(t *testing.T) {
	requests := pending.NewLocationRequests()
	registry, err := NewRegistryWith(NewLocationTool(Dependencies{Locations: requests, LocationTimeout: time.Second}))
	if err != nil {
		t.Fatalf("NewRegistryWith failed: %v", err)
	}
	invoker := NewInvoker(registry, DefaultToolConfig())

	done := make(chan ToolResult, 1)
	go func() {
		result, err := invoker.Invoke(context.Background(), Call{ID: "call-42", Name: ToolGetUserLocation}, "")
		if err != nil {
			t.Errorf("Invoke failed: %v", err)
		}
		done <- result
	}()

	deadline := time.Now().Add(time.Second)
	for !requests.Correlator().IsPending("call-42") {
		if time.Now().After(deadline) {
			t.Fatal("location request never became pending")
		}
		time.Sleep(5 * time.Millisecond)
	}
	requests.FulfillUserLocation("call-42", runtimectx.UserLocation{
		Permission: runtimectx.PermissionGranted, Latitude: float(1), Longitude: float(2),
	})

	result := <-done
	if result.Status() != StatusOK {
		t.Errorf("expected ok, got %s (%s)", result.Status(), result.Output)
	}
}

func TestLocationTimeout(t *testing.T) {
	tool := NewLocationTool(Dependencies{Locations: pending.NewLocationRequests(), LocationTimeout: 20 * time.Millisecond})
	result, err := tool.Execute(WithCallID(context.Background(), "slow"), nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Status() != StatusUnavailable {
		t.Errorf("expected unavailable after timeout, got %s", result.Status())
	}
}
