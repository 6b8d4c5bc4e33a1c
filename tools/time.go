package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ToolGetCurrentTime is the name of the time tool.
const ToolGetCurrentTime = "get_current_time"

// TimeTool reports the current date and time.
type TimeTool struct {
	BaseTool
	now func() time.Time
}

// NewTimeTool creates the time tool.
func NewTimeTool(deps Dependencies) *TimeTool {
	return &TimeTool{now: deps.now}
}

// Metadata returns the tool metadata.
func (t *TimeTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        ToolGetCurrentTime,
		Title:       "Current time",
		Description: "Get the current date and time, optionally in an IANA time zone such as Europe/Prague",
		Parameters: []ToolParameter{
			{Name: "timezone", ParamType: "string", Description: "IANA time zone name, defaults to UTC", Required: false},
		},
	}
}

// Execute returns the time.
func (t *TimeTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a struct {
		Timezone string `json:"timezone"`
	}
	if _, err := decodeArgs(args, &a); err != nil {
		return ToolResult{}, err
	}

	loc := time.UTC
	if tz := strings.TrimSpace(a.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return ToolResult{}, fmt.Errorf("unknown time zone %q: %w", tz, err)
		}
		loc = l
	}

	now := t.now().In(loc)
	return JSONResult(map[string]any{
		"status":   StatusOK,
		"timezone": loc.String(),
		"iso":      now.Format(time.RFC3339),
		"date":     now.Format("2006-01-02"),
		"time":     now.Format("15:04:05"),
		"weekday":  now.Weekday().String(),
		"unix":     now.Unix(),
	})
}
