package command

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RouteInfoLimit caps the serialized route summary so the prompt stays
// small.
const RouteInfoLimit = 500

// Context is the immutable situation snapshot sent with a transcript.
// Build a fresh one per command; empty fields are omitted from the
// flattened form.
type Context struct {
	// CurrentLocation is the position as "lat,lng" or a place name.
	CurrentLocation string

	// Destination is the active navigation target.
	Destination string

	// RouteInfo is the serialized route summary, already truncated.
	RouteInfo string

	// Traffic is a short traffic note ("moderate, 5 min delay").
	Traffic string

	// LocalTime is the wall-clock time at the vehicle.
	LocalTime string
}

// SetRouteInfo serializes v and stores it truncated to RouteInfoLimit.
func (c *Context) SetRouteInfo(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("command: marshal route info: %w", err)
	}
	c.RouteInfo = Truncate(string(data), RouteInfoLimit)
	return nil
}

// Flatten renders the snapshot as "- key: value" lines in a fixed
// order for the endpoint's prompt builder.
func (c *Context) Flatten() string {
	if c == nil {
		return ""
	}
	var b strings.Builder
	writeLine := func(key, value string) {
		if value == "" {
			return
		}
		b.WriteString("- ")
		b.WriteString(key)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteByte('\n')
	}
	writeLine("current_location", c.CurrentLocation)
	writeLine("destination", c.Destination)
	writeLine("route_info", c.RouteInfo)
	writeLine("traffic", c.Traffic)
	writeLine("local_time", c.LocalTime)
	return strings.TrimSuffix(b.String(), "\n")
}

// Truncate clips s to at most limit bytes.
func Truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return s[:limit]
}
