// Package protocol defines the event envelope shared by the gateway's
// WebSocket streams and the uplink. Every event is a typed JSON
// message; clients switch on the type and decode the payload they
// care about.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of event message.
type MessageType string

const (
	// Engine → clients
	TypePosition     MessageType = "position"     // Traveler position sample
	TypeAnnouncement MessageType = "announcement" // Spoken maneuver announcement
	TypeState        MessageType = "state"        // Engine state snapshot
	TypeWake         MessageType = "wake"         // Wake phrase detected
	TypeResponse     MessageType = "response"     // Assistant reply
	TypeRoute        MessageType = "route"        // Route attached or replaced
	TypeLog          MessageType = "log"          // Gateway log line

	// Bidirectional
	TypePing MessageType = "ping" // Keepalive
	TypePong MessageType = "pong" // Keepalive response
)

// Message is the base wrapper for all event messages.
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp.
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct.
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message.
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes.
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &msg, nil
}

// =============================================================================
// Engine → Client Message Types
// =============================================================================

// PositionData is one traveler position sample.
type PositionData struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Heading   float64 `json:"heading,omitempty"` // Degrees from north
	Speed     float64 `json:"speed,omitempty"`   // Meters per second
	StepIndex int     `json:"step_index"`
}

// AnnouncementData is a maneuver announcement the engine spoke (or
// would speak) to the driver.
type AnnouncementData struct {
	Text           string  `json:"text"`
	StepIndex      int     `json:"step_index"`
	DistanceMeters float64 `json:"distance_meters"` // To the maneuver point
}

// StateData is a full engine state snapshot.
type StateData struct {
	Phase       string          `json:"phase"` // Voice controller phase
	Running     bool            `json:"running"`
	Muted       bool            `json:"muted"`
	Destination string          `json:"destination,omitempty"`
	SessionID   string          `json:"session_id,omitempty"`
	Tracking    *TrackingInfo   `json:"tracking,omitempty"`
	Simulation  *SimulationInfo `json:"simulation,omitempty"`
}

// TrackingInfo summarizes route progress.
type TrackingInfo struct {
	Active       bool   `json:"active"`
	Arrived      bool   `json:"arrived"`
	StepIndex    int    `json:"step_index"`
	StepCount    int    `json:"step_count"`
	Instruction  string `json:"instruction,omitempty"`
	DistanceText string `json:"distance_remaining,omitempty"`
	DurationText string `json:"duration_remaining,omitempty"`
}

// SimulationInfo summarizes the route simulator.
type SimulationInfo struct {
	Running bool `json:"running"`
	Paused  bool `json:"paused"`
	Speed   int  `json:"speed"` // Multiplier: 1, 2 or 3
}

// WakeData reports a detected wake phrase.
type WakeData struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// ResponseData is an assistant reply delivered to the driver.
type ResponseData struct {
	Text              string `json:"text"`
	SessionID         string `json:"session_id,omitempty"`
	DestinationChange string `json:"destination_change,omitempty"`
	ReloadMap         bool   `json:"reload_map,omitempty"`
	Fallback          bool   `json:"fallback,omitempty"` // Canned local reply
}

// RouteData describes a route that was attached or replaced.
type RouteData struct {
	Summary         string `json:"summary,omitempty"`
	Destination     string `json:"destination,omitempty"`
	DistanceMeters  int    `json:"distance_meters"`
	DurationSeconds int    `json:"duration_seconds"`
	DistanceText    string `json:"distance_text,omitempty"`
	DurationText    string `json:"duration_text,omitempty"`
	Polyline        string `json:"polyline,omitempty"` // Encoded overview path
}

// LogData is one gateway log line for the debug stream.
type LogData struct {
	Level   string `json:"level"`
	Source  string `json:"source"`
	Message string `json:"message"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information.
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response.
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
