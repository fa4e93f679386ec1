package protocol

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewPositionMessage creates a position message from a sample.
func NewPositionMessage(lat, lng, heading, speed float64, stepIndex int) (*Message, error) {
	return NewMessage(TypePosition, PositionData{
		Lat:       lat,
		Lng:       lng,
		Heading:   heading,
		Speed:     speed,
		StepIndex: stepIndex,
	})
}

// NewAnnouncementMessage creates a maneuver announcement message.
func NewAnnouncementMessage(text string, stepIndex int, distanceMeters float64) (*Message, error) {
	return NewMessage(TypeAnnouncement, AnnouncementData{
		Text:           text,
		StepIndex:      stepIndex,
		DistanceMeters: distanceMeters,
	})
}

// NewStateMessage creates an engine state snapshot message.
func NewStateMessage(state StateData) (*Message, error) {
	return NewMessage(TypeState, state)
}

// NewWakeMessage creates a wake detection message.
func NewWakeMessage(text string, confidence float64) (*Message, error) {
	return NewMessage(TypeWake, WakeData{
		Text:       text,
		Confidence: confidence,
	})
}

// NewResponseMessage creates an assistant reply message.
func NewResponseMessage(resp ResponseData) (*Message, error) {
	return NewMessage(TypeResponse, resp)
}

// NewRouteMessage creates a route attachment message.
func NewRouteMessage(route RouteData) (*Message, error) {
	return NewMessage(TypeRoute, route)
}

// NewLogMessage creates a log line message for the debug stream.
func NewLogMessage(level, source, message string) (*Message, error) {
	return NewMessage(TypeLog, LogData{
		Level:   level,
		Source:  source,
		Message: message,
	})
}

// NewPingMessage creates a ping message.
func NewPingMessage(id string) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: 0, // Will be set by NewMessage
	})
}

// NewPongMessage creates a pong response message.
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetPositionData extracts position data from a message.
func (m *Message) GetPositionData() (*PositionData, error) {
	var data PositionData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetAnnouncementData extracts announcement data from a message.
func (m *Message) GetAnnouncementData() (*AnnouncementData, error) {
	var data AnnouncementData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetStateData extracts state data from a message.
func (m *Message) GetStateData() (*StateData, error) {
	var data StateData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetWakeData extracts wake data from a message.
func (m *Message) GetWakeData() (*WakeData, error) {
	var data WakeData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetResponseData extracts response data from a message.
func (m *Message) GetResponseData() (*ResponseData, error) {
	var data ResponseData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetRouteData extracts route data from a message.
func (m *Message) GetRouteData() (*RouteData, error) {
	var data RouteData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetLogData extracts log data from a message.
func (m *Message) GetLogData() (*LogData, error) {
	var data LogData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPingData extracts ping data from a message.
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message.
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
