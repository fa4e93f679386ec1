package nav

// Traffic levels ordered by severity.
const (
	TrafficLight    = "light"
	TrafficModerate = "moderate"
	TrafficHeavy    = "heavy"
	TrafficSevere   = "severe"
)

// TrafficInfo reports congestion between two points.
type TrafficInfo struct {
	// HasTraffic is true when travel time is meaningfully above normal.
	HasTraffic bool `json:"has_traffic"`

	// Level is one of the Traffic* constants.
	Level string `json:"traffic_level"`

	// DelayMinutes is the extra travel time caused by traffic.
	DelayMinutes int `json:"delay_minutes"`

	// NormalSeconds is the free-flow travel time.
	NormalSeconds int `json:"normal_duration"`

	// CurrentSeconds is the travel time in current traffic.
	CurrentSeconds int `json:"current_duration"`
}

// ClassifyTraffic grades congestion from free-flow and in-traffic
// travel times. Ratios below 1.1 count as light, below 1.3 moderate,
// below 1.5 heavy, anything above that severe.
func ClassifyTraffic(normalSeconds, currentSeconds int) *TrafficInfo {
	info := &TrafficInfo{
		Level:          TrafficLight,
		NormalSeconds:  normalSeconds,
		CurrentSeconds: currentSeconds,
	}
	if normalSeconds <= 0 {
		return info
	}
	ratio := float64(currentSeconds) / float64(normalSeconds)
	switch {
	case ratio < 1.1:
		info.Level = TrafficLight
	case ratio < 1.3:
		info.Level = TrafficModerate
	case ratio < 1.5:
		info.Level = TrafficHeavy
	default:
		info.Level = TrafficSevere
	}
	info.HasTraffic = ratio > 1.1
	if delta := currentSeconds - normalSeconds; delta > 0 {
		info.DelayMinutes = delta / 60
	}
	return info
}
