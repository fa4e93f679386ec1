package voice

import (
	"sync"
	"time"
)

// CycleMetrics tracks latency at each stage of one interaction cycle.
// All durations are measured from the moment the wake phrase was
// detected.
type CycleMetrics struct {
	// Timestamps for key events
	WakeTime       time.Time // When the wake phrase was detected
	TranscriptTime time.Time // When the command transcript was accepted
	ResponseTime   time.Time // When the command processor returned
	SpokenTime     time.Time // When the response finished speaking

	// Computed latencies (from wake detection)
	CaptureLatency  time.Duration // Time to capture the command
	ResponseLatency time.Duration // Time to get a response
	TotalLatency    time.Duration // Total wake-to-spoken latency
}

// FormatLatency returns a one-line summary of the cycle latencies.
func (m *CycleMetrics) FormatLatency() string {
	return formatDuration(m.CaptureLatency) + " capture | " +
		formatDuration(m.ResponseLatency) + " response | " +
		formatDuration(m.TotalLatency) + " total"
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "---ms"
	}
	return d.Round(time.Millisecond).String()
}

// MetricsCollector collects latency metrics across interaction cycles.
// It is goroutine-safe and can be used from multiple callbacks.
type MetricsCollector struct {
	mu      sync.Mutex
	current CycleMetrics
	history []CycleMetrics // Recent cycles for averaging

	cycles   int // Completed cycles
	timeouts int // Captures that ended in silence
	errors   int // Recognition and processing failures

	// Callback for metrics updates
	onUpdate func(CycleMetrics)
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		history: make([]CycleMetrics, 0, 100),
	}
}

// OnUpdate sets a callback that fires whenever a cycle completes.
func (m *MetricsCollector) OnUpdate(fn func(CycleMetrics)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUpdate = fn
}

// MarkWake records a wake detection and starts a new cycle.
// This is the reference point for all latency measurements.
func (m *MetricsCollector) MarkWake() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = CycleMetrics{} // Reset for new cycle
	m.current.WakeTime = time.Now()
}

// MarkTranscript records when the command transcript was accepted.
func (m *MetricsCollector) MarkTranscript() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.TranscriptTime = time.Now()
	if !m.current.WakeTime.IsZero() {
		m.current.CaptureLatency = m.current.TranscriptTime.Sub(m.current.WakeTime)
	}
}

// MarkResponse records when the command processor returned.
func (m *MetricsCollector) MarkResponse() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.ResponseTime = time.Now()
	if !m.current.WakeTime.IsZero() {
		m.current.ResponseLatency = m.current.ResponseTime.Sub(m.current.WakeTime)
	}
}

// MarkSpoken records when the spoken response finished, completing
// the cycle.
func (m *MetricsCollector) MarkSpoken() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current.SpokenTime = time.Now()
	if !m.current.WakeTime.IsZero() {
		m.current.TotalLatency = m.current.SpokenTime.Sub(m.current.WakeTime)
	}
	m.cycles++
	// Archive this cycle
	m.history = append(m.history, m.current)
	if len(m.history) > 100 {
		m.history = m.history[1:]
	}
	m.notify()
}

// RecordTimeout counts a capture that ended in silence.
func (m *MetricsCollector) RecordTimeout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.timeouts++
}

// RecordError counts a recognition or processing failure.
func (m *MetricsCollector) RecordError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors++
}

// Current returns the current cycle snapshot.
func (m *MetricsCollector) Current() CycleMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Counts returns the completed cycle, timeout, and error counts.
func (m *MetricsCollector) Counts() (cycles, timeouts, errors int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cycles, m.timeouts, m.errors
}

// Average returns average latencies over recent cycles.
func (m *MetricsCollector) Average() CycleMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.history) == 0 {
		return CycleMetrics{}
	}

	var avg CycleMetrics
	for _, h := range m.history {
		avg.CaptureLatency += h.CaptureLatency
		avg.ResponseLatency += h.ResponseLatency
		avg.TotalLatency += h.TotalLatency
	}

	n := time.Duration(len(m.history))
	avg.CaptureLatency /= n
	avg.ResponseLatency /= n
	avg.TotalLatency /= n

	return avg
}

// notify calls the update callback if set.
// Must be called with mutex held.
func (m *MetricsCollector) notify() {
	if m.onUpdate != nil {
		// Copy to avoid races
		metrics := m.current
		go m.onUpdate(metrics)
	}
}
