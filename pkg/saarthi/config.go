// Package saarthi wires the assistant together: provider chains,
// session registry, gateway server, route tracking and the optional
// simulated drive.
package saarthi

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/sunosaarthi/go-saarthi/internal/config"
)

// Default configuration values.
const (
	DefaultHost = "0.0.0.0"
	DefaultPort = 8000
)

// Config holds all configuration for the assistant.
// Flag parsing is done in cmd/saarthi/main.go; this struct is data only.
type Config struct {
	// Debug enables verbose debug logging.
	Debug bool

	// Gateway listen address.
	Host string
	Port int

	// Mode is the default travel mode for directions.
	Mode string

	// Language is the response language tag (BCP 47).
	Language string

	// LLM generation parameters.
	LLMModel       string
	LLMMaxTokens   int
	LLMTemperature float64

	// SilenceTimeout bounds voice command capture.
	SilenceTimeout time.Duration

	// Simulate walks newly routed destinations with the drive
	// simulator, feeding the tracker synthetic positions.
	Simulate bool

	// API keys (typically from environment variables).
	GoogleMapsKey string
	GeminiKey     string
	OpenAIKey     string

	// LLMBaseURL points providers at a self-hosted inference gateway.
	LLMBaseURL string

	// UplinkURL is the fleet dashboard WebSocket endpoint. Empty
	// disables the uplink.
	UplinkURL string
}

// DefaultConfig returns sensible defaults for the assistant.
func DefaultConfig() Config {
	return Config{
		Host:           DefaultHost,
		Port:           DefaultPort,
		Mode:           "driving",
		Language:       "en-IN",
		LLMMaxTokens:   100,
		LLMTemperature: 0.9,
		SilenceTimeout: 4 * time.Second,
	}
}

// LoadEnvConfig loads configuration values from environment variables.
// Call this after flag parsing to apply environment overrides.
func (c *Config) LoadEnvConfig() {
	c.Host = config.Str("SAARTHI_HOST", c.Host)
	c.Port = config.Int("SAARTHI_PORT", c.Port)
	c.GoogleMapsKey = os.Getenv("GOOGLE_MAPS_API_KEY")
	c.GeminiKey = os.Getenv("GEMINI_API_KEY")
	c.OpenAIKey = os.Getenv("OPENAI_API_KEY")

	if url := os.Getenv("LLM_BASE_URL"); url != "" {
		c.LLMBaseURL = url
	}
	if url := os.Getenv("SAARTHI_UPLINK_URL"); url != "" {
		c.UplinkURL = url
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return &ConfigError{Field: "Port", Message: fmt.Sprintf("port %d out of range", c.Port)}
	}
	if c.LLMMaxTokens < 1 {
		return &ConfigError{Field: "LLMMaxTokens", Message: "LLM max tokens must be positive"}
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return &ConfigError{Field: "LLMTemperature", Message: "LLM temperature must be between 0 and 2"}
	}
	if c.SilenceTimeout <= 0 {
		return &ConfigError{Field: "SilenceTimeout", Message: "silence timeout must be positive"}
	}
	return nil
}

// Addr returns the gateway listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
