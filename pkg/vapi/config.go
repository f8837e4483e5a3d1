package vapi

import (
	"log/slog"
	"time"
)

// Config holds configuration for the engine client.
type Config struct {
	// APIKey authorizes REST calls. This is the org's private key and
	// must come from the environment, never from source.
	APIKey string

	// WorkflowID is the conversation flow to run. Mutually exclusive
	// with AssistantID.
	WorkflowID string

	// AssistantID is a single assistant to talk to instead of a
	// workflow.
	AssistantID string

	// BaseURL overrides the default API endpoint.
	BaseURL string

	// SampleRate is the PCM16 sample rate in Hz for both directions.
	SampleRate int

	// AudioEnabled controls whether the call is created with an audio
	// transport. Text-only sessions (tests, dashboards) can disable it.
	AudioEnabled bool

	// Timeout is the REST and dial timeout.
	Timeout time.Duration

	// ReadTimeout is the timeout for reading events.
	ReadTimeout time.Duration

	// WriteTimeout is the timeout for writing control messages.
	WriteTimeout time.Duration

	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      "https://api.vapi.ai",
		SampleRate:   16000,
		AudioEnabled: true,
		Timeout:      30 * time.Second,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 30 * time.Second,
		Logger:       slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks the configuration for required fields.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.WorkflowID == "" && c.AssistantID == "" {
		return ErrMissingTarget
	}
	if c.WorkflowID != "" && c.AssistantID != "" {
		return ErrAmbiguousTarget
	}
	return nil
}

// Option is a functional option for configuring the client.
type Option func(*Config)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithWorkflow sets the workflow ID to run.
func WithWorkflow(id string) Option {
	return func(c *Config) {
		c.WorkflowID = id
	}
}

// WithAssistant sets the assistant ID to talk to.
func WithAssistant(id string) Option {
	return func(c *Config) {
		c.AssistantID = id
	}
}

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithSampleRate sets the PCM sample rate.
func WithSampleRate(rate int) Option {
	return func(c *Config) {
		c.SampleRate = rate
	}
}

// WithAudio enables or disables the audio transport.
func WithAudio(enabled bool) Option {
	return func(c *Config) {
		c.AudioEnabled = enabled
	}
}

// WithTimeout sets the REST and dial timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithReadTimeout sets the event read timeout.
func WithReadTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.ReadTimeout = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}
