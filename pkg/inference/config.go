package inference

import (
	"log/slog"
	"time"
)

// Config holds provider configuration.
type Config struct {
	// BaseURL is the API base URL.
	BaseURL string

	// Keys supplies the rotating credential pool.
	Keys *KeyRing

	// Model is the default chat model.
	Model string

	// Request defaults.
	MaxTokens   int
	Temperature float64
	TopP        float64
	TopK        int

	// Timeout for a single request.
	Timeout time.Duration

	// Logger for observability.
	Logger *slog.Logger
}

// Option is a functional option for configuring providers.
type Option func(*Config)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithKeyRing sets the rotating credential pool.
func WithKeyRing(ring *KeyRing) Option {
	return func(c *Config) { c.Keys = ring }
}

// WithModel sets the default chat model.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithMaxTokens sets the default max tokens.
func WithMaxTokens(n int) Option {
	return func(c *Config) { c.MaxTokens = n }
}

// WithTemperature sets the default temperature.
func WithTemperature(t float64) Option {
	return func(c *Config) { c.Temperature = t }
}

// WithTopP sets the default nucleus sampling parameter.
func WithTopP(p float64) Option {
	return func(c *Config) { c.TopP = p }
}

// WithTopK sets the default top-k sampling parameter.
func WithTopK(k int) Option {
	return func(c *Config) { c.TopK = k }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns sensible defaults for Gemini.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "https://generativelanguage.googleapis.com/v1beta",
		Model:       "gemini-2.0-flash",
		MaxTokens:   8192,
		Temperature: 1.0,
		TopP:        0.95,
		TopK:        40,
		Timeout:     30 * time.Second,
		Logger:      slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
