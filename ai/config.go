// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ai

import (
	"fmt"
	"strings"
	"time"
)

// Default values match the hosted OpenAI API.
const (
	DefaultBaseURL        = "https://api.openai.com/v1"
	DefaultEmbeddingModel = "text-embedding-ada-002"
	DefaultChatModel      = "gpt-3.5-turbo"
	DefaultDimension      = 1536
	DefaultTimeout        = 30 * time.Second
	DefaultTemperature    = 0.3
	DefaultMaxTokens      = 1000
)

// Config holds configuration for AI service providers.
type Config struct {
	// BaseURL is the OpenAI-compatible API root.
	// Example: "https://api.openai.com/v1"
	BaseURL string

	// APIKey is the bearer credential. Required.
	APIKey string

	// EmbeddingModel is the model identifier to use for text embeddings.
	EmbeddingModel string

	// ChatModel is the model identifier to use for completions.
	ChatModel string

	// Dimension is the expected embedding length. Vectors of any other length
	// are rejected.
	Dimension int

	// Timeout bounds every HTTP request to the API.
	Timeout time.Duration

	// Temperature and MaxTokens apply to completions.
	Temperature float64
	MaxTokens   int
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithBaseURL sets the API root URL.
func WithBaseURL(url string) ConfigOption {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithAPIKey sets the API credential.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithChatModel sets the completion model identifier.
func WithChatModel(model string) ConfigOption {
	return func(c *Config) {
		c.ChatModel = model
	}
}

// WithDimension sets the expected embedding length.
func WithDimension(dim int) ConfigOption {
	return func(c *Config) {
		c.Dimension = dim
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithCompletionParams sets temperature and max tokens for completions.
func WithCompletionParams(temperature float64, maxTokens int) ConfigOption {
	return func(c *Config) {
		c.Temperature = temperature
		c.MaxTokens = maxTokens
	}
}

// DefaultConfig returns a Config with the hosted OpenAI defaults and no API key.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        DefaultBaseURL,
		EmbeddingModel: DefaultEmbeddingModel,
		ChatModel:      DefaultChatModel,
		Dimension:      DefaultDimension,
		Timeout:        DefaultTimeout,
		Temperature:    DefaultTemperature,
		MaxTokens:      DefaultMaxTokens,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    WithEmbeddingModel("text-embedding-3-small"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It adds the /v1 suffix to BaseURL if missing, which is required by
// OpenAI-compatible APIs.
func (c *Config) Normalize() {
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	if c.BaseURL != "" && !strings.HasSuffix(c.BaseURL, "/v1") {
		c.BaseURL = strings.TrimSuffix(c.BaseURL, "/") + "/v1"
	}
	c.APIKey = strings.TrimSpace(c.APIKey)
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.APIKey == "" {
		return ErrAPIKeyRequired
	}
	if c.BaseURL == "" {
		return fmt.Errorf("%w: BaseURL is required", ErrInvalidConfig)
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("%w: EmbeddingModel is required", ErrInvalidConfig)
	}
	if c.ChatModel == "" {
		return fmt.Errorf("%w: ChatModel is required", ErrInvalidConfig)
	}
	if c.Dimension <= 0 {
		return fmt.Errorf("%w: Dimension must be positive", ErrInvalidConfig)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: Timeout must be positive", ErrInvalidConfig)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: Temperature must be between 0 and 2", ErrInvalidConfig)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("%w: MaxTokens must be positive", ErrInvalidConfig)
	}
	return nil
}
