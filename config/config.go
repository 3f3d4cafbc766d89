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


package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/ai"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "OKUSURI"

// Config holds all configuration for the application
type Config struct {
	AI        AIConfig        `mapstructure:"ai"`
	Data      DataConfig      `mapstructure:"data"`
	Search    SearchConfig    `mapstructure:"search"`
	Ingestion IngestionConfig `mapstructure:"ingestion"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
}

// AIConfig holds OpenAI-compatible API settings
type AIConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	EmbeddingModel string        `mapstructure:"embedding_model"`
	ChatModel      string        `mapstructure:"chat_model"`
	Dimension      int           `mapstructure:"dimension"`
	Timeout        time.Duration `mapstructure:"timeout"`
	Temperature    float64       `mapstructure:"temperature"`
	MaxTokens      int           `mapstructure:"max_tokens"`
}

// DataConfig holds file locations
type DataConfig struct {
	Dir      string `mapstructure:"dir"`
	Catalog  string `mapstructure:"catalog"`
	IndexDir string `mapstructure:"index_dir"`
	CacheDir string `mapstructure:"cache_dir"`
}

// SearchConfig holds search and recommendation settings
type SearchConfig struct {
	TopK  int    `mapstructure:"top_k"`
	Rules string `mapstructure:"rules"` // empty uses the embedded rules

	// IngredientFallback overrides the rules file when set.
	IngredientFallback *bool `mapstructure:"ingredient_fallback"`
	LLMRerank          bool  `mapstructure:"llm_rerank"`
}

// IngestionConfig holds index build settings
type IngestionConfig struct {
	Workers           int           `mapstructure:"workers"`
	BatchSize         int           `mapstructure:"batch_size"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from path, or from okusuri.yaml in the usual
// locations when path is empty, then applies environment overrides.
// A missing default file is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("okusuri")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.okusuri")
	}

	// Environment variable settings
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	// Set default values
	setDefaults(v)

	// Read config file (optional when no path was given)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %w", ErrReadConfig, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindEnv registers keys without defaults and the OPENAI_* fallbacks.
func bindEnv(v *viper.Viper) error {
	bindings := [][]string{
		{"ai.api_key", EnvPrefix + "_AI_API_KEY", "OPENAI_API_KEY"},
		{"ai.chat_model", EnvPrefix + "_AI_CHAT_MODEL", "OPENAI_MODEL"},
		{"ai.embedding_model", EnvPrefix + "_AI_EMBEDDING_MODEL", "OPENAI_EMBEDDING_MODEL"},
		{"search.ingredient_fallback"},
	}
	for _, b := range bindings {
		if err := v.BindEnv(b...); err != nil {
			return fmt.Errorf("binding %s: %w", b[0], err)
		}
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// AI defaults
	v.SetDefault("ai.base_url", ai.DefaultBaseURL)
	v.SetDefault("ai.embedding_model", ai.DefaultEmbeddingModel)
	v.SetDefault("ai.chat_model", ai.DefaultChatModel)
	v.SetDefault("ai.dimension", ai.DefaultDimension)
	v.SetDefault("ai.timeout", ai.DefaultTimeout)
	v.SetDefault("ai.temperature", ai.DefaultTemperature)
	v.SetDefault("ai.max_tokens", ai.DefaultMaxTokens)

	// Data defaults
	v.SetDefault("data.dir", "./data")
	v.SetDefault("data.catalog", "./data/product_recommend.csv")
	v.SetDefault("data.index_dir", "./data/index")
	v.SetDefault("data.cache_dir", "./data/cache")

	// Search defaults
	v.SetDefault("search.top_k", 5)
	v.SetDefault("search.rules", "")
	v.SetDefault("search.llm_rerank", false)

	// Ingestion defaults
	v.SetDefault("ingestion.workers", 4)
	v.SetDefault("ingestion.batch_size", 16)
	v.SetDefault("ingestion.requests_per_second", 5)
	v.SetDefault("ingestion.max_retries", 3)
	v.SetDefault("ingestion.retry_delay", "1s")

	// Server defaults
	v.SetDefault("server.port", "8501")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Log defaults
	v.SetDefault("log.level", "INFO")
}

// validate validates the configuration
func validate(config *Config) error {
	if strings.TrimSpace(config.AI.APIKey) == "" {
		return fmt.Errorf("%w (set %s_AI_API_KEY or OPENAI_API_KEY)", ai.ErrAPIKeyRequired, EnvPrefix)
	}
	if err := config.AIConfig().Validate(); err != nil {
		return err
	}
	if config.Search.TopK <= 0 {
		return fmt.Errorf("%w: search.top_k must be positive, got %d", ErrInvalidConfig, config.Search.TopK)
	}
	if config.Ingestion.Workers <= 0 {
		return fmt.Errorf("%w: ingestion.workers must be positive, got %d", ErrInvalidConfig, config.Ingestion.Workers)
	}
	if config.Ingestion.BatchSize <= 0 {
		return fmt.Errorf("%w: ingestion.batch_size must be positive, got %d", ErrInvalidConfig, config.Ingestion.BatchSize)
	}
	if config.Ingestion.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: ingestion.requests_per_second must not be negative", ErrInvalidConfig)
	}
	if config.Ingestion.MaxRetries < 1 {
		return fmt.Errorf("%w: ingestion.max_retries must be at least 1", ErrInvalidConfig)
	}
	if config.Server.Port == "" {
		return fmt.Errorf("%w: server.port is required", ErrInvalidConfig)
	}
	switch config.Server.Environment {
	case "development", "production", "test":
	default:
		return fmt.Errorf("%w: server.environment must be development, production or test, got: %s", ErrInvalidConfig, config.Server.Environment)
	}
	if _, err := config.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// AIConfig converts the ai section into a provider configuration.
func (c *Config) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithBaseURL(c.AI.BaseURL),
		ai.WithAPIKey(c.AI.APIKey),
		ai.WithEmbeddingModel(c.AI.EmbeddingModel),
		ai.WithChatModel(c.AI.ChatModel),
		ai.WithDimension(c.AI.Dimension),
		ai.WithTimeout(c.AI.Timeout),
		ai.WithCompletionParams(c.AI.Temperature, c.AI.MaxTokens),
	)
}

// IsProduction reports whether the server runs in production mode.
func (c ServerConfig) IsProduction() bool {
	return c.Environment == "production"
}

// SlogLevel parses Level as a slog level name (DEBUG, INFO, WARN, ERROR).
func (c LogConfig) SlogLevel() (slog.Level, error) {
	return ParseLevel(c.Level)
}

// ParseLevel parses a slog level name. Matching is case-insensitive.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalidConfig, s)
	}
	return level, nil
}
