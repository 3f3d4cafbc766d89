package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/ai"
)

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test. Empty values are treated as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_EMBEDDING_MODEL",
		"OKUSURI_AI_API_KEY", "OKUSURI_AI_CHAT_MODEL", "OKUSURI_AI_EMBEDDING_MODEL",
		"OKUSURI_AI_TIMEOUT", "OKUSURI_SEARCH_TOP_K", "OKUSURI_SEARCH_INGREDIENT_FALLBACK",
		"OKUSURI_SERVER_PORT", "OKUSURI_SERVER_ENVIRONMENT", "OKUSURI_LOG_LEVEL",
		"OKUSURI_INGESTION_WORKERS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.AI.APIKey)
	assert.Equal(t, ai.DefaultBaseURL, cfg.AI.BaseURL)
	assert.Equal(t, ai.DefaultEmbeddingModel, cfg.AI.EmbeddingModel)
	assert.Equal(t, ai.DefaultChatModel, cfg.AI.ChatModel)
	assert.Equal(t, 1536, cfg.AI.Dimension)
	assert.Equal(t, 30*time.Second, cfg.AI.Timeout)
	assert.Equal(t, 0.3, cfg.AI.Temperature)
	assert.Equal(t, 1000, cfg.AI.MaxTokens)

	assert.Equal(t, "./data/product_recommend.csv", cfg.Data.Catalog)
	assert.Equal(t, "./data/index", cfg.Data.IndexDir)
	assert.Equal(t, "./data/cache", cfg.Data.CacheDir)

	assert.Equal(t, 5, cfg.Search.TopK)
	assert.Empty(t, cfg.Search.Rules)
	assert.Nil(t, cfg.Search.IngredientFallback, "unset means the rules decide")
	assert.False(t, cfg.Search.LLMRerank)

	assert.Equal(t, 4, cfg.Ingestion.Workers)
	assert.Equal(t, 16, cfg.Ingestion.BatchSize)
	assert.Equal(t, 5.0, cfg.Ingestion.RequestsPerSecond)
	assert.Equal(t, 3, cfg.Ingestion.MaxRetries)
	assert.Equal(t, time.Second, cfg.Ingestion.RetryDelay)

	assert.Equal(t, "8501", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Environment)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.False(t, cfg.Server.IsProduction())

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelInfo, level)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("OKUSURI_AI_API_KEY", "sk-okusuri")
	t.Setenv("OPENAI_MODEL", "gpt-4o-mini")
	t.Setenv("OKUSURI_AI_TIMEOUT", "5s")
	t.Setenv("OKUSURI_SEARCH_TOP_K", "10")
	t.Setenv("OKUSURI_SEARCH_INGREDIENT_FALLBACK", "false")
	t.Setenv("OKUSURI_SERVER_PORT", "9090")
	t.Setenv("OKUSURI_SERVER_ENVIRONMENT", "production")
	t.Setenv("OKUSURI_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sk-okusuri", cfg.AI.APIKey, "prefixed variable wins")
	assert.Equal(t, "gpt-4o-mini", cfg.AI.ChatModel)
	assert.Equal(t, 5*time.Second, cfg.AI.Timeout)
	assert.Equal(t, 10, cfg.Search.TopK)
	require.NotNil(t, cfg.Search.IngredientFallback)
	assert.False(t, *cfg.Search.IngredientFallback)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.True(t, cfg.Server.IsProduction())

	level, err := cfg.Log.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "okusuri.yaml")
	yaml := `
ai:
  api_key: sk-file
  base_url: http://localhost:11434
  embedding_model: nomic-embed-text
  dimension: 768
search:
  top_k: 3
  ingredient_fallback: true
  llm_rerank: true
ingestion:
  workers: 2
server:
  allowed_origins: ["https://shop.example.com"]
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sk-file", cfg.AI.APIKey)
	assert.Equal(t, 768, cfg.AI.Dimension)
	assert.Equal(t, 3, cfg.Search.TopK)
	require.NotNil(t, cfg.Search.IngredientFallback)
	assert.True(t, *cfg.Search.IngredientFallback)
	assert.True(t, cfg.Search.LLMRerank)
	assert.Equal(t, 2, cfg.Ingestion.Workers)
	assert.Equal(t, []string{"https://shop.example.com"}, cfg.Server.AllowedOrigins)

	aiCfg := cfg.AIConfig()
	require.NoError(t, aiCfg.Validate())
	assert.Equal(t, "http://localhost:11434/v1", aiCfg.BaseURL)
	assert.Equal(t, "nomic-embed-text", aiCfg.EmbeddingModel)
	assert.Equal(t, 768, aiCfg.Dimension)

	t.Setenv("OKUSURI_INGESTION_WORKERS", "8")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Ingestion.Workers, "environment overrides the file")
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing api key", func(t *testing.T) {
		clearEnv(t)
		_, err := Load("")
		assert.ErrorIs(t, err, ai.ErrAPIKeyRequired)
	})

	t.Run("missing explicit file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OPENAI_API_KEY", "sk-test")
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, ErrReadConfig)
	})

	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown environment", map[string]string{"OKUSURI_SERVER_ENVIRONMENT": "staging"}},
		{"bad log level", map[string]string{"OKUSURI_LOG_LEVEL": "LOUD"}},
		{"zero workers", map[string]string{"OKUSURI_INGESTION_WORKERS": "0"}},
		{"zero top k", map[string]string{"OKUSURI_SEARCH_TOP_K": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("OPENAI_API_KEY", "sk-test")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = ParseLevel("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
