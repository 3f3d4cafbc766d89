package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/ai"
)

// embeddingServer answers /embeddings with vectors of length dim.
func embeddingServer(t *testing.T, dim int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/embeddings") {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		type datum struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		data := make([]datum, len(req.Input))
		for i := range req.Input {
			vec := make([]float32, dim)
			vec[i%dim] = 1
			data[i] = datum{Object: "embedding", Index: i, Embedding: vec}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  "test-embedding",
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(baseURL string, dim int) *ai.Config {
	return ai.NewConfig(
		ai.WithBaseURL(baseURL),
		ai.WithAPIKey("test-key"),
		ai.WithEmbeddingModel("test-embedding"),
		ai.WithDimension(dim),
	)
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	srv := embeddingServer(t, 3)
	e, err := NewEmbedder(testConfig(srv.URL, 3))
	require.NoError(t, err)

	assert.Equal(t, "test-embedding", e.Model())
	assert.Equal(t, 3, e.Dimension())

	vectors, err := e.EmbedTexts(context.Background(), []string{"ED治療薬", "AGA治療薬"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 0, 0}, vectors[0])
	assert.Equal(t, []float32{0, 1, 0}, vectors[1])

	vec, err := e.EmbedText(context.Background(), "頭痛")
	require.NoError(t, err)
	assert.Len(t, vec, 3)
}

func TestEmbedder_DimensionMismatch(t *testing.T) {
	srv := embeddingServer(t, 4)
	e, err := NewEmbedder(testConfig(srv.URL, 3))
	require.NoError(t, err)

	_, err = e.EmbedText(context.Background(), "頭痛")
	assert.ErrorIs(t, err, ai.ErrDimensionMismatch)
}

func TestEmbedder_EmptyInput(t *testing.T) {
	srv := embeddingServer(t, 3)
	e, err := NewEmbedder(testConfig(srv.URL, 3))
	require.NoError(t, err)

	vectors, err := e.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestEmbedder_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom"}}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	e, err := NewEmbedder(testConfig(srv.URL, 3))
	require.NoError(t, err)
	_, err = e.EmbedText(context.Background(), "頭痛")
	assert.Error(t, err)
}

func TestNewEmbedder_RequiresAPIKey(t *testing.T) {
	_, err := NewEmbedder(ai.NewConfig())
	assert.ErrorIs(t, err, ai.ErrAPIKeyRequired)
}

func TestNewProvider(t *testing.T) {
	srv := embeddingServer(t, 3)
	p, err := NewProvider(testConfig(srv.URL, 3))
	require.NoError(t, err)
	defer p.Close()

	assert.NotNil(t, p.Embedder())
	assert.NotNil(t, p.Ranker())
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	_, err := NewProvider(nil)
	assert.ErrorIs(t, err, ai.ErrInvalidConfig)

	_, err = NewProvider(ai.NewConfig())
	assert.ErrorIs(t, err, ai.ErrAPIKeyRequired)
}
