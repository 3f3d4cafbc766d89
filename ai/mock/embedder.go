package mock

import (
	"context"
	"hash/fnv"
	"math"
	"sync"
	"sync/atomic"
)

// DefaultDimension is the vector length produced by NewMockEmbedder.
const DefaultDimension = 8

// MockEmbedder is a test double for ai.Embedder.
// It allows custom behavior injection via function fields and is safe for
// concurrent use.
type MockEmbedder struct {
	// EmbedTextFunc is called by EmbedText if set.
	// If nil, uses default deterministic behavior.
	EmbedTextFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedTextsFunc is called by EmbedTexts if set.
	// If nil, EmbedText is applied to each text.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	model     string
	dimension int

	mu    sync.Mutex
	fixed map[string][]float32
	calls atomic.Int64
	texts atomic.Int64
}

// NewMockEmbedder creates a mock embedder with default deterministic behavior.
// Note: Returns concrete type to allow test assertions via GetMockEmbedder().
func NewMockEmbedder() *MockEmbedder {
	return NewMockEmbedderWithDimension(DefaultDimension)
}

// NewMockEmbedderWithDimension creates a mock embedder producing vectors of
// length dim.
func NewMockEmbedderWithDimension(dim int) *MockEmbedder {
	return &MockEmbedder{
		model:     "mock-embedding",
		dimension: dim,
		fixed:     make(map[string][]float32),
	}
}

// WithEmbedTextFunc sets custom behavior for EmbedText.
func (m *MockEmbedder) WithEmbedTextFunc(fn func(ctx context.Context, text string) ([]float32, error)) *MockEmbedder {
	m.EmbedTextFunc = fn
	return m
}

// WithEmbedTextsFunc sets custom behavior for EmbedTexts.
func (m *MockEmbedder) WithEmbedTextsFunc(fn func(ctx context.Context, texts []string) ([][]float32, error)) *MockEmbedder {
	m.EmbedTextsFunc = fn
	return m
}

// SetVector pins the vector returned for text.
func (m *MockEmbedder) SetVector(text string, vector []float32) *MockEmbedder {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fixed[text] = vector
	return m
}

// Model returns the mock model identifier.
func (m *MockEmbedder) Model() string {
	return m.model
}

// Dimension returns the configured vector length.
func (m *MockEmbedder) Dimension() int {
	return m.dimension
}

// EmbedText returns a pinned vector for text or a deterministic one derived
// from its hash.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	m.texts.Add(1)
	return m.embed(ctx, text)
}

// EmbedTexts embeds each text in order.
func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.calls.Add(1)
	m.texts.Add(int64(len(texts)))

	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := m.embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = v
	}
	return embeddings, nil
}

func (m *MockEmbedder) embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}
	m.mu.Lock()
	v, ok := m.fixed[text]
	m.mu.Unlock()
	if ok {
		return v, nil
	}
	return generateDeterministicVector(text, m.dimension), nil
}

// CallCount returns the number of times any embed method was called.
func (m *MockEmbedder) CallCount() int {
	return int(m.calls.Load())
}

// TextCount returns the total number of texts embedded.
func (m *MockEmbedder) TextCount() int {
	return int(m.texts.Load())
}

// Reset clears counters, pinned vectors and custom functions.
func (m *MockEmbedder) Reset() {
	m.calls.Store(0)
	m.texts.Store(0)
	m.EmbedTextFunc = nil
	m.EmbedTextsFunc = nil
	m.mu.Lock()
	m.fixed = make(map[string][]float32)
	m.mu.Unlock()
}

// generateDeterministicVector creates a unit vector from text.
// It uses FNV hash to ensure the same text always produces the same vector.
func generateDeterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%1000) / 1000.0
	}

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares > 0 {
		norm := float32(1 / math.Sqrt(sumSquares))
		for i := range vector {
			vector[i] *= norm
		}
	}
	return vector
}
