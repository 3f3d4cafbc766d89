package storage

import (
	"context"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// Close releases repository resources. The shared backend is closed
	// separately by its owner.
	Close() error
}

// EmbeddingCache stores document embeddings keyed by core.EmbeddingKey so
// that unchanged catalog rows are not re-embedded on rebuild.
type EmbeddingCache interface {
	Repository

	// GetEmbedding retrieves a single cached embedding.
	// Returns ErrNotFound if the key is not cached.
	GetEmbedding(ctx context.Context, key core.ID) (*core.CachedEmbedding, error)

	// GetEmbeddings retrieves the cached embeddings for keys.
	// Missing keys are absent from the result (no error for missing keys).
	GetEmbeddings(ctx context.Context, keys ...core.ID) (map[core.ID]*core.CachedEmbedding, error)

	// PutEmbeddings stores embeddings, replacing existing entries with the same key.
	// Sets InsertedAt if not already set.
	PutEmbeddings(ctx context.Context, embeddings ...*core.CachedEmbedding) error

	// CountEmbeddings returns the number of cached embeddings.
	CountEmbeddings(ctx context.Context) (int, error)

	// ClearEmbeddings removes every cached embedding.
	ClearEmbeddings(ctx context.Context) error
}

// ManifestRepository records the last successful index build.
type ManifestRepository interface {
	Repository

	// SaveManifest replaces the current manifest.
	SaveManifest(ctx context.Context, manifest *core.Manifest) error

	// LoadManifest retrieves the current manifest.
	// Returns ErrNotFound if no build has been recorded.
	LoadManifest(ctx context.Context) (*core.Manifest, error)
}
