package ingestion

import "errors"

var (
	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrEmbeddingCacheRequired is returned when an embedding cache is not provided.
	ErrEmbeddingCacheRequired = errors.New("embedding cache required")

	// ErrManifestRepositoryRequired is returned when a manifest repository is not provided.
	ErrManifestRepositoryRequired = errors.New("manifest repository required")

	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrEmbeddingCountMismatch is returned when the embedder returns a
	// different number of vectors than texts.
	ErrEmbeddingCountMismatch = errors.New("embedding count mismatch")
)
