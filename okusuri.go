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


package okusuri

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/ai"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/ai/openai"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/catalog"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/config"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/core"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/index"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/ingestion"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/recommend"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/rules"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/search"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/server"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/storage"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/storage/badger"
)

var (
	// ErrConfigRequired is returned by Open when no configuration is given.
	ErrConfigRequired = errors.New("config required")

	// ErrEmptyCatalog is returned by Reindex when the catalog is unreadable
	// or has no products. The current snapshot stays in service.
	ErrEmptyCatalog = errors.New("catalog is empty or unavailable")
)

// System wires storage, the AI provider and the current index snapshot
// together. Search, Recommend and Status always see a consistent snapshot;
// Reindex swaps it atomically.
type System struct {
	cfg       *config.Config
	backend   *badger.Backend
	cache     storage.EmbeddingCache
	manifests storage.ManifestRepository
	provider  ai.AIProvider
	rules     *rules.Rules
	logger    *slog.Logger

	mu          sync.RWMutex
	recommender *recommend.Recommender
	loadErr     error
}

var _ server.Service = (*System)(nil)

// Option configures a System.
type Option func(*systemOptions)

type systemOptions struct {
	provider ai.AIProvider
	logger   *slog.Logger
	inMemory bool
}

// WithProvider uses provider instead of the OpenAI provider built from the
// configuration. The System takes ownership and closes it.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *systemOptions) {
		o.provider = provider
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *systemOptions) {
		o.logger = logger
	}
}

// WithInMemoryStorage keeps the embedding cache and manifest in memory.
func WithInMemoryStorage() Option {
	return func(o *systemOptions) {
		o.inMemory = true
	}
}

// Open opens the embedding cache, connects the AI provider, loads the rules
// and the persisted index. A missing index is not an error: the system starts
// empty until Reindex runs. An index that exists but cannot be read leaves the
// system empty and reported in error by Status.
func Open(cfg *config.Config, opts ...Option) (*System, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}

	// Apply options
	options := &systemOptions{}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger
	if logger == nil {
		logger = slog.Default()
	}

	r, err := rules.Load(cfg.Search.Rules)
	if err != nil {
		return nil, err
	}

	// Open backend
	backend, err := badger.OpenBackendWithLogger(cfg.Data.CacheDir, options.inMemory, logger)
	if err != nil {
		return nil, fmt.Errorf("opening embedding cache: %w", err)
	}

	cache, err := badger.NewEmbeddingCache(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	manifests, err := badger.NewManifestRepository(backend)
	if err != nil {
		cache.Close()
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(cfg.AIConfig())
		if err != nil {
			manifests.Close()
			cache.Close()
			backend.Close()
			return nil, err
		}
	}

	s := &System{
		cfg:       cfg,
		backend:   backend,
		cache:     cache,
		manifests: manifests,
		provider:  provider,
		rules:     r,
		logger:    logger.With("component", "system"),
	}

	snap, loadErr := index.Load(cfg.Data.IndexDir)
	switch {
	case loadErr == nil:
		s.logger.Info("index loaded", "dir", cfg.Data.IndexDir, "products", snap.Len())
	case errors.Is(loadErr, index.ErrNotFound):
		s.logger.Warn("no index found, starting empty", "dir", cfg.Data.IndexDir)
		snap, loadErr = index.Empty(provider.Embedder().Dimension()), nil
	default:
		s.logger.Error("index unreadable, starting empty", "dir", cfg.Data.IndexDir, "err", loadErr)
		snap = index.Empty(provider.Embedder().Dimension())
	}

	if err := s.swap(snap, loadErr); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the provider and the embedding cache.
func (s *System) Close() error {
	// Close AI provider first
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}

	// Close repositories
	if err := s.manifests.Close(); err != nil {
		s.logger.Error("error closing manifest repository", "err", err)
		return err
	}
	if err := s.cache.Close(); err != nil {
		s.logger.Error("error closing embedding cache", "err", err)
		return err
	}

	// Close backend
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Config returns the configuration the system was opened with.
func (s *System) Config() *config.Config {
	return s.cfg
}

// EmbeddingCache returns the persistent embedding cache.
func (s *System) EmbeddingCache() storage.EmbeddingCache {
	return s.cache
}

// ManifestRepository returns the store of the last build's manifest.
func (s *System) ManifestRepository() storage.ManifestRepository {
	return s.manifests
}

// NewSearcher creates a searcher over snapshot using the configured rules.
func (s *System) NewSearcher(snapshot *index.Snapshot, opts ...search.Option) (*search.Searcher, error) {
	base := []search.Option{
		search.WithLogger(s.logger),
		search.WithRules(s.rules),
	}
	if s.cfg.Search.TopK > 0 {
		base = append(base, search.WithDefaultTopK(s.cfg.Search.TopK))
	}
	if s.cfg.Search.IngredientFallback != nil {
		base = append(base, search.WithIngredientFallback(*s.cfg.Search.IngredientFallback))
	}
	return search.NewSearcher(snapshot, s.provider.Embedder(), append(base, opts...)...)
}

// NewIngestionPipeline creates a pipeline configured from the ingestion
// settings. Callers must Release it.
func (s *System) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	ic := s.cfg.Ingestion
	base := []ingestion.Option{
		ingestion.WithLogger(s.logger),
		ingestion.WithRateLimit(ic.RequestsPerSecond, ingestion.DefaultBurst),
	}
	if ic.Workers > 0 {
		base = append(base, ingestion.WithWorkers(ic.Workers))
	}
	if ic.BatchSize > 0 {
		base = append(base, ingestion.WithBatchSize(ic.BatchSize))
	}
	if ic.MaxRetries > 0 {
		base = append(base, ingestion.WithRetry(ic.MaxRetries, ic.RetryDelay))
	}
	return ingestion.NewPipeline(s.provider.Embedder(), s.cache, s.manifests, append(base, opts...)...)
}

// Reindex loads the catalog at catalogPath (the configured catalog when
// empty), builds or reuses the index and makes it current. An unreadable
// catalog degrades to an empty one, which never replaces the current
// snapshot. On any failure the previous snapshot stays in service.
func (s *System) Reindex(ctx context.Context, catalogPath string, force bool, opts ...ingestion.Option) (*ingestion.Result, error) {
	if catalogPath == "" {
		catalogPath = s.cfg.Data.Catalog
	}
	loader, err := catalog.NewLoader(catalog.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}
	products := loader.LoadOrEmpty(catalogPath)
	if len(products) == 0 {
		s.logger.Warn("no products to index, keeping current index", "catalog", catalogPath)
		return nil, fmt.Errorf("%w: %s", ErrEmptyCatalog, catalogPath)
	}

	pipeline, err := s.NewIngestionPipeline(opts...)
	if err != nil {
		return nil, err
	}
	defer pipeline.Release()

	result, err := pipeline.Run(ctx, products, s.cfg.Data.IndexDir, force)
	if err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}
	if err := s.swap(result.Snapshot, nil); err != nil {
		return nil, err
	}
	return result, nil
}

// swap makes snap the snapshot served by Search and Recommend.
func (s *System) swap(snap *index.Snapshot, loadErr error) error {
	searcher, err := s.NewSearcher(snap)
	if err != nil {
		return err
	}
	recOpts := []recommend.Option{recommend.WithLogger(s.logger)}
	if s.cfg.Search.LLMRerank {
		recOpts = append(recOpts, recommend.WithRanker(s.provider.Ranker()))
	}
	rec, err := recommend.NewRecommender(searcher, recOpts...)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.recommender = rec
	s.loadErr = loadErr
	s.mu.Unlock()
	return nil
}

func (s *System) current() (*recommend.Recommender, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recommender, s.loadErr
}

// Searcher returns the searcher over the current snapshot.
func (s *System) Searcher() *search.Searcher {
	rec, _ := s.current()
	return rec.Searcher()
}

// Search runs the search cascade against the current snapshot.
func (s *System) Search(ctx context.Context, query string, topK int) []*core.SearchResult {
	return s.Searcher().Search(ctx, query, topK)
}

// Recommend answers query with at most maxResults recommendations.
func (s *System) Recommend(ctx context.Context, query string, maxResults int) (*recommend.Recommendation, error) {
	rec, _ := s.current()
	return rec.Recommend(ctx, query, maxResults)
}

// Status reports the current index and configuration.
func (s *System) Status() *recommend.Status {
	rec, loadErr := s.current()
	st := rec.Status()
	if loadErr != nil {
		st.State = recommend.StateError
		st.Error = loadErr.Error()
	}
	return st
}
