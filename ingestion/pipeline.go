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


package ingestion

import (
	"io"
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/time/rate"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/ai"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/storage"
)

// Defaults for a Pipeline.
const (
	DefaultWorkers           = 4
	DefaultBatchSize         = 16
	DefaultRequestsPerSecond = 5.0
	DefaultBurst             = 1
	DefaultMaxRetries        = 3
	DefaultRetryDelay        = time.Second
	DefaultReportInterval    = 50
)

// Pipeline builds and persists the vector index for a catalog.
type Pipeline struct {
	embedder       ai.Embedder
	cache          storage.EmbeddingCache
	manifests      storage.ManifestRepository
	pool           *ants.Pool
	limiter        *rate.Limiter
	batchSize      int
	maxRetries     int
	retryDelay     time.Duration
	progress       io.Writer
	reportInterval int
	logger         *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithWorkers sets the number of concurrent embedding batches.
func WithWorkers(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithBatchSize sets the number of documents sent per embedding request.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		p.batchSize = max(size, 1)
		return nil
	}
}

// WithRateLimit bounds embedding requests per second. A non-positive rate
// disables limiting.
func WithRateLimit(requestsPerSecond float64, burst int) Option {
	return func(p *Pipeline) error {
		p.limiter = newLimiter(requestsPerSecond, burst)
		return nil
	}
}

// WithRetry sets the attempts and base backoff delay per embedding request.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		p.maxRetries = maxAttempts
		p.retryDelay = baseDelay
		return nil
	}
}

// WithProgress writes progress lines to w every interval products.
func WithProgress(w io.Writer, interval int) Option {
	return func(p *Pipeline) error {
		p.progress = w
		if interval > 0 {
			p.reportInterval = interval
		}
		return nil
	}
}

// WithLogger sets the logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new index build pipeline.
func NewPipeline(
	embedder ai.Embedder,
	cache storage.EmbeddingCache,
	manifests storage.ManifestRepository,
	opts ...Option,
) (*Pipeline, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if cache == nil {
		return nil, ErrEmbeddingCacheRequired
	}
	if manifests == nil {
		return nil, ErrManifestRepositoryRequired
	}

	pool, err := ants.NewPool(DefaultWorkers)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		embedder:       embedder,
		cache:          cache,
		manifests:      manifests,
		pool:           pool,
		limiter:        newLimiter(DefaultRequestsPerSecond, DefaultBurst),
		batchSize:      DefaultBatchSize,
		maxRetries:     DefaultMaxRetries,
		retryDelay:     DefaultRetryDelay,
		progress:       io.Discard,
		reportInterval: DefaultReportInterval,
		logger:         slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	return p, nil
}

// Release stops the worker pool.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

func newLimiter(requestsPerSecond float64, burst int) *rate.Limiter {
	if requestsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), max(burst, 1))
}
