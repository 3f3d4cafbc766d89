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
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/ai"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/catalog"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/core"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/index"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/storage"
)

// Stats summarizes one build.
type Stats struct {
	Products int
	Indexed  int
	Cached   int
	Embedded int
	Skipped  int
	Elapsed  time.Duration
}

// Result is the outcome of Run.
type Result struct {
	Snapshot *index.Snapshot
	Manifest *core.Manifest
	// Stats is nil when the build was skipped.
	Stats *Stats
	// Unchanged reports that the stored index matched the catalog and was
	// loaded instead of rebuilt.
	Unchanged bool
}

// Build embeds products and returns an aligned snapshot in catalog order.
// Products whose embedding fails are skipped. Only context cancellation and
// index construction errors fail the build.
func (p *Pipeline) Build(ctx context.Context, products []*core.Product) (*index.Snapshot, *Stats, error) {
	start := time.Now()
	model := p.embedder.Model()
	dim := p.embedder.Dimension()

	documents := catalog.Documents(products)
	keys := make([]core.ID, len(documents))
	for i, doc := range documents {
		keys[i] = core.EmbeddingKey(model, doc)
	}

	cached, err := p.cache.GetEmbeddings(ctx, keys...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		p.logger.Warn("embedding cache unavailable, embedding every product", "err", err)
		cached = map[core.ID]*core.CachedEmbedding{}
	}

	stats := &Stats{Products: len(products)}
	vectors := make([][]float32, len(products))
	var missing []int
	for i := range products {
		if e, ok := cached[keys[i]]; ok && len(e.Vector) == dim {
			vectors[i] = e.Vector
			stats.Cached++
			continue
		}
		missing = append(missing, i)
	}
	p.logger.Info("building index",
		"products", len(products),
		"cached", stats.Cached,
		"to_embed", len(missing))

	if err := p.embedMissing(ctx, documents, missing, vectors); err != nil {
		return nil, nil, err
	}

	fresh := make([]*core.CachedEmbedding, 0, len(missing))
	for _, i := range missing {
		if vectors[i] != nil {
			stats.Embedded++
			fresh = append(fresh, &core.CachedEmbedding{Key: keys[i], Model: model, Vector: vectors[i]})
		}
	}
	if err := p.cache.PutEmbeddings(ctx, fresh...); err != nil {
		p.logger.Warn("failed to store embeddings in cache", "count", len(fresh), "err", err)
	}

	flat, err := index.NewFlat(dim)
	if err != nil {
		return nil, nil, err
	}
	snap := &index.Snapshot{
		Index:     flat,
		Products:  make([]*core.Product, 0, len(products)),
		Documents: make([]string, 0, len(products)),
	}
	kept := make([][]float32, 0, len(products))
	for i, product := range products {
		if vectors[i] == nil {
			stats.Skipped++
			p.logger.Warn("skipping product without embedding", "name", product.Name, "row", product.CatalogOrder)
			continue
		}
		snap.Products = append(snap.Products, product)
		snap.Documents = append(snap.Documents, documents[i])
		kept = append(kept, vectors[i])
	}
	positions := make([]int, len(kept))
	for i := range positions {
		positions[i] = i
	}
	if err := flat.Add(kept, positions); err != nil {
		return nil, nil, err
	}
	if err := snap.Validate(); err != nil {
		return nil, nil, err
	}

	stats.Indexed = len(snap.Products)
	stats.Elapsed = time.Since(start)
	p.logger.Info("index built",
		"indexed", stats.Indexed,
		"skipped", stats.Skipped,
		"embedded", stats.Embedded,
		"elapsed", stats.Elapsed.Round(time.Millisecond))
	return snap, stats, nil
}

// Run builds the index for products and persists it to dir with a new
// manifest. When the stored manifest matches the catalog fingerprint, model
// and dimension and the artifacts load cleanly, the stored index is returned
// instead unless force is set.
func (p *Pipeline) Run(ctx context.Context, products []*core.Product, dir string, force bool) (*Result, error) {
	fingerprint := catalog.Fingerprint(products)

	if !force {
		result, err := p.loadUnchanged(ctx, fingerprint, dir)
		if err != nil {
			return nil, err
		}
		if result != nil {
			return result, nil
		}
	}

	snap, stats, err := p.Build(ctx, products)
	if err != nil {
		return nil, err
	}
	if err := index.Save(dir, snap); err != nil {
		return nil, fmt.Errorf("saving index: %w", err)
	}

	manifest := &core.Manifest{
		Fingerprint: fingerprint,
		Products:    stats.Indexed,
		Skipped:     stats.Skipped,
		Model:       p.embedder.Model(),
		Dimension:   p.embedder.Dimension(),
		BuiltAt:     time.Now().UTC(),
	}
	if err := p.manifests.SaveManifest(ctx, manifest); err != nil {
		return nil, fmt.Errorf("saving manifest: %w", err)
	}

	return &Result{Snapshot: snap, Manifest: manifest, Stats: stats}, nil
}

func (p *Pipeline) loadUnchanged(ctx context.Context, fingerprint core.ID, dir string) (*Result, error) {
	manifest, err := p.manifests.LoadManifest(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if manifest.Fingerprint != fingerprint ||
		manifest.Model != p.embedder.Model() ||
		manifest.Dimension != p.embedder.Dimension() {
		p.logger.Info("catalog or model changed, rebuilding index")
		return nil, nil
	}

	snap, err := index.Load(dir)
	if err != nil {
		p.logger.Warn("stored index unusable, rebuilding", "dir", dir, "err", err)
		return nil, nil
	}
	p.logger.Info("catalog unchanged, using stored index", "products", snap.Len())
	return &Result{Snapshot: snap, Manifest: manifest, Unchanged: true}, nil
}

// embedMissing fills vectors[i] for every i in missing. Entries stay nil for
// products that could not be embedded.
func (p *Pipeline) embedMissing(ctx context.Context, documents []string, missing []int, vectors [][]float32) error {
	if len(missing) == 0 {
		return nil
	}

	progress := NewProgress(p.progress, len(missing), p.reportInterval)

	var wg sync.WaitGroup
	var mu sync.Mutex
	for start := 0; start < len(missing); start += p.batchSize {
		batch := missing[start:min(start+p.batchSize, len(missing))]
		texts := make([]string, len(batch))
		for j, i := range batch {
			texts[j] = documents[i]
		}

		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			results := p.embedBatch(ctx, texts)

			failed := 0
			mu.Lock()
			for j, i := range batch {
				vectors[i] = results[j]
				if results[j] == nil {
					failed++
				}
			}
			mu.Unlock()
			progress.Done(len(batch)-failed, failed)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			return err
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	elapsed := progress.Finish()
	embedded, failed := progress.Counts()
	p.logger.Debug("embedding finished", "embedded", embedded, "failed", failed, "elapsed", elapsed)
	return nil
}

// embedBatch embeds texts with rate limiting and retry. When the batch keeps
// failing each text is retried alone so one bad document does not drop its
// neighbors. Failed entries are nil.
func (p *Pipeline) embedBatch(ctx context.Context, texts []string) [][]float32 {
	dim := p.embedder.Dimension()

	var vectors [][]float32
	err := RetryWithBackoff(ctx, func() error {
		if err := p.limiter.Wait(ctx); err != nil {
			return Permanent(err)
		}
		var err error
		vectors, err = p.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			if errors.Is(err, ai.ErrDimensionMismatch) || errors.Is(err, ai.ErrEmptyEmbedding) {
				return Permanent(err)
			}
			return err
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("%w: expected %d, received %d", ErrEmbeddingCountMismatch, len(texts), len(vectors))
		}
		return nil
	}, p.maxRetries, p.retryDelay)

	if err == nil {
		for i, v := range vectors {
			if len(v) != dim {
				p.logger.Warn("discarding embedding with wrong dimension", "got", len(v), "want", dim)
				vectors[i] = nil
			}
		}
		return vectors
	}

	results := make([][]float32, len(texts))
	if ctx.Err() != nil {
		return results
	}
	if len(texts) == 1 {
		p.logger.Warn("embedding failed", "err", err)
		return results
	}

	p.logger.Debug("batch embedding failed, retrying texts one by one", "size", len(texts), "err", err)
	for i, text := range texts {
		results[i] = p.embedBatch(ctx, []string{text})[0]
	}
	return results
}
