package ingestion

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/ai/mock"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/catalog"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/core"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/index"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/storage"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/storage/badger"
)

func testProducts() []*core.Product {
	return []*core.Product{
		{Name: "カマグラゴールド100mg", Category: "ED治療薬", Ingredient: "シルデナフィル100mg", CatalogOrder: 0},
		{Name: "ミノクソール5%", Category: "AGA治療薬", Ingredient: "ミノキシジル", CatalogOrder: 1},
		{Name: "ケアプロスト", Category: "美容・スキンケア", Ingredient: "ビマトプロスト", CatalogOrder: 2},
		{Name: "トリファラ", Category: "サプリメント", Effect: "便秘改善", CatalogOrder: 3},
	}
}

type fixture struct {
	embedder  *mock.MockEmbedder
	cache     storage.EmbeddingCache
	manifests storage.ManifestRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cache, manifests, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return &fixture{
		embedder:  mock.NewMockEmbedderWithDimension(4),
		cache:     cache,
		manifests: manifests,
	}
}

func (f *fixture) pipeline(t *testing.T, opts ...Option) *Pipeline {
	t.Helper()
	opts = append([]Option{
		WithWorkers(2),
		WithBatchSize(2),
		WithRateLimit(0, 0),
		WithRetry(2, time.Millisecond),
	}, opts...)
	p, err := NewPipeline(f.embedder, f.cache, f.manifests, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func TestNewPipeline_RequiresDependencies(t *testing.T) {
	f := newFixture(t)

	_, err := NewPipeline(nil, f.cache, f.manifests)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
	_, err = NewPipeline(f.embedder, nil, f.manifests)
	assert.ErrorIs(t, err, ErrEmbeddingCacheRequired)
	_, err = NewPipeline(f.embedder, f.cache, nil)
	assert.ErrorIs(t, err, ErrManifestRepositoryRequired)
	_, err = NewPipeline(f.embedder, f.cache, f.manifests, WithRetry(0, time.Second))
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestBuild_AlignedSnapshot(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t)
	products := testProducts()

	snap, stats, err := p.Build(context.Background(), products)
	require.NoError(t, err)
	require.NoError(t, snap.Validate())

	assert.Equal(t, 4, stats.Indexed)
	assert.Equal(t, 4, stats.Embedded)
	assert.Zero(t, stats.Skipped)
	assert.Equal(t, products, snap.Products, "catalog order is kept")
	assert.Equal(t, catalog.Documents(products), snap.Documents)

	// The vector at each position is the embedding of that position's document.
	for i, doc := range snap.Documents {
		want, err := f.embedder.EmbedText(context.Background(), doc)
		require.NoError(t, err)
		hits, err := snap.Index.Search(want, 1)
		require.NoError(t, err)
		assert.Equal(t, i, hits[0].Position)
	}
}

func TestBuild_SkipsFailedProducts(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("embedding service unavailable")
	f.embedder.WithEmbedTextFunc(func(ctx context.Context, text string) ([]float32, error) {
		if strings.Contains(text, "ミノクソール") {
			return nil, boom
		}
		return []float32{1, 0, 0, 0}, nil
	})
	p := f.pipeline(t)

	snap, stats, err := p.Build(context.Background(), testProducts())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 3, stats.Indexed)
	require.Len(t, snap.Products, 3)
	assert.Equal(t, "カマグラゴールド100mg", snap.Products[0].Name, "the failed product's batch neighbor survives")
	assert.Equal(t, "ケアプロスト", snap.Products[1].Name)
	assert.Equal(t, 3, snap.Index.Len())
}

func TestBuild_SkipsWrongDimension(t *testing.T) {
	f := newFixture(t)
	products := testProducts()
	f.embedder.SetVector(catalog.DocumentText(products[3]), []float32{1, 2})
	p := f.pipeline(t)

	snap, stats, err := p.Build(context.Background(), products)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Skipped)
	assert.Len(t, snap.Products, 3)
	assert.NoError(t, snap.Validate())
}

func TestBuild_ReusesCache(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t)
	products := testProducts()

	_, _, err := p.Build(context.Background(), products)
	require.NoError(t, err)
	embeddedFirst := f.embedder.TextCount()
	assert.Equal(t, 4, embeddedFirst)

	products = append(products, &core.Product{Name: "新商品", CatalogOrder: 4})
	_, stats, err := p.Build(context.Background(), products)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Cached)
	assert.Equal(t, 1, stats.Embedded)
	assert.Equal(t, embeddedFirst+1, f.embedder.TextCount(), "only the new product is embedded")
}

func TestBuild_EmptyCatalog(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t)

	snap, stats, err := p.Build(context.Background(), []*core.Product{})
	require.NoError(t, err)
	assert.Zero(t, snap.Len())
	assert.Zero(t, stats.Indexed)
	assert.Zero(t, f.embedder.CallCount())
}

func TestBuild_Canceled(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := p.Build(ctx, testProducts())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuild_ReportsProgress(t *testing.T) {
	f := newFixture(t)
	var buf bytes.Buffer
	p := f.pipeline(t, WithProgress(&buf, 1))

	_, _, err := p.Build(context.Background(), testProducts())
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "4/4")
}

func TestRun_SkipsUnchangedCatalog(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t)
	dir := t.TempDir()
	ctx := context.Background()

	first, err := p.Run(ctx, testProducts(), dir, false)
	require.NoError(t, err)
	assert.False(t, first.Unchanged)
	assert.True(t, index.Exists(dir))
	assert.Equal(t, catalog.Fingerprint(testProducts()), first.Manifest.Fingerprint)

	saved, err := f.manifests.LoadManifest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, saved.Products)

	f.embedder.Reset()
	second, err := p.Run(ctx, testProducts(), dir, false)
	require.NoError(t, err)
	assert.True(t, second.Unchanged)
	assert.Nil(t, second.Stats)
	assert.Equal(t, first.Snapshot.Products, second.Snapshot.Products)
	assert.Zero(t, f.embedder.CallCount())

	forced, err := p.Run(ctx, testProducts(), dir, true)
	require.NoError(t, err)
	assert.False(t, forced.Unchanged)
	assert.Equal(t, 4, forced.Stats.Cached, "a forced rebuild still uses the cache")
}

func TestRun_RebuildsChangedCatalog(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t)
	dir := t.TempDir()
	ctx := context.Background()

	_, err := p.Run(ctx, testProducts(), dir, false)
	require.NoError(t, err)

	changed := testProducts()
	changed[0].Price = "3980"
	result, err := p.Run(ctx, changed, dir, false)
	require.NoError(t, err)
	assert.False(t, result.Unchanged)
	assert.Equal(t, 1, result.Stats.Embedded)

	loaded, err := index.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "3980", loaded.Products[0].Price)
}
