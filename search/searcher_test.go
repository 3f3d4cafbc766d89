package search

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/ai/mock"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/catalog"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/core"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/index"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/rules"
)

const testDim = 8

func testCatalog() []*core.Product {
	return []*core.Product{
		{Name: "カマグラゴールド100mg", Category: "ED治療薬", Subcategory: "バイアグラジェネリック", Effect: "ED改善", Ingredient: "シルデナフィル100mg", Description: "即効性のED治療薬", CatalogOrder: 0},
		{Name: "タダライズ20mg", Category: "ED治療薬", Subcategory: "シアリスジェネリック", Effect: "ED改善", Ingredient: "タダラフィル20mg", Description: "長時間作用", CatalogOrder: 1},
		{Name: "バリフ20mg", Category: "ED治療薬", Subcategory: "レビトラジェネリック", Effect: "ED改善", Ingredient: "バルデナフィル20mg", CatalogOrder: 2},
		{Name: "ミノクソール5%", Category: "AGA治療薬", Subcategory: "ミノキシジル外用", Effect: "発毛促進", Ingredient: "ミノキシジル", CatalogOrder: 3},
		{Name: "ケアプロスト", Category: "美容・スキンケア", Subcategory: "まつ毛美容液", Effect: "まつ毛育毛", Ingredient: "ビマトプロスト", CatalogOrder: 4},
		{Name: "ゼニカル", Category: "ダイエット", Subcategory: "脂肪吸収阻害", Effect: "体重減少", Ingredient: "オルリスタット", CatalogOrder: 5},
		{Name: "トリファラ", Category: "サプリメント", Subcategory: "便秘薬", Effect: "便通改善", Ingredient: "トリファラ", Description: "腸内環境を整える", Keywords: "便秘,腸内環境", CatalogOrder: 6},
		{Name: "スーパーカマグラ", Category: "ED治療薬", Subcategory: "早漏併用", Effect: "ED改善", Ingredient: "シルデナフィル100mg、ダポキセチン60mg", CatalogOrder: 7},
	}
}

// unit returns the i-th basis vector, so product i is orthogonal to the rest.
func unit(i int) []float32 {
	v := make([]float32, testDim)
	v[i] = 1
	return v
}

func testSnapshot(t *testing.T) *index.Snapshot {
	t.Helper()
	products := testCatalog()
	f, err := index.NewFlat(testDim)
	require.NoError(t, err)

	vectors := make([][]float32, len(products))
	positions := make([]int, len(products))
	for i := range products {
		vectors[i] = unit(i)
		positions[i] = i
	}
	require.NoError(t, f.Add(vectors, positions))

	snap := &index.Snapshot{Index: f, Products: products, Documents: catalog.Documents(products)}
	require.NoError(t, snap.Validate())
	return snap
}

func newTestSearcher(t *testing.T, embedder *mock.MockEmbedder, opts ...Option) *Searcher {
	t.Helper()
	if embedder == nil {
		embedder = mock.NewMockEmbedderWithDimension(testDim)
	}
	s, err := NewSearcher(testSnapshot(t), embedder, opts...)
	require.NoError(t, err)
	return s
}

func names(results []*core.SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Product.Name
	}
	return out
}

func TestNewSearcher(t *testing.T) {
	snap := testSnapshot(t)
	embedder := mock.NewMockEmbedderWithDimension(testDim)

	t.Run("valid configuration", func(t *testing.T) {
		s, err := NewSearcher(snap, embedder)
		require.NoError(t, err)
		assert.NotNil(t, s)
		assert.True(t, s.IngredientFallback())
	})

	t.Run("with nil logger falls back to default", func(t *testing.T) {
		s, err := NewSearcher(snap, embedder, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, s)
	})

	t.Run("with custom logger", func(t *testing.T) {
		s, err := NewSearcher(snap, embedder, WithLogger(slog.Default()))
		require.NoError(t, err)
		assert.NotNil(t, s)
	})

	t.Run("nil snapshot", func(t *testing.T) {
		_, err := NewSearcher(nil, embedder)
		assert.Equal(t, ErrSnapshotRequired, err)
	})

	t.Run("nil embedder", func(t *testing.T) {
		_, err := NewSearcher(snap, nil)
		assert.Equal(t, ErrEmbedderRequired, err)
	})

	t.Run("invalid default top k", func(t *testing.T) {
		_, err := NewSearcher(snap, embedder, WithDefaultTopK(0))
		assert.ErrorIs(t, err, ErrInvalidTopK)
	})

	t.Run("misaligned snapshot", func(t *testing.T) {
		bad := &index.Snapshot{Index: snap.Index, Products: snap.Products[:2], Documents: snap.Documents[:2]}
		_, err := NewSearcher(bad, embedder)
		assert.ErrorIs(t, err, index.ErrMisaligned)
	})

	t.Run("invalid rules", func(t *testing.T) {
		r := rules.Default()
		r.Scores.VectorCeiling = 2
		_, err := NewSearcher(snap, embedder, WithRules(r))
		assert.ErrorIs(t, err, rules.ErrInvalidRules)
	})
}

func TestSearch_IngredientShortCircuit(t *testing.T) {
	s := newTestSearcher(t, nil)
	ctx := context.Background()

	report, err := s.SearchDetailed(ctx, "シルデナフィル100mg", 5, nil)
	require.NoError(t, err)

	require.NotEmpty(t, report.Results)
	assert.Equal(t, core.StrategyIngredient, report.Strategy)
	assert.Equal(t, []string{"カマグラゴールド100mg", "スーパーカマグラ"}, names(report.Results))
	for _, r := range report.Results {
		assert.Equal(t, 1.0, r.Score)
		assert.Equal(t, core.FieldIngredient, r.MatchedField)
	}
	assert.False(t, report.VectorRan)
	assert.Nil(t, report.Domain, "short-circuit skips the domain filter")
}

func TestSearch_ExactIngredientValue(t *testing.T) {
	s := newTestSearcher(t, nil)

	results := s.Search(context.Background(), "ミノキシジル", 5)
	require.NotEmpty(t, results)
	assert.Equal(t, "ミノクソール5%", results[0].Product.Name)
	assert.Equal(t, 1.0, results[0].Score)
}

func TestSearch_IngredientShortCircuitCapsAtTopK(t *testing.T) {
	s := newTestSearcher(t, nil)

	results := s.Search(context.Background(), "シルデナフィル", 1)
	assert.Equal(t, []string{"カマグラゴールド100mg"}, names(results))
}

func TestSearch_IngredientFallback(t *testing.T) {
	ctx := context.Background()
	query := "アバナフィル" // known ingredient, no product carries it

	t.Run("enabled falls through to vector stage", func(t *testing.T) {
		embedder := mock.NewMockEmbedderWithDimension(testDim).SetVector(query, unit(4))
		s := newTestSearcher(t, embedder, WithIngredientFallback(true))

		report, err := s.SearchDetailed(ctx, query, 5, nil)
		require.NoError(t, err)
		assert.True(t, report.VectorRan)
		assert.Equal(t, core.StrategyVector, report.Strategy)
		require.NotNil(t, report.Category)
		assert.Equal(t, "ed", report.Category.Category)

		// ケアプロスト is the nearest vector but lies outside the inferred category.
		assert.Equal(t,
			[]string{"カマグラゴールド100mg", "タダライズ20mg", "バリフ20mg", "スーパーカマグラ"},
			names(report.Results))
		for _, r := range report.Results {
			assert.InDelta(t, 0.2, r.Score, 1e-6)
			assert.Equal(t, core.FieldVector, r.MatchedField)
		}
	})

	t.Run("disabled returns nothing", func(t *testing.T) {
		embedder := mock.NewMockEmbedderWithDimension(testDim)
		s := newTestSearcher(t, embedder, WithIngredientFallback(false))

		report, err := s.SearchDetailed(ctx, query, 5, nil)
		require.NoError(t, err)
		assert.Empty(t, report.Results)
		assert.Equal(t, core.StrategyNone, report.Strategy)
		assert.False(t, report.VectorRan)
		assert.Zero(t, embedder.CallCount())
	})

	t.Run("rules flag is honored", func(t *testing.T) {
		r := rules.Default()
		r.IngredientFallback = false
		s := newTestSearcher(t, nil, WithRules(r))
		assert.False(t, s.IngredientFallback())
		assert.Empty(t, s.Search(ctx, query, 5))
	})
}

func TestSearch_KeywordRanking(t *testing.T) {
	s := newTestSearcher(t, nil)

	report, err := s.SearchDetailed(context.Background(), "ED治療薬", 5, nil)
	require.NoError(t, err)

	assert.Equal(t, core.StrategyKeyword, report.Strategy)
	assert.False(t, report.VectorRan)
	require.NotNil(t, report.Category)
	assert.Equal(t, "ed", report.Category.Category)
	require.NotNil(t, report.Domain)
	assert.Equal(t, "ed", report.Domain.Name)
	assert.Equal(t, []string{"ED治療薬", "ED改善", "シルデナフィル", "タダラフィル"}, report.Keywords)

	// Equal scores are ordered by the domain priority list, then catalog order.
	assert.Equal(t,
		[]string{"カマグラゴールド100mg", "スーパーカマグラ", "タダライズ20mg", "バリフ20mg"},
		names(report.Results))

	top := report.Results[0]
	assert.InDelta(t, 0.90, top.Score, 1e-9)
	assert.Equal(t, core.FieldIngredient, top.MatchedField)
	assert.Equal(t, "シルデナフィル", top.Keyword)
	assert.True(t, top.HasField(core.FieldCategory))
	assert.True(t, top.HasField(core.FieldEffect))

	assert.InDelta(t, 0.85, report.Results[3].Score, 1e-9)
	for _, r := range report.Results {
		assert.Equal(t, "ED治療薬", r.Product.Category)
	}
}

func TestSearch_KeywordTokenMatch(t *testing.T) {
	s := newTestSearcher(t, nil)

	report, err := s.SearchDetailed(context.Background(), "便秘", 5, nil)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	r := report.Results[0]
	assert.Equal(t, "トリファラ", r.Product.Name)
	assert.Equal(t, core.FieldKeywords, r.MatchedField)
	assert.InDelta(t, 0.78, r.Score, 1e-9)
	assert.Nil(t, report.Domain)
}

func TestSearch_VectorBonusCeilingAndDomainFilter(t *testing.T) {
	query := "体重を減らしたい"
	embedder := mock.NewMockEmbedderWithDimension(testDim).SetVector(query, unit(5))
	s := newTestSearcher(t, embedder)

	report, err := s.SearchDetailed(context.Background(), query, 5, nil)
	require.NoError(t, err)

	assert.True(t, report.VectorRan)
	assert.Equal(t, core.StrategyVector, report.Strategy)
	require.NotNil(t, report.Domain)
	assert.Equal(t, "diet", report.Domain.Name)

	// ED and AGA products are excluded for diet queries.
	assert.Equal(t, []string{"ゼニカル", "ケアプロスト", "トリファラ"}, names(report.Results))
	assert.Equal(t, 0.75, report.Results[0].Score, "similarity plus bonus is capped")
	for _, r := range report.Results {
		assert.LessOrEqual(t, r.Score, 0.75)
	}
}

func TestSearch_CappedVectorScoresFollowCatalogOrder(t *testing.T) {
	products := []*core.Product{
		{Name: "商品A", Category: "その他", CatalogOrder: 0},
		{Name: "商品B", Category: "その他", CatalogOrder: 1},
	}
	a := make([]float32, testDim)
	a[0], a[1] = 1, 0.1
	f, err := index.NewFlat(testDim)
	require.NoError(t, err)
	require.NoError(t, f.Add([][]float32{a, unit(0)}, []int{0, 1}))
	snap := &index.Snapshot{Index: f, Products: products, Documents: catalog.Documents(products)}

	query := "こんにちは"
	embedder := mock.NewMockEmbedderWithDimension(testDim).SetVector(query, unit(0))
	s, err := NewSearcher(snap, embedder)
	require.NoError(t, err)

	report, err := s.SearchDetailed(context.Background(), query, 5, nil)
	require.NoError(t, err)
	require.Nil(t, report.Domain)
	assert.Equal(t, core.StrategyVector, report.Strategy)

	// 商品B is closer to the query, but both cap at the ceiling.
	assert.Equal(t, []string{"商品A", "商品B"}, names(report.Results))
	for _, r := range report.Results {
		assert.Equal(t, 0.75, r.Score)
	}
}

func TestSearch_CategoryFilterOverridesSimilarity(t *testing.T) {
	query := "抜け毛が気になる"
	embedder := mock.NewMockEmbedderWithDimension(testDim).SetVector(query, unit(0))
	s := newTestSearcher(t, embedder)

	report, err := s.SearchDetailed(context.Background(), query, 5, nil)
	require.NoError(t, err)

	require.NotNil(t, report.Category)
	assert.Equal(t, "aga", report.Category.Category)
	assert.Equal(t, []string{"ミノクソール5%"}, names(report.Results))
	assert.InDelta(t, 0.2, report.Results[0].Score, 1e-6)
}

func TestSearch_EmbedFailureDegradesToEmpty(t *testing.T) {
	embedder := mock.NewMockEmbedderWithDimension(testDim).WithEmbedTextFunc(
		func(ctx context.Context, text string) ([]float32, error) {
			return nil, errors.New("service unavailable")
		})
	s := newTestSearcher(t, embedder)
	ctx := context.Background()

	assert.NotPanics(t, func() {
		results := s.Search(ctx, "こんにちは", 5)
		assert.NotNil(t, results)
		assert.Empty(t, results)
	})

	report, err := s.SearchDetailed(ctx, "こんにちは", 5, nil)
	assert.ErrorIs(t, err, ErrEmbedQuery)
	require.NotNil(t, report)
	assert.Empty(t, report.Results)
	assert.True(t, report.VectorRan)

	// Keyword matches never need the embedder.
	assert.NotEmpty(t, s.Search(ctx, "ED治療薬", 5))
}

func TestSearch_RecoversPanics(t *testing.T) {
	embedder := mock.NewMockEmbedderWithDimension(testDim).WithEmbedTextFunc(
		func(ctx context.Context, text string) ([]float32, error) {
			panic("boom")
		})
	s := newTestSearcher(t, embedder)

	assert.NotPanics(t, func() {
		assert.Empty(t, s.Search(context.Background(), "こんにちは", 5))
	})

	report, err := s.SearchDetailed(context.Background(), "こんにちは", 5, nil)
	assert.ErrorIs(t, err, ErrSearchFailed)
	require.NotNil(t, report)
	assert.Empty(t, report.Results)
}

func TestSearch_NoDuplicatesAndDeterministic(t *testing.T) {
	s := newTestSearcher(t, nil)
	ctx := context.Background()

	queries := []string{"ED治療薬", "シルデナフィル", "便秘", "まつ毛", "ゼニカル", "こんにちは"}
	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			first := s.Search(ctx, q, 10)
			seen := map[string]bool{}
			for _, r := range first {
				assert.False(t, seen[r.Product.Name], "duplicate %s", r.Product.Name)
				seen[r.Product.Name] = true
			}

			second := s.Search(ctx, q, 10)
			assert.Equal(t, names(first), names(second))
		})
	}
}

func TestSearch_EdgeCases(t *testing.T) {
	ctx := context.Background()

	t.Run("empty query", func(t *testing.T) {
		s := newTestSearcher(t, nil)
		assert.Empty(t, s.Search(ctx, "   ", 5))
	})

	t.Run("empty index", func(t *testing.T) {
		s, err := NewSearcher(index.Empty(testDim), mock.NewMockEmbedderWithDimension(testDim))
		require.NoError(t, err)
		assert.Empty(t, s.Search(ctx, "ED治療薬", 5))
	})

	t.Run("non-positive top k uses default", func(t *testing.T) {
		s := newTestSearcher(t, nil, WithDefaultTopK(2))
		assert.Len(t, s.Search(ctx, "ED治療薬", 0), 2)
	})

	t.Run("cancelled context", func(t *testing.T) {
		s := newTestSearcher(t, nil)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := s.SearchDetailed(cctx, "ED治療薬", 5, nil)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSearch_TraceMonitor(t *testing.T) {
	s := newTestSearcher(t, nil)

	var buf bytes.Buffer
	_, err := s.SearchDetailed(context.Background(), "ED治療薬", 5, NewTraceMonitor(&buf, 2))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `query: "ED治療薬"`)
	assert.Contains(t, out, "keyword: 4 hits")
	assert.Contains(t, out, "category: ed restrict=true kept=4")
	assert.Contains(t, out, "domain: ed kept=4")
	assert.Contains(t, out, "... 2 more")
	assert.NotContains(t, out, "vector:")
}
