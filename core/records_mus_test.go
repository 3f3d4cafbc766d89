package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductMUS_RoundTrip(t *testing.T) {
	p := Product{
		Name:         "カマグラゴールド100mg",
		Category:     "ED治療薬",
		Subcategory:  "バイアグラジェネリック",
		Effect:       "ED改善",
		Ingredient:   "シルデナフィル100mg",
		Description:  "即効性",
		URL:          "https://okusuritsuhan.shop/products/kamagra",
		Price:        "3,980",
		CatalogOrder: 17,
	}

	buf := make([]byte, ProductMUS.Size(p))
	n := ProductMUS.Marshal(p, buf)
	require.Equal(t, len(buf), n)

	got, m, err := ProductMUS.Unmarshal(buf)
	require.NoError(t, err)
	assert.Equal(t, n, m)
	assert.Equal(t, p, got)
}

func TestProductMUS_Truncated(t *testing.T) {
	p := Product{Name: "ミノクソール", CatalogOrder: 2}
	buf := make([]byte, ProductMUS.Size(p))
	ProductMUS.Marshal(p, buf)

	_, _, err := ProductMUS.Unmarshal(buf[:len(buf)-1])
	assert.Error(t, err)
}

func TestManifestMUS_PreservesBuildTime(t *testing.T) {
	built := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	m := Manifest{
		Fingerprint: IDFromContent("catalog"),
		Products:    120,
		Skipped:     2,
		Model:       "text-embedding-ada-002",
		Dimension:   1536,
		BuiltAt:     built,
	}

	buf := make([]byte, ManifestMUS.Size(m))
	ManifestMUS.Marshal(m, buf)
	got, _, err := ManifestMUS.Unmarshal(buf)
	require.NoError(t, err)

	assert.True(t, built.Equal(got.BuiltAt))
	assert.Equal(t, m.Fingerprint, got.Fingerprint)
	assert.Equal(t, m.Products, got.Products)
	assert.Equal(t, m.Skipped, got.Skipped)
	assert.Equal(t, m.Model, got.Model)
	assert.Equal(t, m.Dimension, got.Dimension)
}

func TestCachedEmbeddingMUS_ZeroTime(t *testing.T) {
	e := CachedEmbedding{Key: 9, Model: "m", Vector: []float32{0.5, -1, 2.25}}

	buf := make([]byte, CachedEmbeddingMUS.Size(e))
	CachedEmbeddingMUS.Marshal(e, buf)
	got, _, err := CachedEmbeddingMUS.Unmarshal(buf)
	require.NoError(t, err)

	assert.True(t, got.InsertedAt.IsZero())
	assert.Equal(t, e.Vector, got.Vector)
}
