package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/core"
)

const sampleCSV = "\ufeffカテゴリ名,サブカテゴリ名,商品名,効果,有効成分,説明文,商品URL,カテゴリURL,サブカテゴリURL,image_url\n" +
	"ED治療薬,バイアグラジェネリック,カマグラゴールド100mg,ED改善,シルデナフィル100mg,即効性のED治療薬,https://example.com/p/1,https://example.com/c/ed,https://example.com/s/1,https://example.com/i/1.jpg\n" +
	"AGA治療薬,ミノキシジルタブレット,ミノクソール5%,発毛促進,ミノキシジル,\"外用薬, 頭皮に塗布\",https://example.com/p/2,,,\n" +
	"ED治療薬,重複,カマグラゴールド100mg,重複行,,,,,,\n" +
	",名前なし,,,,,,,,\n" +
	"美容・スキンケア,まつ毛,ケアプロスト,まつ毛育毛,ビマトプロスト,,https://example.com/p/3,,,\n"

func newTestLoader(t *testing.T) *Loader {
	t.Helper()
	l, err := NewLoader()
	require.NoError(t, err)
	return l
}

func TestReadCSV(t *testing.T) {
	l := newTestLoader(t)

	products, err := l.ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, products, 3)

	first := products[0]
	assert.Equal(t, "カマグラゴールド100mg", first.Name, "BOM must not leak into the first header")
	assert.Equal(t, "ED治療薬", first.Category)
	assert.Equal(t, "バイアグラジェネリック", first.Subcategory)
	assert.Equal(t, "シルデナフィル100mg", first.Ingredient)
	assert.Equal(t, "https://example.com/i/1.jpg", first.ImageURL)
	assert.Equal(t, "https://example.com/c/ed", first.CategoryURL)
	assert.Equal(t, 0, first.CatalogOrder)
	assert.Empty(t, first.Keywords, "missing columns are empty")

	assert.Equal(t, "外用薬, 頭皮に塗布", products[1].Description)
	assert.Equal(t, 1, products[1].CatalogOrder)

	assert.Equal(t, "ケアプロスト", products[2].Name)
	assert.Equal(t, 4, products[2].CatalogOrder, "catalog order is the source row")
}

func TestReadCSV_FirstSeenWins(t *testing.T) {
	l := newTestLoader(t)
	products, err := l.ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	names := map[string]int{}
	for _, p := range products {
		names[p.Name]++
	}
	assert.Equal(t, 1, names["カマグラゴールド100mg"])
	assert.Equal(t, "ED改善", products[0].Effect)
}

func TestReadCSV_Errors(t *testing.T) {
	l := newTestLoader(t)

	products, err := l.ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, products)

	_, err = l.ReadCSV(strings.NewReader("foo,bar\n1,2\n"))
	assert.ErrorIs(t, err, ErrMissingNameColumn)
}

func TestReadCSV_KeywordsAndPriceColumns(t *testing.T) {
	l := newTestLoader(t)
	csv := "商品名,検索キーワード,価格\nトリファラ,\"便秘,腸内環境\",2980\n"

	products, err := l.ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "便秘,腸内環境", products[0].Keywords)
	assert.Equal(t, "2980", products[0].Price)
}

func TestReadJSON(t *testing.T) {
	l := newTestLoader(t)
	data := `[
		{"name": "フィナクス1mg", "category": "AGA治療薬", "price": 2480, "url": "https://example.com/p/9"},
		{"商品名": "ニゾラールシャンプー", "有効成分": "ケトコナゾール", "keywords": ["水虫", "フケ"]},
		{"name": ""}
	]`

	products, err := l.ReadJSON(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "2480", products[0].Price)
	assert.Equal(t, "AGA治療薬", products[0].Category)
	assert.Equal(t, "ケトコナゾール", products[1].Ingredient)
	assert.Equal(t, "水虫,フケ", products[1].Keywords)
	assert.Equal(t, 1, products[1].CatalogOrder)
}

func TestReadNDJSON(t *testing.T) {
	l := newTestLoader(t)
	data := "{\"name\": \"A\"}\n\nnot json\n{\"name\": \"B\", \"effect\": \"美白\"}\n"

	products, err := l.ReadNDJSON(strings.NewReader(data))
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "B", products[1].Name)
	assert.Equal(t, "美白", products[1].Effect)
	assert.Equal(t, 2, products[1].CatalogOrder)
}

func TestLoad_ByExtension(t *testing.T) {
	l := newTestLoader(t)
	dir := t.TempDir()

	csvPath := filepath.Join(dir, "catalog.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(sampleCSV), 0o644))
	products, err := l.Load(csvPath)
	require.NoError(t, err)
	assert.Len(t, products, 3)

	txtPath := filepath.Join(dir, "catalog.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("x"), 0o644))
	_, err = l.Load(txtPath)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = l.Load(filepath.Join(dir, "missing.csv"))
	assert.ErrorIs(t, err, ErrReadCatalog)
}

func TestLoadOrEmpty_DegradesOnError(t *testing.T) {
	l := newTestLoader(t)
	products := l.LoadOrEmpty(filepath.Join(t.TempDir(), "missing.csv"))
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestDocumentText(t *testing.T) {
	p := &core.Product{
		Name:        "カマグラゴールド100mg",
		Category:    "ED治療薬",
		Effect:      "ED改善",
		Ingredient:  "シルデナフィル100mg",
		Description: "即効性",
		Price:       "3980",
	}
	assert.Equal(t,
		"商品名: カマグラゴールド100mg カテゴリ: ED治療薬 効果: ED改善 有効成分: シルデナフィル100mg 説明: 即効性 価格: 3980円",
		DocumentText(p))

	assert.Equal(t, []string{"商品名: X"}, Documents([]*core.Product{{Name: "X"}}))
}

func TestFingerprint(t *testing.T) {
	a := []*core.Product{{Name: "A", CatalogOrder: 0}, {Name: "B", CatalogOrder: 1}}
	b := []*core.Product{{Name: "A", CatalogOrder: 0}, {Name: "B", CatalogOrder: 1}}
	assert.Equal(t, Fingerprint(a), Fingerprint(b))

	b[1].URL = "https://example.com/b"
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))

	reordered := []*core.Product{a[1], a[0]}
	assert.NotEqual(t, Fingerprint(a), Fingerprint(reordered))
}
