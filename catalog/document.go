package catalog

import (
	"strconv"
	"strings"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/core"
)

// DocumentText renders the text that is embedded for a product. Empty fields
// are omitted.
func DocumentText(p *core.Product) string {
	parts := make([]string, 0, 7)
	add := func(label, value string) {
		if value != "" {
			parts = append(parts, label+": "+value)
		}
	}
	add("商品名", p.Name)
	add("カテゴリ", p.Category)
	add("サブカテゴリ", p.Subcategory)
	add("効果", p.Effect)
	add("有効成分", p.Ingredient)
	add("説明", p.Description)
	if p.Price != "" {
		parts = append(parts, "価格: "+p.Price+"円")
	}
	return strings.Join(parts, " ")
}

// Documents renders DocumentText for every product, preserving order.
func Documents(products []*core.Product) []string {
	docs := make([]string, len(products))
	for i, p := range products {
		docs[i] = DocumentText(p)
	}
	return docs
}

// Fingerprint identifies a catalog by every persisted product field, in
// catalog order. Any change that would alter the index changes it.
func Fingerprint(products []*core.Product) core.ID {
	var sb strings.Builder
	for _, p := range products {
		sb.WriteString(DocumentText(p))
		sb.WriteByte('\x1f')
		sb.WriteString(p.URL)
		sb.WriteByte('\x1f')
		sb.WriteString(p.Keywords)
		sb.WriteByte('\x1f')
		sb.WriteString(p.ImageURL)
		sb.WriteByte('\x1f')
		sb.WriteString(p.CategoryURL)
		sb.WriteByte('\x1f')
		sb.WriteString(p.SubcategoryURL)
		sb.WriteByte('\x1f')
		sb.WriteString(strconv.Itoa(p.CatalogOrder))
		sb.WriteByte('\x1e')
	}
	return core.IDFromContent(sb.String())
}
