package search

import (
	"slices"
	"strings"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/core"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/rules"
)

// fieldText is a lowercased product field with its punctuation-split tokens.
type fieldText struct {
	field  core.Field
	lower  string
	tokens []string
}

// productText holds the searchable fields of one product, in scan order.
// Empty fields are omitted.
type productText struct {
	product *core.Product
	fields  []fieldText
}

// buildProductTexts lowercases and tokenizes every searchable field once so
// keyword matching does not repeat the work per keyword.
func buildProductTexts(products []*core.Product, m *rules.Matcher) []productText {
	out := make([]productText, 0, len(products))
	for _, p := range products {
		if p == nil {
			continue
		}
		pt := productText{product: p}
		for _, f := range core.SearchableFields {
			v := strings.TrimSpace(p.Value(f))
			if v == "" {
				continue
			}
			pt.fields = append(pt.fields, fieldText{
				field:  f,
				lower:  strings.ToLower(v),
				tokens: m.Tokenize(v),
			})
		}
		out = append(out, pt)
	}
	return out
}

// matchScore scores term against a single field. Equality and token
// membership score the field's exact weight; substring containment counts
// only for fields that accept partial matches.
func matchScore(ft fieldText, term string, scores rules.FieldScores) (float64, bool) {
	if ft.lower == term || slices.Contains(ft.tokens, term) {
		return scores.Exact(ft.field), true
	}
	if partial, ok := scores.Partial(ft.field); ok && strings.Contains(ft.lower, term) {
		return partial, true
	}
	return 0, false
}

// searchTerms returns the lowercased keywords followed by the raw query,
// without duplicates.
func searchTerms(query string, keywords []string) []string {
	terms := make([]string, 0, len(keywords)+1)
	add := func(s string) {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" && !slices.Contains(terms, s) {
			terms = append(terms, s)
		}
	}
	for _, k := range keywords {
		add(k)
	}
	add(query)
	return terms
}
