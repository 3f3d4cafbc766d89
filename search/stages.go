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


package search

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/core"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/rules"
)

// ingredientMatch returns every product whose ingredient field contains the
// query, in catalog order.
func (s *Searcher) ingredientMatch(query string) []*core.SearchResult {
	q := strings.ToLower(query)
	score := s.rules.Scores.IngredientShortCircuit
	results := make([]*core.SearchResult, 0)
	for _, pt := range s.texts {
		for _, ft := range pt.fields {
			if ft.field != core.FieldIngredient || !strings.Contains(ft.lower, q) {
				continue
			}
			results = append(results, &core.SearchResult{
				Product:       pt.product,
				Score:         score,
				Strategy:      core.StrategyIngredient,
				MatchedField:  core.FieldIngredient,
				MatchedFields: []core.Field{core.FieldIngredient},
				Keyword:       query,
			})
		}
	}
	slices.SortStableFunc(results, func(a, b *core.SearchResult) int {
		return cmp.Compare(a.Product.CatalogOrder, b.Product.CatalogOrder)
	})
	return results
}

// keywordMatch scores every product against the keywords and the raw query,
// keeping the best field score per product.
func (s *Searcher) keywordMatch(query string, keywords []string) []*core.SearchResult {
	terms := searchTerms(query, keywords)
	scores := s.rules.Scores.Fields
	results := make([]*core.SearchResult, 0)

	for _, pt := range s.texts {
		var best *core.SearchResult
		for _, term := range terms {
			for _, ft := range pt.fields {
				score, ok := matchScore(ft, term, scores)
				if !ok {
					continue
				}
				if best == nil {
					best = &core.SearchResult{
						Product:  pt.product,
						Strategy: core.StrategyKeyword,
					}
				}
				if !slices.Contains(best.MatchedFields, ft.field) {
					best.MatchedFields = append(best.MatchedFields, ft.field)
				}
				if score > best.Score {
					best.Score = score
					best.MatchedField = ft.field
					best.Keyword = term
				}
			}
		}
		if best != nil {
			results = append(results, best)
		}
	}
	return results
}

// vectorSearch embeds the query and scores nearest neighbours with the
// category and domain bonuses. Scores are capped at the vector ceiling
// before ordering, so capped hits fall back to catalog order.
func (s *Searcher) vectorSearch(ctx context.Context, query string, topK int, category *rules.CategoryRule) ([]*core.SearchResult, error) {
	embedding, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedQuery, err)
	}

	k := min(topK*max(s.rules.Scores.VectorOverfetch, 1), s.snapshot.Len())
	hits, err := s.snapshot.Index.Search(embedding, k)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedQuery, err)
	}

	results := make([]*core.SearchResult, 0, len(hits))
	for _, hit := range hits {
		p := s.snapshot.Product(hit.Position)
		if p == nil {
			continue
		}
		score := float64(hit.Score)
		if category != nil && rules.InCategory(category, p.Category) {
			score += category.Bonus
		}
		score += s.matcher.VectorBonus(query, p.Category, p.Subcategory)
		results = append(results, &core.SearchResult{
			Product:       p,
			Score:         score,
			Strategy:      core.StrategyVector,
			MatchedField:  core.FieldVector,
			MatchedFields: []core.Field{core.FieldVector},
		})
	}
	results = filterCategory(category, results)

	ceiling := s.rules.Scores.VectorCeiling
	for _, r := range results {
		r.Score = min(r.Score, ceiling)
	}
	sortResults(results)
	return results, nil
}

// applyDomain drops results in categories excluded by the domain and
// re-sorts survivors by score, then priority rank, then catalog order.
func (s *Searcher) applyDomain(domain *rules.DomainRule, results []*core.SearchResult) []*core.SearchResult {
	if domain == nil {
		return results
	}
	kept := results[:0:0]
	for _, r := range results {
		if s.matcher.Excluded(domain, r.Product.Category) {
			continue
		}
		kept = append(kept, r)
	}
	slices.SortStableFunc(kept, func(a, b *core.SearchResult) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		ra := s.matcher.PriorityRank(domain, a.Product.Name)
		rb := s.matcher.PriorityRank(domain, b.Product.Name)
		if c := cmp.Compare(ra, rb); c != 0 {
			return c
		}
		return cmp.Compare(a.Product.CatalogOrder, b.Product.CatalogOrder)
	})
	return kept
}

// filterCategory keeps results inside a restricting category. Other
// categories leave the results untouched.
func filterCategory(category *rules.CategoryRule, results []*core.SearchResult) []*core.SearchResult {
	if category == nil || !category.Restrict {
		return results
	}
	kept := results[:0:0]
	for _, r := range results {
		if rules.InCategory(category, r.Product.Category) {
			kept = append(kept, r)
		}
	}
	return kept
}

// sortResults orders by score descending, then catalog order ascending.
func sortResults(results []*core.SearchResult) {
	slices.SortStableFunc(results, func(a, b *core.SearchResult) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Product.CatalogOrder, b.Product.CatalogOrder)
	})
}

// dedupeByName keeps the first result for each product name.
func dedupeByName(results []*core.SearchResult) []*core.SearchResult {
	seen := make(map[string]struct{}, len(results))
	out := make([]*core.SearchResult, 0, len(results))
	for _, r := range results {
		if _, dup := seen[r.Product.Name]; dup {
			continue
		}
		seen[r.Product.Name] = struct{}{}
		out = append(out, r)
	}
	return out
}

func truncate(results []*core.SearchResult, k int) []*core.SearchResult {
	if len(results) > k {
		return results[:k]
	}
	return results
}
