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


package recommend

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/ai"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/core"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/rules"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/search"
)

// maxRankCandidates bounds how many results are offered to the ranker.
const maxRankCandidates = 10

// Recommendation is the answer to one customer query.
type Recommendation struct {
	Query   core.QueryContext
	Results []*core.SearchResult

	// Commentary is the ranker's summary. Empty without a ranker or when
	// re-ranking failed.
	Commentary string

	// Reasons maps product names to the ranker's reason for them.
	Reasons map[string]string

	// Reranked is true when the ranker's order was applied.
	Reranked bool
}

// Recommender produces recommendations on top of a Searcher.
type Recommender struct {
	searcher   *search.Searcher
	ranker     ai.Ranker
	params     rules.RecommendRules
	collection string
	logger     *slog.Logger
}

// Option configures a Recommender.
type Option func(*Recommender) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Recommender) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger
		return nil
	}
}

// WithRanker enables language model re-ranking of the final results.
func WithRanker(ranker ai.Ranker) Option {
	return func(r *Recommender) error {
		r.ranker = ranker
		return nil
	}
}

// WithCollectionName sets the name reported by Status.
func WithCollectionName(name string) Option {
	return func(r *Recommender) error {
		if name != "" {
			r.collection = name
		}
		return nil
	}
}

// NewRecommender creates a recommender. Boost factors come from the
// searcher's rules.
func NewRecommender(searcher *search.Searcher, opts ...Option) (*Recommender, error) {
	if searcher == nil {
		return nil, ErrSearcherRequired
	}

	r := &Recommender{
		searcher:   searcher,
		params:     searcher.Matcher().Rules().Recommend,
		collection: DefaultCollection,
		logger:     slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}

	r.logger = r.logger.With("component", "recommend")
	return r, nil
}

// Searcher returns the searcher the recommender draws candidates from.
func (r *Recommender) Searcher() *search.Searcher {
	return r.searcher
}

// Recommend returns up to maxResults products for query.
func (r *Recommender) Recommend(ctx context.Context, query string, maxResults int) (*Recommendation, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if maxResults <= 0 {
		maxResults = search.DefaultTopK
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	qc := r.searcher.Analyzer().Analyze(query)
	r.logger.Info("query analyzed", "query", query, "type", qc.Type, "keywords", qc.Keywords)

	fetch := maxResults
	if r.ranker != nil {
		fetch = maxResults * 2
	}
	results := r.postProcess(r.execute(ctx, qc, fetch), qc.Keywords)

	rec := &Recommendation{Query: qc}
	if r.ranker != nil && len(results) > 1 {
		results = r.rerank(ctx, query, results, rec)
	}
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	rec.Results = results

	r.logger.Info("recommendation complete", "query", query, "results", len(results), "reranked", rec.Reranked)
	return rec, nil
}

// execute runs the search strategy for the query type. Symptom queries are
// searched as given and again with the treatment suffix, and both result
// sets are merged.
func (r *Recommender) execute(ctx context.Context, qc core.QueryContext, topK int) []*core.SearchResult {
	results := r.searcher.Search(ctx, qc.Raw, topK)
	if qc.Type != core.QueryTypeSymptom || r.params.SymptomSuffix == "" {
		return results
	}
	enhanced := qc.Raw + " " + r.params.SymptomSuffix
	return append(results, r.searcher.Search(ctx, enhanced, topK)...)
}

// postProcess dedupes by name keeping the best score, applies keyword
// boosts, caps scores and sorts by score then catalog order.
func (r *Recommender) postProcess(results []*core.SearchResult, keywords []string) []*core.SearchResult {
	byName := make(map[string]int, len(results))
	out := make([]*core.SearchResult, 0, len(results))
	for _, res := range results {
		if i, ok := byName[res.Product.Name]; ok {
			if res.Score > out[i].Score {
				out[i] = copyResult(res)
			}
			continue
		}
		byName[res.Product.Name] = len(out)
		out = append(out, copyResult(res))
	}

	for _, res := range out {
		res.Score = min(r.boost(res, keywords), r.params.MaxScore)
	}

	slices.SortStableFunc(out, func(a, b *core.SearchResult) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Product.CatalogOrder, b.Product.CatalogOrder)
	})
	return out
}

// boost multiplies the score once per keyword and field it appears in.
func (r *Recommender) boost(res *core.SearchResult, keywords []string) float64 {
	score := res.Score
	name := strings.ToLower(res.Product.Name)
	description := strings.ToLower(res.Product.Description)
	category := strings.ToLower(res.Product.Category)
	for _, k := range keywords {
		k = strings.ToLower(k)
		if k == "" {
			continue
		}
		if strings.Contains(name, k) {
			score *= r.params.NameBoost
		}
		if strings.Contains(description, k) {
			score *= r.params.DescriptionBoost
		}
		if strings.Contains(category, k) {
			score *= r.params.CategoryBoost
		}
	}
	return score
}

// rerank applies the ranker's order to the leading results. Names the
// ranker invents are ignored and unranked results keep their order after
// the ranked ones. Ranker failures leave the order untouched.
func (r *Recommender) rerank(ctx context.Context, query string, results []*core.SearchResult, rec *Recommendation) []*core.SearchResult {
	head := results[:min(len(results), maxRankCandidates)]
	candidates := make([]ai.Candidate, len(head))
	for i, res := range head {
		candidates[i] = ai.Candidate{
			Name:        res.Product.Name,
			Category:    res.Product.Category,
			Price:       res.Product.Price,
			Description: res.Product.Description,
			Score:       res.Score,
		}
	}

	ranking, err := r.ranker.Rank(ctx, query, candidates)
	if err != nil {
		r.logger.Warn("re-ranking failed, keeping search order", "query", query, "err", err)
		return results
	}

	byName := make(map[string]*core.SearchResult, len(head))
	for _, res := range head {
		byName[res.Product.Name] = res
	}
	reordered := make([]*core.SearchResult, 0, len(results))
	reasons := make(map[string]string)
	for _, item := range ranking.Items {
		res, ok := byName[strings.TrimSpace(item.Name)]
		if !ok {
			r.logger.Debug("ignoring unknown ranked name", "name", item.Name)
			continue
		}
		delete(byName, res.Product.Name)
		reordered = append(reordered, res)
		if item.Reason != "" {
			reasons[res.Product.Name] = item.Reason
		}
	}
	for _, res := range results {
		if _, pending := byName[res.Product.Name]; pending || !slices.Contains(head, res) {
			reordered = append(reordered, res)
		}
	}

	rec.Commentary = ranking.Summary
	rec.Reasons = reasons
	rec.Reranked = len(byName) < len(head)
	return reordered
}

func copyResult(res *core.SearchResult) *core.SearchResult {
	c := *res
	c.MatchedFields = slices.Clone(res.MatchedFields)
	return &c
}
