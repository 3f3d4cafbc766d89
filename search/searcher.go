package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/ai"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/core"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/index"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/rules"
)

// DefaultTopK is the result limit used when a caller passes a non-positive one.
const DefaultTopK = 5

// Searcher runs the search cascade over one index snapshot. It is read-only
// after construction and safe for concurrent use.
type Searcher struct {
	snapshot    *index.Snapshot
	embedder    ai.Embedder
	rules       *rules.Rules
	matcher     *rules.Matcher
	analyzer    *Analyzer
	texts       []productText
	fallback    *bool
	defaultTopK int
	logger      *slog.Logger
}

// Report describes how a query was answered.
type Report struct {
	Query     core.QueryContext
	Strategy  core.Strategy
	Category  *rules.CategoryRule
	Domain    *rules.DomainRule
	Keywords  []string
	VectorRan bool
	Results   []*core.SearchResult
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithRules replaces the embedded default rule tables.
func WithRules(r *rules.Rules) Option {
	return func(s *Searcher) error {
		if r != nil {
			s.rules = r
		}
		return nil
	}
}

// WithIngredientFallback overrides the rules' ingredient_fallback flag.
func WithIngredientFallback(enabled bool) Option {
	return func(s *Searcher) error {
		s.fallback = &enabled
		return nil
	}
}

// WithDefaultTopK sets the limit used when Search is called with topK <= 0.
func WithDefaultTopK(k int) Option {
	return func(s *Searcher) error {
		if k <= 0 {
			return fmt.Errorf("%w: %d", ErrInvalidTopK, k)
		}
		s.defaultTopK = k
		return nil
	}
}

// NewSearcher creates a searcher over snapshot. The snapshot must be
// aligned; an empty snapshot is valid and yields no results.
func NewSearcher(snapshot *index.Snapshot, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if snapshot == nil {
		return nil, ErrSnapshotRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}

	s := &Searcher{
		snapshot:    snapshot,
		embedder:    embedder,
		defaultTopK: DefaultTopK,
		logger:      slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.rules == nil {
		s.rules = rules.Default()
	}
	m, err := s.rules.Compile()
	if err != nil {
		return nil, err
	}
	s.matcher = m
	s.analyzer = NewAnalyzer(m)
	s.texts = buildProductTexts(snapshot.Products, m)
	s.logger = s.logger.With("component", "search")
	return s, nil
}

// Matcher returns the compiled rules used by the searcher.
func (s *Searcher) Matcher() *rules.Matcher {
	return s.matcher
}

// Analyzer returns the query analyzer bound to the searcher's rules.
func (s *Searcher) Analyzer() *Analyzer {
	return s.analyzer
}

// Embedder returns the embedder used for the vector stage.
func (s *Searcher) Embedder() ai.Embedder {
	return s.embedder
}

// Snapshot returns the snapshot being searched.
func (s *Searcher) Snapshot() *index.Snapshot {
	return s.snapshot
}

// IngredientFallback reports whether an ingredient query with no ingredient
// match continues to the keyword stage.
func (s *Searcher) IngredientFallback() bool {
	if s.fallback != nil {
		return *s.fallback
	}
	return s.rules.IngredientFallback
}

// Search returns up to topK products for query. It never fails: errors and
// panics inside the cascade are logged and produce an empty slice.
func (s *Searcher) Search(ctx context.Context, query string, topK int) []*core.SearchResult {
	report, err := s.SearchDetailed(ctx, query, topK, nil)
	if err != nil || report == nil {
		return []*core.SearchResult{}
	}
	return report.Results
}

// SearchDetailed runs the cascade and reports every stage to monitor.
// The returned error distinguishes a failed search from one with no matches;
// the report is always non-nil.
func (s *Searcher) SearchDetailed(ctx context.Context, query string, topK int, monitor SearchMonitor) (report *Report, err error) {
	// Use noop monitor if none provided
	if monitor == nil {
		monitor = NoopMonitor{}
	}
	if topK <= 0 {
		topK = s.defaultTopK
	}
	query = strings.TrimSpace(query)
	report = &Report{Strategy: core.StrategyNone, Results: []*core.SearchResult{}}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("search panicked", "query", query, "panic", r)
			report.Strategy = core.StrategyNone
			report.Results = []*core.SearchResult{}
			err = fmt.Errorf("%w: %v", ErrSearchFailed, r)
		}
	}()

	monitor.Start(query)
	if query == "" || s.snapshot.Len() == 0 {
		monitor.Finish(report.Results)
		return report, nil
	}
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}

	report.Query = s.analyzer.Analyze(query)
	report.Keywords = report.Query.Keywords
	monitor.AfterAnalysis(report.Query)

	// 1. Ingredient short-circuit
	if s.matcher.IsIngredientQuery(query) {
		hits := s.ingredientMatch(query)
		monitor.AfterIngredientMatch(hits)
		if len(hits) > 0 || !s.IngredientFallback() {
			if len(hits) > 0 {
				report.Strategy = core.StrategyIngredient
			}
			report.Results = truncate(hits, topK)
			monitor.Finish(report.Results)
			return report, nil
		}
		s.logger.Debug("no ingredient match, falling through", "query", query)
	}

	// 2. Keyword matching
	results := s.keywordMatch(query, report.Keywords)
	monitor.AfterKeywordMatch(results)

	// 3. Category inference
	report.Category = s.matcher.InferCategory(query)
	results = filterCategory(report.Category, results)
	monitor.AfterCategoryInference(report.Category, results)

	// 4. Vector fallback
	var searchErr error
	if len(results) > 0 {
		report.Strategy = core.StrategyKeyword
		sortResults(results)
	} else {
		report.VectorRan = true
		results, searchErr = s.vectorSearch(ctx, query, topK, report.Category)
		monitor.AfterVectorSearch(results, searchErr)
		if searchErr != nil {
			s.logger.Warn("vector search unavailable", "query", query, "err", searchErr)
			results = nil
		} else if len(results) > 0 {
			report.Strategy = core.StrategyVector
		}
	}

	// 5. Merge and dedupe
	results = dedupeByName(results)

	// 6. Domain post-filter
	report.Domain = s.matcher.Domain(query)
	results = s.applyDomain(report.Domain, results)
	monitor.AfterDomainFilter(report.Domain, results)

	report.Results = truncate(results, topK)
	if len(report.Results) == 0 {
		report.Strategy = core.StrategyNone
	}
	monitor.Finish(report.Results)
	return report, searchErr
}
