package search

import (
	"fmt"
	"io"
	"strings"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/core"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/rules"
)

// SearchMonitor provides hooks to observe the search cascade.
// Implement this interface to track intermediate steps and results during search.
type SearchMonitor interface {
	Start(query string)
	AfterAnalysis(qc core.QueryContext)
	AfterIngredientMatch(results []*core.SearchResult)
	AfterKeywordMatch(results []*core.SearchResult)
	AfterCategoryInference(category *rules.CategoryRule, kept []*core.SearchResult)
	AfterVectorSearch(results []*core.SearchResult, err error)
	AfterDomainFilter(domain *rules.DomainRule, results []*core.SearchResult)
	Finish(results []*core.SearchResult)
}

// NoopMonitor ignores every hook.
type NoopMonitor struct{}

var _ SearchMonitor = NoopMonitor{}

func (NoopMonitor) Start(_ string)                                                       {}
func (NoopMonitor) AfterAnalysis(_ core.QueryContext)                                    {}
func (NoopMonitor) AfterIngredientMatch(_ []*core.SearchResult)                          {}
func (NoopMonitor) AfterKeywordMatch(_ []*core.SearchResult)                             {}
func (NoopMonitor) AfterCategoryInference(_ *rules.CategoryRule, _ []*core.SearchResult) {}
func (NoopMonitor) AfterVectorSearch(_ []*core.SearchResult, _ error)                    {}
func (NoopMonitor) AfterDomainFilter(_ *rules.DomainRule, _ []*core.SearchResult)        {}
func (NoopMonitor) Finish(_ []*core.SearchResult)                                        {}

// TraceMonitor writes a line per stage to w. It backs the CLI's --explain flag.
type TraceMonitor struct {
	w     io.Writer
	limit int
}

var _ SearchMonitor = (*TraceMonitor)(nil)

// NewTraceMonitor creates a monitor that lists at most limit results per stage.
func NewTraceMonitor(w io.Writer, limit int) *TraceMonitor {
	if limit <= 0 {
		limit = 5
	}
	return &TraceMonitor{w: w, limit: limit}
}

func (t *TraceMonitor) Start(query string) {
	fmt.Fprintf(t.w, "query: %q\n", query)
}

func (t *TraceMonitor) AfterAnalysis(qc core.QueryContext) {
	fmt.Fprintf(t.w, "analysis: type=%s keywords=[%s]\n", qc.Type, strings.Join(qc.Keywords, ", "))
}

func (t *TraceMonitor) AfterIngredientMatch(results []*core.SearchResult) {
	t.stage("ingredient", results)
}

func (t *TraceMonitor) AfterKeywordMatch(results []*core.SearchResult) {
	t.stage("keyword", results)
}

func (t *TraceMonitor) AfterCategoryInference(category *rules.CategoryRule, kept []*core.SearchResult) {
	if category == nil {
		fmt.Fprintln(t.w, "category: none")
		return
	}
	fmt.Fprintf(t.w, "category: %s restrict=%t kept=%d\n", category.Category, category.Restrict, len(kept))
}

func (t *TraceMonitor) AfterVectorSearch(results []*core.SearchResult, err error) {
	if err != nil {
		fmt.Fprintf(t.w, "vector: error: %v\n", err)
		return
	}
	t.stage("vector", results)
}

func (t *TraceMonitor) AfterDomainFilter(domain *rules.DomainRule, results []*core.SearchResult) {
	if domain == nil {
		fmt.Fprintln(t.w, "domain: none")
		return
	}
	fmt.Fprintf(t.w, "domain: %s kept=%d\n", domain.Name, len(results))
}

func (t *TraceMonitor) Finish(results []*core.SearchResult) {
	t.stage("final", results)
}

func (t *TraceMonitor) stage(name string, results []*core.SearchResult) {
	fmt.Fprintf(t.w, "%s: %d hits\n", name, len(results))
	for i, r := range results {
		if i == t.limit {
			fmt.Fprintf(t.w, "  ... %d more\n", len(results)-t.limit)
			break
		}
		fmt.Fprintf(t.w, "  %.3f %s [%s %q]\n", r.Score, r.Product.Name, r.MatchedField, r.Keyword)
	}
}
