package mock

import (
	"context"
	"sync/atomic"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/ai"
)

// MockRanker is a test double for ai.Ranker.
type MockRanker struct {
	// RankFunc is called by Rank if set.
	// If nil, candidates are returned in reverse order so that tests can
	// tell a re-ranked list from the original.
	RankFunc func(ctx context.Context, query string, candidates []ai.Candidate) (*ai.Ranking, error)

	calls atomic.Int64
}

// NewMockRanker creates a mock ranker with default behavior.
func NewMockRanker() *MockRanker {
	return &MockRanker{}
}

// WithRankFunc sets custom behavior for Rank.
func (m *MockRanker) WithRankFunc(fn func(ctx context.Context, query string, candidates []ai.Candidate) (*ai.Ranking, error)) *MockRanker {
	m.RankFunc = fn
	return m
}

// Rank orders candidates.
func (m *MockRanker) Rank(ctx context.Context, query string, candidates []ai.Candidate) (*ai.Ranking, error) {
	m.calls.Add(1)

	if m.RankFunc != nil {
		return m.RankFunc(ctx, query, candidates)
	}

	items := make([]ai.RankedItem, 0, len(candidates))
	for i := len(candidates) - 1; i >= 0; i-- {
		items = append(items, ai.RankedItem{Name: candidates[i].Name, Reason: "mock"})
	}
	return &ai.Ranking{Items: items, Summary: "mock summary"}, nil
}

// CallCount returns the number of times Rank was called.
func (m *MockRanker) CallCount() int {
	return int(m.calls.Load())
}

// Reset clears the call count and custom function.
func (m *MockRanker) Reset() {
	m.calls.Store(0)
	m.RankFunc = nil
}
