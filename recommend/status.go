package recommend

import (
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/core"
)

// DefaultCollection is the collection name reported by Status.
const DefaultCollection = "okusuri_products"

// Index states reported by Status.
const (
	StateReady = "ready"
	StateEmpty = "empty"
	StateError = "error"
)

// Status describes the serving state of a recommender.
type Status struct {
	Collection         string   `json:"collection_name"`
	Products           int      `json:"document_count"`
	State              string   `json:"status"`
	EmbeddingModel     string   `json:"embedding_model"`
	RulesVersion       int      `json:"rules_version"`
	QueryTypes         []string `json:"supported_query_types"`
	IngredientFallback bool     `json:"ingredient_fallback"`
	LLMRerank          bool     `json:"llm_rerank"`
	Error              string   `json:"error,omitempty"`
}

// Status reports the index size and configuration in use.
func (r *Recommender) Status() *Status {
	n := r.searcher.Snapshot().Len()
	state := StateReady
	if n == 0 {
		state = StateEmpty
	}
	types := make([]string, 0, len(core.AllQueryTypes()))
	for _, t := range core.AllQueryTypes() {
		types = append(types, t.String())
	}
	return &Status{
		Collection:         r.collection,
		Products:           n,
		State:              state,
		EmbeddingModel:     r.searcher.Embedder().Model(),
		RulesVersion:       r.searcher.Matcher().Rules().Version,
		QueryTypes:         types,
		IngredientFallback: r.searcher.IngredientFallback(),
		LLMRerank:          r.ranker != nil,
	}
}
