package server

import (
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/core"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/recommend"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version,omitempty"`
}

// ErrorResponse is returned for every non-2xx reply
type ErrorResponse struct {
	Error string `json:"error"`
}

// ProductResult is one ranked product
type ProductResult struct {
	ProductName     string            `json:"product_name"`
	URL             string            `json:"url"`
	ImageURL        string            `json:"image_url,omitempty"`
	Price           string            `json:"price"`
	Description     string            `json:"description"`
	Category        string            `json:"category"`
	Subcategory     string            `json:"subcategory,omitempty"`
	SimilarityScore float64           `json:"similarity_score"`
	MatchedField    string            `json:"matched_field"`
	Strategy        string            `json:"strategy"`
	Reason          string            `json:"reason,omitempty"`
	RawFields       map[string]string `json:"raw_fields"`
}

// SearchResponse is the body of GET /api/v1/search
type SearchResponse struct {
	Query   string          `json:"query"`
	Count   int             `json:"count"`
	Results []ProductResult `json:"results"`
}

// RecommendRequest is the body of POST /api/v1/recommend
type RecommendRequest struct {
	Query      string `json:"query" binding:"required"`
	MaxResults int    `json:"max_results"`
}

// RecommendResponse is the body returned by POST /api/v1/recommend
type RecommendResponse struct {
	Query      string          `json:"query"`
	QueryType  string          `json:"query_type"`
	Keywords   []string        `json:"keywords"`
	Count      int             `json:"count"`
	Results    []ProductResult `json:"results"`
	Commentary string          `json:"commentary,omitempty"`
	Reranked   bool            `json:"reranked"`
}

// NewRecommendResponse converts a recommendation to its wire form.
func NewRecommendResponse(rec *recommend.Recommendation) RecommendResponse {
	keywords := rec.Query.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return RecommendResponse{
		Query:      rec.Query.Raw,
		QueryType:  rec.Query.Type.String(),
		Keywords:   keywords,
		Count:      len(rec.Results),
		Results:    toProductResults(rec.Results, rec.Reasons),
		Commentary: rec.Commentary,
		Reranked:   rec.Reranked,
	}
}

func toProductResults(results []*core.SearchResult, reasons map[string]string) []ProductResult {
	out := make([]ProductResult, 0, len(results))
	for _, r := range results {
		p := r.Product
		out = append(out, ProductResult{
			ProductName:     p.Name,
			URL:             p.URL,
			ImageURL:        p.ImageURL,
			Price:           p.Price,
			Description:     p.Description,
			Category:        p.Category,
			Subcategory:     p.Subcategory,
			SimilarityScore: r.Score,
			MatchedField:    string(r.MatchedField),
			Strategy:        string(r.Strategy),
			Reason:          reasons[p.Name],
			RawFields:       p.Fields(),
		})
	}
	return out
}
