package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Product is a single catalog entry. Identity is the Name; the loader keeps
// the first row seen for each name.
type Product struct {
	Name           string
	Category       string
	Subcategory    string
	Effect         string
	Ingredient     string
	Description    string
	URL            string
	ImageURL       string
	CategoryURL    string
	SubcategoryURL string
	Keywords       string
	Price          string
	CatalogOrder   int // 0-based source row position, used as the stable tie-break
}

// ID returns the content ID of the product name.
func (p *Product) ID() ID {
	return IDFromContent(p.Name)
}

// Fields returns the raw product fields keyed by their wire names.
func (p *Product) Fields() map[string]string {
	return map[string]string{
		"name":            p.Name,
		"category":        p.Category,
		"subcategory":     p.Subcategory,
		"effect":          p.Effect,
		"ingredient":      p.Ingredient,
		"description":     p.Description,
		"url":             p.URL,
		"image_url":       p.ImageURL,
		"category_url":    p.CategoryURL,
		"subcategory_url": p.SubcategoryURL,
		"keywords":        p.Keywords,
		"price":           p.Price,
	}
}

// Value returns the text of a searchable field.
func (p *Product) Value(f Field) string {
	switch f {
	case FieldName:
		return p.Name
	case FieldCategory:
		return p.Category
	case FieldSubcategory:
		return p.Subcategory
	case FieldEffect:
		return p.Effect
	case FieldIngredient:
		return p.Ingredient
	case FieldDescription:
		return p.Description
	case FieldKeywords:
		return p.Keywords
	}
	return ""
}

// Field names a searchable product field.
type Field string

const (
	FieldName        Field = "name"
	FieldCategory    Field = "category"
	FieldSubcategory Field = "subcategory"
	FieldEffect      Field = "effect"
	FieldIngredient  Field = "ingredient"
	FieldDescription Field = "description"
	FieldKeywords    Field = "keywords"
	// FieldVector marks a result that came from embedding similarity only.
	FieldVector Field = "vector"
)

// SearchableFields lists the fields scanned by keyword matching, in scan order.
var SearchableFields = []Field{
	FieldCategory,
	FieldSubcategory,
	FieldName,
	FieldEffect,
	FieldIngredient,
	FieldDescription,
	FieldKeywords,
}

// Strategy identifies which search stage produced a result set.
type Strategy string

const (
	StrategyNone       Strategy = "none"
	StrategyIngredient Strategy = "ingredient"
	StrategyKeyword    Strategy = "keyword"
	StrategyVector     Strategy = "vector"
)

// QueryType classifies a free-text query.
type QueryType int

const (
	QueryTypeGeneral QueryType = iota + 1
	QueryTypeSymptom
	QueryTypeProductName
	QueryTypeCategory
	QueryTypeIngredient
)

var queryTypeNames = map[QueryType]string{
	QueryTypeGeneral:     "general",
	QueryTypeSymptom:     "symptom",
	QueryTypeProductName: "product_name",
	QueryTypeCategory:    "category",
	QueryTypeIngredient:  "ingredient",
}

// String returns the wire name of the query type.
func (q QueryType) String() string {
	if name, ok := queryTypeNames[q]; ok {
		return name
	}
	return "unknown"
}

// AllQueryTypes returns every valid query type in declaration order.
func AllQueryTypes() []QueryType {
	return []QueryType{
		QueryTypeGeneral,
		QueryTypeSymptom,
		QueryTypeProductName,
		QueryTypeCategory,
		QueryTypeIngredient,
	}
}

// QueryContext is derived per request and never persisted.
type QueryContext struct {
	Raw      string
	Type     QueryType
	Keywords []string
}

// SearchResult is a ranked product hit.
//
// Scores are not comparable across strategies: keyword matches carry fixed
// field weights, vector matches carry clamped cosine similarity.
type SearchResult struct {
	Product       *Product
	Score         float64
	Strategy      Strategy
	MatchedField  Field   // Field that produced Score
	MatchedFields []Field // Every field that matched, in first-match order
	Keyword       string  // Keyword or query text that matched MatchedField
}

// HasField reports whether f is among the matched fields.
func (r *SearchResult) HasField(f Field) bool {
	for _, m := range r.MatchedFields {
		if m == f {
			return true
		}
	}
	return false
}

// CachedEmbedding is a stored document embedding keyed by content.
type CachedEmbedding struct {
	Key        ID // IDFromContent(model + "\x00" + document)
	Model      string
	Vector     []float32
	InsertedAt time.Time
}

// EmbeddingKey returns the cache key for a document embedded with model.
func EmbeddingKey(model, document string) ID {
	return IDFromContent(model + "\x00" + document)
}

// Manifest records the last successful index build.
type Manifest struct {
	Fingerprint ID // catalog fingerprint the index was built from
	Products    int
	Skipped     int
	Model       string
	Dimension   int
	BuiltAt     time.Time
}
