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
	"strings"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/core"
	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/rules"
)

// Analyzer classifies queries and extracts their search keywords.
type Analyzer struct {
	matcher    *rules.Matcher
	categories []string
}

// NewAnalyzer creates an analyzer over compiled rules.
func NewAnalyzer(m *rules.Matcher) *Analyzer {
	a := &Analyzer{matcher: m}
	for _, c := range m.Rules().Vocabulary.Categories {
		if c != "" {
			a.categories = append(a.categories, strings.ToLower(c))
		}
	}
	return a
}

// Analyze derives the query context for a raw query.
func (a *Analyzer) Analyze(query string) core.QueryContext {
	return core.QueryContext{
		Raw:      query,
		Type:     a.Classify(query),
		Keywords: a.matcher.ExtractKeywords(query),
	}
}

// Classify returns the query type. Checks run from most to least specific:
// ingredient, known product, symptom, category, product-like spelling.
func (a *Analyzer) Classify(query string) core.QueryType {
	q := strings.ToLower(strings.TrimSpace(query))
	switch {
	case q == "":
		return core.QueryTypeGeneral
	case a.matcher.IsIngredientQuery(q):
		return core.QueryTypeIngredient
	case a.matcher.ContainsProductFragment(q):
		return core.QueryTypeProductName
	case a.matcher.ContainsSymptom(q):
		return core.QueryTypeSymptom
	case a.isCategory(q):
		return core.QueryTypeCategory
	case a.matcher.LooksLikeProductName(query):
		return core.QueryTypeProductName
	}
	return core.QueryTypeGeneral
}

func (a *Analyzer) isCategory(q string) bool {
	for _, c := range a.categories {
		if strings.Contains(q, c) {
			return true
		}
	}
	return a.matcher.InferCategory(q) != nil
}
