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


package rules

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"github.com/ts1979s-commits/okusuri-tuuhanbu-recommend/core"
	"gopkg.in/yaml.v3"
)

// CurrentVersion is the newest rule file version this build understands.
const CurrentVersion = 1

//go:embed default.yaml
var defaultYAML []byte

// Rules is the complete set of search tables.
type Rules struct {
	Version int `yaml:"version"`

	// IngredientFallback controls whether an ingredient query that matches no
	// product falls through to the keyword and vector stages.
	IngredientFallback bool `yaml:"ingredient_fallback"`

	Scores        Scores         `yaml:"scores"`
	Vocabulary    Vocabulary     `yaml:"vocabulary"`
	Symptoms      []Mapping      `yaml:"symptoms"`
	TopicPatterns []string       `yaml:"topic_patterns"`
	TokenPattern  string         `yaml:"token_separators"`
	Categories    []CategoryRule `yaml:"categories"`
	VectorBonuses []BonusRule    `yaml:"vector_bonuses"`
	Domains       []DomainRule   `yaml:"domains"`
	Analyzer      AnalyzerRules  `yaml:"analyzer"`
	Recommend     RecommendRules `yaml:"recommend"`
}

// Scores holds the fixed score constants.
type Scores struct {
	IngredientShortCircuit float64     `yaml:"ingredient_short_circuit"`
	Fields                 FieldScores `yaml:"fields"`
	VectorCeiling          float64     `yaml:"vector_ceiling"`
	VectorOverfetch        int         `yaml:"vector_overfetch"`
}

// FieldScores is the per-field importance table for keyword matches.
type FieldScores struct {
	IngredientExact   float64 `yaml:"ingredient_exact"`
	IngredientPartial float64 `yaml:"ingredient_partial"`
	NameExact         float64 `yaml:"name_exact"`
	NamePartial       float64 `yaml:"name_partial"`
	Effect            float64 `yaml:"effect"`
	Category          float64 `yaml:"category"`
	Keywords          float64 `yaml:"keywords"`
	Subcategory       float64 `yaml:"subcategory"`
	Description       float64 `yaml:"description"`
}

// Exact returns the score for an equality or token match on f.
func (s FieldScores) Exact(f core.Field) float64 {
	switch f {
	case core.FieldIngredient:
		return s.IngredientExact
	case core.FieldName:
		return s.NameExact
	case core.FieldEffect:
		return s.Effect
	case core.FieldCategory:
		return s.Category
	case core.FieldKeywords:
		return s.Keywords
	case core.FieldSubcategory:
		return s.Subcategory
	case core.FieldDescription:
		return s.Description
	}
	return 0
}

// Partial returns the substring-containment score for f. Only the
// ingredient and name fields accept substring matches.
func (s FieldScores) Partial(f core.Field) (float64, bool) {
	switch f {
	case core.FieldIngredient:
		return s.IngredientPartial, true
	case core.FieldName:
		return s.NamePartial, true
	}
	return 0, false
}

func (s FieldScores) all() []float64 {
	return []float64{
		s.IngredientExact, s.IngredientPartial, s.NameExact, s.NamePartial,
		s.Effect, s.Category, s.Keywords, s.Subcategory, s.Description,
	}
}

// Vocabulary lists known terms found in queries by substring.
type Vocabulary struct {
	Ingredients      []string `yaml:"ingredients"`
	Effects          []string `yaml:"effects"`
	Categories       []string `yaml:"categories"`
	ProductFragments []string `yaml:"product_fragments"`
}

// Mapping expands a trigger term into search keywords.
type Mapping struct {
	Trigger  string   `yaml:"trigger"`
	Keywords []string `yaml:"keywords"`
}

// CategoryRule infers a target category from query terms.
type CategoryRule struct {
	Category string   `yaml:"category"`
	Triggers []string `yaml:"triggers"`
	// Token is tested against the lowercased product category. Defaults to Category.
	Token string `yaml:"token"`
	// Restrict drops results whose category does not contain Token.
	Restrict bool `yaml:"restrict"`
	// Bonus is added to vector scores of results in the category.
	Bonus float64 `yaml:"bonus"`
}

// BonusRule adds a flat bonus to vector results whose category or
// subcategory contains one of CategoryTerms when the query contains one of
// Triggers.
type BonusRule struct {
	Name          string   `yaml:"name"`
	Triggers      []string `yaml:"triggers"`
	CategoryTerms []string `yaml:"category_terms"`
	Bonus         float64  `yaml:"bonus"`
}

// DomainRule drives the final post-filter: results in excluded categories
// are dropped and survivors are ordered by Priority name fragments.
type DomainRule struct {
	Name              string   `yaml:"name"`
	Triggers          []string `yaml:"triggers"`
	ExcludeCategories []string `yaml:"exclude_categories"`
	Priority          []string `yaml:"priority"`
}

// AnalyzerRules feeds query type classification.
type AnalyzerRules struct {
	SymptomTerms    []string `yaml:"symptom_terms"`
	ProductPatterns []string `yaml:"product_patterns"`
}

// RecommendRules holds recommendation post-processing constants.
type RecommendRules struct {
	SymptomSuffix    string  `yaml:"symptom_suffix"`
	NameBoost        float64 `yaml:"name_boost"`
	DescriptionBoost float64 `yaml:"description_boost"`
	CategoryBoost    float64 `yaml:"category_boost"`
	MaxScore         float64 `yaml:"max_score"`
}

// Default returns the embedded rule set. It panics if the embedded file is
// invalid, which is a build defect.
func Default() *Rules {
	r, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded rules: %v", err))
	}
	return r
}

// Load reads and validates a rule file. An empty path returns Default().
func Load(path string) (*Rules, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadRules, err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML rule data.
func Parse(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadRules, err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks structural consistency of the rule set.
func (r *Rules) Validate() error {
	if r.Version < 1 || r.Version > CurrentVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, r.Version)
	}
	if len(r.Vocabulary.Ingredients) == 0 {
		return fmt.Errorf("%w: vocabulary.ingredients is empty", ErrInvalidRules)
	}
	if r.Scores.IngredientShortCircuit <= 0 || r.Scores.IngredientShortCircuit > 1 {
		return fmt.Errorf("%w: ingredient_short_circuit must be in (0,1]", ErrInvalidRules)
	}
	for _, s := range r.Scores.Fields.all() {
		if s <= 0 || s > 1 {
			return fmt.Errorf("%w: field scores must be in (0,1]", ErrInvalidRules)
		}
	}
	if r.Scores.VectorCeiling <= 0 || r.Scores.VectorCeiling > 1 {
		return fmt.Errorf("%w: vector_ceiling must be in (0,1]", ErrInvalidRules)
	}
	if r.Scores.VectorOverfetch < 1 {
		return fmt.Errorf("%w: vector_overfetch must be at least 1", ErrInvalidRules)
	}
	if _, err := regexp.Compile(r.tokenPattern()); err != nil {
		return fmt.Errorf("%w: token_separators: %w", ErrInvalidRules, err)
	}
	for _, p := range r.TopicPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("%w: topic pattern %q: %w", ErrInvalidRules, p, err)
		}
		if re.NumSubexp() < 1 {
			return fmt.Errorf("%w: topic pattern %q has no capture group", ErrInvalidRules, p)
		}
	}
	for _, p := range r.Analyzer.ProductPatterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("%w: product pattern %q: %w", ErrInvalidRules, p, err)
		}
	}
	for _, m := range r.Symptoms {
		if m.Trigger == "" || len(m.Keywords) == 0 {
			return fmt.Errorf("%w: symptom mapping needs a trigger and keywords", ErrInvalidRules)
		}
	}
	for _, c := range r.Categories {
		if c.Category == "" || len(c.Triggers) == 0 {
			return fmt.Errorf("%w: category rule needs a category and triggers", ErrInvalidRules)
		}
	}
	for _, b := range r.VectorBonuses {
		if len(b.Triggers) == 0 || len(b.CategoryTerms) == 0 || b.Bonus <= 0 {
			return fmt.Errorf("%w: vector bonus %q is incomplete", ErrInvalidRules, b.Name)
		}
	}
	for _, d := range r.Domains {
		if d.Name == "" || len(d.Triggers) == 0 {
			return fmt.Errorf("%w: domain rule needs a name and triggers", ErrInvalidRules)
		}
	}
	if r.Recommend.MaxScore <= 0 {
		return fmt.Errorf("%w: recommend.max_score must be positive", ErrInvalidRules)
	}
	return nil
}

func (r *Rules) tokenPattern() string {
	if r.TokenPattern == "" {
		return `[、，,\s・/／]+`
	}
	return r.TokenPattern
}
