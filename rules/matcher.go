package rules

import (
	"regexp"
	"strings"
)

// Matcher is a compiled, read-only view of a Rules value. It is safe for
// concurrent use.
type Matcher struct {
	rules *Rules

	ingredients []term
	known       []term // ingredients, effects, categories, product fragments
	topicTerms  []term // ingredients, effects, categories
	fragments   []term
	symptoms    []compiledMapping
	topics      []*regexp.Regexp
	separators  *regexp.Regexp
	categories  []compiledCategory
	bonuses     []compiledBonus
	domains     []compiledDomain
	symptomHint []string
	products    []*regexp.Regexp
}

type term struct {
	text  string
	lower string
}

type compiledMapping struct {
	trigger  string
	keywords []string
}

type compiledCategory struct {
	rule     *CategoryRule
	triggers []string
	token    string
}

type compiledBonus struct {
	rule     *BonusRule
	triggers []string
	terms    []string
}

type compiledDomain struct {
	rule     *DomainRule
	triggers []string
	excluded []string
	priority []string
}

// Compile validates r and precomputes its lowercase tables and regexps.
func (r *Rules) Compile() (*Matcher, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	m := &Matcher{
		rules:       r,
		ingredients: terms(r.Vocabulary.Ingredients),
		fragments:   terms(r.Vocabulary.ProductFragments),
		separators:  regexp.MustCompile(r.tokenPattern()),
		symptomHint: lowerAll(r.Analyzer.SymptomTerms),
	}
	m.topicTerms = append(m.topicTerms, m.ingredients...)
	m.topicTerms = append(m.topicTerms, terms(r.Vocabulary.Effects)...)
	m.topicTerms = append(m.topicTerms, terms(r.Vocabulary.Categories)...)
	m.known = append(append([]term{}, m.topicTerms...), m.fragments...)

	for _, s := range r.Symptoms {
		m.symptoms = append(m.symptoms, compiledMapping{
			trigger:  strings.ToLower(s.Trigger),
			keywords: s.Keywords,
		})
	}
	for _, p := range r.TopicPatterns {
		m.topics = append(m.topics, regexp.MustCompile(p))
	}
	for _, p := range r.Analyzer.ProductPatterns {
		m.products = append(m.products, regexp.MustCompile(p))
	}
	for i := range r.Categories {
		c := &r.Categories[i]
		token := c.Token
		if token == "" {
			token = c.Category
		}
		m.categories = append(m.categories, compiledCategory{
			rule:     c,
			triggers: lowerAll(c.Triggers),
			token:    strings.ToLower(token),
		})
	}
	for i := range r.VectorBonuses {
		b := &r.VectorBonuses[i]
		m.bonuses = append(m.bonuses, compiledBonus{
			rule:     b,
			triggers: lowerAll(b.Triggers),
			terms:    lowerAll(b.CategoryTerms),
		})
	}
	for i := range r.Domains {
		d := &r.Domains[i]
		m.domains = append(m.domains, compiledDomain{
			rule:     d,
			triggers: lowerAll(d.Triggers),
			excluded: lowerAll(d.ExcludeCategories),
			priority: lowerAll(d.Priority),
		})
	}
	return m, nil
}

// Rules returns the source rule set.
func (m *Matcher) Rules() *Rules {
	return m.rules
}

// IsIngredientQuery reports whether the query and a known ingredient contain
// one another.
func (m *Matcher) IsIngredientQuery(query string) bool {
	q := normalize(query)
	if q == "" {
		return false
	}
	for _, t := range m.ingredients {
		if strings.Contains(q, t.lower) || strings.Contains(t.lower, q) {
			return true
		}
	}
	return false
}

// ContainsProductFragment reports whether the query names a known product.
func (m *Matcher) ContainsProductFragment(query string) bool {
	return containsAnyTerm(normalize(query), m.fragments)
}

// ContainsSymptom reports whether the query mentions a symptom term or a
// symptom-map trigger.
func (m *Matcher) ContainsSymptom(query string) bool {
	q := normalize(query)
	if containsAny(q, m.symptomHint) {
		return true
	}
	for _, s := range m.symptoms {
		if containsTerm(q, s.trigger) {
			return true
		}
	}
	return false
}

// LooksLikeProductName reports whether the query matches a product name pattern.
func (m *Matcher) LooksLikeProductName(query string) bool {
	q := strings.TrimSpace(query)
	for _, re := range m.products {
		if re.MatchString(q) {
			return true
		}
	}
	return false
}

// ExtractKeywords returns the search keywords implied by the query, in
// first-seen order without duplicates.
func (m *Matcher) ExtractKeywords(query string) []string {
	q := normalize(query)
	if q == "" {
		return nil
	}
	var out keywordSet

	for _, t := range m.known {
		if containsTerm(q, t.lower) {
			out.add(t.text)
		}
	}
	for _, s := range m.symptoms {
		if containsTerm(q, s.trigger) {
			out.add(s.keywords...)
		}
	}
	for _, re := range m.topics {
		for _, match := range re.FindAllStringSubmatch(strings.TrimSpace(query), -1) {
			topic := strings.ToLower(match[1])
			if topic == "" {
				continue
			}
			for _, t := range m.topicTerms {
				if strings.Contains(t.lower, topic) || strings.Contains(topic, t.lower) {
					out.add(t.text)
				}
			}
			for _, s := range m.symptoms {
				if containsTerm(topic, s.trigger) {
					out.add(s.keywords...)
				}
			}
		}
	}
	return out.items
}

// Tokenize splits a field value on punctuation and whitespace into
// lowercased tokens.
func (m *Matcher) Tokenize(value string) []string {
	parts := m.separators.Split(strings.ToLower(value), -1)
	tokens := parts[:0]
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}

// InferCategory returns the first category rule triggered by the query, or nil.
func (m *Matcher) InferCategory(query string) *CategoryRule {
	if c := m.inferCategory(normalize(query)); c != nil {
		return c.rule
	}
	return nil
}

func (m *Matcher) inferCategory(q string) *compiledCategory {
	for i := range m.categories {
		if containsAny(q, m.categories[i].triggers) {
			return &m.categories[i]
		}
	}
	return nil
}

// CategoryToken returns the lowercased token tested against product
// categories for c.
func CategoryToken(c *CategoryRule) string {
	if c.Token != "" {
		return strings.ToLower(c.Token)
	}
	return strings.ToLower(c.Category)
}

// InCategory reports whether a product category contains the rule's token.
func InCategory(c *CategoryRule, productCategory string) bool {
	return strings.Contains(strings.ToLower(productCategory), CategoryToken(c))
}

// VectorBonus returns the total flat bonus for a product given the query.
// Every triggered bonus rule whose terms appear in the category or
// subcategory contributes once.
func (m *Matcher) VectorBonus(query, category, subcategory string) float64 {
	q := normalize(query)
	cat := strings.ToLower(category)
	sub := strings.ToLower(subcategory)
	bonus := 0.0
	for _, b := range m.bonuses {
		if !containsAny(q, b.triggers) {
			continue
		}
		if containsAny(cat, b.terms) || containsAny(sub, b.terms) {
			bonus += b.rule.Bonus
		}
	}
	return bonus
}

// Domain returns the first domain rule triggered by the query, or nil.
func (m *Matcher) Domain(query string) *DomainRule {
	if d := m.domain(normalize(query)); d != nil {
		return d.rule
	}
	return nil
}

func (m *Matcher) domain(q string) *compiledDomain {
	for i := range m.domains {
		if containsAny(q, m.domains[i].triggers) {
			return &m.domains[i]
		}
	}
	return nil
}

// Excluded reports whether a product category is excluded by domain d.
func (m *Matcher) Excluded(d *DomainRule, productCategory string) bool {
	cd := m.compiledDomain(d)
	if cd == nil {
		return false
	}
	return containsAny(strings.ToLower(productCategory), cd.excluded)
}

// PriorityRank returns the index of the first priority fragment contained in
// the product name, or len(Priority) when none match.
func (m *Matcher) PriorityRank(d *DomainRule, productName string) int {
	cd := m.compiledDomain(d)
	if cd == nil {
		return 0
	}
	name := strings.ToLower(productName)
	for i, p := range cd.priority {
		if strings.Contains(name, p) {
			return i
		}
	}
	return len(cd.priority)
}

func (m *Matcher) compiledDomain(d *DomainRule) *compiledDomain {
	for i := range m.domains {
		if m.domains[i].rule == d {
			return &m.domains[i]
		}
	}
	return nil
}

type keywordSet struct {
	seen  map[string]struct{}
	items []string
}

func (s *keywordSet) add(words ...string) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	for _, w := range words {
		if w == "" {
			continue
		}
		if _, ok := s.seen[w]; ok {
			continue
		}
		s.seen[w] = struct{}{}
		s.items = append(s.items, w)
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func terms(words []string) []term {
	out := make([]term, 0, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		out = append(out, term{text: w, lower: strings.ToLower(w)})
	}
	return out
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w != "" {
			out = append(out, strings.ToLower(w))
		}
	}
	return out
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if containsTerm(s, sub) {
			return true
		}
	}
	return false
}

// containsTerm reports whether t occurs in s. An end of t that is a Latin
// letter must not touch another Latin letter in s, so "ed" matches "ed治療薬"
// and "ed 10mg" but not "need" or "medicine".
func containsTerm(s, t string) bool {
	if t == "" {
		return true
	}
	checkStart := isLatinLetter(t[0])
	checkEnd := isLatinLetter(t[len(t)-1])
	if !checkStart && !checkEnd {
		return strings.Contains(s, t)
	}
	for offset := 0; offset <= len(s)-len(t); {
		i := strings.Index(s[offset:], t)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(t)
		if (!checkStart || start == 0 || !isLatinLetter(s[start-1])) &&
			(!checkEnd || end == len(s) || !isLatinLetter(s[end])) {
			return true
		}
		offset = start + 1
	}
	return false
}

func isLatinLetter(b byte) bool {
	return 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z'
}

func containsAnyTerm(s string, ts []term) bool {
	for _, t := range ts {
		if strings.Contains(s, t.lower) {
			return true
		}
	}
	return false
}
