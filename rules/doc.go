// Package rules holds the hand-authored lookup tables that drive keyword
// extraction, category inference, score weights, vector bonuses and the
// domain post-filter.
//
// Tables are ordered lists of {trigger terms, target} entries loaded from a
// versioned YAML file. A default rule set is embedded in the binary; an
// operator can point the search configuration at a replacement file without
// rebuilding.
//
// Matching is case-insensitive: triggers and queries are both lowercased
// before substring tests.
package rules
