// Package lookup resolves free-text cell values against external reference
// datasets. The matching engine compares one input value against reference
// rows in strictly ordered tiers (exact, normalized, fuzzy) and populates
// derived columns from the matched row; the processor orchestrates the
// engine over bulk imports and single real-time cell edits.
//
// Tiering keeps exact administrative data (IDs, codes) deterministic while
// tolerating user typos for free-text entry: fuzzy matching can never mask a
// real exact hit because the exact tier always runs first.
package lookup

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/unicode/norm"

	"github.com/JonMunkholm/reshape/rules"
	"github.com/JonMunkholm/reshape/schema"
)

// MatchType identifies which tier produced a match.
type MatchType string

const (
	MatchExact      MatchType = "exact"
	MatchNormalized MatchType = "normalized"
	MatchFuzzy      MatchType = "fuzzy"
	MatchNone       MatchType = "none"
)

// NormalizedConfidence is the fixed confidence for normalized-tier matches.
// It sits above any sane fuzzy threshold and below exact's 1.0 so the three
// tiers stay distinguishable by confidence alone.
const NormalizedConfidence = 0.95

// DefaultFuzzyThreshold is the minimum similarity accepted by the fuzzy tier
// when the field does not configure its own.
const DefaultFuzzyThreshold = 0.7

// Result is the outcome of resolving one input value. Results are created
// fresh on every call and never reused across input values.
type Result struct {
	Matched       bool
	Confidence    float64 // 0-1
	MatchType     MatchType
	MatchedValue  any            // Value from the target column of the matched row
	DerivedValues map[string]any // Populated per the field's AlsoGet specs
	InputValue    any
}

// Config is the per-field matching configuration, derived from a lookup
// field's LookupSpec.
type Config struct {
	SourceColumn   string // Reference column compared against the input
	TargetColumn   string // Reference column substituted on a match
	FuzzyEnabled   bool
	FuzzyThreshold float64 // Zero means DefaultFuzzyThreshold
	AlsoGet        []schema.DerivedSpec
}

// ConfigFromField derives a matching config from a lookup-typed field.
// Returns false when the field carries no lookup configuration.
func ConfigFromField(field schema.TargetField) (Config, bool) {
	if !field.IsLookup() {
		return Config{}, false
	}
	spec := field.Lookup
	return Config{
		SourceColumn:   spec.Match.On,
		TargetColumn:   spec.Match.Get,
		FuzzyEnabled:   spec.SmartMatching.Enabled,
		FuzzyThreshold: spec.SmartMatching.Confidence,
		AlsoGet:        spec.AlsoGet,
	}, true
}

// Engine performs tiered matching of one value against reference rows.
// It is stateless; one engine can serve many concurrent callers.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates a matching engine. A nil logger falls back to
// slog.Default().
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger}
}

// Lookup resolves one input value against the reference rows, returning at
// the first tier that succeeds:
//
//  1. Exact: case-sensitive equality, confidence 1.0
//  2. Normalized: case-insensitive, whitespace-collapsed, NFKC-folded
//     equality, confidence NormalizedConfidence
//  3. Fuzzy (when enabled): best similarity score at or above the threshold
//
// If no tier succeeds, Matched is false with confidence 0.
func (e *Engine) Lookup(input any, reference []schema.TableRow, cfg Config) Result {
	miss := Result{MatchType: MatchNone, InputValue: input}

	inputStr := rules.ValueToString(input)
	if inputStr == "" || len(reference) == 0 {
		return miss
	}

	// Tier 1: exact
	for _, row := range reference {
		if rules.ValueToString(row[cfg.SourceColumn]) == inputStr {
			return e.match(input, row, cfg, MatchExact, 1.0)
		}
	}

	// Tier 2: normalized
	normInput := normalizeValue(inputStr)
	for _, row := range reference {
		if normalizeValue(rules.ValueToString(row[cfg.SourceColumn])) == normInput {
			return e.match(input, row, cfg, MatchNormalized, NormalizedConfidence)
		}
	}

	// Tier 3: fuzzy
	if cfg.FuzzyEnabled {
		threshold := cfg.FuzzyThreshold
		if threshold == 0 {
			threshold = DefaultFuzzyThreshold
		}

		var best float64
		var bestRow schema.TableRow
		for _, row := range reference {
			candidate := normalizeValue(rules.ValueToString(row[cfg.SourceColumn]))
			if candidate == "" {
				continue
			}
			if score := similarity(normInput, candidate); score > best {
				best = score
				bestRow = row
			}
		}
		if bestRow != nil && best >= threshold {
			return e.match(input, bestRow, cfg, MatchFuzzy, best)
		}
	}

	return miss
}

// match builds a successful result, copying derived values per AlsoGet.
// Missing source columns are omitted, not errored.
func (e *Engine) match(input any, row schema.TableRow, cfg Config, matchType MatchType, confidence float64) Result {
	result := Result{
		Matched:      true,
		Confidence:   confidence,
		MatchType:    matchType,
		MatchedValue: row[cfg.TargetColumn],
		InputValue:   input,
	}

	if len(cfg.AlsoGet) > 0 {
		result.DerivedValues = make(map[string]any, len(cfg.AlsoGet))
		for _, spec := range cfg.AlsoGet {
			if v, ok := row[spec.Source]; ok {
				result.DerivedValues[spec.Name] = v
			}
		}
	}

	e.logger.Debug("lookup matched",
		"input", rules.ValueToString(input),
		"match_type", string(matchType),
		"confidence", confidence,
	)
	return result
}

// normalizeValue prepares a value for the normalized and fuzzy tiers:
// NFKC fold, lowercase, whitespace collapsed.
func normalizeValue(s string) string {
	return rules.CollapseWhitespace(strings.ToLower(norm.NFKC.String(s)))
}

// similarity scores two normalized strings in [0,1] as the better of
// edit-distance similarity and token-set overlap.
func similarity(a, b string) float64 {
	levScore := levenshteinSimilarity(a, b)
	tokScore := tokenSimilarity(strings.Fields(a), strings.Fields(b))
	if tokScore > levScore {
		return tokScore
	}
	return levScore
}

// levenshteinSimilarity converts edit distance to a similarity ratio.
func levenshteinSimilarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	distance := levenshtein.ComputeDistance(a, b)
	maxLen := utf8.RuneCountInString(a)
	if l := utf8.RuneCountInString(b); l > maxLen {
		maxLen = l
	}
	return 1.0 - float64(distance)/float64(maxLen)
}

// tokenSimilarity is the Jaccard similarity of two token sets.
func tokenSimilarity(tokens1, tokens2 []string) float64 {
	if len(tokens1) == 0 && len(tokens2) == 0 {
		return 1.0
	}
	if len(tokens1) == 0 || len(tokens2) == 0 {
		return 0.0
	}

	set1 := make(map[string]bool, len(tokens1))
	for _, t := range tokens1 {
		set1[t] = true
	}

	intersection := 0
	union := len(set1)
	seen2 := make(map[string]bool, len(tokens2))
	for _, t := range tokens2 {
		if seen2[t] {
			continue
		}
		seen2[t] = true
		if set1[t] {
			intersection++
		} else {
			union++
		}
	}

	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}
