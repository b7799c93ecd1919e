package lookup

import (
	"testing"

	"github.com/JonMunkholm/reshape/schema"
)

func departmentReference() []schema.TableRow {
	return []schema.TableRow{
		{"dept_name": "Engineering", "dept_id": "ENG001", "manager": "Sarah"},
		{"dept_name": "Marketing", "dept_id": "MKT001", "manager": "Tom"},
	}
}

func departmentConfig() Config {
	return Config{
		SourceColumn:   "dept_name",
		TargetColumn:   "dept_id",
		FuzzyEnabled:   true,
		FuzzyThreshold: 0.6,
		AlsoGet:        []schema.DerivedSpec{{Name: "manager_name", Source: "manager"}},
	}
}

// ----------------------------------------------------------------------------
// Match Tiering
// ----------------------------------------------------------------------------

func TestLookupTiers(t *testing.T) {
	e := NewEngine(nil)
	reference := departmentReference()
	cfg := departmentConfig()

	tests := []struct {
		name          string
		input         string
		wantMatched   bool
		wantType      MatchType
		wantExactConf bool // confidence must be exactly 1.0
	}{
		{
			name:          "exact match",
			input:         "Engineering",
			wantMatched:   true,
			wantType:      MatchExact,
			wantExactConf: true,
		},
		{
			name:        "normalized match on case",
			input:       "engineering",
			wantMatched: true,
			wantType:    MatchNormalized,
		},
		{
			name:        "normalized match on whitespace",
			input:       "  Engineering  ",
			wantMatched: true,
			wantType:    MatchNormalized,
		},
		{
			name:        "fuzzy match on typo",
			input:       "Enginering",
			wantMatched: true,
			wantType:    MatchFuzzy,
		},
		{
			name:        "no match",
			input:       "Sales",
			wantMatched: false,
			wantType:    MatchNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.Lookup(tt.input, reference, cfg)

			if result.Matched != tt.wantMatched {
				t.Fatalf("Matched = %v, want %v", result.Matched, tt.wantMatched)
			}
			if result.MatchType != tt.wantType {
				t.Errorf("MatchType = %s, want %s", result.MatchType, tt.wantType)
			}
			if tt.wantExactConf && result.Confidence != 1.0 {
				t.Errorf("Confidence = %v, want 1.0", result.Confidence)
			}
			if tt.wantType == MatchNormalized && result.Confidence != NormalizedConfidence {
				t.Errorf("Confidence = %v, want %v", result.Confidence, NormalizedConfidence)
			}
			if tt.wantType == MatchFuzzy {
				if result.Confidence < cfg.FuzzyThreshold || result.Confidence >= 1.0 {
					t.Errorf("fuzzy confidence %v not in [threshold, 1.0)", result.Confidence)
				}
			}
			if !tt.wantMatched && result.Confidence != 0 {
				t.Errorf("miss confidence = %v, want 0", result.Confidence)
			}
			if tt.wantMatched && result.MatchedValue != "ENG001" {
				t.Errorf("MatchedValue = %v, want ENG001", result.MatchedValue)
			}
		})
	}
}

func TestLookupFuzzyDisabled(t *testing.T) {
	e := NewEngine(nil)
	cfg := departmentConfig()
	cfg.FuzzyEnabled = false

	result := e.Lookup("Enginering", departmentReference(), cfg)
	if result.Matched {
		t.Error("expected typo to miss when fuzzy matching is disabled")
	}
}

func TestLookupFuzzyThresholdRespected(t *testing.T) {
	e := NewEngine(nil)
	cfg := departmentConfig()
	cfg.FuzzyThreshold = 0.99

	result := e.Lookup("Enginering", departmentReference(), cfg)
	if result.Matched {
		t.Error("expected typo to miss under a near-exact threshold")
	}
}

func TestLookupExactBeatsFuzzy(t *testing.T) {
	// A value that exactly matches one row must never fuzzy-match a more
	// similar-looking other row.
	e := NewEngine(nil)
	reference := []schema.TableRow{
		{"code": "A-1", "id": "first"},
		{"code": "A-11", "id": "second"},
	}
	cfg := Config{SourceColumn: "code", TargetColumn: "id", FuzzyEnabled: true, FuzzyThreshold: 0.5}

	result := e.Lookup("A-1", reference, cfg)
	if result.MatchType != MatchExact || result.MatchedValue != "first" {
		t.Errorf("got %s on %v, want exact match on first row", result.MatchType, result.MatchedValue)
	}
}

// ----------------------------------------------------------------------------
// Derived Values
// ----------------------------------------------------------------------------

func TestLookupDerivedValues(t *testing.T) {
	e := NewEngine(nil)

	result := e.Lookup("Engineering", departmentReference(), departmentConfig())
	if !result.Matched {
		t.Fatal("expected a match")
	}
	if result.DerivedValues["manager_name"] != "Sarah" {
		t.Errorf("DerivedValues = %v, want manager_name=Sarah", result.DerivedValues)
	}
}

func TestLookupDerivedMissingSourceOmitted(t *testing.T) {
	e := NewEngine(nil)
	cfg := departmentConfig()
	cfg.AlsoGet = append(cfg.AlsoGet, schema.DerivedSpec{Name: "budget", Source: "budget_col"})

	result := e.Lookup("Engineering", departmentReference(), cfg)
	if _, ok := result.DerivedValues["budget"]; ok {
		t.Error("expected missing source column to be omitted, not errored")
	}
	if result.DerivedValues["manager_name"] != "Sarah" {
		t.Error("expected present source column to still derive")
	}
}

// ----------------------------------------------------------------------------
// Edge Cases
// ----------------------------------------------------------------------------

func TestLookupEmptyInputAndReference(t *testing.T) {
	e := NewEngine(nil)
	cfg := departmentConfig()

	if r := e.Lookup("", departmentReference(), cfg); r.Matched {
		t.Error("empty input should not match")
	}
	if r := e.Lookup(nil, departmentReference(), cfg); r.Matched {
		t.Error("nil input should not match")
	}
	if r := e.Lookup("Engineering", nil, cfg); r.Matched {
		t.Error("empty reference should not match")
	}
}

func TestConfigFromField(t *testing.T) {
	field := schema.TargetField{
		Name: "department",
		Type: schema.FieldLookup,
		Lookup: &schema.LookupSpec{
			ReferenceFile: "departments",
			Match:         schema.MatchSpec{On: "dept_name", Get: "dept_id"},
			SmartMatching: schema.SmartMatching{Enabled: true, Confidence: 0.8},
			AlsoGet:       []schema.DerivedSpec{{Name: "manager_name", Source: "manager"}},
		},
	}

	cfg, ok := ConfigFromField(field)
	if !ok {
		t.Fatal("expected config from lookup field")
	}
	if cfg.SourceColumn != "dept_name" || cfg.TargetColumn != "dept_id" {
		t.Errorf("columns = %s/%s", cfg.SourceColumn, cfg.TargetColumn)
	}
	if !cfg.FuzzyEnabled || cfg.FuzzyThreshold != 0.8 {
		t.Errorf("fuzzy = %v/%v, want enabled at 0.8", cfg.FuzzyEnabled, cfg.FuzzyThreshold)
	}

	if _, ok := ConfigFromField(schema.TargetField{Name: "plain", Type: schema.FieldString}); ok {
		t.Error("expected no config from a non-lookup field")
	}
}

// ----------------------------------------------------------------------------
// Similarity Scoring
// ----------------------------------------------------------------------------

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		min  float64
		max  float64
	}{
		{"identical", "engineering", "engineering", 1.0, 1.0},
		{"one edit", "enginering", "engineering", 0.85, 0.99},
		{"token overlap beats edit distance", "sales north america", "north america sales", 0.99, 1.0},
		{"unrelated", "engineering", "zx", 0.0, 0.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := similarity(tt.a, tt.b)
			if got < tt.min || got > tt.max {
				t.Errorf("similarity(%q, %q) = %v, want in [%v, %v]", tt.a, tt.b, got, tt.min, tt.max)
			}
		})
	}
}
