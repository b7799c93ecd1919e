package validate

import "sort"

// Summary limits, matching what presentation layers can usefully show.
const (
	maxTopErrorTypes     = 5
	maxProblematicFields = 10
)

// TypeCount pairs an issue type with its frequency.
type TypeCount struct {
	Type  string
	Count int
}

// FieldProblem ranks a field by how much trouble it causes.
// Rank = Errors*2 + Warnings, descending.
type FieldProblem struct {
	Field    string
	Errors   int
	Warnings int
}

// rank is the sort key for problematic fields.
func (p FieldProblem) rank() int { return p.Errors*2 + p.Warnings }

// Summary is the digest a presentation layer renders after a table run.
// Every field is derivable from the counts on ValidationState.
type Summary struct {
	Score              float64 // 0-100 weighted cell pass rate
	ValidRowPercentage float64
	TopErrorTypes      []TypeCount
	ProblematicFields  []FieldProblem
}

// ValidationState is the table-level rollup produced by a full table
// validation run.
type ValidationState struct {
	IsValidating    bool
	Progress        float64 // 0-1
	TotalRows       int
	ValidatedRows   int
	TotalErrors     int
	TotalWarnings   int
	ErrorsByType    map[string]int
	ErrorsByField   map[string]int
	WarningsByType  map[string]int
	WarningsByField map[string]int
	Summary         *Summary
}

func newValidationState(totalRows int) *ValidationState {
	return &ValidationState{
		IsValidating:    true,
		TotalRows:       totalRows,
		ErrorsByType:    make(map[string]int),
		ErrorsByField:   make(map[string]int),
		WarningsByType:  make(map[string]int),
		WarningsByField: make(map[string]int),
	}
}

// tableTally accumulates the per-cell facts the summary needs beyond the
// state's own counters.
type tableTally struct {
	validRows    int
	totalCells   int
	errorCells   int
	warningCells int
}

// finalize closes out the state after the last row: progress snaps to 1 and
// the summary is computed from the accumulated counts.
func (s *ValidationState) finalize(tally tableTally) {
	s.IsValidating = false
	s.Progress = 1
	s.ValidatedRows = s.TotalRows

	summary := &Summary{}
	if s.TotalRows > 0 {
		summary.ValidRowPercentage = float64(tally.validRows) / float64(s.TotalRows) * 100
	}
	if tally.totalCells > 0 {
		// Error cells score 0, warning-only cells half credit.
		cleanCells := tally.totalCells - tally.errorCells - tally.warningCells
		summary.Score = (float64(cleanCells) + 0.5*float64(tally.warningCells)) / float64(tally.totalCells) * 100
	} else {
		summary.Score = 100
	}
	summary.TopErrorTypes = topTypes(s.ErrorsByType, maxTopErrorTypes)
	summary.ProblematicFields = problematicFields(s.ErrorsByField, s.WarningsByField, maxProblematicFields)
	s.Summary = summary
}

// topTypes returns the most frequent issue types, capped at limit.
// Ties break alphabetically for deterministic output.
func topTypes(counts map[string]int, limit int) []TypeCount {
	out := make([]TypeCount, 0, len(counts))
	for t, c := range counts {
		out = append(out, TypeCount{Type: t, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// problematicFields ranks fields by errors*2 + warnings, capped at limit.
func problematicFields(errorsByField, warningsByField map[string]int, limit int) []FieldProblem {
	fields := make(map[string]*FieldProblem)
	for f, c := range errorsByField {
		fields[f] = &FieldProblem{Field: f, Errors: c}
	}
	for f, c := range warningsByField {
		if p, ok := fields[f]; ok {
			p.Warnings = c
		} else {
			fields[f] = &FieldProblem{Field: f, Warnings: c}
		}
	}

	out := make([]FieldProblem, 0, len(fields))
	for _, p := range fields {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].rank() != out[j].rank() {
			return out[i].rank() > out[j].rank()
		}
		return out[i].Field < out[j].Field
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
