package validate

import (
	"time"

	"github.com/JonMunkholm/reshape/rules"
	"github.com/JonMunkholm/reshape/schema"
)

// RowStatus classifies a validated row. A row with at least one error is
// RowErrors; otherwise at least one warning makes it RowWarnings; otherwise
// it is RowValid.
type RowStatus string

const (
	RowValid    RowStatus = "valid"
	RowWarnings RowStatus = "warnings"
	RowErrors   RowStatus = "errors"
)

// RowValidationMetadata is the per-row rollup written under the row's
// reserved metadata key. The counts are always derived from CellValidations
// by Recompute; they are never edited independently.
type RowValidationMetadata struct {
	HasErrors       bool
	HasWarnings     bool
	ErrorCount      int
	WarningCount    int
	LastValidated   time.Time
	CellValidations map[string]rules.ValidationResult
}

// Recompute rebuilds the rollup counts from CellValidations. Call after
// every cell-level write; nothing else may touch the counts.
func (m *RowValidationMetadata) Recompute() {
	m.ErrorCount = 0
	m.WarningCount = 0
	for _, result := range m.CellValidations {
		m.ErrorCount += len(result.Errors)
		m.WarningCount += len(result.Warnings)
	}
	m.HasErrors = m.ErrorCount > 0
	m.HasWarnings = m.WarningCount > 0
	m.LastValidated = time.Now()
}

// Status returns the row classification implied by the rollup.
func (m *RowValidationMetadata) Status() RowStatus {
	switch {
	case m.HasErrors:
		return RowErrors
	case m.HasWarnings:
		return RowWarnings
	default:
		return RowValid
	}
}

// MetadataOf returns the validation metadata stored on a row, if any.
func MetadataOf(row schema.TableRow) (*RowValidationMetadata, bool) {
	m, ok := row[schema.MetadataKey].(*RowValidationMetadata)
	return m, ok
}

// ClearValidation deletes validation metadata from the given rows.
func ClearValidation(rows []schema.TableRow) {
	for _, row := range rows {
		delete(row, schema.MetadataKey)
	}
}

// setMetadata replaces the row's metadata wholesale.
func setMetadata(row schema.TableRow, m *RowValidationMetadata) {
	row[schema.MetadataKey] = m
}
