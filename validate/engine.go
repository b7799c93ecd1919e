// Package validate implements the validation engine: it consumes a rule
// registry and checks cells, rows, or whole tables against a target shape,
// producing structured, fixable error and warning reports plus table-level
// statistics.
//
// Two table entry points exist with identical outcomes: ValidateTable runs
// synchronously, ValidateTableCtx processes rows in chunks, reports progress
// after each chunk, and honors context cancellation between chunks. Neither
// spawns goroutines; chunking exists purely so a caller's scheduler is never
// blocked for more than one chunk's processing time.
package validate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/reshape/rules"
	"github.com/JonMunkholm/reshape/schema"
)

// Chunk sizing for ValidateTableCtx: rows/10 clamped to [1, 100].
const (
	minChunkSize = 1
	maxChunkSize = 100
)

// ProgressFunc is called after each chunk during ValidateTableCtx.
// progress is in [0,1].
type ProgressFunc func(progress float64, validated, total int, message string)

// Engine validates data against a target shape using the rules in its
// registry. The registry is effectively immutable after setup; the engine
// holds no other state, so one engine can serve many concurrent callers.
type Engine struct {
	registry *rules.Registry
	logger   *slog.Logger
}

// NewEngine creates a validation engine. A nil registry gets the default
// reference rules; a nil logger falls back to slog.Default().
func NewEngine(registry *rules.Registry, logger *slog.Logger) *Engine {
	if registry == nil {
		registry = rules.DefaultRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{registry: registry, logger: logger}
}

// Registry exposes the engine's rule registry, e.g. for runtime rule setup.
func (e *Engine) Registry() *rules.Registry { return e.registry }

// ValidateCell runs every applicable registry rule against one cell value
// and merges their results. A rule that panics is converted into a synthetic
// error for that rule; the remaining rules still run.
func (e *Engine) ValidateCell(value any, field schema.TargetField, row schema.TableRow) rules.ValidationResult {
	start := time.Now()
	result := rules.Valid()

	for _, rule := range e.registry.ForField(field) {
		result.Merge(e.runRule(rule, value, field, row))
	}

	result.IsValid = len(result.Errors) == 0
	result.Metadata.ValidatedAt = start
	result.Metadata.Duration = time.Since(start)
	return result
}

// runRule executes one rule with panic isolation. One broken rule must not
// crash validation of the rest of the row or table.
func (e *Engine) runRule(rule rules.Rule, value any, field schema.TargetField, row schema.TableRow) (result rules.ValidationResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("validation rule panicked",
				"rule_id", rule.ID(),
				"field", field.Name,
				"panic", fmt.Sprint(r),
			)
			result = rules.Valid()
			result.Metadata.RulesApplied = []string{rule.ID()}
			result.AddIssue(rules.Issue{
				RuleID:       rule.ID(),
				RuleType:     rule.Type(),
				Severity:     rules.SeverityError,
				Message:      fmt.Sprintf("Validation rule failed: %v", r),
				FieldName:    field.Name,
				CurrentValue: value,
			})
		}
	}()

	return rule.Validate(value, field, rules.Context{Row: row})
}

// ValidateRow validates every field of the shape against the row, in field
// declaration order, and unions the results.
func (e *Engine) ValidateRow(row schema.TableRow, shape *schema.TargetShape) rules.ValidationResult {
	union, _ := e.validateRowCells(row, shape)
	return union
}

// validateRowCells validates a row and returns both the union result and the
// per-field results the row metadata needs.
func (e *Engine) validateRowCells(row schema.TableRow, shape *schema.TargetShape) (rules.ValidationResult, map[string]rules.ValidationResult) {
	start := time.Now()
	union := rules.Valid()
	cells := make(map[string]rules.ValidationResult, len(shape.Fields))

	for _, field := range shape.Fields {
		cellResult := e.ValidateCell(row[field.Name], field, row)
		cells[field.Name] = cellResult
		union.Merge(cellResult)
	}

	union.IsValid = len(union.Errors) == 0
	union.Metadata.ValidatedAt = start
	union.Metadata.Duration = time.Since(start)
	return union, cells
}

// ValidateTable validates every row synchronously, writes validation
// metadata onto each row, and returns the table-level rollup.
func (e *Engine) ValidateTable(data []schema.TableRow, shape *schema.TargetShape) *ValidationState {
	state := newValidationState(len(data))
	var tally tableTally

	for _, row := range data {
		e.validateRowInto(row, shape, state, &tally)
	}

	state.finalize(tally)
	e.logger.Info("table validation complete",
		"rows", state.TotalRows,
		"errors", state.TotalErrors,
		"warnings", state.TotalWarnings,
	)
	return state
}

// ValidateTableCtx validates the table in chunks, invoking onProgress after
// each chunk and checking ctx between chunks. Outcome is identical to
// ValidateTable; on cancellation the in-flight chunk still completes and the
// context error is returned.
func (e *Engine) ValidateTableCtx(ctx context.Context, data []schema.TableRow, shape *schema.TargetShape, onProgress ProgressFunc) (*ValidationState, error) {
	state := newValidationState(len(data))
	var tally tableTally

	chunk := chunkSize(len(data))
	for offset := 0; offset < len(data); offset += chunk {
		end := offset + chunk
		if end > len(data) {
			end = len(data)
		}

		for _, row := range data[offset:end] {
			e.validateRowInto(row, shape, state, &tally)
		}

		state.ValidatedRows = end
		state.Progress = float64(end) / float64(len(data))
		if onProgress != nil {
			onProgress(state.Progress, end, len(data),
				fmt.Sprintf("Validated %d of %d rows", end, len(data)))
		}

		if err := ctx.Err(); err != nil {
			e.logger.Info("table validation cancelled", "validated", end, "total", len(data))
			return nil, err
		}
	}

	state.finalize(tally)
	e.logger.Info("table validation complete",
		"rows", state.TotalRows,
		"errors", state.TotalErrors,
		"warnings", state.TotalWarnings,
	)
	return state, nil
}

// validateRowInto validates one row, replaces its metadata, and folds the
// outcome into the table state and tally.
func (e *Engine) validateRowInto(row schema.TableRow, shape *schema.TargetShape, state *ValidationState, tally *tableTally) {
	_, cells := e.validateRowCells(row, shape)

	meta := &RowValidationMetadata{CellValidations: cells}
	meta.Recompute()
	setMetadata(row, meta)

	for fieldName, cellResult := range cells {
		tally.totalCells++
		switch {
		case len(cellResult.Errors) > 0:
			tally.errorCells++
		case len(cellResult.Warnings) > 0:
			tally.warningCells++
		}
		for _, issue := range cellResult.Errors {
			state.TotalErrors++
			state.ErrorsByType[issue.RuleType]++
			state.ErrorsByField[fieldName]++
		}
		for _, issue := range cellResult.Warnings {
			state.TotalWarnings++
			state.WarningsByType[issue.RuleType]++
			state.WarningsByField[fieldName]++
		}
	}

	if meta.Status() == RowValid {
		tally.validRows++
	}
}

// ValidateCellUpdate re-validates a single edited cell and replaces the
// row's metadata wholesale: the edited field's previous result is dropped,
// results for other fields are carried over, and the rollup counts are
// recomputed. Returns the fresh cell result.
func (e *Engine) ValidateCellUpdate(row schema.TableRow, field schema.TargetField) rules.ValidationResult {
	cellResult := e.ValidateCell(row[field.Name], field, row)

	fresh := &RowValidationMetadata{
		CellValidations: make(map[string]rules.ValidationResult),
	}
	if prev, ok := MetadataOf(row); ok {
		for name, res := range prev.CellValidations {
			if name != field.Name {
				fresh.CellValidations[name] = res
			}
		}
	}
	fresh.CellValidations[field.Name] = cellResult
	fresh.Recompute()
	setMetadata(row, fresh)

	return cellResult
}

// chunkSize returns rows/10 clamped to [minChunkSize, maxChunkSize].
func chunkSize(rows int) int {
	size := rows / 10
	if size < minChunkSize {
		return minChunkSize
	}
	if size > maxChunkSize {
		return maxChunkSize
	}
	return size
}
