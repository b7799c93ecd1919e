package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/reshape/rules"
	"github.com/JonMunkholm/reshape/schema"
)

// Sentinel errors for the single-lookup paths. Bulk processing reports the
// same conditions as structured entries instead of returning them.
var (
	ErrNoLookupConfig       = errors.New("field has no lookup configuration")
	ErrReferenceUnavailable = errors.New("reference data unavailable")
)

// How often the bulk loop checks for context cancellation.
const contextCheckInterval = 100

// Error type tags on bulk processing entries.
const (
	ErrTypeNoMatch        = "no_match"
	ErrTypeUnavailable    = "reference_unavailable"
	ErrTypeLowConfidence  = "low_confidence"
	ErrTypeFuzzyExhausted = "fuzzy_limit_exceeded"
)

// ProcessError is one structured failure collected during bulk processing.
type ProcessError struct {
	Type       string
	Severity   rules.Severity
	RowIndex   int
	RowID      string
	FieldName  string
	InputValue any
	Message    string
}

// Stats summarizes match quality for one bulk run.
type Stats struct {
	TotalRows         int
	TotalFields       int // Lookup fields processed per row
	ExactMatches      int
	NormalizedMatches int
	FuzzyMatches      int
	SuccessRate       float64 // Accepted matches / attempted lookups
	DerivedColumns    []string
}

// Performance reports throughput for one bulk run.
type Performance struct {
	TotalTime  time.Duration
	Throughput float64 // Rows per second
}

// ProcessedResult is the outcome of a bulk lookup run. Data is the input
// slice with lookup and derived columns rewritten in place.
type ProcessedResult struct {
	Data        []schema.TableRow
	Errors      []ProcessError
	Stats       Stats
	Performance Performance
}

// Options tunes bulk processing. The zero value means: continue past
// per-value failures, derive columns, no confidence floor, no fuzzy cap.
type Options struct {
	// MinConfidence rejects any accepted match below this confidence.
	MinConfidence float64
	// MaxFuzzyMatches caps how many fuzzy matches a run may accept;
	// zero means unlimited. Once exhausted, would-be fuzzy matches are
	// reported as failures instead.
	MaxFuzzyMatches int
	// SkipDerivedFields disables populating derived columns.
	SkipDerivedFields bool
	// StopOnError aborts on the first failure instead of collecting it.
	StopOnError bool
	// OnProgress, when set, is called after every processed row.
	OnProgress func(processed, total int)
}

// UpdateRequest is one independent real-time cell edit for BatchProcess.
type UpdateRequest struct {
	RowID     string
	FieldName string
	Value     any
	Field     schema.TargetField
	RowData   schema.TableRow
}

// UpdateResult is the outcome of one real-time cell edit. On success
// UpdatedRow is a new row object; on failure it is the caller's row,
// unchanged.
type UpdateResult struct {
	Success    bool
	UpdatedRow schema.TableRow
	Confidence float64
	Error      string
}

// FieldStat describes one lookup field for introspection.
type FieldStat struct {
	Name              string
	DerivedFieldCount int
}

// FieldStatsReport is static shape introspection; it touches no data.
type FieldStatsReport struct {
	TotalLookupFields  int
	TotalDerivedFields int
	LookupFields       []FieldStat
}

// Processor orchestrates the matching engine across bulk imports and single
// real-time cell edits, tracking match-quality statistics.
type Processor struct {
	engine   *Engine
	provider ReferenceProvider
	logger   *slog.Logger
}

// NewProcessor creates a lookup processor. A nil engine gets a fresh one;
// a nil logger falls back to slog.Default().
func NewProcessor(engine *Engine, provider ReferenceProvider, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if engine == nil {
		engine = NewEngine(logger)
	}
	return &Processor{engine: engine, provider: provider, logger: logger}
}

// ProcessData resolves every lookup-typed field across the dataset. Each
// field's reference dataset is loaded once, not per row. By default failures
// are collected as structured errors and processing continues; with
// Options.StopOnError the first failure aborts the run.
func (p *Processor) ProcessData(ctx context.Context, rows []schema.TableRow, shape *schema.TargetShape, opts Options) (*ProcessedResult, error) {
	start := time.Now()

	lookupFields := shape.LookupFields()
	result := &ProcessedResult{
		Data: rows,
		Stats: Stats{
			TotalRows:   len(rows),
			TotalFields: len(lookupFields),
		},
	}

	// Load each field's reference dataset once.
	type fieldRef struct {
		field     schema.TargetField
		cfg       Config
		reference []schema.TableRow
		available bool
	}
	refs := make([]fieldRef, 0, len(lookupFields))
	for _, field := range lookupFields {
		cfg, _ := ConfigFromField(field)
		reference, err := p.provider.ReferenceRows(field.Lookup.ReferenceFile)
		available := err == nil && len(reference) > 0
		if !available {
			p.logger.Warn("reference data unavailable",
				"field", field.Name,
				"reference_file", field.Lookup.ReferenceFile,
			)
		}
		refs = append(refs, fieldRef{field: field, cfg: cfg, reference: reference, available: available})
	}

	derivedSeen := make(map[string]bool)
	attempts := 0
	accepted := 0

	for i, row := range rows {
		if i%contextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		for _, ref := range refs {
			value := row[ref.field.Name]
			if value == nil || rules.ValueToString(value) == "" {
				continue // nothing to resolve; required-ness is validation's concern
			}

			if !ref.available {
				entry := ProcessError{
					Type:       ErrTypeUnavailable,
					Severity:   rules.SeverityError,
					RowIndex:   i,
					RowID:      row.ID(),
					FieldName:  ref.field.Name,
					InputValue: value,
					Message:    fmt.Sprintf("No reference data available for %s", ref.field.Label()),
				}
				if opts.StopOnError {
					return nil, fmt.Errorf("row %d, field %s: %w", i, ref.field.Name, ErrReferenceUnavailable)
				}
				result.Errors = append(result.Errors, entry)
				continue
			}

			attempts++
			match := p.engine.Lookup(value, ref.reference, ref.cfg)

			failType, failMsg := "", ""
			switch {
			case !match.Matched:
				failType = ErrTypeNoMatch
				failMsg = fmt.Sprintf("No match found for %q in %s", rules.ValueToString(value), ref.field.Label())
			case match.Confidence < opts.MinConfidence:
				failType = ErrTypeLowConfidence
				failMsg = fmt.Sprintf("Match for %q has confidence %.2f, below the minimum %.2f",
					rules.ValueToString(value), match.Confidence, opts.MinConfidence)
			case match.MatchType == MatchFuzzy && opts.MaxFuzzyMatches > 0 && result.Stats.FuzzyMatches >= opts.MaxFuzzyMatches:
				failType = ErrTypeFuzzyExhausted
				failMsg = fmt.Sprintf("Fuzzy match for %q rejected: run limit of %d fuzzy matches reached",
					rules.ValueToString(value), opts.MaxFuzzyMatches)
			}

			if failType != "" {
				if err := p.recordMiss(result, ref.field, failType, failMsg, i, row, value, opts); err != nil {
					return nil, err
				}
				continue
			}

			accepted++
			switch match.MatchType {
			case MatchExact:
				result.Stats.ExactMatches++
			case MatchNormalized:
				result.Stats.NormalizedMatches++
			case MatchFuzzy:
				result.Stats.FuzzyMatches++
			}

			row[ref.field.Name] = match.MatchedValue
			if !opts.SkipDerivedFields {
				for name, v := range match.DerivedValues {
					row[name] = v
					if !derivedSeen[name] {
						derivedSeen[name] = true
						result.Stats.DerivedColumns = append(result.Stats.DerivedColumns, name)
					}
				}
			}
		}

		if opts.OnProgress != nil {
			opts.OnProgress(i+1, len(rows))
		}
	}

	if attempts > 0 {
		result.Stats.SuccessRate = float64(accepted) / float64(attempts)
	} else {
		result.Stats.SuccessRate = 1
	}

	result.Performance.TotalTime = time.Since(start)
	if secs := result.Performance.TotalTime.Seconds(); secs > 0 {
		result.Performance.Throughput = float64(len(rows)) / secs
	}

	p.logger.Info("bulk lookup complete",
		"rows", len(rows),
		"lookup_fields", len(lookupFields),
		"exact", result.Stats.ExactMatches,
		"normalized", result.Stats.NormalizedMatches,
		"fuzzy", result.Stats.FuzzyMatches,
		"errors", len(result.Errors),
	)
	return result, nil
}

// recordMiss applies the field's mismatch policy to a failed resolution.
func (p *Processor) recordMiss(result *ProcessedResult, field schema.TargetField, failType, msg string, rowIndex int, row schema.TableRow, value any, opts Options) error {
	policy := field.Lookup.OnMismatch
	if policy == "" {
		policy = schema.MismatchError
	}

	if policy == schema.MismatchNull {
		row[field.Name] = nil
		return nil
	}

	severity := rules.SeverityError
	if policy == schema.MismatchWarning {
		severity = rules.SeverityWarning
	}
	if opts.StopOnError && severity == rules.SeverityError {
		return fmt.Errorf("row %d, field %s: %s", rowIndex, field.Name, msg)
	}

	result.Errors = append(result.Errors, ProcessError{
		Type:       failType,
		Severity:   severity,
		RowIndex:   rowIndex,
		RowID:      row.ID(),
		FieldName:  field.Name,
		InputValue: value,
		Message:    msg,
	})
	return nil
}

// ProcessSingle resolves one value for one lookup field, the on-demand
// variant. Unlike bulk processing it returns an error when the field's
// reference dataset cannot be loaded.
func (p *Processor) ProcessSingle(value any, field schema.TargetField, rowID string) (Result, error) {
	cfg, ok := ConfigFromField(field)
	if !ok {
		return Result{}, fmt.Errorf("field %s: %w", field.Name, ErrNoLookupConfig)
	}

	reference, err := p.provider.ReferenceRows(field.Lookup.ReferenceFile)
	if err != nil {
		return Result{}, fmt.Errorf("field %s (row %s): %w: %w", field.Name, rowID, ErrReferenceUnavailable, err)
	}
	if len(reference) == 0 {
		return Result{}, fmt.Errorf("field %s (row %s): %w", field.Name, rowID, ErrReferenceUnavailable)
	}

	return p.engine.Lookup(value, reference, cfg), nil
}

// ProcessUpdate is the real-time path for a single cell edit. On success it
// returns a new row with the lookup column and derived columns updated; the
// caller's row is never mutated. On failure UpdatedRow is the caller's row,
// unchanged, with a human-readable error.
func (p *Processor) ProcessUpdate(value any, field schema.TargetField, rowData schema.TableRow) UpdateResult {
	match, err := p.ProcessSingle(value, field, rowData.ID())
	if err != nil {
		return UpdateResult{
			Success:    false,
			UpdatedRow: rowData,
			Error:      fmt.Sprintf("Could not look up %s: reference data is not available", field.Label()),
		}
	}
	if !match.Matched {
		return UpdateResult{
			Success:    false,
			UpdatedRow: rowData,
			Error:      fmt.Sprintf("No match found for %q in %s", rules.ValueToString(value), field.Label()),
		}
	}

	updated := rowData.Clone()
	updated[field.Name] = match.MatchedValue
	for name, v := range match.DerivedValues {
		updated[name] = v
	}

	return UpdateResult{
		Success:    true,
		UpdatedRow: updated,
		Confidence: match.Confidence,
	}
}

// BatchProcess applies ProcessUpdate to a list of independent requests.
// Output order matches input order.
func (p *Processor) BatchProcess(updates []UpdateRequest, onProgress func(processed, total int)) []UpdateResult {
	results := make([]UpdateResult, len(updates))
	for i, req := range updates {
		results[i] = p.ProcessUpdate(req.Value, req.Field, req.RowData)
		if onProgress != nil {
			onProgress(i+1, len(updates))
		}
	}
	return results
}

// FieldStats reports the shape's lookup configuration without touching any
// data.
func (p *Processor) FieldStats(shape *schema.TargetShape) FieldStatsReport {
	report := FieldStatsReport{}
	for _, field := range shape.LookupFields() {
		count := field.Lookup.DerivedFieldCount()
		report.TotalLookupFields++
		report.TotalDerivedFields += count
		report.LookupFields = append(report.LookupFields, FieldStat{
			Name:              field.Name,
			DerivedFieldCount: count,
		})
	}
	return report
}
