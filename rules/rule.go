// Package rules provides the pluggable validation rule contract, the mutable
// rule registry the validation engine consumes, and the two reference rules
// every deployment registers: required-ness and type coercion-and-check.
//
// A rule is stateless and independently testable. Expected validation
// failures are data (issues on a ValidationResult), never errors; rules only
// describe problems, they do not abort anything.
package rules

import (
	"time"

	"github.com/JonMunkholm/reshape/schema"
)

// Severity classifies a validation issue. Errors block a row from being
// valid; warnings do not.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// SuggestedFix is a non-binding, informational repair hint attached to an
// issue. Callers decide whether to apply it.
type SuggestedFix struct {
	Action      string // Machine-readable action, e.g. "set_value", "round"
	Description string // Human-readable explanation
	NewValue    any    // Proposed replacement value, if one exists
}

// Issue is a single validation error or warning for one cell.
type Issue struct {
	RuleID       string
	RuleType     string
	Severity     Severity
	Message      string
	FieldName    string
	CurrentValue any
	Fixes        []SuggestedFix
}

// TypeConversion records a coercion the type rule performed to make a value
// satisfy its field type. The original cell is never rewritten by the rule;
// callers decide whether to apply the conversion.
type TypeConversion struct {
	Performed      bool
	OriginalValue  any
	ConvertedValue any
}

// Metadata carries bookkeeping about one validation call.
type Metadata struct {
	ValidatedAt    time.Time
	Duration       time.Duration
	RulesApplied   []string
	TypeConversion *TypeConversion
}

// ValidationResult is the outcome of validating one cell (or the union of
// several cell results for a row). Results are created fresh on every call
// and never reused across input values.
type ValidationResult struct {
	IsValid  bool
	Errors   []Issue
	Warnings []Issue
	Metadata Metadata
}

// Valid returns an empty passing result.
func Valid() ValidationResult {
	return ValidationResult{IsValid: true, Metadata: Metadata{ValidatedAt: time.Now()}}
}

// AddIssue appends an issue to the appropriate bucket and updates IsValid.
func (r *ValidationResult) AddIssue(issue Issue) {
	if issue.Severity == SeverityWarning {
		r.Warnings = append(r.Warnings, issue)
		return
	}
	r.Errors = append(r.Errors, issue)
	r.IsValid = false
}

// Merge folds another result into this one. Issue order follows call order.
func (r *ValidationResult) Merge(other ValidationResult) {
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
	r.Metadata.RulesApplied = append(r.Metadata.RulesApplied, other.Metadata.RulesApplied...)
	if other.Metadata.TypeConversion != nil {
		r.Metadata.TypeConversion = other.Metadata.TypeConversion
	}
	if len(r.Errors) > 0 {
		r.IsValid = false
	}
}

// Context gives a rule access to the rest of the row being validated, for
// rules that need cross-field information.
type Context struct {
	Row schema.TableRow
}

// Rule is the pluggable validation contract. Implementations must be safe
// for concurrent use: the engine may validate many cells against the same
// rule instance.
type Rule interface {
	// ID uniquely identifies the rule within a registry.
	ID() string
	// Type groups related rules ("required", "type", ...) for the
	// registry's secondary index and for error rollups.
	Type() string
	// Description is a human-readable summary of what the rule checks.
	Description() string
	// Enabled reports whether the rule should run at all.
	Enabled() bool
	// Validate checks one cell value against the field definition.
	Validate(value any, field schema.TargetField, ctx Context) ValidationResult
	// AppliesTo reports whether the rule is relevant to the field.
	AppliesTo(field schema.TargetField) bool
	// SuggestFix proposes a repair for an invalid value, or nil when no
	// safe repair exists.
	SuggestFix(value any, field schema.TargetField) *SuggestedFix
}

// BaseRule supplies the common identity plumbing so concrete rules only
// implement Validate and, where relevant, AppliesTo and SuggestFix.
// The default AppliesTo applies the rule to every field while enabled.
type BaseRule struct {
	RuleID   string
	RuleType string
	Desc     string
	Disabled bool
}

func (b BaseRule) ID() string          { return b.RuleID }
func (b BaseRule) Type() string        { return b.RuleType }
func (b BaseRule) Description() string { return b.Desc }
func (b BaseRule) Enabled() bool       { return !b.Disabled }

// AppliesTo is the default applicability: every field, while enabled.
func (b BaseRule) AppliesTo(schema.TargetField) bool { return !b.Disabled }

// SuggestFix defaults to no suggestion.
func (b BaseRule) SuggestFix(any, schema.TargetField) *SuggestedFix { return nil }
