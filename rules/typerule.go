package rules

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/JonMunkholm/reshape/schema"
)

// TypeRule checks that a cell value satisfies its field's declared type,
// after a permissive type-appropriate coercion: currency symbols and
// thousands separators are stripped before parsing numbers, emails are
// trimmed and lowercased, bare domains get an https:// prefix, and common
// truthy/falsy tokens pass as booleans. The rule fails only when coercion
// cannot yield a value satisfying the type's final constraint.
//
// On success with a changed value, the result records the conversion in
// Metadata.TypeConversion; the cell itself is never rewritten here.
type TypeRule struct {
	BaseRule
}

// NewTypeRule creates the reference type coercion-and-check rule.
func NewTypeRule() *TypeRule {
	return &TypeRule{BaseRule: BaseRule{
		RuleID:   "type",
		RuleType: "type",
		Desc:     "Values must match their field's declared type",
	}}
}

// Validate coerces and checks one cell value.
func (r *TypeRule) Validate(value any, field schema.TargetField, _ Context) ValidationResult {
	result := Valid()
	result.Metadata.RulesApplied = []string{r.ID()}

	// Emptiness is the required rule's concern.
	if isMissing(value) {
		return result
	}

	converted, ok, fix, msg := coerce(value, field)
	if !ok {
		issue := Issue{
			RuleID:       r.ID(),
			RuleType:     r.Type(),
			Severity:     SeverityError,
			Message:      msg,
			FieldName:    field.Name,
			CurrentValue: value,
		}
		if fix != nil {
			issue.Fixes = append(issue.Fixes, *fix)
		}
		result.AddIssue(issue)
		return result
	}

	if converted != nil && !equalValues(value, converted) {
		result.Metadata.TypeConversion = &TypeConversion{
			Performed:      true,
			OriginalValue:  value,
			ConvertedValue: converted,
		}
	}
	return result
}

// SuggestFix proposes a repair only when a safe conversion exists.
func (r *TypeRule) SuggestFix(value any, field schema.TargetField) *SuggestedFix {
	_, ok, fix, _ := coerce(value, field)
	if ok {
		return nil
	}
	return fix
}

// coerce dispatches on the field type. The switch is exhaustive over the
// FieldType enumeration so a new type cannot slip through unchecked.
func coerce(value any, field schema.TargetField) (converted any, ok bool, fix *SuggestedFix, msg string) {
	switch field.Type {
	case schema.FieldString:
		return coerceString(value, field)
	case schema.FieldNumber:
		return coerceNumber(value, field)
	case schema.FieldInteger:
		return coerceInteger(value, field)
	case schema.FieldBoolean:
		return coerceBoolean(value, field)
	case schema.FieldDate:
		return coerceDate(value, field)
	case schema.FieldEmail:
		return coerceEmail(value, field)
	case schema.FieldPhone:
		return coercePhone(value, field)
	case schema.FieldURL:
		return coerceURL(value, field)
	case schema.FieldCurrency:
		return coerceNumber(value, field)
	case schema.FieldEnum:
		return coerceEnum(value, field)
	case schema.FieldLookup:
		// Lookup columns are resolved by the matching engine before
		// validation sees their final values; any scalar passes here.
		return value, true, nil, ""
	case schema.FieldObject:
		return coerceObject(value, field)
	default:
		return nil, false, nil, fmt.Sprintf("%s has unknown field type", field.Label())
	}
}

func coerceString(value any, field schema.TargetField) (any, bool, *SuggestedFix, string) {
	switch value.(type) {
	case string:
		return value, true, nil, ""
	case map[string]any, []any:
		return nil, false, nil, fmt.Sprintf("%s must be text, not a nested structure", field.Label())
	default:
		return ValueToString(value), true, nil, ""
	}
}

func coerceNumber(value any, field schema.TargetField) (any, bool, *SuggestedFix, string) {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false, nil, fmt.Sprintf("%s must be a finite number", field.Label())
		}
		return v, true, nil, ""
	case float32:
		return float64(v), true, nil, ""
	case int:
		return float64(v), true, nil, ""
	case int64:
		return float64(v), true, nil, ""
	case string:
		if f, ok := ToFloat(v); ok {
			return f, true, nil, ""
		}
		return nil, false, nil, fmt.Sprintf("%s must be a number (got %q)", field.Label(), v)
	default:
		return nil, false, nil, fmt.Sprintf("%s must be a number", field.Label())
	}
}

func coerceInteger(value any, field schema.TargetField) (any, bool, *SuggestedFix, string) {
	converted, ok, _, _ := coerceNumber(value, field)
	if !ok {
		return nil, false, nil, fmt.Sprintf("%s must be a whole number (got %v)", field.Label(), value)
	}
	f := converted.(float64)
	if f == math.Trunc(f) {
		return int64(f), true, nil, ""
	}
	rounded := int64(math.Round(f))
	fix := &SuggestedFix{
		Action:      "round",
		Description: fmt.Sprintf("Round %v to %d", value, rounded),
		NewValue:    rounded,
	}
	return nil, false, fix, fmt.Sprintf("%s must be a whole number (got %v)", field.Label(), value)
}

func coerceBoolean(value any, field schema.TargetField) (any, bool, *SuggestedFix, string) {
	switch v := value.(type) {
	case bool:
		return v, true, nil, ""
	case float64:
		if v == 0 || v == 1 {
			return v == 1, true, nil, ""
		}
	case int:
		if v == 0 || v == 1 {
			return v == 1, true, nil, ""
		}
	case string:
		if b := ToBool(v); b.Valid {
			return b.Bool, true, nil, ""
		}
	}
	return nil, false, nil, fmt.Sprintf("%s must be yes/no, true/false, or 1/0", field.Label())
}

func coerceDate(value any, field schema.TargetField) (any, bool, *SuggestedFix, string) {
	switch v := value.(type) {
	case time.Time:
		return v, true, nil, ""
	case string:
		if d := ToDate(v); d.Valid {
			return d.Time, true, nil, ""
		}
	}
	return nil, false, nil, fmt.Sprintf("%s must be a date (use YYYY-MM-DD or similar)", field.Label())
}

func coerceEmail(value any, field schema.TargetField) (any, bool, *SuggestedFix, string) {
	s, isString := value.(string)
	if !isString {
		return nil, false, nil, fmt.Sprintf("%s must be an email address", field.Label())
	}
	if normalized, ok := NormalizeEmail(s); ok {
		return normalized, true, nil, ""
	}
	return nil, false, nil, fmt.Sprintf("%s must be a valid email address (got %q)", field.Label(), s)
}

func coercePhone(value any, field schema.TargetField) (any, bool, *SuggestedFix, string) {
	s := ValueToString(value)
	if normalized, ok := NormalizePhone(s); ok {
		return normalized, true, nil, ""
	}
	return nil, false, nil, fmt.Sprintf("%s must be a phone number with 7-15 digits (got %q)", field.Label(), s)
}

func coerceURL(value any, field schema.TargetField) (any, bool, *SuggestedFix, string) {
	s, isString := value.(string)
	if !isString {
		return nil, false, nil, fmt.Sprintf("%s must be a URL", field.Label())
	}
	if normalized, ok := NormalizeURL(s); ok {
		return normalized, true, nil, ""
	}
	return nil, false, nil, fmt.Sprintf("%s must be a valid URL (got %q)", field.Label(), s)
}

func coerceEnum(value any, field schema.TargetField) (any, bool, *SuggestedFix, string) {
	if len(field.EnumValues) == 0 {
		return value, true, nil, ""
	}
	s := strings.TrimSpace(ValueToString(value))
	for _, allowed := range field.EnumValues {
		if strings.EqualFold(allowed, s) {
			return allowed, true, nil, ""
		}
	}
	return nil, false, nil, fmt.Sprintf("%s must be one of: %s", field.Label(), strings.Join(field.EnumValues, ", "))
}

func coerceObject(value any, field schema.TargetField) (any, bool, *SuggestedFix, string) {
	switch value.(type) {
	case map[string]any:
		return value, true, nil, ""
	default:
		return nil, false, nil, fmt.Sprintf("%s must be a nested object", field.Label())
	}
}

// equalValues compares a cell value with its coerced form, tolerating the
// numeric widening the coercers perform.
func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af == bf
		}
		return false
	}
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Equal(bv)
		}
		return false
	case map[string]any, []any:
		// Structured values are never rewritten by coercion.
		return true
	default:
		return a == b
	}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	default:
		return 0, false
	}
}
