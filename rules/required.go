package rules

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/JonMunkholm/reshape/schema"
)

// RequiredRule fails when a required field's value is missing: nil, an empty
// or whitespace-only string, or an empty array. Zero, false, and non-empty
// objects are present values and pass.
type RequiredRule struct {
	BaseRule
}

// NewRequiredRule creates the reference required-field rule.
func NewRequiredRule() *RequiredRule {
	return &RequiredRule{BaseRule: BaseRule{
		RuleID:   "required",
		RuleType: "required",
		Desc:     "Required fields must have a value",
	}}
}

// AppliesTo narrows the rule to fields declared required.
func (r *RequiredRule) AppliesTo(field schema.TargetField) bool {
	return r.Enabled() && field.Required
}

// Validate checks that the value is present.
func (r *RequiredRule) Validate(value any, field schema.TargetField, _ Context) ValidationResult {
	result := Valid()
	result.Metadata.RulesApplied = []string{r.ID()}

	if !isMissing(value) {
		return result
	}

	issue := Issue{
		RuleID:       r.ID(),
		RuleType:     r.Type(),
		Severity:     SeverityError,
		Message:      requiredMessage(field),
		FieldName:    field.Name,
		CurrentValue: value,
	}
	if fix := r.SuggestFix(value, field); fix != nil {
		issue.Fixes = append(issue.Fixes, *fix)
	}
	result.AddIssue(issue)
	return result
}

// SuggestFix proposes a field-type-specific placeholder value.
func (r *RequiredRule) SuggestFix(_ any, field schema.TargetField) *SuggestedFix {
	example, ok := exampleValue(field)
	if !ok {
		return nil
	}
	return &SuggestedFix{
		Action:      "set_value",
		Description: fmt.Sprintf("Enter a value for %s, e.g. %v", field.Label(), example),
		NewValue:    example,
	}
}

// isMissing reports whether a value counts as absent for required-ness.
func isMissing(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	default:
		rv := reflect.ValueOf(value)
		if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			return rv.Len() == 0
		}
		return false
	}
}

func requiredMessage(field schema.TargetField) string {
	switch field.Type {
	case schema.FieldEmail:
		return fmt.Sprintf("%s is required (an email address)", field.Label())
	case schema.FieldEnum:
		if len(field.EnumValues) > 0 {
			return fmt.Sprintf("%s is required (one of: %s)", field.Label(), strings.Join(field.EnumValues, ", "))
		}
		return fmt.Sprintf("%s is required", field.Label())
	case schema.FieldLookup:
		return fmt.Sprintf("%s is required (a reference value)", field.Label())
	default:
		return fmt.Sprintf("%s is required", field.Label())
	}
}

// exampleValue returns a plausible placeholder for the field's type.
func exampleValue(field schema.TargetField) (any, bool) {
	switch field.Type {
	case schema.FieldString, schema.FieldLookup:
		return "", false // no meaningful placeholder
	case schema.FieldNumber, schema.FieldCurrency:
		return 0.0, true
	case schema.FieldInteger:
		return 0, true
	case schema.FieldBoolean:
		return false, true
	case schema.FieldDate:
		return "2024-01-15", true
	case schema.FieldEmail:
		return "user@example.com", true
	case schema.FieldPhone:
		return "+1 555 000 0000", true
	case schema.FieldURL:
		return "https://example.com", true
	case schema.FieldEnum:
		if len(field.EnumValues) > 0 {
			return field.EnumValues[0], true
		}
		return "", false
	case schema.FieldObject:
		return map[string]any{}, true
	default:
		return "", false
	}
}
