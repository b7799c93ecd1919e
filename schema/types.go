// Package schema defines the vocabulary shared by the validation and lookup
// engines: target fields, target shapes, and the open row map that imported
// data travels in. It contains no logic beyond small accessors; every other
// package speaks these types.
package schema

import (
	"fmt"
	"strings"
)

// FieldType represents the expected data type for a target field.
type FieldType int

const (
	FieldString FieldType = iota
	FieldNumber
	FieldInteger
	FieldBoolean
	FieldDate
	FieldEmail
	FieldPhone
	FieldURL
	FieldCurrency
	FieldEnum
	FieldLookup
	FieldObject
)

// String returns the wire name for a field type.
func (t FieldType) String() string {
	switch t {
	case FieldString:
		return "string"
	case FieldNumber:
		return "number"
	case FieldInteger:
		return "integer"
	case FieldBoolean:
		return "boolean"
	case FieldDate:
		return "date"
	case FieldEmail:
		return "email"
	case FieldPhone:
		return "phone"
	case FieldURL:
		return "url"
	case FieldCurrency:
		return "currency"
	case FieldEnum:
		return "enum"
	case FieldLookup:
		return "lookup"
	case FieldObject:
		return "object"
	default:
		return "unknown"
	}
}

// ParseFieldType converts a wire name to a FieldType.
// Matching is case-insensitive.
func ParseFieldType(s string) (FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "text":
		return FieldString, nil
	case "number", "numeric":
		return FieldNumber, nil
	case "integer", "int":
		return FieldInteger, nil
	case "boolean", "bool":
		return FieldBoolean, nil
	case "date":
		return FieldDate, nil
	case "email":
		return FieldEmail, nil
	case "phone":
		return FieldPhone, nil
	case "url":
		return FieldURL, nil
	case "currency":
		return FieldCurrency, nil
	case "enum":
		return FieldEnum, nil
	case "lookup":
		return FieldLookup, nil
	case "object":
		return FieldObject, nil
	default:
		return FieldString, fmt.Errorf("unknown field type: %q", s)
	}
}

// MismatchPolicy controls what happens when a lookup value finds no match.
type MismatchPolicy string

const (
	MismatchError   MismatchPolicy = "error"   // Record a blocking error for the row
	MismatchWarning MismatchPolicy = "warning" // Record a non-blocking warning
	MismatchNull    MismatchPolicy = "null"    // Null the cell silently
)

// MatchSpec names the reference columns a lookup field resolves against.
type MatchSpec struct {
	On   string // Reference column compared against the input value
	Get  string // Reference column whose value replaces the cell on a match
	Show string // Optional display column for presentation layers
}

// DerivedSpec describes a column populated from a matched reference row.
type DerivedSpec struct {
	Name   string // Column name written onto the data row
	Source string // Reference column the value is copied from
}

// SmartMatching configures the fuzzy tier of lookup resolution.
type SmartMatching struct {
	Enabled    bool    // Fuzzy matching is attempted only when true
	Confidence float64 // Minimum similarity score to accept a fuzzy match
}

// LookupSpec holds everything a lookup-typed field needs to resolve its
// values against an external reference dataset.
type LookupSpec struct {
	ReferenceFile string        // ID of the reference dataset
	Match         MatchSpec     // Columns to compare and substitute
	AlsoGet       []DerivedSpec // Derived columns populated on a match
	SmartMatching SmartMatching // Fuzzy matching configuration
	OnMismatch    MismatchPolicy
}

// DerivedFieldCount returns the number of derived columns this lookup
// populates on a successful match.
func (s LookupSpec) DerivedFieldCount() int {
	return len(s.AlsoGet)
}

// TargetField defines the expectations for a single column in a target shape.
// A field is immutable once a table has been validated against it; editing a
// field invalidates prior validation results for that field.
type TargetField struct {
	ID          string
	Name        string    // Column name (key in the row map)
	DisplayName string    // Optional human-facing label
	Type        FieldType // Expected data type
	Required    bool      // Empty values fail validation
	EnumValues  []string  // Allowed values for FieldEnum
	Lookup      *LookupSpec // Set only when Type is FieldLookup
}

// Label returns the display name, falling back to the column name.
func (f TargetField) Label() string {
	if f.DisplayName != "" {
		return f.DisplayName
	}
	return f.Name
}

// IsLookup reports whether the field resolves against reference data.
func (f TargetField) IsLookup() bool {
	return f.Type == FieldLookup && f.Lookup != nil
}

// TargetShape is the declarative schema a table is validated and reshaped
// against. Field order is the validation order.
type TargetShape struct {
	ID     string
	Name   string
	Fields []TargetField
}

// Field returns the field with the given column name, matched
// case-insensitively like CSV headers.
func (s *TargetShape) Field(name string) (TargetField, bool) {
	for _, f := range s.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return TargetField{}, false
}

// LookupFields returns the lookup-typed fields in declaration order.
func (s *TargetShape) LookupFields() []TargetField {
	var out []TargetField
	for _, f := range s.Fields {
		if f.IsLookup() {
			out = append(out, f)
		}
	}
	return out
}
