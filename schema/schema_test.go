package schema

import (
	"testing"
)

// ----------------------------------------------------------------------------
// Field Types
// ----------------------------------------------------------------------------

func TestFieldTypeRoundTrip(t *testing.T) {
	for ft := FieldString; ft <= FieldObject; ft++ {
		parsed, err := ParseFieldType(ft.String())
		if err != nil {
			t.Errorf("ParseFieldType(%q): %v", ft.String(), err)
		}
		if parsed != ft {
			t.Errorf("round trip %s -> %s", ft, parsed)
		}
	}
}

func TestParseFieldTypeAliases(t *testing.T) {
	tests := []struct {
		in   string
		want FieldType
	}{
		{"text", FieldString},
		{"numeric", FieldNumber},
		{"int", FieldInteger},
		{"bool", FieldBoolean},
		{"  Email  ", FieldEmail},
		{"LOOKUP", FieldLookup},
	}

	for _, tt := range tests {
		got, err := ParseFieldType(tt.in)
		if err != nil {
			t.Errorf("ParseFieldType(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFieldType(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := ParseFieldType("widget"); err == nil {
		t.Error("expected error for unknown type name")
	}
}

// ----------------------------------------------------------------------------
// Fields and Shapes
// ----------------------------------------------------------------------------

func TestFieldLabel(t *testing.T) {
	f := TargetField{Name: "dept_id", DisplayName: "Department"}
	if f.Label() != "Department" {
		t.Errorf("Label() = %q, want display name", f.Label())
	}

	f.DisplayName = ""
	if f.Label() != "dept_id" {
		t.Errorf("Label() = %q, want column name fallback", f.Label())
	}
}

func TestFieldIsLookup(t *testing.T) {
	withSpec := TargetField{Type: FieldLookup, Lookup: &LookupSpec{ReferenceFile: "x"}}
	if !withSpec.IsLookup() {
		t.Error("lookup field with spec should report IsLookup")
	}

	// A lookup-typed field without a spec is not resolvable.
	if (TargetField{Type: FieldLookup}).IsLookup() {
		t.Error("lookup field without spec should not report IsLookup")
	}
	if (TargetField{Type: FieldString, Lookup: &LookupSpec{}}).IsLookup() {
		t.Error("non-lookup type should not report IsLookup")
	}
}

func TestShapeFieldCaseInsensitive(t *testing.T) {
	shape := &TargetShape{Fields: []TargetField{
		{Name: "Email", Type: FieldEmail},
	}}

	if _, ok := shape.Field("email"); !ok {
		t.Error("expected case-insensitive column match")
	}
	if _, ok := shape.Field("phone"); ok {
		t.Error("expected miss for unknown column")
	}
}

func TestShapeLookupFieldsOrder(t *testing.T) {
	shape := &TargetShape{Fields: []TargetField{
		{Name: "a", Type: FieldString},
		{Name: "b", Type: FieldLookup, Lookup: &LookupSpec{}},
		{Name: "c", Type: FieldLookup, Lookup: &LookupSpec{}},
	}}

	lookups := shape.LookupFields()
	if len(lookups) != 2 || lookups[0].Name != "b" || lookups[1].Name != "c" {
		t.Errorf("LookupFields() = %v, want b then c", lookups)
	}
}

// ----------------------------------------------------------------------------
// Rows
// ----------------------------------------------------------------------------

func TestTableRowID(t *testing.T) {
	row := TableRow{}
	if row.ID() != "" {
		t.Errorf("empty row ID() = %q, want empty", row.ID())
	}

	row.SetID("r-1")
	if row.ID() != "r-1" {
		t.Errorf("ID() = %q, want r-1", row.ID())
	}
}

func TestTableRowClone(t *testing.T) {
	row := TableRow{"name": "John"}
	row.SetID("r-1")

	clone := row.Clone()
	clone["name"] = "Jane"

	if row["name"] != "John" {
		t.Error("mutating clone changed the original")
	}
	if clone.ID() != "r-1" {
		t.Error("clone should carry the row id")
	}
}

func TestTableRowColumns(t *testing.T) {
	row := TableRow{"name": "John", "age": 30}
	row.SetID("r-1")
	row[MetadataKey] = struct{}{}

	cols := row.Columns()
	if len(cols) != 2 {
		t.Errorf("Columns() = %v, want user columns only", cols)
	}
}

func TestIsReservedKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{RowIDKey, true},
		{MetadataKey, true},
		{"_anythingInternal", true},
		{"name", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsReservedKey(tt.key); got != tt.want {
			t.Errorf("IsReservedKey(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

// ----------------------------------------------------------------------------
// Slugs
// ----------------------------------------------------------------------------

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Manager Name", "manager_name"},
		{"Dept. ID", "dept_id"},
		{"  spaced  out  ", "spaced_out"},
		{"already_slugged", "already_slugged"},
		{"Q3--Revenue!!", "q3_revenue"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Slug(tt.in); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
