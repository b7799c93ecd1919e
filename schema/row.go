package schema

import "strings"

// Reserved row keys. These are internal bookkeeping entries kept out of band
// from user-visible columns; codecs strip them and validation summaries
// ignore them.
const (
	RowIDKey    = "_rowId"
	MetadataKey = "_validationMetadata"
)

// TableRow is an open key-value map for one imported row. Rows are owned by
// the caller; the engines mutate only resolved lookup columns, derived
// columns, and the reserved metadata entry.
type TableRow map[string]any

// ID returns the internal row id, or "" if the row has none.
func (r TableRow) ID() string {
	if id, ok := r[RowIDKey].(string); ok {
		return id
	}
	return ""
}

// SetID stores the internal row id.
func (r TableRow) SetID(id string) {
	r[RowIDKey] = id
}

// Clone returns a shallow copy of the row. Cell values are shared; the map
// itself is independent, which is all the real-time lookup path needs to
// leave the caller's row untouched.
func (r TableRow) Clone() TableRow {
	out := make(TableRow, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Columns returns the user-visible column names, excluding reserved keys.
// Order is unspecified.
func (r TableRow) Columns() []string {
	cols := make([]string, 0, len(r))
	for k := range r {
		if !IsReservedKey(k) {
			cols = append(cols, k)
		}
	}
	return cols
}

// IsReservedKey reports whether a key is internal bookkeeping rather than a
// user-visible column.
func IsReservedKey(key string) bool {
	return key == RowIDKey || key == MetadataKey || strings.HasPrefix(key, "_")
}
