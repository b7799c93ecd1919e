package schema

import (
	"strings"
	"unicode"
)

// Slug derives a snake_case column identifier from a display name:
// "Manager Name" -> "manager_name", "Dept. ID" -> "dept_id".
// Runs of non-alphanumeric characters collapse to a single underscore.
func Slug(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	lastUnderscore := true // suppress leading underscore
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	return strings.TrimSuffix(b.String(), "_")
}
