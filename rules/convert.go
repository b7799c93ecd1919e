package rules

// convert.go provides permissive type coercion for imported cell values.
//
// These functions handle the messy reality of user-provided tabular data:
//   - Multiple date formats (US, EU, ISO, etc.)
//   - Currency symbols and thousand separators in numbers
//   - Various boolean representations (yes/no, true/false, 1/0)
//   - Bare domains where a URL is expected
//   - Mixed-case, padded email addresses
//
// Parse-validity for numbers, dates, and booleans is carried as pgtype
// values with Valid=false for empty/invalid input, so the type rule can
// coerce first and only fail when coercion cannot satisfy the target type.

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// numericRegex validates that a string is a valid numeric format after
// cleanup. Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// emailRegex is a deliberately loose RFC-shape check: one @, a dotted
// domain, no whitespace. Full RFC 5322 parsing rejects addresses users
// actually have.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// phoneDigitsRegex strips everything that is not a digit.
var phoneDigitsRegex = regexp.MustCompile(`\D`)

// whitespaceRegex collapses interior whitespace runs.
var whitespaceRegex = regexp.MustCompile(`\s+`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// Date layouts split by year format for proper 2-digit year handling
var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"2006-01-02", "2006/01/02", "2006.01.02",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
)

// ToNumeric converts a string to pgtype.Numeric.
// Handles currency symbols, thousands separators, and accounting format
// (parentheses for negative).
func ToNumeric(s string) pgtype.Numeric {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Numeric{Valid: false}
	}

	// Detect negative accounting format "(123.45)"
	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	// Remove common currency symbols and thousands separators
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, "¥", "") // Yen
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return pgtype.Numeric{Valid: false}
	}

	var n pgtype.Numeric
	if err := n.Scan(s); err != nil {
		return pgtype.Numeric{Valid: false}
	}

	return n
}

// ToFloat converts a string to a float64 through ToNumeric.
// The second return is false for empty/invalid input.
func ToFloat(s string) (float64, bool) {
	n := ToNumeric(s)
	if !n.Valid {
		return 0, false
	}
	f, err := n.Float64Value()
	if err != nil || !f.Valid {
		return 0, false
	}
	return f.Float64, true
}

// ToDate converts a string to pgtype.Date.
// Supports multiple date formats and handles 2-digit years with pivot.
func ToDate(s string) pgtype.Date {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Date{Valid: false}
	}

	// Try 4-digit year layouts first (unambiguous)
	for _, layout := range fourDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return pgtype.Date{Time: t, Valid: true}
		}
	}

	// Try 2-digit year layouts with pivot year adjustment
	currentYear := time.Now().Year()
	pivotYear := currentYear + TwoDigitYearPivot

	for _, layout := range twoDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return pgtype.Date{Time: t, Valid: true}
		}
	}

	return pgtype.Date{Valid: false}
}

// ToBool converts a string to pgtype.Bool.
// Accepts various representations: true/false, yes/no, t/f, y/n, 1/0.
func ToBool(s string) pgtype.Bool {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return pgtype.Bool{Valid: false}
	}

	switch s {
	case "true", "t", "yes", "y", "1":
		return pgtype.Bool{Bool: true, Valid: true}
	case "false", "f", "no", "n", "0":
		return pgtype.Bool{Bool: false, Valid: true}
	default:
		return pgtype.Bool{Valid: false}
	}
}

// NormalizeEmail lowercases and trims an email address.
// The second return is false when the result is not RFC-shaped.
func NormalizeEmail(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !emailRegex.MatchString(s) {
		return s, false
	}
	return s, true
}

// NormalizePhone strips formatting from a phone number, keeping a leading +.
// The second return is false unless 7-15 digits remain.
func NormalizePhone(s string) (string, bool) {
	s = strings.TrimSpace(s)
	plus := strings.HasPrefix(s, "+")
	digits := phoneDigitsRegex.ReplaceAllString(s, "")
	if len(digits) < 7 || len(digits) > 15 {
		return s, false
	}
	if plus {
		return "+" + digits, true
	}
	return digits, true
}

// NormalizeURL parses a URL, prepending https:// for bare domains.
// The second return is false when no parseable absolute URL results.
func NormalizeURL(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return s, false
	}

	candidate := s
	if !strings.Contains(candidate, "://") {
		// A bare domain must at least look dotted and contain no spaces.
		if strings.ContainsAny(candidate, " \t") || !strings.Contains(candidate, ".") {
			return s, false
		}
		candidate = "https://" + candidate
	}

	u, err := url.Parse(candidate)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return s, false
	}
	return u.String(), true
}

// ValueToString renders a scalar cell value for comparison and coercion.
// nil renders as "".
func ValueToString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case float64:
		// Avoid "30.000000" noise for whole numbers
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// CollapseWhitespace trims and collapses interior whitespace runs to single
// spaces.
func CollapseWhitespace(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}
