// Package tabular converts between raw import payloads and the row maps the
// engines consume. It operates purely on in-memory bytes: CSV and JSON
// decoding with the usual import artifacts cleaned up, encoding back out in
// field-declaration order, and SQL INSERT statement templating.
package tabular

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/JonMunkholm/reshape/rules"
	"github.com/JonMunkholm/reshape/schema"
)

// DecodeCSV parses CSV bytes into rows keyed by the header row's cleaned
// column names. Input is UTF-8 sanitized first; empty rows are skipped; each
// decoded row gets a generated internal id. Returns the cleaned headers
// alongside the rows.
func DecodeCSV(data []byte) ([]schema.TableRow, []string, error) {
	data = sanitizeUTF8(data)

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("empty file")
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = CleanCell(h)
	}

	var rows []schema.TableRow
	for _, record := range records[1:] {
		if isEmptyRow(record) {
			continue
		}
		row := make(schema.TableRow, len(headers)+1)
		for i, h := range headers {
			if i < len(record) {
				row[h] = CleanCell(record[i])
			}
		}
		row.SetID(uuid.NewString())
		rows = append(rows, row)
	}

	return rows, headers, nil
}

// EncodeCSV renders rows as CSV with columns in the shape's field
// declaration order. Reserved keys never appear in the output.
func EncodeCSV(rows []schema.TableRow, shape *schema.TargetShape) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, len(shape.Fields))
	for i, f := range shape.Fields {
		header[i] = f.Name
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(shape.Fields))
	for _, row := range rows {
		for i, f := range shape.Fields {
			record[i] = rules.ValueToString(row[f.Name])
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush: %w", err)
	}
	return buf.Bytes(), nil
}

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	// Remove leading '='
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	// Remove any surrounding quotes
	s = strings.Trim(s, `"'`)

	return s
}

// sanitizeUTF8 replaces invalid byte sequences with the replacement rune.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}

func isEmptyRow(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
