package tabular

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/JonMunkholm/reshape/schema"
)

// DecodeJSON parses a JSON array of objects into rows. Each decoded row gets
// a generated internal id unless the source already carries one.
func DecodeJSON(data []byte) ([]schema.TableRow, error) {
	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}

	rows := make([]schema.TableRow, 0, len(raw))
	for _, obj := range raw {
		row := schema.TableRow(obj)
		if row.ID() == "" {
			row.SetID(uuid.NewString())
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// EncodeJSON renders rows as a JSON array of objects with reserved keys
// stripped.
func EncodeJSON(rows []schema.TableRow) ([]byte, error) {
	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		obj := make(map[string]any, len(row))
		for k, v := range row {
			if !schema.IsReservedKey(k) {
				obj[k] = v
			}
		}
		out = append(out, obj)
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode JSON: %w", err)
	}
	return data, nil
}
