package tabular

import (
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/reshape/schema"
)

// InsertStatements renders one INSERT statement per row for the given table,
// with columns in the shape's field declaration order. This is pure string
// templating for export purposes; nothing here talks to a database.
func InsertStatements(table string, shape *schema.TargetShape, rows []schema.TableRow) []string {
	columns := make([]string, len(shape.Fields))
	for i, f := range shape.Fields {
		columns[i] = f.Name
	}
	columnList := strings.Join(columns, ", ")

	statements := make([]string, 0, len(rows))
	for _, row := range rows {
		values := make([]string, len(shape.Fields))
		for i, f := range shape.Fields {
			values[i] = sqlLiteral(row[f.Name])
		}
		statements = append(statements, fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s);",
			table, columnList, strings.Join(values, ", "),
		))
	}
	return statements
}

// sqlLiteral renders a cell value as a SQL literal. Strings are quoted with
// doubled single quotes; nil becomes NULL.
func sqlLiteral(v any) string {
	switch t := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if t {
			return "TRUE"
		}
		return "FALSE"
	case int, int64, float64, float32:
		return fmt.Sprintf("%v", t)
	case time.Time:
		return fmt.Sprintf("'%s'", t.Format("2006-01-02"))
	default:
		s := strings.ReplaceAll(fmt.Sprintf("%v", t), "'", "''")
		return fmt.Sprintf("'%s'", s)
	}
}
