package dataprocessing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ValidateTable confirms the key column joins cleanly across files:
// it must exist, be numeric (coercing cell by cell when it is not) and
// hold no missing values. It also enumerates the remaining numeric
// columns available for comparison. The first failing check rejects
// the table. Coercion never mutates the input table; a new one is
// returned inside the ValidatedTable.
func ValidateTable(table *ParsedTable, keyColumn string) (*ValidatedTable, *ParseDiagnostic) {
	key := table.Column(keyColumn)
	if key == nil {
		return nil, &ParseDiagnostic{
			Source:  table.Source,
			Message: fmt.Sprintf("operation column '%s' not found", keyColumn),
		}
	}

	if key.Type != ColumnNumeric {
		coerced, originalPresent := coerceNumeric(key)
		if allMissing(coerced) && originalPresent > 0 {
			return nil, &ParseDiagnostic{
				Source: table.Source,
				Message: fmt.Sprintf(
					"operation column '%s' could not be converted to a numeric type without significant data loss (all values became missing)",
					keyColumn),
			}
		}
		table = replaceColumn(table, keyColumn, coerced)
		key = table.Column(keyColumn)
	}

	for i := range key.Floats {
		if math.IsNaN(key.Floats[i]) {
			return nil, &ParseDiagnostic{
				Source: table.Source,
				Message: fmt.Sprintf(
					"operation column '%s' contains missing values; files must not have missing values in this column for merging",
					keyColumn),
			}
		}
	}

	var numericCols []string
	for i := range table.Columns {
		col := &table.Columns[i]
		if col.Name != keyColumn && col.Type == ColumnNumeric {
			numericCols = append(numericCols, col.Name)
		}
	}
	if len(numericCols) == 0 {
		return nil, &ParseDiagnostic{
			Source: table.Source,
			Message: fmt.Sprintf(
				"no numeric columns found for comparison (excluding operation column '%s')",
				keyColumn),
		}
	}

	return &ValidatedTable{
		Source:         table.Source,
		Table:          table,
		NumericColumns: numericCols,
	}, nil
}

// coerceNumeric converts a text column to numeric cell by cell,
// mapping unparseable cells to NaN. It also reports how many cells
// originally held a value.
func coerceNumeric(col *Column) (Column, int) {
	out := Column{Name: col.Name, Type: ColumnNumeric, Floats: make([]float64, len(col.Strings))}
	present := 0
	for i, cell := range col.Strings {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			out.Floats[i] = math.NaN()
			continue
		}
		present++
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			out.Floats[i] = math.NaN()
			continue
		}
		out.Floats[i] = v
	}
	return out, present
}

func allMissing(col Column) bool {
	for _, v := range col.Floats {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}

// replaceColumn returns a new table with one column swapped out; the
// original table is left untouched.
func replaceColumn(table *ParsedTable, name string, replacement Column) *ParsedTable {
	columns := make([]Column, len(table.Columns))
	copy(columns, table.Columns)
	for i := range columns {
		if columns[i].Name == name {
			columns[i] = replacement
			break
		}
	}
	return &ParsedTable{Source: table.Source, Columns: columns}
}
