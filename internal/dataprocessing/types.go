package dataprocessing

import "math"

// ColumnType identifies the inferred type of a table column.
type ColumnType string

const (
	// ColumnNumeric marks a column whose every non-empty cell parsed as a number.
	ColumnNumeric ColumnType = "numeric"
	// ColumnText marks a column holding raw string cells.
	ColumnText ColumnType = "text"
)

// Column is a single typed column of a parsed table. Exactly one of
// Floats or Strings is populated, selected by Type. Missing numeric
// cells are represented as NaN.
type Column struct {
	Name    string
	Type    ColumnType
	Floats  []float64
	Strings []string
}

// Len returns the number of rows in the column.
func (c *Column) Len() int {
	if c.Type == ColumnNumeric {
		return len(c.Floats)
	}
	return len(c.Strings)
}

// IsMissing reports whether the cell at row i holds no value.
func (c *Column) IsMissing(i int) bool {
	if c.Type == ColumnNumeric {
		return math.IsNaN(c.Floats[i])
	}
	return c.Strings[i] == ""
}

// ParsedTable is the normalized form of one delimited-text file.
// Column names are unique and ordered as they appeared in the header.
type ParsedTable struct {
	Source  string
	Columns []Column
}

// ColumnNames returns the ordered column names.
func (t *ParsedTable) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i := range t.Columns {
		names[i] = t.Columns[i].Name
	}
	return names
}

// RowCount returns the number of data rows.
func (t *ParsedTable) RowCount() int {
	if len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

// Column returns the named column, or nil if absent.
func (t *ParsedTable) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// ParseDiagnostic is a structured reason a file could not proceed to
// the next pipeline stage.
type ParseDiagnostic struct {
	Source  string `json:"filename"`
	Message string `json:"error"`
	Fatal   bool   `json:"-"`
}

// ValidatedTable is a ParsedTable whose key column is guaranteed
// numeric and free of missing values, together with the columns that
// are eligible for comparison.
type ValidatedTable struct {
	Source         string
	Table          *ParsedTable
	NumericColumns []string
}

// SeriesKey identifies one difference series by compared column and
// the pair of files it came from.
type SeriesKey struct {
	Column    string
	RefFile   string
	OtherFile string
}

// DifferencePair is one joined row: the key value shared by both
// tables and the absolute difference of the compared column.
type DifferencePair struct {
	Key  float64
	Diff float64
}

// DifferenceSeries holds the per-row absolute differences for one
// (column, reference, other) combination, in join order.
type DifferenceSeries []DifferencePair

// Warning kinds reported by the comparison engine and report stage.
const (
	WarnSetup          = "SetupWarning"
	WarnMerge          = "MergeWarning"
	WarnInternalLogic  = "InternalLogicWarning"
	WarnColumnMissing  = "ColumnMissingInOtherWarning"
	WarnDataType       = "DataTypeWarning"
	WarnReportGenerate = "ReportGenerationError"
)

// Warning is a non-fatal condition raised during comparison or report
// generation. Warnings accumulate; they never remove produced results.
type Warning struct {
	Kind    string `json:"type"`
	Message string `json:"message"`
}
